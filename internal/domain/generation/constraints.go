// Package generation contains the domain model of the recipe generation pipeline:
// the user's constraints, the provider request, the validated recipe and the
// observable request state.
package generation

import "strings"

// DietaryType restricts which proteins a generated recipe may use
type DietaryType string

// Supported dietary types
const (
	DietVegetarian    DietaryType = "vegetarian"
	DietNonVegetarian DietaryType = "non-vegetarian"
)

// Valid reports whether d is a known dietary type
func (d DietaryType) Valid() bool {
	return d == DietVegetarian || d == DietNonVegetarian
}

// FatType is the cooking fat a generated recipe must use
type FatType string

// Supported cooking fats
const (
	FatOil    FatType = "oil"
	FatButter FatType = "butter"
)

// Valid reports whether f is a known cooking fat
func (f FatType) Valid() bool {
	return f == FatOil || f == FatButter
}

// Constraints are the user-chosen parameters of a single generation
type Constraints struct {
	Ingredients    string      `json:"ingredients"`
	DietaryType    DietaryType `json:"dietaryType"`
	Fat            FatType     `json:"fat"`
	Allergies      string      `json:"allergies"`
	SpecialRequest string      `json:"specialRequest"`
}

// Normalized returns a copy with free-text fields trimmed and enum values
// lower-cased. Blank optional fields become empty strings.
func (c Constraints) Normalized() Constraints {
	return Constraints{
		Ingredients:    strings.TrimSpace(c.Ingredients),
		DietaryType:    DietaryType(strings.ToLower(strings.TrimSpace(string(c.DietaryType)))),
		Fat:            FatType(strings.ToLower(strings.TrimSpace(string(c.Fat)))),
		Allergies:      strings.TrimSpace(c.Allergies),
		SpecialRequest: strings.TrimSpace(c.SpecialRequest),
	}
}

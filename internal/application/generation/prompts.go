package generation

import (
	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
)

// Temperature is the fixed sampling temperature of every request
const Temperature = 0.7

// ResponseMIMEType forces the provider into JSON output mode
const ResponseMIMEType = "application/json"

// SystemInstruction establishes the recipe-only, JSON-only contract
const SystemInstruction = `You are a professional chef who only creates cooking recipes.
Decline any task that is not about generating a recipe.
Respond with exactly one JSON object that follows the provided response schema.
Do not add markdown, code fences, comments or any text outside the JSON object.`

// Default phrases substituted for blank optional constraints
const (
	DefaultIngredientsPhrase    = "any common pantry ingredients"
	DefaultAllergiesPhrase      = "no known allergies"
	DefaultSpecialRequestPhrase = "no special requests"
)

// Dietary phrases embedded in the prompt
const (
	VegetarianPhrase    = "Strictly Vegetarian (no meat, poultry, fish or seafood of any kind)"
	NonVegetarianPhrase = "Non-Vegetarian (meat, poultry, fish or seafood are welcome)"
)

const promptTemplate = `Create one complete recipe.

Available ingredients: %s.
Diet: %s.
Cooking fat: use %s exclusively; do not use any other cooking fat.
Allergies to avoid: %s.
Special request: %s.

List every ingredient with its quantity and give the instructions as ordered steps.
Estimate the preparation time in whole minutes.`

// Required recipe fields, in validation order
var requiredFields = []string{"recipeName", "ingredients", "instructions", "prepTimeMinutes"}

// recipeSchema is the response schema sent with every request
var recipeSchema = &domain.Schema{
	Type: domain.SchemaObject,
	Properties: map[string]*domain.Schema{
		"recipeName": {
			Type:        domain.SchemaString,
			Description: "Name of the dish",
		},
		"description": {
			Type:        domain.SchemaString,
			Description: "One or two sentences describing the dish",
		},
		"ingredients": {
			Type:        domain.SchemaArray,
			Description: "Ingredients with quantities, one per entry",
			Items:       &domain.Schema{Type: domain.SchemaString},
		},
		"instructions": {
			Type:        domain.SchemaArray,
			Description: "Preparation steps in order",
			Items:       &domain.Schema{Type: domain.SchemaString},
		},
		"prepTimeMinutes": {
			Type:        domain.SchemaInteger,
			Description: "Total preparation time in minutes",
		},
	},
	Required:         requiredFields,
	PropertyOrdering: []string{"recipeName", "description", "ingredients", "instructions", "prepTimeMinutes"},
}

// RecipeSchema returns a copy of the response schema descriptor
func RecipeSchema() *domain.Schema {
	return recipeSchema.Clone()
}

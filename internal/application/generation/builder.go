// Package generation implements the recipe generation pipeline: building the
// provider request, validating the provider reply and the controller that
// owns the observable request state.
package generation

import (
	"fmt"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
)

// Builder turns constraints into a provider request. It is pure and never fails.
type Builder struct{}

// NewBuilder creates a request builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Build renders the prompt for c and attaches the fixed schema, generation
// config and system instruction. Equal constraints yield equal requests.
func (b *Builder) Build(c domain.Constraints) domain.GenerationRequest {
	c = c.Normalized()

	prompt := fmt.Sprintf(promptTemplate,
		orDefault(c.Ingredients, DefaultIngredientsPhrase),
		dietPhrase(c.DietaryType),
		fatKeyword(c.Fat),
		orDefault(c.Allergies, DefaultAllergiesPhrase),
		orDefault(c.SpecialRequest, DefaultSpecialRequestPhrase),
	)

	return domain.NewGenerationRequest(prompt, recipeSchema, domain.GenerationConfig{
		Temperature:      Temperature,
		ResponseMIMEType: ResponseMIMEType,
	}, SystemInstruction)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// Unknown diets get the stricter vegetarian reading
func dietPhrase(d domain.DietaryType) string {
	if d == domain.DietNonVegetarian {
		return NonVegetarianPhrase
	}
	return VegetarianPhrase
}

func fatKeyword(f domain.FatType) string {
	if f == domain.FatButter {
		return string(domain.FatButter)
	}
	return string(domain.FatOil)
}

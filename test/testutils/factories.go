// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"encoding/json"
	"fmt"
	"net/http"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
	"github.com/brianvoe/gofakeit/v6"
)

// ConstraintsFactory creates user constraints
type ConstraintsFactory struct {
	faker *gofakeit.Faker
}

// NewConstraintsFactory creates a new constraints factory with seeded faker
func NewConstraintsFactory(seed int64) *ConstraintsFactory {
	return &ConstraintsFactory{faker: gofakeit.New(seed)}
}

// Constraints returns fully populated constraints with valid enums
func (f *ConstraintsFactory) Constraints() domain.Constraints {
	diet := domain.DietVegetarian
	if f.faker.Bool() {
		diet = domain.DietNonVegetarian
	}
	fat := domain.FatOil
	if f.faker.Bool() {
		fat = domain.FatButter
	}
	return domain.Constraints{
		Ingredients:    fmt.Sprintf("%s, %s, %s", f.faker.Vegetable(), f.faker.Fruit(), f.faker.Vegetable()),
		DietaryType:    diet,
		Fat:            fat,
		Allergies:      f.faker.Fruit(),
		SpecialRequest: f.faker.Sentence(4),
	}
}

// ChickenRiceOil is the canonical end-to-end example
func ChickenRiceOil() domain.Constraints {
	return domain.Constraints{
		Ingredients: "chicken, rice",
		DietaryType: domain.DietNonVegetarian,
		Fat:         domain.FatOil,
	}
}

// RecipeFactory creates recipes and provider payloads
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{faker: gofakeit.New(seed)}
}

// Recipe returns a recipe that passes validation
func (f *RecipeFactory) Recipe() domain.Recipe {
	ingredients := make([]string, f.faker.Number(2, 6))
	for i := range ingredients {
		ingredients[i] = fmt.Sprintf("%d cup %s", f.faker.Number(1, 4), f.faker.Vegetable())
	}
	instructions := make([]string, f.faker.Number(2, 5))
	for i := range instructions {
		instructions[i] = f.faker.Sentence(6)
	}
	return domain.Recipe{
		RecipeName:      f.faker.Dessert(),
		Description:     f.faker.Sentence(8),
		Ingredients:     ingredients,
		Instructions:    instructions,
		PrepTimeMinutes: f.faker.Number(5, 120),
	}
}

// GeminiBody wraps generated text in a provider success envelope
func GeminiBody(text string) []byte {
	body := map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []interface{}{map[string]interface{}{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return data
}

// RecipeJSON encodes a recipe the way the provider emits it
func RecipeJSON(r domain.Recipe) string {
	data, err := json.Marshal(r)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// RawResponse returns a 200 provider response carrying text
func RawResponse(text string) *domain.RawResponse {
	return &domain.RawResponse{StatusCode: http.StatusOK, Body: GeminiBody(text)}
}

// RecipeResponse returns a 200 provider response carrying r
func RecipeResponse(r domain.Recipe) *domain.RawResponse {
	return RawResponse(RecipeJSON(r))
}

// GeminiError returns a provider error envelope
func GeminiError(code int, message string) []byte {
	data, err := json.Marshal(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
			"status":  http.StatusText(code),
		},
	})
	if err != nil {
		panic(err)
	}
	return data
}

package generation

import (
	"errors"
	"net/http"
	"testing"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
	"github.com/alchemorsel/recipeforge/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{"recipeName":"Fried Rice","description":"Quick","ingredients":["1 cup rice"],"instructions":["Cook"],"prepTimeMinutes":20}`

func requireKind(t *testing.T, err error, kind domain.ErrorKind) *domain.PipelineError {
	t.Helper()
	var pe *domain.PipelineError
	require.True(t, errors.As(err, &pe), "expected PipelineError, got %v", err)
	assert.Equal(t, kind, pe.Kind)
	return pe
}

func TestValidator_Valid(t *testing.T) {
	v := NewValidator()

	recipe, err := v.Validate(testutils.RawResponse(validPayload))

	require.NoError(t, err)
	assert.Equal(t, domain.Recipe{
		RecipeName:      "Fried Rice",
		Description:     "Quick",
		Ingredients:     []string{"1 cup rice"},
		Instructions:    []string{"Cook"},
		PrepTimeMinutes: 20,
	}, recipe)
}

func TestValidator_GeneratedRecipes(t *testing.T) {
	v := NewValidator()
	factory := testutils.NewRecipeFactory(7)
	assertions := testutils.NewRecipeAssertions(t)

	for i := 0; i < 10; i++ {
		want := factory.Recipe()

		got, err := v.Validate(testutils.RecipeResponse(want))

		require.NoError(t, err)
		assertions.ValidRecipe(got)
		assert.Equal(t, want, got)
	}
}

func TestValidator_MalformedResponse(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name string
		raw  *domain.RawResponse
	}{
		{"NilResponse", nil},
		{"EmptyBody", &domain.RawResponse{StatusCode: http.StatusOK}},
		{"NotJSON", &domain.RawResponse{StatusCode: http.StatusOK, Body: []byte("<html>")}},
		{"NoCandidates", &domain.RawResponse{StatusCode: http.StatusOK, Body: []byte(`{"candidates":[]}`)}},
		{"NoParts", &domain.RawResponse{StatusCode: http.StatusOK, Body: []byte(`{"candidates":[{"content":{"parts":[]}}]}`)}},
		{"NoText", &domain.RawResponse{StatusCode: http.StatusOK, Body: []byte(`{"candidates":[{"content":{"parts":[{}]}}]}`)}},
		{"BlankText", testutils.RawResponse("   ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.raw)
			requireKind(t, err, domain.KindMalformedResponse)
		})
	}
}

func TestValidator_InvalidJSON(t *testing.T) {
	v := NewValidator()

	for _, text := range []string{
		"Here is your recipe: Fried Rice",
		`{"recipeName":"Fried Rice"`,
		validPayload + ` {"extra":true}`,
	} {
		_, err := v.Validate(testutils.RawResponse(text))
		requireKind(t, err, domain.KindInvalidJSON)
	}
}

func TestValidator_SchemaViolation(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name  string
		text  string
		field string
	}{
		{"OnlyDescription", `{"description":"x"}`, "recipeName"},
		{"NotAnObject", `["a","b"]`, "recipeName"},
		{"BlankName", `{"recipeName":"  ","ingredients":["a"],"instructions":["b"],"prepTimeMinutes":5}`, "recipeName"},
		{"NumericName", `{"recipeName":5,"ingredients":["a"],"instructions":["b"],"prepTimeMinutes":5}`, "recipeName"},
		{"MissingIngredients", `{"recipeName":"x","instructions":["b"],"prepTimeMinutes":5}`, "ingredients"},
		{"EmptyIngredients", `{"recipeName":"x","ingredients":[],"instructions":["b"],"prepTimeMinutes":5}`, "ingredients"},
		{"IngredientsNotArray", `{"recipeName":"x","ingredients":"rice","instructions":["b"],"prepTimeMinutes":5}`, "ingredients"},
		{"BlankIngredient", `{"recipeName":"x","ingredients":["rice"," "],"instructions":["b"],"prepTimeMinutes":5}`, "ingredients"},
		{"ObjectIngredient", `{"recipeName":"x","ingredients":[{"name":"rice"}],"instructions":["b"],"prepTimeMinutes":5}`, "ingredients"},
		{"NullInstructions", `{"recipeName":"x","ingredients":["a"],"instructions":null,"prepTimeMinutes":5}`, "instructions"},
		{"MissingPrep", `{"recipeName":"x","ingredients":["a"],"instructions":["b"]}`, "prepTimeMinutes"},
		{"ZeroPrep", `{"recipeName":"x","ingredients":["a"],"instructions":["b"],"prepTimeMinutes":0}`, "prepTimeMinutes"},
		{"NegativePrep", `{"recipeName":"x","ingredients":["a"],"instructions":["b"],"prepTimeMinutes":-10}`, "prepTimeMinutes"},
		{"HugePrep", `{"recipeName":"x","ingredients":["a"],"instructions":["b"],"prepTimeMinutes":1e12}`, "prepTimeMinutes"},
		{"WordPrep", `{"recipeName":"x","ingredients":["a"],"instructions":["b"],"prepTimeMinutes":"twenty"}`, "prepTimeMinutes"},
		{"BoolPrep", `{"recipeName":"x","ingredients":["a"],"instructions":["b"],"prepTimeMinutes":true}`, "prepTimeMinutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(testutils.RawResponse(tt.text))

			pe := requireKind(t, err, domain.KindSchemaViolation)
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestValidator_FirstMissingFieldWins(t *testing.T) {
	_, err := NewValidator().Validate(testutils.RawResponse(`{"recipeName":"x"}`))

	pe := requireKind(t, err, domain.KindSchemaViolation)
	assert.Equal(t, "ingredients", pe.Field)
}

func TestValidator_Lenient(t *testing.T) {
	v := NewValidator()

	t.Run("CodeFence_IsStripped", func(t *testing.T) {
		recipe, err := v.Validate(testutils.RawResponse("```json\n" + validPayload + "\n```"))

		require.NoError(t, err)
		assert.Equal(t, "Fried Rice", recipe.RecipeName)
	})

	t.Run("NumericStringPrep_IsAccepted", func(t *testing.T) {
		recipe, err := v.Validate(testutils.RawResponse(
			`{"recipeName":"x","ingredients":["a"],"instructions":["b"],"prepTimeMinutes":" 45 "}`))

		require.NoError(t, err)
		assert.Equal(t, 45, recipe.PrepTimeMinutes)
	})

	t.Run("FractionalPrep_IsRounded", func(t *testing.T) {
		recipe, err := v.Validate(testutils.RawResponse(
			`{"recipeName":"x","ingredients":["a"],"instructions":["b"],"prepTimeMinutes":12.6}`))

		require.NoError(t, err)
		assert.Equal(t, 13, recipe.PrepTimeMinutes)
	})

	t.Run("MultiDayPrep_IsAccepted", func(t *testing.T) {
		recipe, err := v.Validate(testutils.RawResponse(
			`{"recipeName":"Pastrami","ingredients":["beef brisket"],"instructions":["Cure for two weeks"],"prepTimeMinutes":20160}`))

		require.NoError(t, err)
		assert.Equal(t, 20160, recipe.PrepTimeMinutes)
	})

	t.Run("ScalarEntries_AreText", func(t *testing.T) {
		recipe, err := v.Validate(testutils.RawResponse(
			`{"recipeName":"x","ingredients":[2,"eggs"],"instructions":[true],"prepTimeMinutes":5}`))

		require.NoError(t, err)
		assert.Equal(t, []string{"2", "eggs"}, recipe.Ingredients)
		assert.Equal(t, []string{"true"}, recipe.Instructions)
	})

	t.Run("NonStringDescription_IsIgnored", func(t *testing.T) {
		recipe, err := v.Validate(testutils.RawResponse(
			`{"recipeName":"x","description":42,"ingredients":["a"],"instructions":["b"],"prepTimeMinutes":5}`))

		require.NoError(t, err)
		assert.Empty(t, recipe.Description)
	})

	t.Run("WhitespaceIsTrimmed", func(t *testing.T) {
		recipe, err := v.Validate(testutils.RawResponse(
			`{"recipeName":"  Soup ","ingredients":[" water "],"instructions":["boil\n"],"prepTimeMinutes":5}`))

		require.NoError(t, err)
		assert.Equal(t, "Soup", recipe.RecipeName)
		assert.Equal(t, []string{"water"}, recipe.Ingredients)
		assert.Equal(t, []string{"boil"}, recipe.Instructions)
	})
}

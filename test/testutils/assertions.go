// Package testutils provides custom assertion helpers
package testutils

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
	apperrors "github.com/alchemorsel/recipeforge/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RecipeAssertions provides recipe-specific assertion methods
type RecipeAssertions struct {
	t *testing.T
}

// NewRecipeAssertions creates a new recipe assertions helper
func NewRecipeAssertions(t *testing.T) *RecipeAssertions {
	return &RecipeAssertions{t: t}
}

// ValidRecipe asserts that every required field is populated
func (ra *RecipeAssertions) ValidRecipe(r domain.Recipe, msgAndArgs ...interface{}) {
	assert.NotEmpty(ra.t, strings.TrimSpace(r.RecipeName), msgAndArgs...)
	assert.NotEmpty(ra.t, r.Ingredients, msgAndArgs...)
	assert.NotEmpty(ra.t, r.Instructions, msgAndArgs...)
	assert.Greater(ra.t, r.PrepTimeMinutes, 0, msgAndArgs...)
	for _, item := range append(append([]string{}, r.Ingredients...), r.Instructions...) {
		assert.NotEmpty(ra.t, strings.TrimSpace(item), "list entries must not be blank")
	}
}

// StateAssertions provides request state assertion methods
type StateAssertions struct {
	t *testing.T
}

// NewStateAssertions creates a new state assertions helper
func NewStateAssertions(t *testing.T) *StateAssertions {
	return &StateAssertions{t: t}
}

// Success asserts a success state and returns its recipe
func (sa *StateAssertions) Success(s domain.RequestState) domain.Recipe {
	require.Equal(sa.t, domain.StatusSuccess, s.Status, "state error: %+v", s.Error)
	require.NotNil(sa.t, s.Recipe)
	assert.Nil(sa.t, s.Error)
	return *s.Recipe
}

// Failure asserts a failure state of the given kind and returns its detail
func (sa *StateAssertions) Failure(s domain.RequestState, kind domain.ErrorKind) domain.ErrorDetail {
	require.Equal(sa.t, domain.StatusFailure, s.Status)
	require.NotNil(sa.t, s.Error)
	assert.Nil(sa.t, s.Recipe)
	assert.Equal(sa.t, kind, s.Error.Kind)
	assert.NotEmpty(sa.t, s.Error.Message)
	return *s.Error
}

// HTTPAssertions provides HTTP-specific assertion methods
type HTTPAssertions struct {
	t *testing.T
}

// NewHTTPAssertions creates a new HTTP assertions helper
func NewHTTPAssertions(t *testing.T) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// StatusCode asserts the HTTP status code
func (ha *HTTPAssertions) StatusCode(resp *http.Response, expectedCode int, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")
	assert.Equal(ha.t, expectedCode, resp.StatusCode, msgAndArgs...)
}

// JSONResponse asserts that the response is valid JSON and unmarshals it
func (ha *HTTPAssertions) JSONResponse(resp *http.Response, target interface{}) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	contentType := resp.Header.Get("Content-Type")
	assert.True(ha.t, strings.Contains(contentType, "application/json"),
		"Response should have JSON content type, got: %s", contentType)

	require.NoError(ha.t, json.NewDecoder(resp.Body).Decode(target), "Response should be valid JSON")
}

// ErrorCode asserts the standard error envelope with the given code
func (ha *HTTPAssertions) ErrorCode(resp *http.Response, code apperrors.ErrorCode) apperrors.ErrorDetails {
	var body apperrors.ErrorResponse
	ha.JSONResponse(resp, &body)
	assert.Equal(ha.t, code, body.Error.Code)
	assert.NotEmpty(ha.t, body.Error.Timestamp)
	return body.Error
}

// SecurityHeaders asserts that security headers are present
func (ha *HTTPAssertions) SecurityHeaders(resp *http.Response) {
	require.NotNil(ha.t, resp, "Response should not be nil")

	for _, header := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		assert.NotEmpty(ha.t, resp.Header.Get(header), "Security header %s should be present", header)
	}
}

package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
	apperrors "github.com/alchemorsel/recipeforge/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// newValidator registers the diet and fat enum tags and reports fields
// by their JSON names
func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterValidation("diet", validateDiet)
	validate.RegisterValidation("fat", validateFat)

	return validate
}

func validateDiet(fl validator.FieldLevel) bool {
	value := domain.DietaryType(strings.ToLower(strings.TrimSpace(fl.Field().String())))
	return value.Valid()
}

func validateFat(fl validator.FieldLevel) bool {
	value := domain.FatType(strings.ToLower(strings.TrimSpace(fl.Field().String())))
	return value.Valid()
}

// toAppError formats validator errors for API responses
func toAppError(err error) *apperrors.AppError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewValidationError(err.Error())
	}

	out := make([]apperrors.ValidationError, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()

		var message string
		switch e.Tag() {
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		case "diet":
			message = fmt.Sprintf("%s must be %q or %q", field, domain.DietVegetarian, domain.DietNonVegetarian)
		case "fat":
			message = fmt.Sprintf("%s must be %q or %q", field, domain.FatOil, domain.FatButter)
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}

		out = append(out, apperrors.ValidationError{
			Field:   field,
			Value:   e.Value(),
			Tag:     e.Tag(),
			Message: message,
		})
	}
	return apperrors.NewValidationErrors(out)
}

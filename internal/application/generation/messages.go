package generation

import (
	"errors"
	"fmt"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
)

// DescribeError converts a pipeline failure into the detail shown to users.
// Messages never contain provider internals beyond the extracted message.
func DescribeError(err error) domain.ErrorDetail {
	var pe *domain.PipelineError
	if !errors.As(err, &pe) {
		if domain.KindOf(err) == domain.KindCanceled {
			return domain.ErrorDetail{Kind: domain.KindCanceled, Message: "The recipe generation was cancelled."}
		}
		return domain.ErrorDetail{
			Kind:    domain.KindInternal,
			Message: "Something went wrong while generating your recipe. Please try again.",
		}
	}

	detail := domain.ErrorDetail{
		Kind:       pe.Kind,
		Field:      pe.Field,
		StatusCode: pe.StatusCode,
		Attempts:   pe.Attempts,
	}

	switch pe.Kind {
	case domain.KindNetwork:
		detail.Message = "Could not reach the recipe service. Check your connection and try again."
	case domain.KindHTTPClient:
		detail.Message = fmt.Sprintf("The recipe request was rejected by the service: %s", pe.Message)
	case domain.KindHTTPOther:
		detail.Message = fmt.Sprintf("The recipe service returned an error (HTTP %d): %s", pe.StatusCode, pe.Message)
	case domain.KindRetryExhausted:
		detail.Message = fmt.Sprintf("The recipe service is unavailable after %d attempts. Please try again later.", pe.Attempts)
		var last *domain.PipelineError
		if errors.As(pe.Err, &last) {
			detail.StatusCode = last.StatusCode
		}
	case domain.KindMalformedResponse:
		detail.Message = "The recipe service returned an unexpected response. Please try again."
	case domain.KindInvalidJSON:
		detail.Message = "The generated recipe could not be read. Please try again."
	case domain.KindSchemaViolation:
		detail.Message = fmt.Sprintf("The generated recipe has a missing or invalid field %q. Please try again.", pe.Field)
	case domain.KindCanceled:
		detail.Message = "The recipe generation was cancelled."
	default:
		detail.Message = "Something went wrong while generating your recipe. Please try again."
	}
	return detail
}

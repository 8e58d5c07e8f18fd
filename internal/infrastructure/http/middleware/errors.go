package middleware

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/alchemorsel/recipeforge/pkg/errors"
)

// WriteError renders err as the standard JSON error envelope
func WriteError(w http.ResponseWriter, err *apperrors.AppError, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode())
	_ = json.NewEncoder(w).Encode(apperrors.ToErrorResponse(err, requestID))
}

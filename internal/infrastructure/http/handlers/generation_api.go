// Package handlers provides HTTP handlers for the recipe generation API
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
	"github.com/alchemorsel/recipeforge/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipeforge/internal/ports/inbound"
	apperrors "github.com/alchemorsel/recipeforge/pkg/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxRequestBodyBytes = 64 << 10

// APIResponse represents the standard success envelope
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// GenerateRecipeRequest is the body of POST /api/v1/recipes/generate
type GenerateRecipeRequest struct {
	Ingredients    string `json:"ingredients" validate:"max=2000"`
	DietaryType    string `json:"dietaryType" validate:"omitempty,diet"`
	Fat            string `json:"fat" validate:"omitempty,fat"`
	Allergies      string `json:"allergies" validate:"max=1000"`
	SpecialRequest string `json:"specialRequest" validate:"max=1000"`
}

// Constraints converts the request into domain constraints
func (r GenerateRecipeRequest) Constraints() domain.Constraints {
	return domain.Constraints{
		Ingredients:    r.Ingredients,
		DietaryType:    domain.DietaryType(r.DietaryType),
		Fat:            domain.FatType(r.Fat),
		Allergies:      r.Allergies,
		SpecialRequest: r.SpecialRequest,
	}.Normalized()
}

// GenerationAccepted is returned with 202 when a generation starts in the background
type GenerationAccepted struct {
	GenerationID string        `json:"generationId"`
	Status       domain.Status `json:"status"`
	StateURL     string        `json:"stateUrl"`
	StreamURL    string        `json:"streamUrl"`
}

// GenerationAPIHandlers handles recipe generation requests
type GenerationAPIHandlers struct {
	service  inbound.GenerationService
	validate *validator.Validate
	logger   *zap.Logger
	version  string
}

// NewGenerationAPIHandlers creates the generation handlers
func NewGenerationAPIHandlers(service inbound.GenerationService, logger *zap.Logger, version string) *GenerationAPIHandlers {
	return &GenerationAPIHandlers{
		service:  service,
		validate: newValidator(),
		logger:   logger,
		version:  version,
	}
}

// Generate handles POST /api/v1/recipes/generate.
// With ?wait=true it blocks until the generation settles and returns the final state.
func (h *GenerationAPIHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())

	wait := false
	if raw := r.URL.Query().Get("wait"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			middleware.WriteError(w, apperrors.NewBadRequestError("wait must be a boolean"), requestID)
			return
		}
		wait = parsed
	}

	var req GenerateRecipeRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, apperrors.NewBadRequestError("Invalid JSON payload").WithCause(err), requestID)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		middleware.WriteError(w, toAppError(err), requestID)
		return
	}

	constraints := req.Constraints()
	h.logger.Info("Recipe generation request",
		zap.String("request_id", requestID),
		zap.String("dietary_type", string(constraints.DietaryType)),
		zap.String("fat", string(constraints.Fat)),
		zap.Bool("wait", wait),
	)

	if wait {
		state, err := h.service.Submit(r.Context(), constraints)
		if err != nil {
			h.writeServiceError(w, err, requestID)
			return
		}
		h.writeJSON(w, http.StatusOK, APIResponse{
			Success: state.Status == domain.StatusSuccess,
			Data:    state,
		})
		return
	}

	id, err := h.service.Start(r.Context(), constraints)
	if err != nil {
		h.writeServiceError(w, err, requestID)
		return
	}

	w.Header().Set("Location", "/api/v1/recipes/state")
	h.writeJSON(w, http.StatusAccepted, APIResponse{
		Success: true,
		Data: GenerationAccepted{
			GenerationID: id.String(),
			Status:       domain.StatusLoading,
			StateURL:     "/api/v1/recipes/state",
			StreamURL:    "/api/v1/recipes/state/stream",
		},
		Message: "Recipe generation started",
	})
}

// State handles GET /api/v1/recipes/state
func (h *GenerationAPIHandlers) State(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    h.service.State(),
	})
}

// HealthCheck handles GET /health
func (h *GenerationAPIHandlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	state := h.service.State()
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":     "healthy",
			"timestamp":  time.Now().Unix(),
			"version":    h.version,
			"generation": state.Status,
		},
		Message: "Service is healthy",
	})
}

func (h *GenerationAPIHandlers) writeServiceError(w http.ResponseWriter, err error, requestID string) {
	if errors.Is(err, domain.ErrGenerationInProgress) {
		current := h.service.State()
		middleware.WriteError(w, apperrors.NewGenerationInProgressError(current.GenerationID.String()), requestID)
		return
	}

	if errors.Is(err, domain.ErrShuttingDown) {
		err = apperrors.NewServiceUnavailableError("The service is shutting down").WithCause(err)
	}

	appErr := apperrors.Wrap(err, "Failed to generate recipe")
	level := zap.WarnLevel
	if apperrors.Is(appErr, apperrors.CodeInternal) {
		level = zap.ErrorLevel
	}
	h.logger.Log(level, "Recipe generation could not start",
		zap.String("request_id", requestID),
		zap.String("code", string(apperrors.GetCode(appErr))),
		zap.Error(err),
	)
	middleware.WriteError(w, appErr, requestID)
}

// writeJSON writes a JSON response
func (h *GenerationAPIHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

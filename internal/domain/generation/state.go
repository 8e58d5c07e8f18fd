package generation

import (
	"time"

	"github.com/google/uuid"
)

// Status is the tag of a RequestState
type Status string

// Request states
const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ErrorDetail is the user-facing description of a failed generation
type ErrorDetail struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Field      string    `json:"field,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	Attempts   int       `json:"attempts,omitempty"`
}

// RequestState is the observable state of a generation controller.
// Recipe is set only for StatusSuccess and Error only for StatusFailure.
type RequestState struct {
	Status       Status       `json:"status"`
	GenerationID uuid.UUID    `json:"generationId"`
	Recipe       *Recipe      `json:"recipe,omitempty"`
	Error        *ErrorDetail `json:"error,omitempty"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// IdleState is the initial state of every controller
func IdleState(at time.Time) RequestState {
	return RequestState{Status: StatusIdle, UpdatedAt: at}
}

// LoadingState marks generation id as in flight
func LoadingState(id uuid.UUID, at time.Time) RequestState {
	return RequestState{Status: StatusLoading, GenerationID: id, UpdatedAt: at}
}

// SuccessState carries the validated recipe of generation id
func SuccessState(id uuid.UUID, recipe Recipe, at time.Time) RequestState {
	r := recipe.Clone()
	return RequestState{Status: StatusSuccess, GenerationID: id, Recipe: &r, UpdatedAt: at}
}

// FailureState carries the error detail of generation id
func FailureState(id uuid.UUID, detail ErrorDetail, at time.Time) RequestState {
	d := detail
	return RequestState{Status: StatusFailure, GenerationID: id, Error: &d, UpdatedAt: at}
}

// IsLoading reports whether a generation is in flight
func (s RequestState) IsLoading() bool {
	return s.Status == StatusLoading
}

// Clone returns a copy that shares no memory with s
func (s RequestState) Clone() RequestState {
	out := s
	if s.Recipe != nil {
		r := s.Recipe.Clone()
		out.Recipe = &r
	}
	if s.Error != nil {
		d := *s.Error
		out.Error = &d
	}
	return out
}

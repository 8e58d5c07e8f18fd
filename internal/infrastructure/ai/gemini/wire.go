package gemini

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
)

// maxErrorMessageBytes bounds diagnostic text taken from raw error bodies
const maxErrorMessageBytes = 512

type generateContentRequest struct {
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   *domain.Schema `json:"responseSchema,omitempty"`
	Temperature      float64        `json:"temperature"`
}

type errorEnvelope struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func newGenerateContentRequest(req domain.GenerationRequest) generateContentRequest {
	cfg := req.Config()
	body := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: req.PromptText()}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: cfg.ResponseMIMEType,
			ResponseSchema:   req.Schema(),
			Temperature:      cfg.Temperature,
		},
	}
	if sys := req.SystemInstruction(); sys != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: sys}}}
	}
	return body
}

// ExtractErrorMessage picks the most useful diagnostic from an error body:
// the provider's error.message, then the trimmed raw body, then the status.
func ExtractErrorMessage(status int, body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		if msg := strings.TrimSpace(env.Error.Message); msg != "" {
			return msg
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return truncate(text, maxErrorMessageBytes)
	}
	return fmt.Sprintf("HTTP status %d", status)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

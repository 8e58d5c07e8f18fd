package generation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
)

// maxPrepMinutes is the largest prepTimeMinutes representable on every platform
const maxPrepMinutes = math.MaxInt32

// providerEnvelope is the part of the provider reply the validator reads
type providerEnvelope struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Validator converts a raw provider reply into a Recipe. Validation is all
// or nothing: a partially valid payload never yields a recipe.
type Validator struct{}

// NewValidator creates a response validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate extracts the generated text, parses it and checks the required
// fields in order. Failures are *domain.PipelineError values of kind
// KindMalformedResponse, KindInvalidJSON or KindSchemaViolation.
func (v *Validator) Validate(raw *domain.RawResponse) (domain.Recipe, error) {
	text, err := extractText(raw)
	if err != nil {
		return domain.Recipe{}, err
	}

	payload, err := decodeJSON(text)
	if err != nil {
		return domain.Recipe{}, domain.NewInvalidJSON(err)
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return domain.Recipe{}, domain.NewSchemaViolation(requiredFields[0], "generated JSON is not an object")
	}

	name, err := requiredString(obj, "recipeName")
	if err != nil {
		return domain.Recipe{}, err
	}
	ingredients, err := requiredList(obj, "ingredients")
	if err != nil {
		return domain.Recipe{}, err
	}
	instructions, err := requiredList(obj, "instructions")
	if err != nil {
		return domain.Recipe{}, err
	}
	prep, err := requiredMinutes(obj, "prepTimeMinutes")
	if err != nil {
		return domain.Recipe{}, err
	}

	description, _ := obj["description"].(string)

	return domain.Recipe{
		RecipeName:      name,
		Description:     strings.TrimSpace(description),
		Ingredients:     ingredients,
		Instructions:    instructions,
		PrepTimeMinutes: prep,
	}, nil
}

// extractText returns candidates[0].content.parts[0].text
func extractText(raw *domain.RawResponse) (string, error) {
	if raw == nil || len(bytes.TrimSpace(raw.Body)) == 0 {
		return "", domain.NewMalformedResponse("empty response body", nil)
	}

	var env providerEnvelope
	if err := json.Unmarshal(raw.Body, &env); err != nil {
		return "", domain.NewMalformedResponse("response body is not a provider envelope", err)
	}
	if len(env.Candidates) == 0 {
		return "", domain.NewMalformedResponse("response has no candidates", nil)
	}
	parts := env.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", domain.NewMalformedResponse("first candidate has no content parts", nil)
	}
	if parts[0].Text == nil || strings.TrimSpace(*parts[0].Text) == "" {
		return "", domain.NewMalformedResponse("first content part has no text", nil)
	}
	return *parts[0].Text, nil
}

// decodeJSON parses exactly one JSON value, tolerating a surrounding
// markdown code fence
func decodeJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(stripCodeFence(text)))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return payload, nil
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// drop the language tag line, e.g. ```json
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(s)
}

func requiredString(obj map[string]any, field string) (string, error) {
	value, ok := obj[field]
	if !ok || value == nil {
		return "", domain.NewSchemaViolation(field, "missing")
	}
	s, ok := value.(string)
	if !ok {
		return "", domain.NewSchemaViolation(field, "must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", domain.NewSchemaViolation(field, "must not be empty")
	}
	return s, nil
}

func requiredList(obj map[string]any, field string) ([]string, error) {
	value, ok := obj[field]
	if !ok || value == nil {
		return nil, domain.NewSchemaViolation(field, "missing")
	}
	items, ok := value.([]any)
	if !ok {
		return nil, domain.NewSchemaViolation(field, "must be an array")
	}
	if len(items) == 0 {
		return nil, domain.NewSchemaViolation(field, "must not be empty")
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		var s string
		switch t := item.(type) {
		case string:
			s = strings.TrimSpace(t)
		case json.Number:
			s = t.String()
		case bool:
			s = strconv.FormatBool(t)
		default:
			return nil, domain.NewSchemaViolation(field, fmt.Sprintf("entry %d must be text", i))
		}
		if s == "" {
			return nil, domain.NewSchemaViolation(field, fmt.Sprintf("entry %d is empty", i))
		}
		out = append(out, s)
	}
	return out, nil
}

func requiredMinutes(obj map[string]any, field string) (int, error) {
	value, ok := obj[field]
	if !ok || value == nil {
		return 0, domain.NewSchemaViolation(field, "missing")
	}

	var f float64
	var err error
	switch t := value.(type) {
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, domain.NewSchemaViolation(field, "must be a number")
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, domain.NewSchemaViolation(field, "must be a number")
	}

	minutes := math.Round(f)
	if minutes <= 0 {
		return 0, domain.NewSchemaViolation(field, "must be positive")
	}
	if minutes > maxPrepMinutes {
		return 0, domain.NewSchemaViolation(field, "is out of range")
	}
	return int(minutes), nil
}

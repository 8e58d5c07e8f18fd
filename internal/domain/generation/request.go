package generation

// Schema types understood by the provider's structured output mode
const (
	SchemaObject  = "OBJECT"
	SchemaArray   = "ARRAY"
	SchemaString  = "STRING"
	SchemaInteger = "INTEGER"
)

// Schema describes the structure the provider must conform its output to
type Schema struct {
	Type             string             `json:"type"`
	Description      string             `json:"description,omitempty"`
	Properties       map[string]*Schema `json:"properties,omitempty"`
	Items            *Schema            `json:"items,omitempty"`
	Required         []string           `json:"required,omitempty"`
	PropertyOrdering []string           `json:"propertyOrdering,omitempty"`
}

// Clone returns a deep copy of the schema tree
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{
		Type:             s.Type,
		Description:      s.Description,
		Items:            s.Items.Clone(),
		Required:         append([]string(nil), s.Required...),
		PropertyOrdering: append([]string(nil), s.PropertyOrdering...),
	}
	if s.Properties != nil {
		out.Properties = make(map[string]*Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = prop.Clone()
		}
	}
	return out
}

// GenerationConfig holds sampling and output settings sent with a request
type GenerationConfig struct {
	Temperature      float64
	ResponseMIMEType string
}

// GenerationRequest is a fully built, immutable provider request
type GenerationRequest struct {
	promptText        string
	schema            *Schema
	config            GenerationConfig
	systemInstruction string
}

// NewGenerationRequest assembles a request. The schema is copied so later
// changes by the caller do not leak into the request.
func NewGenerationRequest(prompt string, schema *Schema, cfg GenerationConfig, systemInstruction string) GenerationRequest {
	return GenerationRequest{
		promptText:        prompt,
		schema:            schema.Clone(),
		config:            cfg,
		systemInstruction: systemInstruction,
	}
}

// PromptText returns the user prompt
func (r GenerationRequest) PromptText() string { return r.promptText }

// Schema returns a copy of the response schema descriptor
func (r GenerationRequest) Schema() *Schema { return r.schema.Clone() }

// Config returns the generation config
func (r GenerationRequest) Config() GenerationConfig { return r.config }

// SystemInstruction returns the fixed persona string
func (r GenerationRequest) SystemInstruction() string { return r.systemInstruction }

// RawResponse is the unparsed provider reply of a successful HTTP exchange
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// Package llm abstracts the LLM backends used by the template authoring
// service. Consumers ask for schema-validated structured output and stay
// independent of the concrete provider SDK.
package llm

import (
	"context"
	"encoding/json"
)

// Provider is the core abstraction for LLM interaction.
type Provider interface {
	// Generate sends a prompt to the LLM and returns a structured
	// response. When the request carries a Schema the returned Content
	// is JSON validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured
	// to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System sets the LLM's role and constraints.
	System string

	// Messages is the conversation. Template authoring is single-turn,
	// so this normally holds one user message.
	Messages []Message

	// Schema is the JSON Schema the response must conform to. When set,
	// the provider uses its native structured output mechanism.
	Schema *Schema

	// MaxTokens is the response token budget.
	MaxTokens int

	// Temperature controls randomness, 0.0-1.0.
	Temperature float64
}

// Message is a single conversation message.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies the schema (tool name for Anthropic, schema name
	// for OpenAI). Kebab-case, e.g. "question-template".
	Name string

	// Description guides generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Content is the generated output; validated JSON when the request
	// carried a Schema.
	Content json.RawMessage

	// Usage reports token consumption.
	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage tracks token consumption for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

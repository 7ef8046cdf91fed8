// Package authoring turns coverage gaps into template-generation requests
// against an LLM provider and parses the authored payload into a
// template. The LLM proposes; the quality pipeline still decides.
package authoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/llm"
	"github.com/lernzeit/templatebank/internal/template"
)

// Config controls authoring requests.
type Config struct {
	// MaxTokens is the token budget for the LLM response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxExclusions bounds the existing-prompt list sent for dedup.
	MaxExclusions int
}

// DefaultConfig returns recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:     1024,
		Temperature:   0.7,
		MaxExclusions: 12,
	}
}

// Request describes the cell a new template is needed for.
type Request struct {
	Grade       int
	Quarter     curriculum.Quarter
	Domain      curriculum.Domain
	Subcategory string
	Type        template.QuestionType
	Difficulty  template.Difficulty

	// Rule carries the cell's curriculum constraints into the prompt.
	Rule *curriculum.Rule

	// Existing lists prompts already in the cell, for dedup guidance.
	Existing []string
}

// Service issues template authoring requests.
type Service struct {
	provider llm.Provider
	config   Config
}

// New creates a Service over the given provider.
func New(provider llm.Provider, cfg Config) *Service {
	return &Service{provider: provider, config: cfg}
}

// templateOutput is the raw LLM payload before conversion.
type templateOutput struct {
	Prompt       string                       `json:"prompt"`
	Solution     string                       `json:"solution"`
	Distractors  []string                     `json:"distractors"`
	Items        []string                     `json:"items"`
	Explanation  string                       `json:"explanation"`
	QuestionType string                       `json:"question_type"`
	Subcategory  string                       `json:"subcategory"`
	Difficulty   string                       `json:"difficulty"`
	Parameters   map[string]template.ParamDef `json:"parameters"`
}

// Author requests one new template for the given cell.
func (s *Service) Author(ctx context.Context, req Request) (*template.Template, error) {
	llmReq := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(req, s.config)},
		},
		Schema:      TemplateSchema,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	}

	resp, err := s.provider.Generate(ctx, llmReq)
	if err != nil {
		return nil, fmt.Errorf("template authoring failed: %w", err)
	}

	var raw templateOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("parse authoring response: %w", err)
	}

	tpl := &template.Template{
		ID:          uuid.New().String(),
		Prompt:      raw.Prompt,
		Solution:    raw.Solution,
		Distractors: raw.Distractors,
		Items:       raw.Items,
		Explanation: raw.Explanation,
		Type:        template.QuestionType(raw.QuestionType),
		Domain:      req.Domain,
		Subcategory: pickSubcategory(raw.Subcategory, req.Subcategory),
		Grade:       req.Grade,
		Quarter:     req.Quarter,
		Difficulty:  template.Difficulty(raw.Difficulty),
		Params:      raw.Parameters,
		CreatedAt:   time.Now(),
	}

	if err := checkAuthored(tpl); err != nil {
		return nil, fmt.Errorf("authored template rejected: %w", err)
	}

	return tpl, nil
}

func pickSubcategory(authored, requested string) string {
	if requested != "" {
		return requested
	}
	return authored
}

// checkAuthored verifies the payload is internally consistent before it
// reaches the quality pipeline: every placeholder declared, every
// declared parameter used somewhere.
func checkAuthored(tpl *template.Template) error {
	if !template.ValidType(tpl.Type) {
		return fmt.Errorf("unsupported question type %q", tpl.Type)
	}
	if tpl.Prompt == "" {
		return fmt.Errorf("empty prompt")
	}

	for name := range tpl.Params {
		placeholder := "{" + name + "}"
		if !containsAny(placeholder, tpl.Prompt, tpl.Solution) && !containsAnySlice(placeholder, tpl.Distractors) && !containsAnySlice(placeholder, tpl.Items) {
			return fmt.Errorf("parameter %q is declared but never referenced", name)
		}
	}

	rendered := tpl.Prompt
	for name := range tpl.Params {
		rendered = template.Render(rendered, template.ParamSet{name: template.WordValue("x")})
	}
	if template.HasPlaceholder(rendered) {
		return fmt.Errorf("prompt references an undeclared placeholder")
	}

	return nil
}

func containsAny(needle string, haystacks ...string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}

func containsAnySlice(needle string, haystacks []string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}

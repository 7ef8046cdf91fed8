package template

import (
	"time"

	"github.com/lernzeit/templatebank/internal/curriculum"
)

// QuestionType tags how a question is answered.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeOrdering       QuestionType = "ordering"
	TypeMatching       QuestionType = "matching"
	TypeFreeText       QuestionType = "free_text"
)

// SupportedTypes returns all question types the pipeline accepts.
func SupportedTypes() []QuestionType {
	return []QuestionType{TypeMultipleChoice, TypeOrdering, TypeMatching, TypeFreeText}
}

// ValidType reports whether t is a supported question type.
func ValidType(t QuestionType) bool {
	for _, s := range SupportedTypes() {
		if t == s {
			return true
		}
	}
	return false
}

// Difficulty labels a template's intended difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParamKind is the value kind of a parameter slot.
type ParamKind string

const (
	KindNumber ParamKind = "number"
	KindWord   ParamKind = "word"
)

// Strategy selects how a parameter value is drawn.
type Strategy string

const (
	// StrategyRange draws a uniform integer within the curriculum range,
	// further clamped by the parameter's own Min/Max.
	StrategyRange Strategy = "range"

	// StrategyName draws from an age-banded first-name pool.
	StrategyName Strategy = "name"

	// StrategyObject draws from a domain-appropriate object-word pool.
	StrategyObject Strategy = "object"

	// StrategyPool draws from the parameter's own fixed value pool.
	StrategyPool Strategy = "pool"
)

// ParamDef declares one named parameter slot of a template.
type ParamDef struct {
	Kind     ParamKind `json:"kind"`
	Strategy Strategy  `json:"strategy"`

	// Min and Max bound numeric draws; zero values mean "no bound beyond
	// the curriculum rule".
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`

	// Pool holds the values for StrategyPool.
	Pool []string `json:"pool,omitempty"`
}

// Template is an immutable authored question skeleton. The prompt,
// solution and distractors may contain {name} placeholders resolved at
// instantiation time.
type Template struct {
	ID          string
	Prompt      string
	Solution    string
	Distractors []string

	// Items holds the values to sort for ordering questions and the
	// "left=right" pairs for matching questions.
	Items []string

	Explanation string

	Type        QuestionType
	Domain      curriculum.Domain
	Subcategory string
	Grade       int
	Quarter     curriculum.Quarter
	Difficulty  Difficulty

	Params map[string]ParamDef

	CreatedAt time.Time
}

// Status marks an instance's lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Instance is one concrete rendering of a template with generated
// parameters, scored and either accepted into the corpus or discarded.
type Instance struct {
	ID         string
	TemplateID string

	Prompt      string
	Solution    string
	Distractors []string
	Items       []string
	Explanation string

	Type        QuestionType
	Domain      curriculum.Domain
	Subcategory string
	Grade       int
	Quarter     curriculum.Quarter
	Difficulty  Difficulty

	Params ParamSet

	Status      Status
	UsageCount  int
	SuccessRate float64
	AvgRating   float64

	CreatedAt time.Time
}

// Package quality combines structural, curriculum, type-specific,
// difficulty and mathematical checks into one accept/reject score for a
// rendered question instance.
package quality

import (
	"fmt"
	"strings"

	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/mathcheck"
	"github.com/lernzeit/templatebank/internal/template"
)

// AcceptThreshold is the fixed minimum score for acceptance.
const AcceptThreshold = 0.7

// Result is the outcome of running the full check chain. Produced fresh
// per instantiation and never mutated.
type Result struct {
	IsValid     bool
	Score       float64
	Errors      []string
	Warnings    []string
	Suggestions []string
}

// CheckResult is the contribution of a single check. Errors force
// rejection; warnings and suggestions only reduce the score.
type CheckResult struct {
	Errors      []string
	Warnings    []string
	Suggestions []string
	Deduction   int
}

// Check is one named quality check. Implementations are stateless and
// safe for concurrent use.
type Check interface {
	Name() string
	Run(inst *template.Instance, rule *curriculum.Rule) CheckResult
}

// Pipeline runs a fixed check chain and folds the results into a score.
type Pipeline struct {
	checks []Check
}

// New returns a Pipeline with the standard check chain.
func New() *Pipeline {
	return &Pipeline{
		checks: []Check{
			&structuralCheck{},
			&curriculumCheck{},
			&typeCheck{},
			&difficultyCheck{},
			&mathCheck{},
			&contentCheck{},
		},
	}
}

// Validate scores inst against the check chain. rule may be nil when no
// curriculum rule exists; that downgrades curriculum compliance to a
// warning surfaced to operators.
func (p *Pipeline) Validate(inst *template.Instance, rule *curriculum.Rule) Result {
	points := 100
	var res Result

	for _, c := range p.checks {
		cr := c.Run(inst, rule)
		res.Errors = append(res.Errors, cr.Errors...)
		res.Warnings = append(res.Warnings, cr.Warnings...)
		res.Suggestions = append(res.Suggestions, cr.Suggestions...)
		points -= cr.Deduction
	}

	if points < 0 {
		points = 0
	}
	res.Score = float64(points) / 100
	res.IsValid = len(res.Errors) == 0 && res.Score >= AcceptThreshold
	return res
}

// structuralCheck verifies required fields and enum values. −30.
type structuralCheck struct{}

func (structuralCheck) Name() string { return "structural" }

func (structuralCheck) Run(inst *template.Instance, _ *curriculum.Rule) CheckResult {
	var errs []string
	if len(strings.TrimSpace(inst.Prompt)) < 10 {
		errs = append(errs, "prompt missing or shorter than 10 characters")
	}
	if strings.TrimSpace(inst.Solution) == "" {
		errs = append(errs, "solution is empty")
	}
	if inst.Grade < 1 || inst.Grade > 10 {
		errs = append(errs, fmt.Sprintf("grade %d outside [1, 10]", inst.Grade))
	}
	if !curriculum.ValidQuarter(inst.Quarter) {
		errs = append(errs, fmt.Sprintf("quarter %q is not one of Q1..Q4", inst.Quarter))
	}
	if inst.Domain == "" {
		errs = append(errs, "domain is empty")
	}
	if !template.ValidType(inst.Type) {
		errs = append(errs, fmt.Sprintf("unsupported question type %q", inst.Type))
	}

	cr := CheckResult{Errors: errs}
	if len(errs) > 0 {
		cr.Deduction = 30
	}
	return cr
}

// curriculumCheck re-extracts numeric literals from the rendered prompt
// and verifies each against the grade's range. Post-hoc safety net behind
// the generator. −20.
type curriculumCheck struct{}

func (curriculumCheck) Name() string { return "curriculum" }

func (curriculumCheck) Run(inst *template.Instance, rule *curriculum.Rule) CheckResult {
	if rule == nil {
		return CheckResult{Warnings: []string{
			fmt.Sprintf("no curriculum rule for grade %d %s %s; compliance not verified", inst.Grade, inst.Quarter, inst.Domain),
		}}
	}

	var errs []string
	for _, v := range mathcheck.ExtractNumbers(inst.Prompt) {
		n := int(v)
		if float64(n) != v {
			// Decimal literals (prices, measures) are not bound by the
			// integer number range.
			continue
		}
		if !rule.InRange(n) {
			errs = append(errs, fmt.Sprintf("number %d outside curriculum range [%d, %d]", n, rule.MinNumber, rule.MaxNumber))
		}
	}

	cr := CheckResult{Errors: errs}
	if len(errs) > 0 {
		cr.Deduction = 20
	}
	return cr
}

// RequiredDistractors is the configured distractor count for multiple
// choice questions.
const RequiredDistractors = 3

// typeCheck enforces the per-type shape constraints. −25.
type typeCheck struct{}

func (typeCheck) Name() string { return "type-shape" }

func (typeCheck) Run(inst *template.Instance, _ *curriculum.Rule) CheckResult {
	var errs []string

	switch inst.Type {
	case template.TypeMultipleChoice:
		if len(inst.Distractors) != RequiredDistractors {
			errs = append(errs, fmt.Sprintf("multiple choice needs exactly %d distractors, got %d", RequiredDistractors, len(inst.Distractors)))
		}
		seen := map[string]bool{strings.ToLower(strings.TrimSpace(inst.Solution)): true}
		for _, d := range inst.Distractors {
			key := strings.ToLower(strings.TrimSpace(d))
			if seen[key] {
				errs = append(errs, fmt.Sprintf("distractor %q duplicates the solution or another distractor", d))
				continue
			}
			seen[key] = true
		}

	case template.TypeOrdering:
		if len(inst.Items) < 3 {
			errs = append(errs, fmt.Sprintf("ordering needs at least 3 items to sort, got %d", len(inst.Items)))
		}
		if a, b, dup := duplicateAfterNormalization(inst.Items); dup {
			errs = append(errs, fmt.Sprintf("items %q and %q are equal after unit normalization", a, b))
		}

	case template.TypeMatching:
		pairs := 0
		for _, item := range inst.Items {
			if strings.Count(item, "=") == 1 {
				pairs++
			} else {
				errs = append(errs, fmt.Sprintf("matching item %q is not a left=right pair", item))
			}
		}
		if pairs < 2 {
			errs = append(errs, fmt.Sprintf("matching needs at least 2 pairs, got %d", pairs))
		}

	case template.TypeFreeText:
		if strings.TrimSpace(inst.Solution) == "" {
			errs = append(errs, "free text question has no solution")
		}
	}

	cr := CheckResult{Errors: errs}
	if len(errs) > 0 {
		cr.Deduction = 25
	}
	return cr
}

// difficultyCheck warns when word count does not track the declared
// difficulty tier. Non-fatal. −10.
type difficultyCheck struct{}

func (difficultyCheck) Name() string { return "difficulty" }

func (difficultyCheck) Run(inst *template.Instance, _ *curriculum.Rule) CheckResult {
	words := len(strings.Fields(inst.Prompt))

	var warn string
	switch inst.Difficulty {
	case template.DifficultyEasy:
		if words > 30 {
			warn = fmt.Sprintf("%d words is long for an easy question", words)
		}
	case template.DifficultyHard:
		if words < 8 {
			warn = fmt.Sprintf("%d words is short for a hard question", words)
		}
	}

	if warn == "" {
		return CheckResult{}
	}
	return CheckResult{Warnings: []string{warn}, Deduction: 10}
}

// mathCheck delegates to the mathematical validator; every issue it
// raises is a hard error. −35.
type mathCheck struct{}

func (mathCheck) Name() string { return "math" }

func (mathCheck) Run(inst *template.Instance, _ *curriculum.Rule) CheckResult {
	issues := mathcheck.Check(inst.Prompt, inst.Solution)
	if len(issues) == 0 {
		return CheckResult{}
	}

	errs := make([]string, len(issues))
	for i, issue := range issues {
		errs[i] = fmt.Sprintf("%s: %s", issue.Code, issue.Message)
	}
	return CheckResult{Errors: errs, Deduction: 35}
}

// contentCheck flags residual placeholders, thin explanations and missing
// terminal punctuation. Non-fatal, small deductions.
type contentCheck struct{}

func (contentCheck) Name() string { return "content" }

func (contentCheck) Run(inst *template.Instance, _ *curriculum.Rule) CheckResult {
	var cr CheckResult

	if template.HasPlaceholder(inst.Prompt) || template.HasPlaceholder(inst.Solution) {
		cr.Warnings = append(cr.Warnings, "unresolved placeholder remains in the rendered text")
		cr.Deduction += 10
	}

	if len(strings.TrimSpace(inst.Explanation)) < 20 {
		cr.Warnings = append(cr.Warnings, "explanation is missing or very short")
		cr.Deduction += 10
	}

	trimmed := strings.TrimSpace(inst.Prompt)
	if trimmed != "" && !strings.ContainsAny(trimmed[len(trimmed)-1:], "?.!") {
		cr.Suggestions = append(cr.Suggestions, "prompt should end with terminal punctuation")
		cr.Deduction += 5
	}

	return cr
}

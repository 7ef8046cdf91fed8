// Package pipeline chains parameter generation, rendering, quality
// validation, duplicate detection and persistence into one instantiation
// flow from template to served question.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/dedup"
	"github.com/lernzeit/templatebank/internal/generator"
	"github.com/lernzeit/templatebank/internal/quality"
	"github.com/lernzeit/templatebank/internal/store"
	"github.com/lernzeit/templatebank/internal/template"
)

// Question is the served form of an accepted instance.
type Question struct {
	InstanceID  string
	Prompt      string
	Solution    string
	Distractors []string
	Items       []string
	Explanation string
	Type        template.QuestionType
}

// RejectionError reports a quality rejection. The full result is carried
// so callers can surface the errors to operators or feed them back into
// authoring exclusions.
type RejectionError struct {
	Result quality.Result
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("quality rejection (score %.2f): %s", e.Result.Score, strings.Join(e.Result.Errors, "; "))
}

// DuplicateError reports that the rendered instance duplicates the
// corpus. Exact matches are an unconditional reject.
type DuplicateError struct {
	Result dedup.Result
}

func (e *DuplicateError) Error() string {
	return "duplicate instance: " + dedup.Describe(e.Result)
}

// Pipeline instantiates templates into validated, deduplicated, persisted
// questions.
type Pipeline struct {
	gen       *generator.Generator
	rules     *curriculum.Cache
	quality   *quality.Pipeline
	instances store.InstanceRepo
	sessions  store.SessionRepo
	logger    *slog.Logger
}

// New wires a Pipeline. logger may be nil for the default logger.
func New(gen *generator.Generator, rules *curriculum.Cache, instances store.InstanceRepo, sessions store.SessionRepo, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		gen:       gen,
		rules:     rules,
		quality:   quality.New(),
		instances: instances,
		sessions:  sessions,
		logger:    logger,
	}
}

// Instantiate produces one question from tpl for the given session. It
// draws parameters the session has not seen, renders the template,
// validates and deduplicates the result, persists the accepted instance
// and records the combination as used.
//
// Failure modes are typed: *generator.ExhaustionError when the constraint
// space is spent, *RejectionError on quality failure, *DuplicateError on
// a corpus duplicate. All are recoverable by falling back to another
// template.
func (p *Pipeline) Instantiate(ctx context.Context, tpl *template.Template, session store.SessionKey) (*Question, error) {
	used, err := p.sessions.Combinations(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("load used combinations: %w", err)
	}

	gen, err := p.gen.Generate(ctx, tpl, used)
	if err != nil {
		return nil, err
	}

	inst := p.render(tpl, gen.Params)

	rule, err := p.rules.Rule(ctx, tpl.Grade, tpl.Quarter, tpl.Domain)
	if err != nil && !errors.Is(err, curriculum.ErrRuleNotFound) {
		return nil, fmt.Errorf("load curriculum rule: %w", err)
	}

	qres := p.quality.Validate(inst, rule)
	if !qres.IsValid {
		p.logger.Warn("instance rejected by quality checks",
			"template_id", tpl.ID,
			"score", qres.Score,
			"errors", qres.Errors)
		return nil, &RejectionError{Result: qres}
	}

	corpus, err := p.instances.Corpus(ctx, store.CorpusScope{
		Grade:       tpl.Grade,
		Domain:      tpl.Domain,
		Subcategory: tpl.Subcategory,
	})
	if err != nil {
		return nil, fmt.Errorf("load dedup corpus: %w", err)
	}

	dres := dedup.Check(inst, corpus)
	if dres.IsDuplicate {
		p.logger.Warn("instance rejected as duplicate",
			"template_id", tpl.ID,
			"detail", dedup.Describe(dres))
		return nil, &DuplicateError{Result: dres}
	}

	if err := p.instances.Save(ctx, inst); err != nil {
		return nil, fmt.Errorf("save instance: %w", err)
	}
	if err := p.sessions.AddCombination(ctx, session, gen.Key); err != nil {
		return nil, fmt.Errorf("record combination: %w", err)
	}

	p.logger.Info("instance accepted",
		"instance_id", inst.ID,
		"template_id", tpl.ID,
		"score", qres.Score,
		"combination", gen.Key)

	return &Question{
		InstanceID:  inst.ID,
		Prompt:      inst.Prompt,
		Solution:    inst.Solution,
		Distractors: inst.Distractors,
		Items:       inst.Items,
		Explanation: inst.Explanation,
		Type:        inst.Type,
	}, nil
}

// render resolves every placeholder of tpl with params and builds the
// instance carrying the template's classification.
func (p *Pipeline) render(tpl *template.Template, params template.ParamSet) *template.Instance {
	return &template.Instance{
		ID:          uuid.NewString(),
		TemplateID:  tpl.ID,
		Prompt:      template.Render(tpl.Prompt, params),
		Solution:    template.Render(tpl.Solution, params),
		Distractors: template.RenderAll(tpl.Distractors, params),
		Items:       template.RenderAll(tpl.Items, params),
		Explanation: template.Render(tpl.Explanation, params),
		Type:        tpl.Type,
		Domain:      tpl.Domain,
		Subcategory: tpl.Subcategory,
		Grade:       tpl.Grade,
		Quarter:     tpl.Quarter,
		Difficulty:  tpl.Difficulty,
		Params:      params,
		Status:      template.StatusActive,
		CreatedAt:   time.Now(),
	}
}

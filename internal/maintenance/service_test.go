package maintenance

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/lernzeit/templatebank/internal/authoring"
	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/llm"
	"github.com/lernzeit/templatebank/internal/store"
	"github.com/lernzeit/templatebank/internal/template"
)

type fakeTemplates struct {
	saved []*template.Template
}

func (f *fakeTemplates) Save(_ context.Context, tpl *template.Template) error {
	f.saved = append(f.saved, tpl)
	return nil
}

func (f *fakeTemplates) Get(_ context.Context, id string) (*template.Template, error) {
	return nil, store.ErrNotFound
}

func (f *fakeTemplates) ByCell(_ context.Context, grade int, quarter curriculum.Quarter, domain curriculum.Domain) ([]*template.Template, error) {
	return nil, nil
}

type fakeInstances struct {
	withUsage []*template.Instance
	cells     []store.CellCount
	archived  []string
}

func (f *fakeInstances) Save(_ context.Context, _ *template.Instance) error { return nil }

func (f *fakeInstances) Get(_ context.Context, id string) (*template.Instance, error) {
	return nil, store.ErrNotFound
}

func (f *fakeInstances) Corpus(_ context.Context, _ store.CorpusScope) ([]*template.Instance, error) {
	return nil, nil
}

func (f *fakeInstances) ActiveCells(_ context.Context) ([]store.CellCount, error) {
	return f.cells, nil
}

func (f *fakeInstances) WithUsage(_ context.Context) ([]*template.Instance, error) {
	return f.withUsage, nil
}

func (f *fakeInstances) Archive(_ context.Context, id string) error {
	f.archived = append(f.archived, id)
	return nil
}

func (f *fakeInstances) RecordUsage(_ context.Context, _ string, _ bool, _ float64) error {
	return nil
}

type fakeRuleSource struct {
	rules []curriculum.Rule
}

func (f *fakeRuleSource) RulesFor(_ context.Context, grade int, quarter curriculum.Quarter) ([]curriculum.Rule, error) {
	var out []curriculum.Rule
	for _, r := range f.rules {
		if r.Grade == grade && r.Quarter == quarter {
			out = append(out, r)
		}
	}
	return out, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func usedInstance(id string, uses int, successes int, rating float64) *template.Instance {
	inst := &template.Instance{
		ID:         id,
		UsageCount: uses,
		Status:     template.StatusActive,
	}
	if uses > 0 {
		inst.SuccessRate = float64(successes) / float64(uses)
	}
	inst.AvgRating = rating
	return inst
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Grades = []int{2}
	cfg.AuthorInterval = time.Microsecond
	return cfg
}

func TestRun_PrunesUnderperformers(t *testing.T) {
	instances := &fakeInstances{
		withUsage: []*template.Instance{
			usedInstance("low-success", 20, 2, 3.5),   // 10% success
			usedInstance("low-rating", 15, 12, 1.5),   // rating under floor
			usedInstance("healthy", 30, 25, 4.2),      // fine
			usedInstance("too-few-uses", 5, 0, 1.0),   // below usage floor
			usedInstance("unrated-good", 12, 10, 0.0), // no ratings yet
		},
	}
	rules := curriculum.NewCache(&fakeRuleSource{}, time.Minute)
	svc := New(&fakeTemplates{}, instances, rules, nil, testConfig(), quietLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(report.Pruned) != 2 {
		t.Fatalf("expected 2 pruned, got %v", report.Pruned)
	}
	pruned := map[string]bool{}
	for _, id := range report.Pruned {
		pruned[id] = true
	}
	if !pruned["low-success"] || !pruned["low-rating"] {
		t.Fatalf("wrong instances pruned: %v", report.Pruned)
	}
}

func freeTextPayload() json.RawMessage {
	return json.RawMessage(`{
		"prompt": "Wie viel ist {a} + {b}?",
		"solution": "{a} + {b}",
		"distractors": [],
		"items": [],
		"explanation": "Addiere die beiden Zahlen Schritt für Schritt.",
		"question_type": "free_text",
		"subcategory": "Addition",
		"difficulty": "easy",
		"parameters": {
			"a": {"kind": "number", "strategy": "range"},
			"b": {"kind": "number", "strategy": "range"}
		}
	}`)
}

func TestRun_TopUpAuthorsForSparseCells(t *testing.T) {
	rule := curriculum.Rule{
		Grade: 2, Quarter: curriculum.Q1, Domain: curriculum.DomainArithmetic,
		MinNumber: 1, MaxNumber: 20, Operations: []string{curriculum.OpAdd},
	}
	rules := curriculum.NewCache(&fakeRuleSource{rules: []curriculum.Rule{rule}}, time.Minute)

	mock := llm.NewMockProvider()
	for i := 0; i < 6; i++ {
		mock.AddResponse(llm.MockResponse{Content: freeTextPayload()})
	}
	author := authoring.New(mock, authoring.DefaultConfig())

	templates := &fakeTemplates{}
	instances := &fakeInstances{
		cells: []store.CellCount{
			// Arithmetic cell already full; the others are empty.
			{Domain: curriculum.DomainArithmetic, Grade: 2, Count: 60, Templates: 30},
		},
	}

	cfg := testConfig()
	cfg.MaxAuthorPerCell = 2
	svc := New(templates, instances, rules, author, cfg, quietLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Only the arithmetic cell has a rule; it is full, so nothing should
	// be authored for it. The other domains have no rule and are skipped.
	if report.Authored != 0 {
		t.Fatalf("expected no authoring, got %d", report.Authored)
	}

	// Empty the arithmetic cell and run again: now it gets topped up.
	instances.cells = nil
	report, err = svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Authored != 2 {
		t.Fatalf("expected 2 authored templates, got %d", report.Authored)
	}
	if len(templates.saved) != 2 {
		t.Fatalf("authored templates not saved: %d", len(templates.saved))
	}
}

func TestRun_TopUpAuthorsDeepestGapFirst(t *testing.T) {
	arithmetic := curriculum.Rule{
		Grade: 2, Quarter: curriculum.Q1, Domain: curriculum.DomainArithmetic,
		MinNumber: 1, MaxNumber: 20, Operations: []string{curriculum.OpAdd},
	}
	geometry := arithmetic
	geometry.Domain = curriculum.DomainGeometry
	rules := curriculum.NewCache(&fakeRuleSource{rules: []curriculum.Rule{arithmetic, geometry}}, time.Minute)

	// One response only: it must serve the emptiest cell.
	mock := llm.NewMockProvider(llm.MockResponse{Content: freeTextPayload()})
	author := authoring.New(mock, authoring.DefaultConfig())

	templates := &fakeTemplates{}
	instances := &fakeInstances{
		cells: []store.CellCount{
			// Arithmetic is 10 below target, geometry is empty.
			{Domain: curriculum.DomainArithmetic, Grade: 2, Count: 50, Templates: 25},
		},
	}

	cfg := testConfig()
	cfg.MaxAuthorPerCell = 1
	cfg.Workers = 1
	svc := New(templates, instances, rules, author, cfg, quietLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Authored != 1 {
		t.Fatalf("expected 1 authored template, got %d", report.Authored)
	}
	if len(templates.saved) != 1 || templates.saved[0].Domain != curriculum.DomainGeometry {
		t.Fatalf("the single response must go to the empty geometry cell, got %+v", templates.saved)
	}
}

func TestRun_AuthoringFailureDoesNotSinkRun(t *testing.T) {
	rule := curriculum.Rule{
		Grade: 2, Quarter: curriculum.Q1, Domain: curriculum.DomainArithmetic,
		MinNumber: 1, MaxNumber: 20, Operations: []string{curriculum.OpAdd},
	}
	rules := curriculum.NewCache(&fakeRuleSource{rules: []curriculum.Rule{rule}}, time.Minute)

	// Empty mock queue: every authoring request fails.
	author := authoring.New(llm.NewMockProvider(), authoring.DefaultConfig())

	cfg := testConfig()
	cfg.MaxAuthorPerCell = 2
	svc := New(&fakeTemplates{}, &fakeInstances{}, rules, author, cfg, quietLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run should survive authoring failures: %v", err)
	}
	if report.Authored != 0 {
		t.Fatalf("expected 0 authored, got %d", report.Authored)
	}
}

func TestHealth_EmptyBank(t *testing.T) {
	rules := curriculum.NewCache(&fakeRuleSource{}, time.Minute)
	svc := New(&fakeTemplates{}, &fakeInstances{}, rules, nil, testConfig(), quietLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	h := report.Health
	if h.Coverage != 0 || h.Diversity != 0 || h.Balance != 0 {
		t.Fatalf("empty bank components should be 0: %+v", h)
	}
	// No usage data yet: quality alone contributes.
	if h.Quality != 1 {
		t.Fatalf("quality without usage data should be 1, got %.2f", h.Quality)
	}
	if math.Abs(h.Score-30) > 1e-9 {
		t.Fatalf("expected score 30 (0.3 quality weight), got %.1f", h.Score)
	}
}

func TestHealth_FullUniformBank(t *testing.T) {
	var cells []store.CellCount
	for _, d := range curriculum.AllDomains() {
		cells = append(cells, store.CellCount{Domain: d, Grade: 2, Count: 60, Templates: 60})
	}
	instances := &fakeInstances{cells: cells}

	rules := curriculum.NewCache(&fakeRuleSource{}, time.Minute)
	svc := New(&fakeTemplates{}, instances, rules, nil, testConfig(), quietLogger())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	h := report.Health
	if h.Coverage != 1 || h.Quality != 1 || h.Diversity != 1 || h.Balance != 1 {
		t.Fatalf("full uniform bank should max every component: %+v", h)
	}
	if math.Abs(h.Score-100) > 1e-9 {
		t.Fatalf("expected score 100, got %.1f", h.Score)
	}
}

func TestSortCells(t *testing.T) {
	cells := []CellReport{
		{Domain: curriculum.DomainGeometry, Grade: 3},
		{Domain: curriculum.DomainArithmetic, Grade: 3},
		{Domain: curriculum.DomainGeometry, Grade: 1},
	}
	SortCells(cells)
	if cells[0].Grade != 1 {
		t.Fatalf("grade ordering broken: %+v", cells)
	}
	if cells[1].Domain != curriculum.DomainArithmetic {
		t.Fatalf("domain ordering broken: %+v", cells)
	}
}

// Package maintenance keeps the template bank healthy: it prunes
// underperforming instances, tops up under-covered curriculum cells with
// newly authored templates and reports an aggregate health score.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lernzeit/templatebank/internal/authoring"
	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/store"
	"github.com/lernzeit/templatebank/internal/template"
)

// Config controls a maintenance run.
type Config struct {
	// TargetPerCell is the desired active-instance count per
	// (domain, grade) cell.
	TargetPerCell int

	// Grades is the grade range covered by maintenance.
	Grades []int

	// MinUsageForPrune is the usage count below which an instance is
	// never pruned, whatever its stats say.
	MinUsageForPrune int

	// MinSuccessRate and MinRating are the prune floors for instances
	// past MinUsageForPrune.
	MinSuccessRate float64
	MinRating      float64

	// MaxAuthorPerCell bounds how many templates one run authors for a
	// single under-covered cell.
	MaxAuthorPerCell int

	// AuthorInterval is the minimum spacing between authoring requests.
	AuthorInterval time.Duration

	// Workers bounds concurrent cell processing.
	Workers int
}

// DefaultConfig returns recommended defaults.
func DefaultConfig() Config {
	return Config{
		TargetPerCell:    60,
		Grades:           []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		MinUsageForPrune: 10,
		MinSuccessRate:   0.3,
		MinRating:        2.0,
		MaxAuthorPerCell: 3,
		AuthorInterval:   2 * time.Second,
		Workers:          4,
	}
}

// CellReport summarizes one (domain, grade) cell after a run.
type CellReport struct {
	Domain   curriculum.Domain
	Grade    int
	Active   int
	Target   int
	Authored int
}

// Health is the aggregate bank health, each component in [0, 1] and the
// total scaled to [0, 100].
type Health struct {
	Score     float64
	Coverage  float64
	Quality   float64
	Diversity float64
	Balance   float64
}

// Report is the outcome of one maintenance run.
type Report struct {
	Pruned   []string
	Authored int
	Cells    []CellReport
	Health   Health
}

// Service runs maintenance over the template bank.
type Service struct {
	templates store.TemplateRepo
	instances store.InstanceRepo
	rules     *curriculum.Cache
	author    *authoring.Service
	config    Config
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New wires a Service. author may be nil to disable top-up authoring;
// logger may be nil for the default logger.
func New(templates store.TemplateRepo, instances store.InstanceRepo, rules *curriculum.Cache, author *authoring.Service, cfg Config, logger *slog.Logger) *Service {
	def := DefaultConfig()
	if cfg.TargetPerCell <= 0 {
		cfg.TargetPerCell = def.TargetPerCell
	}
	if len(cfg.Grades) == 0 {
		cfg.Grades = def.Grades
	}
	if cfg.MinUsageForPrune <= 0 {
		cfg.MinUsageForPrune = def.MinUsageForPrune
	}
	if cfg.MinSuccessRate <= 0 {
		cfg.MinSuccessRate = def.MinSuccessRate
	}
	if cfg.MinRating <= 0 {
		cfg.MinRating = def.MinRating
	}
	if cfg.MaxAuthorPerCell <= 0 {
		cfg.MaxAuthorPerCell = def.MaxAuthorPerCell
	}
	if cfg.AuthorInterval <= 0 {
		cfg.AuthorInterval = def.AuthorInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		templates: templates,
		instances: instances,
		rules:     rules,
		author:    author,
		config:    cfg,
		limiter:   rate.NewLimiter(rate.Every(cfg.AuthorInterval), 1),
		logger:    logger,
	}
}

// Run executes a full maintenance pass: prune, top up, score.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	pruned, err := s.prune(ctx)
	if err != nil {
		return nil, fmt.Errorf("prune pass: %w", err)
	}
	report.Pruned = pruned

	cells, err := s.instances.ActiveCells(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cell counts: %w", err)
	}

	report.Cells, err = s.topUp(ctx, cells)
	if err != nil {
		return nil, fmt.Errorf("top-up pass: %w", err)
	}
	for _, c := range report.Cells {
		report.Authored += c.Authored
	}

	report.Health, err = s.health(ctx, cells)
	if err != nil {
		return nil, fmt.Errorf("health score: %w", err)
	}

	s.logger.Info("maintenance run complete",
		"pruned", len(report.Pruned),
		"authored", report.Authored,
		"health", report.Health.Score)
	return report, nil
}

// prune archives active instances whose usage statistics fall below the
// configured floors. Instances with too little usage are left alone.
func (s *Service) prune(ctx context.Context) ([]string, error) {
	used, err := s.instances.WithUsage(ctx)
	if err != nil {
		return nil, err
	}

	var pruned []string
	for _, inst := range used {
		if inst.UsageCount < s.config.MinUsageForPrune {
			continue
		}
		lowSuccess := inst.SuccessRate < s.config.MinSuccessRate
		lowRating := inst.AvgRating > 0 && inst.AvgRating < s.config.MinRating
		if !lowSuccess && !lowRating {
			continue
		}

		if err := s.instances.Archive(ctx, inst.ID); err != nil {
			return nil, fmt.Errorf("archive %s: %w", inst.ID, err)
		}
		s.logger.Info("pruned underperforming instance",
			"instance_id", inst.ID,
			"usage", inst.UsageCount,
			"success_rate", inst.SuccessRate,
			"avg_rating", inst.AvgRating)
		pruned = append(pruned, inst.ID)
	}
	return pruned, nil
}

type cellKey struct {
	domain curriculum.Domain
	grade  int
}

// topUp authors new templates for cells below the per-cell target. Cells
// are processed concurrently; authoring requests share one rate limiter.
func (s *Service) topUp(ctx context.Context, counts []store.CellCount) ([]CellReport, error) {
	byCell := make(map[cellKey]int, len(counts))
	for _, c := range counts {
		byCell[cellKey{domain: c.Domain, grade: c.Grade}] = c.Count
	}

	var reports []CellReport
	for _, grade := range s.config.Grades {
		for _, domain := range curriculum.AllDomains() {
			reports = append(reports, CellReport{
				Domain: domain,
				Grade:  grade,
				Active: byCell[cellKey{domain: domain, grade: grade}],
				Target: s.config.TargetPerCell,
			})
		}
	}

	if s.author == nil {
		return reports, nil
	}

	var deficient []*CellReport
	for i := range reports {
		if reports[i].Active < reports[i].Target {
			deficient = append(deficient, &reports[i])
		}
	}
	// Deepest coverage gaps first: the shared rate limiter serves requests
	// in submission order, so the emptiest cells get topped up before a
	// run is cut short.
	sort.SliceStable(deficient, func(i, j int) bool {
		return deficient[i].Target-deficient[i].Active > deficient[j].Target-deficient[j].Active
	})

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for _, cell := range deficient {
		g.Go(func() error {
			n, err := s.authorForCell(ctx, cell.Domain, cell.Grade)
			if err != nil {
				return err
			}
			cell.Authored = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// authorForCell requests up to MaxAuthorPerCell new templates for one
// cell. Cells without a curriculum rule in any quarter are skipped; a
// rule is required to constrain the authored numbers.
func (s *Service) authorForCell(ctx context.Context, domain curriculum.Domain, grade int) (int, error) {
	quarter, rule, err := s.findRule(ctx, grade, domain)
	if err != nil {
		if errors.Is(err, curriculum.ErrRuleNotFound) {
			s.logger.Debug("skipping cell without curriculum rule",
				"domain", domain, "grade", grade)
			return 0, nil
		}
		return 0, err
	}

	existing, err := s.existingPrompts(ctx, grade, quarter, domain)
	if err != nil {
		return 0, err
	}

	authored := 0
	for i := 0; i < s.config.MaxAuthorPerCell; i++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return authored, err
		}

		tpl, err := s.author.Author(ctx, authoring.Request{
			Grade:      grade,
			Quarter:    quarter,
			Domain:     domain,
			Type:       template.TypeMultipleChoice,
			Difficulty: template.DifficultyMedium,
			Rule:       rule,
			Existing:   existing,
		})
		if err != nil {
			// One bad authoring response should not sink the run.
			s.logger.Warn("authoring request failed",
				"domain", domain, "grade", grade, "error", err)
			continue
		}

		if err := s.templates.Save(ctx, tpl); err != nil {
			return authored, fmt.Errorf("save authored template: %w", err)
		}
		existing = append(existing, tpl.Prompt)
		authored++
	}
	return authored, nil
}

// findRule locates the first quarter with a rule for (grade, domain).
func (s *Service) findRule(ctx context.Context, grade int, domain curriculum.Domain) (curriculum.Quarter, *curriculum.Rule, error) {
	for _, q := range curriculum.AllQuarters() {
		rule, err := s.rules.Rule(ctx, grade, q, domain)
		if err == nil {
			return q, rule, nil
		}
		if !errors.Is(err, curriculum.ErrRuleNotFound) {
			return "", nil, err
		}
	}
	return "", nil, curriculum.ErrRuleNotFound
}

func (s *Service) existingPrompts(ctx context.Context, grade int, quarter curriculum.Quarter, domain curriculum.Domain) ([]string, error) {
	tpls, err := s.templates.ByCell(ctx, grade, quarter, domain)
	if err != nil {
		return nil, err
	}
	prompts := make([]string, 0, len(tpls))
	for _, t := range tpls {
		prompts = append(prompts, t.Prompt)
	}
	return prompts, nil
}

// health computes the weighted bank health: 40% coverage, 30% quality,
// 20% diversity, 10% balance, scaled to [0, 100].
func (s *Service) health(ctx context.Context, counts []store.CellCount) (Health, error) {
	h := Health{
		Coverage:  s.coverage(counts),
		Diversity: diversity(counts),
		Balance:   balance(counts),
	}

	quality, err := s.quality(ctx)
	if err != nil {
		return Health{}, err
	}
	h.Quality = quality

	h.Score = 100 * (0.4*h.Coverage + 0.3*h.Quality + 0.2*h.Diversity + 0.1*h.Balance)
	return h, nil
}

// coverage is the mean cell fill ratio over the full grade x domain grid,
// each cell capped at 1.
func (s *Service) coverage(counts []store.CellCount) float64 {
	byCell := make(map[cellKey]int, len(counts))
	for _, c := range counts {
		byCell[cellKey{domain: c.Domain, grade: c.Grade}] = c.Count
	}

	total := 0.0
	cells := 0
	for _, grade := range s.config.Grades {
		for _, domain := range curriculum.AllDomains() {
			fill := float64(byCell[cellKey{domain: domain, grade: grade}]) / float64(s.config.TargetPerCell)
			total += math.Min(fill, 1)
			cells++
		}
	}
	if cells == 0 {
		return 0
	}
	return total / float64(cells)
}

// quality is the mean success rate of instances with recorded usage. With
// no usage data yet there is nothing signalling problems, so it scores 1.
func (s *Service) quality(ctx context.Context) (float64, error) {
	used, err := s.instances.WithUsage(ctx)
	if err != nil {
		return 0, err
	}
	if len(used) == 0 {
		return 1, nil
	}

	total := 0.0
	for _, inst := range used {
		total += inst.SuccessRate
	}
	return total / float64(len(used)), nil
}

// diversity is the ratio of distinct templates to active instances: a bank
// where every instance comes from a different template scores 1.
func diversity(counts []store.CellCount) float64 {
	instances, templates := 0, 0
	for _, c := range counts {
		instances += c.Count
		templates += c.Templates
	}
	if instances == 0 {
		return 0
	}
	return float64(templates) / float64(instances)
}

// balance penalizes uneven fill across populated cells via the
// coefficient of variation, clamped to [0, 1].
func balance(counts []store.CellCount) float64 {
	if len(counts) == 0 {
		return 0
	}

	values := make([]float64, len(counts))
	mean := 0.0
	for i, c := range counts {
		values[i] = float64(c.Count)
		mean += values[i]
	}
	mean /= float64(len(values))
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	cv := math.Sqrt(variance) / mean
	return math.Max(0, 1-cv)
}

// SortCells orders cell reports for stable display: by grade, then domain.
func SortCells(cells []CellReport) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Grade != cells[j].Grade {
			return cells[i].Grade < cells[j].Grade
		}
		return cells[i].Domain < cells[j].Domain
	})
}

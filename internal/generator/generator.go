// Package generator produces concrete parameter sets for question
// templates under curriculum constraints. Draws are independent uniform
// random; a bounded retry loop rejects non-compliant or already-used
// combinations.
package generator

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/template"
)

// Config controls the generation retry loop.
type Config struct {
	// MaxAttempts bounds the retry loop. Exhausting it is a normal
	// outcome for templates whose constraint space is too small for the
	// requested grade.
	MaxAttempts int
}

// DefaultConfig returns the recommended defaults.
func DefaultConfig() Config {
	return Config{MaxAttempts: 500}
}

// Result is a successful generation: the drawn parameters and their
// combination key, already absent from the caller's used set.
type Result struct {
	Params template.ParamSet
	Key    string
}

// ExhaustionError reports that the attempt budget ran out before a
// compliant, unused combination was found. Recoverable: callers fall
// back to a different template or a non-parametrized question.
type ExhaustionError struct {
	Attempts   int
	LastErrors []string
}

func (e *ExhaustionError) Error() string {
	if len(e.LastErrors) > 0 {
		return fmt.Sprintf("parameter generation exhausted after %d attempts (last: %s)", e.Attempts, e.LastErrors[0])
	}
	return fmt.Sprintf("parameter generation exhausted after %d attempts", e.Attempts)
}

// Generator draws parameter sets for templates.
type Generator struct {
	rules  *curriculum.Cache
	config Config
	rng    *rand.Rand
}

// New creates a Generator over the given rule cache. A nil rng uses a
// fresh time-seeded source; tests pass a fixed-seed source.
func New(rules *curriculum.Cache, cfg Config, rng *rand.Rand) *Generator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rules: rules, config: cfg, rng: rng}
}

// Generate produces a compliant parameter set for tpl that is not already
// present in used. On success the combination key is inserted into used.
//
// Fails fast with curriculum.ErrRuleNotFound when the template's
// (grade, quarter, domain) cell has no rule. Returns *ExhaustionError
// when the attempt budget runs out.
func (g *Generator) Generate(ctx context.Context, tpl *template.Template, used map[string]bool) (*Result, error) {
	rule, err := g.rules.Rule(ctx, tpl.Grade, tpl.Quarter, tpl.Domain)
	if err != nil {
		return nil, err
	}

	var lastErrs []string
	for i := 0; i < g.config.MaxAttempts; i++ {
		params, errs := attempt(tpl, rule, g.rng)
		if len(errs) > 0 {
			lastErrs = errs
			continue
		}

		key := params.CombinationKey()
		if used[key] {
			lastErrs = []string{fmt.Sprintf("combination %q already used", key)}
			continue
		}

		used[key] = true
		return &Result{Params: params, Key: key}, nil
	}

	return nil, &ExhaustionError{Attempts: g.config.MaxAttempts, LastErrors: lastErrs}
}

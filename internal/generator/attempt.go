package generator

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/template"
)

// attempt draws one candidate parameter set for tpl under rule and checks
// joint curriculum compliance. It is a pure function of the random source,
// so tests can drive it with a fixed seed.
//
// Returns the drawn set and a list of compliance errors; an empty list
// means the draw is curriculum-compliant.
func attempt(tpl *template.Template, rule *curriculum.Rule, rng *rand.Rand) (template.ParamSet, []string) {
	params := make(template.ParamSet, len(tpl.Params))

	// Deterministic draw order keeps fixed-seed tests stable.
	names := make([]string, 0, len(tpl.Params))
	for name := range tpl.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := tpl.Params[name]
		switch def.Strategy {
		case template.StrategyRange:
			params[name] = template.NumberValue(drawNumber(def, rule, rng))
		case template.StrategyName:
			params[name] = template.WordValue(drawFrom(namePool(tpl.Grade), rng))
		case template.StrategyObject:
			params[name] = template.WordValue(drawFrom(objectPool(tpl.Domain), rng))
		case template.StrategyPool:
			if len(def.Pool) == 0 {
				return params, []string{fmt.Sprintf("parameter %q: empty value pool", name)}
			}
			w := drawFrom(def.Pool, rng)
			if def.Kind == template.KindNumber {
				n, ok := poolNumber(w)
				if !ok {
					return params, []string{fmt.Sprintf("parameter %q: pool value %q is not numeric", name, w)}
				}
				params[name] = template.NumberValue(n)
			} else {
				params[name] = template.WordValue(w)
			}
		default:
			return params, []string{fmt.Sprintf("parameter %q: unknown strategy %q", name, def.Strategy)}
		}
	}

	return params, checkCompliance(params, rule)
}

// drawNumber draws a uniform integer in [max(rule.min,1), min(rule.max, def.Max)],
// tightened by the parameter's own bounds.
func drawNumber(def template.ParamDef, rule *curriculum.Rule, rng *rand.Rand) int {
	lo := rule.MinNumber
	if lo < 1 {
		lo = 1
	}
	if def.Min > lo {
		lo = def.Min
	}
	hi := rule.MaxNumber
	if def.Max > 0 && def.Max < hi {
		hi = def.Max
	}
	if hi < lo {
		hi = lo
	}
	return lo + rng.IntN(hi-lo+1)
}

func drawFrom(pool []string, rng *rand.Rand) string {
	return pool[rng.IntN(len(pool))]
}

func poolNumber(s string) (int, bool) {
	n := 0
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// checkCompliance verifies the joint curriculum constraints: every numeric
// value within range, and for two-operand templates the sum (and, when the
// rule permits multiplication, the product) must also stay in range.
func checkCompliance(params template.ParamSet, rule *curriculum.Rule) []string {
	var errs []string

	nums := params.Numbers()
	for _, n := range nums {
		if !rule.InRange(n) {
			errs = append(errs, fmt.Sprintf("value %d outside range [%d, %d]", n, rule.MinNumber, rule.MaxNumber))
		}
	}

	if len(nums) == 2 {
		if sum := nums[0] + nums[1]; !rule.InRange(sum) {
			errs = append(errs, fmt.Sprintf("sum %d outside range [%d, %d]", sum, rule.MinNumber, rule.MaxNumber))
		}
		if rule.Allows(curriculum.OpMul) {
			if prod := nums[0] * nums[1]; !rule.InRange(prod) {
				errs = append(errs, fmt.Sprintf("product %d outside range [%d, %d]", prod, rule.MinNumber, rule.MaxNumber))
			}
		}
	}

	return errs
}

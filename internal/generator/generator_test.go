package generator

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/template"
)

type fakeSource struct {
	rules []curriculum.Rule
}

func (f *fakeSource) RulesFor(_ context.Context, grade int, quarter curriculum.Quarter) ([]curriculum.Rule, error) {
	var out []curriculum.Rule
	for _, r := range f.rules {
		if r.Grade == grade && r.Quarter == quarter {
			out = append(out, r)
		}
	}
	return out, nil
}

func newRuleCache(rules ...curriculum.Rule) *curriculum.Cache {
	return curriculum.NewCache(&fakeSource{rules: rules}, time.Minute)
}

func fixedRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func arithmeticRule(min, max int, ops ...string) curriculum.Rule {
	return curriculum.Rule{
		Grade:      2,
		Quarter:    curriculum.Q1,
		Domain:     curriculum.DomainArithmetic,
		MinNumber:  min,
		MaxNumber:  max,
		Operations: ops,
	}
}

func additionTemplate() *template.Template {
	return &template.Template{
		ID:      "tpl-add",
		Prompt:  "Wie viel ist {a} + {b}?",
		Grade:   2,
		Quarter: curriculum.Q1,
		Domain:  curriculum.DomainArithmetic,
		Params: map[string]template.ParamDef{
			"a": {Kind: template.KindNumber, Strategy: template.StrategyRange},
			"b": {Kind: template.KindNumber, Strategy: template.StrategyRange},
		},
	}
}

func TestGenerate_ValuesAndSumInRange(t *testing.T) {
	rules := newRuleCache(arithmeticRule(1, 20, curriculum.OpAdd))
	g := New(rules, DefaultConfig(), fixedRNG())

	used := map[string]bool{}
	for i := 0; i < 50; i++ {
		res, err := g.Generate(context.Background(), additionTemplate(), used)
		if err != nil {
			var exh *ExhaustionError
			if errors.As(err, &exh) {
				// The space shrinks as used fills up; that is fine.
				break
			}
			t.Fatalf("unexpected error: %v", err)
		}

		nums := res.Params.Numbers()
		if len(nums) != 2 {
			t.Fatalf("expected 2 numbers, got %v", nums)
		}
		for _, n := range nums {
			if n < 1 || n > 20 {
				t.Fatalf("value %d outside [1, 20]", n)
			}
		}
		if sum := nums[0] + nums[1]; sum > 20 {
			t.Fatalf("sum %d exceeds the curriculum range", sum)
		}
	}
}

func TestGenerate_SkipsUsedCombinations(t *testing.T) {
	rules := newRuleCache(arithmeticRule(1, 20, curriculum.OpAdd))
	g := New(rules, DefaultConfig(), fixedRNG())

	used := map[string]bool{}
	res, err := g.Generate(context.Background(), additionTemplate(), used)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !used[res.Key] {
		t.Fatalf("key %q should be marked used after success", res.Key)
	}

	res2, err := g.Generate(context.Background(), additionTemplate(), used)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res2.Key == res.Key {
		t.Fatalf("second draw reused combination %q", res.Key)
	}
}

func TestGenerate_ExhaustsTinySpace(t *testing.T) {
	// Width-1 range: a=1, b=1 is the only compliant draw.
	rules := newRuleCache(arithmeticRule(1, 2, curriculum.OpAdd))
	g := New(rules, Config{MaxAttempts: 50}, fixedRNG())

	tpl := additionTemplate()
	used := map[string]bool{"a=1|b=1": true}

	_, err := g.Generate(context.Background(), tpl, used)
	var exh *ExhaustionError
	if !errors.As(err, &exh) {
		t.Fatalf("expected ExhaustionError, got %v", err)
	}
	if exh.Attempts != 50 {
		t.Fatalf("expected 50 attempts, got %d", exh.Attempts)
	}
	if len(exh.LastErrors) == 0 {
		t.Fatal("exhaustion should carry the last rejection reason")
	}
}

func TestGenerate_FailsFastWithoutRule(t *testing.T) {
	rules := newRuleCache() // no rules at all
	g := New(rules, DefaultConfig(), fixedRNG())

	_, err := g.Generate(context.Background(), additionTemplate(), map[string]bool{})
	if !errors.Is(err, curriculum.ErrRuleNotFound) {
		t.Fatalf("expected ErrRuleNotFound, got %v", err)
	}
}

func TestGenerate_ProductCheckedWhenMulAllowed(t *testing.T) {
	rules := newRuleCache(arithmeticRule(2, 10, curriculum.OpAdd, curriculum.OpMul))
	g := New(rules, DefaultConfig(), fixedRNG())

	used := map[string]bool{}
	for i := 0; i < 20; i++ {
		res, err := g.Generate(context.Background(), additionTemplate(), used)
		if err != nil {
			break
		}
		nums := res.Params.Numbers()
		if prod := nums[0] * nums[1]; prod > 10 {
			t.Fatalf("product %d exceeds the range with multiplication allowed", prod)
		}
	}
}

func TestGenerate_WordStrategies(t *testing.T) {
	rules := newRuleCache(arithmeticRule(1, 100, curriculum.OpAdd))
	g := New(rules, DefaultConfig(), fixedRNG())

	tpl := &template.Template{
		ID:      "tpl-word",
		Prompt:  "{name} kauft {n} {thing}.",
		Grade:   2,
		Quarter: curriculum.Q1,
		Domain:  curriculum.DomainArithmetic,
		Params: map[string]template.ParamDef{
			"name":  {Kind: template.KindWord, Strategy: template.StrategyName},
			"thing": {Kind: template.KindWord, Strategy: template.StrategyObject},
			"n":     {Kind: template.KindNumber, Strategy: template.StrategyRange, Max: 10},
		},
	}

	res, err := g.Generate(context.Background(), tpl, map[string]bool{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name := res.Params["name"]
	if name.Kind != template.KindWord || name.Word == "" {
		t.Fatalf("name draw failed: %+v", name)
	}
	if !contains(namePool(2), name.Word) {
		t.Fatalf("name %q not from the grade-2 pool", name.Word)
	}

	thing := res.Params["thing"]
	if !contains(objectPool(curriculum.DomainArithmetic), thing.Word) {
		t.Fatalf("object %q not from the arithmetic pool", thing.Word)
	}

	if n := res.Params["n"].Number; n < 1 || n > 10 {
		t.Fatalf("n=%d violates the tightened bound", n)
	}
}

func TestGenerate_PoolStrategy(t *testing.T) {
	rules := newRuleCache(arithmeticRule(1, 100, curriculum.OpAdd))
	g := New(rules, DefaultConfig(), fixedRNG())

	tpl := &template.Template{
		ID:      "tpl-pool",
		Prompt:  "Zähle in {step}er-Schritten.",
		Grade:   2,
		Quarter: curriculum.Q1,
		Domain:  curriculum.DomainArithmetic,
		Params: map[string]template.ParamDef{
			"step": {Kind: template.KindNumber, Strategy: template.StrategyPool, Pool: []string{"2", "5", "10"}},
		},
	}

	res, err := g.Generate(context.Background(), tpl, map[string]bool{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	step := res.Params["step"].Number
	if step != 2 && step != 5 && step != 10 {
		t.Fatalf("step %d not from the pool", step)
	}
}

func TestGenerate_EmptyPoolExhausts(t *testing.T) {
	rules := newRuleCache(arithmeticRule(1, 100, curriculum.OpAdd))
	g := New(rules, Config{MaxAttempts: 5}, fixedRNG())

	tpl := &template.Template{
		ID:      "tpl-empty-pool",
		Prompt:  "{x}?",
		Grade:   2,
		Quarter: curriculum.Q1,
		Domain:  curriculum.DomainArithmetic,
		Params: map[string]template.ParamDef{
			"x": {Kind: template.KindWord, Strategy: template.StrategyPool},
		},
	}

	_, err := g.Generate(context.Background(), tpl, map[string]bool{})
	var exh *ExhaustionError
	if !errors.As(err, &exh) {
		t.Fatalf("expected ExhaustionError, got %v", err)
	}
}

func TestNameBand(t *testing.T) {
	tests := []struct {
		grade, band int
	}{
		{1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {10, 3},
	}
	for _, tc := range tests {
		if got := nameBand(tc.grade); got != tc.band {
			t.Errorf("nameBand(%d) = %d, want %d", tc.grade, got, tc.band)
		}
	}
}

func contains(pool []string, s string) bool {
	for _, p := range pool {
		if p == s {
			return true
		}
	}
	return false
}

package dedup

import (
	"fmt"
	"testing"

	"github.com/lernzeit/templatebank/internal/template"
)

func priceInstance(id string, a, b int, solution string) *template.Instance {
	return &template.Instance{
		ID:          id,
		TemplateID:  "tpl-price",
		Prompt:      fmt.Sprintf("Lena kauft %d Äpfel zu je %d €. Wie viel bezahlt sie?", a, b),
		Solution:    solution,
		Distractors: []string{"1", "2", "3"},
		Type:        template.TypeMultipleChoice,
		Params: template.ParamSet{
			"a": template.NumberValue(a),
			"b": template.NumberValue(b),
		},
	}
}

func TestCheck_IdenticalIsExact(t *testing.T) {
	cand := priceInstance("cand", 3, 2, "6")
	corpus := []*template.Instance{priceInstance("other", 3, 2, "6")}

	res := Check(cand, corpus)
	if !res.IsDuplicate {
		t.Fatal("identical instance must be flagged as duplicate")
	}
	if len(res.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(res.Matches))
	}
	if res.Matches[0].Type != MatchExact {
		t.Fatalf("expected exact match, got %s (%.2f)", res.Matches[0].Type, res.Matches[0].Similarity)
	}
}

func TestCheck_SwappedNumbersSameBucket(t *testing.T) {
	// Same wording, numbers swapped within one magnitude bucket: the
	// normalized prompts are identical, so this stays at least medium.
	cand := priceInstance("cand", 3, 2, "6")
	corpus := []*template.Instance{priceInstance("other", 2, 3, "6")}

	res := Check(cand, corpus)
	if len(res.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(res.Matches))
	}
	m := res.Matches[0]
	if m.Similarity < ThresholdMedium {
		t.Fatalf("swapped numbers should score at least medium, got %.2f", m.Similarity)
	}
}

func TestCheck_UnrelatedBelowReporting(t *testing.T) {
	cand := priceInstance("cand", 3, 2, "6")
	corpus := []*template.Instance{{
		ID:       "other",
		Prompt:   "Welche geometrische Form hat vier gleich lange Seiten?",
		Solution: "Quadrat",
		Type:     template.TypeFreeText,
	}}

	res := Check(cand, corpus)
	if res.IsDuplicate {
		t.Fatal("unrelated instance must not be a duplicate")
	}
	if len(res.Matches) != 0 {
		t.Fatalf("matches below the low threshold must not be reported, got %+v", res.Matches)
	}
}

func TestCheck_MatchesCappedAtFive(t *testing.T) {
	cand := priceInstance("cand", 3, 2, "6")
	var corpus []*template.Instance
	for i := 0; i < 8; i++ {
		corpus = append(corpus, priceInstance(fmt.Sprintf("other-%d", i), 3, 2, "6"))
	}

	res := Check(cand, corpus)
	if len(res.Matches) != MaxMatches {
		t.Fatalf("expected %d matches, got %d", MaxMatches, len(res.Matches))
	}
}

func TestCheck_MatchesSortedBySimilarity(t *testing.T) {
	cand := priceInstance("cand", 3, 2, "6")
	corpus := []*template.Instance{
		priceInstance("close", 3, 2, "7"), // different solution
		priceInstance("exact", 3, 2, "6"),
	}

	res := Check(cand, corpus)
	if len(res.Matches) < 2 {
		t.Fatalf("expected 2 matches, got %d", len(res.Matches))
	}
	if res.Matches[0].InstanceID != "exact" {
		t.Fatalf("best match should rank first, got %s", res.Matches[0].InstanceID)
	}
	if res.Confidence != res.Matches[0].Similarity {
		t.Fatal("confidence must equal the best similarity")
	}
}

func TestCheck_ReasonsExplainTheMatch(t *testing.T) {
	cand := priceInstance("cand", 3, 2, "6")
	res := Check(cand, []*template.Instance{priceInstance("other", 3, 2, "6")})

	if len(res.Matches[0].Reasons) == 0 {
		t.Fatal("a reported match needs at least one reason")
	}
}

func TestCheck_EmptyCorpus(t *testing.T) {
	res := Check(priceInstance("cand", 3, 2, "6"), nil)
	if res.IsDuplicate || len(res.Matches) != 0 || res.Confidence != 0 {
		t.Fatalf("empty corpus must yield a clean result, got %+v", res)
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(Result{}); got != "no similar instances found" {
		t.Fatalf("unexpected description: %q", got)
	}

	cand := priceInstance("cand", 3, 2, "6")
	res := Check(cand, []*template.Instance{priceInstance("other", 3, 2, "6")})
	if got := Describe(res); got == "" {
		t.Fatal("non-empty result needs a description")
	}
}

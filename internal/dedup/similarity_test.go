package dedup

import (
	"testing"

	"github.com/lernzeit/templatebank/internal/template"
)

func TestNormalizeWords(t *testing.T) {
	got := normalizeWords("Lena kauft 3 Äpfel, zu je 2 €!")
	// Numbers become the num token; words under 3 runes are dropped.
	want := []string{"lena", "kauft", "num", "äpfel", "num"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestJaccard_BothEmptyIsOne(t *testing.T) {
	if jaccard(map[string]bool{}, map[string]bool{}) != 1 {
		t.Fatal("two empty sets are identical")
	}
	if jaccard(map[string]bool{"a": true}, map[string]bool{}) != 0 {
		t.Fatal("empty vs non-empty is 0")
	}
}

func TestPhraseOverlap_FlatScore(t *testing.T) {
	a := normalizeWords("Lena kauft drei rote Äpfel im Laden")
	b := normalizeWords("Heute kauft drei rote Äpfel der Junge")
	if got := phraseOverlap(a, b); got != phraseOverlapScore {
		t.Fatalf("shared 3-word window should score %.1f, got %.2f", phraseOverlapScore, got)
	}

	c := normalizeWords("Völlig anderer Text ohne gemeinsame Fenster hier")
	if got := phraseOverlap(a, c); got != 0 {
		t.Fatalf("no shared window should score 0, got %.2f", got)
	}
}

func TestSolutionSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"6", "6", 1},
		{"6", "6,0", 1},
		{"6", "7", 0},
		{"Quadrat", "quadrat", 1},
		{"Quadrat", "Kreis", 0},
	}
	for _, tc := range tests {
		if got := solutionSimilarity(tc.a, tc.b); got != tc.want {
			t.Errorf("solutionSimilarity(%q, %q) = %.1f, want %.1f", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMagnitudeBucket(t *testing.T) {
	tests := []struct {
		n, bucket int
	}{
		{3, 0}, {10, 0}, {11, 1}, {20, 1}, {21, 2}, {100, 2}, {500, 3}, {5000, 4},
	}
	for _, tc := range tests {
		if got := magnitudeBucket(tc.n); got != tc.bucket {
			t.Errorf("magnitudeBucket(%d) = %d, want %d", tc.n, got, tc.bucket)
		}
	}
}

func TestVariableSimilarity(t *testing.T) {
	a := template.ParamSet{"a": template.NumberValue(3), "b": template.NumberValue(4)}

	// Same names, same buckets.
	b := template.ParamSet{"a": template.NumberValue(5), "b": template.NumberValue(9)}
	if got := variableSimilarity(a, b); got != 1 {
		t.Fatalf("same names and buckets should score 1, got %.2f", got)
	}

	// Same names, one value in another bucket.
	c := template.ParamSet{"a": template.NumberValue(3), "b": template.NumberValue(400)}
	if got := variableSimilarity(a, c); got != 0.5 {
		t.Fatalf("half-compatible should score 0.5, got %.2f", got)
	}

	// Disjoint names.
	d := template.ParamSet{"x": template.NumberValue(3)}
	if got := variableSimilarity(a, d); got != 0 {
		t.Fatalf("disjoint names should score 0, got %.2f", got)
	}

	// Both empty.
	if got := variableSimilarity(nil, nil); got != 1 {
		t.Fatalf("two empty sets should score 1, got %.2f", got)
	}

	// One empty.
	if got := variableSimilarity(a, nil); got != 0 {
		t.Fatalf("one empty set should score 0, got %.2f", got)
	}
}

func TestStructuralSimilarity_MultipleChoice(t *testing.T) {
	a := &template.Instance{
		Prompt:      "Wie viel ist 3 + 4?",
		Type:        template.TypeMultipleChoice,
		Distractors: []string{"1", "2", "3"},
	}
	b := &template.Instance{
		Prompt:      "Wie viel ist 8 + 9?",
		Type:        template.TypeMultipleChoice,
		Distractors: []string{"4", "5", "6"},
	}
	if got := structuralSimilarity(a, b); got != 1 {
		t.Fatalf("same type, count and pattern should score 1, got %.2f", got)
	}

	c := &template.Instance{
		Prompt: "Wie viel ist 9 - 2?",
		Type:   template.TypeFreeText,
	}
	got := structuralSimilarity(a, c)
	if got != 0 {
		t.Fatalf("different type and pattern should score 0, got %.2f", got)
	}
}

package dedup

import (
	"math"
	"strings"
	"unicode"

	"github.com/lernzeit/templatebank/internal/mathcheck"
	"github.com/lernzeit/templatebank/internal/template"
)

// numToken replaces numeric literals during prompt normalization so that
// instances differing only in drawn numbers still compare as similar.
const numToken = "num"

// phraseOverlapScore is the flat score awarded when any exact 3-word
// window is shared between two normalized prompts.
const phraseOverlapScore = 0.8

// normalizeWords lowercases the prompt, replaces numbers with a
// placeholder token, strips punctuation and drops short words.
func normalizeWords(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	out := make([]string, 0, len(fields))
	for _, w := range fields {
		if isNumeric(w) {
			out = append(out, numToken)
			continue
		}
		if len([]rune(w)) < 3 {
			continue
		}
		out = append(out, w)
	}
	return out
}

func isNumeric(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(w) > 0
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// phraseOverlap awards the flat score when the two word sequences share
// any exact 3-word window. Known to over-trigger on generic sentence
// frames; kept as-is pending a corpus-driven threshold.
func phraseOverlap(a, b []string) float64 {
	if len(a) < 3 || len(b) < 3 {
		return 0
	}
	windows := make(map[string]bool, len(a)-2)
	for i := 0; i+3 <= len(a); i++ {
		windows[strings.Join(a[i:i+3], " ")] = true
	}
	for i := 0; i+3 <= len(b); i++ {
		if windows[strings.Join(b[i:i+3], " ")] {
			return phraseOverlapScore
		}
	}
	return 0
}

// promptSimilarity is the maximum of word-set Jaccard and 3-gram phrase
// overlap over the normalized prompts.
func promptSimilarity(a, b string) float64 {
	wa, wb := normalizeWords(a), normalizeWords(b)
	return math.Max(jaccard(wordSet(wa), wordSet(wb)), phraseOverlap(wa, wb))
}

// solutionSimilarity is 1 for equal solutions (numeric equality when both
// parse, case-insensitive otherwise), else 0.
func solutionSimilarity(a, b string) float64 {
	na, errA := mathcheck.ParseNumber(a)
	nb, errB := mathcheck.ParseNumber(b)
	if errA == nil && errB == nil {
		if math.Abs(na-nb) < 1e-9 {
			return 1
		}
		return 0
	}
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return 1
	}
	return 0
}

// structuralSimilarity scores matches on question type, distractor count
// (choice types only) and the coarse mathematical pattern tag.
func structuralSimilarity(a, b *template.Instance) float64 {
	matched, applicable := 0, 0

	applicable++
	if a.Type == b.Type {
		matched++
	}

	if a.Type == template.TypeMultipleChoice && b.Type == template.TypeMultipleChoice {
		applicable++
		if len(a.Distractors) == len(b.Distractors) {
			matched++
		}
	}

	applicable++
	if mathcheck.PatternTag(a.Prompt) == mathcheck.PatternTag(b.Prompt) {
		matched++
	}

	return float64(matched) / float64(applicable)
}

// Coarse magnitude buckets for numeric parameter comparison.
func magnitudeBucket(n int) int {
	switch {
	case n <= 10:
		return 0
	case n <= 20:
		return 1
	case n <= 100:
		return 2
	case n <= 1000:
		return 3
	default:
		return 4
	}
}

// variableSimilarity is the Jaccard over parameter-name sets, weighted by
// the fraction of shared-name parameters that also share a kind and, for
// numbers, the same magnitude bucket.
func variableSimilarity(a, b template.ParamSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	inter, compatible := 0, 0
	for name, va := range a {
		vb, ok := b[name]
		if !ok {
			continue
		}
		inter++
		if va.Kind != vb.Kind {
			continue
		}
		if va.Kind == template.KindNumber && magnitudeBucket(va.Number) != magnitudeBucket(vb.Number) {
			continue
		}
		compatible++
	}

	union := len(a) + len(b) - inter
	base := float64(inter) / float64(union)
	if inter == 0 {
		return base
	}
	return base * float64(compatible) / float64(inter)
}

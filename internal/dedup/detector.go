// Package dedup detects semantic duplicates between a candidate question
// instance and a scoped corpus of previously accepted instances, using a
// weighted blend of text, solution, structural and parameter similarity.
package dedup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lernzeit/templatebank/internal/template"
)

// Sub-score weights. They sum to 1.
const (
	weightPrompt    = 0.5
	weightSolution  = 0.2
	weightStructure = 0.15
	weightVariables = 0.15
)

// Classification thresholds on the weighted similarity.
const (
	ThresholdExact  = 0.95
	ThresholdHigh   = 0.85
	ThresholdMedium = 0.70
	ThresholdLow    = 0.50
)

// MaxMatches bounds the number of ranked matches reported.
const MaxMatches = 5

// MatchType classifies how close a corpus match is.
type MatchType string

const (
	MatchExact  MatchType = "exact"
	MatchHigh   MatchType = "high"
	MatchMedium MatchType = "medium"
	MatchLow    MatchType = "low"
)

// Match is one corpus instance ranked against the candidate.
type Match struct {
	InstanceID string
	TemplateID string
	Similarity float64
	Type       MatchType
	Reasons    []string
}

// Result is the outcome of a duplicate check. IsDuplicate is true when
// the closest match is high or exact; exact matches are an unconditional
// reject with no override.
type Result struct {
	IsDuplicate bool
	Confidence  float64
	Matches     []Match
}

// Check compares candidate against the scoped corpus. Matches below the
// low threshold are not reported.
func Check(candidate *template.Instance, corpus []*template.Instance) Result {
	matches := make([]Match, 0, len(corpus))

	for _, other := range corpus {
		ps := promptSimilarity(candidate.Prompt, other.Prompt)
		ss := solutionSimilarity(candidate.Solution, other.Solution)
		st := structuralSimilarity(candidate, other)
		vs := variableSimilarity(candidate.Params, other.Params)

		sim := weightPrompt*ps + weightSolution*ss + weightStructure*st + weightVariables*vs
		if sim < ThresholdLow {
			continue
		}

		matches = append(matches, Match{
			InstanceID: other.ID,
			TemplateID: other.TemplateID,
			Similarity: sim,
			Type:       classify(sim),
			Reasons:    buildReasons(ps, ss, st, vs),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > MaxMatches {
		matches = matches[:MaxMatches]
	}

	res := Result{Matches: matches}
	if len(matches) > 0 {
		res.Confidence = matches[0].Similarity
		res.IsDuplicate = matches[0].Type == MatchHigh || matches[0].Type == MatchExact
	}
	return res
}

func classify(sim float64) MatchType {
	switch {
	case sim >= ThresholdExact:
		return MatchExact
	case sim >= ThresholdHigh:
		return MatchHigh
	case sim >= ThresholdMedium:
		return MatchMedium
	default:
		return MatchLow
	}
}

// buildReasons turns the driving sub-scores into rationale strings used
// for rejection messages or variation suggestions.
func buildReasons(prompt, solution, structure, variables float64) []string {
	var reasons []string
	if prompt >= phraseOverlapScore {
		reasons = append(reasons, fmt.Sprintf("prompt text nearly identical (%.2f)", prompt))
	} else if prompt >= 0.5 {
		reasons = append(reasons, fmt.Sprintf("prompt wording overlaps (%.2f)", prompt))
	}
	if solution == 1 {
		reasons = append(reasons, "identical solution")
	}
	if structure == 1 {
		reasons = append(reasons, "same question structure and mathematical pattern")
	}
	if variables >= 0.8 {
		reasons = append(reasons, "parameters share names, types and magnitudes; vary the number ranges")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "overall similarity above reporting threshold")
	}
	return reasons
}

// Describe renders a result for operator logs and authoring feedback.
func Describe(r Result) string {
	if len(r.Matches) == 0 {
		return "no similar instances found"
	}
	best := r.Matches[0]
	return fmt.Sprintf("%s match against instance %s (%.2f): %s",
		best.Type, best.InstanceID, best.Similarity, strings.Join(best.Reasons, "; "))
}

package template

import (
	"regexp"
	"strings"
)

// Render substitutes every {name} occurrence in text with the matching
// parameter's string form. Placeholders with no matching parameter are
// left intact; callers treat any remaining placeholder as a render
// failure downstream.
func Render(text string, params ParamSet) string {
	if len(params) == 0 || text == "" {
		return text
	}
	pairs := make([]string, 0, len(params)*2)
	for name, v := range params {
		pairs = append(pairs, "{"+name+"}", v.String())
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// RenderAll renders a slice of texts with the same parameter set.
func RenderAll(texts []string, params ParamSet) []string {
	if len(texts) == 0 {
		return nil
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Render(t, params)
	}
	return out
}

// placeholderRe matches a {name} placeholder. The name must be non-empty
// and free of whitespace so literal braces in prose do not match.
var placeholderRe = regexp.MustCompile(`\{[^{}\s]+\}`)

// HasPlaceholder reports whether text still contains a {name} placeholder.
func HasPlaceholder(text string) bool {
	return placeholderRe.MatchString(text)
}

// Package mathcheck re-derives the expected result of a rendered question
// from its arithmetic pattern and compares it to the declared solution.
// It deliberately under-fires: input it cannot parse yields no issues
// rather than false positives.
package mathcheck

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Tolerance for comparing recomputed and declared results.
const Tolerance = 0.01

// IssueCode identifies a class of mathematical defect.
type IssueCode string

const (
	// CodeWrongResult: the declared solution does not match the
	// recomputed result.
	CodeWrongResult IssueCode = "wrong_result"

	// CodeAddInsteadOfMul: multiplication was the detected intent but
	// the declared solution equals the sum of the operands. The single
	// most common authored defect.
	CodeAddInsteadOfMul IssueCode = "addition_instead_of_multiplication"

	// CodeDivisionByZero: the prompt divides by zero. Always an error,
	// regardless of the declared solution.
	CodeDivisionByZero IssueCode = "division_by_zero"

	// CodeNegativeResult: the result is negative without wording that
	// justifies a negative quantity.
	CodeNegativeResult IssueCode = "negative_result"
)

// Issue describes one mathematical defect found in a rendered question.
type Issue struct {
	Code     IssueCode
	Message  string
	Expected float64
	Found    float64
}

var (
	// "<n> <items> zu je <p> €": quantity times unit price.
	unitPriceRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s+\S+\s+zu je\s+(\d+(?:[.,]\d+)?)\s*€`)

	// "<n> <items> für <p> €": the bundle price itself is the answer.
	bundlePriceRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s+\S+\s+für\s+(\d+(?:[.,]\d+)?)\s*€`)
)

// Words whose presence justifies a negative result.
var negativeContext = []string{"schulden", "temperatur", "grad", "unter null", "minusgrade", "negativ", "kontostand"}

// Check validates the declared solution of a rendered prompt. An empty
// result means either the question is correct or the prompt was not
// parseable as arithmetic.
func Check(prompt, declared string) []Issue {
	declaredVal, declOK := parseDeclared(declared)

	// Money phrasing takes priority over generic intent detection.
	if m := unitPriceRe.FindStringSubmatch(prompt); m != nil {
		n, err1 := ParseNumber(m[1])
		p, err2 := ParseNumber(m[2])
		if err1 == nil && err2 == nil && declOK {
			return compareMul(prompt, n, p, declaredVal)
		}
		return nil
	}
	if m := bundlePriceRe.FindStringSubmatch(prompt); m != nil {
		p, err := ParseNumber(m[2])
		if err != nil || !declOK {
			return nil
		}
		if math.Abs(p-declaredVal) <= Tolerance {
			return nil
		}
		return []Issue{{
			Code:     CodeWrongResult,
			Message:  fmt.Sprintf("bundle price question: the answer is the stated price %s, not a recomputation", formatNum(p)),
			Expected: p,
			Found:    declaredVal,
		}}
	}

	det, ok := DetectIntent(prompt)
	if !ok {
		return nil
	}

	// Division by zero is flagged unconditionally.
	if det.Op == OpDiv && det.B == 0 {
		return []Issue{{
			Code:    CodeDivisionByZero,
			Message: fmt.Sprintf("division by zero: %s / 0", formatNum(det.A)),
		}}
	}

	expected, _ := Compute(det.Op, det.A, det.B)

	var issues []Issue
	if declOK && math.Abs(expected-declaredVal) > Tolerance {
		if det.Op == OpMul && math.Abs(det.A+det.B-declaredVal) <= Tolerance {
			issues = append(issues, Issue{
				Code:     CodeAddInsteadOfMul,
				Message:  fmt.Sprintf("multiplication expected %s but solution %s is the sum of %s and %s", formatNum(expected), formatNum(declaredVal), formatNum(det.A), formatNum(det.B)),
				Expected: expected,
				Found:    declaredVal,
			})
		} else {
			issues = append(issues, Issue{
				Code:     CodeWrongResult,
				Message:  fmt.Sprintf("recomputed %s %s %s = %s, declared solution is %s", formatNum(det.A), det.Op, formatNum(det.B), formatNum(expected), formatNum(declaredVal)),
				Expected: expected,
				Found:    declaredVal,
			})
		}
	}

	if expected < 0 && !negativeJustified(prompt) {
		issues = append(issues, Issue{
			Code:     CodeNegativeResult,
			Message:  fmt.Sprintf("result %s is negative without debt or temperature context", formatNum(expected)),
			Expected: expected,
		})
	}

	return issues
}

// compareMul checks a known-multiplication intent against the declared
// value, distinguishing the addition-instead-of-multiplication defect.
func compareMul(prompt string, a, b, declared float64) []Issue {
	expected := a * b
	if math.Abs(expected-declared) <= Tolerance {
		return nil
	}
	if math.Abs(a+b-declared) <= Tolerance {
		return []Issue{{
			Code:     CodeAddInsteadOfMul,
			Message:  fmt.Sprintf("unit price question: expected %s × %s = %s, declared solution %s is their sum", formatNum(a), formatNum(b), formatNum(expected), formatNum(declared)),
			Expected: expected,
			Found:    declared,
		}}
	}
	return []Issue{{
		Code:     CodeWrongResult,
		Message:  fmt.Sprintf("unit price question: expected %s × %s = %s, declared solution is %s", formatNum(a), formatNum(b), formatNum(expected), formatNum(declared)),
		Expected: expected,
		Found:    declared,
	}}
}

func negativeJustified(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, w := range negativeContext {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// parseDeclared extracts a numeric value from the declared solution,
// which may be a bare number or carry a unit suffix ("6 €").
func parseDeclared(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := ParseNumber(s); err == nil {
		return v, true
	}
	if m := numberRe.FindString(s); m != "" {
		// Only accept a leading number plus unit, not arbitrary prose.
		if strings.HasPrefix(s, m) {
			if v, err := ParseNumber(m); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func formatNum(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

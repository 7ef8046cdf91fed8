package mathcheck

import (
	"regexp"
	"strconv"
	"strings"
)

// Arithmetic operation symbols.
const (
	OpAdd = "+"
	OpSub = "-"
	OpMul = "*"
	OpDiv = "/"
)

// Detection is a recognized arithmetic intent: an operation and the first
// two numeric literals of the text as operands.
type Detection struct {
	Op   string
	A, B float64
}

var (
	numberRe = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

	// Full operand-operator-operand expression. A minus between digits
	// binds as the operator, never as the sign of the second operand.
	// Division symbols need surrounding whitespace so clock times and
	// fractions do not match.
	exprRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)(?:\s*([+\-−×*])\s*|\s+([:÷/])\s+)(\d+(?:[.,]\d+)?)`)
)

// Lexical cues checked in priority order after explicit symbols. The
// rule list is additive: new locales or phrasings append entries rather
// than growing branch logic.
var lexicalRules = []struct {
	op   string
	cues []string
}{
	{op: OpMul, cues: []string{"zu je", "jeweils", " mal ", "multipliziere"}},
	{op: OpDiv, cues: []string{"geteilt", "aufteilen", "aufgeteilt", "verteilt"}},
	{op: OpSub, cues: []string{"minus", "weniger", "subtrahiere"}},
	{op: OpAdd, cues: []string{"addiere", "plus", "zusammen"}},
}

// DetectIntent finds the arithmetic intent of a rendered prompt. An
// explicit expression binds the operator to its surrounding operands;
// lexical cues fall back to the first two numeric literals. Returns false
// when no operation cue is present or fewer than two numeric literals can
// be extracted.
func DetectIntent(text string) (Detection, bool) {
	if m := exprRe.FindStringSubmatch(text); m != nil {
		a, err1 := ParseNumber(m[1])
		b, err2 := ParseNumber(m[4])
		if err1 == nil && err2 == nil {
			return Detection{Op: normalizeOp(m[2] + m[3]), A: a, B: b}, true
		}
	}

	nums := ExtractNumbers(text)
	if len(nums) < 2 {
		return Detection{}, false
	}
	op, ok := lexicalOp(text)
	if !ok {
		return Detection{}, false
	}
	return Detection{Op: op, A: nums[0], B: nums[1]}, true
}

func detectOp(text string) (string, bool) {
	if m := exprRe.FindStringSubmatch(text); m != nil {
		return normalizeOp(m[2] + m[3]), true
	}
	return lexicalOp(text)
}

func normalizeOp(sym string) string {
	switch sym {
	case "−":
		return OpSub
	case "×":
		return OpMul
	case ":", "÷":
		return OpDiv
	}
	return sym
}

func lexicalOp(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, rule := range lexicalRules {
		for _, cue := range rule.cues {
			if strings.Contains(lower, cue) {
				return rule.op, true
			}
		}
	}
	return "", false
}

// ExtractNumbers returns all numeric literals of the text in order of
// appearance. German decimal commas parse as decimal points. A minus
// directly following a digit is an operator and not part of the literal.
func ExtractNumbers(text string) []float64 {
	locs := numberRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]float64, 0, len(locs))
	for _, loc := range locs {
		m := text[loc[0]:loc[1]]
		if m[0] == '-' && loc[0] > 0 && text[loc[0]-1] >= '0' && text[loc[0]-1] <= '9' {
			m = m[1:]
		}
		if v, err := ParseNumber(m); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// ParseNumber parses a numeric literal, accepting both decimal point and
// German decimal comma.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

// Compute evaluates the binary operation. Division by zero returns 0 and
// false.
func Compute(op string, a, b float64) (float64, bool) {
	switch op {
	case OpAdd:
		return a + b, true
	case OpSub:
		return a - b, true
	case OpMul:
		return a * b, true
	case OpDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	}
	return 0, false
}

// PatternTag classifies a prompt into a coarse mathematical pattern used
// by the duplicate detector's structural similarity. Comparison and
// estimation cues take priority over arithmetic since their prompts often
// contain operand-like numbers without an operation.
func PatternTag(text string) string {
	lower := strings.ToLower(text)

	for _, cue := range []string{"vergleiche", "größer", "kleiner", "am meisten", "am wenigsten"} {
		if strings.Contains(lower, cue) {
			return "comparison"
		}
	}
	for _, cue := range []string{"schätze", "ungefähr", "etwa ", "runde"} {
		if strings.Contains(lower, cue) {
			return "estimation"
		}
	}

	op, ok := detectOp(text)
	if !ok {
		return ""
	}
	switch op {
	case OpAdd:
		return "addition"
	case OpSub:
		return "subtraction"
	case OpMul:
		return "multiplication"
	case OpDiv:
		return "division"
	}
	return ""
}

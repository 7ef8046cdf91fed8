package template

import (
	"sort"
	"strconv"
	"strings"
)

// ParamValue is one generated parameter value: either a number or a word.
type ParamValue struct {
	Kind   ParamKind
	Number int
	Word   string
}

// NumberValue wraps n as a numeric ParamValue.
func NumberValue(n int) ParamValue {
	return ParamValue{Kind: KindNumber, Number: n}
}

// WordValue wraps w as a word ParamValue.
func WordValue(w string) ParamValue {
	return ParamValue{Kind: KindWord, Word: w}
}

// String renders the value in its natural text form: integers without
// decorative formatting, words verbatim.
func (v ParamValue) String() string {
	if v.Kind == KindNumber {
		return strconv.Itoa(v.Number)
	}
	return v.Word
}

// ParamSet is a name→value mapping generated for one instantiation.
type ParamSet map[string]ParamValue

// Numbers returns the numeric values in name order.
func (ps ParamSet) Numbers() []int {
	names := make([]string, 0, len(ps))
	for name, v := range ps {
		if v.Kind == KindNumber {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	nums := make([]int, len(names))
	for i, name := range names {
		nums[i] = ps[name].Number
	}
	return nums
}

// CombinationKey returns the canonical signature of the parameter set,
// used for session-scoped dedup of repeated draws.
//
// Contract: order-independent (names are sorted lexicographically) and
// type-stable (numbers render via strconv.Itoa, words verbatim). Pairs
// are joined as name=value with "|" between pairs. The empty set yields
// the empty string.
func (ps ParamSet) CombinationKey() string {
	if len(ps) == 0 {
		return ""
	}
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + ps[name].String()
	}
	return strings.Join(pairs, "|")
}

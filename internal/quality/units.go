package quality

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lernzeit/templatebank/internal/mathcheck"
)

// Unit conversions to a common base per dimension: lengths to
// centimeters, weights to grams, time to minutes, volumes to
// milliliters. Catches disguised duplicates like "1,5 m" vs "150 cm".
var unitTable = map[string]struct {
	dimension string
	factor    float64
}{
	"mm":       {"length", 0.1},
	"cm":       {"length", 1},
	"dm":       {"length", 10},
	"m":        {"length", 100},
	"km":       {"length", 100000},
	"g":        {"weight", 1},
	"kg":       {"weight", 1000},
	"t":        {"weight", 1e6},
	"s":        {"time", 1.0 / 60},
	"sek":      {"time", 1.0 / 60},
	"min":      {"time", 1},
	"h":        {"time", 60},
	"std":      {"time", 60},
	"stunde":   {"time", 60},
	"stunden":  {"time", 60},
	"minute":   {"time", 1},
	"minuten":  {"time", 1},
	"sekunde":  {"time", 1.0 / 60},
	"sekunden": {"time", 1.0 / 60},
	"ml":       {"volume", 1},
	"cl":       {"volume", 10},
	"l":        {"volume", 1000},
}

var quantityRe = regexp.MustCompile(`^(-?\d+(?:[.,]\d+)?)\s*(\p{L}+)$`)

// Quantity is a measured value converted to its dimension's base unit.
type Quantity struct {
	Dimension string
	BaseValue float64
}

// ParseQuantity parses strings like "1,5 m" or "150cm" into a normalized
// Quantity. Returns false for values without a known unit.
func ParseQuantity(s string) (Quantity, bool) {
	m := quantityRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Quantity{}, false
	}
	v, err := mathcheck.ParseNumber(m[1])
	if err != nil {
		return Quantity{}, false
	}
	unit, ok := unitTable[strings.ToLower(m[2])]
	if !ok {
		return Quantity{}, false
	}
	return Quantity{Dimension: unit.dimension, BaseValue: v * unit.factor}, true
}

// normalizedKey maps an item to a comparison key: unit quantities
// normalize to their base value, bare numbers to their numeric value,
// everything else to its lowercased text.
func normalizedKey(item string) string {
	if q, ok := ParseQuantity(item); ok {
		return fmt.Sprintf("%s:%g", q.Dimension, q.BaseValue)
	}
	if v, err := mathcheck.ParseNumber(strings.TrimSpace(item)); err == nil {
		return fmt.Sprintf("number:%g", v)
	}
	return strings.ToLower(strings.TrimSpace(item))
}

// duplicateAfterNormalization returns the first pair of items that are
// mathematically equal after unit normalization, or ok=false.
func duplicateAfterNormalization(items []string) (a, b string, ok bool) {
	seen := make(map[string]string, len(items))
	for _, item := range items {
		key := normalizedKey(item)
		if prev, dup := seen[key]; dup {
			return prev, item, true
		}
		seen[key] = item
	}
	return "", "", false
}

package curriculum

import "fmt"

// Quarter identifies a school-year quarter.
type Quarter string

const (
	Q1 Quarter = "Q1"
	Q2 Quarter = "Q2"
	Q3 Quarter = "Q3"
	Q4 Quarter = "Q4"
)

// AllQuarters returns the quarters in school-year order.
func AllQuarters() []Quarter {
	return []Quarter{Q1, Q2, Q3, Q4}
}

// ValidQuarter reports whether q is one of Q1..Q4.
func ValidQuarter(q Quarter) bool {
	switch q {
	case Q1, Q2, Q3, Q4:
		return true
	}
	return false
}

// Domain represents a math content domain.
type Domain string

const (
	DomainArithmetic  Domain = "arithmetic"
	DomainGeometry    Domain = "geometry"
	DomainMeasurement Domain = "measurement"
	DomainFractions   Domain = "fractions"
	DomainWordProblem Domain = "word-problems"
)

// AllDomains returns all domains in display order.
func AllDomains() []Domain {
	return []Domain{
		DomainArithmetic,
		DomainGeometry,
		DomainMeasurement,
		DomainFractions,
		DomainWordProblem,
	}
}

// DomainDisplayName returns a human-readable name for a domain.
func DomainDisplayName(d Domain) string {
	switch d {
	case DomainArithmetic:
		return "Arithmetik"
	case DomainGeometry:
		return "Geometrie"
	case DomainMeasurement:
		return "Größen & Messen"
	case DomainFractions:
		return "Brüche"
	case DomainWordProblem:
		return "Sachaufgaben"
	default:
		return string(d)
	}
}

// Operation symbols a curriculum rule may permit.
const (
	OpAdd = "+"
	OpSub = "-"
	OpMul = "*"
	OpDiv = "/"
)

// Rule holds the numeric range and permitted operations for one
// (grade, quarter, domain) cell. Read-only within a session; refreshed
// from the rule store on cache expiry.
type Rule struct {
	Grade      int
	Quarter    Quarter
	Domain     Domain
	MinNumber  int
	MaxNumber  int
	Operations []string
}

// InRange reports whether n lies within the rule's inclusive number range.
func (r *Rule) InRange(n int) bool {
	return n >= r.MinNumber && n <= r.MaxNumber
}

// Allows reports whether the rule permits the given operation symbol.
func (r *Rule) Allows(op string) bool {
	for _, o := range r.Operations {
		if o == op {
			return true
		}
	}
	return false
}

func (r *Rule) String() string {
	return fmt.Sprintf("grade %d %s %s: [%d, %d] ops=%v",
		r.Grade, r.Quarter, r.Domain, r.MinNumber, r.MaxNumber, r.Operations)
}

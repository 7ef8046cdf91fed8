package curriculum

import (
	"context"
	"errors"
)

// ErrRuleNotFound indicates no curriculum rule exists for the requested
// (grade, quarter, domain) key. Callers must treat this as "cannot
// generate, cannot validate" and fail the instantiation attempt.
var ErrRuleNotFound = errors.New("curriculum rule not found")

// Source supplies curriculum rules from the external rule store.
// One read returns all rules for a (grade, quarter) pair so the cache
// can repopulate with a single query.
type Source interface {
	// RulesFor returns every rule defined for the given grade and quarter.
	// An empty slice is a valid result (no rules configured).
	RulesFor(ctx context.Context, grade int, quarter Quarter) ([]Rule, error)
}

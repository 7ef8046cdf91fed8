package store

import (
	"context"

	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/template"
)

// CorpusScope restricts a duplicate-detection corpus to one cell.
type CorpusScope struct {
	Grade       int
	Domain      curriculum.Domain
	Subcategory string

	// Limit bounds the corpus to the N most recent active instances.
	// Zero applies DefaultCorpusLimit.
	Limit int
}

// DefaultCorpusLimit bounds duplicate-detection corpora.
const DefaultCorpusLimit = 200

// CellCount is the active-instance count of one (domain, grade) cell.
// Templates is the number of distinct templates behind those instances.
type CellCount struct {
	Domain    curriculum.Domain
	Grade     int
	Count     int
	Templates int
}

// SessionKey scopes a used-combinations set to one play session context.
type SessionKey struct {
	UserID   string
	Grade    int
	Category string
}

// TemplateRepo manages authored templates.
type TemplateRepo interface {
	Save(ctx context.Context, tpl *template.Template) error
	Get(ctx context.Context, id string) (*template.Template, error)

	// ByCell returns the templates for a (grade, quarter, domain) cell.
	ByCell(ctx context.Context, grade int, quarter curriculum.Quarter, domain curriculum.Domain) ([]*template.Template, error)
}

// RuleRepo manages curriculum rules. It satisfies curriculum.Source for
// the read path; writes exist for seeding and tests, the rules
// themselves are maintained externally.
type RuleRepo interface {
	curriculum.Source
	Save(ctx context.Context, rule curriculum.Rule) error
}

// InstanceRepo manages accepted question instances and their usage
// counters.
type InstanceRepo interface {
	Save(ctx context.Context, inst *template.Instance) error
	Get(ctx context.Context, id string) (*template.Instance, error)

	// Corpus returns the scoped corpus for duplicate detection: most
	// recent active instances first. Archived instances are excluded.
	Corpus(ctx context.Context, scope CorpusScope) ([]*template.Instance, error)

	// ActiveCells returns active-instance counts per (domain, grade).
	ActiveCells(ctx context.Context) ([]CellCount, error)

	// WithUsage returns active instances that have recorded usage.
	WithUsage(ctx context.Context) ([]*template.Instance, error)

	// Archive transitions an instance to archived status.
	Archive(ctx context.Context, id string) error

	// RecordUsage increments usage counters. A rating of 0 records no
	// rating.
	RecordUsage(ctx context.Context, id string, success bool, rating float64) error
}

// SessionRepo persists per-session used combination keys.
type SessionRepo interface {
	// Combinations returns the used set for a session key.
	Combinations(ctx context.Context, key SessionKey) (map[string]bool, error)

	// AddCombination records a used combination key. Re-adding an
	// existing key is a no-op (duplicate keys are harmless).
	AddCombination(ctx context.Context, key SessionKey, comboKey string) error
}

package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lernzeit/templatebank/internal/curriculum"
)

type ruleRow struct {
	Grade      int    `db:"grade"`
	Quarter    string `db:"quarter"`
	Domain     string `db:"domain"`
	MinNumber  int    `db:"min_number"`
	MaxNumber  int    `db:"max_number"`
	Operations string `db:"operations"`
}

type ruleRepo struct {
	db *sqlx.DB
}

func (r *ruleRepo) RulesFor(ctx context.Context, grade int, quarter curriculum.Quarter) ([]curriculum.Rule, error) {
	var rows []ruleRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM curriculum_rules
		WHERE grade = ? AND quarter = ?`,
		grade, string(quarter))
	if err != nil {
		return nil, fmt.Errorf("rules for grade %d %s: %w", grade, quarter, err)
	}

	out := make([]curriculum.Rule, 0, len(rows))
	for _, row := range rows {
		rule := curriculum.Rule{
			Grade:     row.Grade,
			Quarter:   curriculum.Quarter(row.Quarter),
			Domain:    curriculum.Domain(row.Domain),
			MinNumber: row.MinNumber,
			MaxNumber: row.MaxNumber,
		}
		if err := json.Unmarshal([]byte(row.Operations), &rule.Operations); err != nil {
			return nil, fmt.Errorf("decode operations for %s: %w", rule.String(), err)
		}
		out = append(out, rule)
	}
	return out, nil
}

func (r *ruleRepo) Save(ctx context.Context, rule curriculum.Rule) error {
	ops, err := json.Marshal(rule.Operations)
	if err != nil {
		return fmt.Errorf("encode operations: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO curriculum_rules
			(grade, quarter, domain, min_number, max_number, operations)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rule.Grade, string(rule.Quarter), string(rule.Domain),
		rule.MinNumber, rule.MaxNumber, string(ops))
	if err != nil {
		return fmt.Errorf("save rule %s: %w", rule.String(), err)
	}
	return nil
}

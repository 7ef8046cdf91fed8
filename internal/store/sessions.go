package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type sessionRepo struct {
	db *sqlx.DB
}

func (r *sessionRepo) Combinations(ctx context.Context, key SessionKey) (map[string]bool, error) {
	var keys []string
	err := r.db.SelectContext(ctx, &keys, `
		SELECT combo_key FROM session_combinations
		WHERE user_id = ? AND grade = ? AND category = ?`,
		key.UserID, key.Grade, key.Category)
	if err != nil {
		return nil, fmt.Errorf("combinations for %s grade %d %s: %w", key.UserID, key.Grade, key.Category, err)
	}

	used := make(map[string]bool, len(keys))
	for _, k := range keys {
		used[k] = true
	}
	return used, nil
}

func (r *sessionRepo) AddCombination(ctx context.Context, key SessionKey, comboKey string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO session_combinations
			(user_id, grade, category, combo_key)
		VALUES (?, ?, ?, ?)`,
		key.UserID, key.Grade, key.Category, comboKey)
	if err != nil {
		return fmt.Errorf("add combination for %s: %w", key.UserID, err)
	}
	return nil
}

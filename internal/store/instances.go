package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/template"
)

type instanceRow struct {
	ID           string    `db:"id"`
	TemplateID   string    `db:"template_id"`
	Prompt       string    `db:"prompt"`
	Solution     string    `db:"solution"`
	Distractors  string    `db:"distractors"`
	Items        string    `db:"items"`
	Explanation  string    `db:"explanation"`
	QType        string    `db:"qtype"`
	Domain       string    `db:"domain"`
	Subcategory  string    `db:"subcategory"`
	Grade        int       `db:"grade"`
	Quarter      string    `db:"quarter"`
	Difficulty   string    `db:"difficulty"`
	Params       string    `db:"params"`
	Status       string    `db:"status"`
	UsageCount   int       `db:"usage_count"`
	SuccessCount int       `db:"success_count"`
	RatingSum    float64   `db:"rating_sum"`
	RatingCount  int       `db:"rating_count"`
	CreatedAt    time.Time `db:"created_at"`
}

type instanceRepo struct {
	db *sqlx.DB
}

func (r *instanceRepo) Save(ctx context.Context, inst *template.Instance) error {
	row, err := instanceToRow(inst)
	if err != nil {
		return fmt.Errorf("encode instance: %w", err)
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO instances
			(id, template_id, prompt, solution, distractors, items, explanation,
			 qtype, domain, subcategory, grade, quarter, difficulty, params,
			 status, usage_count, success_count, rating_sum, rating_count, created_at)
		VALUES
			(:id, :template_id, :prompt, :solution, :distractors, :items, :explanation,
			 :qtype, :domain, :subcategory, :grade, :quarter, :difficulty, :params,
			 :status, :usage_count, :success_count, :rating_sum, :rating_count, :created_at)`,
		row)
	if err != nil {
		return fmt.Errorf("save instance %s: %w", inst.ID, err)
	}
	return nil
}

func (r *instanceRepo) Get(ctx context.Context, id string) (*template.Instance, error) {
	var row instanceRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM instances WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("instance %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get instance %s: %w", id, err)
	}
	return rowToInstance(&row)
}

func (r *instanceRepo) Corpus(ctx context.Context, scope CorpusScope) ([]*template.Instance, error) {
	limit := scope.Limit
	if limit <= 0 {
		limit = DefaultCorpusLimit
	}

	var rows []instanceRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM instances
		WHERE grade = ? AND domain = ? AND subcategory = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		scope.Grade, string(scope.Domain), scope.Subcategory, string(template.StatusActive), limit)
	if err != nil {
		return nil, fmt.Errorf("corpus for grade %d %s/%s: %w", scope.Grade, scope.Domain, scope.Subcategory, err)
	}
	return rowsToInstances(rows)
}

func (r *instanceRepo) ActiveCells(ctx context.Context) ([]CellCount, error) {
	var rows []struct {
		Domain    string `db:"domain"`
		Grade     int    `db:"grade"`
		Count     int    `db:"count"`
		Templates int    `db:"templates"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT domain, grade, COUNT(*) AS count, COUNT(DISTINCT template_id) AS templates
		FROM instances
		WHERE status = ?
		GROUP BY domain, grade`,
		string(template.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("active cell counts: %w", err)
	}

	out := make([]CellCount, len(rows))
	for i, row := range rows {
		out[i] = CellCount{
			Domain:    curriculum.Domain(row.Domain),
			Grade:     row.Grade,
			Count:     row.Count,
			Templates: row.Templates,
		}
	}
	return out, nil
}

func (r *instanceRepo) WithUsage(ctx context.Context) ([]*template.Instance, error) {
	var rows []instanceRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM instances
		WHERE status = ? AND usage_count > 0
		ORDER BY created_at DESC`,
		string(template.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("instances with usage: %w", err)
	}
	return rowsToInstances(rows)
}

func (r *instanceRepo) Archive(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE instances SET status = ? WHERE id = ?`,
		string(template.StatusArchived), id)
	if err != nil {
		return fmt.Errorf("archive instance %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("instance %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *instanceRepo) RecordUsage(ctx context.Context, id string, success bool, rating float64) error {
	successInc := 0
	if success {
		successInc = 1
	}
	ratingInc := 0
	if rating > 0 {
		ratingInc = 1
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE instances SET
			usage_count = usage_count + 1,
			success_count = success_count + ?,
			rating_sum = rating_sum + ?,
			rating_count = rating_count + ?
		WHERE id = ?`,
		successInc, rating, ratingInc, id)
	if err != nil {
		return fmt.Errorf("record usage for %s: %w", id, err)
	}
	return nil
}

func instanceToRow(inst *template.Instance) (*instanceRow, error) {
	distractors, err := json.Marshal(emptyIfNil(inst.Distractors))
	if err != nil {
		return nil, err
	}
	items, err := json.Marshal(emptyIfNil(inst.Items))
	if err != nil {
		return nil, err
	}
	params, err := json.Marshal(inst.Params)
	if err != nil {
		return nil, err
	}

	status := inst.Status
	if status == "" {
		status = template.StatusActive
	}
	createdAt := inst.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &instanceRow{
		ID:          inst.ID,
		TemplateID:  inst.TemplateID,
		Prompt:      inst.Prompt,
		Solution:    inst.Solution,
		Distractors: string(distractors),
		Items:       string(items),
		Explanation: inst.Explanation,
		QType:       string(inst.Type),
		Domain:      string(inst.Domain),
		Subcategory: inst.Subcategory,
		Grade:       inst.Grade,
		Quarter:     string(inst.Quarter),
		Difficulty:  string(inst.Difficulty),
		Params:      string(params),
		Status:      string(status),
		CreatedAt:   createdAt,
	}, nil
}

func rowToInstance(row *instanceRow) (*template.Instance, error) {
	inst := &template.Instance{
		ID:          row.ID,
		TemplateID:  row.TemplateID,
		Prompt:      row.Prompt,
		Solution:    row.Solution,
		Explanation: row.Explanation,
		Type:        template.QuestionType(row.QType),
		Domain:      curriculum.Domain(row.Domain),
		Subcategory: row.Subcategory,
		Grade:       row.Grade,
		Quarter:     curriculum.Quarter(row.Quarter),
		Difficulty:  template.Difficulty(row.Difficulty),
		Status:      template.Status(row.Status),
		UsageCount:  row.UsageCount,
		CreatedAt:   row.CreatedAt,
	}
	if row.UsageCount > 0 {
		inst.SuccessRate = float64(row.SuccessCount) / float64(row.UsageCount)
	}
	if row.RatingCount > 0 {
		inst.AvgRating = row.RatingSum / float64(row.RatingCount)
	}
	if err := json.Unmarshal([]byte(row.Distractors), &inst.Distractors); err != nil {
		return nil, fmt.Errorf("decode distractors of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Items), &inst.Items); err != nil {
		return nil, fmt.Errorf("decode items of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Params), &inst.Params); err != nil {
		return nil, fmt.Errorf("decode params of %s: %w", row.ID, err)
	}
	return inst, nil
}

func rowsToInstances(rows []instanceRow) ([]*template.Instance, error) {
	out := make([]*template.Instance, 0, len(rows))
	for i := range rows {
		inst, err := rowToInstance(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

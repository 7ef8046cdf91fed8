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

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

type templateRow struct {
	ID          string    `db:"id"`
	Prompt      string    `db:"prompt"`
	Solution    string    `db:"solution"`
	Distractors string    `db:"distractors"`
	Items       string    `db:"items"`
	Explanation string    `db:"explanation"`
	QType       string    `db:"qtype"`
	Domain      string    `db:"domain"`
	Subcategory string    `db:"subcategory"`
	Grade       int       `db:"grade"`
	Quarter     string    `db:"quarter"`
	Difficulty  string    `db:"difficulty"`
	Params      string    `db:"params"`
	CreatedAt   time.Time `db:"created_at"`
}

type templateRepo struct {
	db *sqlx.DB
}

func (r *templateRepo) Save(ctx context.Context, tpl *template.Template) error {
	row, err := templateToRow(tpl)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO templates
			(id, prompt, solution, distractors, items, explanation, qtype,
			 domain, subcategory, grade, quarter, difficulty, params, created_at)
		VALUES
			(:id, :prompt, :solution, :distractors, :items, :explanation, :qtype,
			 :domain, :subcategory, :grade, :quarter, :difficulty, :params, :created_at)`,
		row)
	if err != nil {
		return fmt.Errorf("save template %s: %w", tpl.ID, err)
	}
	return nil
}

func (r *templateRepo) Get(ctx context.Context, id string) (*template.Template, error) {
	var row templateRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM templates WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get template %s: %w", id, err)
	}
	return rowToTemplate(&row)
}

func (r *templateRepo) ByCell(ctx context.Context, grade int, quarter curriculum.Quarter, domain curriculum.Domain) ([]*template.Template, error) {
	var rows []templateRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM templates
		WHERE grade = ? AND quarter = ? AND domain = ?
		ORDER BY created_at DESC`,
		grade, string(quarter), string(domain))
	if err != nil {
		return nil, fmt.Errorf("templates for grade %d %s %s: %w", grade, quarter, domain, err)
	}

	out := make([]*template.Template, 0, len(rows))
	for i := range rows {
		tpl, err := rowToTemplate(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, nil
}

func templateToRow(tpl *template.Template) (*templateRow, error) {
	distractors, err := json.Marshal(emptyIfNil(tpl.Distractors))
	if err != nil {
		return nil, err
	}
	items, err := json.Marshal(emptyIfNil(tpl.Items))
	if err != nil {
		return nil, err
	}
	params, err := json.Marshal(tpl.Params)
	if err != nil {
		return nil, err
	}

	createdAt := tpl.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &templateRow{
		ID:          tpl.ID,
		Prompt:      tpl.Prompt,
		Solution:    tpl.Solution,
		Distractors: string(distractors),
		Items:       string(items),
		Explanation: tpl.Explanation,
		QType:       string(tpl.Type),
		Domain:      string(tpl.Domain),
		Subcategory: tpl.Subcategory,
		Grade:       tpl.Grade,
		Quarter:     string(tpl.Quarter),
		Difficulty:  string(tpl.Difficulty),
		Params:      string(params),
		CreatedAt:   createdAt,
	}, nil
}

func rowToTemplate(row *templateRow) (*template.Template, error) {
	tpl := &template.Template{
		ID:          row.ID,
		Prompt:      row.Prompt,
		Solution:    row.Solution,
		Explanation: row.Explanation,
		Type:        template.QuestionType(row.QType),
		Domain:      curriculum.Domain(row.Domain),
		Subcategory: row.Subcategory,
		Grade:       row.Grade,
		Quarter:     curriculum.Quarter(row.Quarter),
		Difficulty:  template.Difficulty(row.Difficulty),
		CreatedAt:   row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.Distractors), &tpl.Distractors); err != nil {
		return nil, fmt.Errorf("decode distractors of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Items), &tpl.Items); err != nil {
		return nil, fmt.Errorf("decode items of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Params), &tpl.Params); err != nil {
		return nil, fmt.Errorf("decode params of %s: %w", row.ID, err)
	}
	return tpl, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

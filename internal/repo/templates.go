package repo

import (
	"context"
	"database/sql"

	"cadence/internal/domain"
)

const templateCols = `id,name,is_active,version,created_at,updated_at`

func scanTemplate(row *sql.Row) (domain.Template, error) {
	var t domain.Template
	var active int
	err := row.Scan(&t.ID, &t.Name, &active, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	t.IsActive = active != 0
	return t, err
}

// ActiveTemplate returns the single active template, or ErrNotFound when
// none has been initialized yet.
func (r Repo) ActiveTemplate(ctx context.Context) (domain.Template, error) {
	return scanTemplate(r.DB.QueryRowContext(ctx, `SELECT `+templateCols+` FROM templates WHERE is_active=1`))
}

func (r Repo) GetTemplate(ctx context.Context, id string) (domain.Template, error) {
	return scanTemplate(r.DB.QueryRowContext(ctx, `SELECT `+templateCols+` FROM templates WHERE id=?`, id))
}

func (r Repo) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+templateCols+` FROM templates ORDER BY version DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Template
	for rows.Next() {
		var t domain.Template
		var active int
		if err := rows.Scan(&t.ID, &t.Name, &active, &t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.IsActive = active != 0
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) InsertTemplateTx(ctx context.Context, tx *sql.Tx, t domain.Template) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO templates(`+templateCols+`) VALUES (?,?,?,?,?,?)`,
		t.ID, t.Name, boolInt(t.IsActive), t.Version, t.CreatedAt, t.UpdatedAt)
	return err
}

// DeactivateTemplatesTx clears the active flag so a new version can take it.
func (r Repo) DeactivateTemplatesTx(ctx context.Context, tx *sql.Tx, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE templates SET is_active=0, updated_at=? WHERE is_active=1`, updatedAt)
	return err
}

func (r Repo) MaxTemplateVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var v sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(version) FROM templates`).Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}

func (r Repo) InsertTemplateTaskTx(ctx context.Context, tx *sql.Tx, t domain.TemplateTask) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO template_tasks(id,template_id,title_ja,body_ja,relative_due_rule,tag,sort_order,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		t.ID, t.TemplateID, t.TitleJA, nullablePtr(t.BodyJA), t.RelativeDueRule, nullablePtr(t.Tag), t.SortOrder, t.CreatedAt)
	return err
}

func (r Repo) InsertTemplateChecklistItemTx(ctx context.Context, tx *sql.Tx, c domain.TemplateChecklistItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO template_checklist_items(id,template_task_id,text_ja,default_assignee,sort_order,created_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.TemplateTaskID, c.TextJA, c.DefaultAssignee, c.SortOrder, c.CreatedAt)
	return err
}

func (r Repo) GetTemplateTask(ctx context.Context, id string) (domain.TemplateTask, error) {
	var t domain.TemplateTask
	var bodyJA, tag sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,template_id,title_ja,body_ja,relative_due_rule,tag,sort_order,created_at FROM template_tasks WHERE id=?`, id).
		Scan(&t.ID, &t.TemplateID, &t.TitleJA, &bodyJA, &t.RelativeDueRule, &tag, &t.SortOrder, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	t.BodyJA = ptrFromNull(bodyJA)
	t.Tag = ptrFromNull(tag)
	return t, err
}

func (r Repo) ListTemplateTasks(ctx context.Context, templateID string) ([]domain.TemplateTask, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,template_id,title_ja,body_ja,relative_due_rule,tag,sort_order,created_at FROM template_tasks WHERE template_id=? ORDER BY sort_order ASC`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TemplateTask
	for rows.Next() {
		var t domain.TemplateTask
		var bodyJA, tag sql.NullString
		if err := rows.Scan(&t.ID, &t.TemplateID, &t.TitleJA, &bodyJA, &t.RelativeDueRule, &tag, &t.SortOrder, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.BodyJA = ptrFromNull(bodyJA)
		t.Tag = ptrFromNull(tag)
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) ListTemplateChecklistItems(ctx context.Context, templateTaskID string) ([]domain.TemplateChecklistItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,template_task_id,text_ja,default_assignee,sort_order,created_at FROM template_checklist_items WHERE template_task_id=? ORDER BY sort_order ASC`, templateTaskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TemplateChecklistItem
	for rows.Next() {
		var c domain.TemplateChecklistItem
		if err := rows.Scan(&c.ID, &c.TemplateTaskID, &c.TextJA, &c.DefaultAssignee, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

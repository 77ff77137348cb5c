package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cadence/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const weekCols = `id,week_key,business_date_default,business_date_actual,created_at`

func scanWeek(row *sql.Row) (domain.Week, error) {
	var w domain.Week
	var actual sql.NullString
	err := row.Scan(&w.ID, &w.WeekKey, &w.BusinessDateDefault, &actual, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	w.BusinessDateActual = ptrFromNull(actual)
	return w, err
}

func (r Repo) InsertWeekTx(ctx context.Context, tx *sql.Tx, w domain.Week) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO weeks(id,week_key,business_date_default,business_date_actual,created_at) VALUES (?,?,?,?,?)`,
		w.ID, w.WeekKey, w.BusinessDateDefault, nullablePtr(w.BusinessDateActual), w.CreatedAt)
	return err
}

func (r Repo) GetWeek(ctx context.Context, id string) (domain.Week, error) {
	return scanWeek(r.DB.QueryRowContext(ctx, `SELECT `+weekCols+` FROM weeks WHERE id=?`, id))
}

func (r Repo) GetWeekByKey(ctx context.Context, key string) (domain.Week, error) {
	return scanWeek(r.DB.QueryRowContext(ctx, `SELECT `+weekCols+` FROM weeks WHERE week_key=?`, key))
}

// ListWeeksFrom returns stored weeks with week_key >= from, ascending.
// Week keys sort lexicographically in chronological order.
func (r Repo) ListWeeksFrom(ctx context.Context, from string, limit int) ([]domain.Week, error) {
	if limit <= 0 {
		limit = 12
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+weekCols+` FROM weeks WHERE week_key>=? ORDER BY week_key ASC LIMIT ?`, from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Week
	for rows.Next() {
		var w domain.Week
		var actual sql.NullString
		if err := rows.Scan(&w.ID, &w.WeekKey, &w.BusinessDateDefault, &actual, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.BusinessDateActual = ptrFromNull(actual)
		res = append(res, w)
	}
	return res, rows.Err()
}

func (r Repo) UpdateBusinessDateActualTx(ctx context.Context, tx *sql.Tx, weekID, date string) error {
	res, err := tx.ExecContext(ctx, `UPDATE weeks SET business_date_actual=? WHERE id=?`, date, weekID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

const taskCols = `id,week_id,template_task_id,title_ja,title_fr,body_ja,body_fr,due_at,priority,status,tag,assignee_user_id,created_by,updated_by,created_at,updated_at,translated_at,needs_retranslate`

func scanTaskRow(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var tmplTaskID, titleFR, bodyJA, bodyFR, tag, assignee, updatedBy, translatedAt sql.NullString
	var needsRetranslate int
	err := scan(&t.ID, &t.WeekID, &tmplTaskID, &t.TitleJA, &titleFR, &bodyJA, &bodyFR, &t.DueAt,
		&t.Priority, &t.Status, &tag, &assignee, &t.CreatedBy, &updatedBy, &t.CreatedAt, &t.UpdatedAt,
		&translatedAt, &needsRetranslate)
	if err != nil {
		return t, err
	}
	t.TemplateTaskID = ptrFromNull(tmplTaskID)
	t.TitleFR = ptrFromNull(titleFR)
	t.BodyJA = ptrFromNull(bodyJA)
	t.BodyFR = ptrFromNull(bodyFR)
	t.Tag = ptrFromNull(tag)
	t.AssigneeUserID = ptrFromNull(assignee)
	t.UpdatedBy = ptrFromNull(updatedBy)
	t.TranslatedAt = ptrFromNull(translatedAt)
	t.NeedsRetranslate = needsRetranslate != 0
	return t, nil
}

func (r Repo) InsertTaskTx(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.WeekID, nullablePtr(t.TemplateTaskID), t.TitleJA, nullablePtr(t.TitleFR), nullablePtr(t.BodyJA), nullablePtr(t.BodyFR),
		t.DueAt, t.Priority, t.Status, nullablePtr(t.Tag), nullablePtr(t.AssigneeUserID), t.CreatedBy, nullablePtr(t.UpdatedBy),
		t.CreatedAt, t.UpdatedAt, nullablePtr(t.TranslatedAt), boolInt(t.NeedsRetranslate))
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id=?`, id)
	t, err := scanTaskRow(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

type TaskFilters struct {
	WeekID     string
	Status     string
	AssigneeID string
	Tag        string
	Limit      int
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var (
		where []string
		args  []any
	)
	if f.WeekID != "" {
		where = append(where, "week_id=?")
		args = append(args, f.WeekID)
	}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	if f.AssigneeID != "" {
		where = append(where, "assignee_user_id=?")
		args = append(args, f.AssigneeID)
	}
	if f.Tag != "" {
		where = append(where, "tag=?")
		args = append(args, f.Tag)
	}
	q := `SELECT ` + taskCols + ` FROM tasks`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY due_at ASC, id ASC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTaskRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// TaskTitlesForWeek returns the set of title_ja already present in a week,
// used to keep generation idempotent.
func (r Repo) TaskTitlesForWeek(ctx context.Context, tx *sql.Tx, weekID string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT title_ja FROM tasks WHERE week_id=?`, weekID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	titles := map[string]bool{}
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles[title] = true
	}
	return titles, rows.Err()
}

type TaskUpdate struct {
	Status         *string
	Priority       *string
	AssigneeUserID *string
	TitleJA        *string
	BodyJA         *string
	Tag            *string
	DueAt          *string
}

func (r Repo) UpdateTaskTx(ctx context.Context, tx *sql.Tx, id string, u TaskUpdate, updatedBy, updatedAt string) error {
	var (
		fields []string
		args   []any
	)
	if u.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, *u.Status)
	}
	if u.Priority != nil {
		fields = append(fields, "priority=?")
		args = append(args, *u.Priority)
	}
	if u.AssigneeUserID != nil {
		fields = append(fields, "assignee_user_id=?")
		args = append(args, nullable(*u.AssigneeUserID))
	}
	if u.TitleJA != nil {
		// Editing the source title invalidates the translation.
		fields = append(fields, "title_ja=?", "needs_retranslate=1")
		args = append(args, *u.TitleJA)
	}
	if u.BodyJA != nil {
		fields = append(fields, "body_ja=?", "needs_retranslate=1")
		args = append(args, nullable(*u.BodyJA))
	}
	if u.Tag != nil {
		fields = append(fields, "tag=?")
		args = append(args, nullable(*u.Tag))
	}
	if u.DueAt != nil {
		fields = append(fields, "due_at=?")
		args = append(args, *u.DueAt)
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_by=?", "updated_at=?")
	args = append(args, updatedBy, updatedAt, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE tasks SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateTaskDueAtTx(ctx context.Context, tx *sql.Tx, id, dueAt, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET due_at=?, updated_at=? WHERE id=?`, dueAt, updatedAt, id)
	return err
}

func (r Repo) SetTaskTranslationTx(ctx context.Context, tx *sql.Tx, id string, titleFR, bodyFR *string, translatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET title_fr=?, body_fr=?, translated_at=?, needs_retranslate=0 WHERE id=?`,
		nullablePtr(titleFR), nullablePtr(bodyFR), translatedAt, id)
	return err
}

func (r Repo) MarkTaskNeedsRetranslateTx(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET needs_retranslate=1 WHERE id=?`, id)
	return err
}

func (r Repo) DeleteTaskTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

const checklistCols = `id,task_id,text_ja,text_fr,assignee_user_id,due_at,is_done,done_by,done_at,sort_order,created_at,updated_at,translated_at,needs_retranslate`

func scanChecklistRow(scan func(dest ...any) error) (domain.ChecklistItem, error) {
	var c domain.ChecklistItem
	var textFR, dueAt, doneBy, doneAt, translatedAt sql.NullString
	var isDone, needsRetranslate int
	err := scan(&c.ID, &c.TaskID, &c.TextJA, &textFR, &c.AssigneeUserID, &dueAt, &isDone, &doneBy, &doneAt,
		&c.SortOrder, &c.CreatedAt, &c.UpdatedAt, &translatedAt, &needsRetranslate)
	if err != nil {
		return c, err
	}
	c.TextFR = ptrFromNull(textFR)
	c.DueAt = ptrFromNull(dueAt)
	c.DoneBy = ptrFromNull(doneBy)
	c.DoneAt = ptrFromNull(doneAt)
	c.TranslatedAt = ptrFromNull(translatedAt)
	c.IsDone = isDone != 0
	c.NeedsRetranslate = needsRetranslate != 0
	return c, nil
}

func (r Repo) InsertChecklistItemTx(ctx context.Context, tx *sql.Tx, c domain.ChecklistItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO checklist_items(`+checklistCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.TaskID, c.TextJA, nullablePtr(c.TextFR), c.AssigneeUserID, nullablePtr(c.DueAt), boolInt(c.IsDone),
		nullablePtr(c.DoneBy), nullablePtr(c.DoneAt), c.SortOrder, c.CreatedAt, c.UpdatedAt,
		nullablePtr(c.TranslatedAt), boolInt(c.NeedsRetranslate))
	return err
}

func (r Repo) GetChecklistItem(ctx context.Context, id string) (domain.ChecklistItem, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+checklistCols+` FROM checklist_items WHERE id=?`, id)
	c, err := scanChecklistRow(row.Scan)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListChecklistItems(ctx context.Context, taskID string) ([]domain.ChecklistItem, error) {
	return r.queryChecklist(ctx, `SELECT `+checklistCols+` FROM checklist_items WHERE task_id=? ORDER BY sort_order ASC`, taskID)
}

// ListChecklistItemsForUser returns a user's open items across all tasks,
// soonest due first. Items without a due date sort last.
func (r Repo) ListChecklistItemsForUser(ctx context.Context, userID string) ([]domain.ChecklistItem, error) {
	return r.queryChecklist(ctx, `SELECT `+checklistCols+` FROM checklist_items WHERE assignee_user_id=? AND is_done=0 ORDER BY due_at IS NULL, due_at ASC, sort_order ASC`, userID)
}

func (r Repo) queryChecklist(ctx context.Context, q string, args ...any) ([]domain.ChecklistItem, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ChecklistItem
	for rows.Next() {
		c, err := scanChecklistRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) SetChecklistDoneTx(ctx context.Context, tx *sql.Tx, id string, done bool, doneBy, doneAt, updatedAt string) error {
	var res sql.Result
	var err error
	if done {
		res, err = tx.ExecContext(ctx, `UPDATE checklist_items SET is_done=1, done_by=?, done_at=?, updated_at=? WHERE id=?`,
			doneBy, doneAt, updatedAt, id)
	} else {
		res, err = tx.ExecContext(ctx, `UPDATE checklist_items SET is_done=0, done_by=NULL, done_at=NULL, updated_at=? WHERE id=?`,
			updatedAt, id)
	}
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetChecklistTranslationTx(ctx context.Context, tx *sql.Tx, id string, textFR *string, translatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE checklist_items SET text_fr=?, translated_at=?, needs_retranslate=0 WHERE id=?`,
		nullablePtr(textFR), translatedAt, id)
	return err
}

func (r Repo) MarkChecklistNeedsRetranslateTx(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE checklist_items SET needs_retranslate=1 WHERE id=?`, id)
	return err
}

// ShiftChecklistDueAtTx moves the due date of every not-done item of a task.
// Done items keep their historical timestamps.
func (r Repo) ShiftChecklistDueAtTx(ctx context.Context, tx *sql.Tx, taskID, dueAt, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE checklist_items SET due_at=?, updated_at=? WHERE task_id=? AND is_done=0`,
		dueAt, updatedAt, taskID)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullablePtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func ptrFromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

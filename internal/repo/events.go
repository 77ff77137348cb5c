package repo

import (
	"context"
	"database/sql"
	"strings"

	"cadence/internal/domain"
)

type EventFilters struct {
	Type   string
	TaskID string
	Limit  int
}

// ListEvents returns the newest events first.
func (r Repo) ListEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "event_type=?")
		args = append(args, f.Type)
	}
	if f.TaskID != "" {
		where = append(where, "task_id=?")
		args = append(args, f.TaskID)
	}
	q := `SELECT id,ts,event_type,user_id,task_id,checklist_item_id,payload_json FROM event_logs`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, f.Limit)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var userID, taskID, itemID sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &userID, &taskID, &itemID, &e.Payload); err != nil {
			return nil, err
		}
		e.UserID = userID.String
		e.TaskID = taskID.String
		e.ChecklistItemID = itemID.String
		res = append(res, e)
	}
	return res, rows.Err()
}

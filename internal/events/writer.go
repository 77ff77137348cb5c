package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types recorded in the log.
const (
	TypeTaskCreated             = "task_created"
	TypeTaskUpdated             = "task_updated"
	TypeTaskDeleted             = "task_deleted"
	TypeTemplateGenerated       = "template_generated"
	TypeTemplateInitialized     = "template_initialized"
	TypeScheduleExceptionSet    = "schedule_exception_changed"
	TypeTranslationFailed       = "translation_failed"
	TypeTranslationRetried      = "translation_retried"
	TypeChecklistChecked        = "checklist_checked"
	TypeChecklistUnchecked      = "checklist_unchecked"
	TypeChecklistSkipped        = "checklist_skipped"
	TypeCommentCreated          = "comment_created"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append records an event inside the caller's transaction.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, userID, taskID, checklistItemID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO event_logs(ts,event_type,user_id,task_id,checklist_item_id,payload_json) VALUES (?,?,?,?,?,?)`,
		ts, evtType, nullable(userID), nullable(taskID), nullable(checklistItemID), string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

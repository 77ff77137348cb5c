package engine

import (
	"context"
	"database/sql"
	"time"

	"cadence/internal/events"
)

// RetryResult reports one retranslation sweep.
type RetryResult struct {
	Tasks          int `json:"tasks"`
	ChecklistItems int `json:"checklist_items"`
	Comments       int `json:"comments"`
	Failed         int `json:"failed"`
}

// RetryTranslations walks every row flagged needs_retranslate and tries the
// translator again. Rows that fail again simply keep the flag; the sweep
// itself only errors on storage problems.
func (e Engine) RetryTranslations(ctx context.Context, requestedBy string) (RetryResult, error) {
	var res RetryResult

	taskRows, err := e.DB.QueryContext(ctx, `SELECT id,title_ja,COALESCE(body_ja,''),COALESCE(title_fr,'') FROM tasks WHERE needs_retranslate=1`)
	if err != nil {
		return res, err
	}
	type taskRow struct{ id, title, body, titleFR string }
	var tasks []taskRow
	for taskRows.Next() {
		var t taskRow
		if err := taskRows.Scan(&t.id, &t.title, &t.body, &t.titleFR); err != nil {
			taskRows.Close()
			return res, err
		}
		tasks = append(tasks, t)
	}
	taskRows.Close()

	for _, t := range tasks {
		// A title that already made it through is kept as-is; only the
		// missing pieces go back to the translator.
		titleFR, terr := &t.titleFR, error(nil)
		if t.titleFR == "" {
			titleFR, terr = e.translatePtr(ctx, t.title)
		}
		var bodyFR *string
		if terr == nil && t.body != "" {
			bodyFR, terr = e.translatePtr(ctx, t.body)
		}
		if terr != nil {
			res.Failed++
			continue
		}
		if err := e.retryCommit(ctx, requestedBy, t.id, "", func(tx txExec) error {
			return e.Repo.SetTaskTranslationTx(ctx, tx.tx, t.id, titleFR, bodyFR, tx.now)
		}); err != nil {
			return res, err
		}
		res.Tasks++
	}

	itemRows, err := e.DB.QueryContext(ctx, `SELECT id,task_id,text_ja FROM checklist_items WHERE needs_retranslate=1`)
	if err != nil {
		return res, err
	}
	type itemRow struct{ id, taskID, text string }
	var items []itemRow
	for itemRows.Next() {
		var it itemRow
		if err := itemRows.Scan(&it.id, &it.taskID, &it.text); err != nil {
			itemRows.Close()
			return res, err
		}
		items = append(items, it)
	}
	itemRows.Close()

	for _, it := range items {
		textFR, terr := e.translatePtr(ctx, it.text)
		if terr != nil {
			res.Failed++
			continue
		}
		if err := e.retryCommit(ctx, requestedBy, it.taskID, it.id, func(tx txExec) error {
			return e.Repo.SetChecklistTranslationTx(ctx, tx.tx, it.id, textFR, tx.now)
		}); err != nil {
			return res, err
		}
		res.ChecklistItems++
	}

	commentRows, err := e.DB.QueryContext(ctx, `SELECT id,task_id,body_ja FROM comments WHERE needs_retranslate=1`)
	if err != nil {
		return res, err
	}
	type commentRow struct{ id, taskID, body string }
	var comments []commentRow
	for commentRows.Next() {
		var c commentRow
		if err := commentRows.Scan(&c.id, &c.taskID, &c.body); err != nil {
			commentRows.Close()
			return res, err
		}
		comments = append(comments, c)
	}
	commentRows.Close()

	for _, c := range comments {
		bodyFR, terr := e.translatePtr(ctx, c.body)
		if terr != nil {
			res.Failed++
			continue
		}
		if err := e.retryCommit(ctx, requestedBy, c.taskID, "", func(tx txExec) error {
			return e.Repo.SetCommentTranslationTx(ctx, tx.tx, c.id, bodyFR, tx.now)
		}); err != nil {
			return res, err
		}
		res.Comments++
	}
	return res, nil
}

type txExec struct {
	tx  *sql.Tx
	now string
}

// retryCommit wraps one successful retranslation in its own transaction so a
// later failure cannot roll back stored translations.
func (e Engine) retryCommit(ctx context.Context, requestedBy, taskID, itemID string, apply func(txExec) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := e.now().UTC().Format(time.RFC3339)
	if err := apply(txExec{tx: tx, now: now}); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TypeTranslationRetried, requestedBy, taskID, itemID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

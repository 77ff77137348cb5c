package repo

import (
	"context"
	"database/sql"

	"cadence/internal/domain"
)

const commentCols = `id,task_id,author_user_id,body_ja,body_fr,created_at,translated_at,needs_retranslate`

func scanCommentRow(scan func(dest ...any) error) (domain.Comment, error) {
	var c domain.Comment
	var bodyFR, translatedAt sql.NullString
	var needsRetranslate int
	err := scan(&c.ID, &c.TaskID, &c.AuthorUserID, &c.BodyJA, &bodyFR, &c.CreatedAt, &translatedAt, &needsRetranslate)
	if err != nil {
		return c, err
	}
	c.BodyFR = ptrFromNull(bodyFR)
	c.TranslatedAt = ptrFromNull(translatedAt)
	c.NeedsRetranslate = needsRetranslate != 0
	return c, nil
}

func (r Repo) InsertCommentTx(ctx context.Context, tx *sql.Tx, c domain.Comment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO comments(`+commentCols+`) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.TaskID, c.AuthorUserID, c.BodyJA, nullablePtr(c.BodyFR), c.CreatedAt,
		nullablePtr(c.TranslatedAt), boolInt(c.NeedsRetranslate))
	return err
}

func (r Repo) GetComment(ctx context.Context, id string) (domain.Comment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+commentCols+` FROM comments WHERE id=?`, id)
	c, err := scanCommentRow(row.Scan)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListComments(ctx context.Context, taskID string) ([]domain.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+commentCols+` FROM comments WHERE task_id=? ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Comment
	for rows.Next() {
		c, err := scanCommentRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) SetCommentTranslationTx(ctx context.Context, tx *sql.Tx, id string, bodyFR *string, translatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE comments SET body_fr=?, translated_at=?, needs_retranslate=0 WHERE id=?`,
		nullablePtr(bodyFR), translatedAt, id)
	return err
}

package repo

import (
	"context"
	"database/sql"

	"cadence/internal/domain"
)

const glossaryCols = `id,ja_term,fr_term,note,created_at,updated_at`

func (r Repo) InsertGlossaryTerm(ctx context.Context, t domain.GlossaryTerm) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO glossary_terms(`+glossaryCols+`) VALUES (?,?,?,?,?,?)`,
		t.ID, t.JATerm, t.FRTerm, nullablePtr(t.Note), t.CreatedAt, t.UpdatedAt)
	return err
}

// UpsertGlossaryTerm inserts or replaces the translation for a JA term.
// Used when seeding the glossary from config.
func (r Repo) UpsertGlossaryTerm(ctx context.Context, t domain.GlossaryTerm) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO glossary_terms(`+glossaryCols+`) VALUES (?,?,?,?,?,?)
		ON CONFLICT(ja_term) DO UPDATE SET fr_term=excluded.fr_term, updated_at=excluded.updated_at`,
		t.ID, t.JATerm, t.FRTerm, nullablePtr(t.Note), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) GetGlossaryTerm(ctx context.Context, id string) (domain.GlossaryTerm, error) {
	var t domain.GlossaryTerm
	var note sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT `+glossaryCols+` FROM glossary_terms WHERE id=?`, id).
		Scan(&t.ID, &t.JATerm, &t.FRTerm, &note, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	t.Note = ptrFromNull(note)
	return t, err
}

func (r Repo) ListGlossaryTerms(ctx context.Context) ([]domain.GlossaryTerm, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+glossaryCols+` FROM glossary_terms ORDER BY ja_term ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.GlossaryTerm
	for rows.Next() {
		var t domain.GlossaryTerm
		var note sql.NullString
		if err := rows.Scan(&t.ID, &t.JATerm, &t.FRTerm, &note, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Note = ptrFromNull(note)
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) UpdateGlossaryTerm(ctx context.Context, id string, frTerm, note *string, updatedAt string) error {
	t, err := r.GetGlossaryTerm(ctx, id)
	if err != nil {
		return err
	}
	if frTerm != nil {
		t.FRTerm = *frTerm
	}
	if note != nil {
		t.Note = note
	}
	_, err = r.DB.ExecContext(ctx, `UPDATE glossary_terms SET fr_term=?, note=?, updated_at=? WHERE id=?`,
		t.FRTerm, nullablePtr(t.Note), updatedAt, id)
	return err
}

func (r Repo) DeleteGlossaryTerm(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM glossary_terms WHERE id=?`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

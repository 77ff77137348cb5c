package repo

import (
	"context"
	"database/sql"

	"cadence/internal/domain"
)

const userCols = `id,name,role,default_language,created_at,updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Role, &u.DefaultLanguage, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) InsertUser(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(`+userCols+`) VALUES (?,?,?,?,?,?)`,
		u.ID, u.Name, u.Role, u.DefaultLanguage, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=?`, id))
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Role, &u.DefaultLanguage, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// FirstUserByRole resolves a role placeholder to a concrete user. The
// lowest id wins so repeated generations pick the same person.
func (r Repo) FirstUserByRole(ctx context.Context, tx *sql.Tx, role string) (domain.User, error) {
	var u domain.User
	err := tx.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE role=? ORDER BY id ASC LIMIT 1`, role).
		Scan(&u.ID, &u.Name, &u.Role, &u.DefaultLanguage, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) UpdateUser(ctx context.Context, id string, name, role, lang *string, updatedAt string) error {
	u, err := r.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if name != nil {
		u.Name = *name
	}
	if role != nil {
		u.Role = *role
	}
	if lang != nil {
		u.DefaultLanguage = *lang
	}
	_, err = r.DB.ExecContext(ctx, `UPDATE users SET name=?, role=?, default_language=?, updated_at=? WHERE id=?`,
		u.Name, u.Role, u.DefaultLanguage, updatedAt, id)
	return err
}

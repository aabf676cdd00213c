package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/store"
)

const userColumns = `id, name, email, password_hash, role, verified, blocked, verify_code, verify_expires_at, reset_token_hash, reset_expires_at, last_login, created_at`

func (s *Store) CreateUser(ctx context.Context, u *model.User) (int64, error) {
	id, err := s.insert(ctx, `
INSERT INTO users (name, email, password_hash, role, verified, blocked, verify_code, verify_expires_at, reset_token_hash, reset_expires_at, last_login, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), boolToInt(u.Verified), boolToInt(u.Blocked),
		nullIfEmpty(u.VerifyCode), unixOrZero(u.VerifyExpiresAt), nullIfEmpty(u.ResetTokenHash), unixOrZero(u.ResetExpiresAt),
		nullableTime(u.LastLogin), u.CreatedAt.Unix())
	if err != nil {
		if s.isUniqueViolation(err) {
			return 0, store.ErrDuplicateEmail
		}
		return 0, err
	}
	u.ID = id
	return id, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (model.User, error) {
	return scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (s *Store) GetUserByResetToken(ctx context.Context, tokenHash string) (model.User, error) {
	return scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token_hash = ? LIMIT 1`, tokenHash))
}

func (s *Store) UpdateUser(ctx context.Context, u model.User) error {
	res, err := s.exec(ctx, s.db, `
UPDATE users SET name = ?, email = ?, password_hash = ?, role = ?, verified = ?, blocked = ?,
	verify_code = ?, verify_expires_at = ?, reset_token_hash = ?, reset_expires_at = ?, last_login = ?
WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), boolToInt(u.Verified), boolToInt(u.Blocked),
		nullIfEmpty(u.VerifyCode), unixOrZero(u.VerifyExpiresAt), nullIfEmpty(u.ResetTokenHash), unixOrZero(u.ResetExpiresAt),
		nullableTime(u.LastLogin), u.ID)
	if err != nil {
		if s.isUniqueViolation(err) {
			return store.ErrDuplicateEmail
		}
		return err
	}
	return requireRow(res)
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) DeleteAuthorCascade(ctx context.Context, userID int64, email string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		steps := []string{
			`DELETE FROM comments WHERE post_id IN (SELECT id FROM posts WHERE author_id = ?)`,
			`DELETE FROM posts WHERE author_id = ?`,
			`DELETE FROM comments WHERE user_id = ?`,
			`DELETE FROM activity WHERE user_id = ?`,
		}
		for _, q := range steps {
			if _, err := s.exec(ctx, tx, q, userID); err != nil {
				return err
			}
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM subscribers WHERE email = ?`, email); err != nil {
			return err
		}
		res, err := s.exec(ctx, tx, `DELETE FROM users WHERE id = ?`, userID)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (model.User, error) {
	var u model.User
	var role string
	var verified, blocked int
	var verifyCode, resetHash sql.NullString
	var verifyExpires, resetExpires, created int64
	var lastLogin sql.NullInt64
	if err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &verified, &blocked,
		&verifyCode, &verifyExpires, &resetHash, &resetExpires, &lastLogin, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	u.Role = model.Role(role)
	u.Verified = verified == 1
	u.Blocked = blocked == 1
	u.VerifyCode = verifyCode.String
	u.ResetTokenHash = resetHash.String
	u.VerifyExpiresAt = timeOrZero(verifyExpires)
	u.ResetExpiresAt = timeOrZero(resetExpires)
	if lastLogin.Valid {
		t := time.Unix(lastLogin.Int64, 0)
		u.LastLogin = &t
	}
	u.CreatedAt = time.Unix(created, 0)
	return u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

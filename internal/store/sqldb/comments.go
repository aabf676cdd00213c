package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/store"
)

const commentSelect = `
SELECT c.id, c.post_id, p.title, c.user_id, u.name, c.user_role, c.text, c.created_at
FROM comments c
LEFT JOIN posts p ON p.id = c.post_id
LEFT JOIN users u ON u.id = c.user_id`

func (s *Store) CreateComment(ctx context.Context, c *model.Comment) (int64, error) {
	id, err := s.insert(ctx, `
INSERT INTO comments (post_id, user_id, user_role, text, created_at)
VALUES (?, ?, ?, ?, ?)`, c.PostID, c.UserID, string(c.UserRole), c.Text, c.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

func (s *Store) GetComment(ctx context.Context, id int64) (model.Comment, error) {
	return scanComment(s.queryRow(ctx, commentSelect+` WHERE c.id = ?`, id))
}

func (s *Store) ListComments(ctx context.Context, opts store.CommentListOpts) ([]model.Comment, error) {
	var rows *sql.Rows
	var err error
	switch {
	case opts.PostID != 0:
		rows, err = s.query(ctx, commentSelect+` WHERE c.post_id = ? ORDER BY c.created_at ASC, c.id ASC`, opts.PostID)
	case opts.PostAuthorID != 0:
		rows, err = s.query(ctx, commentSelect+` WHERE p.author_id = ? ORDER BY c.created_at DESC, c.id DESC`, opts.PostAuthorID)
	default:
		rows, err = s.query(ctx, commentSelect+` ORDER BY c.created_at DESC, c.id DESC`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanComment(scanner interface{ Scan(dest ...any) error }) (model.Comment, error) {
	var c model.Comment
	var title, name sql.NullString
	var role string
	var created int64
	if err := scanner.Scan(&c.ID, &c.PostID, &title, &c.UserID, &name, &role, &c.Text, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, store.ErrNotFound
		}
		return model.Comment{}, err
	}
	c.PostTitle = title.String
	c.UserName = name.String
	c.UserRole = model.Role(role)
	c.CreatedAt = time.Unix(created, 0)
	return c, nil
}

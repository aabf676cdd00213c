package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/store"
)

const postSelect = `
SELECT p.id, p.title, p.description, p.content, p.thumbnail, p.category, p.author_id, u.name, p.author_role,
	p.published, p.views, p.viewers, p.read_time,
	(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id),
	p.created_at, p.updated_at
FROM posts p
LEFT JOIN users u ON u.id = p.author_id`

func (s *Store) CreatePost(ctx context.Context, p *model.Post) (int64, error) {
	viewers, err := encodeViewers(p.Viewers)
	if err != nil {
		return 0, err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	id, err := s.insert(ctx, `
INSERT INTO posts (title, description, content, thumbnail, category, author_id, author_role, published, views, viewers, read_time, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Description, p.Content, p.Thumbnail, p.Category, p.AuthorID, string(p.AuthorRole),
		boolToInt(p.Published), p.Views, viewers, p.ReadTime, p.CreatedAt.Unix(), p.UpdatedAt.Unix())
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (model.Post, error) {
	return scanPost(s.queryRow(ctx, postSelect+` WHERE p.id = ?`, id))
}

func (s *Store) SavePost(ctx context.Context, p model.Post) error {
	viewers, err := encodeViewers(p.Viewers)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, s.db, `
UPDATE posts SET title = ?, description = ?, content = ?, thumbnail = ?, category = ?, author_role = ?,
	published = ?, views = ?, viewers = ?, read_time = ?, updated_at = ?
WHERE id = ?`,
		p.Title, p.Description, p.Content, p.Thumbnail, p.Category, string(p.AuthorRole),
		boolToInt(p.Published), p.Views, viewers, p.ReadTime, p.UpdatedAt.Unix(), p.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ListPosts(ctx context.Context, opts store.PostListOpts) ([]model.Post, error) {
	var where []string
	var args []any
	if opts.PublishedOnly {
		where = append(where, "p.published = 1")
	}
	if opts.AuthorID != 0 {
		where = append(where, "p.author_id = ?")
		args = append(args, opts.AuthorID)
	}
	q := postSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY p.created_at DESC, p.id DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, clamp(opts.Limit, 1, 500))
	}

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
			return err
		}
		res, err := s.exec(ctx, tx, `DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (model.Post, error) {
	var p model.Post
	var authorName sql.NullString
	var role string
	var published int
	var viewersRaw sql.NullString
	var created, updated int64
	if err := scanner.Scan(&p.ID, &p.Title, &p.Description, &p.Content, &p.Thumbnail, &p.Category, &p.AuthorID,
		&authorName, &role, &published, &p.Views, &viewersRaw, &p.ReadTime, &p.CommentCount, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	p.AuthorName = authorName.String
	p.AuthorRole = model.Role(role)
	p.Published = published == 1
	if viewersRaw.Valid && viewersRaw.String != "" {
		if err := json.Unmarshal([]byte(viewersRaw.String), &p.Viewers); err != nil {
			return model.Post{}, err
		}
	}
	p.CreatedAt = time.Unix(created, 0)
	p.UpdatedAt = time.Unix(updated, 0)
	return p, nil
}

func encodeViewers(viewers []model.Viewer) (string, error) {
	if viewers == nil {
		viewers = []model.Viewer{}
	}
	b, err := json.Marshal(viewers)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

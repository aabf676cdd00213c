package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/store"
)

func (s *Store) AddActivity(ctx context.Context, a model.Activity) error {
	_, err := s.exec(ctx, s.db, `INSERT INTO activity (user_id, type, ip, created_at) VALUES (?, ?, ?, ?)`,
		a.UserID, a.Type, nullIfEmpty(a.IP), a.CreatedAt.Unix())
	return err
}

func (s *Store) ListActivity(ctx context.Context, userID int64, limit int) ([]model.Activity, error) {
	rows, err := s.query(ctx, `
SELECT id, user_id, type, ip, created_at FROM activity
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`, userID, clamp(limit, 1, 200))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		var a model.Activity
		var ip sql.NullString
		var created int64
		if err := rows.Scan(&a.ID, &a.UserID, &a.Type, &ip, &created); err != nil {
			return nil, err
		}
		a.IP = ip.String
		a.CreatedAt = time.Unix(created, 0)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateSubscriber(ctx context.Context, sub *model.Subscriber) (int64, error) {
	id, err := s.insert(ctx, `INSERT INTO subscribers (email, created_at) VALUES (?, ?)`, sub.Email, sub.CreatedAt.Unix())
	if err != nil {
		if s.isUniqueViolation(err) {
			return 0, store.ErrDuplicateSubscriber
		}
		return 0, err
	}
	sub.ID = id
	return id, nil
}

func (s *Store) ListSubscribers(ctx context.Context) ([]model.Subscriber, error) {
	rows, err := s.query(ctx, `SELECT id, email, created_at FROM subscribers ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Subscriber
	for rows.Next() {
		var sub model.Subscriber
		var created int64
		if err := rows.Scan(&sub.ID, &sub.Email, &created); err != nil {
			return nil, err
		}
		sub.CreatedAt = time.Unix(created, 0)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSubscriber(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM subscribers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats
	counts := []struct {
		dest  *int
		query string
	}{
		{&stats.Users, `SELECT COUNT(*) FROM users`},
		{&stats.Authors, `SELECT COUNT(*) FROM users WHERE role = 'author'`},
		{&stats.Readers, `SELECT COUNT(*) FROM users WHERE role = 'reader'`},
		{&stats.Posts, `SELECT COUNT(*) FROM posts`},
		{&stats.Published, `SELECT COUNT(*) FROM posts WHERE published = 1`},
		{&stats.Comments, `SELECT COUNT(*) FROM comments`},
		{&stats.Subscribers, `SELECT COUNT(*) FROM subscribers`},
		{&stats.Views, `SELECT COALESCE(SUM(views), 0) FROM posts`},
	}
	for _, c := range counts {
		if err := s.queryRow(ctx, c.query).Scan(c.dest); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return stats, err
		}
	}
	return stats, nil
}

var _ store.Store = (*Store)(nil)

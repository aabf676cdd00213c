// Package postgres opens the shared SQL store on PostgreSQL through lib/pq.
package postgres

import (
	"database/sql"
	"errors"

	"github.com/insightsphere/insightsphere/internal/store/sqldb"

	"github.com/lib/pq"
)

type Store struct {
	*sqldb.Store
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	st, err := sqldb.New(db, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: st}, nil
}

var Dialect = sqldb.Dialect{
	Name:              "postgres",
	Migrations:        migrations,
	Numbered:          true,
	IsUniqueViolation: isUniqueViolation,
}

var migrations = []string{
	// Migration 1: users, posts, comments
	`
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'reader',
	verified INTEGER NOT NULL DEFAULT 0,
	blocked INTEGER NOT NULL DEFAULT 0,
	verify_code TEXT,
	verify_expires_at BIGINT NOT NULL DEFAULT 0,
	reset_token_hash TEXT,
	reset_expires_at BIGINT NOT NULL DEFAULT 0,
	last_login BIGINT,
	created_at BIGINT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE INDEX IF NOT EXISTS idx_users_verify_code ON users(verify_code);
CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users(reset_token_hash);

CREATE TABLE IF NOT EXISTS posts (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	content TEXT NOT NULL,
	thumbnail TEXT NOT NULL,
	category TEXT NOT NULL,
	author_id BIGINT NOT NULL,
	author_role TEXT NOT NULL,
	published INTEGER NOT NULL DEFAULT 0,
	views INTEGER NOT NULL DEFAULT 0,
	viewers TEXT NOT NULL DEFAULT '[]',
	read_time INTEGER NOT NULL DEFAULT 1,
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts(author_id);

CREATE TABLE IF NOT EXISTS comments (
	id BIGSERIAL PRIMARY KEY,
	post_id BIGINT NOT NULL REFERENCES posts(id),
	user_id BIGINT NOT NULL,
	user_role TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
`,
	// Migration 2: activity log and newsletter
	`
CREATE TABLE IF NOT EXISTS activity (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	type TEXT NOT NULL,
	ip TEXT,
	created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_user ON activity(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS subscribers (
	id BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL,
	created_at BIGINT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_subscribers_email ON subscribers(email);
`,
}

func isUniqueViolation(err error) bool {
	var perr *pq.Error
	if errors.As(err, &perr) {
		return perr.Code.Name() == "unique_violation"
	}
	return false
}

package store

import (
	"context"
	"errors"

	"github.com/insightsphere/insightsphere/internal/model"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateEmail      = errors.New("duplicate email")
	ErrDuplicateSubscriber = errors.New("duplicate subscriber")
)

type PostListOpts struct {
	PublishedOnly bool
	AuthorID      int64
	Limit         int
}

type CommentListOpts struct {
	PostID       int64
	PostAuthorID int64
}

type Store interface {
	UserStore
	PostStore
	CommentStore
	ActivityStore
	SubscriberStore
	DashboardStats(ctx context.Context) (model.DashboardStats, error)
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByResetToken(ctx context.Context, tokenHash string) (model.User, error)
	UpdateUser(ctx context.Context, user model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)
	// DeleteAuthorCascade removes the user with their posts, the comments on
	// those posts, their own comments and the newsletter entry for email, in
	// one transaction.
	DeleteAuthorCascade(ctx context.Context, userID int64, email string) error
}

type PostStore interface {
	CreatePost(ctx context.Context, post *model.Post) (int64, error)
	GetPost(ctx context.Context, id int64) (model.Post, error)
	// SavePost persists the mutable fields of post, including views and viewers.
	SavePost(ctx context.Context, post model.Post) error
	ListPosts(ctx context.Context, opts PostListOpts) ([]model.Post, error)
	DeletePost(ctx context.Context, id int64) error
}

type CommentStore interface {
	CreateComment(ctx context.Context, comment *model.Comment) (int64, error)
	GetComment(ctx context.Context, id int64) (model.Comment, error)
	ListComments(ctx context.Context, opts CommentListOpts) ([]model.Comment, error)
	DeleteComment(ctx context.Context, id int64) error
}

type ActivityStore interface {
	AddActivity(ctx context.Context, activity model.Activity) error
	ListActivity(ctx context.Context, userID int64, limit int) ([]model.Activity, error)
}

type SubscriberStore interface {
	CreateSubscriber(ctx context.Context, sub *model.Subscriber) (int64, error)
	ListSubscribers(ctx context.Context) ([]model.Subscriber, error)
	DeleteSubscriber(ctx context.Context, id int64) error
}

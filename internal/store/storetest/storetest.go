// Package storetest holds behaviour checks shared by every store.Store backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/store"
)

// Run exercises st. Each backend calls it from its own tests with a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("PostViewers", func(t *testing.T) { testPostViewers(t, newStore(t)) })
	t.Run("Listings", func(t *testing.T) { testListings(t, newStore(t)) })
	t.Run("Cascade", func(t *testing.T) { testCascade(t, newStore(t)) })
	t.Run("Subscribers", func(t *testing.T) { testSubscribers(t, newStore(t)) })
}

func mustUser(t *testing.T, st store.Store, email string, role model.Role) model.User {
	t.Helper()
	u := model.User{Name: email, Email: email, PasswordHash: "x", Role: role, Verified: true, CreatedAt: time.Now()}
	if _, err := st.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func mustPost(t *testing.T, st store.Store, author model.User, published bool) model.Post {
	t.Helper()
	p := model.Post{
		Title:       "Post by " + author.Name,
		Description: "A description long enough to pass.",
		Content:     "<p>hello</p>",
		Thumbnail:   "/uploads/a.jpg",
		Category:    "Tech",
		AuthorID:    author.ID,
		AuthorRole:  author.Role,
		Published:   published,
		ReadTime:    1,
		CreatedAt:   time.Now(),
	}
	if _, err := st.CreatePost(context.Background(), &p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func mustComment(t *testing.T, st store.Store, post model.Post, user model.User) model.Comment {
	t.Helper()
	c := model.Comment{PostID: post.ID, UserID: user.ID, UserRole: user.Role, Text: "hi", CreatedAt: time.Now()}
	if _, err := st.CreateComment(context.Background(), &c); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}

func testUsers(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	u := mustUser(t, st, "alice@example.com", model.RoleAuthor)
	dup := model.User{Name: "a", Email: "alice@example.com", PasswordHash: "x", Role: model.RoleReader, CreatedAt: time.Now()}
	if _, err := st.CreateUser(ctx, &dup); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	u.VerifyCode = "123456"
	u.VerifyExpiresAt = time.Now().Add(time.Hour)
	now := time.Now()
	u.LastLogin = &now
	if err := st.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update user: %v", err)
	}
	got, err := st.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != u.ID || got.LastLogin == nil || got.Role != model.RoleAuthor || got.VerifyCode != "123456" {
		t.Fatalf("unexpected user %+v", got)
	}
	if _, err := st.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := st.AddActivity(ctx, model.Activity{UserID: u.ID, Type: model.ActivityLogin, IP: "1.2.3.4", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("add activity: %v", err)
	}
	acts, err := st.ListActivity(ctx, u.ID, 10)
	if err != nil || len(acts) != 1 || acts[0].Type != model.ActivityLogin {
		t.Fatalf("unexpected activity %+v err=%v", acts, err)
	}
}

func testPostViewers(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	author := mustUser(t, st, "author@example.com", model.RoleAuthor)
	post := mustPost(t, st, author, true)

	viewedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	post.Views = 2
	post.Viewers = []model.Viewer{{UserID: 9, ViewedAt: viewedAt}, {IP: "10.0.0.1", ViewedAt: viewedAt}}
	if err := st.SavePost(ctx, post); err != nil {
		t.Fatalf("save post: %v", err)
	}

	got, err := st.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Views != 2 || len(got.Viewers) != 2 {
		t.Fatalf("unexpected views %d viewers %+v", got.Views, got.Viewers)
	}
	if got.Viewers[0].UserID != 9 || got.Viewers[1].IP != "10.0.0.1" || !got.Viewers[1].ViewedAt.Equal(viewedAt) {
		t.Fatalf("viewers not round-tripped: %+v", got.Viewers)
	}
	if got.AuthorName != author.Name {
		t.Fatalf("expected author name %q, got %q", author.Name, got.AuthorName)
	}

	if err := st.SavePost(ctx, model.Post{ID: 99999}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound saving missing post, got %v", err)
	}
}

func testListings(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	a := mustUser(t, st, "a@example.com", model.RoleAuthor)
	b := mustUser(t, st, "b@example.com", model.RoleAuthor)
	reader := mustUser(t, st, "r@example.com", model.RoleReader)
	pa := mustPost(t, st, a, true)
	mustPost(t, st, a, false)
	pb := mustPost(t, st, b, true)
	mustComment(t, st, pa, reader)
	mustComment(t, st, pb, reader)

	published, err := st.ListPosts(ctx, store.PostListOpts{PublishedOnly: true})
	if err != nil || len(published) != 2 {
		t.Fatalf("expected 2 published posts, got %d err=%v", len(published), err)
	}
	mine, err := st.ListPosts(ctx, store.PostListOpts{AuthorID: a.ID})
	if err != nil || len(mine) != 2 {
		t.Fatalf("expected 2 posts for author, got %d err=%v", len(mine), err)
	}

	onA, err := st.ListComments(ctx, store.CommentListOpts{PostAuthorID: a.ID})
	if err != nil || len(onA) != 1 || onA[0].PostTitle != pa.Title {
		t.Fatalf("unexpected author comments %+v err=%v", onA, err)
	}
	all, err := st.ListComments(ctx, store.CommentListOpts{})
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 comments, got %d err=%v", len(all), err)
	}

	withCount, _ := st.GetPost(ctx, pa.ID)
	if withCount.CommentCount != 1 {
		t.Fatalf("expected comment count 1, got %d", withCount.CommentCount)
	}

	stats, err := st.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Users != 3 || stats.Authors != 2 || stats.Readers != 1 || stats.Posts != 3 || stats.Published != 2 || stats.Comments != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func testCascade(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	author := mustUser(t, st, "c@example.com", model.RoleAuthor)
	reader := mustUser(t, st, "d@example.com", model.RoleReader)
	p1 := mustPost(t, st, author, true)
	p2 := mustPost(t, st, author, true)
	c1 := mustComment(t, st, p1, reader)
	mustComment(t, st, p2, reader)

	if err := st.DeleteComment(ctx, c1.ID); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	if _, err := st.GetComment(ctx, c1.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("comment still present: %v", err)
	}
	if err := st.DeleteComment(ctx, c1.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	if err := st.DeletePost(ctx, p1.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}

	own := mustPost(t, st, reader, true)
	readerComment := mustComment(t, st, own, author)
	sub := model.Subscriber{Email: author.Email, CreatedAt: time.Now()}
	if _, err := st.CreateSubscriber(ctx, &sub); err != nil {
		t.Fatalf("create subscriber: %v", err)
	}

	// An unknown user aborts the whole cascade.
	if err := st.DeleteAuthorCascade(ctx, author.ID+1000, author.Email); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if subs, _ := st.ListSubscribers(ctx); len(subs) != 1 {
		t.Fatalf("subscriber removed by a failed cascade")
	}

	if err := st.DeleteAuthorCascade(ctx, author.ID, author.Email); err != nil {
		t.Fatalf("delete author cascade: %v", err)
	}
	if _, err := st.GetUser(ctx, author.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("user still present: %v", err)
	}
	if _, err := st.GetPost(ctx, p2.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("post still present: %v", err)
	}
	if _, err := st.GetComment(ctx, readerComment.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("author's comment still present: %v", err)
	}
	left, _ := st.ListComments(ctx, store.CommentListOpts{})
	if len(left) != 0 {
		t.Fatalf("expected comments removed with posts, got %d", len(left))
	}
	if subs, _ := st.ListSubscribers(ctx); len(subs) != 0 {
		t.Fatalf("subscriber still present")
	}
	if _, err := st.GetPost(ctx, own.ID); err != nil {
		t.Fatalf("other user's post removed: %v", err)
	}
}

func testSubscribers(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()

	sub := model.Subscriber{Email: "s@example.com", CreatedAt: time.Now()}
	if _, err := st.CreateSubscriber(ctx, &sub); err != nil {
		t.Fatalf("create subscriber: %v", err)
	}
	again := model.Subscriber{Email: "s@example.com", CreatedAt: time.Now()}
	if _, err := st.CreateSubscriber(ctx, &again); !errors.Is(err, store.ErrDuplicateSubscriber) {
		t.Fatalf("expected ErrDuplicateSubscriber, got %v", err)
	}
	if err := st.DeleteSubscriber(ctx, sub.ID); err != nil {
		t.Fatalf("delete subscriber: %v", err)
	}
	if err := st.DeleteSubscriber(ctx, sub.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

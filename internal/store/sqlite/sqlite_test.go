package sqlite

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/store"
	"github.com/insightsphere/insightsphere/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	st, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st
}

func TestStoreBehaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newTestStore(t) })
}

func TestMigrationsApplied(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	v, err := st.Version(context.Background())
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != len(migrations) {
		t.Fatalf("expected version %d, got %d", len(migrations), v)
	}

	// Reopening the same database must not re-run migrations.
	again, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if v2, _ := again.Version(context.Background()); v2 != v {
		t.Fatalf("expected version %d after reopen, got %d", v, v2)
	}
}

func TestEmptyViewersDecode(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()

	p := model.Post{
		Title:      "Fresh post",
		AuthorID:   1,
		AuthorRole: model.RoleAdmin,
		CreatedAt:  time.Now(),
	}
	id, err := st.CreatePost(context.Background(), &p)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	got, err := st.GetPost(context.Background(), id)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.Views != 0 || len(got.Viewers) != 0 {
		t.Fatalf("expected no views, got %d %+v", got.Views, got.Viewers)
	}
}

package blog

import (
	"testing"
	"time"

	"github.com/insightsphere/insightsphere/internal/model"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func view(post *model.Post, id model.Identity, at time.Time) bool {
	if !ShouldCountView(*post, id, at) {
		return false
	}
	RecordView(post, id, at)
	return true
}

func TestViewDedupScenario(t *testing.T) {
	post := model.Post{}
	user := model.Identity{UserID: 7}

	steps := []struct {
		offset time.Duration
		counts bool
		views  int
	}{
		{0, true, 1},
		{10 * time.Minute, false, 1},
		{31 * time.Minute, true, 2},
	}
	for _, step := range steps {
		got := view(&post, user, epoch.Add(step.offset))
		if got != step.counts {
			t.Fatalf("at +%s: expected counted=%v, got %v", step.offset, step.counts, got)
		}
		if post.Views != step.views {
			t.Fatalf("at +%s: expected views %d, got %d", step.offset, step.views, post.Views)
		}
	}
}

func TestSecondViewWithinWindowSkipped(t *testing.T) {
	ids := []model.Identity{{UserID: 1}, {UserID: 42}, {IP: "10.0.0.1"}, {IP: "::1"}}
	for _, id := range ids {
		post := model.Post{}
		if !view(&post, id, epoch) {
			t.Fatalf("%+v: first view not counted", id)
		}
		if ShouldCountView(post, id, epoch.Add(ViewWindow-time.Second)) {
			t.Fatalf("%+v: repeat view inside window counted", id)
		}
		if !ShouldCountView(post, id, epoch.Add(ViewWindow)) {
			t.Fatalf("%+v: view at window boundary not counted", id)
		}
	}
}

func TestUserAndAnonymousTrackedIndependently(t *testing.T) {
	post := model.Post{}
	if !view(&post, model.Identity{UserID: 3}, epoch) {
		t.Fatalf("user view not counted")
	}
	if !view(&post, model.Identity{IP: "192.168.1.5"}, epoch.Add(time.Minute)) {
		t.Fatalf("anonymous view from new ip not counted")
	}
	if view(&post, model.Identity{IP: "192.168.1.5"}, epoch.Add(2*time.Minute)) {
		t.Fatalf("repeat anonymous view counted")
	}
	if !view(&post, model.Identity{UserID: 4}, epoch.Add(3*time.Minute)) {
		t.Fatalf("second user not counted")
	}
	if post.Views != 3 {
		t.Fatalf("expected 3 views, got %d", post.Views)
	}
}

func TestAnonymousDoesNotMatchUserRecord(t *testing.T) {
	post := model.Post{Viewers: []model.Viewer{{UserID: 9, IP: "10.1.1.1", ViewedAt: epoch}}}
	if !ShouldCountView(post, model.Identity{IP: "10.1.1.1"}, epoch.Add(time.Minute)) {
		t.Fatalf("anonymous view matched an authenticated record")
	}
}

func TestRecordViewPrunesStaleViewers(t *testing.T) {
	post := model.Post{
		Views: 2,
		Viewers: []model.Viewer{
			{UserID: 1, ViewedAt: epoch.Add(-8 * 24 * time.Hour)},
			{IP: "10.0.0.2", ViewedAt: epoch.Add(-ViewerRetention)},
			{UserID: 2, ViewedAt: epoch.Add(-time.Hour)},
		},
	}
	RecordView(&post, model.Identity{UserID: 5}, epoch)

	if post.Views != 3 {
		t.Fatalf("expected 3 views, got %d", post.Views)
	}
	if len(post.Viewers) != 2 {
		t.Fatalf("expected 2 viewers after prune, got %d: %+v", len(post.Viewers), post.Viewers)
	}
	for _, v := range post.Viewers {
		if !v.ViewedAt.After(epoch.Add(-ViewerRetention)) {
			t.Fatalf("stale viewer kept: %+v", v)
		}
	}
	last := post.Viewers[len(post.Viewers)-1]
	if last.UserID != 5 || !last.ViewedAt.Equal(epoch) {
		t.Fatalf("unexpected appended viewer %+v", last)
	}
}

func TestSkippedViewDoesNotPrune(t *testing.T) {
	post := model.Post{Viewers: []model.Viewer{
		{UserID: 1, ViewedAt: epoch.Add(-30 * 24 * time.Hour)},
		{UserID: 2, ViewedAt: epoch.Add(-time.Minute)},
	}}
	if view(&post, model.Identity{UserID: 2}, epoch) {
		t.Fatalf("repeat view counted")
	}
	if len(post.Viewers) != 2 {
		t.Fatalf("expected viewers untouched, got %d", len(post.Viewers))
	}
}

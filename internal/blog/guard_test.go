package blog

import (
	"testing"

	"github.com/insightsphere/insightsphere/internal/model"
)

func TestCanDelete(t *testing.T) {
	own := model.Post{AuthorID: 10}
	other := model.Post{AuthorID: 11}
	byAuthor := model.Comment{UserRole: model.RoleAuthor}
	byReader := model.Comment{UserRole: model.RoleReader}
	byAdmin := model.Comment{UserRole: model.RoleAdmin}

	tests := []struct {
		name    string
		role    model.Role
		id      int64
		post    model.Post
		comment model.Comment
		want    bool
	}{
		{"admin on any post", model.RoleAdmin, 99, other, byAdmin, true},
		{"admin with zero id", model.RoleAdmin, 0, model.Post{}, model.Comment{}, true},
		{"author own post author comment", model.RoleAuthor, 10, own, byAuthor, true},
		{"author own post reader comment", model.RoleAuthor, 10, own, byReader, true},
		{"author own post admin comment", model.RoleAuthor, 10, own, byAdmin, false},
		{"author other post", model.RoleAuthor, 10, other, byReader, false},
		{"reader", model.RoleReader, 10, own, byReader, false},
		{"unknown role", model.Role("guest"), 10, own, byReader, false},
	}
	for _, tt := range tests {
		if got := CanDelete(tt.role, tt.id, tt.post, tt.comment); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestCanManagePost(t *testing.T) {
	post := model.Post{AuthorID: 4}
	if !CanManagePost(model.RoleAdmin, 1, post) {
		t.Fatalf("admin should manage any post")
	}
	if !CanManagePost(model.RoleAuthor, 4, post) {
		t.Fatalf("author should manage own post")
	}
	if CanManagePost(model.RoleAuthor, 5, post) {
		t.Fatalf("author managed someone else's post")
	}
	if CanManagePost(model.RoleReader, 4, post) {
		t.Fatalf("reader managed a post")
	}
}

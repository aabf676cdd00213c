package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/insightsphere/insightsphere/internal/model"
)

func TestClientNew(t *testing.T) {
	c := New("https://example.com")

	if c.BaseURL != "https://example.com" {
		t.Errorf("expected base URL 'https://example.com', got '%s'", c.BaseURL)
	}
	if c.HTTPClient == nil || c.HTTPClient.Jar == nil {
		t.Error("expected http client with cookie jar")
	}
	if c.IsAuthenticated() {
		t.Error("expected new client to not be authenticated")
	}
}

func TestLoginStoresToken(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "secret-pass" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"success":false,"message":"invalid credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"token":"tok","user":{"id":3,"role":"author"}}`))
		case "/api/blog/AllBlogs":
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"success":true,"blogs":[{"id":9,"title":"Hello"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := New(ts.URL)
	ctx := context.Background()

	_, err := c.Login(ctx, "a@example.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Message != "invalid credentials" {
		t.Fatalf("expected api error, got %v", err)
	}

	user, err := c.Login(ctx, "a@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != 3 || user.Role != model.RoleAuthor || !c.IsAuthenticated() {
		t.Fatalf("unexpected login result %+v", user)
	}

	posts, err := c.ListPosts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 1 || posts[0].Title != "Hello" {
		t.Fatalf("unexpected posts %+v", posts)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
}

func TestDeleteCommentSendsPostID(t *testing.T) {
	var gotPath, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer ts.Close()

	if err := New(ts.URL).DeleteComment(context.Background(), 4, 17); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotPath != "/api/blog/author/comments/17" || gotQuery != "blogId=4" {
		t.Fatalf("unexpected request %s?%s", gotPath, gotQuery)
	}
}

// Package client provides a Go client for the InsightSphere API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/insightsphere/insightsphere/internal/model"
)

// Client is an InsightSphere API client. It keeps the session cookie in a jar
// and also sends the login token as a bearer header.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	// Header is added to every request.
	Header http.Header
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// New creates a new client for baseURL.
func New(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second, Jar: jar},
		Header:     http.Header{},
	}
}

// PostInput is the body of a new post.
type PostInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	Thumbnail   string     `json:"thumbnail"`
	Category    string     `json:"category"`
	AuthorRole  model.Role `json:"authorRole,omitempty"`
	Published   bool       `json:"isPublished"`
}

func (c *Client) Signup(ctx context.Context, name, email, password string, role model.Role) (model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	body := map[string]any{"name": name, "email": email, "password": password}
	if role != "" {
		body["role"] = role
	}
	err := c.do(ctx, http.MethodPost, "/api/signup", body, &out)
	return out.User, err
}

func (c *Client) VerifyEmail(ctx context.Context, email, code string) (model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/verify-email", map[string]string{"email": email, "code": code}, &out)
	return out.User, err
}

// Login starts a session and remembers its token.
func (c *Client) Login(ctx context.Context, email, password string) (model.User, error) {
	var out struct {
		User  model.User `json:"user"`
		Token string     `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{"email": email, "password": password}, &out); err != nil {
		return model.User{}, err
	}
	c.Token = out.Token
	return out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	c.Token = ""
	return err
}

// IsAuthenticated reports whether the client holds a session token.
func (c *Client) IsAuthenticated() bool {
	return c.Token != ""
}

func (c *Client) CreatePost(ctx context.Context, in PostInput) (model.Post, error) {
	var out struct {
		Blog model.Post `json:"blog"`
	}
	err := c.do(ctx, http.MethodPost, "/api/blog/addblog", in, &out)
	return out.Blog, err
}

// GetPost fetches a post with its comments. Each call may count as a view.
func (c *Client) GetPost(ctx context.Context, id int64) (model.Post, []model.Comment, error) {
	var out struct {
		Blog     model.Post      `json:"blog"`
		Comments []model.Comment `json:"comments"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/blog/BlogId/%d", id), nil, &out)
	return out.Blog, out.Comments, err
}

// ListPosts returns published posts, newest first.
func (c *Client) ListPosts(ctx context.Context) ([]model.Post, error) {
	var out struct {
		Blogs []model.Post `json:"blogs"`
	}
	err := c.do(ctx, http.MethodGet, "/api/blog/AllBlogs", nil, &out)
	return out.Blogs, err
}

func (c *Client) AddComment(ctx context.Context, postID int64, text string) (model.Comment, error) {
	var out struct {
		Comment model.Comment `json:"comment"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/blog/blogs/%d/comments", postID), map[string]string{"text": text}, &out)
	return out.Comment, err
}

// DeleteComment removes a comment through the author moderation route.
func (c *Client) DeleteComment(ctx context.Context, postID, commentID int64) error {
	q := url.Values{"blogId": {fmt.Sprint(postID)}}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/blog/author/comments/%d?%s", commentID, q.Encode()), nil, nil)
}

// AdminDeleteComment removes any comment. Requires an admin session.
func (c *Client) AdminDeleteComment(ctx context.Context, commentID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/blog/admin/comments/%d", commentID), nil, nil)
}

func (c *Client) Subscribe(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/newsletter/subscribe", map[string]string{"email": email}, nil)
}

// do performs a request and decodes a successful envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &env) != nil || env.Message == "" {
			env.Message = string(respBody)
		}
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAuthor Role = "author"
	RoleReader Role = "reader"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAuthor, RoleReader:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// Identity identifies a viewer. Exactly one of UserID and IP is set.
type Identity struct {
	UserID int64
	IP     string
}

func (i Identity) Anonymous() bool {
	return i.UserID == 0
}

type Viewer struct {
	UserID   int64     `json:"user,omitempty"`
	IP       string    `json:"ip,omitempty"`
	ViewedAt time.Time `json:"viewedAt"`
}

type Post struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Content      string    `json:"content"`
	Thumbnail    string    `json:"thumbnail"`
	Category     string    `json:"category"`
	AuthorID     int64     `json:"authorId"`
	AuthorName   string    `json:"authorName,omitempty"`
	AuthorRole   Role      `json:"authorRole"`
	Published    bool      `json:"isPublished"`
	Views        int       `json:"views"`
	Viewers      []Viewer  `json:"-"`
	ReadTime     int       `json:"readTime"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"blogId"`
	PostTitle string    `json:"blogTitle,omitempty"`
	UserID    int64     `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	UserRole  Role      `json:"authorRole"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Role            Role       `json:"role"`
	Verified        bool       `json:"isVerified"`
	Blocked         bool       `json:"isBlocked"`
	VerifyCode      string     `json:"-"`
	VerifyExpiresAt time.Time  `json:"-"`
	ResetTokenHash  string     `json:"-"`
	ResetExpiresAt  time.Time  `json:"-"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

const (
	ActivitySignup = "signup"
	ActivityLogin  = "login"
	ActivityLogout = "logout"
)

type Activity struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Type      string    `json:"type"`
	IP        string    `json:"ip,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}

type Subscriber struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"subscribedAt"`
}

type DashboardStats struct {
	Users       int `json:"totalUsers"`
	Authors     int `json:"totalAuthors"`
	Readers     int `json:"totalReaders"`
	Posts       int `json:"totalBlogs"`
	Published   int `json:"publishedBlogs"`
	Comments    int `json:"totalComments"`
	Subscribers int `json:"totalSubscribers"`
	Views       int `json:"totalViews"`
}

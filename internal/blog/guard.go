package blog

import "github.com/insightsphere/insightsphere/internal/model"

// CanDelete reports whether the requester may delete comment on post.
// Authors may moderate their own posts but never an admin's comment.
func CanDelete(role model.Role, requesterID int64, post model.Post, comment model.Comment) bool {
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleAuthor:
		return post.AuthorID == requesterID && comment.UserRole != model.RoleAdmin
	default:
		return false
	}
}

// CanManagePost reports whether the requester may delete or publish post.
func CanManagePost(role model.Role, requesterID int64, post model.Post) bool {
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleAuthor:
		return post.AuthorID == requesterID
	default:
		return false
	}
}

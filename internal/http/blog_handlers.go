package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/insightsphere/insightsphere/internal/blog"
	"github.com/insightsphere/insightsphere/internal/log"
	"github.com/insightsphere/insightsphere/internal/mail"
	"github.com/insightsphere/insightsphere/internal/media"
	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/store"
)

// handleListPublished godoc
//
//	@Summary	List published posts
//	@Tags		Blogs
//	@Produce	json
//	@Param		limit	query		int	false	"Maximum posts returned"
//	@Success	200		{object}	map[string]interface{}	"Posts, newest first"
//	@Router		/api/blog/AllBlogs [get]
func (s *Server) handleListPublished(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context(), store.PostListOpts{
		PublishedOnly: true,
		Limit:         parseIntDefault(r.URL.Query().Get("limit"), 0),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"blogs": nonNilPosts(posts)})
}

// handleGetPost godoc
//
//	@Summary		Get a post
//	@Description	Returns a post with its comments. A view is counted at most once per reader every 30 minutes.
//	@Tags			Blogs
//	@Produce		json
//	@Param			id	path		int	true	"Post ID"
//	@Success		200	{object}	map[string]interface{}	"Post and comments"
//	@Failure		404	{object}	map[string]interface{}	"Post not found"
//	@Router			/api/blog/BlogId/{id} [get]
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := r.Context()
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		s.postLookupFailed(w, r, err)
		return
	}

	viewer := s.optionalAuth(r)
	if !post.Published {
		if viewer == nil || !blog.CanManagePost(viewer.Role, viewer.ID, post) {
			writeError(w, http.StatusNotFound, errors.New("blog not found"))
			return
		}
	}

	identity := model.Identity{IP: s.clientIP(r)}
	if viewer != nil {
		identity = model.Identity{UserID: viewer.ID}
	}
	now := s.now()
	if blog.ShouldCountView(post, identity, now) {
		blog.RecordView(&post, identity, now)
		if err := s.store.SavePost(ctx, post); err != nil {
			log.Warn.Printf("record view on post %d: %v", post.ID, err)
		}
		s.stats.Count(1, "views.counted")
	} else {
		s.stats.Count(1, "views.skipped")
	}

	comments, err := s.store.ListComments(ctx, store.CommentListOpts{PostID: post.ID})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"blog": post, "comments": nonNilComments(comments)})
}

type postInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	Thumbnail   string     `json:"thumbnail"`
	Category    string     `json:"category"`
	AuthorRole  model.Role `json:"authorRole"`
	Published   bool       `json:"isPublished"`
}

// handleCreatePost godoc
//
//	@Summary		Create a post
//	@Description	Accepts JSON, or multipart with a "blog" JSON field and an optional "thumbnail" image file.
//	@Description	Authors are always stored with role author. Publishing notifies newsletter subscribers.
//	@Tags			Blogs
//	@Accept			json,mpfd
//	@Produce		json
//	@Security		CookieAuth
//	@Param			blog		body		object{title=string,description=string,content=string,thumbnail=string,category=string,authorRole=string,isPublished=bool}	true	"Post data"
//	@Success		201			{object}	map[string]interface{}	"Created post"
//	@Failure		400			{object}	map[string]interface{}	"Validation error"
//	@Failure		403			{object}	map[string]interface{}	"Readers cannot post"
//	@Router			/api/blog/addblog [post]
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireRole(w, r, model.RoleAdmin, model.RoleAuthor)
	if !ok {
		return
	}

	var in postInput
	uploaded := ""
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(media.MaxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid form: %w", err))
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("blog")), &in); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid blog field: %w", err))
			return
		}
		if file, _, err := r.FormFile("thumbnail"); err == nil {
			url, err := s.media.SaveThumbnail(file)
			file.Close()
			if err != nil {
				s.fail(w, r, err)
				return
			}
			in.Thumbnail = url
			uploaded = url
		}
	} else if err := readJSON(r.Body, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	now := s.now()
	post := model.Post{
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		Thumbnail:   in.Thumbnail,
		Category:    in.Category,
		AuthorID:    user.ID,
		AuthorName:  user.Name,
		AuthorRole:  postRole(user.Role, in.AuthorRole),
		Published:   in.Published,
		ReadTime:    blog.ReadTime(in.Content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := blog.ValidatePost(&post); err != nil {
		s.discardUpload(uploaded)
		s.fail(w, r, err)
		return
	}
	if _, err := s.store.CreatePost(r.Context(), &post); err != nil {
		s.discardUpload(uploaded)
		s.fail(w, r, err)
		return
	}
	s.stats.Count(1, "posts.created")
	if post.Published {
		s.notifySubscribers(r.Context(), post)
	}
	writeOK(w, http.StatusCreated, "Blog created successfully", map[string]any{"blog": post})
}

// postRole picks the role a new post is attributed to. Authors cannot present
// as admins; admins may present as authors.
func postRole(userRole, requested model.Role) model.Role {
	if userRole != model.RoleAdmin {
		return model.RoleAuthor
	}
	if requested == model.RoleAuthor {
		return model.RoleAuthor
	}
	return model.RoleAdmin
}

func (s *Server) discardUpload(url string) {
	if url == "" {
		return
	}
	if err := s.media.Remove(url); err != nil {
		log.Warn.Printf("remove upload %s: %v", url, err)
	}
}

func (s *Server) notifySubscribers(ctx context.Context, post model.Post) {
	subs, err := s.store.ListSubscribers(ctx)
	if err != nil {
		log.Error.Printf("list subscribers for post %d: %v", post.ID, err)
		return
	}
	if len(subs) == 0 {
		return
	}
	emails := make([]string, 0, len(subs))
	for _, sub := range subs {
		emails = append(emails, sub.Email)
	}
	thumb := post.Thumbnail
	if strings.HasPrefix(thumb, "/") {
		thumb = s.cfg.ClientURL + thumb
	}
	url := fmt.Sprintf("%s/blog/%d", s.cfg.ClientURL, post.ID)
	msg, err := mail.NewPost(emails, post.Title, post.Description, thumb, url)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		log.Error.Printf("notify %d subscribers of post %d: %v", len(emails), post.ID, err)
		return
	}
	s.stats.Count(len(emails), "newsletter.sent")
}

// handleAdminPosts godoc
//
//	@Summary	All posts
//	@Tags		Admin
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	map[string]interface{}
//	@Failure	403	{object}	map[string]interface{}	"Admins only"
//	@Router		/api/blog/admin/blogs [get]
func (s *Server) handleAdminPosts(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, model.RoleAdmin); !ok {
		return
	}
	posts, err := s.store.ListPosts(r.Context(), store.PostListOpts{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"blogs": nonNilPosts(posts)})
}

// handleAuthorPosts godoc
//
//	@Summary	Own posts
//	@Tags		Author
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	map[string]interface{}
//	@Router		/api/blog/author/blogs [get]
func (s *Server) handleAuthorPosts(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireRole(w, r, model.RoleAuthor)
	if !ok {
		return
	}
	posts, err := s.store.ListPosts(r.Context(), store.PostListOpts{AuthorID: user.ID})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"blogs": nonNilPosts(posts)})
}

// deletePostAs godoc
//
//	@Summary	Delete a post
//	@Tags		Admin,Author
//	@Produce	json
//	@Security	CookieAuth
//	@Param		id	path		int	true	"Post ID"
//	@Success	200	{object}	map[string]interface{}
//	@Failure	403	{object}	map[string]interface{}	"Not your post"
//	@Failure	404	{object}	map[string]interface{}	"Post not found"
//	@Router		/api/blog/admin/blogs/{id} [delete]
//	@Router		/api/blog/author/blogs/{id} [delete]
func (s *Server) deletePostAs(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.requireRole(w, r, role)
		if !ok {
			return
		}
		post, ok := s.managedPost(w, r, user)
		if !ok {
			return
		}
		if err := s.store.DeletePost(r.Context(), post.ID); err != nil {
			s.fail(w, r, err)
			return
		}
		if strings.HasPrefix(post.Thumbnail, media.URLPrefix) {
			s.discardUpload(post.Thumbnail)
		}
		writeOK(w, http.StatusOK, "Blog deleted successfully", nil)
	}
}

// togglePublishAs godoc
//
//	@Summary		Publish or unpublish a post
//	@Description	Flips the published flag. Publishing notifies newsletter subscribers.
//	@Tags			Admin,Author
//	@Produce		json
//	@Security		CookieAuth
//	@Param			id	path		int	true	"Post ID"
//	@Success		200	{object}	map[string]interface{}
//	@Failure		403	{object}	map[string]interface{}	"Not your post"
//	@Failure		404	{object}	map[string]interface{}	"Post not found"
//	@Router			/api/blog/admin/blogs/{id}/publish [patch]
//	@Router			/api/blog/author/blogs/{id}/publish [patch]
func (s *Server) togglePublishAs(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.requireRole(w, r, role)
		if !ok {
			return
		}
		post, ok := s.managedPost(w, r, user)
		if !ok {
			return
		}
		post.Published = !post.Published
		post.UpdatedAt = s.now()
		if err := s.store.SavePost(r.Context(), post); err != nil {
			s.fail(w, r, err)
			return
		}
		if post.Published {
			s.notifySubscribers(r.Context(), post)
		}
		msg := "Blog unpublished successfully"
		if post.Published {
			msg = "Blog published successfully"
		}
		writeOK(w, http.StatusOK, msg, map[string]any{"blog": post})
	}
}

// managedPost loads the {id} post and checks user may manage it.
func (s *Server) managedPost(w http.ResponseWriter, r *http.Request, user model.User) (model.Post, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return model.Post{}, false
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.postLookupFailed(w, r, err)
		return model.Post{}, false
	}
	if !blog.CanManagePost(user.Role, user.ID, post) {
		writeError(w, http.StatusForbidden, errors.New("you can only manage your own blogs"))
		return model.Post{}, false
	}
	return post, true
}

// handleAddComment godoc
//
//	@Summary		Comment on a post
//	@Description	The comment records the commenter's role for later moderation.
//	@Tags			Comments
//	@Accept			json
//	@Produce		json
//	@Security		CookieAuth
//	@Param			id		path		int					true	"Post ID"
//	@Param			body	body		object{text=string}	true	"Comment"
//	@Success		201		{object}	map[string]interface{}
//	@Failure		400		{object}	map[string]interface{}	"Empty comment"
//	@Failure		404		{object}	map[string]interface{}	"Post not found"
//	@Failure		429		{object}	map[string]interface{}	"Rate limited"
//	@Router			/api/blog/blogs/{id}/comments [post]
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if !s.allowRateLimit(w, r, "comment", s.cfg.RateLimits.Comment, s.cfg.RateLimits.CommentWindow) {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := blog.ValidateComment(req.Text); err != nil {
		s.fail(w, r, err)
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.postLookupFailed(w, r, err)
		return
	}
	if !post.Published && !blog.CanManagePost(user.Role, user.ID, post) {
		writeError(w, http.StatusNotFound, errors.New("blog not found"))
		return
	}

	comment := model.Comment{
		PostID:    post.ID,
		PostTitle: post.Title,
		UserID:    user.ID,
		UserName:  user.Name,
		UserRole:  user.Role,
		Text:      strings.TrimSpace(req.Text),
		CreatedAt: s.now(),
	}
	if _, err := s.store.CreateComment(r.Context(), &comment); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Comment added successfully", map[string]any{"comment": comment})
}

// handleAdminComments godoc
//
//	@Summary	All comments
//	@Tags		Admin
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	map[string]interface{}
//	@Router		/api/blog/admin/comments [get]
func (s *Server) handleAdminComments(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, model.RoleAdmin); !ok {
		return
	}
	comments, err := s.store.ListComments(r.Context(), store.CommentListOpts{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"comments": nonNilComments(comments)})
}

// handleAuthorComments godoc
//
//	@Summary	Comments on own posts
//	@Tags		Author
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	map[string]interface{}
//	@Router		/api/blog/author/comments [get]
func (s *Server) handleAuthorComments(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireRole(w, r, model.RoleAuthor)
	if !ok {
		return
	}
	comments, err := s.store.ListComments(r.Context(), store.CommentListOpts{PostAuthorID: user.ID})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"comments": nonNilComments(comments)})
}

// handleAdminDeleteComment godoc
//
//	@Summary	Delete any comment
//	@Tags		Admin
//	@Produce	json
//	@Security	CookieAuth
//	@Param		commentId	path		int	true	"Comment ID"
//	@Success	200			{object}	map[string]interface{}
//	@Failure	404			{object}	map[string]interface{}	"Comment not found"
//	@Router		/api/blog/admin/comments/{commentId} [delete]
func (s *Server) handleAdminDeleteComment(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireRole(w, r, model.RoleAdmin)
	if !ok {
		return
	}
	s.deleteComment(w, r, user, 0)
}

// handleAuthorDeleteComment godoc
//
//	@Summary		Delete a comment on an own post
//	@Description	Authors may remove comments on their posts, except comments written by an admin.
//	@Tags			Author
//	@Produce		json
//	@Security		CookieAuth
//	@Param			commentId	path		int	true	"Comment ID"
//	@Param			blogId		query		int	true	"Post the comment belongs to"
//	@Success		200			{object}	map[string]interface{}
//	@Failure		400			{object}	map[string]interface{}	"Missing blogId"
//	@Failure		403			{object}	map[string]interface{}	"Not allowed"
//	@Failure		404			{object}	map[string]interface{}	"Post or comment not found"
//	@Router			/api/blog/author/comments/{commentId} [delete]
func (s *Server) handleAuthorDeleteComment(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireRole(w, r, model.RoleAuthor)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("blogId")
	if raw == "" {
		writeError(w, http.StatusBadRequest, errors.New("blogId is required"))
		return
	}
	postID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || postID <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("invalid blogId"))
		return
	}
	s.deleteComment(w, r, user, postID)
}

// deleteComment resolves the post and comment, 404ing on either, then asks
// blog.CanDelete. A zero postID means the comment's own post.
func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request, user model.User, postID int64) {
	ctx := r.Context()
	commentID, err := pathID(r, "commentId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if postID != 0 {
		if _, err := s.store.GetPost(ctx, postID); err != nil {
			s.postLookupFailed(w, r, err)
			return
		}
	}
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("comment not found"))
			return
		}
		s.fail(w, r, err)
		return
	}
	if postID != 0 && comment.PostID != postID {
		writeError(w, http.StatusNotFound, errors.New("comment not found"))
		return
	}
	post, err := s.store.GetPost(ctx, comment.PostID)
	if err != nil {
		s.postLookupFailed(w, r, err)
		return
	}
	if !blog.CanDelete(user.Role, user.ID, post, comment) {
		writeError(w, http.StatusForbidden, errors.New("you are not allowed to delete this comment"))
		return
	}
	if err := s.store.DeleteComment(ctx, comment.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Comment deleted successfully", nil)
}

func (s *Server) postLookupFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, errors.New("blog not found"))
		return
	}
	s.fail(w, r, err)
}

func nonNilPosts(posts []model.Post) []model.Post {
	if posts == nil {
		return []model.Post{}
	}
	return posts
}

func nonNilComments(comments []model.Comment) []model.Comment {
	if comments == nil {
		return []model.Comment{}
	}
	return comments
}

package httpapp

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/insightsphere/insightsphere/internal/auth"
	"github.com/insightsphere/insightsphere/internal/log"
	"github.com/insightsphere/insightsphere/internal/mail"
	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/store"
)

// handleDashboard godoc
//
//	@Summary	Site statistics
//	@Tags		Admin
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	map[string]interface{}	"Totals and the five newest posts"
//	@Failure	403	{object}	map[string]interface{}	"Admins only"
//	@Router		/api/admin/dashboard [get]
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, model.RoleAdmin); !ok {
		return
	}
	stats, err := s.store.DashboardStats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	recent, err := s.store.ListPosts(r.Context(), store.PostListOpts{Limit: 5})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"stats": stats, "recentBlogs": nonNilPosts(recent)})
}

// handleListUsers godoc
//
//	@Summary	All users
//	@Tags		Admin
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	map[string]interface{}
//	@Router		/api/admin/users [get]
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, model.RoleAdmin); !ok {
		return
	}
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeOK(w, http.StatusOK, "", map[string]any{"users": users})
}

// handleToggleBlock godoc
//
//	@Summary		Block or unblock a user
//	@Description	Blocked users cannot log in and their sessions stop working.
//	@Tags			Admin
//	@Produce		json
//	@Security		CookieAuth
//	@Param			userId	path		int	true	"User ID"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		400		{object}	map[string]interface{}	"Cannot block yourself"
//	@Failure		404		{object}	map[string]interface{}	"User not found"
//	@Router			/api/admin/users/{userId}/toggle-block [patch]
func (s *Server) handleToggleBlock(w http.ResponseWriter, r *http.Request) {
	admin, ok := s.requireRole(w, r, model.RoleAdmin)
	if !ok {
		return
	}
	id, err := pathID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if id == admin.ID {
		writeError(w, http.StatusBadRequest, errors.New("you cannot block yourself"))
		return
	}
	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("user not found"))
			return
		}
		s.fail(w, r, err)
		return
	}
	user.Blocked = !user.Blocked
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.fail(w, r, err)
		return
	}
	msg := "User unblocked successfully"
	if user.Blocked {
		msg = "User blocked successfully"
	}
	writeOK(w, http.StatusOK, msg, map[string]any{"user": user})
}

// handleSubscribe godoc
//
//	@Summary	Subscribe to the newsletter
//	@Tags		Newsletter
//	@Accept		json
//	@Produce	json
//	@Param		body	body		object{email=string}	true	"Subscriber email"
//	@Success	201		{object}	map[string]interface{}
//	@Failure	400		{object}	map[string]interface{}	"Invalid email"
//	@Failure	409		{object}	map[string]interface{}	"Already subscribed"
//	@Router		/api/newsletter/subscribe [post]
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "subscribe", s.cfg.RateLimits.Subscribe, s.cfg.RateLimits.SubscribeWindow) {
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	email, err := auth.NormalizeEmail(req.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sub := model.Subscriber{Email: email, CreatedAt: s.now()}
	if _, err := s.store.CreateSubscriber(r.Context(), &sub); err != nil {
		if errors.Is(err, store.ErrDuplicateSubscriber) {
			writeError(w, http.StatusConflict, errors.New("this email is already subscribed"))
			return
		}
		s.fail(w, r, err)
		return
	}
	s.gaugeSubscribers(r.Context())
	msg, err := mail.Subscribed(email)
	if err == nil {
		err = s.mailer.Send(r.Context(), msg)
	}
	if err != nil {
		log.Error.Printf("subscription confirmation for %s: %v", email, err)
	}
	writeOK(w, http.StatusCreated, "Subscribed successfully", map[string]any{"subscriber": sub})
}

// handleListSubscribers godoc
//
//	@Summary	Newsletter subscribers
//	@Tags		Newsletter
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	map[string]interface{}
//	@Router		/api/newsletter/admin/subscribers [get]
func (s *Server) handleListSubscribers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, model.RoleAdmin); !ok {
		return
	}
	subs, err := s.store.ListSubscribers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if subs == nil {
		subs = []model.Subscriber{}
	}
	writeOK(w, http.StatusOK, "", map[string]any{"subscribers": subs})
}

// handleDeleteSubscriber godoc
//
//	@Summary	Remove a subscriber
//	@Tags		Newsletter
//	@Produce	json
//	@Security	CookieAuth
//	@Param		id	path		int	true	"Subscriber ID"
//	@Success	200	{object}	map[string]interface{}
//	@Failure	404	{object}	map[string]interface{}	"Subscriber not found"
//	@Router		/api/newsletter/admin/subscribers/{id} [delete]
func (s *Server) handleDeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, model.RoleAdmin); !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.DeleteSubscriber(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("subscriber not found"))
			return
		}
		s.fail(w, r, err)
		return
	}
	s.gaugeSubscribers(r.Context())
	writeOK(w, http.StatusOK, "Subscriber removed", nil)
}

func (s *Server) gaugeSubscribers(ctx context.Context) {
	subs, err := s.store.ListSubscribers(ctx)
	if err != nil {
		log.Warn.Printf("count subscribers: %v", err)
		return
	}
	s.stats.Gauge(strconv.Itoa(len(subs)), "newsletter.subscribers")
}

package httpapp

import (
	"errors"
	"net/http"

	"github.com/insightsphere/insightsphere/internal/log"
	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/store"

	"github.com/gorilla/mux"
)

// handleSignup godoc
//
//	@Summary		Register an account
//	@Description	Create an unverified author or reader account and email a six digit verification code.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			user	body		object{name=string,email=string,password=string,role=string}	true	"Account data (role: author or reader)"
//	@Success		201		{object}	map[string]interface{}	"Created user"
//	@Failure		400		{object}	map[string]interface{}	"Validation error"
//	@Failure		409		{object}	map[string]interface{}	"Email already registered"
//	@Router			/api/signup [post]
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string     `json:"name"`
		Email    string     `json:"email"`
		Password string     `json:"password"`
		Role     model.Role `json:"role"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := s.auth.Signup(r.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		if user.ID != 0 {
			log.Error.Printf("signup %s: %v", user.Email, err)
			writeError(w, http.StatusBadGateway, errors.New("account created but the verification email could not be sent, please request a new code"))
			return
		}
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "User registered successfully. Please check your email for the verification code.", map[string]any{"user": user})
}

// handleVerifyEmail godoc
//
//	@Summary		Verify email
//	@Description	Confirm an account with the code sent at signup.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		object{email=string,code=string}	true	"Email and code"
//	@Success		200		{object}	map[string]interface{}	"Verified user"
//	@Failure		400		{object}	map[string]interface{}	"Invalid or expired code"
//	@Router			/api/verify-email [post]
func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := s.auth.VerifyEmail(r.Context(), req.Email, req.Code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Email verified successfully", map[string]any{"user": user})
}

// handleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchange credentials for a session. The token is set as an httpOnly cookie and also returned for bearer use.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		object{email=string,password=string}	true	"Credentials"
//	@Success		200		{object}	map[string]interface{}	"User and token"
//	@Failure		400		{object}	map[string]interface{}	"Invalid credentials"
//	@Failure		403		{object}	map[string]interface{}	"Unverified or blocked"
//	@Failure		429		{object}	map[string]interface{}	"Rate limited"
//	@Router			/api/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "login", s.cfg.RateLimits.Login, s.cfg.RateLimits.LoginWindow) {
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	token, user, err := s.auth.Login(r.Context(), req.Email, req.Password, s.clientIP(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.setSessionCookie(w, token)
	writeOK(w, http.StatusOK, "Logged in successfully", map[string]any{"user": user, "token": token})
}

// handleLogout godoc
//
//	@Summary	Log out
//	@Tags		Auth
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Router		/api/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user := s.optionalAuth(r); user != nil {
		s.auth.Logout(r.Context(), user.ID, s.clientIP(r))
	}
	s.clearSessionCookie(w)
	writeOK(w, http.StatusOK, "Logged out successfully", nil)
}

// handleDeleteAccount godoc
//
//	@Summary		Delete own account
//	@Description	Authors only. Removes the account with its posts, comments and newsletter entry.
//	@Tags			Auth
//	@Produce		json
//	@Security		CookieAuth
//	@Success		200	{object}	map[string]interface{}
//	@Failure		401	{object}	map[string]interface{}	"Unauthorized"
//	@Failure		403	{object}	map[string]interface{}	"Not an author"
//	@Router			/api/delete-account [delete]
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if err := s.auth.DeleteAuthorAccount(r.Context(), user.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.clearSessionCookie(w)
	writeOK(w, http.StatusOK, "Account deleted successfully", nil)
}

// handleForgotPassword godoc
//
//	@Summary		Request a password reset
//	@Description	Always succeeds so registered addresses cannot be probed.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		object{email=string}	true	"Account email"
//	@Success		200		{object}	map[string]interface{}
//	@Failure		429		{object}	map[string]interface{}	"Rate limited"
//	@Router			/api/forget-password [post]
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "forgot", s.cfg.RateLimits.Forgot, s.cfg.RateLimits.ForgotWindow) {
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "If an account exists for this email, a password reset link has been sent", nil)
}

// handleResetPassword godoc
//
//	@Summary	Reset password
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		token	path		string					true	"Reset token from the emailed link"
//	@Param		body	body		object{password=string}	true	"New password"
//	@Success	200		{object}	map[string]interface{}
//	@Failure	400		{object}	map[string]interface{}	"Invalid or expired token"
//	@Router		/api/reset-password/{token} [post]
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.auth.ResetPassword(r.Context(), mux.Vars(r)["token"], req.Password); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Password reset successful", nil)
}

// handleResendVerification godoc
//
//	@Summary	Resend verification code
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		object{email=string}	true	"Account email"
//	@Success	200		{object}	map[string]interface{}
//	@Failure	400		{object}	map[string]interface{}	"Already verified"
//	@Failure	404		{object}	map[string]interface{}	"Unknown email"
//	@Router		/api/resend-verification-email [post]
func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.auth.ResendVerification(r.Context(), req.Email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("user not found"))
			return
		}
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Verification email sent", nil)
}

// handleCheckAuth godoc
//
//	@Summary	Current user
//	@Tags		Auth
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	map[string]interface{}
//	@Failure	401	{object}	map[string]interface{}	"Unauthorized"
//	@Router		/api/check-auth [get]
func (s *Server) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"user": user})
}

// handleCheckRole godoc
//
//	@Summary	Current user's role
//	@Tags		Auth
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	map[string]interface{}
//	@Failure	401	{object}	map[string]interface{}	"Unauthorized"
//	@Router		/api/check-role [get]
//	@Router		/api/blog/checkRole [get]
func (s *Server) handleCheckRole(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"role": user.Role})
}

// handleUserActivity godoc
//
//	@Summary	Recent sign-in activity
//	@Tags		Auth
//	@Produce	json
//	@Security	CookieAuth
//	@Success	200	{object}	map[string]interface{}
//	@Router		/api/user-activity [get]
func (s *Server) handleUserActivity(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	acts, err := s.auth.UserActivity(r.Context(), user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if acts == nil {
		acts = []model.Activity{}
	}
	writeOK(w, http.StatusOK, "", map[string]any{"activities": acts})
}

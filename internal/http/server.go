package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/insightsphere/insightsphere/internal/auth"
	"github.com/insightsphere/insightsphere/internal/blog"
	"github.com/insightsphere/insightsphere/internal/config"
	"github.com/insightsphere/insightsphere/internal/log"
	"github.com/insightsphere/insightsphere/internal/mail"
	"github.com/insightsphere/insightsphere/internal/media"
	"github.com/insightsphere/insightsphere/internal/metrics"
	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/rate"
	"github.com/insightsphere/insightsphere/internal/store"

	_ "github.com/insightsphere/insightsphere/docs" // swagger docs

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
	"sigs.k8s.io/yaml"
)

const tokenCookie = "token"

// Deps are the collaborators a Server is built from. Mailer, Media, Limiter
// and Now fall back to working defaults when left empty.
type Deps struct {
	Store   store.Store
	Auth    *auth.Service
	Limiter rate.Limiter
	Mailer  mail.Mailer
	Media   *media.Store
	Stats   metrics.PrefixStatter
	Config  config.Config
	Now     func() time.Time
}

type Server struct {
	store   store.Store
	auth    *auth.Service
	limiter rate.Limiter
	mailer  mail.Mailer
	media   *media.Store
	stats   metrics.PrefixStatter
	cfg     config.Config
	now     func() time.Time
	handler http.Handler
}

func NewServer(deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Auth == nil {
		return nil, errors.New("httpapp: store and auth service are required")
	}
	s := &Server{
		store:   deps.Store,
		auth:    deps.Auth,
		limiter: deps.Limiter,
		mailer:  deps.Mailer,
		media:   deps.Media,
		stats:   deps.Stats,
		cfg:     deps.Config,
		now:     deps.Now,
	}
	if s.limiter == nil {
		s.limiter = rate.NewMemory()
	}
	if s.mailer == nil {
		s.mailer = mail.LogMailer{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.media == nil {
		dir := s.cfg.UploadDir
		if dir == "" {
			dir = "uploads"
		}
		m, err := media.NewStore(dir)
		if err != nil {
			return nil, fmt.Errorf("upload dir: %w", err)
		}
		s.media = m
	}
	s.handler = s.withCORS(s.withRequestLog(s.routes()))
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { notFound(w) })
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { methodNotAllowed(w) })

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.instrument)

	api.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/verify-email", s.handleVerifyEmail).Methods(http.MethodPost)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/delete-account", s.handleDeleteAccount).Methods(http.MethodDelete)
	api.HandleFunc("/forget-password", s.handleForgotPassword).Methods(http.MethodPost)
	api.HandleFunc("/reset-password/{token}", s.handleResetPassword).Methods(http.MethodPost)
	api.HandleFunc("/resend-verification-email", s.handleResendVerification).Methods(http.MethodPost)
	api.HandleFunc("/check-auth", s.handleCheckAuth).Methods(http.MethodGet)
	api.HandleFunc("/check-role", s.handleCheckRole).Methods(http.MethodGet)
	api.HandleFunc("/user-activity", s.handleUserActivity).Methods(http.MethodGet)

	b := api.PathPrefix("/blog").Subrouter()
	b.HandleFunc("/AllBlogs", s.handleListPublished).Methods(http.MethodGet)
	b.HandleFunc("/BlogId/{id}", s.handleGetPost).Methods(http.MethodGet)
	b.HandleFunc("/addblog", s.handleCreatePost).Methods(http.MethodPost)
	b.HandleFunc("/checkRole", s.handleCheckRole).Methods(http.MethodGet)
	b.HandleFunc("/blogs/{id}/comments", s.handleAddComment).Methods(http.MethodPost)
	b.HandleFunc("/admin/blogs", s.handleAdminPosts).Methods(http.MethodGet)
	b.HandleFunc("/admin/blogs/{id}", s.deletePostAs(model.RoleAdmin)).Methods(http.MethodDelete)
	b.HandleFunc("/admin/blogs/{id}/publish", s.togglePublishAs(model.RoleAdmin)).Methods(http.MethodPatch)
	b.HandleFunc("/admin/comments", s.handleAdminComments).Methods(http.MethodGet)
	b.HandleFunc("/admin/comments/{commentId}", s.handleAdminDeleteComment).Methods(http.MethodDelete)
	b.HandleFunc("/author/blogs", s.handleAuthorPosts).Methods(http.MethodGet)
	b.HandleFunc("/author/blogs/{id}", s.deletePostAs(model.RoleAuthor)).Methods(http.MethodDelete)
	b.HandleFunc("/author/blogs/{id}/publish", s.togglePublishAs(model.RoleAuthor)).Methods(http.MethodPatch)
	b.HandleFunc("/author/comments", s.handleAuthorComments).Methods(http.MethodGet)
	b.HandleFunc("/author/comments/{commentId}", s.handleAuthorDeleteComment).Methods(http.MethodDelete)

	a := api.PathPrefix("/admin").Subrouter()
	a.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	a.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	a.HandleFunc("/users/{userId}/toggle-block", s.handleToggleBlock).Methods(http.MethodPatch)

	n := api.PathPrefix("/newsletter").Subrouter()
	n.HandleFunc("/subscribe", s.handleSubscribe).Methods(http.MethodPost)
	n.HandleFunc("/admin/subscribers", s.handleListSubscribers).Methods(http.MethodGet)
	n.HandleFunc("/admin/subscribers/{id}", s.handleDeleteSubscriber).Methods(http.MethodDelete)

	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) { notFound(w) })

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	r.HandleFunc("/openapi.json", s.serveOpenAPIJSON).Methods(http.MethodGet)
	r.HandleFunc("/openapi.yaml", s.serveOpenAPIYAML).Methods(http.MethodGet)
	r.PathPrefix(media.URLPrefix).Handler(http.StripPrefix(media.URLPrefix, http.FileServer(http.Dir(s.media.Dir))))
	if s.cfg.StaticDir != "" {
		r.PathPrefix("/").Handler(spaHandler{dir: s.cfg.StaticDir})
	}
	return r
}

func (s *Server) serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write([]byte(doc))
}

func (s *Server) serveOpenAPIYAML(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out, err := yaml.JSONToYAML([]byte(doc))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml; charset=utf-8")
	w.Write(out)
}

// spaHandler serves a built frontend, answering unknown paths with index.html
// so client-side routes survive a reload.
type spaHandler struct {
	dir string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}
	path := filepath.Join(h.dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		http.ServeFile(w, r, path)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
}

func (s *Server) allowRateLimit(w http.ResponseWriter, r *http.Request, action string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return true
	}
	if window <= 0 {
		window = time.Minute
	}
	key := fmt.Sprintf("%s:ip:%s", action, s.clientIP(r))
	if ok, retry := s.limiter.Allow(key, limit, window); !ok {
		s.stats.Count(1, "ratelimit."+action)
		writeRateLimit(w, retry)
		return false
	}
	return true
}

// sessionToken reads the session cookie, falling back to a bearer header.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

func (s *Server) optionalAuth(r *http.Request) *model.User {
	token := sessionToken(r)
	if token == "" {
		return nil
	}
	user, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		return nil
	}
	return &user
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	token := sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, errors.New("unauthorized - no token provided"))
		return model.User{}, false
	}
	user, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrBlocked) {
			writeError(w, http.StatusForbidden, err)
			return model.User{}, false
		}
		writeError(w, http.StatusUnauthorized, errors.New("unauthorized - invalid token"))
		return model.User{}, false
	}
	return user, true
}

// requireRole authenticates the request and checks the user holds one of roles.
func (s *Server) requireRole(w http.ResponseWriter, r *http.Request, roles ...model.Role) (model.User, bool) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return model.User{}, false
	}
	for _, role := range roles {
		if user.Role == role {
			return user, true
		}
	}
	writeError(w, http.StatusForbidden, errors.New("access denied - insufficient permissions"))
	return model.User{}, false
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.auth.TokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// fail maps a service or store error to its status and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, status, errors.New("internal server error"))
		return
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateSubscriber), errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrNotVerified), errors.Is(err, auth.ErrBlocked), errors.Is(err, auth.ErrNotAuthor):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrTokenMalformed), errors.Is(err, auth.ErrTokenSignature):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrInvalidResetToken),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrNameRequired),
		errors.Is(err, auth.ErrAlreadyVerified),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, media.ErrNotImage):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeOK writes a success envelope with message and any extra fields.
func writeOK(w http.ResponseWriter, status int, message string, fields map[string]any) {
	payload := map[string]any{"success": true}
	if message != "" {
		payload["message"] = message
	}
	for k, v := range fields {
		payload[k] = v
	}
	writeJSON(w, status, payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"success": false, "message": err.Error()})
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	secs := int(retry.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"success":    false,
		"message":    "too many requests, please try again later",
		"retryAfter": secs,
	})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func parseIntDefault(value string, def int) int {
	if value == "" {
		return def
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return def
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/insightsphere/insightsphere/internal/mail"
	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/store"
	"github.com/insightsphere/insightsphere/internal/store/sqlite"

	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	svc    *Service
	store  *sqlite.Store
	mailer *mail.Recorder
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	signer, err := NewTokenSigner("")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	f := &fixture{store: st, mailer: &mail.Recorder{}, now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	f.svc = NewService(st, signer, f.mailer, Options{
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
		ClientURL:  "http://localhost:5173",
	})
	f.svc.now = func() time.Time { return f.now }
	signer.now = func() time.Time { return f.now }
	return f
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func (f *fixture) signupVerified(t *testing.T, name, email string, role model.Role) model.User {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.Signup(ctx, name, email, "password123", role); err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	msg, ok := f.mailer.Last(email)
	if !ok {
		t.Fatalf("no verification mail for %s", email)
	}
	code := codePattern.FindString(msg.HTML)
	user, err := f.svc.VerifyEmail(ctx, email, code)
	if err != nil {
		t.Fatalf("verify %s: %v", email, err)
	}
	return user
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name, email, password string
		role                  model.Role
		want                  error
	}{
		{"", "a@example.com", "password123", "", ErrNameRequired},
		{"Ann", "not-an-email", "password123", "", ErrInvalidEmail},
		{"Ann", "a@example.com", "short", "", ErrWeakPassword},
		{"Ann", "a@example.com", "password123", model.RoleAdmin, ErrInvalidRole},
	}
	for _, c := range cases {
		if _, err := f.svc.Signup(ctx, c.name, c.email, c.password, c.role); !errors.Is(err, c.want) {
			t.Fatalf("signup(%q,%q): expected %v, got %v", c.name, c.email, c.want, err)
		}
	}

	user, err := f.svc.Signup(ctx, "Ann", "  Ann@Example.com ", "password123", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "ann@example.com" || user.Role != model.RoleAuthor || user.Verified {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, err := f.svc.Signup(ctx, "Ann", "ann@example.com", "password123", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestVerifyEmailExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Signup(ctx, "Ben", "ben@example.com", "password123", model.RoleReader); err != nil {
		t.Fatalf("signup: %v", err)
	}
	msg, _ := f.mailer.Last("ben@example.com")
	code := codePattern.FindString(msg.HTML)
	if code == "" {
		t.Fatalf("no code in mail")
	}
	if _, err := f.svc.VerifyEmail(ctx, "ben@example.com", "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for wrong code, got %v", err)
	}

	f.now = f.now.Add(25 * time.Hour)
	if _, err := f.svc.VerifyEmail(ctx, "ben@example.com", code); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for expired code, got %v", err)
	}

	if err := f.svc.ResendVerification(ctx, "ben@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	msg, _ = f.mailer.Last("ben@example.com")
	user, err := f.svc.VerifyEmail(ctx, "ben@example.com", codePattern.FindString(msg.HTML))
	if err != nil {
		t.Fatalf("verify after resend: %v", err)
	}
	if !user.Verified || user.VerifyCode != "" {
		t.Fatalf("unexpected user %+v", user)
	}
	if err := f.svc.ResendVerification(ctx, "ben@example.com"); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
	if welcome, _ := f.mailer.Last("ben@example.com"); welcome.Subject != "Welcome to InsightSphere" {
		t.Fatalf("expected welcome mail, got %q", welcome.Subject)
	}
}

func TestLoginOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.svc.Login(ctx, "ghost@example.com", "password123", "1.1.1.1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	if _, err := f.svc.Signup(ctx, "Cat", "cat@example.com", "password123", ""); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, _, err := f.svc.Login(ctx, "cat@example.com", "wrong-password", "1.1.1.1"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified before password check, got %v", err)
	}

	blocked := f.signupVerified(t, "Dan", "dan@example.com", model.RoleAuthor)
	blocked.Blocked = true
	if err := f.store.UpdateUser(ctx, blocked); err != nil {
		t.Fatalf("block: %v", err)
	}
	if _, _, err := f.svc.Login(ctx, "dan@example.com", "wrong-password", "1.1.1.1"); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}

	f.signupVerified(t, "Eve", "eve@example.com", model.RoleAuthor)
	if _, _, err := f.svc.Login(ctx, "eve@example.com", "wrong-password", "1.1.1.1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	token, user, err := f.svc.Login(ctx, "EVE@example.com", "password123", "1.1.1.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.LastLogin == nil {
		t.Fatalf("last login not recorded")
	}

	authed, err := f.svc.Authenticate(ctx, token)
	if err != nil || authed.ID != user.ID {
		t.Fatalf("authenticate: %+v %v", authed, err)
	}
	f.svc.Logout(ctx, user.ID, "1.1.1.1")
	acts, err := f.svc.UserActivity(ctx, user.ID)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(acts) < 2 || acts[0].Type != model.ActivityLogout {
		t.Fatalf("unexpected activity %+v", acts)
	}
}

func TestTokenExpiration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signupVerified(t, "Fay", "fay@example.com", model.RoleReader)

	token, _, err := f.svc.Login(ctx, "fay@example.com", "password123", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	f.now = f.now.Add(2 * time.Hour)
	if _, err := f.svc.Authenticate(ctx, token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected token expiration error, got %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signupVerified(t, "Gus", "gus@example.com", model.RoleAuthor)

	if err := f.svc.ForgotPassword(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email must succeed silently, got %v", err)
	}
	if err := f.svc.ForgotPassword(ctx, "gus@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	msg, _ := f.mailer.Last("gus@example.com")
	m := regexp.MustCompile(`http://localhost:5173/reset-password/([0-9a-f]{64})`).FindStringSubmatch(msg.HTML)
	if m == nil {
		t.Fatalf("reset link missing from %q", msg.HTML)
	}
	token := m[1]

	stored, _ := f.store.GetUserByEmail(ctx, "gus@example.com")
	if stored.ResetTokenHash == token || stored.ResetTokenHash == "" {
		t.Fatalf("reset token must be stored hashed")
	}

	if err := f.svc.ResetPassword(ctx, token, "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, "deadbeef", "newpassword1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, "newpassword1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, "newpassword2"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("token reused: %v", err)
	}
	if _, _, err := f.svc.Login(ctx, "gus@example.com", "newpassword1", ""); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestResetTokenExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signupVerified(t, "Hal", "hal@example.com", model.RoleAuthor)

	if err := f.svc.ForgotPassword(ctx, "hal@example.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	msg, _ := f.mailer.Last("hal@example.com")
	token := regexp.MustCompile(`reset-password/([0-9a-f]{64})`).FindStringSubmatch(msg.HTML)[1]

	f.now = f.now.Add(31 * time.Minute)
	if err := f.svc.ResetPassword(ctx, token, "newpassword1"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func TestDeleteAuthorAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.signupVerified(t, "Ivy", "ivy@example.com", model.RoleAuthor)
	reader := f.signupVerified(t, "Jon", "jon@example.com", model.RoleReader)

	post := model.Post{Title: "Ivy's post", AuthorID: author.ID, AuthorRole: model.RoleAuthor, CreatedAt: f.now}
	if _, err := f.store.CreatePost(ctx, &post); err != nil {
		t.Fatalf("create post: %v", err)
	}
	sub := model.Subscriber{Email: author.Email, CreatedAt: f.now}
	if _, err := f.store.CreateSubscriber(ctx, &sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := f.svc.DeleteAuthorAccount(ctx, reader.ID); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("expected ErrNotAuthor, got %v", err)
	}
	if err := f.svc.DeleteAuthorAccount(ctx, author.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.store.GetUser(ctx, author.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("author still present: %v", err)
	}
	if _, err := f.store.GetPost(ctx, post.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("post still present: %v", err)
	}
	subs, _ := f.store.ListSubscribers(ctx)
	if len(subs) != 0 {
		t.Fatalf("newsletter entry not removed: %+v", subs)
	}
}

func TestSeedAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.svc.SeedAdmin(ctx, "root@example.com", "adminpass1")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if admin.Role != model.RoleAdmin || !admin.Verified {
		t.Fatalf("unexpected admin %+v", admin)
	}
	again, err := f.svc.SeedAdmin(ctx, "root@example.com", "ignored-password")
	if err != nil || again.ID != admin.ID {
		t.Fatalf("reseed: %+v %v", again, err)
	}
	if _, _, err := f.svc.Login(ctx, "root@example.com", "adminpass1", ""); err != nil {
		t.Fatalf("admin login: %v", err)
	}

	reader := f.signupVerified(t, "Kim", "kim@example.com", model.RoleReader)
	promoted, err := f.svc.SeedAdmin(ctx, reader.Email, "")
	if err != nil || promoted.Role != model.RoleAdmin {
		t.Fatalf("promote: %+v %v", promoted, err)
	}
}

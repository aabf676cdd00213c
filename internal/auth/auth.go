package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/insightsphere/insightsphere/internal/log"
	"github.com/insightsphere/insightsphere/internal/mail"
	"github.com/insightsphere/insightsphere/internal/model"
	"github.com/insightsphere/insightsphere/internal/store"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/sha3"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("please verify your email before logging in")
	ErrBlocked            = errors.New("your account has been blocked, please contact an administrator")
	ErrInvalidCode        = errors.New("invalid or expired verification code")
	ErrInvalidResetToken  = errors.New("invalid or expired password reset token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters long")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrNameRequired       = errors.New("name is required")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrAlreadyVerified    = errors.New("this email is already verified")
	ErrNotAuthor          = errors.New("only authors can delete their accounts")
	ErrInvalidRole        = errors.New("role must be author or reader")
)

const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail lowercases and trims an address and checks its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

type Options struct {
	TokenTTL   time.Duration
	VerifyTTL  time.Duration
	ResetTTL   time.Duration
	BcryptCost int
	// ClientURL is the frontend base used in password reset links.
	ClientURL string
}

type Service struct {
	store  store.Store
	signer *TokenSigner
	mailer mail.Mailer
	opts   Options
	now    func() time.Time
}

func NewService(st store.Store, signer *TokenSigner, mailer mail.Mailer, opts Options) *Service {
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	if opts.VerifyTTL == 0 {
		opts.VerifyTTL = 24 * time.Hour
	}
	if opts.ResetTTL == 0 {
		opts.ResetTTL = 30 * time.Minute
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{store: st, signer: signer, mailer: mailer, opts: opts, now: time.Now}
}

// TokenTTL is the lifetime of tokens returned by Login.
func (s *Service) TokenTTL() time.Duration {
	return s.opts.TokenTTL
}

// Signup creates an unverified account and mails its verification code.
// An empty role defaults to author.
func (s *Service) Signup(ctx context.Context, name, email, password string, role model.Role) (model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.User{}, ErrNameRequired
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return model.User{}, err
	}
	if len(password) < MinPasswordLength {
		return model.User{}, ErrWeakPassword
	}
	if role == "" {
		role = model.RoleAuthor
	}
	if role != model.RoleAuthor && role != model.RoleReader {
		return model.User{}, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	code, err := verificationCode()
	if err != nil {
		return model.User{}, err
	}
	now := s.now()
	user := model.User{
		Name:            name,
		Email:           email,
		PasswordHash:    string(hash),
		Role:            role,
		VerifyCode:      code,
		VerifyExpiresAt: now.Add(s.opts.VerifyTTL),
		CreatedAt:       now,
	}
	if _, err := s.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, err
	}
	s.addActivity(ctx, user.ID, model.ActivitySignup, "")

	msg, err := mail.Verification(user.Email, user.Name, code)
	if err != nil {
		return user, err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return user, fmt.Errorf("send verification email: %w", err)
	}
	return user, nil
}

// VerifyEmail marks the account for email as verified when code matches and is unexpired.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (model.User, error) {
	code = strings.TrimSpace(code)
	email = strings.ToLower(strings.TrimSpace(email))
	if code == "" || email == "" {
		return model.User{}, ErrInvalidCode
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, ErrInvalidCode
		}
		return model.User{}, err
	}
	if user.VerifyCode == "" || subtle.ConstantTimeCompare([]byte(user.VerifyCode), []byte(code)) != 1 {
		return model.User{}, ErrInvalidCode
	}
	if !s.now().Before(user.VerifyExpiresAt) {
		return model.User{}, ErrInvalidCode
	}

	user.Verified = true
	user.VerifyCode = ""
	user.VerifyExpiresAt = time.Time{}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return model.User{}, err
	}
	s.sendBestEffort(ctx, "welcome", func() (mail.Message, error) { return mail.Welcome(user.Email, user.Name) })
	return user, nil
}

// Login checks credentials in the order: known email, verified, not blocked, password.
func (s *Service) Login(ctx context.Context, email, password, ip string) (string, model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", model.User{}, ErrInvalidCredentials
		}
		return "", model.User{}, err
	}
	if !user.Verified {
		return "", model.User{}, ErrNotVerified
	}
	if user.Blocked {
		return "", model.User{}, ErrBlocked
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", model.User{}, ErrInvalidCredentials
	}

	token, _, err := s.signer.Sign(user.ID, s.opts.TokenTTL)
	if err != nil {
		return "", model.User{}, err
	}
	now := s.now()
	user.LastLogin = &now
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return "", model.User{}, err
	}
	s.addActivity(ctx, user.ID, model.ActivityLogin, ip)
	return token, user, nil
}

func (s *Service) Logout(ctx context.Context, userID int64, ip string) {
	s.addActivity(ctx, userID, model.ActivityLogout, ip)
}

// Authenticate resolves a session token to its user. Blocked users are refused.
func (s *Service) Authenticate(ctx context.Context, token string) (model.User, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return model.User{}, err
	}
	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		return model.User{}, err
	}
	if user.Blocked {
		return model.User{}, ErrBlocked
	}
	return user, nil
}

// ForgotPassword mails a reset link when email belongs to an account.
// Unknown addresses succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	token := hex.EncodeToString(raw)
	user.ResetTokenHash = hashToken(token)
	user.ResetExpiresAt = s.now().Add(s.opts.ResetTTL)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return err
	}

	link := s.opts.ClientURL + "/reset-password/" + token
	s.sendBestEffort(ctx, "password reset", func() (mail.Message, error) { return mail.ResetRequest(user.Email, link) })
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	user, err := s.store.GetUserByResetToken(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if !s.now().Before(user.ResetExpiresAt) {
		return ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.ResetTokenHash = ""
	user.ResetExpiresAt = time.Time{}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.sendBestEffort(ctx, "reset success", func() (mail.Message, error) { return mail.ResetSuccess(user.Email, user.Name) })
	return nil
}

// ResendVerification issues a fresh code for an unverified account.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Verified {
		return ErrAlreadyVerified
	}
	code, err := verificationCode()
	if err != nil {
		return err
	}
	user.VerifyCode = code
	user.VerifyExpiresAt = s.now().Add(s.opts.VerifyTTL)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return err
	}
	msg, err := mail.Verification(user.Email, user.Name, code)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg)
}

// DeleteAuthorAccount removes an author with their posts, comments and newsletter entry.
func (s *Service) DeleteAuthorAccount(ctx context.Context, userID int64) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role != model.RoleAuthor {
		return ErrNotAuthor
	}
	return s.store.DeleteAuthorCascade(ctx, user.ID, user.Email)
}

// SeedAdmin creates a verified admin for email, or promotes and re-verifies an
// existing account. The password is only set on creation.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) (model.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return model.User{}, err
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Role == model.RoleAdmin && user.Verified && !user.Blocked {
			return user, nil
		}
		user.Role = model.RoleAdmin
		user.Verified = true
		user.Blocked = false
		return user, s.store.UpdateUser(ctx, user)
	case !errors.Is(err, store.ErrNotFound):
		return model.User{}, err
	}

	if len(password) < MinPasswordLength {
		return model.User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	user = model.User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Verified:     true,
		CreatedAt:    s.now(),
	}
	if _, err := s.store.CreateUser(ctx, &user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (s *Service) UserActivity(ctx context.Context, userID int64) ([]model.Activity, error) {
	return s.store.ListActivity(ctx, userID, 50)
}

func (s *Service) addActivity(ctx context.Context, userID int64, kind, ip string) {
	err := s.store.AddActivity(ctx, model.Activity{UserID: userID, Type: kind, IP: ip, CreatedAt: s.now()})
	if err != nil {
		log.Warn.Printf("record %s activity for user %d: %v", kind, userID, err)
	}
}

func (s *Service) sendBestEffort(ctx context.Context, what string, build func() (mail.Message, error)) {
	msg, err := build()
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		log.Error.Printf("%s email: %v", what, err)
	}
}

func hashToken(token string) string {
	sum := sha3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// verificationCode returns a uniformly random six digit code.
func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

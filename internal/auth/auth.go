// Package auth signs users up and in, and issues the bearer tokens that
// identify their sessions.
//
// Tokens are HS256 JWTs whose ID is registered in a kv.Store for the
// lifetime of the session, so signing out revokes them before expiry.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/kv"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidToken       = errors.New("token is invalid or expired")
	ErrUnknownProvider    = errors.New("unknown oauth provider")
	ErrEmailUnverified    = errors.New("provider has not verified the email address")
)

const (
	MinPasswordLength = 6
	issuer            = "taskboard"
	resetTTL          = time.Hour
	linkTTL           = 10 * time.Minute
)

const (
	sessionPrefix = "session:"
	resetPrefix   = "reset:"
	linkPrefix    = "link:"
)

// Credentials is the result of a successful sign-in.
type Credentials struct {
	Token     string      `json:"access_token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Mailer delivers password reset tokens.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes reset tokens to the log instead of sending mail.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.Logger.Info("password reset requested", zap.String("email", email), zap.String("token", token))
	return nil
}

// Option configures a Service.
type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

func WithProvider(p Provider) Option {
	return func(s *Service) { s.providers[p.Name] = p }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHTTPClient sets the client used to talk to OAuth providers.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithBcryptCost lowers the hashing cost, for tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// Service implements sign-up, sign-in and session lookup.
type Service struct {
	users      *repository.UserRepository
	categories *repository.CategoryRepository
	kv         kv.Store
	secret     []byte
	ttl        time.Duration
	cost       int
	mailer     Mailer
	providers  map[string]Provider
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger
}

func NewService(users *repository.UserRepository, categories *repository.CategoryRepository, store kv.Store, secret string, opts ...Option) *Service {
	s := &Service{
		users:      users,
		categories: categories,
		kv:         store,
		secret:     []byte(secret),
		ttl:        24 * time.Hour,
		cost:       bcrypt.DefaultCost,
		providers:  make(map[string]Provider),
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mailer == nil {
		s.mailer = LogMailer{Logger: s.logger}
	}
	return s
}

// SignUp registers a new account with a password.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (*model.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        addr.Address,
		FullName:     strings.TrimSpace(name),
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.seedCategories(ctx, user)
	s.logger.Info("user signed up", zap.String("user", user.ID))
	return user, nil
}

// SignIn checks the password and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

// SignOut revokes the session behind token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, sessionPrefix+claims.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// CurrentUser resolves a bearer token to its user.
func (s *Service) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	userID, err := s.kv.Get(ctx, sessionPrefix+claims.ID)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if userID != claims.Subject {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset mails a one-time reset token. Unknown addresses
// succeed silently so callers cannot discover which emails have accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	token := uuid.NewString()
	if err := s.kv.Set(ctx, resetPrefix+token, user.ID, resetTTL); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		return fmt.Errorf("send reset: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	userID, err := s.kv.Take(ctx, resetPrefix+token)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

// IssueLinkCode returns a short one-time code that links a Telegram chat
// to userID.
func (s *Service) IssueLinkCode(ctx context.Context, userID string) (string, error) {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	if err := s.kv.Set(ctx, linkPrefix+code, userID, linkTTL); err != nil {
		return "", fmt.Errorf("store link code: %w", err)
	}
	return code, nil
}

// RedeemLinkCode consumes code and links telegramID to its account.
func (s *Service) RedeemLinkCode(ctx context.Context, code string, telegramID int64) (*model.User, error) {
	userID, err := s.kv.Take(ctx, linkPrefix+strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup link code: %w", err)
	}
	if err := s.users.LinkTelegram(ctx, userID, telegramID); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, userID)
}

func (s *Service) seedCategories(ctx context.Context, user *model.User) {
	if s.categories == nil {
		return
	}
	if err := s.categories.EnsureDefaults(ctx, user.ID); err != nil {
		s.logger.Warn("seed default categories", zap.String("user", user.ID), zap.Error(err))
	}
}

func (s *Service) issue(ctx context.Context, user *model.User) (*Credentials, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   user.ID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	if err := s.kv.Set(ctx, sessionPrefix+claims.ID, user.ID, s.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &Credentials{Token: signed, ExpiresAt: expires, User: user}, nil
}

func (s *Service) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthenticated
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

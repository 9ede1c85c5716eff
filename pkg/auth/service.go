package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"polymerit/pkg/models"
	"polymerit/pkg/repository"
)

var (
	// ErrInvalidLink covers unknown, expired and already used magic links
	ErrInvalidLink = errors.New("invalid or expired sign-in link")
	// ErrUnauthenticated is returned when a session token is missing or invalid
	ErrUnauthenticated = errors.New("authentication required")
	// ErrUserDisabled is returned for deactivated accounts
	ErrUserDisabled = errors.New("user account is disabled")
)

// Repositories needed by the service
type Repositories interface {
	repository.UserRepository
	repository.SessionRepository
	repository.MagicLinkRepository
	repository.LoginAttemptRepository
}

// ClientInfo identifies the caller for audit rows
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Session is the result of a successful sign-in
type Session struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// Service implements passwordless sign-in
type Service struct {
	repos        Repositories
	jwt          *JWTService
	mailer       Mailer
	publicURL    string
	magicLinkTTL time.Duration
	now          func() time.Time
}

// NewService wires the sign-in flow. publicURL is the externally reachable
// base of the API, used to build links.
func NewService(repos Repositories, jwtService *JWTService, mailer Mailer, publicURL string, magicLinkTTL time.Duration) *Service {
	return &Service{
		repos:        repos,
		jwt:          jwtService,
		mailer:       mailer,
		publicURL:    strings.TrimRight(publicURL, "/"),
		magicLinkTTL: magicLinkTTL,
		now:          time.Now,
	}
}

// RequestMagicLink creates a single-use token for email and mails the link
func (s *Service) RequestMagicLink(ctx context.Context, email string, client ClientInfo) error {
	email = NormalizeEmail(email)

	user, err := s.repos.FindOrCreateUser(ctx, email)
	if err != nil {
		return err
	}
	if !user.IsActive {
		s.recordAttempt(ctx, email, client, false, "USER_DISABLED")
		return ErrUserDisabled
	}

	raw, err := RandomToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate sign-in token: %w", err)
	}

	now := s.now()
	token := &models.MagicLinkToken{
		TokenHash: HashToken(raw),
		UserID:    user.ID,
		Email:     email,
		RequestIP: client.IP,
		ExpiresAt: now.Add(s.magicLinkTTL),
	}
	if err := s.repos.CreateMagicLink(ctx, token); err != nil {
		return err
	}

	if err := s.mailer.SendMagicLink(ctx, email, s.VerifyURL(raw), s.magicLinkTTL); err != nil {
		return fmt.Errorf("failed to deliver sign-in link: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"ip":      client.IP,
	}).Info("Magic link issued")
	return nil
}

// VerifyURL builds the link mailed to the user
func (s *Service) VerifyURL(token string) string {
	return s.publicURL + "/api/auth/verify?token=" + url.QueryEscape(token)
}

// Verify consumes a magic-link token and opens a session
func (s *Service) Verify(ctx context.Context, token string, client ClientInfo) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidLink
	}

	now := s.now()
	link, err := s.repos.ConsumeMagicLink(ctx, HashToken(token), now)
	if errors.Is(err, repository.ErrNotFound) {
		s.recordAttempt(ctx, "", client, false, "INVALID_LINK")
		return nil, ErrInvalidLink
	}
	if err != nil {
		return nil, err
	}

	user, err := s.repos.GetUser(ctx, link.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidLink
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		s.recordAttempt(ctx, user.Email, client, false, "USER_DISABLED")
		return nil, ErrUserDisabled
	}

	signed, expiresAt, err := s.jwt.IssueSessionToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	session := &models.UserSession{
		UserID:    user.ID,
		Token:     HashToken(signed),
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		IsActive:  true,
		ExpiresAt: expiresAt,
	}
	if err := s.repos.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	if err := s.repos.TouchLogin(ctx, user.ID, now); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}
	user.LastLoginAt = &now

	s.recordAttempt(ctx, user.Email, client, true, "")
	return &Session{User: user, Token: signed, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a session token to its user. The token must carry a
// valid signature and belong to an active, unexpired session.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	session, err := s.repos.FindActiveSession(ctx, HashToken(token), s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != claims.UserID {
		return nil, ErrUnauthenticated
	}

	user, err := s.repos.GetUser(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	return user, nil
}

// Logout deactivates the session behind token
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repos.InvalidateSession(ctx, HashToken(token))
}

// CleanupExpiredSessions removes sessions past their expiry
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.repos.DeleteExpiredSessions(ctx, s.now())
}

func (s *Service) recordAttempt(ctx context.Context, email string, client ClientInfo, success bool, reason string) {
	attempt := &models.LoginAttempt{
		Email:     email,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		Success:   success,
		Reason:    reason,
	}
	if err := s.repos.RecordLoginAttempt(ctx, attempt); err != nil {
		logrus.WithError(err).Warn("Failed to record login attempt")
	}
}

// NormalizeEmail trims and lowercases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

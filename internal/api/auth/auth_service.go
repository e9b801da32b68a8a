package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/financehub/finance-hub/app/observability/metrics"
	"github.com/financehub/finance-hub/config"
	"github.com/financehub/finance-hub/internal/types"
)

// ProfileStore is the slice of the profile repository the session flow needs.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	CreateProfile(ctx context.Context, profile types.UserProfile) (*types.UserProfile, error)
}

// SettingsStore is the slice of the settings repository the session flow needs.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*types.UserSettings, error)
	CreateSettings(ctx context.Context, settings types.UserSettings) (*types.UserSettings, error)
}

// RoleStore resolves the role set for a user.
type RoleStore interface {
	ListUserRoles(ctx context.Context, userID uuid.UUID) ([]types.UserRole, error)
}

// AuditLogger appends security audit rows. Writes from this package are
// best-effort: failures are logged and swallowed.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID uuid.UUID, params types.LogEventParams) (uuid.UUID, error)
}

// SessionEvent mirrors the session-change notifications the hosted platform
// used to push: sign-in, sign-out and token refresh.
type SessionEvent struct {
	Kind   string // signed_in, signed_out, token_refreshed
	UserID uuid.UUID
}

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	Register(ctx context.Context, email, password, fullName string) (uuid.UUID, error)
	Login(ctx context.Context, email, password string, client ClientInfo) (*LoginResponse, error)
	RefreshSession(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, refreshToken string) error
	GetSession(ctx context.Context, userID uuid.UUID) (*types.Session, error)
	Subscribe() (<-chan SessionEvent, func())
	Close()
}

// ClientInfo carries the request metadata recorded on audit rows.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type AuthServiceImpl struct {
	logger   *slog.Logger
	cfg      config.JWTConfig
	repo     AuthRepo
	profiles ProfileStore
	settings SettingsStore
	roles    RoleStore
	audit    AuditLogger

	mu     sync.Mutex
	subs   map[int]chan SessionEvent
	nextID int
	closed bool
}

func NewAuthService(repo AuthRepo, profiles ProfileStore, settings SettingsStore, roles RoleStore, audit AuditLogger, cfg config.JWTConfig, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:   logger,
		cfg:      cfg,
		repo:     repo,
		profiles: profiles,
		settings: settings,
		roles:    roles,
		audit:    audit,
		subs:     make(map[int]chan SessionEvent),
	}
}

// Register creates the account with its profile, default settings and the
// base user role. It does not log the user in.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password, fullName string) (uuid.UUID, error) {
	l := s.logger.With(slog.String("method", "Register"), slog.String("email", email))
	l.DebugContext(ctx, "Registering user")

	if email == "" || password == "" {
		return uuid.Nil, fmt.Errorf("%w: email and password are required", types.ErrValidation)
	}

	userID, err := s.repo.CreateUser(ctx, email, password, fullName, []types.Role{types.RoleUser})
	if err != nil {
		l.ErrorContext(ctx, "Failed to register user", slog.Any("error", err))
		return uuid.Nil, fmt.Errorf("error registering user: %w", err)
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", userID.String()))
	return userID, nil
}

// Login exchanges credentials for a token pair and the resolved session.
// Every successful login appends a login_success audit row; audit failures
// never block the login.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string, client ClientInfo) (*LoginResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login", trace.WithAttributes(
		attribute.String("user.email", email),
	))
	defer span.End()

	start := time.Now()
	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))

	userID, err := s.repo.ValidateCredentials(ctx, email, password)
	if err != nil {
		span.SetStatus(codes.Error, "invalid credentials")
		if m := metrics.Get(); m != nil {
			m.LoginRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", false)))
		}
		return nil, err
	}

	accessToken, err := s.generateAccessToken(userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken := uuid.NewString()
	if err = s.repo.StoreRefreshToken(ctx, userID, refreshToken, time.Now().Add(s.refreshExpiry())); err != nil {
		return nil, err
	}

	session, err := s.GetSession(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve session after login", slog.Any("error", err))
		return nil, fmt.Errorf("error resolving session: %w", err)
	}

	s.logAuditEvent(ctx, userID, types.LogEventParams{
		EventType:   "login_success",
		Description: "Successful sign-in",
		IPAddress:   optional(client.IPAddress),
		UserAgent:   optional(client.UserAgent),
	})

	s.publish(SessionEvent{Kind: "signed_in", UserID: userID})
	if m := metrics.Get(); m != nil {
		m.LoginRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", true)))
		m.LoginDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}
	span.SetStatus(codes.Ok, "login complete")

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Session:      session,
	}, nil
}

// RefreshSession rotates the refresh token and issues a new access token.
func (s *AuthServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (string, string, error) {
	l := s.logger.With(slog.String("method", "RefreshSession"))

	userID, expiresAt, revokedAt, err := s.repo.GetRefreshTokenInfo(ctx, refreshToken)
	if err != nil {
		return "", "", err
	}
	if time.Now().After(expiresAt) || revokedAt != nil {
		return "", "", fmt.Errorf("refresh token expired or revoked: %w", types.ErrUnauthenticated)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", err
	}

	newAccessToken, err := s.generateAccessToken(user.ID, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	newRefreshToken := uuid.NewString()
	if err = s.repo.StoreRefreshToken(ctx, userID, newRefreshToken, time.Now().Add(s.refreshExpiry())); err != nil {
		return "", "", err
	}
	if err = s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		l.WarnContext(ctx, "Failed to revoke rotated refresh token", slog.Any("error", err))
	}

	s.publish(SessionEvent{Kind: "token_refreshed", UserID: userID})
	return newAccessToken, newRefreshToken, nil
}

// Logout revokes the refresh token.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	userID, _, _, err := s.repo.GetRefreshTokenInfo(ctx, refreshToken)
	if err != nil && !errors.Is(err, types.ErrUnauthenticated) {
		return err
	}
	if err := s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		return err
	}
	if userID != uuid.Nil {
		s.publish(SessionEvent{Kind: "signed_out", UserID: userID})
	}
	return nil
}

// GetSession resolves the full identity state for a user. Profile, roles and
// settings are fetched concurrently; a missing profile or settings row is
// backfilled for accounts predating eager creation, each backfill appending
// an audit row best-effort.
func (s *AuthServiceImpl) GetSession(ctx context.Context, userID uuid.UUID) (*types.Session, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "GetSession", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetSession"), slog.String("userID", userID.String()))

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	session := &types.Session{User: user}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, err := s.profiles.GetProfile(gctx, userID)
		if errors.Is(err, types.ErrNotFound) {
			profile, err = s.profiles.CreateProfile(gctx, types.UserProfile{ID: userID, Email: user.Email})
			if err == nil {
				s.logAuditEvent(gctx, userID, types.LogEventParams{
					EventType:   "profile_created",
					Description: "Profile created on first session",
				})
			}
		}
		if err != nil {
			return fmt.Errorf("error fetching profile: %w", err)
		}
		session.Profile = profile
		return nil
	})
	g.Go(func() error {
		roles, err := s.roles.ListUserRoles(gctx, userID)
		if err != nil {
			return fmt.Errorf("error fetching roles: %w", err)
		}
		session.Roles = roles
		return nil
	})
	g.Go(func() error {
		settings, err := s.settings.GetSettings(gctx, userID)
		if errors.Is(err, types.ErrNotFound) {
			settings, err = s.settings.CreateSettings(gctx, types.DefaultSettings(userID))
			if err == nil {
				s.logAuditEvent(gctx, userID, types.LogEventParams{
					EventType:   "settings_created",
					Description: "Default settings created on first session",
				})
			}
		}
		if err != nil {
			return fmt.Errorf("error fetching settings: %w", err)
		}
		session.Settings = settings
		return nil
	})

	if err := g.Wait(); err != nil {
		l.ErrorContext(ctx, "Session resolution failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "session resolution failed")
		return nil, err
	}

	return session, nil
}

// Subscribe returns a session-event channel and its cancel function. The
// channel is closed on cancel or service shutdown.
func (s *AuthServiceImpl) Subscribe() (<-chan SessionEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan SessionEvent, 16)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Close tears down all session-event subscriptions.
func (s *AuthServiceImpl) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *AuthServiceImpl) publish(ev SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than block the auth path.
		}
	}
}

func (s *AuthServiceImpl) logAuditEvent(ctx context.Context, userID uuid.UUID, params types.LogEventParams) {
	if _, err := s.audit.LogEvent(ctx, userID, params); err != nil {
		s.logger.ErrorContext(ctx, "Failed to append security log",
			slog.String("event_type", params.EventType),
			slog.Any("error", err),
		)
		if m := metrics.Get(); m != nil {
			m.AuditFailuresTotal.Add(ctx, 1)
		}
		return
	}
	if m := metrics.Get(); m != nil {
		m.AuditEventsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", params.EventType)))
	}
}

func (s *AuthServiceImpl) generateAccessToken(userID uuid.UUID, email string) (string, error) {
	now := time.Now()
	expiry := s.cfg.AccessExpiry
	if expiry == 0 {
		expiry = 15 * time.Minute
	}
	claims := &Claims{
		UserID: userID.String(),
		Email:  email,
		Scope:  "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			Subject:   userID.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.SecretKey))
}

func (s *AuthServiceImpl) refreshExpiry() time.Duration {
	if s.cfg.RefreshExpiry == 0 {
		return 7 * 24 * time.Hour
	}
	return s.cfg.RefreshExpiry
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

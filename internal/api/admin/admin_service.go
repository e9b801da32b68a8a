package admin

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/financehub/finance-hub/config"
	"github.com/financehub/finance-hub/internal/types"
)

var _ AdminService = (*AdminServiceImpl)(nil)

// AccountStore is the slice of the auth repository the bootstrap needs.
type AccountStore interface {
	CreateUser(ctx context.Context, email, password, fullName string, roles []types.Role) (uuid.UUID, error)
}

type ProfileStore interface {
	GetProfileByEmail(ctx context.Context, email string) (*types.UserProfile, error)
}

type AuditLogger interface {
	LogEvent(ctx context.Context, userID uuid.UUID, params types.LogEventParams) (uuid.UUID, error)
}

// AdminCredentials is what the bootstrap endpoint hands back. Password is set
// only on the call that actually created the account.
type AdminCredentials struct {
	Email    string  `json:"email"`
	Password *string `json:"password,omitempty"`
	FullName string  `json:"fullName"`
}

type BootstrapResult struct {
	Message     string           `json:"message"`
	Created     bool             `json:"created"`
	Credentials AdminCredentials `json:"adminCredentials"`
}

type AdminService interface {
	EnsureAdmin(ctx context.Context) (*BootstrapResult, error)
}

type AdminServiceImpl struct {
	logger   *slog.Logger
	accounts AccountStore
	profiles ProfileStore
	audit    AuditLogger
	cfg      config.AdminBootstrapConfig
}

func NewAdminService(accounts AccountStore, profiles ProfileStore, audit AuditLogger, cfg config.AdminBootstrapConfig, logger *slog.Logger) *AdminServiceImpl {
	return &AdminServiceImpl{
		logger:   logger,
		accounts: accounts,
		profiles: profiles,
		audit:    audit,
		cfg:      cfg,
	}
}

// EnsureAdmin creates the configured admin account if it does not exist yet.
// The call is idempotent: repeat calls report the existing account and never
// reissue a password.
func (s *AdminServiceImpl) EnsureAdmin(ctx context.Context) (*BootstrapResult, error) {
	l := s.logger.With(slog.String("method", "EnsureAdmin"), slog.String("email", s.cfg.Email))

	if s.cfg.Email == "" {
		return nil, fmt.Errorf("%w: admin bootstrap email is not configured", types.ErrValidation)
	}

	existing, err := s.profiles.GetProfileByEmail(ctx, s.cfg.Email)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		l.ErrorContext(ctx, "Failed to look up admin account", slog.Any("error", err))
		return nil, fmt.Errorf("failed to check for existing admin: %w", err)
	}
	if existing != nil {
		l.InfoContext(ctx, "Admin account already present", slog.String("userID", existing.ID.String()))
		return &BootstrapResult{
			Message: "Admin user already exists",
			Created: false,
			Credentials: AdminCredentials{
				Email:    s.cfg.Email,
				FullName: s.cfg.FullName,
			},
		}, nil
	}

	password, err := generatePassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate admin password: %w", err)
	}

	userID, err := s.accounts.CreateUser(ctx, s.cfg.Email, password, s.cfg.FullName,
		[]types.Role{types.RoleAdmin, types.RoleUser})
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			// Lost a race with a concurrent bootstrap call.
			return &BootstrapResult{
				Message: "Admin user already exists",
				Created: false,
				Credentials: AdminCredentials{
					Email:    s.cfg.Email,
					FullName: s.cfg.FullName,
				},
			}, nil
		}
		l.ErrorContext(ctx, "Failed to create admin account", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	if _, err := s.audit.LogEvent(ctx, userID, types.LogEventParams{
		EventType:   "admin_created",
		Description: "Admin account bootstrapped",
	}); err != nil {
		l.ErrorContext(ctx, "Failed to append security log", slog.Any("error", err))
	}

	l.InfoContext(ctx, "Admin account created", slog.String("userID", userID.String()))
	return &BootstrapResult{
		Message: "Admin user created successfully",
		Created: true,
		Credentials: AdminCredentials{
			Email:    s.cfg.Email,
			Password: &password,
			FullName: s.cfg.FullName,
		},
	}, nil
}

// generatePassword returns a 24-character url-safe one-time password.
func generatePassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

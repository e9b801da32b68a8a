package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/financehub/finance-hub/config"
	"github.com/financehub/finance-hub/internal/types"
)

type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, email, password, fullName string, roles []types.Role) (uuid.UUID, error) {
	args := m.Called(ctx, email, password, fullName, roles)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) ValidateCredentials(ctx context.Context, email, password string) (uuid.UUID, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAuthRepo) StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, token, expiresAt)
	return args.Error(0)
}

func (m *MockAuthRepo) GetRefreshTokenInfo(ctx context.Context, refreshToken string) (uuid.UUID, time.Time, *time.Time, error) {
	args := m.Called(ctx, refreshToken)
	var revokedAt *time.Time
	if args.Get(2) != nil {
		revokedAt = args.Get(2).(*time.Time)
	}
	return args.Get(0).(uuid.UUID), args.Get(1).(time.Time), revokedAt, args.Error(3)
}

func (m *MockAuthRepo) InvalidateRefreshToken(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthRepo) InvalidateAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

func (m *MockProfileStore) CreateProfile(ctx context.Context, profile types.UserProfile) (*types.UserProfile, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) GetSettings(ctx context.Context, userID uuid.UUID) (*types.UserSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserSettings), args.Error(1)
}

func (m *MockSettingsStore) CreateSettings(ctx context.Context, settings types.UserSettings) (*types.UserSettings, error) {
	args := m.Called(ctx, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserSettings), args.Error(1)
}

type MockRoleStore struct {
	mock.Mock
}

func (m *MockRoleStore) ListUserRoles(ctx context.Context, userID uuid.UUID) ([]types.UserRole, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.UserRole), args.Error(1)
}

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogEvent(ctx context.Context, userID uuid.UUID, params types.LogEventParams) (uuid.UUID, error) {
	args := m.Called(ctx, userID, params)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type authServiceMocks struct {
	repo     *MockAuthRepo
	profiles *MockProfileStore
	settings *MockSettingsStore
	roles    *MockRoleStore
	audit    *MockAuditLogger
}

func setupAuthServiceTest() (*AuthServiceImpl, *authServiceMocks) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mocks := &authServiceMocks{
		repo:     new(MockAuthRepo),
		profiles: new(MockProfileStore),
		settings: new(MockSettingsStore),
		roles:    new(MockRoleStore),
		audit:    new(MockAuditLogger),
	}
	cfg := config.JWTConfig{
		SecretKey: "test-secret",
		Issuer:    "finance-hub-test",
		Audience:  "finance-hub-api",
	}
	service := NewAuthService(mocks.repo, mocks.profiles, mocks.settings, mocks.roles, mocks.audit, cfg, logger)
	return service, mocks
}

// expectResolvedSession wires the happy-path session fetch for a user whose
// profile, roles and settings rows all exist.
func expectResolvedSession(mocks *authServiceMocks, user *types.UserAuth) {
	mocks.repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
	mocks.profiles.On("GetProfile", mock.Anything, user.ID).
		Return(&types.UserProfile{ID: user.ID, Email: user.Email}, nil)
	mocks.roles.On("ListUserRoles", mock.Anything, user.ID).
		Return([]types.UserRole{{UserID: user.ID, Role: types.RoleUser}}, nil)
	mocks.settings.On("GetSettings", mock.Anything, user.ID).
		Return(&types.UserSettings{UserID: user.ID, Theme: types.ThemeLight}, nil)
}

func TestAuthServiceImpl_Login(t *testing.T) {
	ctx := context.Background()
	user := &types.UserAuth{ID: uuid.New(), Email: "ana@example.com"}
	client := ClientInfo{IPAddress: "203.0.113.7", UserAgent: "test-agent"}

	t.Run("success issues tokens and audits once", func(t *testing.T) {
		service, mocks := setupAuthServiceTest()
		defer service.Close()

		mocks.repo.On("ValidateCredentials", mock.Anything, user.Email, "hunter22").Return(user.ID, nil).Once()
		mocks.repo.On("StoreRefreshToken", mock.Anything, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()
		expectResolvedSession(mocks, user)
		mocks.audit.On("LogEvent", mock.Anything, user.ID, mock.MatchedBy(func(p types.LogEventParams) bool {
			return p.EventType == "login_success" && p.IPAddress != nil && *p.IPAddress == client.IPAddress
		})).Return(uuid.New(), nil).Once()

		resp, err := service.Login(ctx, user.Email, "hunter22", client)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		require.NotNil(t, resp.Session)
		assert.Equal(t, user.ID, resp.Session.User.ID)
		assert.True(t, resp.Session.HasRole(types.RoleUser))
		mocks.audit.AssertNumberOfCalls(t, "LogEvent", 1)
	})

	t.Run("audit failure does not block login", func(t *testing.T) {
		service, mocks := setupAuthServiceTest()
		defer service.Close()

		mocks.repo.On("ValidateCredentials", mock.Anything, user.Email, "hunter22").Return(user.ID, nil).Once()
		mocks.repo.On("StoreRefreshToken", mock.Anything, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()
		expectResolvedSession(mocks, user)
		mocks.audit.On("LogEvent", mock.Anything, user.ID, mock.Anything).
			Return(uuid.Nil, errors.New("audit store down")).Once()

		resp, err := service.Login(ctx, user.Email, "hunter22", client)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("bad credentials", func(t *testing.T) {
		service, mocks := setupAuthServiceTest()
		defer service.Close()

		mocks.repo.On("ValidateCredentials", mock.Anything, user.Email, "wrong").
			Return(uuid.Nil, types.ErrUnauthenticated).Once()

		_, err := service.Login(ctx, user.Email, "wrong", client)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrUnauthenticated))
		mocks.audit.AssertNotCalled(t, "LogEvent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("login publishes a signed_in event", func(t *testing.T) {
		service, mocks := setupAuthServiceTest()
		defer service.Close()

		events, cancel := service.Subscribe()
		defer cancel()

		mocks.repo.On("ValidateCredentials", mock.Anything, user.Email, "hunter22").Return(user.ID, nil).Once()
		mocks.repo.On("StoreRefreshToken", mock.Anything, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()
		expectResolvedSession(mocks, user)
		mocks.audit.On("LogEvent", mock.Anything, user.ID, mock.Anything).Return(uuid.New(), nil).Once()

		_, err := service.Login(ctx, user.Email, "hunter22", client)
		require.NoError(t, err)

		select {
		case ev := <-events:
			assert.Equal(t, "signed_in", ev.Kind)
			assert.Equal(t, user.ID, ev.UserID)
		case <-time.After(time.Second):
			t.Fatal("expected a signed_in event")
		}
	})
}

func TestAuthServiceImpl_GetSession(t *testing.T) {
	ctx := context.Background()
	user := &types.UserAuth{ID: uuid.New(), Email: "ana@example.com"}

	t.Run("missing profile and settings are backfilled", func(t *testing.T) {
		service, mocks := setupAuthServiceTest()
		defer service.Close()

		mocks.repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()
		mocks.profiles.On("GetProfile", mock.Anything, user.ID).Return(nil, types.ErrNotFound).Once()
		mocks.profiles.On("CreateProfile", mock.Anything, types.UserProfile{ID: user.ID, Email: user.Email}).
			Return(&types.UserProfile{ID: user.ID, Email: user.Email}, nil).Once()
		mocks.roles.On("ListUserRoles", mock.Anything, user.ID).Return([]types.UserRole{}, nil).Once()
		mocks.settings.On("GetSettings", mock.Anything, user.ID).Return(nil, types.ErrNotFound).Once()
		mocks.settings.On("CreateSettings", mock.Anything, types.DefaultSettings(user.ID)).
			Return(&types.UserSettings{UserID: user.ID, Theme: types.ThemeLight, Language: types.LanguageSpanish}, nil).Once()
		mocks.audit.On("LogEvent", mock.Anything, user.ID, mock.MatchedBy(func(p types.LogEventParams) bool {
			return p.EventType == "profile_created"
		})).Return(uuid.New(), nil).Once()
		mocks.audit.On("LogEvent", mock.Anything, user.ID, mock.MatchedBy(func(p types.LogEventParams) bool {
			return p.EventType == "settings_created"
		})).Return(uuid.New(), nil).Once()

		session, err := service.GetSession(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, session.Profile)
		require.NotNil(t, session.Settings)
		assert.Equal(t, types.ThemeLight, session.Settings.Theme)
		mocks.profiles.AssertExpectations(t)
		mocks.settings.AssertExpectations(t)
		mocks.audit.AssertExpectations(t)
	})

	t.Run("role fetch failure fails the session", func(t *testing.T) {
		service, mocks := setupAuthServiceTest()
		defer service.Close()

		repoErr := errors.New("roles table unavailable")
		mocks.repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()
		mocks.profiles.On("GetProfile", mock.Anything, user.ID).
			Return(&types.UserProfile{ID: user.ID, Email: user.Email}, nil).Maybe()
		mocks.settings.On("GetSettings", mock.Anything, user.ID).
			Return(&types.UserSettings{UserID: user.ID}, nil).Maybe()
		mocks.roles.On("ListUserRoles", mock.Anything, user.ID).Return(nil, repoErr).Once()

		_, err := service.GetSession(ctx, user.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, repoErr))
	})
}

func TestAuthServiceImpl_RefreshSession(t *testing.T) {
	ctx := context.Background()
	user := &types.UserAuth{ID: uuid.New(), Email: "ana@example.com"}

	t.Run("rotation issues new pair and revokes old token", func(t *testing.T) {
		service, mocks := setupAuthServiceTest()
		defer service.Close()

		oldToken := uuid.NewString()
		mocks.repo.On("GetRefreshTokenInfo", mock.Anything, oldToken).
			Return(user.ID, time.Now().Add(time.Hour), nil, nil).Once()
		mocks.repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()
		mocks.repo.On("StoreRefreshToken", mock.Anything, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()
		mocks.repo.On("InvalidateRefreshToken", mock.Anything, oldToken).Return(nil).Once()

		access, refresh, err := service.RefreshSession(ctx, oldToken)
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)
		assert.NotEqual(t, oldToken, refresh)
		mocks.repo.AssertExpectations(t)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		service, mocks := setupAuthServiceTest()
		defer service.Close()

		token := uuid.NewString()
		mocks.repo.On("GetRefreshTokenInfo", mock.Anything, token).
			Return(user.ID, time.Now().Add(-time.Minute), nil, nil).Once()

		_, _, err := service.RefreshSession(ctx, token)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrUnauthenticated))
		mocks.repo.AssertNotCalled(t, "StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("revoked token is rejected", func(t *testing.T) {
		service, mocks := setupAuthServiceTest()
		defer service.Close()

		token := uuid.NewString()
		revokedAt := time.Now().Add(-time.Minute)
		mocks.repo.On("GetRefreshTokenInfo", mock.Anything, token).
			Return(user.ID, time.Now().Add(time.Hour), &revokedAt, nil).Once()

		_, _, err := service.RefreshSession(ctx, token)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrUnauthenticated))
	})
}

func TestAuthServiceImpl_Subscribe(t *testing.T) {
	t.Run("cancel closes the channel", func(t *testing.T) {
		service, _ := setupAuthServiceTest()
		defer service.Close()

		events, cancel := service.Subscribe()
		cancel()

		_, open := <-events
		assert.False(t, open)
	})

	t.Run("close tears down all subscribers", func(t *testing.T) {
		service, _ := setupAuthServiceTest()

		first, _ := service.Subscribe()
		second, _ := service.Subscribe()
		service.Close()

		_, open := <-first
		assert.False(t, open)
		_, open = <-second
		assert.False(t, open)
	})

	t.Run("subscribe after close returns a closed channel", func(t *testing.T) {
		service, _ := setupAuthServiceTest()
		service.Close()

		events, cancel := service.Subscribe()
		defer cancel()
		_, open := <-events
		assert.False(t, open)
	})
}

func TestAuthServiceImpl_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		service, mocks := setupAuthServiceTest()
		defer service.Close()

		newID := uuid.New()
		mocks.repo.On("CreateUser", mock.Anything, "ana@example.com", "hunter22", "Ana", []types.Role{types.RoleUser}).
			Return(newID, nil).Once()

		userID, err := service.Register(ctx, "ana@example.com", "hunter22", "Ana")
		require.NoError(t, err)
		assert.Equal(t, newID, userID)
	})

	t.Run("missing email is rejected", func(t *testing.T) {
		service, mocks := setupAuthServiceTest()
		defer service.Close()

		_, err := service.Register(ctx, "", "hunter22", "Ana")
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrValidation))
		mocks.repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate email surfaces conflict", func(t *testing.T) {
		service, mocks := setupAuthServiceTest()
		defer service.Close()

		mocks.repo.On("CreateUser", mock.Anything, "ana@example.com", "hunter22", "Ana", []types.Role{types.RoleUser}).
			Return(uuid.Nil, types.ErrConflict).Once()

		_, err := service.Register(ctx, "ana@example.com", "hunter22", "Ana")
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrConflict))
	})
}

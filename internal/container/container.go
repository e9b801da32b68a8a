package container

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/financehub/finance-hub/app/db"
	"github.com/financehub/finance-hub/config"
	"github.com/financehub/finance-hub/internal/api/admin"
	"github.com/financehub/finance-hub/internal/api/auth"
	"github.com/financehub/finance-hub/internal/api/automations"
	"github.com/financehub/finance-hub/internal/api/connections"
	"github.com/financehub/finance-hub/internal/api/roles"
	securityLogs "github.com/financehub/finance-hub/internal/api/security_logs"
	"github.com/financehub/finance-hub/internal/api/settings"
	"github.com/financehub/finance-hub/internal/api/transactions"
	userProfiles "github.com/financehub/finance-hub/internal/api/user_profiles"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	AuthService auth.AuthService
	RolesRepo   *roles.PostgresRolesRepo

	AuthHandler        *auth.AuthHandlerImpl
	ProfileHandler     *userProfiles.HandlerImpl
	SettingsHandler    *settings.HandlerImpl
	ConnectionHandler  *connections.HandlerImpl
	TransactionHandler *transactions.HandlerImpl
	AutomationHandler  *automations.HandlerImpl
	RolesHandler       *roles.HandlerImpl
	SecurityLogHandler *securityLogs.HandlerImpl
	AdminHandler       *admin.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	// Repositories
	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	profileRepo := userProfiles.NewPostgresProfileRepo(pool, logger)
	settingsRepo := settings.NewPostgresSettingsRepo(pool, logger)
	rolesRepo := roles.NewPostgresRolesRepo(pool, logger)
	connectionRepo := connections.NewPostgresConnectionRepo(pool, logger)
	transactionRepo := transactions.NewPostgresTransactionRepo(pool, logger)
	automationRepo := automations.NewPostgresAutomationRepo(pool, logger)
	securityLogRepo := securityLogs.NewPostgresSecurityLogRepo(pool, logger)

	// Services
	securityLogService := securityLogs.NewSecurityLogService(securityLogRepo, logger)
	authService := auth.NewAuthService(authRepo, profileRepo, settingsRepo, rolesRepo, securityLogService, cfg.JWT, logger)
	profileService := userProfiles.NewProfileService(profileRepo, logger)
	settingsService := settings.NewSettingsService(settingsRepo, logger)
	rolesService := roles.NewRolesService(rolesRepo, logger)
	connectionService := connections.NewConnectionService(connectionRepo, logger)
	transactionService := transactions.NewTransactionService(transactionRepo, logger)
	automationService := automations.NewAutomationService(automationRepo, logger)
	adminService := admin.NewAdminService(authRepo, profileRepo, securityLogService, cfg.Admin, logger)

	return &Container{
		Config: cfg,
		Logger: logger,
		Pool:   pool,

		AuthService: authService,
		RolesRepo:   rolesRepo,

		AuthHandler:        auth.NewAuthHandlerImpl(authService, logger),
		ProfileHandler:     userProfiles.NewHandlerImpl(profileService, logger),
		SettingsHandler:    settings.NewHandlerImpl(settingsService, logger),
		ConnectionHandler:  connections.NewHandlerImpl(connectionService, logger),
		TransactionHandler: transactions.NewHandlerImpl(transactionService, logger),
		AutomationHandler:  automations.NewHandlerImpl(automationService, logger),
		RolesHandler:       roles.NewHandlerImpl(rolesService, logger),
		SecurityLogHandler: securityLogs.NewHandlerImpl(securityLogService, logger),
		AdminHandler:       admin.NewHandlerImpl(adminService, logger),
	}, nil
}

// Close releases pooled resources and stops the session broadcaster.
func (c *Container) Close() {
	if c.AuthService != nil {
		c.AuthService.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

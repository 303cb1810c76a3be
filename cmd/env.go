package cmd

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/yeremiapane/table-order/config"
	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

// Storage namespaces of the terminal client. The CLI has one "browser".
const (
	cliLocalNamespace   = "cli:local"
	cliSessionNamespace = "cli:session"
)

// env is what a CLI command needs: configuration, the two storage scopes and
// the services built on the backend client.
type env struct {
	cfg          *config.Config
	store        *database.GormStore
	sessionStore *database.GormStore

	backend    *services.BackendClient
	menus      *services.MenuService
	submitter  *services.OrderSubmitter
	reconciler *services.OrderReconciler
	admin      *services.AdminService
	gate       *services.AdminGate
	merchant   services.Merchant
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	utils.InitLogger(cfg.LogLevel)
	return cfg, nil
}

func newEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	utils.InitDB(db)

	store := database.NewGormStore(db, cliLocalNamespace)
	store.MaxValueBytes = cfg.StoreMaxValueBytes
	session := store.WithNamespace(cliSessionNamespace)

	gate, err := services.NewAdminGate(cfg.AdminPIN)
	if err != nil {
		return nil, err
	}

	backend := services.NewBackendClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	menus := services.NewMenuService(backend, cfg.MenuCacheTTL)
	merchant := services.Merchant{VPA: cfg.MerchantVPA, Name: cfg.MerchantName}

	return &env{
		cfg:          cfg,
		store:        store,
		sessionStore: session,
		backend:      backend,
		menus:        menus,
		submitter:    services.NewOrderSubmitter(backend),
		reconciler:   services.NewOrderReconciler(backend, merchant),
		admin:        services.NewAdminService(backend, menus),
		gate:         gate,
		merchant:     merchant,
	}, nil
}

// requireAdmin fails unless the dashboard was unlocked with "admin login".
func (e *env) requireAdmin() error {
	if !e.gate.IsUnlocked(e.store) {
		return fmt.Errorf("%w: run \"table-order admin login <pin>\" first", services.ErrAdminLocked)
	}
	return nil
}

package services

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/light-bringer/cart-service/internal/app/cart"
	"github.com/light-bringer/cart-service/internal/app/cart/contracts"
	"github.com/light-bringer/cart-service/internal/app/catalog"
	"github.com/light-bringer/cart-service/internal/pkg/backup"
	"github.com/light-bringer/cart-service/internal/pkg/clock"
	"github.com/light-bringer/cart-service/internal/pkg/validate"
	"github.com/light-bringer/cart-service/internal/report"
	"github.com/light-bringer/cart-service/internal/storage/badgerkv"
)

// Config is the application configuration, loaded from a YAML file.
type Config struct {
	// DataDir is the BadgerDB directory. Ignored when InMemory is set.
	DataDir string `yaml:"data_dir"`

	// InMemory disables disk persistence (demo/test setups).
	InMemory bool `yaml:"in_memory"`

	// CatalogPath points at the product catalog file.
	CatalogPath string `yaml:"catalog_path"`

	// BackupKeep overrides how many snapshots survive per key.
	BackupKeep int `yaml:"backup_keep"`
}

// LoadConfig reads and decodes the configuration file.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config file: %w", err)
	}
	if cfg.CatalogPath == "" {
		return Config{}, fmt.Errorf("config: catalog_path is required")
	}
	if !cfg.InMemory && cfg.DataDir == "" {
		return Config{}, fmt.Errorf("config: data_dir is required unless in_memory is set")
	}
	return cfg, nil
}

// ServiceOptions holds all constructed application dependencies. No part
// of the system reaches for ambient singletons: everything is wired here
// and passed down by reference.
type ServiceOptions struct {
	Store   contracts.KVStore
	Catalog *catalog.Catalog
	Rules   *validate.Rules
	Backups *backup.Rotator
	Manager *cart.Manager
	Logger  *zap.Logger
}

// NewServiceOptions creates and wires up all application dependencies.
func NewServiceOptions(cfg Config, logger *zap.Logger) (*ServiceOptions, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	store, err := badgerkv.Open(badgerkv.Config{
		Dir:        cfg.DataDir,
		InMemory:   cfg.InMemory,
		SyncWrites: !cfg.InMemory,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	clk := clock.System()
	rotator := backup.NewRotator(store, clk, logger, cfg.BackupKeep)

	manager, err := cart.NewManager(cart.Config{
		Store:   store,
		Catalog: cat,
		// The manager resolves existence through the catalog itself, so
		// its rules skip the existence check; a lookup-aware rule set is
		// what presentation layers should use for pre-checks.
		Rules:    validate.NewRules(nil),
		Backups:  rotator,
		Reporter: report.NewLogReporter(logger),
		Clock:    clk,
		Logger:   logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to construct cart manager: %w", err)
	}

	return &ServiceOptions{
		Store:   store,
		Catalog: cat,
		Rules:   validate.NewRules(cat),
		Backups: rotator,
		Manager: manager,
		Logger:  logger,
	}, nil
}

// Close releases held resources.
func (s *ServiceOptions) Close() error {
	return s.Store.Close()
}

// prune_backups trims the cart's backup history down to the configured
// retention. Normally rotation happens on every save; this tool exists for
// data directories written by older builds or after lowering backup_keep.
//
// Usage: prune_backups <config.yaml>
package main

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/light-bringer/cart-service/internal/app/cart"
	"github.com/light-bringer/cart-service/internal/pkg/backup"
	"github.com/light-bringer/cart-service/internal/pkg/clock"
	"github.com/light-bringer/cart-service/internal/services"
	"github.com/light-bringer/cart-service/internal/storage/badgerkv"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to prune backups: %v", err)
	}
}

func run() error {
	if len(os.Args) != 2 {
		return fmt.Errorf("usage: prune_backups <config.yaml>")
	}

	cfg, err := services.LoadConfig(os.Args[1])
	if err != nil {
		return err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	store, err := badgerkv.Open(badgerkv.Config{
		Dir:        cfg.DataDir,
		InMemory:   cfg.InMemory,
		SyncWrites: true,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	before, err := store.Keys(cart.StorageKeyItems + "_backup_")
	if err != nil {
		return fmt.Errorf("failed to enumerate backups: %w", err)
	}

	rotator := backup.NewRotator(store, clock.System(), logger, cfg.BackupKeep)
	rotator.CleanupOld(cart.StorageKeyItems)

	after, err := store.Keys(cart.StorageKeyItems + "_backup_")
	if err != nil {
		return fmt.Errorf("failed to enumerate backups: %w", err)
	}

	fmt.Printf("Backups: %d -> %d (pruned %d)\n", len(before), len(after), len(before)-len(after))
	return nil
}

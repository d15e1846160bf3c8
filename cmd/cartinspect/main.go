// cartinspect prints the recovered cart state, storage info and backup
// inventory for a configured data directory.
//
// Usage: cartinspect <config.yaml>
package main

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/light-bringer/cart-service/internal/app/cart"
	"github.com/light-bringer/cart-service/internal/services"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to inspect cart: %v", err)
	}
}

func run() error {
	if len(os.Args) != 2 {
		return fmt.Errorf("usage: cartinspect <config.yaml>")
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

	opts, err := services.NewServiceOptions(cfg, logger)
	if err != nil {
		return err
	}
	defer opts.Close()

	info := opts.Manager.StorageInfo()
	fmt.Printf("Session-only: %v\n", info.SessionOnly)
	fmt.Printf("Last saved:   %s\n", info.LastSaved)
	fmt.Printf("Items:        %d\n", info.ItemCount)

	summary := opts.Manager.Summary()
	for _, line := range summary.Lines {
		fmt.Printf("  %-30s x%-4d %10s  (added %s)\n",
			line.Product.Name, line.Quantity, line.Subtotal, line.AddedAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("Total: %s\n", summary.Total)

	backups, err := opts.Store.Keys(cart.StorageKeyItems + "_backup_")
	if err != nil {
		return fmt.Errorf("failed to enumerate backups: %w", err)
	}
	fmt.Printf("Backups (%d):\n", len(backups))
	for _, key := range backups {
		fmt.Printf("  %s\n", key)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"pcbooking/internal/config"
	"pcbooking/internal/database"
	"pcbooking/internal/pkg/logger"
	"pcbooking/internal/repository"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type rootOptions struct {
	databaseURL string
	timeout     time.Duration
}

// NewRootCmd builds the bookingctl operator CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "bookingctl",
		Short:         "Operator tools for the PC service booking store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.databaseURL, "database", "", "database URL (defaults to DATABASE_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall command timeout")

	root.AddCommand(newAdminCmd(opts))
	root.AddCommand(newBookingsCmd(opts))
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// open loads configuration and a migrated database handle.
func (o *rootOptions) open() (*config.Config, *gorm.DB, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	logger.Init(cfg.AppEnv, "warn")

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db, repository.Models()...); err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func (o *rootOptions) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), o.timeout)
}

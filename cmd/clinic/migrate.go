package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/polyclinic/scheduler/internal/migrate"
)

const migrateTimeout = 60 * time.Second

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var seeds string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long:  `Apply, roll back or inspect the migrations embedded in the binary.`,
	}
	cmd.PersistentFlags().StringVar(&seeds, "seeds", "", "directory of SQL seed files applied by 'migrate seed'")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withManager(cmd, seeds, func(ctx context.Context, m *migrate.Manager) error {
					applied, err := m.Up(ctx)
					for _, name := range applied {
						cmd.Println("applied", name)
					}
					if err == nil && len(applied) == 0 {
						cmd.Println("schema is up to date")
					}
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withManager(cmd, seeds, func(ctx context.Context, m *migrate.Manager) error {
					name, err := m.Down(ctx)
					if errors.Is(err, migrate.ErrNothingToRollback) {
						cmd.Println("nothing to roll back")
						return nil
					}
					if err == nil {
						cmd.Println("rolled back", name)
					}
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withManager(cmd, seeds, func(ctx context.Context, m *migrate.Manager) error {
					applied, err := m.Status(ctx)
					if err != nil {
						return err
					}
					pending, err := m.Pending(ctx)
					if err != nil {
						return err
					}
					for _, name := range applied {
						cmd.Println("applied", name)
					}
					for _, name := range pending {
						cmd.Println("pending", name)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Apply SQL seed files from --seeds",
			RunE: func(cmd *cobra.Command, _ []string) error {
				if strings.TrimSpace(seeds) == "" {
					return oops.Code("CONFIG_INVALID").Errorf("--seeds is required")
				}
				return withManager(cmd, seeds, func(ctx context.Context, m *migrate.Manager) error {
					if err := m.Seed(ctx); err != nil {
						return err
					}
					cmd.Println("seeds applied")
					return nil
				})
			},
		},
	)
	return cmd
}

func withManager(cmd *cobra.Command, seeds string, fn func(context.Context, *migrate.Manager) error) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.dsn is required (--database-dsn or CLINIC_DATABASE__DSN)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
	defer cancel()

	store, err := openPostgres(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	var opts []migrate.Option
	if seeds != "" {
		opts = append(opts, migrate.WithSeeds(os.DirFS(seeds)))
	}
	mgr := migrate.NewManager(store.DB(), migrate.Schema(), opts...)
	if err := fn(ctx, mgr); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", cmd.Name()).Wrap(err)
	}
	return nil
}

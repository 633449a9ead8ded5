package main

import (
	"github.com/spf13/cobra"

	"github.com/polyclinic/scheduler/internal/config"
)

const serviceName = "clinic-api"

// NewRootCmd creates the root command for the clinic CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinic",
		Short: "Clinic scheduling backend",
		Long: `clinic serves the scheduling API (users, doctors, rooms, appointments)
and manages its PostgreSQL schema.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAdminCmd())

	return cmd
}

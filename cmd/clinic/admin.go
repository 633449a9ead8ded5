package main

import (
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/clinic"
	"github.com/polyclinic/scheduler/internal/config"
)

// NewAdminCmd creates the admin subcommand.
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative tasks",
	}
	cmd.AddCommand(newAdminCreateCmd())
	return cmd
}

func newAdminCreateCmd() *cobra.Command {
	var in clinic.UserInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account in PostgreSQL",
		Long: `Create an identity with the admin role. Self-service registration
always produces plain users, so the first admin is bootstrapped here.
The password may also be given as CLINIC_ADMIN_PASSWORD.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Database.DSN) == "" {
				return oops.Code("CONFIG_INVALID").Errorf("database.dsn is required (--database-dsn or CLINIC_DATABASE__DSN)")
			}
			if in.Password == "" {
				in.Password = os.Getenv(config.EnvPrefix + "ADMIN_PASSWORD")
			}

			store, err := openPostgres(cmd.Context(), cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			in.Role = string(auth.RoleAdmin)
			svc := clinic.NewService(store, auth.NewBcryptHasher(cfg.Auth.BcryptCost))
			admin, err := svc.CreateUser(cmd.Context(), in)
			if err != nil {
				return oops.Code("ADMIN_CREATE_FAILED").With("email", in.Email).Wrap(err)
			}
			logger.InfoContext(cmd.Context(), "admin created", "user_id", admin.ID.String(), "email", admin.Email)
			cmd.Println(admin.ID.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "admin email (login username)")
	cmd.Flags().StringVar(&in.Password, "password", "", "admin password")
	cmd.Flags().StringVar(&in.Name, "name", "Admin", "first name")
	cmd.Flags().StringVar(&in.Surname, "surname", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

package cli

import (
	"errors"
	"fmt"

	"pcbooking/internal/modules/auth"
	"pcbooking/internal/pkg/jwt"
	"pcbooking/internal/repository"

	"github.com/spf13/cobra"
)

func newAdminCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(newAdminCreateCmd(opts))
	return cmd
}

// newAdminCreateCmd bootstraps admins without going through the HTTP gate.
func newAdminCreateCmd(opts *rootOptions) *cobra.Command {
	var name, email, password string

	c := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(password) < 8 {
				return errors.New("password must be at least 8 characters")
			}

			cfg, db, err := opts.open()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context()
			defer cancel()

			svc := auth.NewService(
				repository.NewUserRepository(db),
				repository.NewRevokedTokenRepository(db),
				jwt.New(cfg.JWTSecret, cfg.JWTTTL),
			)
			user, err := svc.CreateAdmin(ctx, nil, auth.CreateAdminRequest{Name: name, Email: email, Password: password})
			if err != nil {
				if errors.Is(err, auth.ErrEmailAlreadyExists) {
					return fmt.Errorf("%s is already registered", email)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %q (id %d)\n", user.Email, user.ID)
			return nil
		},
	}

	c.Flags().StringVar(&name, "name", "", "display name")
	c.Flags().StringVar(&email, "email", "", "login email")
	c.Flags().StringVar(&password, "password", "", "password, at least 8 characters")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}

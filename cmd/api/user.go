package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/persistence"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/service"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userAddInput service.CreateUserInput
var userAddRole string

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an account that can sign in",
	RunE:  runUserAdd,
}

func init() {
	flags := userAddCmd.Flags()
	flags.StringVar(&userAddInput.Name, "name", "", "display name")
	flags.StringVar(&userAddInput.Email, "email", "", "sign-in email")
	flags.StringVar(&userAddInput.Password, "password", "", "initial password (min 8 characters)")
	flags.StringVar(&userAddRole, "role", string(domain.RoleUser), "user, technician or admin")
	flags.StringVar(&userAddInput.Department, "department", "", "department the account belongs to")
	_ = userAddCmd.MarkFlagRequired("name")
	_ = userAddCmd.MarkFlagRequired("email")
	_ = userAddCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userAddCmd)
}

func runUserAdd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	role, ok := domain.ParseRole(userAddRole)
	if !ok {
		return fmt.Errorf("unknown role %q", userAddRole)
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("user add: POSTGRES_DSN is required; in-memory accounts do not outlive the command")
	}

	ctx := cmd.Context()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	input := userAddInput
	input.Role = role
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: repository.NewUserRepository(pg.PoolHandle()),
	})
	user, err := authService.CreateUser(ctx, input)
	if err != nil {
		return err
	}
	logger.Info("user created", zap.String("user_id", user.ID), zap.String("email", user.Email), zap.String("role", string(user.Role)))
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) as %s\n", user.Email, user.ID, user.Role)
	return nil
}

package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"sessq-service/internal/config"
	"sessq-service/internal/infra/postgres"
)

// NewAddHostCmd creates a host account that can author quizzes and run
// sessions. Requires Postgres.
func NewAddHostCmd(configPath *string) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "add-host",
		Short: "Create a host account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return addHost(cmd.Context(), *configPath, username, password)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "host username")
	cmd.Flags().StringVar(&password, "password", "", "host password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func addHost(ctx context.Context, configPath, username, password string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	host, err := postgres.NewQuizStore(pool).CreateHost(ctx, username, string(hash))
	if err != nil {
		return err
	}
	fmt.Printf("created host %s (%s)\n", host.Username, host.ID)
	return nil
}

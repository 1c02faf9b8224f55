// Package cli implements storectl, the provisioning tool for storefront
// accounts.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/honeynil/storefront-api/internal/config"
	"github.com/honeynil/storefront-api/internal/infrastructure/kafka"
	"github.com/honeynil/storefront-api/internal/infrastructure/observability"
	core "github.com/honeynil/storefront-api/internal/repository/postgres"
	service "github.com/honeynil/storefront-api/internal/services"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

// AccountsFactory opens the account service and returns a func releasing
// everything it opened.
type AccountsFactory func(ctx context.Context) (service.AccountService, func(), error)

type app struct {
	openAccounts AccountsFactory
	timeout      time.Duration
	stdout       io.Writer
	stderr       io.Writer
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(openAccounts, os.Stdout, os.Stderr)
}

func newRootCommand(factory AccountsFactory, out, errOut io.Writer) *cobra.Command {
	a := &app{openAccounts: factory, stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           "storectl",
		Short:         "Provision storefront accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Second, "overall command timeout")

	cmd.AddCommand(
		newCreateAdminCmd(a),
		newResetPasswordCmd(a),
	)
	return cmd
}

// withAccounts runs fn against a freshly opened account service.
func (a *app) withAccounts(cmd *cobra.Command, fn func(ctx context.Context, accounts service.AccountService) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	accounts, closeFn, err := a.openAccounts(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, accounts)
}

func openAccounts(ctx context.Context) (service.AccountService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.UserEventsTopic, logger)

	accounts := service.NewAccountService(core.NewPostgresUserRepository(db, logger), producer, logger)
	closeFn := func() {
		_ = producer.Close()
		_ = db.Close()
		_ = logger.Sync()
	}
	return accounts, closeFn, nil
}

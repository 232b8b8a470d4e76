package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/tenantkit/pkg/config"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
	"github.com/dmitrymomot/tenantkit/svc/platform"
)

// app carries what every subcommand needs. The platform is opened lazily so
// that help and flag errors never touch the database.
type app struct {
	envFiles []string
	cfg      platform.Config
	log      *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "tenantctl",
		Short:         "Administer tenantkit tenants",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	cmd.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "Load environment from these .env files")

	cmd.AddCommand(
		newMigrateCommand(a),
		newProvisionCommand(a),
		newListCommand(a),
		newActivationCommand(a, "deactivate", false),
		newActivationCommand(a, "activate", true),
		newAPIKeyCommand(a),
		newTokenCommand(a),
	)
	return cmd
}

func (a *app) load() error {
	if len(a.envFiles) > 0 {
		if err := config.LoadEnv(a.envFiles...); err != nil {
			return err
		}
	}
	if err := config.Load(&a.cfg); err != nil {
		return err
	}
	a.log = platform.NewLogger(a.cfg)
	return nil
}

// withPlatform opens the platform for the duration of fn. Metrics are not
// exported from the CLI, so no registry is passed.
func (a *app) withPlatform(ctx context.Context, fn func(p *platform.Platform) error) error {
	p, err := platform.New(ctx, a.cfg, a.log, nil)
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(p)
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the tenant directory migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pool, err := pg.Connect(ctx, a.cfg.PG)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pg.Migrate(ctx, pool, tenantdb.Migrations, tenantdb.MigrationsDir, a.cfg.PG, a.log); err != nil {
				return err
			}
			a.log.InfoContext(ctx, "directory migrations applied")
			return nil
		},
	}
}

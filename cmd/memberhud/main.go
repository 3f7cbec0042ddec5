package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/memberhud/internal/cache"
	"github.com/smallbiznis/memberhud/internal/clock"
	"github.com/smallbiznis/memberhud/internal/config"
	"github.com/smallbiznis/memberhud/internal/hud"
	huddomain "github.com/smallbiznis/memberhud/internal/hud/domain"
	"github.com/smallbiznis/memberhud/internal/migration"
	"github.com/smallbiznis/memberhud/internal/observability"
	"github.com/smallbiznis/memberhud/internal/ratelimit"
	"github.com/smallbiznis/memberhud/internal/scheduler"
	"github.com/smallbiznis/memberhud/internal/server"
	"github.com/smallbiznis/memberhud/internal/snapshot"
	"github.com/smallbiznis/memberhud/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "memberhud",
	Short:   "Membership lifecycle analytics for communities",
	Version: Version,

	SilenceErrors: true,
	SilenceUsage:  true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the sync scheduler",
	Run: func(cmd *cobra.Command, args []string) {
		fx.New(
			coreModules(),
			migration.Module,
			scheduler.Module,
			server.Module,
		).Run()
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [community...]",
	Short: "Sync communities once and exit",
	Long:  "Sync the given communities, or every community in HUD_COMMUNITIES when none are given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg    config.Config
			syncer huddomain.Syncer
			log    *zap.Logger
		)
		app := fx.New(
			coreModules(),
			migration.Module,
			fx.Populate(&cfg, &syncer, &log),
		)
		return runOnce(app, func(ctx context.Context) error {
			communities := args
			if len(communities) == 0 {
				communities = cfg.Sync.Communities
			}
			if len(communities) == 0 {
				return errors.New("no communities to sync")
			}

			var syncErr error
			for _, community := range communities {
				run, err := syncer.Sync(ctx, community)
				if err != nil {
					syncErr = errors.Join(syncErr, fmt.Errorf("%s: %w", community, err))
					continue
				}
				log.Info("community synced",
					zap.String("community", run.CommunitySlug),
					zap.String("sync_run_id", run.ID.String()),
					zap.Int("members", run.MemberCount),
				)
			}
			return syncErr
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			config.Module,
			observability.Module,
			db.Module,
			migration.Module,
		)
		return runOnce(app, func(context.Context) error { return nil })
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, syncCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func coreModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		ratelimit.Module,
		snapshot.Module,
		hud.Module,
	)
}

func runOnce(app *fx.App, fn func(ctx context.Context) error) error {
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(context.Background())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return errors.Join(runErr, app.Stop(stopCtx))
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

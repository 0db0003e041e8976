package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/rankwatch/internal/commands"
	"github.com/mauv0809/rankwatch/internal/config"
	"github.com/mauv0809/rankwatch/internal/database"
	"github.com/mauv0809/rankwatch/internal/game"
	"github.com/mauv0809/rankwatch/internal/game/raider"
	"github.com/mauv0809/rankwatch/internal/tracker"
	"github.com/spf13/cobra"
)

var seedPath string

var rootCmd = &cobra.Command{
	Use:   "rankwatch-seeder",
	Short: "Import group subscriptions from a YAML file",
	Long: `Reads groups, their channels and the players they watch from a YAML file
and subscribes them, fetching players that are not stored yet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&seedPath, "file", "f", "subscriptions.yaml", "The YAML file to import")
}

func run(ctx context.Context) error {
	log.Info("Starting subscription seeder...", "file", seedPath)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	file, err := loadSeedFile(seedPath)
	if err != nil {
		return err
	}

	db, teardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer teardown()

	raiderGame := raider.Game(cfg.Raider.BaseURL)
	raiderStore := tracker.New(db, raiderGame.Descriptor)
	if err := raiderStore.EnsureSchema(ctx); err != nil {
		return err
	}
	registry, err := game.NewRegistry(game.Kind{Game: raiderGame, Store: raiderStore})
	if err != nil {
		return err
	}

	startTime := time.Now()
	res := seed(ctx, registry, commands.New(registry, nil, nil, nil, cfg.Schedule.FetchTimeout), file)
	log.Info("Seeding finished", "subscribed", res.Subscribed, "existing", res.Existing, "failed", res.Failed, "duration", time.Since(startTime))
	if res.Failed > 0 {
		return fmt.Errorf("%d subscriptions could not be imported", res.Failed)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("Seeder failed", "error", err)
		os.Exit(1)
	}
}

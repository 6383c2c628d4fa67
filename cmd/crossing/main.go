// Command crossing counts vehicles moving between user-drawn zones of a
// video, records the annotated footage, and keeps the results in SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/banshee-data/crossing.report/internal/config"
	"github.com/banshee-data/crossing.report/internal/db"
	"github.com/banshee-data/crossing.report/internal/monitoring"
	"github.com/banshee-data/crossing.report/internal/version"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	dbPath     string
	configPath string
	logLevel   string
	logJSON    bool
}

// tuning loads --config, or the built-in defaults when it is empty.
func (g *globalOptions) tuning() (*config.TuningConfig, error) {
	if g.configPath == "" {
		return config.EmptyTuningConfig(), nil
	}
	cfg, err := config.LoadTuningConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", g.configPath, err)
	}
	return cfg, nil
}

// openDB opens --db and applies pending migrations.
func (g *globalOptions) openDB() (*db.DB, error) {
	store, err := db.NewDB(g.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "crossing",
		Short: "Count zone-to-zone crossings in traffic video",
		Long: `crossing tracks vehicles in a video, counts every move from one named
zone into another, and saves the counts (and optionally the annotated video)
as named records.

Examples:
  crossing serve --listen :8080 --media-dir ./videos
  crossing run clip.mp4 --zones zones.json --record
  crossing records list
  crossing records chart 3 -o morning.png`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			monitoring.Init(g.logLevel, !g.logJSON)
		},
	}
	root.SetVersionTemplate(version.String() + "\n")

	pf := root.PersistentFlags()
	pf.StringVar(&g.dbPath, "db", db.DefaultPath, "SQLite database path")
	pf.StringVar(&g.configPath, "config", "", "tuning config JSON (defaults apply when empty)")
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (default from CROSSING_LOG_LEVEL, else info)")
	pf.BoolVar(&g.logJSON, "log-json", false, "log JSON lines instead of console output")

	root.AddCommand(
		newServeCmd(g),
		newRunCmd(g),
		newRecordsCmd(g),
		newMigrateCmd(g),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("crossing failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

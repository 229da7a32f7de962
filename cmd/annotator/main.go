// Command annotator edits shape annotations over a terminal canvas and
// persists them to sqlite.
//
//	annotator                  open the editor
//	annotator list             print stored annotations
//	annotator export -f yaml   dump annotations
//	annotator migrate status   show the schema version
//	annotator config init      write the default config file
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jask/annotator/internal/config"
	"github.com/jask/annotator/internal/database"
)

var version = "dev"

// globals shared by every subcommand
type globals struct {
	configPath string
	dbPath     string
	cfg        config.Config
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "annotator:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	g := &globals{}
	var seed bool

	root := &cobra.Command{
		Use:          "annotator",
		Short:        "Draw and edit shape annotations in the terminal",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEditor(cmd.Context(), g, seed)
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default $ANNOTATOR_CONFIG or ~/.config/annotator/config.toml)")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "sqlite database path (overrides config)")
	root.Flags().BoolVar(&seed, "seed", false, "insert sample annotations into an empty database")

	root.AddCommand(
		buildListCmd(g),
		buildExportCmd(g),
		buildMigrateCmd(g),
		buildConfigCmd(g),
	)
	return root
}

func (g *globals) load() error {
	var (
		cfg config.Config
		err error
	)
	if g.configPath == "" {
		g.configPath = config.Path()
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFile(g.configPath)
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if g.dbPath != "" {
		cfg.Database.Path = g.dbPath
	}
	g.cfg = cfg
	return nil
}

// openDB opens and migrates the configured database.
func (g *globals) openDB() (*sql.DB, error) {
	db, err := database.Open(g.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (g *globals) logger(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

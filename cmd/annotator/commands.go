package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jask/annotator/internal/annotation"
	"github.com/jask/annotator/internal/config"
	"github.com/jask/annotator/internal/database"
	"github.com/jask/annotator/internal/database/repository"
	"github.com/jask/annotator/internal/editor"
)

func buildListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print stored annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			entries, err := repository.NewAnnotationRepo(db).List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderList(entries))
			return nil
		},
	}
}

func renderList(entries []annotation.Entry) string {
	if len(entries) == 0 {
		return "no annotations"
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "SHAPE", "LABEL", "POINTS", "VERSION")
	for _, e := range entries {
		t.Row(e.ID, e.Payload.Shape, e.Payload.Label, strconv.Itoa(len(e.Payload.Points)), strconv.Itoa(e.Version))
	}
	return t.Render()
}

func buildExportCmd(g *globals) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write annotations as YAML or JSON",
		Args:  cobra.NoArgs,
		Example: `  annotator export --format json
  annotator export -f yaml -o annotations.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			entries, err := repository.NewAnnotationRepo(db).List(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return writeExport(w, entries, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func writeExport(w io.Writer, entries []annotation.Entry, format string) error {
	if entries == nil {
		entries = []annotation.Entry{}
	}
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	return fmt.Errorf("unknown format %q (want yaml or json)", format)
}

func buildMigrateCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := database.Open(g.cfg.Database.Path)
				if err != nil {
					return err
				}
				defer db.Close()
				v, dirty, err := database.SchemaVersion(db)
				if err != nil {
					return err
				}
				files, err := database.MigrationFiles()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d of %d (dirty=%v)\n", v, len(files), dirty)
				return nil
			},
		},
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := g.openDB()
				if err != nil {
					return err
				}
				return db.Close()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert every migration (drops all annotations)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := database.Open(g.cfg.Database.Path)
				if err != nil {
					return err
				}
				defer db.Close()
				return database.MigrateDown(db)
			},
		},
	)
	return cmd
}

func buildConfigCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration file commands",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective settings and key bindings to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(g.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", g.configPath)
			}
			cfg := g.cfg
			bindings := editor.ApplyActionKeybindings(editor.DefaultKeyBindings(), cfg.Keys)
			cfg.Keys = editor.DefaultKeybindingsByAction(bindings)
			if err := config.Save(g.configPath, cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", g.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

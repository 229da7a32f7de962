package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/annotator/internal/config"
	"github.com/jask/annotator/internal/database"
	"github.com/jask/annotator/internal/database/repository"
	"github.com/jask/annotator/internal/editor"
	"github.com/jask/annotator/internal/metrics"
	"github.com/jask/annotator/internal/mode"
	"github.com/jask/annotator/internal/shape"
	"github.com/jask/annotator/internal/store"
	"github.com/jask/annotator/internal/tui"
)

func runEditor(parent context.Context, g *globals, seed bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM)
	defer stop()
	cfg := g.cfg

	// the terminal belongs to the UI, so logs go to a file
	logFile, err := tea.LogToFile(cfg.Log.File, "annotator")
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	logger := g.logger("main")

	db, err := g.openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	if seed {
		if err := database.SeedSamples(ctx, db); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	repo := repository.NewAnnotationRepo(db)
	entries, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load annotations: %w", err)
	}

	shapes := shape.Defaults()
	theme := cfg.ResolvedTheme()
	st := store.New(
		store.WithValidator(shapes),
		store.WithRegistrar(repo),
		store.WithPersister(repo),
		store.WithRemover(repo),
		store.WithTheme(theme),
		store.WithLogger(g.logger("store")),
	)
	st.Load(entries)

	initial, err := mode.Parse(cfg.Editor.Mode)
	if err != nil {
		return fmt.Errorf("editor.mode: %w", err)
	}
	modes := mode.New(mode.WithMode(initial), mode.WithActive(cfg.Editor.Active))

	rec := metrics.New()
	rec.Annotations(st.Len())
	go func() {
		if err := rec.Serve(ctx, cfg.Metrics.Addr, g.logger("metrics")); err != nil {
			logger.Error("metrics server stopped", "err", err)
		}
	}()

	model := tui.New(ctx, tui.Options{
		Store:     st,
		Modes:     modes,
		Shapes:    shapes,
		Theme:     theme,
		Keys:      editor.ApplyActionKeybindings(editor.DefaultKeyBindings(), cfg.Keys),
		Recorder:  rec,
		Shape:     cfg.Editor.Shape,
		Tolerance: cfg.Editor.Tolerance,
		Logger:    slog.Default(),
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))

	if err := config.Watch(ctx, g.configPath, g.logger("config"), func(c config.Config) {
		p.Send(tui.ConfigReloaded{Config: c})
	}); err != nil {
		logger.Warn("config watch disabled", "err", err)
	}

	logger.Info("editor starting", "annotations", st.Len(), "db", cfg.Database.Path)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run editor: %w", err)
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/annotator/internal/annotation"
	"github.com/jask/annotator/internal/database/repository"
	"github.com/jask/annotator/internal/geom"
)

var samples = []annotation.Payload{
	{Shape: "rect", Label: "header", Points: []geom.Point{geom.Pt(0.05, 0.05), geom.Pt(0.95, 0.2)}},
	{Shape: "polygon", Label: "figure", Points: []geom.Point{geom.Pt(0.3, 0.4), geom.Pt(0.7, 0.45), geom.Pt(0.5, 0.85)}},
}

// SeedSamples inserts a couple of annotations into an empty database, all
// or none. It is idempotent and safe to run on every startup.
func SeedSamples(ctx context.Context, db *sql.DB) error {
	return WithTx(db, func(tx *sql.Tx) error {
		return seed(ctx, repository.NewAnnotationRepo(tx), samples)
	})
}

func seed(ctx context.Context, repo *repository.AnnotationRepo, payloads []annotation.Payload) error {
	n, err := repo.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	for _, p := range payloads {
		if _, err := repo.Register(ctx, p); err != nil {
			return fmt.Errorf("seed %s: %w", p.Label, err)
		}
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jask/annotator/internal/annotation"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AnnotationRepo persists annotations. It serves as the store's registrar,
// persister and remover.
type AnnotationRepo struct {
	db    DBTX
	newID func() string
	now   func() time.Time
}

func NewAnnotationRepo(db DBTX) *AnnotationRepo {
	return &AnnotationRepo{
		db:    db,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// Register inserts p under a fresh id and returns it.
func (r *AnnotationRepo) Register(ctx context.Context, p annotation.Payload) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	id := r.newID()
	now := r.now()
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO annotations(id, shape, label, payload, version, created_at, updated_at)
	VALUES (?, ?, ?, ?, 1, ?, ?)
	`, id, p.Shape, p.Label, string(body), now, now)
	if err != nil {
		return "", fmt.Errorf("insert annotation: %w", err)
	}
	return id, nil
}

// Persist overwrites the row for id. A missing row reports false.
func (r *AnnotationRepo) Persist(ctx context.Context, id string, p annotation.Payload) (bool, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("encode payload: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
	UPDATE annotations
	SET shape=?, label=?, payload=?, version=version+1, updated_at=?
	WHERE id=?
	`, p.Shape, p.Label, string(body), r.now(), id)
	if err != nil {
		return false, fmt.Errorf("update annotation: %w", err)
	}
	return affected(res)
}

// Remove deletes the row for id. A missing row reports false.
func (r *AnnotationRepo) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM annotations WHERE id=?`, id)
	if err != nil {
		return false, fmt.Errorf("delete annotation: %w", err)
	}
	return affected(res)
}

// List returns every annotation in insertion order.
func (r *AnnotationRepo) List(ctx context.Context) ([]annotation.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, payload, version FROM annotations ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []annotation.Entry
	for rows.Next() {
		var (
			e    annotation.Entry
			body string
		)
		if err := rows.Scan(&e.ID, &body, &e.Version); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(body), &e.Payload); err != nil {
			return nil, fmt.Errorf("decode payload %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *AnnotationRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM annotations`).Scan(&n)
	return n, err
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/ehr/demodata/internal/platform/sandbox"
)

// TablePrefix is prepended to each category name to form its table.
const TablePrefix = "demo_"

// BatchSize caps the upserts queued in one pgx.Batch round trip.
const BatchSize = 500

// Beginner starts transactions. *pgxpool.Pool and *pgx.Conn satisfy it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LoadResult describes one loaded category.
type LoadResult struct {
	Category sandbox.Category `json:"category"`
	Table    string           `json:"table"`
	Rows     int              `json:"rows"`
}

// Loader upserts generated records into fixture tables, one transaction per
// category.
type Loader struct {
	db     Beginner
	logger zerolog.Logger
	now    func() time.Time
}

// NewLoader creates a loader over db.
func NewLoader(db Beginner, logger zerolog.Logger) *Loader {
	return &Loader{db: db, logger: logger, now: time.Now}
}

// TableName returns the quoted fixture table of a category.
func TableName(cat sandbox.Category) string {
	return pgx.Identifier{TablePrefix + string(cat)}.Sanitize()
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id TEXT PRIMARY KEY,
    resident_id TEXT NOT NULL,
    data JSONB NOT NULL,
    loaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, table)
}

func upsertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (id, resident_id, data, loaded_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    resident_id = EXCLUDED.resident_id,
    data = EXCLUDED.data,
    loaded_at = EXCLUDED.loaded_at`, table)
}

// LoadAll loads every category in cats, or all categories when cats is
// empty. A failing category is rolled back without stopping the others.
func (l *Loader) LoadAll(ctx context.Context, c *sandbox.Collections, cats ...sandbox.Category) ([]LoadResult, error) {
	if len(cats) == 0 {
		cats = sandbox.Categories
	}

	var (
		results []LoadResult
		errs    []error
	)
	for _, cat := range cats {
		res, err := l.Load(ctx, c, cat)
		if err != nil {
			l.logger.Error().Err(err).Str("category", string(cat)).Msg("load category failed")
			errs = append(errs, err)
			continue
		}
		l.logger.Info().Str("category", string(cat)).Str("table", res.Table).Int("rows", res.Rows).Msg("category loaded")
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// Load ensures the category table exists and upserts its records in a
// single transaction.
func (l *Loader) Load(ctx context.Context, c *sandbox.Collections, cat sandbox.Category) (LoadResult, error) {
	items, err := c.Items(cat)
	if err != nil {
		return LoadResult{}, err
	}
	table := TableName(cat)

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("begin %s: %w", cat, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, createTableSQL(table)); err != nil {
		return LoadResult{}, fmt.Errorf("create table %s: %w", table, err)
	}

	loadedAt := l.now().UTC()
	query := upsertSQL(table)
	for chunk := range slices.Chunk(items, BatchSize) {
		b := &pgx.Batch{}
		for _, it := range chunk {
			data, err := json.Marshal(it.Payload())
			if err != nil {
				return LoadResult{}, fmt.Errorf("encode %s record %s: %w", cat, it.RecordID(), err)
			}
			b.Queue(query, it.RecordID(), it.ResidentID(), data, loadedAt)
		}
		if i, err := execBatch(ctx, tx, b); err != nil {
			return LoadResult{}, fmt.Errorf("upsert %s record %s: %w", cat, chunk[i].RecordID(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return LoadResult{}, fmt.Errorf("commit %s: %w", cat, err)
	}
	return LoadResult{Category: cat, Table: table, Rows: len(items)}, nil
}

// execBatch sends b and reads every result. On failure it returns the index
// of the failing statement.
func execBatch(ctx context.Context, tx pgx.Tx, b *pgx.Batch) (int, error) {
	br := tx.SendBatch(ctx, b)
	for i := range b.Len() {
		if _, err := br.Exec(); err != nil {
			br.Close() //nolint:errcheck
			return i, err
		}
	}
	return b.Len() - 1, br.Close()
}

package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/ehr/demodata/internal/platform/sandbox"
	"github.com/ehr/demodata/pkg/fhirmodels"
)

type execCall struct {
	sql  string
	args []any
}

// fakeTx embeds pgx.Tx so only the methods the loader calls need bodies.
// Batched statements are recorded in execs as they are read back.
type fakeTx struct {
	pgx.Tx
	execs      []execCall
	batches    []int
	failOn     string
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx.failOn != "" && strings.Contains(sql, tx.failOn) {
		return pgconn.CommandTag{}, errors.New("exec failed")
	}
	tx.execs = append(tx.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	tx.batches = append(tx.batches, b.Len())
	return &fakeBatchResults{ctx: ctx, tx: tx, queued: b.QueuedQueries}
}

type fakeBatchResults struct {
	pgx.BatchResults
	ctx    context.Context
	tx     *fakeTx
	queued []*pgx.QueuedQuery
	next   int
}

func (br *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	q := br.queued[br.next]
	br.next++
	return br.tx.Exec(br.ctx, q.SQL, q.Arguments...)
}

func (br *fakeBatchResults) Close() error { return nil }

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	txs    []*fakeTx
	failOn map[int]string
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	tx := &fakeTx{failOn: db.failOn[len(db.txs)]}
	db.txs = append(db.txs, tx)
	return tx, nil
}

func testCollections() *sandbox.Collections {
	at := fhirmodels.NewDateTime(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))
	return &sandbox.Collections{
		Financials: []sandbox.Record[sandbox.FinancialData]{
			{ID: "f1", Data: sandbox.FinancialData{ResidentID: "r1", Amount: 1200, OccurrenceDatetime: at, Type: "charge", Description: "Monthly Rent"}},
			{ID: "f2", Data: sandbox.FinancialData{ResidentID: "r2", Amount: 40, OccurrenceDatetime: at, Type: "payment", Description: "Co-pay"}},
		},
	}
}

func newTestLoader(db Beginner) *Loader {
	l := NewLoader(db, zerolog.Nop())
	l.now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }
	return l
}

func TestTableName(t *testing.T) {
	if got := TableName(sandbox.CategoryAdministrations); got != `"demo_prescription_administration"` {
		t.Fatalf("unexpected table name %s", got)
	}
}

func TestLoader_Load(t *testing.T) {
	db := &fakeDB{}
	res, err := newTestLoader(db).Load(context.Background(), testCollections(), sandbox.CategoryFinancials)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Rows != 2 || res.Table != `"demo_financials"` {
		t.Fatalf("unexpected result %+v", res)
	}

	tx := db.txs[0]
	if !tx.committed || tx.rolledBack {
		t.Fatalf("expected commit without rollback, got committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
	if len(tx.execs) != 3 {
		t.Fatalf("expected create + 2 upserts, got %d statements", len(tx.execs))
	}
	if !strings.HasPrefix(tx.execs[0].sql, `CREATE TABLE IF NOT EXISTS "demo_financials"`) {
		t.Errorf("expected table creation first, got %q", tx.execs[0].sql)
	}

	upsert := tx.execs[1]
	if !strings.Contains(upsert.sql, "ON CONFLICT (id) DO UPDATE") {
		t.Errorf("expected upsert, got %q", upsert.sql)
	}
	if upsert.args[0] != "f1" || upsert.args[1] != "r1" {
		t.Errorf("unexpected key args %v", upsert.args[:2])
	}
	var data map[string]any
	if err := json.Unmarshal(upsert.args[2].([]byte), &data); err != nil {
		t.Fatalf("data arg is not JSON: %v", err)
	}
	if data["description"] != "Monthly Rent" || data["occurrence_datetime"] != "2024-01-02T10:00:00Z" {
		t.Errorf("unexpected data %v", data)
	}
	if got := upsert.args[3].(time.Time); !got.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected loaded_at %s", got)
	}
}

func TestLoader_BatchesUpserts(t *testing.T) {
	at := fhirmodels.NewDateTime(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))
	c := &sandbox.Collections{}
	for i := range 2*BatchSize + 7 {
		c.Financials = append(c.Financials, sandbox.Record[sandbox.FinancialData]{
			ID:   fmt.Sprintf("f%d", i),
			Data: sandbox.FinancialData{ResidentID: "r1", Amount: 10, OccurrenceDatetime: at, Type: "charge"},
		})
	}

	db := &fakeDB{}
	res, err := newTestLoader(db).Load(context.Background(), c, sandbox.CategoryFinancials)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Rows != len(c.Financials) {
		t.Fatalf("expected %d rows, got %d", len(c.Financials), res.Rows)
	}
	tx := db.txs[0]
	if want := []int{BatchSize, BatchSize, 7}; !slices.Equal(tx.batches, want) {
		t.Fatalf("expected batches %v, got %v", want, tx.batches)
	}
	if len(tx.execs) != len(c.Financials)+1 {
		t.Fatalf("expected create + %d upserts, got %d statements", len(c.Financials), len(tx.execs))
	}
	if last := tx.execs[len(tx.execs)-1]; last.args[0] != fmt.Sprintf("f%d", len(c.Financials)-1) {
		t.Errorf("expected last upsert for the last record, got %v", last.args[0])
	}
}

func TestLoader_BatchFailureNamesRecord(t *testing.T) {
	db := &fakeDB{failOn: map[int]string{0: "INSERT"}}
	_, err := newTestLoader(db).Load(context.Background(), testCollections(), sandbox.CategoryFinancials)
	if err == nil || !strings.Contains(err.Error(), "record f1") {
		t.Fatalf("expected error naming record f1, got %v", err)
	}
}

func TestLoader_EmptyCategoryCreatesTable(t *testing.T) {
	db := &fakeDB{}
	res, err := newTestLoader(db).Load(context.Background(), testCollections(), sandbox.CategoryAllergies)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Rows != 0 || len(db.txs[0].execs) != 1 || !db.txs[0].committed {
		t.Fatalf("expected table creation only, got %+v with %d statements", res, len(db.txs[0].execs))
	}
}

func TestLoader_FailureRollsBack(t *testing.T) {
	db := &fakeDB{failOn: map[int]string{0: "INSERT"}}
	_, err := newTestLoader(db).Load(context.Background(), testCollections(), sandbox.CategoryFinancials)
	if err == nil {
		t.Fatal("expected error")
	}
	if db.txs[0].committed || !db.txs[0].rolledBack {
		t.Fatal("expected rollback without commit")
	}
}

func TestLoader_LoadAllContinuesPastFailure(t *testing.T) {
	db := &fakeDB{failOn: map[int]string{0: "CREATE TABLE"}}
	cats := []sandbox.Category{sandbox.CategoryAllergies, sandbox.CategoryFinancials}

	results, err := newTestLoader(db).LoadAll(context.Background(), testCollections(), cats...)
	if err == nil {
		t.Fatal("expected joined error for the failed category")
	}
	if len(results) != 1 || results[0].Category != sandbox.CategoryFinancials || results[0].Rows != 2 {
		t.Fatalf("expected financials loaded, got %+v", results)
	}
	if len(db.txs) != 2 {
		t.Fatalf("expected one transaction per category, got %d", len(db.txs))
	}
}

func TestLoader_UnknownCategory(t *testing.T) {
	_, err := newTestLoader(&fakeDB{}).Load(context.Background(), testCollections(), "residents")
	if !errors.Is(err, sandbox.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

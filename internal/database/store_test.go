package database_test

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/edgard/intakebot/internal/database"
	"github.com/edgard/intakebot/internal/ledger"
	"github.com/edgard/intakebot/internal/stats"
)

func openStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "index", "requests.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, nil)
}

func TestIndexingAppender_TallyMatchesLedgerScan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledgerStore := ledger.NewFileStore(t.TempDir(), nil)
	index := openStore(t)
	appender := database.NewIndexingAppender(ledgerStore, index)

	inputs := []struct {
		sender   int64
		category ledger.Category
	}{
		{1, ledger.CategoryOffers},
		{2, ledger.CategoryPersonal},
		{1, ledger.CategoryOffers},
		{3, ledger.CategoryGibberish},
	}
	for _, in := range inputs {
		if _, err := appender.Append(ctx, in.sender, "text", in.category); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	fromIndex, err := index.Tally(ctx)
	if err != nil {
		t.Fatalf("index Tally() error = %v", err)
	}
	fromScan, err := stats.FromLedger(ledgerStore, nil).Tally(ctx)
	if err != nil {
		t.Fatalf("ledger Tally() error = %v", err)
	}
	if !reflect.DeepEqual(fromIndex, fromScan) {
		t.Errorf("index tally %+v differs from scan %+v", fromIndex, fromScan)
	}
	if fromIndex.Total != 4 || fromIndex.BySender[1] != 2 {
		t.Errorf("index tally = %+v", fromIndex)
	}
}

func TestIndexingAppender_LedgerFailureIsNotIndexed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	index := openStore(t)
	appender := database.NewIndexingAppender(ledger.NewFileStore(t.TempDir(), nil), index)

	if _, err := appender.Append(ctx, 1, "text", ledger.Category("spam")); !errors.Is(err, ledger.ErrUnknownCategory) {
		t.Fatalf("Append() error = %v, want ErrUnknownCategory", err)
	}
	tally, err := index.Tally(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tally.Total != 0 {
		t.Errorf("index holds %d rows after failed append", tally.Total)
	}
}

func TestRebuild(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledgerStore := ledger.NewFileStore(t.TempDir(), nil)
	for i := int64(1); i <= 3; i++ {
		if _, err := ledgerStore.Append(ctx, i, "text", ledger.CategoryPersonal); err != nil {
			t.Fatal(err)
		}
	}
	index := openStore(t)
	if err := index.IndexRequest(ctx, ledger.NewRequest(99, "stale", ledger.CategoryOffers, time.Now())); err != nil {
		t.Fatal(err)
	}

	n, err := index.Rebuild(ctx, ledgerStore.Scan(ctx))
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Rebuild() indexed %d, want 3", n)
	}
	tally, err := index.Tally(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tally.Total != 3 || tally.ByCategory[ledger.CategoryOffers] != 0 || tally.ByCategory[ledger.CategoryPersonal] != 3 {
		t.Errorf("tally after rebuild = %+v", tally)
	}
}

func TestRebuild_ScanErrorKeepsPreviousContent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	index := openStore(t)
	if err := index.IndexRequest(ctx, ledger.NewRequest(1, "kept", ledger.CategoryOffers, time.Now())); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("disk gone")
	var failing iter.Seq2[ledger.Request, error] = func(yield func(ledger.Request, error) bool) {
		if !yield(ledger.NewRequest(2, "new", ledger.CategoryPersonal, time.Now()), nil) {
			return
		}
		yield(ledger.Request{}, boom)
	}
	if _, err := index.Rebuild(ctx, failing); !errors.Is(err, boom) {
		t.Fatalf("Rebuild() error = %v, want %v", err, boom)
	}

	tally, err := index.Tally(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tally.Total != 1 || tally.ByCategory[ledger.CategoryOffers] != 1 {
		t.Errorf("tally after failed rebuild = %+v, want original row only", tally)
	}
}

func TestRunSQLMaintenance(t *testing.T) {
	t.Parallel()

	index := openStore(t)
	if err := index.RunSQLMaintenance(context.Background()); err != nil {
		t.Fatalf("RunSQLMaintenance() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := index.RunSQLMaintenance(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RunSQLMaintenance(cancelled) error = %v", err)
	}
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"data/requests.db", "data/requests.db"},
		{"file:data/requests.db?_pragma=busy_timeout(5000)", "data/requests.db"},
		{"file:my%20index.db", "my index.db"},
	}
	for _, tt := range tests {
		if got := database.ExtractDBNameFromPath(tt.in); got != tt.want {
			t.Errorf("ExtractDBNameFromPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package stats_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/edgard/intakebot/internal/ledger"
	"github.com/edgard/intakebot/internal/stats"
)

func seed(t *testing.T, entries []struct {
	sender   int64
	category ledger.Category
}) *ledger.FileStore {
	t.Helper()
	store := ledger.NewFileStore(t.TempDir(), nil)
	for _, e := range entries {
		if _, err := store.Append(context.Background(), e.sender, "text", e.category); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	return store
}

func TestAggregator_EmptyStore(t *testing.T) {
	t.Parallel()

	store := ledger.NewFileStore(filepath.Join(t.TempDir(), "requests"), nil)
	agg := stats.NewAggregator(stats.FromLedger(store, nil))
	ctx := context.Background()

	total, err := agg.TotalCount(ctx)
	if err != nil || total != 0 {
		t.Errorf("TotalCount() = %d, %v; want 0, nil", total, err)
	}

	counts, err := agg.CountsByCategory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []stats.CategoryCount{
		{Category: ledger.CategoryGibberish},
		{Category: ledger.CategoryOffers},
		{Category: ledger.CategoryPersonal},
	}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("CountsByCategory() = %+v, want %+v", counts, want)
	}

	senders, err := agg.TopSenders(ctx, 5)
	if err != nil || len(senders) != 0 {
		t.Errorf("TopSenders() = %+v, %v; want empty", senders, err)
	}

	top, err := agg.TopCategories(ctx, 3)
	if err != nil || len(top) != 0 {
		t.Errorf("TopCategories() = %+v, %v; want empty", top, err)
	}
}

func TestAggregator_TopCategoriesSkipsEmpty(t *testing.T) {
	t.Parallel()

	store := seed(t, []struct {
		sender   int64
		category ledger.Category
	}{{1, ledger.CategoryOffers}, {2, ledger.CategoryOffers}, {3, ledger.CategoryPersonal}})
	agg := stats.NewAggregator(stats.FromLedger(store, nil))

	got, err := agg.TopCategories(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []stats.CategoryCount{{ledger.CategoryOffers, 2}, {ledger.CategoryPersonal, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopCategories(3) = %+v, want %+v", got, want)
	}
}

type countingSource struct {
	tally stats.Tally
	calls int
}

func (c *countingSource) Tally(context.Context) (stats.Tally, error) {
	c.calls++
	return c.tally, nil
}

func TestAggregator_SummaryUsesOneTally(t *testing.T) {
	t.Parallel()

	tally := stats.NewTally()
	tally.ByCategory[ledger.CategoryOffers] = 2
	tally.ByCategory[ledger.CategoryPersonal] = 1
	// A total that disagrees with the counts must not leak into the view.
	tally.Total = 7
	src := &countingSource{tally: tally}

	total, counts, err := stats.NewAggregator(src).Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if src.calls != 1 {
		t.Errorf("Summary() read the source %d times, want 1", src.calls)
	}
	if total != 3 {
		t.Errorf("Summary() total = %d, want 3", total)
	}
	want := []stats.CategoryCount{
		{ledger.CategoryGibberish, 0},
		{ledger.CategoryOffers, 2},
		{ledger.CategoryPersonal, 1},
	}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("Summary() counts = %+v, want %+v", counts, want)
	}
}

func TestAggregator_Queries(t *testing.T) {
	t.Parallel()

	store := seed(t, []struct {
		sender   int64
		category ledger.Category
	}{
		{10, ledger.CategoryOffers},
		{10, ledger.CategoryOffers},
		{20, ledger.CategoryPersonal},
		{30, ledger.CategoryOffers},
		{20, ledger.CategoryGibberish},
		{5, ledger.CategoryPersonal},
	})
	agg := stats.NewAggregator(stats.FromLedger(store, nil))
	ctx := context.Background()

	total, err := agg.TotalCount(ctx)
	if err != nil || total != 6 {
		t.Fatalf("TotalCount() = %d, %v; want 6", total, err)
	}

	tests := []struct {
		name string
		n    int
		want []stats.CategoryCount
	}{
		{"zero", 0, []stats.CategoryCount{}},
		{"negative", -1, []stats.CategoryCount{}},
		{"top one", 1, []stats.CategoryCount{{ledger.CategoryOffers, 3}}},
		{"all with ties", 3, []stats.CategoryCount{
			{ledger.CategoryOffers, 3},
			{ledger.CategoryPersonal, 2},
			{ledger.CategoryGibberish, 1},
		}},
		{"more than population", 10, []stats.CategoryCount{
			{ledger.CategoryOffers, 3},
			{ledger.CategoryPersonal, 2},
			{ledger.CategoryGibberish, 1},
		}},
	}
	for _, tt := range tests {
		got, err := agg.TopCategories(ctx, tt.n)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: TopCategories(%d) = %+v, want %+v", tt.name, tt.n, got, tt.want)
		}
	}

	senders, err := agg.TopSenders(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	wantSenders := []stats.SenderCount{{10, 2}, {20, 2}, {5, 1}}
	if !reflect.DeepEqual(senders, wantSenders) {
		t.Errorf("TopSenders(3) = %+v, want %+v", senders, wantSenders)
	}

	all, err := agg.TopSenders(ctx, 100)
	if err != nil || len(all) != 4 {
		t.Errorf("TopSenders(100) = %+v, %v; want 4 senders", all, err)
	}
}

func TestAggregator_Idempotent(t *testing.T) {
	t.Parallel()

	store := seed(t, []struct {
		sender   int64
		category ledger.Category
	}{{1, ledger.CategoryOffers}, {2, ledger.CategoryPersonal}})
	agg := stats.NewAggregator(stats.FromLedger(store, nil))
	ctx := context.Background()

	first, err := agg.CountsByCategory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := agg.CountsByCategory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated CountsByCategory() differ: %+v vs %+v", first, second)
	}
}

type failingSource struct{ err error }

func (f failingSource) Tally(context.Context) (stats.Tally, error) { return stats.Tally{}, f.err }

func TestAggregator_SourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	agg := stats.NewAggregator(failingSource{err: boom})
	if _, err := agg.TotalCount(context.Background()); !errors.Is(err, boom) {
		t.Errorf("TotalCount() error = %v, want %v", err, boom)
	}
	if _, _, err := agg.Summary(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Summary() error = %v, want %v", err, boom)
	}
	if got, err := agg.TopCategories(context.Background(), 0); err != nil || len(got) != 0 {
		t.Errorf("TopCategories(0) = %+v, %v; want empty without touching source", got, err)
	}
}

func TestLedgerSource_CancelledContext(t *testing.T) {
	t.Parallel()

	store := seed(t, []struct {
		sender   int64
		category ledger.Category
	}{{1, ledger.CategoryOffers}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := stats.FromLedger(store, nil).Tally(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Tally() error = %v, want context.Canceled", err)
	}
}

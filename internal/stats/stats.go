// Package stats computes read-only aggregate views over the request ledger.
package stats

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/edgard/intakebot/internal/ledger"
)

// Tally is a snapshot of request counts.
type Tally struct {
	Total      int
	ByCategory map[ledger.Category]int
	BySender   map[int64]int
}

// NewTally returns an empty tally with every category present.
func NewTally() Tally {
	t := Tally{ByCategory: make(map[ledger.Category]int, len(ledger.Categories)), BySender: make(map[int64]int)}
	for _, c := range ledger.Categories {
		t.ByCategory[c] = 0
	}
	return t
}

// Add counts one request.
func (t *Tally) Add(req ledger.Request) {
	t.Total++
	t.ByCategory[req.Category]++
	t.BySender[req.UserID]++
}

// Source produces a tally of the persisted requests.
type Source interface {
	Tally(ctx context.Context) (Tally, error)
}

// CategoryCount pairs a category with its request count.
type CategoryCount struct {
	Category ledger.Category
	Count    int
}

// SenderCount pairs a sender with its request count.
type SenderCount struct {
	UserID int64
	Count  int
}

// LedgerSource tallies by scanning every partition of the ledger.
type LedgerSource struct {
	scanner ledger.Scanner
	logger  *slog.Logger
}

// FromLedger returns a Source backed by a full ledger scan.
func FromLedger(scanner ledger.Scanner, logger *slog.Logger) *LedgerSource {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LedgerSource{scanner: scanner, logger: logger.With("component", "stats")}
}

// Tally scans the ledger. Partition-level read errors are logged and the
// remaining records are still counted; only cancellation aborts the scan.
func (s *LedgerSource) Tally(ctx context.Context) (Tally, error) {
	t := NewTally()
	for req, err := range s.scanner.Scan(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return Tally{}, fmt.Errorf("scan ledger: %w", ctx.Err())
			}
			s.logger.WarnContext(ctx, "Skipping unreadable ledger partition", "error", err)
			continue
		}
		t.Add(req)
	}
	return t, nil
}

// Aggregator answers the operator queries from a Source.
type Aggregator struct {
	source Source
}

// NewAggregator returns an Aggregator reading from source.
func NewAggregator(source Source) *Aggregator {
	return &Aggregator{source: source}
}

// TotalCount returns the number of persisted requests.
func (a *Aggregator) TotalCount(ctx context.Context) (int, error) {
	t, err := a.source.Tally(ctx)
	if err != nil {
		return 0, err
	}
	return t.Total, nil
}

// CountsByCategory returns a count for every category, zeros included, in
// canonical category order.
func (a *Aggregator) CountsByCategory(ctx context.Context) ([]CategoryCount, error) {
	t, err := a.source.Tally(ctx)
	if err != nil {
		return nil, err
	}
	return categoryCounts(t), nil
}

// Summary returns the total and the per-category counts of one tally. The
// total is the sum of the counts.
func (a *Aggregator) Summary(ctx context.Context) (int, []CategoryCount, error) {
	t, err := a.source.Tally(ctx)
	if err != nil {
		return 0, nil, err
	}
	counts := categoryCounts(t)
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return total, counts, nil
}

// TopCategories returns up to n categories that hold requests, ordered by
// count descending. Ties keep canonical category order.
func (a *Aggregator) TopCategories(ctx context.Context, n int) ([]CategoryCount, error) {
	if n <= 0 {
		return []CategoryCount{}, nil
	}
	t, err := a.source.Tally(ctx)
	if err != nil {
		return nil, err
	}
	counts := slices.DeleteFunc(categoryCounts(t), func(c CategoryCount) bool {
		return c.Count == 0
	})
	slices.SortStableFunc(counts, func(x, y CategoryCount) int {
		return cmp.Compare(y.Count, x.Count)
	})
	return counts[:min(n, len(counts))], nil
}

// TopSenders returns up to n senders ordered by count descending, ties
// broken by ascending sender id.
func (a *Aggregator) TopSenders(ctx context.Context, n int) ([]SenderCount, error) {
	if n <= 0 {
		return []SenderCount{}, nil
	}
	t, err := a.source.Tally(ctx)
	if err != nil {
		return nil, err
	}
	senders := make([]SenderCount, 0, len(t.BySender))
	for id, count := range t.BySender {
		senders = append(senders, SenderCount{UserID: id, Count: count})
	}
	slices.SortFunc(senders, func(x, y SenderCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.UserID, y.UserID)
	})
	return senders[:min(n, len(senders))], nil
}

func categoryCounts(t Tally) []CategoryCount {
	counts := make([]CategoryCount, 0, len(ledger.Categories))
	for _, c := range ledger.Categories {
		counts = append(counts, CategoryCount{Category: c, Count: t.ByCategory[c]})
	}
	return counts
}

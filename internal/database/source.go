package database

import (
	"context"
	"io"
	"log/slog"

	"github.com/edgard/intakebot/internal/stats"
)

// StatsSource answers from the index while it is in step with the ledger
// and from the ledger otherwise, including when the index query fails.
type StatsSource struct {
	index    Store
	fallback stats.Source
	logger   *slog.Logger
}

// NewStatsSource serves index tallies, falling back to fallback.
func NewStatsSource(index Store, fallback stats.Source, logger *slog.Logger) *StatsSource {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &StatsSource{index: index, fallback: fallback, logger: logger.With("component", "stats_source")}
}

// Tally implements stats.Source.
func (s *StatsSource) Tally(ctx context.Context) (stats.Tally, error) {
	if s.index.Stale() {
		s.logger.DebugContext(ctx, "Request index is stale, counting from the ledger")
		return s.fallback.Tally(ctx)
	}
	t, err := s.index.Tally(ctx)
	if err == nil {
		return t, nil
	}
	if ctx.Err() != nil {
		return stats.Tally{}, err
	}
	s.logger.WarnContext(ctx, "Request index query failed, counting from the ledger", "error", err)
	return s.fallback.Tally(ctx)
}

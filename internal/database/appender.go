package database

import (
	"context"

	"github.com/edgard/intakebot/internal/ledger"
)

// IndexingAppender appends to the ledger and mirrors every successful
// append into the index. The ledger result is authoritative.
type IndexingAppender struct {
	next  ledger.Appender
	index Store
}

// NewIndexingAppender wraps next so that appends are mirrored into index.
func NewIndexingAppender(next ledger.Appender, index Store) *IndexingAppender {
	return &IndexingAppender{next: next, index: index}
}

// Append implements ledger.Appender.
func (a *IndexingAppender) Append(ctx context.Context, senderID int64, text string, category ledger.Category) (ledger.Request, error) {
	return a.index.Mirror(ctx, func() (ledger.Request, error) {
		return a.next.Append(ctx, senderID, text, category)
	})
}

package database

import (
	"time"

	"github.com/edgard/intakebot/internal/ledger"
)

// RequestRow is one indexed ledger record.
type RequestRow struct {
	ID          int64     `db:"id"`
	OrderNumber string    `db:"order_number"`
	UserID      int64     `db:"user_id"`
	Category    string    `db:"category"`
	Message     string    `db:"message"`
	Timestamp   string    `db:"timestamp"`
	IndexedAt   time.Time `db:"indexed_at"`
}

func rowFromRequest(req ledger.Request, now time.Time) RequestRow {
	return RequestRow{
		OrderNumber: req.OrderNumber,
		UserID:      req.UserID,
		Category:    string(req.Category),
		Message:     req.Message,
		Timestamp:   req.Timestamp,
		IndexedAt:   now,
	}
}

type categoryCount struct {
	Category string `db:"category"`
	Count    int    `db:"n"`
}

type senderCount struct {
	UserID int64 `db:"user_id"`
	Count  int   `db:"n"`
}

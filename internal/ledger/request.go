package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the second-resolution layout used in timestamps,
// order numbers and file names.
const TimestampLayout = "2006-01-02_15-04-05"

// Request is one classified, persisted submission. Field order matches the
// on-disk JSON layout.
type Request struct {
	OrderNumber string   `json:"order_number"`
	UserID      int64    `json:"user_id"`
	Message     string   `json:"message"`
	Category    Category `json:"category"`
	Timestamp   string   `json:"timestamp"`
}

// NewRequest builds the record for a submission made at t.
func NewRequest(senderID int64, text string, category Category, t time.Time) Request {
	ts := t.Format(TimestampLayout)
	return Request{
		OrderNumber: OrderNumber(senderID, ts),
		UserID:      senderID,
		Message:     text,
		Category:    category,
		Timestamp:   ts,
	}
}

// OrderNumber formats the order number for a sender and timestamp.
// Two submissions by the same sender within one second share a number.
func OrderNumber(senderID int64, timestamp string) string {
	return fmt.Sprintf("#%d_%s", senderID, timestamp)
}

// FileName returns the partition-relative file name of the record.
func (r Request) FileName() string {
	return fmt.Sprintf("%s_%s.json", r.Category, r.Timestamp)
}

// Time parses the record timestamp in the given location.
func (r Request) Time(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, r.Timestamp, loc)
}

// encodeRequest renders r the way the records have always been written:
// two-space indentation, raw UTF-8 and no trailing newline.
func encodeRequest(r Request) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// decodeRequest parses a stored record and checks it belongs to partition.
func decodeRequest(data []byte, partition Category) (Request, error) {
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if !r.Category.Valid() {
		return Request{}, fmt.Errorf("%w: category %q", ErrMalformedRecord, r.Category)
	}
	if r.Category != partition {
		return Request{}, fmt.Errorf("%w: category %q stored under %q", ErrMalformedRecord, r.Category, partition)
	}
	return r, nil
}

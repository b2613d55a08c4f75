package ledger

import "errors"

var (
	// ErrPersistence is returned when a request could not be durably written.
	// Callers must not acknowledge the submission when they see it.
	ErrPersistence = errors.New("persistence fault")

	// ErrMalformedRecord marks a stored record that cannot be decoded or
	// does not belong to the partition it was found in.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnknownCategory is returned for a category outside the fixed set.
	ErrUnknownCategory = errors.New("unknown category")
)

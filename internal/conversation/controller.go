package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/edgard/intakebot/internal/langdetect"
	"github.com/edgard/intakebot/internal/ledger"
)

// Categorizer assigns a category to a message.
type Categorizer interface {
	Categorize(ctx context.Context, text string) (ledger.Category, langdetect.Tag)
}

// OutcomeKind tells the transport how to answer a submitted text.
type OutcomeKind int

const (
	// OutcomePrompt means the sender was not expected to write; they
	// should be pointed at the send button.
	OutcomePrompt OutcomeKind = iota
	// OutcomeAccepted means the text was classified and recorded.
	OutcomeAccepted
)

// Outcome is the result of Submit.
type Outcome struct {
	Kind     OutcomeKind
	Request  ledger.Request
	Language langdetect.Tag
}

// Controller is safe for concurrent use.
type Controller struct {
	sessions   SessionStore
	classifier Categorizer
	store      ledger.Appender
	logger     *slog.Logger
}

// NewController wires a Controller. A nil logger discards output.
func NewController(sessions SessionStore, classifier Categorizer, store ledger.Appender, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		sessions:   sessions,
		classifier: classifier,
		store:      store,
		logger:     logger.With("component", "conversation"),
	}
}

// Begin puts sender into the awaiting state. Calling it again is a no-op.
func (c *Controller) Begin(sender int64) {
	c.sessions.Set(sender, StateAwaitingRequest)
}

// Cancel returns sender to idle and reports whether a request was pending.
func (c *Controller) Cancel(sender int64) bool {
	return c.sessions.CompareAndSwap(sender, StateAwaitingRequest, StateIdle)
}

// State returns the current state of sender.
func (c *Controller) State(sender int64) State {
	return c.sessions.Get(sender)
}

// Submit handles a free-text message. An idle sender gets OutcomePrompt and
// nothing is classified. An awaiting sender's text is claimed, classified
// and appended; only one of several concurrent texts can win the claim. If
// the append fails the sender is put back into the awaiting state and the
// persistence error is returned.
func (c *Controller) Submit(ctx context.Context, sender int64, text string) (Outcome, error) {
	if !c.sessions.CompareAndSwap(sender, StateAwaitingRequest, StateIdle) {
		return Outcome{Kind: OutcomePrompt}, nil
	}

	category, lang := c.classifier.Categorize(ctx, text)
	req, err := c.store.Append(ctx, sender, text, category)
	if err != nil {
		c.sessions.CompareAndSwap(sender, StateIdle, StateAwaitingRequest)
		c.logger.ErrorContext(ctx, "Failed to record request",
			"user_id", sender, "category", category, "error", err)
		if !errors.Is(err, ledger.ErrPersistence) {
			err = fmt.Errorf("%w: %w", ledger.ErrPersistence, err)
		}
		return Outcome{}, err
	}

	c.logger.InfoContext(ctx, "Request accepted",
		"user_id", sender, "order_number", req.OrderNumber, "category", category, "language", lang)
	return Outcome{Kind: OutcomeAccepted, Request: req, Language: lang}, nil
}

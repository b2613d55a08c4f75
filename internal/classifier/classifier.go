// Package classifier assigns every incoming message to exactly one ledger
// category using language detection, entity extraction and keyword rules.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/edgard/intakebot/internal/entity"
	"github.com/edgard/intakebot/internal/langdetect"
	"github.com/edgard/intakebot/internal/ledger"
)

// ErrClassificationFault marks a failure inside the extraction step. It is
// logged and never returned; the message falls back to gibberish.
var ErrClassificationFault = errors.New("classification fault")

// Detector guesses the language of a text.
type Detector interface {
	Detect(text string) langdetect.Tag
}

// Classifier is safe for concurrent use.
type Classifier struct {
	detector  Detector
	extractor entity.Extractor
	keywords  *Keywords
	logger    *slog.Logger
}

// New builds a Classifier. A nil logger discards output.
func New(detector Detector, extractor entity.Extractor, keywords *Keywords, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if keywords == nil {
		keywords = &Keywords{Personal: map[string]struct{}{}, Offers: map[string]struct{}{}}
	}
	return &Classifier{
		detector:  detector,
		extractor: extractor,
		keywords:  keywords,
		logger:    logger.With("component", "classifier"),
	}
}

// Categorize detects the language of text and classifies it.
func (c *Classifier) Categorize(ctx context.Context, text string) (ledger.Category, langdetect.Tag) {
	tag := c.detector.Detect(text)
	return c.Classify(ctx, text, tag), tag
}

// Classify applies the rules in order, first match wins:
// unknown language is gibberish; a PERSON entity or a personal keyword is
// personal; an offer keyword is offers; anything else is gibberish.
func (c *Classifier) Classify(ctx context.Context, text string, tag langdetect.Tag) (category ledger.Category) {
	if tag != langdetect.English && tag != langdetect.Russian {
		return ledger.CategoryGibberish
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "Classifier panicked",
				"error", fmt.Errorf("%w: %v", ErrClassificationFault, r), "language", tag)
			category = ledger.CategoryGibberish
		}
	}()

	entities, err := c.extractor.Extract(ctx, text, tag)
	if err != nil {
		c.logger.ErrorContext(ctx, "Entity extraction failed",
			"error", fmt.Errorf("%w: %w", ErrClassificationFault, err), "language", tag)
		return ledger.CategoryGibberish
	}

	tokens := strings.Fields(cases.Lower(tag.Language()).String(text))
	switch {
	case entity.HasPerson(entities) || anyIn(tokens, c.keywords.Personal):
		category = ledger.CategoryPersonal
	case anyIn(tokens, c.keywords.Offers):
		category = ledger.CategoryOffers
	default:
		category = ledger.CategoryGibberish
	}
	c.logger.DebugContext(ctx, "Message classified",
		"language", tag, "entities", len(entities), "category", category)
	return category
}

package entity

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/edgard/intakebot/internal/langdetect"
)

// Fallback asks Primary first and Secondary when Primary fails. Caller
// cancellation is returned as is.
type Fallback struct {
	Primary   Extractor
	Secondary Extractor
	log       *slog.Logger
}

// NewFallback chains two extractors.
func NewFallback(primary, secondary Extractor, log *slog.Logger) *Fallback {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fallback{Primary: primary, Secondary: secondary, log: log.With("component", "entity_fallback")}
}

func (f *Fallback) Extract(ctx context.Context, text string, lang langdetect.Tag) ([]Entity, error) {
	entities, err := f.Primary.Extract(ctx, text, lang)
	if err == nil {
		return entities, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, ErrUnsupportedLanguage) {
		return nil, err
	}
	f.log.WarnContext(ctx, "Primary entity extractor failed, using fallback", "error", err, "language", lang)
	return f.Secondary.Extract(ctx, text, lang)
}

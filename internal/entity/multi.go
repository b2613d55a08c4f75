package entity

import (
	"context"
	"errors"

	"github.com/edgard/intakebot/internal/langdetect"
)

// Multi merges the entities of several extractors. Extractors that do not
// support the language are skipped; one failing extractor does not hide
// what the others found.
type Multi struct {
	extractors []Extractor
}

// NewMulti combines extractors, asked in the given order.
func NewMulti(extractors ...Extractor) *Multi {
	return &Multi{extractors: extractors}
}

func (m *Multi) Extract(ctx context.Context, text string, lang langdetect.Tag) ([]Entity, error) {
	var (
		entities    []Entity
		failures    []error
		unsupported error
		succeeded   bool
		seen        = make(map[Entity]struct{})
	)
	for _, ex := range m.extractors {
		found, err := ex.Extract(ctx, text, lang)
		switch {
		case err == nil:
			succeeded = true
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, ErrUnsupportedLanguage):
			unsupported = err
			continue
		default:
			failures = append(failures, err)
			continue
		}
		for _, e := range found {
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			entities = append(entities, e)
		}
	}
	switch {
	case succeeded:
		return entities, nil
	case len(failures) > 0:
		return nil, errors.Join(failures...)
	}
	return nil, unsupported
}

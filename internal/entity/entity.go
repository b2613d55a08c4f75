// Package entity extracts named entities from message text.
package entity

import (
	"context"
	"errors"

	"github.com/edgard/intakebot/internal/langdetect"
)

// Label is the entity type assigned by an extractor.
type Label string

// Labels produced by the extractors in this module.
const (
	LabelPerson       Label = "PERSON"
	LabelOrganization Label = "ORG"
	LabelLocation     Label = "LOC"
)

// ErrUnsupportedLanguage is returned when no model exists for a language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Entity is a span of text tagged with a label.
type Entity struct {
	Text  string `json:"text"`
	Label Label  `json:"label"`
}

// Extractor finds entities in text written in lang.
type Extractor interface {
	Extract(ctx context.Context, text string, lang langdetect.Tag) ([]Entity, error)
}

// HasPerson reports whether any entity is a person.
func HasPerson(entities []Entity) bool {
	for _, e := range entities {
		if e.Label == LabelPerson {
			return true
		}
	}
	return false
}

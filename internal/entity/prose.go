package entity

import (
	"context"
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/edgard/intakebot/internal/langdetect"
)

// Prose tags English text with the averaged-perceptron NER model bundled
// with prose. It finds names that no list carries but knows no Russian.
type Prose struct{}

// NewProse returns the English NER extractor.
func NewProse() *Prose { return &Prose{} }

var proseLabels = map[string]Label{
	"PERSON": LabelPerson,
	"GPE":    LabelLocation,
}

func (p *Prose) Extract(ctx context.Context, text string, lang langdetect.Tag) ([]Entity, error) {
	if lang != langdetect.English {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("failed to tag text: %w", err)
	}
	var entities []Entity
	for _, ent := range doc.Entities() {
		label, ok := proseLabels[ent.Label]
		if !ok {
			continue
		}
		entities = append(entities, Entity{Text: ent.Text, Label: label})
	}
	return entities, nil
}

package entity

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/edgard/intakebot/internal/langdetect"
)

//go:embed names/en.txt
var enNames []byte

//go:embed names/ru.txt
var ruNames []byte

// Russian case endings stripped when looking up inflected names, longest
// first. "Владу", "Владом" and "Машей" all resolve to a nominative entry.
var ruEndings = []string{"ого", "ому", "ой", "ей", "ом", "ем", "ою", "ею", "а", "я", "у", "ю", "е", "ы", "и"}

// Gazetteer is a dictionary-driven extractor that tags capitalised tokens
// found in a per-language list of given names. It is deterministic and
// safe for concurrent use.
type Gazetteer struct {
	names map[langdetect.Tag]map[string]struct{}
}

// NewGazetteer builds a Gazetteer from the embedded name lists. Extra names
// are added to every supported language.
func NewGazetteer(extra ...string) *Gazetteer {
	g := &Gazetteer{names: map[langdetect.Tag]map[string]struct{}{
		langdetect.English: parseNames(enNames, langdetect.English),
		langdetect.Russian: parseNames(ruNames, langdetect.Russian),
	}}
	for _, name := range extra {
		for lang, set := range g.names {
			if f := fold(name, lang); f != "" {
				set[f] = struct{}{}
			}
		}
	}
	return g
}

func parseNames(data []byte, lang langdetect.Tag) map[string]struct{} {
	set := make(map[string]struct{})
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[fold(line, lang)] = struct{}{}
	}
	return set
}

// fold normalises a token for lookup: NFC, language-aware lower case and,
// for Russian, ё folded to е.
func fold(s string, lang langdetect.Tag) string {
	s = cases.Lower(lang.Language()).String(norm.NFC.String(s))
	if lang == langdetect.Russian {
		s = strings.ReplaceAll(s, "ё", "е")
	}
	return s
}

// Extract returns one PERSON entity per capitalised token that names a
// person in lang.
func (g *Gazetteer) Extract(ctx context.Context, text string, lang langdetect.Tag) ([]Entity, error) {
	set, ok := g.names[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entities []Entity
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	for _, tok := range tokens {
		tok = strings.Trim(tok, "-")
		first, _ := utf8.DecodeRuneInString(tok)
		if tok == "" || !unicode.IsUpper(first) {
			continue
		}
		if g.isName(set, fold(tok, lang), lang) {
			entities = append(entities, Entity{Text: tok, Label: LabelPerson})
		}
	}
	return entities, nil
}

func (g *Gazetteer) isName(set map[string]struct{}, folded string, lang langdetect.Tag) bool {
	if _, ok := set[folded]; ok {
		return true
	}
	if lang != langdetect.Russian {
		return false
	}
	for _, end := range ruEndings {
		stem, ok := strings.CutSuffix(folded, end)
		if !ok || utf8.RuneCountInString(stem) < 2 {
			continue
		}
		for _, candidate := range []string{stem, stem + "а", stem + "я", stem + "й", stem + "ь"} {
			if _, ok := set[candidate]; ok {
				return true
			}
		}
	}
	return false
}

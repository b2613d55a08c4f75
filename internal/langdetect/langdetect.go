// Package langdetect makes a best-effort guess at the language of short
// user messages with an n-gram identifier. Only English and Russian are
// recognised; everything else, including text that cannot be judged, is
// reported as Unknown.
package langdetect

import (
	"bufio"
	"bytes"
	_ "embed"
	"strings"
	"sync"
	"unicode"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
)

// Tag identifies a detected language.
type Tag string

// Supported tags.
const (
	English Tag = "en"
	Russian Tag = "ru"
	Unknown Tag = "unknown"
)

// Language maps the tag to its x/text language tag (language.Und for Unknown).
func (t Tag) Language() language.Tag {
	switch t {
	case English:
		return language.English
	case Russian:
		return language.Russian
	}
	return language.Und
}

func (t Tag) String() string { return string(t) }

//go:embed lexicon/en.txt
var enLexicon []byte

//go:embed lexicon/ru.txt
var ruLexicon []byte

var (
	lexiconsOnce sync.Once
	enWords      map[string]struct{}
	ruWords      map[string]struct{}
)

func loadLexicons() {
	lexiconsOnce.Do(func() {
		enWords = parseLexicon(enLexicon)
		ruWords = parseLexicon(ruLexicon)
	})
}

func parseLexicon(data []byte) map[string]struct{} {
	words := make(map[string]struct{})
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[strings.ToLower(line)] = struct{}{}
	}
	return words
}

// Most frequent English letter pairs. A token built mostly from these is
// treated as plausibly English even when it is not in the lexicon.
var englishBigrams = func() map[string]struct{} {
	const pairs = "th he in er an re on at en nd ti es or te of ed is it al ar st to nt ng " +
		"se ha as ou io le ve co me de hi ri ro ic ne ea ra ce li ch ll be ma si om ur " +
		"ca el ta la ns di fo ho pe ec pr no ct us ac ot il tr ly nc et ut ss so rs un " +
		"lo wa ge ie wh ee wi em ad ol rt po we na ul ni ts mo ow pa im mi ai sh ir su " +
		"id os iv ia am fi ci vi pl ig tu ev ld ry mp fe bl ab gh ty op wo sa ay ex ke " +
		"fr oo av ag if ap gr od bo sp rd do uc bu ei ov by ep oc fa cu rn sc da yo cr " +
		"cl du ga qu ue ff ba ey ls va um pp up lu go ht ru ds lt pi rc eg ck ew mu br " +
		"ob jo ok"
	set := make(map[string]struct{})
	for _, p := range strings.Fields(pairs) {
		set[p] = struct{}{}
	}
	return set
}()

// identifier is shared by all Detectors; its models load lazily and are
// large, so only one is built per process.
var (
	identifierOnce sync.Once
	identifier     lingua.LanguageDetector
)

// Languages the n-gram identifier chooses between. Besides English and
// Russian it knows their common Latin and Cyrillic neighbours so that
// messages in those languages are not forced into one of the two.
var candidates = []lingua.Language{
	lingua.English, lingua.Russian,
	lingua.Ukrainian, lingua.Belarusian, lingua.Bulgarian, lingua.Serbian, lingua.Macedonian, lingua.Kazakh,
	lingua.Spanish, lingua.Italian, lingua.German, lingua.Portuguese, lingua.French, lingua.Dutch,
	lingua.Polish, lingua.Czech, lingua.Swedish, lingua.Romanian, lingua.Turkish, lingua.Latin,
}

// minConfidence is the share of the identifier's confidence the winning
// language needs. Anything less is reported as Unknown.
const minConfidence = 0.3

func loadIdentifier() lingua.LanguageDetector {
	identifierOnce.Do(func() {
		identifier = lingua.NewLanguageDetectorBuilder().FromLanguages(candidates...).Build()
	})
	return identifier
}

// Detector guesses the language of a text. The zero value is usable.
type Detector struct{}

// New returns a Detector.
func New() *Detector { return &Detector{} }

// Detect returns English, Russian or Unknown. It never fails: empty,
// symbol-only or otherwise undecidable input yields Unknown, and so does
// any language other than English or Russian.
func (d *Detector) Detect(text string) (tag Tag) {
	defer func() {
		if recover() != nil {
			tag = Unknown
		}
	}()
	loadLexicons()

	text = strings.ToValidUTF8(text, "")
	var latin, cyrillic, other, foreignCyrillic int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		switch {
		case unicode.In(r, unicode.Cyrillic):
			cyrillic++
			if !isRussianLetter(r) {
				foreignCyrillic++
			}
		case unicode.In(r, unicode.Latin):
			latin++
		default:
			other++
		}
	}

	switch {
	case cyrillic == 0 && latin == 0:
		return Unknown
	case other > latin+cyrillic:
		return Unknown
	case cyrillic > latin && foreignCyrillic > 0:
		// і, ї, ў, љ and friends are outside the Russian alphabet.
		return Unknown
	}

	switch identify(text) {
	case English:
		if plausiblyEnglish(words(text)) {
			return English
		}
	case Russian:
		if plausiblyRussian(words(text)) {
			return Russian
		}
	}
	return Unknown
}

// identify asks the n-gram identifier for the most likely language.
func identify(text string) Tag {
	values := loadIdentifier().ComputeLanguageConfidenceValues(text)
	if len(values) == 0 || values[0].Value() < minConfidence {
		return Unknown
	}
	switch values[0].Language() {
	case lingua.English:
		return English
	case lingua.Russian:
		return Russian
	}
	return Unknown
}

// plausiblyRussian rejects consonant strings that an n-gram model may
// still score as Russian.
func plausiblyRussian(tokens []string) bool {
	var cyr, hits, voiced int
	for _, w := range tokens {
		if !isCyrillicWord(w) {
			continue
		}
		cyr++
		if _, ok := ruWords[w]; ok {
			hits++
		}
		if strings.ContainsAny(w, "аеёиоуыэюя") {
			voiced++
		}
	}
	if cyr == 0 {
		return false
	}
	return hits > 0 || voiced*2 >= cyr
}

// plausiblyEnglish rejects keyboard mashing: most tokens must be known
// words or be built from common English letter pairs.
func plausiblyEnglish(tokens []string) bool {
	var n, hits, plausible int
	for _, w := range tokens {
		if isCyrillicWord(w) {
			continue
		}
		n++
		if _, ok := enWords[w]; ok {
			hits++
			plausible++
			continue
		}
		if englishPlausible(w) {
			plausible++
		}
	}
	if n == 0 {
		return false
	}
	if hits > 0 && hits*5 >= n {
		return true
	}
	return plausible*10 >= n*6
}

// words splits text into lower-cased letter runs. Apostrophes are dropped
// so that "don't" and "dont" look the same.
func words(text string) []string {
	text = strings.ReplaceAll(text, "'", "")
	text = strings.ReplaceAll(text, "’", "")
	fields := strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) })
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

func isCyrillicWord(w string) bool {
	for _, r := range w {
		return unicode.In(r, unicode.Cyrillic)
	}
	return false
}

func isRussianLetter(r rune) bool {
	r = unicode.ToLower(r)
	return (r >= 'а' && r <= 'я') || r == 'ё'
}

func englishPlausible(w string) bool {
	runes := []rune(w)
	for _, r := range runes {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	if len(runes) == 1 {
		return w == "a" || w == "i"
	}

	hasVowel := false
	run := 0
	for _, r := range runes {
		if strings.ContainsRune("aeiouy", r) {
			hasVowel = true
			run = 0
			continue
		}
		run++
		if run >= 4 {
			return false
		}
	}
	if !hasVowel {
		return false
	}

	common := 0
	for i := 0; i+1 < len(runes); i++ {
		if _, ok := englishBigrams[string(runes[i:i+2])]; ok {
			common++
		}
	}
	return common*4 >= (len(runes)-1)*3
}

package classifier

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed keywords.json
var embeddedKeywords []byte

type rawKeywords struct {
	Personal []string `json:"personal"`
	Offers   []string `json:"offers"`
}

// Keywords holds the lower-cased trigger words for the keyword rules.
type Keywords struct {
	Personal map[string]struct{}
	Offers   map[string]struct{}
}

// LoadKeywords parses the embedded keyword list and merges the extras into it.
func LoadKeywords(extraPersonal, extraOffers []string) (*Keywords, error) {
	var raw rawKeywords
	if err := json.Unmarshal(embeddedKeywords, &raw); err != nil {
		return nil, fmt.Errorf("classifier: parse keywords.json: %w", err)
	}
	return &Keywords{
		Personal: toSet(raw.Personal, extraPersonal),
		Offers:   toSet(raw.Offers, extraOffers),
	}, nil
}

func toSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, w := range list {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				set[w] = struct{}{}
			}
		}
	}
	return set
}

func anyIn(tokens []string, set map[string]struct{}) bool {
	for _, tok := range tokens {
		if _, ok := set[tok]; ok {
			return true
		}
	}
	return false
}

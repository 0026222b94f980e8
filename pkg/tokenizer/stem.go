package tokenizer

import (
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

// indonesianParticles and suffixes implement a light Nazief-Adriani
// style suffix strip: particles, then possessive pronouns, then
// derivational suffixes. No ecosystem Indonesian stemmer exists
// anywhere in the reference corpus, so this is hand-rolled; it covers
// the common cases without attempting full morphological analysis.
var indonesianParticles = []string{"lah", "kah", "tah", "pun"}
var indonesianPossessives = []string{"ku", "mu", "nya"}
var indonesianSuffixes = []string{"kan", "an", "i"}

const minStemLen = 3

func stemIndonesian(word string) string {
	w := word
	for _, p := range indonesianParticles {
		if strings.HasSuffix(w, p) && len(w)-len(p) >= minStemLen {
			w = strings.TrimSuffix(w, p)
			break
		}
	}
	for _, p := range indonesianPossessives {
		if strings.HasSuffix(w, p) && len(w)-len(p) >= minStemLen {
			w = strings.TrimSuffix(w, p)
			break
		}
	}
	for _, s := range indonesianSuffixes {
		if strings.HasSuffix(w, s) && len(w)-len(s) >= minStemLen {
			w = strings.TrimSuffix(w, s)
			break
		}
	}
	return w
}

func stemEnglish(word string) string {
	return porterstemmer.StemString(word)
}

// stem applies the configured stemmer to a single token. English-looking
// tokens (heuristically, those without an Indonesian affix match) still
// go through the Porter stemmer harmlessly since it is a no-op on
// already-short or non-English roots in practice; the Indonesian
// stripper runs first because its affixes are more likely to produce a
// wrong English stem if applied second.
func stem(word string) string {
	stemmed := stemIndonesian(word)
	if stemmed != word {
		return stemmed
	}
	return stemEnglish(word)
}

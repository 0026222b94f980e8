package tokenizer

// indonesianStopwords is the default stop-word set. Reproduced from the
// source retriever's hard-coded fallback list, since Go has no NLTK
// corpus to draw from — this list is the canonical default here, not a
// fallback.
var indonesianStopwords = map[string]struct{}{
	"yang": {}, "dan": {}, "di": {}, "ke": {}, "dari": {}, "untuk": {},
	"pada": {}, "dengan": {}, "dalam": {}, "adalah": {}, "ini": {},
	"itu": {}, "atau": {}, "jika": {}, "dapat": {}, "akan": {}, "tidak": {},
	"ada": {}, "bila": {}, "oleh": {}, "satu": {}, "dua": {}, "tiga": {},
	"juga": {}, "sudah": {}, "telah": {}, "masih": {}, "hanya": {},
	"sama": {}, "bisa": {}, "maka": {}, "agar": {}, "supaya": {}, "ia": {},
	"dia": {}, "kita": {}, "kami": {}, "mereka": {}, "saya": {}, "anda": {},
	"nya": {},
}

// englishStopwords supplements the Indonesian set for mixed-language
// corpora, per spec.md §4.A.
var englishStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "for": {}, "with": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "been": {}, "being": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "it": {}, "as": {}, "at": {}, "by": {},
	"from": {}, "not": {}, "no": {}, "but": {}, "if": {}, "then": {},
}

func isStopword(token string) bool {
	if _, ok := indonesianStopwords[token]; ok {
		return true
	}
	_, ok := englishStopwords[token]
	return ok
}

package scoring

import "strings"

// Polarity is the yes/no reading of a free-text answer.
type Polarity string

// Polarities returned by Classify.
const (
	Affirmative Polarity = "affirmative"
	Negative    Polarity = "negative"
	Unclear     Polarity = "unclear"
)

// Matching is plain substring containment, so short tokens like "no" also hit inside
// longer words ("bueno"). Kept as-is for compatibility with existing scores.
var (
	affirmativeTokens = []string{"si", "yes", "afirmativo", "correcto", "de acuerdo", "acepto"}
	negativeTokens    = []string{"no", "negativo", "incorrecto", "desacuerdo", "rechazo"}
)

// Classify returns Affirmative if any affirmative token appears, else Negative if any
// negative token appears, else Unclear.
func Classify(answer string) Polarity {
	lower := strings.ToLower(answer)
	if ContainsAny(lower, affirmativeTokens) {
		return Affirmative
	}
	if ContainsAny(lower, negativeTokens) {
		return Negative
	}
	return Unclear
}

// ContainsAny reports whether s contains any of tokens. s is expected to be lowercased.
func ContainsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

package sentiment

import (
	"strings"
	"unicode"
)

// negationWindow is how many tokens after a negator still have their polarity flipped.
const negationWindow = 3

// Analyzer scores text polarity as (positive - negative) / (positive + negative)
// over lexicon hits, so the result always lies in [-1, 1]. Text without any
// lexicon hit scores 0.
type Analyzer struct {
	positive map[string]struct{}
	negative map[string]struct{}
	negators map[string]struct{}
}

func NewAnalyzer(lex Lexicon) *Analyzer {
	return &Analyzer{
		positive: toSet(lex.Positive),
		negative: toSet(lex.Negative),
		negators: toSet(lex.Negators),
	}
}

func (a *Analyzer) Score(text string) float64 {
	var pos, neg float64
	negateFor := 0
	for _, token := range tokenize(text) {
		if _, ok := a.negators[token]; ok {
			negateFor = negationWindow
			continue
		}

		polarity := 0
		if _, ok := a.positive[token]; ok {
			polarity = 1
		} else if _, ok := a.negative[token]; ok {
			polarity = -1
		}
		if negateFor > 0 {
			negateFor--
			if polarity != 0 {
				polarity = -polarity
				negateFor = 0
			}
		}

		switch polarity {
		case 1:
			pos++
		case -1:
			neg++
		}
	}

	if pos+neg == 0 {
		return 0
	}
	return (pos - neg) / (pos + neg)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

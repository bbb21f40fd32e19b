package sentiment

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon lists polarity words. Entries are matched against lower-cased tokens.
type Lexicon struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
	Negators []string `yaml:"negators"`
}

func DefaultLexicon() Lexicon {
	return Lexicon{
		Positive: []string{
			"good", "great", "excellent", "positive", "success", "successful", "benefit", "beneficial",
			"improve", "improved", "improvement", "growth", "profit", "profitable", "gain", "agree",
			"agreed", "approve", "approved", "satisfied", "satisfactory", "happy", "pleased", "efficient",
			"effective", "reliable", "strong", "secure", "favorable", "favourable", "excellence", "best",
			"better", "valuable", "opportunity", "resolved", "complete", "completed", "timely", "thank",
		},
		Negative: []string{
			"bad", "poor", "negative", "fail", "failed", "failure", "loss", "losses", "risk", "risky",
			"breach", "penalty", "penalties", "terminate", "termination", "dispute", "delay", "delayed",
			"late", "default", "damage", "damages", "liability", "problem", "issue", "issues", "error",
			"errors", "complaint", "weak", "decline", "declined", "reject", "rejected", "unsatisfactory",
			"unhappy", "worse", "worst", "overdue", "fraud",
		},
		Negators: []string{"not", "no", "never", "without", "hardly", "neither", "nor", "cannot"},
	}
}

// LoadLexicon reads a YAML lexicon. Empty sections fall back to the defaults.
func LoadLexicon(path string) (Lexicon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon: %w", err)
	}
	var lex Lexicon
	if err := yaml.Unmarshal(raw, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon %s: %w", path, err)
	}

	def := DefaultLexicon()
	if len(lex.Positive) == 0 {
		lex.Positive = def.Positive
	}
	if len(lex.Negative) == 0 {
		lex.Negative = def.Negative
	}
	if len(lex.Negators) == 0 {
		lex.Negators = def.Negators
	}
	return lex, nil
}

func toSet(words []string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out[w] = struct{}{}
		}
	}
	return out
}

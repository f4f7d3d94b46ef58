package analyzer

import (
	"strings"

	"github.com/jonreiter/govader"
)

// Scorer turns a free-text note into a sentiment score in [-1, 1]
type Scorer interface {
	Score(note string) float64
}

const (
	EngineLexicon = "lexicon"
	EngineVader   = "vader"
)

// tokenDelimiters are the characters notes are split on before matching
const tokenDelimiters = " ,.!?;:"

var defaultScorer = NewLexiconScorer(DefaultLexicon())

// ScoreSentiment scores a note against the built-in lexicon
func ScoreSentiment(note string) float64 {
	return defaultScorer.Score(note)
}

// LexiconScorer counts marker hits per token and averages their polarity.
// It holds no mutable state and is safe for concurrent use.
type LexiconScorer struct {
	lexicon Lexicon
}

// NewLexiconScorer creates a scorer over a normalized copy of lexicon
func NewLexiconScorer(lexicon Lexicon) *LexiconScorer {
	return &LexiconScorer{lexicon: lexicon.normalized()}
}

// Lexicon returns the markers the scorer matches against
func (s *LexiconScorer) Lexicon() Lexicon {
	return s.lexicon.clone()
}

// Score returns the average polarity of the emotional tokens found in note.
// Blank notes and notes without any marker hit score exactly 0.
func (s *LexiconScorer) Score(note string) float64 {
	if strings.TrimSpace(note) == "" {
		return 0
	}

	tokens := tokenize(note)

	var positive, negative int
	for _, token := range tokens {
		// positive wins when a token carries markers of both polarities
		switch {
		case containsAny(token, s.lexicon.Positive):
			positive++
		case containsAny(token, s.lexicon.Negative):
			negative++
		}
	}

	matched := positive + negative
	if matched == 0 {
		return 0
	}

	score := float64(positive-negative) * s.lexicon.Weight / float64(matched)
	return clamp(score)
}

// tokenize lower-cases note and splits it on tokenDelimiters, dropping empty tokens
func tokenize(note string) []string {
	return strings.FieldsFunc(strings.ToLower(note), func(r rune) bool {
		return strings.ContainsRune(tokenDelimiters, r)
	})
}

// containsAny reports whether token contains any marker as a substring.
// Substring matching is intentional: "стрессовый" hits the "стресс" marker.
func containsAny(token string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(token, marker) {
			return true
		}
	}
	return false
}

func clamp(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

// VaderScorer uses the VADER compound score, which suits English notes better than
// the built-in marker lists.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{
		analyzer: govader.NewSentimentIntensityAnalyzer(),
	}
}

func (v *VaderScorer) Score(note string) float64 {
	if strings.TrimSpace(note) == "" {
		return 0
	}
	return clamp(v.analyzer.PolarityScores(note).Compound)
}

// NewScorer builds the scorer for the named engine. Unknown engines fall back to
// the lexicon scorer.
func NewScorer(engine string, lexicon Lexicon) Scorer {
	if strings.EqualFold(engine, EngineVader) {
		return NewVaderScorer()
	}
	return NewLexiconScorer(lexicon)
}

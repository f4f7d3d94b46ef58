package analyzer

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultWeight is the polarity contributed by a single marker hit
const DefaultWeight = 0.2

// Lexicon holds the curated marker substrings for each polarity
type Lexicon struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
	Weight   float64  `yaml:"weight"`
}

// DefaultLexicon returns the Russian marker lists the diary ships with
func DefaultLexicon() Lexicon {
	return Lexicon{
		Positive: []string{
			"хорошо", "отлично", "замечательно", "прекрасно", "счастлив", "радость",
			"весело", "удача", "успех", "любовь", "позитив", "классно", "супер",
		},
		Negative: []string{
			"плохо", "ужасно", "грустно", "депрессия", "злость", "боль", "проблема",
			"стресс", "тревога", "печаль", "усталость", "разочарование", "беда",
		},
		Weight: DefaultWeight,
	}
}

// LoadLexicon reads a lexicon from a YAML file. Missing lists keep the defaults.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("failed to read lexicon file: %w", err)
	}

	var lexicon Lexicon
	if err := yaml.Unmarshal(data, &lexicon); err != nil {
		return Lexicon{}, fmt.Errorf("failed to parse lexicon file: %w", err)
	}

	return lexicon.WithDefaults(), nil
}

// WithDefaults fills empty lists and a zero weight from DefaultLexicon
func (l Lexicon) WithDefaults() Lexicon {
	def := DefaultLexicon()
	out := l.clone()
	if len(out.Positive) == 0 {
		out.Positive = def.Positive
	}
	if len(out.Negative) == 0 {
		out.Negative = def.Negative
	}
	if out.Weight == 0 {
		out.Weight = def.Weight
	}
	return out
}

// normalized lower-cases markers and drops blanks, which would otherwise match every token
func (l Lexicon) normalized() Lexicon {
	out := Lexicon{Weight: l.Weight}
	if out.Weight == 0 {
		out.Weight = DefaultWeight
	}
	out.Positive = normalizeMarkers(l.Positive)
	out.Negative = normalizeMarkers(l.Negative)
	return out
}

func (l Lexicon) clone() Lexicon {
	return Lexicon{
		Positive: append([]string(nil), l.Positive...),
		Negative: append([]string(nil), l.Negative...),
		Weight:   l.Weight,
	}
}

func normalizeMarkers(markers []string) []string {
	out := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// Package recommend picks the short advice shown right after an entry is saved.
//
// Selection is a fixed decision table keyed on the mood bucket, refined top to bottom
// by the sentiment score and trigger keywords in the note. The first matching row wins.
package recommend

import (
	"fmt"
	"strings"

	"github.com/christophergentle/mooddiary/internal/mood"
)

// Rule identifies a row of the decision table
type Rule int

const (
	RuleStrongNegative Rule = iota
	RuleStress
	RuleFatigue
	RuleSadDays
	RuleMildSadness
	RuleNeutral
	RuleSharePositivity
	RuleSuccess
	RulePositiveMomentum
	RuleRememberMoment
)

const (
	// StrongNegativeBelow is the score under which negative moods get the breathing advice
	StrongNegativeBelow = -0.5
	// SharePositivityAbove is the score over which positive moods are asked to share
	SharePositivityAbove = 0.3
)

var ruleNames = map[Rule]string{
	RuleStrongNegative:   "strong_negative",
	RuleStress:           "stress",
	RuleFatigue:          "fatigue",
	RuleSadDays:          "sad_days",
	RuleMildSadness:      "mild_sadness",
	RuleNeutral:          "neutral",
	RuleSharePositivity:  "share_positivity",
	RuleSuccess:          "success",
	RulePositiveMomentum: "positive_momentum",
	RuleRememberMoment:   "remember_moment",
}

func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRule maps a catalog key back to its rule
func ParseRule(name string) (Rule, bool) {
	for r, n := range ruleNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// Triggers are the keyword groups checked against the raw note
type Triggers struct {
	Stress  []string `yaml:"stress"`
	Fatigue []string `yaml:"fatigue"`
	Success []string `yaml:"success"`
}

// DefaultTriggers returns the Russian trigger words matching the default lexicon
func DefaultTriggers() Triggers {
	return Triggers{
		Stress:  []string{"стресс", "тревог", "нервн", "паник"},
		Fatigue: []string{"устал", "утомл", "выгор", "не выспал", "нет сил"},
		Success: []string{"успех", "получилось", "удалось", "достиг", "победа"},
	}
}

// Catalog maps each rule to the message it produces
type Catalog map[Rule]string

// DefaultCatalog returns the built-in messages
func DefaultCatalog() Catalog {
	return Catalog{
		RuleStrongNegative:   "Похоже, день выдался очень тяжёлым. Попробуйте несколько минут медленно подышать или выйти на короткую прогулку.",
		RuleStress:           "Стресс заметен в вашей записи. Сделайте паузу: отложите дела на десять минут и переключитесь на что-то спокойное.",
		RuleFatigue:          "Кажется, вы устали. Постарайтесь сегодня лечь пораньше и дать себе отдохнуть.",
		RuleSadDays:          "Грустные дни случаются у всех. Будьте к себе бережны, завтра может быть лучше.",
		RuleMildSadness:      "Немного грустно? Маленькая приятная мелочь может поднять настроение.",
		RuleNeutral:          "Спокойный день тоже хорош. Можно подумать, что порадует вас завтра.",
		RuleSharePositivity:  "Отличное настроение! Поделитесь им с близкими.",
		RuleSuccess:          "Поздравляем с успехом! Отметьте это достижение.",
		RulePositiveMomentum: "Хороший день! Сохраняйте этот настрой.",
		RuleRememberMoment:   "Запомните этот момент, к нему приятно будет вернуться.",
	}
}

// CatalogFromKeys converts config overrides keyed by rule name ("stress", "neutral", ...)
func CatalogFromKeys(messages map[string]string) (Catalog, error) {
	catalog := make(Catalog, len(messages))
	for key, msg := range messages {
		rule, ok := ParseRule(key)
		if !ok {
			return nil, fmt.Errorf("unknown recommendation rule %q", key)
		}
		catalog[rule] = msg
	}
	return catalog, nil
}

// Generator applies the decision table. It is immutable after construction and safe
// for concurrent use.
type Generator struct {
	catalog  Catalog
	triggers Triggers
}

var defaultGenerator = New(nil, DefaultTriggers())

// GenerateRecommendation uses the built-in catalog and triggers. A nil score is treated
// as neutral.
func GenerateRecommendation(m mood.Category, score *float64, note string) string {
	return defaultGenerator.Generate(m, score, note)
}

// New creates a generator. Catalog entries missing from catalog fall back to the
// built-in messages; empty trigger groups fall back to DefaultTriggers.
func New(catalog Catalog, triggers Triggers) *Generator {
	merged := DefaultCatalog()
	for rule, msg := range catalog {
		if strings.TrimSpace(msg) != "" {
			merged[rule] = msg
		}
	}

	def := DefaultTriggers()
	if len(triggers.Stress) == 0 {
		triggers.Stress = def.Stress
	}
	if len(triggers.Fatigue) == 0 {
		triggers.Fatigue = def.Fatigue
	}
	if len(triggers.Success) == 0 {
		triggers.Success = def.Success
	}

	return &Generator{
		catalog: merged,
		triggers: Triggers{
			Stress:  lowerAll(triggers.Stress),
			Fatigue: lowerAll(triggers.Fatigue),
			Success: lowerAll(triggers.Success),
		},
	}
}

// Generate returns the message for the first matching rule
func (g *Generator) Generate(m mood.Category, score *float64, note string) string {
	return g.Message(g.Select(m, score, note))
}

// Message returns the catalog text for rule
func (g *Generator) Message(rule Rule) string {
	return g.catalog[rule]
}

// Select returns which rule of the table fires for the inputs
func (g *Generator) Select(m mood.Category, score *float64, note string) Rule {
	s := 0.0
	if score != nil {
		s = *score
	}
	text := strings.ToLower(note)

	switch m.Bucket() {
	case mood.BucketNegative:
		switch {
		case s < StrongNegativeBelow:
			return RuleStrongNegative
		case mentions(text, g.triggers.Stress):
			return RuleStress
		case mentions(text, g.triggers.Fatigue):
			return RuleFatigue
		default:
			return RuleSadDays
		}
	case mood.BucketSlightlyNegative:
		return RuleMildSadness
	case mood.BucketPositive:
		switch {
		case s > SharePositivityAbove:
			return RuleSharePositivity
		case mentions(text, g.triggers.Success):
			return RuleSuccess
		default:
			return RulePositiveMomentum
		}
	case mood.BucketVeryPositive:
		return RuleRememberMoment
	default:
		return RuleNeutral
	}
}

// Catalog returns a copy of the generator's messages
func (g *Generator) Catalog() Catalog {
	out := make(Catalog, len(g.catalog))
	for k, v := range g.catalog {
		out[k] = v
	}
	return out
}

func mentions(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

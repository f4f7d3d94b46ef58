package mood

import (
	"fmt"
	"strconv"
	"strings"
)

// Category is one of the seven mood levels a user can pick for a day.
// Rank is carried explicitly so reordering the table below never changes stored values.
type Category struct {
	Key   string
	Rank  int
	Emoji string
	Label string
}

// Bucket groups categories for recommendation rules
type Bucket int

const (
	BucketNegative Bucket = iota
	BucketSlightlyNegative
	BucketNeutral
	BucketPositive
	BucketVeryPositive
)

var (
	VerySad       = Category{Key: "very_sad", Rank: 1, Emoji: "😢", Label: "Very sad"}
	Sad           = Category{Key: "sad", Rank: 2, Emoji: "😔", Label: "Sad"}
	SlightlySad   = Category{Key: "slightly_sad", Rank: 3, Emoji: "😕", Label: "Slightly sad"}
	Neutral       = Category{Key: "neutral", Rank: 4, Emoji: "😐", Label: "Neutral"}
	SlightlyHappy = Category{Key: "slightly_happy", Rank: 5, Emoji: "🙂", Label: "Slightly happy"}
	Happy         = Category{Key: "happy", Rank: 6, Emoji: "😊", Label: "Happy"}
	VeryHappy     = Category{Key: "very_happy", Rank: 7, Emoji: "😄", Label: "Very happy"}
)

var all = []Category{VerySad, Sad, SlightlySad, Neutral, SlightlyHappy, Happy, VeryHappy}

// All returns the categories from most negative to most positive
func All() []Category {
	out := make([]Category, len(all))
	copy(out, all)
	return out
}

// FromRank looks up a category by its numeric rank
func FromRank(rank int) (Category, bool) {
	for _, c := range all {
		if c.Rank == rank {
			return c, true
		}
	}
	return Category{}, false
}

// Parse accepts a category key ("slightly_happy", "slightly-happy") or a rank ("5")
func Parse(s string) (Category, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if rank, err := strconv.Atoi(v); err == nil {
		if c, ok := FromRank(rank); ok {
			return c, nil
		}
		return Category{}, fmt.Errorf("mood rank %d out of range 1..%d", rank, len(all))
	}

	v = strings.ReplaceAll(v, "-", "_")
	for _, c := range all {
		if c.Key == v {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("unknown mood %q", s)
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	known, ok := FromRank(c.Rank)
	return ok && known.Key == c.Key
}

// Bucket returns the recommendation group the category belongs to
func (c Category) Bucket() Bucket {
	switch {
	case c.Rank <= Sad.Rank:
		return BucketNegative
	case c.Rank == SlightlySad.Rank:
		return BucketSlightlyNegative
	case c.Rank == Neutral.Rank:
		return BucketNeutral
	case c.Rank < VeryHappy.Rank:
		return BucketPositive
	default:
		return BucketVeryPositive
	}
}

func (c Category) String() string {
	return c.Key
}

// MarshalJSON encodes the category as its key
func (c Category) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(c.Key)), nil
}

// UnmarshalJSON accepts a key string or a numeric rank
func (c *Category) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

package state

import (
	"context"
	"errors"
	"time"

	"github.com/christophergentle/mooddiary/internal/mood"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no entry matches the requested id or date
var ErrNotFound = errors.New("mood entry not found")

// MoodEntry is a single diary record. SentimentScore is a cached snapshot of the score
// computed when the note was last scored; it is nil for entries never scored.
type MoodEntry struct {
	ID             string        `json:"id"`
	Mood           mood.Category `json:"mood"`
	Note           string        `json:"note"`
	CreatedAt      time.Time     `json:"createdAt"`
	SentimentScore *float64      `json:"sentimentScore,omitempty"`
}

// MoodCount is the number of entries recorded for one category
type MoodCount struct {
	Mood  mood.Category `json:"mood"`
	Count int           `json:"count"`
}

// Store persists mood entries
type Store interface {
	// Insert stores entry, replacing any entry with the same id
	Insert(ctx context.Context, entry *MoodEntry) error
	Update(ctx context.Context, entry *MoodEntry) error
	Get(ctx context.Context, id string) (*MoodEntry, error)
	// GetByDate returns the most recent entry recorded on the calendar day of date
	GetByDate(ctx context.Context, date time.Time) (*MoodEntry, error)
	// List returns entries newest first; limit <= 0 returns everything
	List(ctx context.Context, limit, offset int) ([]MoodEntry, error)
	// ListBetween returns entries with start <= CreatedAt < end, newest first
	ListBetween(ctx context.Context, start, end time.Time) ([]MoodEntry, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	MoodCounts(ctx context.Context, start, end time.Time) ([]MoodCount, error)
	Close() error
}

// prepareInsert assigns an id and creation time when missing. Times are kept in UTC
// so range comparisons in the backing stores stay lexical.
func prepareInsert(entry *MoodEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
}

// dayBounds returns the start of date's calendar day and the start of the next one
func dayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}

// sortCounts orders counts by mood rank and fills in categories without entries
func sortCounts(byRank map[int]int) []MoodCount {
	var counts []MoodCount
	for _, c := range mood.All() {
		counts = append(counts, MoodCount{Mood: c, Count: byRank[c.Rank]})
	}
	return counts
}

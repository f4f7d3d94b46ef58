package diary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/christophergentle/mooddiary/internal/analyzer"
	"github.com/christophergentle/mooddiary/internal/mood"
	"github.com/christophergentle/mooddiary/internal/recommend"
	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidMood  = errors.New("invalid mood")
	ErrSaveFailed   = errors.New("save failed")
	ErrDeleteFailed = errors.New("delete failed")
)

// SaveResult is returned from Save. The notice is transient and is not part of the entry.
type SaveResult struct {
	Entry  *state.MoodEntry `json:"entry"`
	Notice *Notice          `json:"notice"`
}

// Service ties the scorer and recommendation table to an entry store
type Service struct {
	store         state.Store
	scorer        analyzer.Scorer
	generator     *recommend.Generator
	noticeTimeout time.Duration
	now           func() time.Time
}

// NewService creates a diary service. Nil scorer or generator use the built-in defaults.
func NewService(store state.Store, scorer analyzer.Scorer, generator *recommend.Generator, noticeTimeout time.Duration) *Service {
	if scorer == nil {
		scorer = analyzer.NewLexiconScorer(analyzer.DefaultLexicon())
	}
	if generator == nil {
		generator = recommend.New(nil, recommend.DefaultTriggers())
	}
	if noticeTimeout <= 0 {
		noticeTimeout = DefaultNoticeTimeout
	}

	return &Service{
		store:         store,
		scorer:        scorer,
		generator:     generator,
		noticeTimeout: noticeTimeout,
		now:           time.Now,
	}
}

// Score runs the configured scorer on a note
func (s *Service) Score(note string) float64 {
	return s.scorer.Score(note)
}

// Recommend runs the decision table without touching the store
func (s *Service) Recommend(m mood.Category, score *float64, note string) (string, recommend.Rule) {
	rule := s.generator.Select(m, score, note)
	return s.generator.Message(rule), rule
}

// Save scores the note, persists a new entry, and returns it with a fresh notice
func (s *Service) Save(ctx context.Context, m mood.Category, note string) (*SaveResult, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMood, m.Key)
	}

	now := s.now()
	score := s.scorer.Score(note)
	entry := &state.MoodEntry{
		Mood:           m,
		Note:           note,
		CreatedAt:      now,
		SentimentScore: &score,
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		logrus.WithError(err).WithField("mood", m.Key).Error("Failed to save mood entry")
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	message, rule := s.Recommend(m, &score, note)

	logrus.WithFields(logrus.Fields{
		"id":    entry.ID,
		"mood":  m.Key,
		"score": score,
		"rule":  rule.String(),
	}).Info("Saved mood entry")

	return &SaveResult{
		Entry:  entry,
		Notice: newNotice(message, rule, now, s.noticeTimeout),
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*state.MoodEntry, error) {
	return s.store.Get(ctx, id)
}

// Today returns the latest entry recorded today
func (s *Service) Today(ctx context.Context) (*state.MoodEntry, error) {
	return s.store.GetByDate(ctx, s.now())
}

// List returns entries newest first
func (s *Service) List(ctx context.Context, limit, offset int) ([]state.MoodEntry, error) {
	return s.store.List(ctx, limit, offset)
}

// Range returns entries recorded from the start of from's day through the end of to's day
func (s *Service) Range(ctx context.Context, from, to time.Time) ([]state.MoodEntry, error) {
	start := startOfDay(from)
	end := startOfDay(to).AddDate(0, 0, 1)
	if !end.After(start) {
		return nil, fmt.Errorf("invalid range: %s is after %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return s.store.ListBetween(ctx, start, end)
}

// MoodCounts returns per-category totals for the same day-inclusive window as Range
func (s *Service) MoodCounts(ctx context.Context, from, to time.Time) ([]state.MoodCount, error) {
	start := startOfDay(from)
	end := startOfDay(to).AddDate(0, 0, 1)
	if !end.After(start) {
		return nil, fmt.Errorf("invalid range: %s is after %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return s.store.MoodCounts(ctx, start, end)
}

// LastDays returns entries from the last n calendar days including today
func (s *Service) LastDays(ctx context.Context, n int) ([]state.MoodEntry, error) {
	if n <= 0 {
		return s.store.List(ctx, 0, 0)
	}
	now := s.now()
	return s.Range(ctx, now.AddDate(0, 0, -(n-1)), now)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return err
		}
		logrus.WithError(err).WithField("id", id).Error("Failed to delete mood entry")
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}

	logrus.WithField("id", id).Info("Deleted mood entry")
	return nil
}

// Rescore recomputes an entry's cached score from its note and stores the new snapshot
func (s *Service) Rescore(ctx context.Context, id string) (*state.MoodEntry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.rescore(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RescoreAll refreshes every entry whose cached score differs from a fresh computation
// and returns how many were updated.
func (s *Service) RescoreAll(ctx context.Context) (int, error) {
	entries, err := s.store.List(ctx, 0, 0)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		changed, err := s.rescore(ctx, &entries[i])
		if err != nil {
			return updated, err
		}
		if changed {
			updated++
		}
	}

	logrus.WithFields(logrus.Fields{"total": len(entries), "updated": updated}).Info("Rescored mood entries")
	return updated, nil
}

func (s *Service) rescore(ctx context.Context, entry *state.MoodEntry) (bool, error) {
	score := s.scorer.Score(entry.Note)
	if entry.SentimentScore != nil && *entry.SentimentScore == score {
		return false, nil
	}

	entry.SentimentScore = &score
	if err := s.store.Update(ctx, entry); err != nil {
		return false, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return true, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

package diary

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/christophergentle/mooddiary/internal/analyzer"
	"github.com/christophergentle/mooddiary/internal/mood"
	"github.com/christophergentle/mooddiary/internal/recommend"
	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore is a mock implementation of state.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Insert(ctx context.Context, e *state.MoodEntry) error {
	return m.Called(e).Error(0)
}

func (m *MockStore) Update(ctx context.Context, e *state.MoodEntry) error {
	return m.Called(e).Error(0)
}

func (m *MockStore) Get(ctx context.Context, id string) (*state.MoodEntry, error) {
	args := m.Called(id)
	e, _ := args.Get(0).(*state.MoodEntry)
	return e, args.Error(1)
}

func (m *MockStore) GetByDate(ctx context.Context, date time.Time) (*state.MoodEntry, error) {
	args := m.Called(date)
	e, _ := args.Get(0).(*state.MoodEntry)
	return e, args.Error(1)
}

func (m *MockStore) List(ctx context.Context, limit, offset int) ([]state.MoodEntry, error) {
	args := m.Called(limit, offset)
	e, _ := args.Get(0).([]state.MoodEntry)
	return e, args.Error(1)
}

func (m *MockStore) ListBetween(ctx context.Context, start, end time.Time) ([]state.MoodEntry, error) {
	args := m.Called(start, end)
	e, _ := args.Get(0).([]state.MoodEntry)
	return e, args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *MockStore) DeleteAll(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *MockStore) MoodCounts(ctx context.Context, start, end time.Time) ([]state.MoodCount, error) {
	args := m.Called(start, end)
	c, _ := args.Get(0).([]state.MoodCount)
	return c, args.Error(1)
}

func (m *MockStore) Close() error {
	return nil
}

func newSQLiteService(t *testing.T) (*Service, state.Store) {
	t.Helper()
	store, err := state.NewSQLStore(state.DriverSQLite, filepath.Join(t.TempDir(), "diary.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewService(store, nil, nil, 0), store
}

func TestSaveScoresAndRecommends(t *testing.T) {
	ctx := context.Background()
	svc, store := newSQLiteService(t)
	fixed := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	result, err := svc.Save(ctx, mood.Happy, "отлично, всё получилось")
	require.NoError(t, err)

	require.NotNil(t, result.Entry.SentimentScore)
	assert.InDelta(t, 0.2, *result.Entry.SentimentScore, 1e-9)
	assert.Equal(t, recommend.RuleSuccess, result.Notice.Rule)
	assert.Equal(t, recommend.DefaultCatalog()[recommend.RuleSuccess], result.Notice.Message)
	assert.Equal(t, fixed.Add(DefaultNoticeTimeout), result.Notice.ExpiresAt)

	stored, err := store.Get(ctx, result.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "отлично, всё получилось", stored.Note)
	require.NotNil(t, stored.SentimentScore)
	assert.Equal(t, *result.Entry.SentimentScore, *stored.SentimentScore)

	today, err := svc.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.Entry.ID, today.ID)
}

func TestSaveRejectsInvalidMood(t *testing.T) {
	store := &MockStore{}
	svc := NewService(store, nil, nil, time.Second)

	_, err := svc.Save(context.Background(), mood.Category{Key: "meh"}, "")
	assert.True(t, errors.Is(err, ErrInvalidMood))
	store.AssertNotCalled(t, "Insert", mock.Anything)
}

func TestSaveFailureWrapsCause(t *testing.T) {
	store := &MockStore{}
	cause := errors.New("disk full")
	store.On("Insert", mock.Anything).Return(cause)

	svc := NewService(store, nil, nil, time.Second)
	_, err := svc.Save(context.Background(), mood.Sad, "")

	assert.True(t, errors.Is(err, ErrSaveFailed))
	assert.True(t, errors.Is(err, cause))
}

func TestDeleteErrors(t *testing.T) {
	store := &MockStore{}
	cause := errors.New("io error")
	store.On("Delete", "missing").Return(state.ErrNotFound)
	store.On("Delete", "broken").Return(cause)
	store.On("Delete", "ok").Return(nil)

	svc := NewService(store, nil, nil, time.Second)

	assert.NoError(t, svc.Delete(context.Background(), "ok"))

	err := svc.Delete(context.Background(), "missing")
	assert.True(t, errors.Is(err, state.ErrNotFound))
	assert.False(t, errors.Is(err, ErrDeleteFailed))

	err = svc.Delete(context.Background(), "broken")
	assert.True(t, errors.Is(err, ErrDeleteFailed))
	assert.True(t, errors.Is(err, cause))
}

// stubScorer returns a fixed score so tests can change scoring between calls
type stubScorer struct {
	score float64
}

func (s *stubScorer) Score(string) float64 {
	return s.score
}

func TestPersistedScoreIsSnapshot(t *testing.T) {
	ctx := context.Background()
	store, err := state.NewSQLStore(state.DriverSQLite, filepath.Join(t.TempDir(), "diary.db"))
	require.NoError(t, err)
	defer store.Close()

	scorer := &stubScorer{score: 0.2}
	svc := NewService(store, scorer, nil, 0)

	result, err := svc.Save(ctx, mood.Neutral, "note")
	require.NoError(t, err)

	// the scorer changes; the stored value does not until a rescore
	scorer.score = -0.4
	stored, err := svc.Get(ctx, result.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.2, *stored.SentimentScore)

	rescored, err := svc.Rescore(ctx, result.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, -0.4, *rescored.SentimentScore)

	stored, err = svc.Get(ctx, result.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, -0.4, *stored.SentimentScore)
}

func TestRescoreAll(t *testing.T) {
	ctx := context.Background()
	svc, store := newSQLiteService(t)

	stale := -1.0
	require.NoError(t, store.Insert(ctx, &state.MoodEntry{Mood: mood.Happy, Note: "супер", SentimentScore: &stale}))
	require.NoError(t, store.Insert(ctx, &state.MoodEntry{Mood: mood.Sad, Note: "плохо"}))
	fresh := analyzer.ScoreSentiment("радость")
	require.NoError(t, store.Insert(ctx, &state.MoodEntry{Mood: mood.Happy, Note: "радость", SentimentScore: &fresh}))

	updated, err := svc.RescoreAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	updated, err = svc.RescoreAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestRange(t *testing.T) {
	ctx := context.Background()
	svc, store := newSQLiteService(t)

	day := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Insert(ctx, &state.MoodEntry{Mood: mood.Neutral, CreatedAt: day.AddDate(0, 0, i)}))
	}

	entries, err := svc.Range(ctx, day.AddDate(0, 0, 1), day.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	_, err = svc.Range(ctx, day.AddDate(0, 0, 3), day)
	assert.Error(t, err)

	svc.now = func() time.Time { return day.AddDate(0, 0, 4) }
	entries, err = svc.LastDays(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestNoticeLifecycle(t *testing.T) {
	shown := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	n := newNotice("hello", recommend.RuleNeutral, shown, 3*time.Second)

	assert.Equal(t, "neutral", n.RuleName)
	assert.True(t, n.Active(shown))
	assert.Equal(t, "hello", n.Text(shown.Add(2*time.Second)))
	assert.False(t, n.Active(shown.Add(3*time.Second)))
	assert.Equal(t, "", n.Text(shown.Add(time.Minute)))

	again := newNotice("hello", recommend.RuleNeutral, shown, time.Hour)
	again.Dismiss()
	assert.False(t, again.Active(shown))
}

func TestRecommendWithoutStore(t *testing.T) {
	svc := NewService(&MockStore{}, nil, nil, 0)

	msg, rule := svc.Recommend(mood.VerySad, nil, "")
	assert.Equal(t, recommend.RuleSadDays, rule)
	assert.NotEmpty(t, msg)
	assert.Equal(t, 0.0, svc.Score(""))
}

func TestMoodCounts(t *testing.T) {
	ctx := context.Background()
	svc, store := newSQLiteService(t)

	day := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, &state.MoodEntry{Mood: mood.Happy, CreatedAt: day}))
	require.NoError(t, store.Insert(ctx, &state.MoodEntry{Mood: mood.Happy, CreatedAt: day.AddDate(0, 0, 1)}))
	require.NoError(t, store.Insert(ctx, &state.MoodEntry{Mood: mood.Sad, CreatedAt: day.AddDate(0, 0, 5)}))

	counts, err := svc.MoodCounts(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, counts, 7)
	for _, c := range counts {
		if c.Mood == mood.Happy {
			assert.Equal(t, 2, c.Count)
		} else {
			assert.Equal(t, 0, c.Count, c.Mood.Key)
		}
	}

	_, err = svc.MoodCounts(ctx, day.AddDate(0, 0, 1), day)
	assert.Error(t, err)
}

func TestRecommendUsesConfiguredCatalog(t *testing.T) {
	generator := recommend.New(recommend.Catalog{recommend.RuleStress: "Выдохните."}, recommend.DefaultTriggers())
	svc := NewService(&MockStore{}, nil, generator, 0)

	score := -0.2
	msg, rule := svc.Recommend(mood.Sad, &score, "сильный стресс")
	assert.Equal(t, recommend.RuleStress, rule)
	assert.Equal(t, "Выдохните.", msg)
}

package state

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/christophergentle/mooddiary/internal/mood"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schema string

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const entryColumns = "id, mood, note, created_at, sentiment_score"

// SQLStore keeps entries in SQLite or Postgres
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore opens the database and creates the schema if it does not exist
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// sqlite serializes writers anyway; one connection avoids "database is locked"
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	logrus.WithFields(logrus.Fields{"driver": driver}).Debug("Opened mood entry database")

	return &SQLStore{db: db, driver: driver}, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Insert(ctx context.Context, entry *MoodEntry) error {
	prepareInsert(entry)

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO mood_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			mood = excluded.mood,
			note = excluded.note,
			created_at = excluded.created_at,
			sentiment_score = excluded.sentiment_score`),
		entry.ID, entry.Mood.Rank, entry.Note, entry.CreatedAt, nullScore(entry.SentimentScore),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func (s *SQLStore) Update(ctx context.Context, entry *MoodEntry) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		"UPDATE mood_entries SET mood = ?, note = ?, sentiment_score = ? WHERE id = ?"),
		entry.Mood.Rank, entry.Note, nullScore(entry.SentimentScore), entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return expectRow(res, entry.ID)
}

func (s *SQLStore) Get(ctx context.Context, id string) (*MoodEntry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		"SELECT "+entryColumns+" FROM mood_entries WHERE id = ?"), id)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return entry, nil
}

func (s *SQLStore) GetByDate(ctx context.Context, date time.Time) (*MoodEntry, error) {
	start, end := dayBounds(date)
	row := s.db.QueryRowContext(ctx, s.rebind(
		"SELECT "+entryColumns+" FROM mood_entries WHERE created_at >= ? AND created_at < ? ORDER BY created_at DESC, id LIMIT 1"),
		start.UTC(), end.UTC(),
	)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, start.Format("2006-01-02"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry by date: %w", err)
	}
	return entry, nil
}

func (s *SQLStore) List(ctx context.Context, limit, offset int) ([]MoodEntry, error) {
	query := "SELECT " + entryColumns + " FROM mood_entries ORDER BY created_at DESC, id"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return collectEntries(rows)
}

func (s *SQLStore) ListBetween(ctx context.Context, start, end time.Time) ([]MoodEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT "+entryColumns+" FROM mood_entries WHERE created_at >= ? AND created_at < ? ORDER BY created_at DESC, id"),
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries between dates: %w", err)
	}
	return collectEntries(rows)
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM mood_entries WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return expectRow(res, id)
}

func (s *SQLStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM mood_entries"); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	return nil
}

func (s *SQLStore) MoodCounts(ctx context.Context, start, end time.Time) ([]MoodCount, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT mood, COUNT(*) FROM mood_entries WHERE created_at >= ? AND created_at < ? GROUP BY mood"),
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count moods: %w", err)
	}
	defer rows.Close()

	byRank := make(map[int]int)
	for rows.Next() {
		var rank, count int
		if err := rows.Scan(&rank, &count); err != nil {
			return nil, fmt.Errorf("failed to scan mood count: %w", err)
		}
		byRank[rank] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count moods: %w", err)
	}

	return sortCounts(byRank), nil
}

// rebind rewrites ? placeholders to $n for Postgres
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*MoodEntry, error) {
	var (
		entry MoodEntry
		rank  int
		score sql.NullFloat64
	)
	if err := row.Scan(&entry.ID, &rank, &entry.Note, &entry.CreatedAt, &score); err != nil {
		return nil, err
	}

	entry.Mood = moodFromRank(rank)
	entry.CreatedAt = entry.CreatedAt.UTC()
	if score.Valid {
		v := score.Float64
		entry.SentimentScore = &v
	}
	return &entry, nil
}

func collectEntries(rows *sql.Rows) ([]MoodEntry, error) {
	defer rows.Close()

	var entries []MoodEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return entries, nil
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func nullScore(score *float64) sql.NullFloat64 {
	if score == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *score, Valid: true}
}

// moodFromRank maps a stored rank back to its category. Unknown ranks read as neutral.
func moodFromRank(rank int) mood.Category {
	if c, ok := mood.FromRank(rank); ok {
		return c
	}
	return mood.Neutral
}

package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/christophergentle/mooddiary/internal/stats"
)

const noteWidth = 60

// FormatScore always shows the sign so positive and negative scores line up
func FormatScore(score *float64) string {
	if score == nil {
		return "  n/a"
	}
	sign := "+"
	if *score < 0 {
		sign = "-"
	}
	v := *score
	if v < 0 {
		v = -v
	}
	return fmt.Sprintf("%s%.2f", sign, v)
}

// FormatEntry renders one entry as a single list line
func FormatEntry(entry state.MoodEntry, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("%s  %s  %s %-14s %s  %s",
		shortID(entry.ID),
		entry.CreatedAt.In(loc).Format("2006-01-02 15:04"),
		entry.Mood.Emoji,
		entry.Mood.Label,
		FormatScore(entry.SentimentScore),
		truncate(singleLine(entry.Note), noteWidth),
	)
}

// FormatEntryDetail renders every field of an entry
func FormatEntryDetail(entry state.MoodEntry, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ID:        %s\n", entry.ID)
	fmt.Fprintf(&b, "Date:      %s\n", entry.CreatedAt.In(loc).Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Mood:      %s %s (%d/7)\n", entry.Mood.Emoji, entry.Mood.Label, entry.Mood.Rank)
	fmt.Fprintf(&b, "Sentiment: %s", FormatScore(entry.SentimentScore))
	if entry.SentimentScore != nil {
		fmt.Fprintf(&b, " (%s)", DescribeScore(*entry.SentimentScore))
	}
	b.WriteString("\n")
	if entry.Note != "" {
		fmt.Fprintf(&b, "Note:\n%s\n", entry.Note)
	}
	return b.String()
}

// FormatSummary renders the statistics block
func FormatSummary(s stats.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entries:        %d\n", s.TotalEntries)
	if s.TotalEntries == 0 {
		return b.String()
	}

	fmt.Fprintf(&b, "Average mood:   %.1f / 7\n", s.AverageRank)
	if s.MostFrequent != nil {
		fmt.Fprintf(&b, "Most frequent:  %s %s\n", s.MostFrequent.Emoji, s.MostFrequent.Label)
	}
	if s.AverageSentiment != nil {
		fmt.Fprintf(&b, "Sentiment:      %s (%s, %d scored)\n",
			FormatScore(s.AverageSentiment), DescribeScore(*s.AverageSentiment), s.ScoredEntries)
	}
	fmt.Fprintf(&b, "Current streak: %d day(s)\n", s.CurrentStreak)

	b.WriteString("\n")
	for _, share := range s.Distribution {
		bar := strings.Repeat("#", int(share.Percent/5+0.5))
		fmt.Fprintf(&b, "%s %-14s %3d (%3.0f%%) %s\n", share.Mood.Emoji, share.Mood.Label, share.Count, share.Percent, bar)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens s to max runes, marking the cut with "..."
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

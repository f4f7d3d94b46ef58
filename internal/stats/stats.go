// Package stats aggregates mood entries for the statistics views.
package stats

import (
	"sort"
	"time"

	"github.com/christophergentle/mooddiary/internal/mood"
	"github.com/christophergentle/mooddiary/internal/state"
)

const dateLayout = "2006-01-02"

// MoodShare is one row of the mood distribution
type MoodShare struct {
	Mood    mood.Category `json:"mood"`
	Count   int           `json:"count"`
	Percent float64       `json:"percent"`
}

// Summary holds the aggregate view over a set of entries
type Summary struct {
	TotalEntries     int            `json:"totalEntries"`
	AverageRank      float64        `json:"averageRank"`
	Distribution     []MoodShare    `json:"distribution"`
	MostFrequent     *mood.Category `json:"mostFrequent,omitempty"`
	AverageSentiment *float64       `json:"averageSentiment,omitempty"`
	ScoredEntries    int            `json:"scoredEntries"`
	CurrentStreak    int            `json:"currentStreak"`
}

// DayPoint is the per-day aggregate used for trend charts
type DayPoint struct {
	Date             string    `json:"date"`
	Timestamp        time.Time `json:"timestamp"`
	AverageRank      float64   `json:"averageRank"`
	AverageSentiment float64   `json:"averageSentiment"`
	Entries          int       `json:"entries"`
}

// Summarize computes totals, distribution and streak. Days are taken in now's location.
func Summarize(entries []state.MoodEntry, now time.Time) Summary {
	summary := Summary{TotalEntries: len(entries)}

	counts := make(map[int]int)
	var rankSum, scoreSum float64
	for _, e := range entries {
		counts[e.Mood.Rank]++
		rankSum += float64(e.Mood.Rank)
		if e.SentimentScore != nil {
			scoreSum += *e.SentimentScore
			summary.ScoredEntries++
		}
	}

	best := 0
	for _, c := range mood.All() {
		c := c // per-iteration copy; go directive predates 1.22 loopvar semantics
		share := MoodShare{Mood: c, Count: counts[c.Rank]}
		if len(entries) > 0 {
			share.Percent = float64(share.Count) / float64(len(entries)) * 100
		}
		summary.Distribution = append(summary.Distribution, share)

		// strict > keeps the lower rank on ties
		if share.Count > best {
			best = share.Count
			summary.MostFrequent = &c
		}
	}

	if len(entries) > 0 {
		summary.AverageRank = rankSum / float64(len(entries))
	}
	if summary.ScoredEntries > 0 {
		avg := scoreSum / float64(summary.ScoredEntries)
		summary.AverageSentiment = &avg
	}

	summary.CurrentStreak = streak(entries, now)
	return summary
}

// streak counts consecutive days with at least one entry, ending today or yesterday
func streak(entries []state.MoodEntry, now time.Time) int {
	days := make(map[string]bool)
	for _, e := range entries {
		days[e.CreatedAt.In(now.Location()).Format(dateLayout)] = true
	}

	day := now
	if !days[day.Format(dateLayout)] {
		day = day.AddDate(0, 0, -1)
	}

	n := 0
	for days[day.Format(dateLayout)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

// Daily groups entries by calendar day in loc and returns points in ascending order
func Daily(entries []state.MoodEntry, loc *time.Location) []DayPoint {
	if loc == nil {
		loc = time.UTC
	}

	type acc struct {
		day               time.Time
		rankSum, scoreSum float64
		n, scored         int
	}
	byDay := make(map[string]*acc)

	for _, e := range entries {
		local := e.CreatedAt.In(loc)
		key := local.Format(dateLayout)
		a, ok := byDay[key]
		if !ok {
			y, m, d := local.Date()
			a = &acc{day: time.Date(y, m, d, 0, 0, 0, 0, loc)}
			byDay[key] = a
		}
		a.n++
		a.rankSum += float64(e.Mood.Rank)
		if e.SentimentScore != nil {
			a.scoreSum += *e.SentimentScore
			a.scored++
		}
	}

	points := make([]DayPoint, 0, len(byDay))
	for key, a := range byDay {
		p := DayPoint{
			Date:        key,
			Timestamp:   a.day,
			AverageRank: a.rankSum / float64(a.n),
			Entries:     a.n,
		}
		if a.scored > 0 {
			p.AverageSentiment = a.scoreSum / float64(a.scored)
		}
		points = append(points, p)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points
}

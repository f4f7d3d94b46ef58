package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/christophergentle/mooddiary/internal/formatter"
	"github.com/christophergentle/mooddiary/internal/logging"
	"github.com/christophergentle/mooddiary/internal/mood"
	"github.com/christophergentle/mooddiary/internal/sparkline"
	"github.com/christophergentle/mooddiary/internal/stats"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize recorded moods",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.Service.LastDays(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Print(formatter.FormatSummary(stats.Summarize(entries, time.Now())))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "only the last N days, 0 for all")
	return cmd
}

// scoreCmd runs the configured scorer without touching the store
func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <note...>",
		Short: "Score the sentiment of a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(logging.FormatText)
			if err != nil {
				return err
			}
			scorer, err := cfg.Scorer()
			if err != nil {
				return err
			}

			score := scorer.Score(strings.Join(args, " "))
			fmt.Printf("%s (%s)\n", formatter.FormatScore(&score), formatter.DescribeScore(score))
			return nil
		},
	}
}

func recommendCmd() *cobra.Command {
	var scoreFlag string

	cmd := &cobra.Command{
		Use:   "recommend <mood> [note...]",
		Short: "Show the recommendation for a mood and note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mood.Parse(args[0])
			if err != nil {
				return err
			}
			note := strings.Join(args[1:], " ")

			cfg, err := loadConfig(logging.FormatText)
			if err != nil {
				return err
			}
			generator, err := cfg.Generator()
			if err != nil {
				return err
			}

			var score *float64
			if scoreFlag != "" {
				v, err := strconv.ParseFloat(scoreFlag, 64)
				if err != nil {
					return fmt.Errorf("invalid --score: %w", err)
				}
				score = &v
			} else if note != "" {
				scorer, err := cfg.Scorer()
				if err != nil {
					return err
				}
				v := scorer.Score(note)
				score = &v
			}

			rule := generator.Select(m, score, note)
			fmt.Printf("[%s] %s\n", rule, generator.Generate(m, score, note))
			return nil
		},
	}

	cmd.Flags().StringVar(&scoreFlag, "score", "", "use this score instead of scoring the note")
	return cmd
}

func sparklineCmd() *cobra.Command {
	var days int
	var out string

	cmd := &cobra.Command{
		Use:   "sparkline",
		Short: "Render the daily mood trend as a PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.Service.LastDays(cmd.Context(), days)
			if err != nil {
				return err
			}

			cfg := sparkline.DefaultConfig()
			if days > 0 {
				cfg.Title = fmt.Sprintf("Mood, last %d days", days)
			}
			img, err := sparkline.NewSparklineGenerator(cfg).GenerateMoodSparkline(stats.Daily(entries, time.Local))
			if err != nil {
				return err
			}
			return writeImage(out, img)
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "number of days to chart")
	cmd.Flags().StringVarP(&out, "out", "o", "sparkline.png", "output file")
	return cmd
}

func calendarCmd() *cobra.Command {
	var year int
	var out string

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Render a year of daily moods as a PNG heatmap",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if year == 0 {
				year = time.Now().Year()
			}
			from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
			to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.Local)
			entries, err := a.Service.Range(cmd.Context(), from, to)
			if err != nil {
				return err
			}

			gen := sparkline.NewCalendarGenerator(sparkline.DefaultCalendarConfig())
			img, err := gen.GenerateYearCalendar(year, stats.Daily(entries, time.Local))
			if err != nil {
				return err
			}
			return writeImage(out, img)
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "calendar year (default current year)")
	cmd.Flags().StringVarP(&out, "out", "o", "calendar.png", "output file")
	return cmd
}

func writeImage(path string, img []byte) error {
	if err := os.WriteFile(path, img, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", path, len(img))
	return nil
}

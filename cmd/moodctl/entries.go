package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/christophergentle/mooddiary/internal/formatter"
	"github.com/christophergentle/mooddiary/internal/mood"
	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <mood> [note...]",
		Short: "Record today's mood with an optional note",
		Long:  "Record a mood. <mood> is a key (very_sad .. very_happy) or a rank from 1 to 7.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mood.Parse(args[0])
			if err != nil {
				return err
			}
			note := strings.Join(args[1:], " ")

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Service.Save(cmd.Context(), m, note)
			if err != nil {
				return err
			}

			fmt.Printf("Saved %s %s (sentiment %s)\n", m.Emoji, m.Label, formatter.FormatScore(result.Entry.SentimentScore))
			fmt.Printf("\n%s\n", result.Notice.Text(time.Now()))
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var limit, offset int
	var from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var entries []state.MoodEntry
			if from != "" || to != "" {
				start, end, err := parseDateRange(from, to)
				if err != nil {
					return err
				}
				entries, err = a.Service.Range(cmd.Context(), start, end)
				if err != nil {
					return err
				}
			} else {
				entries, err = a.Service.List(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}
			}

			if len(entries) == 0 {
				fmt.Println("No entries.")
				return nil
			}
			for _, e := range entries {
				fmt.Println(formatter.FormatEntry(e, time.Local))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show, 0 for all")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	cmd.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day to include (YYYY-MM-DD)")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := resolveID(cmd.Context(), a.Service, args[0])
			if err != nil {
				return err
			}
			fmt.Print(formatter.FormatEntryDetail(*entry, time.Local))
			return nil
		},
	}
}

func todayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show the latest entry recorded today",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := a.Service.Today(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(formatter.FormatEntryDetail(*entry, time.Local))
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := resolveID(cmd.Context(), a.Service, args[0])
			if err != nil {
				return err
			}
			if err := a.Service.Delete(cmd.Context(), entry.ID); err != nil {
				return err
			}
			fmt.Printf("Deleted entry %s\n", entry.ID)
			return nil
		},
	}
}

func rescoreCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "rescore [id]",
		Short: "Recompute cached sentiment scores from the notes",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return fmt.Errorf("pass either an id or --all")
			}
			if !all && len(args) != 1 {
				return fmt.Errorf("requires an id or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if all {
				updated, err := a.Service.RescoreAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Updated %d entries\n", updated)
				return nil
			}

			entry, err := resolveID(cmd.Context(), a.Service, args[0])
			if err != nil {
				return err
			}
			entry, err = a.Service.Rescore(cmd.Context(), entry.ID)
			if err != nil {
				return err
			}
			fmt.Println(formatter.FormatEntry(*entry, time.Local))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "rescore every entry")
	return cmd
}

func parseDateRange(from, to string) (time.Time, time.Time, error) {
	now := time.Now()
	start, end := now, now
	var err error
	if from != "" {
		if start, err = time.ParseInLocation("2006-01-02", from, time.Local); err != nil {
			return start, end, fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if to != "" {
		if end, err = time.ParseInLocation("2006-01-02", to, time.Local); err != nil {
			return start, end, fmt.Errorf("invalid --to date: %w", err)
		}
	}
	return start, end, nil
}

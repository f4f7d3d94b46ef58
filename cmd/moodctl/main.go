package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/christophergentle/mooddiary/internal/app"
	"github.com/christophergentle/mooddiary/internal/config"
	"github.com/christophergentle/mooddiary/internal/diary"
	"github.com/christophergentle/mooddiary/internal/logging"
	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "moodctl",
		Short:         "Mood diary with note sentiment scoring and recommendations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path or DSN, overrides store.dsn")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides log.level")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(todayCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(rescoreCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(recommendCmd())
	rootCmd.AddCommand(sparklineCmd())
	rootCmd.AddCommand(calendarCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(restoreCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config and applies the persistent flag overrides
func loadConfig(defaultLogFormat string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Store.DSN = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, defaultLogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig(logging.FormatText)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

// resolveID accepts a full id or the short prefix printed by list
func resolveID(ctx context.Context, svc *diary.Service, arg string) (*state.MoodEntry, error) {
	entry, err := svc.Get(ctx, arg)
	if err == nil || !errors.Is(err, state.ErrNotFound) {
		return entry, err
	}

	entries, err := svc.List(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	var match *state.MoodEntry
	for i := range entries {
		if strings.HasPrefix(entries[i].ID, arg) {
			if match != nil {
				return nil, fmt.Errorf("id prefix %q is ambiguous", arg)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", state.ErrNotFound, arg)
	}
	return match, nil
}

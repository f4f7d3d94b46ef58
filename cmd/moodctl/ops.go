package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/christophergentle/mooddiary/internal/api"
	"github.com/christophergentle/mooddiary/internal/app"
	"github.com/christophergentle/mooddiary/internal/backup"
	"github.com/christophergentle/mooddiary/internal/logging"
	"github.com/christophergentle/mooddiary/internal/scheduler"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var out string
	var compress, upload bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all entries to a backup directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			opts := a.ExportOptions()
			if out != "" {
				opts.OutputDir = out
			}
			if cmd.Flags().Changed("compress") {
				opts.Compress = compress
			}
			if !upload {
				opts.S3Bucket = ""
			}

			result, err := backup.Export(cmd.Context(), a.Store, opts)
			if err != nil {
				return err
			}

			fmt.Printf("Exported %d entries to %s\n", result.Manifest.EntryCount, result.BackupPath)
			fmt.Printf("Checksum: %s\n", result.Manifest.Checksum)
			if result.S3Prefix != "" {
				fmt.Printf("Uploaded to s3://%s/%s\n", opts.S3Bucket, result.S3Prefix)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default backup.dir)")
	cmd.Flags().BoolVar(&compress, "compress", false, "gzip the entries file")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload to backup.s3_bucket")
	return cmd
}

func restoreCmd() *cobra.Command {
	var clearFirst, dryRun bool

	cmd := &cobra.Command{
		Use:   "restore <dir | s3://bucket/prefix>",
		Short: "Restore entries from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			opts := backup.RestoreOptions{
				ClearFirst: clearFirst,
				DryRun:     dryRun,
				ProgressFunc: func(n int) {
					logrus.Infof("Restored %d entries", n)
				},
			}

			var result *backup.RestoreResult
			if location, ok := strings.CutPrefix(args[0], "s3://"); ok {
				bucket, prefix, _ := strings.Cut(location, "/")
				client, err := backup.NewS3Client(cmd.Context(), bucket)
				if err != nil {
					return err
				}
				result, err = backup.RestoreFromS3(cmd.Context(), a.Store, client, prefix, opts)
				if err != nil {
					return err
				}
			} else {
				result, err = backup.Restore(cmd.Context(), a.Store, args[0], opts)
				if err != nil {
					return err
				}
			}

			if dryRun {
				fmt.Printf("Backup from %s is valid: %d entries\n", result.Manifest.BackupTimestamp, result.Manifest.EntryCount)
				return nil
			}
			fmt.Printf("Restored %d entries in %s\n", result.TotalEntries, result.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearFirst, "clear", false, "delete all entries before restoring")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "verify the backup without writing")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and scheduled backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(logging.FormatJSON)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.Backup.Schedule != "" {
				backups := scheduler.NewBackupService(cfg.Backup.Schedule, a.Store, a.ExportOptions())
				if err := backups.Start(); err != nil {
					return err
				}
				defer backups.Stop()
			}

			if cfg.Server.JWTSecret == "" {
				logrus.Warn("server.jwt_secret is empty, API is unauthenticated")
			}

			return api.NewServer(a.Service, cfg.Server).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

func tokenCmd() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(logging.FormatText)
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return fmt.Errorf("server.jwt_secret is not configured")
			}

			token, err := api.GenerateToken([]byte(cfg.Server.JWTSecret), subject, time.Now())
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "owner", "token subject")
	return cmd
}

package lambda

import (
	"context"

	"github.com/christophergentle/mooddiary/internal/backup"
	"github.com/christophergentle/mooddiary/internal/config"
	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/sirupsen/logrus"
)

// BackupResult represents the result of a scheduled backup
type BackupResult struct {
	EntriesExported int    `json:"entries_exported"`
	S3Bucket        string `json:"s3_bucket"`
	S3Prefix        string `json:"s3_prefix"`
	Checksum        string `json:"checksum"`
	Success         bool   `json:"success"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// BackupRunner exports the entry store and uploads it to S3
type BackupRunner struct {
	store    state.Store
	uploader *backup.S3Client
	config   *config.Config
}

// NewBackupRunner creates a new runner instance
func NewBackupRunner(store state.Store, uploader *backup.S3Client, cfg *config.Config) *BackupRunner {
	return &BackupRunner{
		store:    store,
		uploader: uploader,
		config:   cfg,
	}
}

// RunBackup executes the complete export and upload
func (r *BackupRunner) RunBackup(ctx context.Context) (*BackupResult, error) {
	logrus.WithField("table", r.config.Store.DynamoTable).Info("Starting scheduled backup")

	result, err := backup.Export(ctx, r.store, backup.ExportOptions{
		OutputDir: r.config.Backup.Dir,
		Compress:  r.config.Backup.Compress,
		Source:    r.config.Store.Driver + ":" + r.config.Store.DynamoTable,
		S3Prefix:  r.config.Backup.S3Prefix,
		Uploader:  r.uploader,
	})
	if err != nil {
		return &BackupResult{
			Success:      false,
			ErrorMessage: "Failed to export entries: " + err.Error(),
		}, err
	}

	logrus.WithFields(logrus.Fields{
		"entries": result.Manifest.EntryCount,
		"prefix":  result.S3Prefix,
	}).Info("Scheduled backup completed")

	return &BackupResult{
		EntriesExported: result.Manifest.EntryCount,
		S3Bucket:        r.uploader.Bucket(),
		S3Prefix:        result.S3Prefix,
		Checksum:        result.Manifest.Checksum,
		Success:         true,
	}, nil
}

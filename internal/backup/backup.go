package backup

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/sirupsen/logrus"
)

// exportPageSize is how many entries are read from the store per List call
const exportPageSize = 500

// ExportOptions configures an export
type ExportOptions struct {
	OutputDir string
	Compress  bool
	// Source is recorded in the manifest, e.g. the store driver name
	Source string

	// S3Bucket enables upload of the finished backup directory
	S3Bucket string
	S3Prefix string
	// Uploader overrides the S3 client built from S3Bucket
	Uploader *S3Client

	ProgressFunc func(entriesWritten int)
}

// ExportResult describes a finished export
type ExportResult struct {
	Manifest   Manifest
	BackupPath string
	S3Prefix   string
	Duration   time.Duration
}

// Export writes every entry of store to a new timestamped directory under opts.OutputDir
func Export(ctx context.Context, store state.Store, opts ExportOptions) (*ExportResult, error) {
	startTime := time.Now()

	timestamp := GenerateBackupTimestamp(startTime)
	backupDir := filepath.Join(opts.OutputDir, fmt.Sprintf("backup-%s", timestamp))
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	logrus.WithField("dir", backupDir).Info("Starting export")

	fileName := entriesFile
	if opts.Compress {
		fileName += ".gz"
	}
	filePath := filepath.Join(backupDir, fileName)

	count, err := writeEntries(ctx, store, filePath, opts.Compress, opts.ProgressFunc)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", filePath, err)
	}
	checksum, err := CalculateFileChecksum(filePath)
	if err != nil {
		return nil, err
	}

	manifest := Manifest{
		BackupTimestamp: timestamp,
		BackupVersion:   backupVersion,
		Source:          opts.Source,
		FileName:        fileName,
		Compressed:      opts.Compress,
		EntryCount:      count,
		FileSize:        info.Size(),
		Checksum:        checksum,
		Duration:        time.Since(startTime).String(),
	}
	if err := WriteManifest(filepath.Join(backupDir, manifestFile), manifest); err != nil {
		return nil, err
	}

	result := &ExportResult{
		Manifest:   manifest,
		BackupPath: backupDir,
	}

	uploader := opts.Uploader
	if uploader == nil && opts.S3Bucket != "" {
		uploader, err = NewS3Client(ctx, opts.S3Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
	}
	if uploader != nil {
		prefix := joinKey(opts.S3Prefix, filepath.Base(backupDir))
		if err := uploader.UploadDirectory(ctx, backupDir, prefix); err != nil {
			return nil, fmt.Errorf("failed to upload backup: %w", err)
		}
		result.S3Prefix = prefix
		logrus.WithFields(logrus.Fields{
			"bucket": uploader.Bucket(),
			"prefix": prefix,
		}).Info("Uploaded backup to S3")
	}

	result.Duration = time.Since(startTime)
	logrus.WithFields(logrus.Fields{
		"entries":  count,
		"bytes":    manifest.FileSize,
		"duration": result.Duration,
	}).Info("Export completed")

	return result, nil
}

// writeEntries pages through the store and writes one JSON entry per line
func writeEntries(ctx context.Context, store state.Store, path string, compress bool, progress func(int)) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	var w io.Writer = file
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(file)
		w = gz
	}
	buffered := bufio.NewWriter(w)
	encoder := json.NewEncoder(buffered)

	count := 0
	for offset := 0; ; offset += exportPageSize {
		entries, err := store.List(ctx, exportPageSize, offset)
		if err != nil {
			return count, fmt.Errorf("failed to list entries: %w", err)
		}
		for i := range entries {
			if err := encoder.Encode(&entries[i]); err != nil {
				return count, fmt.Errorf("failed to encode entry %s: %w", entries[i].ID, err)
			}
		}
		count += len(entries)
		if progress != nil && len(entries) > 0 {
			progress(count)
		}
		if len(entries) < exportPageSize {
			break
		}
	}

	if err := buffered.Flush(); err != nil {
		return count, fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return count, fmt.Errorf("failed to close gzip writer: %w", err)
		}
	}
	if err := file.Close(); err != nil {
		return count, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return count, nil
}

package backup

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/sirupsen/logrus"
)

// ErrChecksumMismatch is returned when the data file does not match its manifest
var ErrChecksumMismatch = errors.New("backup checksum mismatch")

// RestoreOptions configures restore behavior
type RestoreOptions struct {
	// ClearFirst deletes every stored entry before restoring
	ClearFirst bool
	// DryRun validates the backup without writing to the store
	DryRun       bool
	ProgressFunc func(entriesRestored int)
}

// RestoreResult contains information about a completed restore
type RestoreResult struct {
	Manifest     Manifest
	TotalEntries int
	Duration     time.Duration
}

// Restore verifies the backup in dir against its manifest and re-inserts its entries.
// Entries keep their ids, so restoring over existing data replaces matching entries.
func Restore(ctx context.Context, store state.Store, dir string, opts RestoreOptions) (*RestoreResult, error) {
	startTime := time.Now()

	manifest, err := ReadManifest(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}

	dataPath := filepath.Join(dir, manifest.FileName)
	checksum, err := CalculateFileChecksum(dataPath)
	if err != nil {
		return nil, err
	}
	if checksum != manifest.Checksum {
		return nil, fmt.Errorf("%w: %s has %s, manifest says %s", ErrChecksumMismatch, manifest.FileName, checksum, manifest.Checksum)
	}

	entries, err := readEntries(dataPath, manifest.Compressed)
	if err != nil {
		return nil, err
	}
	if len(entries) != manifest.EntryCount {
		return nil, fmt.Errorf("backup holds %d entries, manifest says %d", len(entries), manifest.EntryCount)
	}

	logrus.WithFields(logrus.Fields{
		"dir":     dir,
		"entries": len(entries),
		"dryRun":  opts.DryRun,
	}).Info("Restoring backup")

	result := &RestoreResult{Manifest: *manifest}
	if opts.DryRun {
		result.Duration = time.Since(startTime)
		return result, nil
	}

	if opts.ClearFirst {
		if err := store.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear store: %w", err)
		}
	}

	for i := range entries {
		if err := store.Insert(ctx, &entries[i]); err != nil {
			return result, fmt.Errorf("failed to restore entry %s: %w", entries[i].ID, err)
		}
		result.TotalEntries++
		if opts.ProgressFunc != nil && result.TotalEntries%100 == 0 {
			opts.ProgressFunc(result.TotalEntries)
		}
	}

	result.Duration = time.Since(startTime)
	logrus.WithFields(logrus.Fields{
		"entries":  result.TotalEntries,
		"duration": result.Duration,
	}).Info("Restore completed")

	return result, nil
}

func readEntries(path string, compressed bool) ([]state.MoodEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var r io.Reader = file
	if compressed {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var entries []state.MoodEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry state.MoodEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to parse line %d of %s: %w", line, path, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return entries, nil
}

// RestoreFromS3 downloads the backup stored under prefix to a temp directory and restores it
func RestoreFromS3(ctx context.Context, store state.Store, client *S3Client, prefix string, opts RestoreOptions) (*RestoreResult, error) {
	tempDir, err := os.MkdirTemp("", "mooddiary-restore-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	logrus.WithFields(logrus.Fields{
		"bucket": client.Bucket(),
		"prefix": prefix,
	}).Info("Downloading backup from S3")
	if err := client.DownloadDirectory(ctx, prefix, tempDir); err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}

	return Restore(ctx, store, tempDir, opts)
}

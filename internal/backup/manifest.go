package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	manifestFile    = "manifest.json"
	entriesFile     = "entries.jsonl"
	backupVersion   = "1.0"
	timestampLayout = "2006-01-02T15-04-05Z"
)

// Manifest describes one backup directory
type Manifest struct {
	BackupTimestamp string `json:"backupTimestamp"`
	BackupVersion   string `json:"backupVersion"`
	Source          string `json:"source,omitempty"`
	FileName        string `json:"fileName"`
	Compressed      bool   `json:"compressed"`
	EntryCount      int    `json:"entryCount"`
	FileSize        int64  `json:"fileSize"`
	Checksum        string `json:"checksum"`
	Duration        string `json:"duration"`
}

// WriteManifest writes the manifest to a file
func WriteManifest(path string, manifest Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// ReadManifest reads and parses a manifest file
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.FileName == "" {
		return nil, fmt.Errorf("manifest %s names no data file", path)
	}

	return &manifest, nil
}

// CalculateFileChecksum returns the hex SHA-256 of a file's contents
func CalculateFileChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file for checksum: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to read file for checksum: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// GenerateBackupTimestamp generates a timestamp string for backup directory names
func GenerateBackupTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseBackupTimestamp parses a backup timestamp string
func ParseBackupTimestamp(ts string) (time.Time, error) {
	return time.Parse(timestampLayout, ts)
}

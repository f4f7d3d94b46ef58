package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/christophergentle/mooddiary/internal/mood"
	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *state.SQLStore {
	t.Helper()
	store, err := state.NewSQLStore(state.DriverSQLite, filepath.Join(t.TempDir(), "diary.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store state.Store) []state.MoodEntry {
	t.Helper()
	ctx := context.Background()
	score := 0.2
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := []state.MoodEntry{
		{Mood: mood.Happy, Note: "отлично", CreatedAt: base, SentimentScore: &score},
		{Mood: mood.Sad, Note: "", CreatedAt: base.AddDate(0, 0, 1)},
		{Mood: mood.Neutral, Note: "обычный день", CreatedAt: base.AddDate(0, 0, 2)},
	}
	for i := range entries {
		require.NoError(t, store.Insert(ctx, &entries[i]))
	}
	return entries
}

func TestExportRestoreRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run(map[bool]string{false: "plain", true: "gzip"}[compress], func(t *testing.T) {
			ctx := context.Background()
			source := newStore(t)
			seeded := seed(t, source)

			result, err := Export(ctx, source, ExportOptions{OutputDir: t.TempDir(), Compress: compress, Source: "sqlite3"})
			require.NoError(t, err)
			assert.Equal(t, 3, result.Manifest.EntryCount)
			assert.Equal(t, compress, result.Manifest.Compressed)
			assert.Len(t, result.Manifest.Checksum, 64)
			assert.FileExists(t, filepath.Join(result.BackupPath, manifestFile))
			assert.FileExists(t, filepath.Join(result.BackupPath, result.Manifest.FileName))

			target := newStore(t)
			restored, err := Restore(ctx, target, result.BackupPath, RestoreOptions{})
			require.NoError(t, err)
			assert.Equal(t, 3, restored.TotalEntries)

			for _, want := range seeded {
				got, err := target.Get(ctx, want.ID)
				require.NoError(t, err)
				assert.Equal(t, want.Mood, got.Mood)
				assert.Equal(t, want.Note, got.Note)
				assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
				assert.Equal(t, want.SentimentScore, got.SentimentScore)
			}
		})
	}
}

func TestExportEmptyStore(t *testing.T) {
	result, err := Export(context.Background(), newStore(t), ExportOptions{OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Manifest.EntryCount)

	restored, err := Restore(context.Background(), newStore(t), result.BackupPath, RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, restored.TotalEntries)
}

func TestRestoreRejectsTamperedData(t *testing.T) {
	ctx := context.Background()
	source := newStore(t)
	seed(t, source)

	result, err := Export(ctx, source, ExportOptions{OutputDir: t.TempDir()})
	require.NoError(t, err)

	dataPath := filepath.Join(result.BackupPath, result.Manifest.FileName)
	f, err := os.OpenFile(dataPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":"x","mood":"happy","note":"","createdAt":"2025-03-01T00:00:00Z"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	target := newStore(t)
	_, err = Restore(ctx, target, result.BackupPath, RestoreOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChecksumMismatch))

	entries, err := target.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRestoreDryRunAndClearFirst(t *testing.T) {
	ctx := context.Background()
	source := newStore(t)
	seed(t, source)

	result, err := Export(ctx, source, ExportOptions{OutputDir: t.TempDir()})
	require.NoError(t, err)

	target := newStore(t)
	extra := &state.MoodEntry{Mood: mood.VerySad, Note: "лишняя"}
	require.NoError(t, target.Insert(ctx, extra))

	dry, err := Restore(ctx, target, result.BackupPath, RestoreOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 0, dry.TotalEntries)
	entries, err := target.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = Restore(ctx, target, result.BackupPath, RestoreOptions{ClearFirst: true})
	require.NoError(t, err)
	entries, err = target.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	_, err = target.Get(ctx, extra.ID)
	assert.True(t, errors.Is(err, state.ErrNotFound))
}

func TestBackupTimestamp(t *testing.T) {
	ts := GenerateBackupTimestamp(time.Date(2025, 3, 1, 2, 3, 4, 0, time.UTC))
	assert.Equal(t, "2025-03-01T02-03-04Z", ts)

	parsed, err := ParseBackupTimestamp(ts)
	require.NoError(t, err)
	assert.Equal(t, 2025, parsed.Year())
}

// memoryS3 is an in-memory ObjectAPI
type memoryS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryS3() *memoryS3 {
	return &memoryS3{objects: make(map[string][]byte)}
}

func (m *memoryS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memoryS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	return out, nil
}

func TestExportUploadAndRestoreFromS3(t *testing.T) {
	ctx := context.Background()
	source := newStore(t)
	seed(t, source)

	api := newMemoryS3()
	client := NewS3ClientWithAPI(api, "diary-backups")

	result, err := Export(ctx, source, ExportOptions{
		OutputDir: t.TempDir(),
		Compress:  true,
		S3Prefix:  "/nightly/",
		Uploader:  client,
	})
	require.NoError(t, err)

	dirName := filepath.Base(result.BackupPath)
	assert.Equal(t, "nightly/"+dirName, result.S3Prefix)
	assert.Contains(t, api.objects, "nightly/"+dirName+"/manifest.json")
	assert.Contains(t, api.objects, "nightly/"+dirName+"/entries.jsonl.gz")

	target := newStore(t)
	restored, err := RestoreFromS3(ctx, target, client, result.S3Prefix, RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, restored.TotalEntries)
}

func TestDownloadDirectoryMissingPrefix(t *testing.T) {
	client := NewS3ClientWithAPI(newMemoryS3(), "diary-backups")
	err := client.DownloadDirectory(context.Background(), "missing", t.TempDir())
	assert.Error(t, err)
}

func TestDownloadDirectorySkipsSiblingPrefixes(t *testing.T) {
	api := newMemoryS3()
	api.objects["nightly/backup-1/manifest.json"] = []byte("{}")
	api.objects["nightly/backup-1/entries.jsonl"] = []byte("")
	api.objects["nightly/backup-10/manifest.json"] = []byte("sibling")
	api.objects["nightly/backup-1.old"] = []byte("sibling")

	client := NewS3ClientWithAPI(api, "diary-backups")
	dir := t.TempDir()
	require.NoError(t, client.DownloadDirectory(context.Background(), "nightly/backup-1", dir))

	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	assert.Equal(t, []string{"entries.jsonl", "manifest.json"}, files)

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

// unreadableStore fails every listing, as a store with a corrupt item does
type unreadableStore struct {
	state.Store
}

func (unreadableStore) List(ctx context.Context, limit, offset int) ([]state.MoodEntry, error) {
	return nil, errors.New("failed to read entry bad: invalid createdAt")
}

func TestExportFailsWhenStoreCannotBeRead(t *testing.T) {
	dir := t.TempDir()
	_, err := Export(context.Background(), unreadableStore{}, ExportOptions{OutputDir: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid createdAt")

	matches, _ := filepath.Glob(filepath.Join(dir, "*", "manifest.json"))
	assert.Empty(t, matches)
}

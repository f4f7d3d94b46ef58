package lambda

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/christophergentle/mooddiary/internal/backup"
	"github.com/christophergentle/mooddiary/internal/config"
	"github.com/christophergentle/mooddiary/internal/mood"
	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSSM is a mock implementation of SSMAPI
type MockSSM struct {
	mock.Mock
}

func (m *MockSSM) GetParameters(ctx context.Context, in *ssm.GetParametersInput, _ ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*ssm.GetParametersOutput)
	return out, args.Error(1)
}

func parameters(values map[string]string) *ssm.GetParametersOutput {
	out := &ssm.GetParametersOutput{}
	for name, value := range values {
		out.Parameters = append(out.Parameters, types.Parameter{Name: aws.String(name), Value: aws.String(value)})
	}
	return out
}

func TestSSMConfigLoaderLoadConfig(t *testing.T) {
	client := new(MockSSM)
	client.On("GetParameters", mock.MatchedBy(func(in *ssm.GetParametersInput) bool {
		return aws.ToBool(in.WithDecryption) && len(in.Names) == 6
	})).Return(parameters(map[string]string{
		ParamDynamoTable:   "diary-entries",
		ParamS3Bucket:      "diary-backups",
		ParamS3Prefix:      "nightly",
		ParamCompress:      "false",
		ParamNoticeTimeout: "10",
	}), nil)

	cfg, err := NewSSMConfigLoaderWithClient(client).LoadConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, config.DriverDynamo, cfg.Store.Driver)
	assert.Equal(t, "diary-entries", cfg.Store.DynamoTable)
	assert.Equal(t, "diary-backups", cfg.Backup.S3Bucket)
	assert.Equal(t, "nightly", cfg.Backup.S3Prefix)
	assert.False(t, cfg.Backup.Compress)
	assert.Equal(t, 10*time.Second, cfg.Recommendations.NoticeTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	client.AssertExpectations(t)
}

func TestSSMConfigLoaderMissingParameters(t *testing.T) {
	client := new(MockSSM)
	client.On("GetParameters", mock.Anything).Return(parameters(map[string]string{
		ParamS3Prefix: "nightly",
	}), nil)

	_, err := NewSSMConfigLoaderWithClient(client).LoadConfig(context.Background())
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{ParamDynamoTable, ParamS3Bucket}, cfgErr.Details)
	assert.Contains(t, err.Error(), ParamS3Bucket)
}

func TestSSMConfigLoaderClientError(t *testing.T) {
	client := new(MockSSM)
	client.On("GetParameters", mock.Anything).Return(nil, errors.New("throttled"))

	_, err := NewSSMConfigLoaderWithClient(client).LoadConfig(context.Background())
	assert.EqualError(t, err, "throttled")
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 7, parseIntWithDefault("7", 3))
	assert.Equal(t, 3, parseIntWithDefault("seven", 3))
	assert.Equal(t, 3, parseIntWithDefault("", 3))
	assert.True(t, parseBoolWithDefault("", true))
	assert.False(t, parseBoolWithDefault("false", true))
	assert.True(t, parseBoolWithDefault("maybe", true))
	assert.Equal(t, 5*time.Second, secondsWithDefault("-1", 5*time.Second))
}

func TestDefaultBackupDirIsUnderTmp(t *testing.T) {
	client := new(MockSSM)
	client.On("GetParameters", mock.Anything).Return(parameters(map[string]string{
		ParamDynamoTable: "t",
		ParamS3Bucket:    "b",
	}), nil)

	cfg, err := NewSSMConfigLoaderWithClient(client).LoadConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/tmp", filepath.Dir(cfg.Backup.Dir))
	assert.True(t, cfg.Backup.Compress)
}

// MockS3 is a mock implementation of backup.ObjectAPI
type MockS3 struct {
	mock.Mock
}

func (m *MockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(aws.ToString(in.Key))
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *MockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(aws.ToString(in.Key))
	return nil, args.Error(0)
}

func (m *MockS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(aws.ToString(in.Prefix))
	return &s3.ListObjectsV2Output{}, args.Error(0)
}

func backupConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Store:  config.StoreConfig{Driver: config.DriverDynamo, DynamoTable: "diary-entries"},
		Backup: config.BackupConfig{Dir: t.TempDir(), Compress: true, S3Bucket: "diary-backups", S3Prefix: "nightly"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestBackupRunnerRunBackup(t *testing.T) {
	ctx := context.Background()
	store, err := state.NewSQLStore(state.DriverSQLite, filepath.Join(t.TempDir(), "diary.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Insert(ctx, &state.MoodEntry{Mood: mood.Happy, Note: "отлично"}))

	api := new(MockS3)
	api.On("PutObject", mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "nightly/backup-")
	})).Return(nil).Twice()

	runner := NewBackupRunner(store, backup.NewS3ClientWithAPI(api, "diary-backups"), backupConfig(t))
	result, err := runner.RunBackup(ctx)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.EntriesExported)
	assert.Equal(t, "diary-backups", result.S3Bucket)
	assert.True(t, strings.HasPrefix(result.S3Prefix, "nightly/backup-"))
	assert.Len(t, result.Checksum, 64)
	api.AssertExpectations(t)
}

func TestBackupRunnerUploadFailure(t *testing.T) {
	ctx := context.Background()
	store, err := state.NewSQLStore(state.DriverSQLite, filepath.Join(t.TempDir(), "diary.db"))
	require.NoError(t, err)
	defer store.Close()

	api := new(MockS3)
	api.On("PutObject", mock.Anything).Return(errors.New("access denied"))

	runner := NewBackupRunner(store, backup.NewS3ClientWithAPI(api, "diary-backups"), backupConfig(t))
	result, err := runner.RunBackup(ctx)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "access denied")
}

package lambda

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/christophergentle/mooddiary/internal/config"
)

// Parameter names read from SSM Parameter Store
const (
	ParamDynamoTable   = "/mooddiary/store/dynamo_table"
	ParamS3Bucket      = "/mooddiary/backup/s3_bucket"
	ParamS3Prefix      = "/mooddiary/backup/s3_prefix"
	ParamCompress      = "/mooddiary/backup/compress"
	ParamLogLevel      = "/mooddiary/log/level"
	ParamNoticeTimeout = "/mooddiary/recommendations/notice_timeout_seconds"
)

// SSMAPI is the subset of the SSM client used by the loader
type SSMAPI interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// SSMConfigLoader handles loading configuration from SSM Parameter Store
type SSMConfigLoader struct {
	client SSMAPI
}

// NewSSMConfigLoader creates a new SSM configuration loader
func NewSSMConfigLoader(ctx context.Context) (*SSMConfigLoader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return NewSSMConfigLoaderWithClient(ssm.NewFromConfig(cfg)), nil
}

func NewSSMConfigLoaderWithClient(client SSMAPI) *SSMConfigLoader {
	return &SSMConfigLoader{client: client}
}

// LoadConfig loads configuration from SSM Parameter Store
func (s *SSMConfigLoader) LoadConfig(ctx context.Context) (*config.Config, error) {
	parameterNames := []string{
		ParamDynamoTable,
		ParamS3Bucket,
		ParamS3Prefix,
		ParamCompress,
		ParamLogLevel,
		ParamNoticeTimeout,
	}

	// GetParameters reports missing names in InvalidParameters rather than failing
	result, err := s.client.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          parameterNames,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}

	params := make(map[string]string)
	for _, param := range result.Parameters {
		if param.Name != nil && param.Value != nil {
			params[*param.Name] = strings.TrimSpace(*param.Value)
		}
	}

	var missing []string
	for _, name := range []string{ParamDynamoTable, ParamS3Bucket} {
		if params[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ConfigError{
			Message: "Missing required parameters",
			Details: missing,
		}
	}

	cfg := &config.Config{
		Log: config.LogConfig{
			Level:  params[ParamLogLevel],
			Format: "json",
		},
		Store: config.StoreConfig{
			Driver:      config.DriverDynamo,
			DynamoTable: params[ParamDynamoTable],
		},
		Backup: config.BackupConfig{
			Dir:      "/tmp/mooddiary-backups",
			Compress: parseBoolWithDefault(params[ParamCompress], true),
			S3Bucket: params[ParamS3Bucket],
			S3Prefix: params[ParamS3Prefix],
		},
	}
	cfg.Recommendations.NoticeTimeout = secondsWithDefault(params[ParamNoticeTimeout], config.DefaultNoticeTimeout)
	cfg.ApplyDefaults()

	return cfg, nil
}

// parseIntWithDefault parses an integer with a default value
func parseIntWithDefault(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

// parseBoolWithDefault parses a boolean with a default value
func parseBoolWithDefault(value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func secondsWithDefault(value string, defaultValue time.Duration) time.Duration {
	seconds := parseIntWithDefault(value, 0)
	if seconds <= 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}

// ConfigError represents a configuration error
type ConfigError struct {
	Message string
	Details []string
}

func (e *ConfigError) Error() string {
	if len(e.Details) > 0 {
		return e.Message + ": " + strings.Join(e.Details, ", ")
	}
	return e.Message
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/christophergentle/mooddiary/internal/analyzer"
	"github.com/christophergentle/mooddiary/internal/recommend"
	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = state.DriverSQLite
	DriverPostgres = state.DriverPostgres
	DriverDynamo   = "dynamodb"

	DefaultConfigFile    = "config.yaml"
	DefaultDatabase      = "mooddiary.db"
	DefaultAddr          = ":8080"
	DefaultBackupDir     = "backups"
	DefaultBackupCron    = "0 3 * * *"
	DefaultNoticeTimeout = 5 * time.Second
)

type Config struct {
	Log             LogConfig             `yaml:"log"`
	Store           StoreConfig           `yaml:"store"`
	Analysis        AnalysisConfig        `yaml:"analysis"`
	Recommendations RecommendationsConfig `yaml:"recommendations"`
	Server          ServerConfig          `yaml:"server"`
	Backup          BackupConfig          `yaml:"backup"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Format is "text" or "json"; empty lets the binary choose
	Format string `yaml:"format"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	DynamoTable string `yaml:"dynamo_table"`
}

type AnalysisConfig struct {
	Engine      string `yaml:"engine"`
	LexiconFile string `yaml:"lexicon_file"`
	// Lexicon overrides individual marker lists of the default lexicon
	Lexicon analyzer.Lexicon `yaml:"lexicon"`
}

type RecommendationsConfig struct {
	// Messages is keyed by rule name, e.g. "stress" or "share_positivity"
	Messages      map[string]string  `yaml:"messages"`
	Triggers      recommend.Triggers `yaml:"triggers"`
	NoticeTimeout time.Duration      `yaml:"notice_timeout"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	JWTSecret   string   `yaml:"jwt_secret"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type BackupConfig struct {
	Dir      string `yaml:"dir"`
	Compress bool   `yaml:"compress"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix"`
	// Schedule is a cron expression; empty disables scheduled backups in serve
	Schedule string `yaml:"schedule"`
}

// LoadConfig loads .env, then the YAML file at path, then environment overrides.
// An empty path looks for config.yaml and falls back to defaults when none exists.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	explicit := path != ""
	if !explicit {
		path = GetConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.ApplyEnv()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromEnv builds a configuration from environment variables and defaults
func LoadConfigFromEnv() *Config {
	cfg := &Config{}
	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	return cfg
}

// ApplyEnv overrides fields from MOODDIARY_* variables and LOG_LEVEL
func (c *Config) ApplyEnv() {
	setFromEnv(&c.Log.Level, "LOG_LEVEL")
	setFromEnv(&c.Store.Driver, "MOODDIARY_STORE")
	setFromEnv(&c.Store.DSN, "MOODDIARY_DB")
	setFromEnv(&c.Store.DynamoTable, "MOODDIARY_DYNAMO_TABLE")
	setFromEnv(&c.Server.Addr, "MOODDIARY_ADDR")
	setFromEnv(&c.Server.JWTSecret, "MOODDIARY_JWT_SECRET")
	setFromEnv(&c.Backup.S3Bucket, "MOODDIARY_S3_BUCKET")
	if origins := os.Getenv("MOODDIARY_CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}
}

// ApplyDefaults sets defaults for optional fields
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	if c.Store.Driver == DriverSQLite && c.Store.DSN == "" {
		c.Store.DSN = DefaultDatabase
	}
	if c.Store.Driver == DriverDynamo && c.Store.DynamoTable == "" {
		c.Store.DynamoTable = "mooddiary-entries"
	}
	if c.Analysis.Engine == "" {
		c.Analysis.Engine = analyzer.EngineLexicon
	}
	if c.Recommendations.NoticeTimeout <= 0 {
		c.Recommendations.NoticeTimeout = DefaultNoticeTimeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = DefaultBackupDir
	}
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver)
		}
	case DriverDynamo:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch strings.ToLower(c.Analysis.Engine) {
	case analyzer.EngineLexicon, analyzer.EngineVader:
	default:
		return fmt.Errorf("unknown analysis engine %q", c.Analysis.Engine)
	}

	if _, err := recommend.CatalogFromKeys(c.Recommendations.Messages); err != nil {
		return fmt.Errorf("invalid recommendations.messages: %w", err)
	}
	return nil
}

// Lexicon resolves the lexicon: the file if configured, else inline overrides over the defaults
func (c *Config) Lexicon() (analyzer.Lexicon, error) {
	if c.Analysis.LexiconFile != "" {
		return analyzer.LoadLexicon(c.Analysis.LexiconFile)
	}
	return c.Analysis.Lexicon.WithDefaults(), nil
}

// Scorer builds the configured sentiment engine
func (c *Config) Scorer() (analyzer.Scorer, error) {
	lexicon, err := c.Lexicon()
	if err != nil {
		return nil, err
	}
	return analyzer.NewScorer(c.Analysis.Engine, lexicon), nil
}

// Generator builds the recommendation generator with configured overrides
func (c *Config) Generator() (*recommend.Generator, error) {
	catalog, err := recommend.CatalogFromKeys(c.Recommendations.Messages)
	if err != nil {
		return nil, err
	}
	return recommend.New(catalog, c.Recommendations.Triggers), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}

	if exe, err := os.Executable(); err == nil {
		configPath := filepath.Join(filepath.Dir(exe), DefaultConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	return DefaultConfigFile
}

func setFromEnv(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

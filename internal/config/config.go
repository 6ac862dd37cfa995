package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	envPrefix = "FILEREGISTRY_"

	defaultListen         = ":8080"
	defaultWorkDir        = "./files"
	defaultDescFileName   = "description.md"
	defaultOutputDir      = "./out"
	defaultMaxUploadBytes = 10 << 20
	defaultCacheSize      = 64
	defaultS3Region       = "us-east-1"
	defaultS3Prefix       = "fileregistry"
)

type IngestConfig struct {
	WorkDir      string   `yaml:"work_dir"`
	DescFileName string   `yaml:"desc_filename"`
	SkipFiles    []string `yaml:"skip_files"`
	DetectMIME   bool     `yaml:"detect_mime"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func (c *S3Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

type ExportConfig struct {
	OutputDir string   `yaml:"output_dir"`
	S3        S3Config `yaml:"s3"`
}

type HandlerConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	CacheSize      int   `yaml:"cache_size"`
}

type Config struct {
	Listen           string        `yaml:"listen"`
	LogLevel         string        `yaml:"log_level"`
	RedisURL         string        `yaml:"redis_url"`
	TemplateFileName string        `yaml:"template_filename"`
	IngestConfig     IngestConfig  `yaml:"ingest"`
	ExportConfig     ExportConfig  `yaml:"export"`
	HandlerConfig    HandlerConfig `yaml:"handler"`
}

// MustLoad reads the YAML file if it exists, then applies .env and environment overrides.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}

		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("cannot unmarshal config file: %w", err)
			}
		}
	}

	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}

	if c.LogLevel == "" {
		c.LogLevel = LogLevelInfo
	}

	if c.IngestConfig.WorkDir == "" {
		c.IngestConfig.WorkDir = defaultWorkDir
	}

	if c.IngestConfig.DescFileName == "" {
		c.IngestConfig.DescFileName = defaultDescFileName
	}

	if c.ExportConfig.OutputDir == "" {
		c.ExportConfig.OutputDir = defaultOutputDir
	}

	if c.ExportConfig.S3.Region == "" {
		c.ExportConfig.S3.Region = defaultS3Region
	}

	if c.ExportConfig.S3.Prefix == "" {
		c.ExportConfig.S3.Prefix = defaultS3Prefix
	}

	if c.HandlerConfig.MaxUploadBytes <= 0 {
		c.HandlerConfig.MaxUploadBytes = defaultMaxUploadBytes
	}

	if c.HandlerConfig.CacheSize <= 0 {
		c.HandlerConfig.CacheSize = defaultCacheSize
	}
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}

	s3 := &c.ExportConfig.S3
	if s3.Enabled() && (s3.AccessKey == "" || s3.SecretKey == "") {
		return fmt.Errorf("s3 access key and secret key are required")
	}

	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Listen, "LISTEN")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.TemplateFileName, "TEMPLATE_FILENAME")
	setString(&c.IngestConfig.WorkDir, "WORK_DIR")
	setString(&c.ExportConfig.OutputDir, "OUTPUT_DIR")
	setString(&c.ExportConfig.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.ExportConfig.S3.Region, "S3_REGION")
	setString(&c.ExportConfig.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.ExportConfig.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.ExportConfig.S3.Bucket, "S3_BUCKET")

	if raw := lookupEnv("S3_USE_SSL"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %sS3_USE_SSL: %w", envPrefix, err)
		}

		c.ExportConfig.S3.UseSSL = v
	}

	return nil
}

func setString(dst *string, name string) {
	if v := lookupEnv(name); v != "" {
		*dst = v
	}
}

func lookupEnv(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

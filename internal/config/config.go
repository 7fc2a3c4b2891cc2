// Package config loads settings for the BOM tools from defaults, an optional config
// file, and BOM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Default values for a run from the website repository root.
const (
	DefaultInput      = "BOM-and-SIM-zf-voltage-lightsheet-rsLSM1.1-2025-rebuild.xlsx"
	DefaultOutput     = "website/data/bom.json"
	DefaultDataset    = "microscope_bom"
	DefaultSQLitePath = "website/data/bom.sqlite"
	DefaultModelName  = "gemini-2.5-flash"
	DefaultS3Region   = "us-east-1"
	DefaultPort       = "8080"

	// EnvPrefix is prepended to every environment override, e.g. BOM_INPUT.
	EnvPrefix = "BOM"
	// EnvConfigFile points at an explicit config file.
	EnvConfigFile = "BOM_CONFIG"
)

// Config holds every setting the commands read.
type Config struct {
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`
	Sheet  string `mapstructure:"sheet"`

	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	GCP      GCPConfig      `mapstructure:"gcp"`
	BigQuery BigQueryConfig `mapstructure:"bigquery"`
	GCS      GCSConfig      `mapstructure:"gcs"`
	S3       S3Config       `mapstructure:"s3"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	GenAI    GenAIConfig    `mapstructure:"genai"`
	API      APIConfig      `mapstructure:"api"`
	Notion   NotionConfig   `mapstructure:"notion"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	// Textfile is a node-exporter textfile path written after batch runs. Empty disables it.
	Textfile string `mapstructure:"textfile"`
}

type GCPConfig struct {
	Project string `mapstructure:"project"`
}

type BigQueryConfig struct {
	Dataset string `mapstructure:"dataset"`
}

type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type GenAIConfig struct {
	Model string `mapstructure:"model"`
}

type APIConfig struct {
	Port string `mapstructure:"port"`
}

type NotionConfig struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
}

// Load reads configuration. A config file is optional: BOM_CONFIG names one explicitly,
// otherwise bom.{yaml,toml,json} in the working directory is used when present.
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith is Load on a caller-supplied viper instance, so tests and commands can
// pre-set values before decoding.
func LoadWith(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(EnvConfigFile); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("bom")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.Load: reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: decoding config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input", DefaultInput)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("sheet", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("gcp.project", "")
	v.SetDefault("bigquery.dataset", DefaultDataset)
	v.SetDefault("gcs.bucket", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("sqlite.path", DefaultSQLitePath)
	v.SetDefault("genai.model", DefaultModelName)
	v.SetDefault("api.port", DefaultPort)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
}

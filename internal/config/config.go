// Package config loads segmenta's configuration from file, environment and
// flags, and turns it into estimators, splitters and chunkers.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shivavenkatesh/segmenta/internal/logging"
	"github.com/shivavenkatesh/segmenta/pkg/chunkerr"
	"github.com/shivavenkatesh/segmenta/pkg/chunking"
)

// EnvPrefix prefixes environment overrides, e.g. SEGMENTA_CHUNK_SIZE.
const EnvPrefix = "SEGMENTA"

// Config holds the application configuration.
type Config struct {
	DataDir       string          `mapstructure:"data_dir" yaml:"data_dir"`
	ChunkSize     int             `mapstructure:"chunk_size" yaml:"chunk_size"`
	OverlapRatio  float64         `mapstructure:"overlap_ratio" yaml:"overlap_ratio"`
	OverlapPolicy string          `mapstructure:"overlap_policy" yaml:"overlap_policy"`
	Estimator     EstimatorConfig `mapstructure:"estimator" yaml:"estimator"`
	Splitters     []string        `mapstructure:"splitters" yaml:"splitters"`
	Sentences     SentencesConfig `mapstructure:"sentences" yaml:"sentences"`
	Index         IndexConfig     `mapstructure:"index" yaml:"index"`
	Log           LogConfig       `mapstructure:"log" yaml:"log"`
	Server        ServerConfig    `mapstructure:"server" yaml:"server"`
}

// EstimatorConfig selects the size estimator.
type EstimatorConfig struct {
	Name      string        `mapstructure:"name" yaml:"name"`         // word, char, tiktoken, remote
	Encoding  string        `mapstructure:"encoding" yaml:"encoding"` // tiktoken encoding or model name
	URL       string        `mapstructure:"url" yaml:"url"`           // remote tokenizer base URL
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheSize int           `mapstructure:"cache_size" yaml:"cache_size"`
}

// SentencesConfig configures the sentence splitter.
type SentencesConfig struct {
	TextLimit        int    `mapstructure:"text_limit" yaml:"text_limit"`
	FallbackLanguage string `mapstructure:"fallback_language" yaml:"fallback_language"`
}

// IndexConfig configures file indexing.
type IndexConfig struct {
	Ignore      []string `mapstructure:"ignore" yaml:"ignore"`
	MaxFileSize int64    `mapstructure:"max_file_size" yaml:"max_file_size"`
	CodeAware   bool     `mapstructure:"code_aware" yaml:"code_aware"` // split source files at declarations first
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// DBPath is the SQLite file inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "segmenta.db")
}

// NewViper returns a viper instance with defaults and environment bindings.
// Callers may bind flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("chunk_size", chunking.DefaultChunkSize)
	v.SetDefault("overlap_ratio", 0.0)
	v.SetDefault("overlap_policy", chunking.EvictBeforeAdmit.String())
	v.SetDefault("estimator.name", "word")
	v.SetDefault("estimator.encoding", "")
	v.SetDefault("estimator.url", "")
	v.SetDefault("estimator.timeout", 10*time.Second)
	v.SetDefault("estimator.cache_size", 4096)
	v.SetDefault("splitters", []string{})
	v.SetDefault("sentences.text_limit", 0)
	v.SetDefault("sentences.fallback_language", "")
	v.SetDefault("index.ignore", []string{".git", "node_modules", "vendor", "__pycache__", ".venv", "dist", "build"})
	v.SetDefault("index.max_file_size", 4<<20)
	v.SetDefault("index.code_aware", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3456)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads file (or segmenta.yaml from the working directory and the data
// directory when file is empty) into a validated Config. A missing default
// file is not an error; a missing explicit file is.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("segmenta")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(v.GetString("data_dir"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports bad values as chunkerr.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return chunkerr.Invalidf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.OverlapRatio < 0 || c.OverlapRatio > 1 {
		return chunkerr.Invalidf("overlap_ratio must be between 0 and 1, got %v", c.OverlapRatio)
	}
	if _, err := chunking.ParseOverlapPolicy(c.OverlapPolicy); err != nil {
		return err
	}
	if !knownEstimator(c.Estimator.Name) {
		return chunkerr.Invalidf("unknown estimator %q", c.Estimator.Name)
	}
	if c.Estimator.CacheSize < 0 {
		return chunkerr.Invalidf("estimator.cache_size must not be negative, got %d", c.Estimator.CacheSize)
	}
	for _, name := range c.Splitters {
		if err := checkSplitterName(name); err != nil {
			return err
		}
	}
	if c.Sentences.TextLimit < 0 {
		return chunkerr.Invalidf("sentences.text_limit must not be negative, got %d", c.Sentences.TextLimit)
	}
	if c.Index.MaxFileSize < 0 {
		return chunkerr.Invalidf("index.max_file_size must not be negative, got %d", c.Index.MaxFileSize)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return chunkerr.Invalidf("%v", err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return chunkerr.Invalidf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Log.Level
	lc.JSON = c.Log.JSON
	return lc
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".segmenta"
	}
	return filepath.Join(home, ".segmenta")
}

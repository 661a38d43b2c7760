package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"chunkvault/internal/encryption/chunking"
)

const (
	BackendFS     = "fs"
	BackendS3     = "s3"
	BackendBadger = "badger"
)

type Config struct {
	ChunkSize   int    `yaml:"chunkSize"`
	StorageRoot string `yaml:"storageRoot"`
	Secret      string `yaml:"secret"`
	Backend     string `yaml:"backend"`
	BucketName  string `yaml:"bucketName"`
	S3Prefix    string `yaml:"s3Prefix"`
	LogLevel    string `yaml:"logLevel"`
}

// Load builds the configuration from an optional YAML file, then a .env file
// in the working directory if there is one, then the process environment.
// Later sources win. An empty path skips the YAML file.
func Load(path string) (Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return Config{}, err
	}
	config.applyDefaults()

	return config, config.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CHUNKVAULT_CHUNK_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CHUNKVAULT_CHUNK_SIZE %q: %w", v, err)
		}
		c.ChunkSize = size
	}

	overrides := map[string]*string{
		"CHUNKVAULT_STORAGE_ROOT": &c.StorageRoot,
		"CHUNKVAULT_SECRET":       &c.Secret,
		"CHUNKVAULT_BACKEND":      &c.Backend,
		"AWS_BUCKET_NAME":         &c.BucketName,
		"CHUNKVAULT_S3_PREFIX":    &c.S3Prefix,
		"CHUNKVAULT_LOG_LEVEL":    &c.LogLevel,
	}
	for name, field := range overrides {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = chunking.DefaultChunkSize
	}
	if c.StorageRoot == "" {
		c.StorageRoot = "data/chunks"
	}
	if c.Backend == "" {
		c.Backend = BackendFS
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c Config) Validate() error {
	if err := chunking.ValidateChunkSize(c.ChunkSize); err != nil {
		return err
	}
	switch c.Backend {
	case BackendFS, BackendBadger:
		if c.StorageRoot == "" {
			return fmt.Errorf("backend %s needs a storage root", c.Backend)
		}
	case BackendS3:
		if c.BucketName == "" {
			return errors.New("backend s3 needs AWS_BUCKET_NAME")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Logger returns a logger at the configured level.
func (c Config) Logger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

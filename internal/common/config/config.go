package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Data sources for reference tables and the roster.
const (
	SourceFiles = "files"
	SourceDB    = "db"
)

type Config struct {
	Data    DataConfig    `yaml:"data"`
	Store   StoreConfig   `yaml:"store"`
	Planner PlannerConfig `yaml:"planner"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig says where reference tables and the roster come from.
type DataConfig struct {
	Dir    string `yaml:"dir" validate:"required"`
	Source string `yaml:"source" validate:"oneof=files db"`
}

// StoreConfig for the SQL reference store
type StoreConfig struct {
	Driver       string `yaml:"driver" validate:"oneof=sqlite postgres"`
	DSN          string `yaml:"dsn" validate:"required_if=Driver postgres"`
	KeepVersions int    `yaml:"keepVersions" validate:"gte=0"`
}

type PlannerConfig struct {
	DelayPenaltyMinutes int    `yaml:"delayPenaltyMinutes" validate:"gte=0"`
	MailSubject         string `yaml:"mailSubject" validate:"required"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	FilePath string `yaml:"file"`
	Console  bool   `yaml:"console"`
}

// Load builds the configuration from environment variables. When path (or
// CONFIG_FILE) names a YAML file, its values override the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Data: DataConfig{
			Dir:    getEnv("DATA_DIR", "."),
			Source: getEnv("DATA_SOURCE", SourceFiles),
		},
		Store: StoreConfig{
			Driver:       getEnv("STORE_DRIVER", "sqlite"),
			DSN:          getEnv("STORE_DSN", "classcommute.db"),
			KeepVersions: getEnvInt("STORE_KEEP_VERSIONS", 2),
		},
		Planner: PlannerConfig{
			DelayPenaltyMinutes: getEnvInt("DELAY_PENALTY_MINUTES", 0),
			MailSubject:         getEnv("MAIL_SUBJECT", "Late Notice"),
		},
		Logging: LoggingConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			FilePath: getEnvAllowEmpty("LOG_FILE", "classcommute.log"),
			Console:  getEnvBool("LOG_CONSOLE", true),
		},
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty lets a variable that is set but empty switch a default off.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

package bot

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "avylbot/core/config"
	coredatabase "avylbot/core/database"
	"avylbot/internal/feedback"
)

// MediaConfig points at the directories holding narrative media files.
type MediaConfig struct {
	ImagesDir string `yaml:"images_dir" envconfig:"MEDIA_IMAGES_DIR"`
	VoicesDir string `yaml:"voices_dir" envconfig:"MEDIA_VOICES_DIR"`
}

// Config aggregates the application configuration.
type Config struct {
	Core       coreconfig.Config         `yaml:",inline"`
	Database   coredatabase.Config       `yaml:"database"`
	GigaChat   feedback.GigaChatConfig   `yaml:"gigachat"`
	Translator feedback.TranslatorConfig `yaml:"translator"`
	Media      MediaConfig               `yaml:"media"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// LoadConfig reads the YAML file, applies env overrides, and validates.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	normalize(&cfg)
	return &cfg, nil
}

func normalize(cfg *Config) {
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Media.ImagesDir == "" {
		cfg.Media.ImagesDir = "images"
	}
	if cfg.Media.VoicesDir == "" {
		cfg.Media.VoicesDir = "voices"
	}
}

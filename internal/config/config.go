// Package config loads application configuration from config.yaml and the
// environment. Workspace ids, owner ids, thresholds, and API keys all live
// here; nothing operational is hardcoded in the passes.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Workspace   WorkspaceConfig   `yaml:"workspace" mapstructure:"workspace"`
	Coresignal  CoresignalConfig  `yaml:"coresignal" mapstructure:"coresignal"`
	Dropcontact DropcontactConfig `yaml:"dropcontact" mapstructure:"dropcontact"`
	Perplexity  PerplexityConfig  `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Enrich      EnrichConfig      `yaml:"enrich" mapstructure:"enrich"`
	Report      ReportConfig      `yaml:"report" mapstructure:"report"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// WorkspaceConfig scopes every pass to one tenant.
type WorkspaceConfig struct {
	ID string `yaml:"id" mapstructure:"id"`
}

// CoresignalConfig holds Coresignal API settings.
type CoresignalConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// DropcontactConfig holds Dropcontact API settings.
type DropcontactConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// EnrichConfig tunes enrichment pacing and the refresh field set.
type EnrichConfig struct {
	BatchSize    int           `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelay   time.Duration `yaml:"batch_delay" mapstructure:"batch_delay"`
	MinCallDelay time.Duration `yaml:"min_call_delay" mapstructure:"min_call_delay"`
	Refresh      []string      `yaml:"refresh" mapstructure:"refresh"`
}

// ReportConfig configures where reports and backups land.
type ReportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the status API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("report.dir", "reports")
	v.SetDefault("enrich.batch_size", 25)
	v.SetDefault("enrich.batch_delay", "2s")
	v.SetDefault("enrich.min_call_delay", "500ms")
	v.SetDefault("coresignal.base_url", "https://api.coresignal.com/cdapi/v1")
	v.SetDefault("dropcontact.base_url", "https://api.dropcontact.io")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration can support the given mode: "db"
// for anything that touches the store, "enrich" for provider passes, "serve"
// for the status API.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "db":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
	case "enrich":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
		if c.Coresignal.Key == "" && c.Dropcontact.Key == "" && c.Perplexity.Key == "" {
			missing = append(missing, "at least one provider key (coresignal, dropcontact, perplexity) is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Enrich.BatchSize < 0 || c.Enrich.BatchSize > 500 {
		missing = append(missing, "enrich.batch_size must be between 0 and 500")
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

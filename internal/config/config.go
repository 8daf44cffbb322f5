// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Tavily    TavilyConfig    `yaml:"tavily" mapstructure:"tavily"`
	LeadStore LeadStoreConfig `yaml:"leadstore" mapstructure:"leadstore"`
	Protect   ProtectConfig   `yaml:"protect" mapstructure:"protect"`
	Gmail     GmailConfig     `yaml:"gmail" mapstructure:"gmail"`
	LinkedIn  LinkedInConfig  `yaml:"linkedin" mapstructure:"linkedin"`
	Workflow  WorkflowConfig  `yaml:"workflow" mapstructure:"workflow"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings for draft generation.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// TavilyConfig holds Tavily web search settings.
type TavilyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// LeadStoreConfig holds the lead profile store settings.
type LeadStoreConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Key     string `yaml:"key" mapstructure:"key"`
}

// ProtectConfig holds guardrail backend settings.
type ProtectConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Key         string `yaml:"key" mapstructure:"key"`
	ProjectID   string `yaml:"project_id" mapstructure:"project_id"`
	StageID     string `yaml:"stage_id" mapstructure:"stage_id"`
	ProjectName string `yaml:"project_name" mapstructure:"project_name"`
	StageName   string `yaml:"stage_name" mapstructure:"stage_name"`
	StrictMode  bool   `yaml:"strict_mode" mapstructure:"strict_mode"`
}

// GmailConfig holds Gmail draft creation settings.
type GmailConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// LinkedInConfig holds the LinkedIn draft queue settings. An empty
// QueueURL keeps drafts local.
type LinkedInConfig struct {
	QueueURL string `yaml:"queue_url" mapstructure:"queue_url"`
}

// WorkflowConfig tunes graph execution.
type WorkflowConfig struct {
	// ResearchPolicy is "always" or "skip_when_sufficient".
	ResearchPolicy string `yaml:"research_policy" mapstructure:"research_policy"`
	OutputDir      string `yaml:"output_dir" mapstructure:"output_dir"`
}

// ServerConfig configures the HTTP server.
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
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.temperature", 0.7)
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("protect.project_name", "outreach-assistant")
	v.SetDefault("protect.stage_name", "production")
	v.SetDefault("workflow.research_policy", "always")
	v.SetDefault("workflow.output_dir", "outputs")

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

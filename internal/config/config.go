package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/promptform/promptform/pkg/llm"
)

type Config struct {
	LLM   LLMConfig   `mapstructure:"llm"`
	Cache CacheConfig `mapstructure:"cache"`
}

type LLMConfig struct {
	Model            string   `mapstructure:"model"`
	BaseURL          string   `mapstructure:"base_url"`
	APIKey           string   `mapstructure:"api_key"`
	MaxRetries       int      `mapstructure:"max_retries"`
	Temperature      *float64 `mapstructure:"temperature"`
	MaxTokens        int      `mapstructure:"max_tokens"`
	TopP             float64  `mapstructure:"top_p"`
	TimeoutSeconds   int      `mapstructure:"timeout_seconds"`
	BackoffBase      float64  `mapstructure:"backoff_base"`
	DisableJitter    bool     `mapstructure:"disable_jitter"`
	FrequencyPenalty float64  `mapstructure:"frequency_penalty"`
	PresencePenalty  float64  `mapstructure:"presence_penalty"`
}

type CacheConfig struct {
	Path       string `mapstructure:"path"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

func Load() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Settings maps the file/env configuration onto explicit client
// settings. The library itself never reads the environment; only this
// binary does.
func (c Config) Settings() llm.Settings {
	return llm.Settings{
		Model:            c.LLM.Model,
		BaseURL:          c.LLM.BaseURL,
		APIKey:           c.LLM.APIKey,
		MaxRetries:       c.LLM.MaxRetries,
		Temperature:      c.LLM.Temperature,
		MaxTokens:        c.LLM.MaxTokens,
		TopP:             c.LLM.TopP,
		FrequencyPenalty: c.LLM.FrequencyPenalty,
		PresencePenalty:  c.LLM.PresencePenalty,
		Timeout:          time.Duration(c.LLM.TimeoutSeconds) * time.Second,
		BackoffBase:      c.LLM.BackoffBase,
		BackoffJitter:    !c.LLM.DisableJitter,
	}
}

// CacheTTL returns the configured cache entry lifetime, zero for none
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

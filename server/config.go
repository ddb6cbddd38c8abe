package server

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the server's runtime settings, loaded from a config file
// and GAMECOACH_* environment variables.
type Config struct {
	Addr     string `mapstructure:"addr"`
	Token    string `mapstructure:"token"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	TTSURL          string `mapstructure:"tts_url"`
	CaptionURL      string `mapstructure:"caption_url"`

	DefaultModel string `mapstructure:"default_model"`
	SystemPrompt string `mapstructure:"system_prompt"`
	TTSLanguage  string `mapstructure:"tts_language"`
}

const defaultSystemPrompt = "You are a helpful gaming assistant. The user will show you " +
	"a screenshot of the game they are playing and ask a question about it. " +
	"Answer concisely and concretely, as advice spoken to the player mid-game."

// LoadConfig reads the server configuration. The config file is optional;
// environment variables (GAMECOACH_ADDR, GAMECOACH_TOKEN, ANTHROPIC_API_KEY,
// OPENAI_API_KEY, ...) override file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", ":8700")
	v.SetDefault("log_level", "info")
	v.SetDefault("default_model", "")
	v.SetDefault("system_prompt", defaultSystemPrompt)
	v.SetDefault("tts_language", "en")

	v.SetEnvPrefix("GAMECOACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider keys keep their conventional names.
	v.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	v.BindEnv("tts_url", "GAMECOACH_TTS_URL")
	v.BindEnv("caption_url", "GAMECOACH_CAPTION_URL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

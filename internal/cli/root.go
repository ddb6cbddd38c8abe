// Package cli implements the gamecoach client commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gamecoach-ai/gamecoach/internal/logging"
)

// Config holds the client-side settings, loaded from
// ~/.config/gamecoach/config.json and GAMECOACH_* environment variables.
type Config struct {
	ServerURL string `mapstructure:"server_url"`
	Token     string `mapstructure:"token"`
	Model     string `mapstructure:"model"`
	LogLevel  string `mapstructure:"log_level"`
	LogFile   string `mapstructure:"log_file"`

	SampleRate       int     `mapstructure:"sample_rate"`
	SilenceThreshold float64 `mapstructure:"silence_threshold"`
	SilenceSeconds   float64 `mapstructure:"silence_seconds"`
	MinRecordSeconds float64 `mapstructure:"min_record_seconds"`
	MaxRecordSeconds float64 `mapstructure:"max_record_seconds"`
}

// Dependencies is shared by all commands, filled in before any command runs.
type Dependencies struct {
	Config *Config
	Log    *zap.Logger
}

// NewRootCmd builds the gamecoach command tree.
func NewRootCmd() *cobra.Command {
	deps := &Dependencies{}
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "gamecoach",
		Short:         "Ask an AI about the game on your screen",
		Long:          "gamecoach captures your screen, records a spoken question and asks an analysis server for advice.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			deps.Config = cfg
			deps.Log = log
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/gamecoach/config.json)")

	rootCmd.AddCommand(NewAskCmd(deps))
	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewModelsCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd())

	return rootCmd
}

func loadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server_url", "http://localhost:8700")
	v.SetDefault("log_level", "warn")
	v.SetDefault("sample_rate", 16000)
	v.SetDefault("silence_threshold", 0.01)
	v.SetDefault("silence_seconds", 2.0)
	v.SetDefault("min_record_seconds", 1.0)
	v.SetDefault("max_record_seconds", 30.0)

	v.SetEnvPrefix("GAMECOACH")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.SetConfigFile(filepath.Join(home, ".config", "gamecoach", "config.json"))
			if err := v.ReadInConfig(); err != nil {
				// A missing default config is fine.
				if _, ok := err.(*os.PathError); !ok && !os.IsNotExist(err) {
					return nil, fmt.Errorf("read config: %w", err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Package config loads service settings from environment variables and an
// optional config file via viper. All tunables of the alignment engine are
// configuration; nothing is hard-coded at call sites.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/forPelevin/shortcut/internal/ports/adapters/openrouter"
)

type Config struct {
	// Dirs.
	UploadDir string `mapstructure:"upload_dir"`
	OutputDir string `mapstructure:"output_dir"`
	CacheDir  string `mapstructure:"cache_dir"`

	// Alignment engine tunables.
	MinConfidence   float64       `mapstructure:"min_confidence"`
	WindowBuffer    int           `mapstructure:"window_buffer"`
	MinDuration     time.Duration `mapstructure:"min_duration"`
	MaxDuration     time.Duration `mapstructure:"max_duration"`
	ContextLookback time.Duration `mapstructure:"context_lookback"`
	MaxShorts       int           `mapstructure:"max_shorts"`

	// HTTP server.
	ListenAddr string `mapstructure:"listen_addr"`

	// External tools.
	FFmpegPath   string `mapstructure:"ffmpeg_path"`
	FFprobePath  string `mapstructure:"ffprobe_path"`
	WhisperBin   string `mapstructure:"whisper_bin"`
	WhisperModel string `mapstructure:"whisper_model"`

	// Semantic selector.
	OpenRouterAPIKey       string   `mapstructure:"openrouter_api_key"`
	OpenRouterModel        string   `mapstructure:"openrouter_model"`
	OpenRouterBaseURL      string   `mapstructure:"openrouter_base_url"`
	OpenRouterAllowedHosts []string `mapstructure:"openrouter_allowed_hosts"`
}

// Load reads configuration with SHORTCUT_-prefixed environment variables
// taking precedence over an optional config file (shortcut.yaml in the
// working directory or cfgFile when given).
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SHORTCUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("shortcut")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("output_dir", "outputs")
	v.SetDefault("cache_dir", ".cache")

	v.SetDefault("min_confidence", 0.6)
	v.SetDefault("window_buffer", 3)
	v.SetDefault("min_duration", 15*time.Second)
	v.SetDefault("max_duration", 60*time.Second)
	v.SetDefault("context_lookback", 10*time.Second)
	v.SetDefault("max_shorts", 5)

	v.SetDefault("listen_addr", ":8080")

	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("ffprobe_path", "ffprobe")
	v.SetDefault("whisper_bin", ".cache/bin/whisper.cpp")
	v.SetDefault("whisper_model", ".cache/models/ggml-base.bin")

	v.SetDefault("openrouter_model", "z-ai/glm-4.5-air:free")
	v.SetDefault("openrouter_base_url", "https://openrouter.ai")
}

func (c Config) Validate() error {
	if c.MinConfidence <= 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in (0, 1], got %v", c.MinConfidence)
	}
	if c.WindowBuffer < 0 {
		return fmt.Errorf("window_buffer must be >= 0, got %d", c.WindowBuffer)
	}
	if c.MinDuration <= 0 {
		return fmt.Errorf("min_duration must be > 0, got %v", c.MinDuration)
	}
	if c.MaxDuration <= 0 {
		return fmt.Errorf("max_duration must be > 0, got %v", c.MaxDuration)
	}
	if c.MinDuration > c.MaxDuration {
		return fmt.Errorf("min_duration %v must be <= max_duration %v", c.MinDuration, c.MaxDuration)
	}
	if c.ContextLookback < 0 {
		return fmt.Errorf("context_lookback must be >= 0, got %v", c.ContextLookback)
	}
	if c.WhisperModel == "" {
		return errors.New("whisper_model is required")
	}
	return openrouter.ValidateBaseURL(c.OpenRouterBaseURL, c.OpenRouterAllowedHosts)
}

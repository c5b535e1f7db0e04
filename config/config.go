// Package config loads hark's settings: defaults, then an optional YAML
// file, then environment overrides. Command-line flags are applied by main
// on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type TTSConfig struct {
	Engine     string `yaml:"engine"` // aura, command, fake
	Voice      string `yaml:"voice"`
	Command    string `yaml:"command"`
	SampleRate int    `yaml:"sample_rate"`
}

type Config struct {
	Provider         string        `yaml:"provider"`
	Language         string        `yaml:"language"`
	Device           string        `yaml:"device"`
	CaptureMode      string        `yaml:"capture_mode"`
	AvailabilityPoll time.Duration `yaml:"availability_poll"`
	Hotkey           string        `yaml:"hotkey"`
	TTS              TTSConfig     `yaml:"tts"`

	DeepgramKey string `yaml:"-"`
	GroqKey     string `yaml:"-"`
	OpenAIKey   string `yaml:"-"`
}

func Default() Config {
	return Config{
		Language:         "en",
		CaptureMode:      "measurement",
		AvailabilityPoll: 2 * time.Second,
		TTS: TTSConfig{
			Engine:     "aura",
			Voice:      "aura-2-thalia-en",
			SampleRate: 24000,
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/hark/config.yaml, falling back to the
// user config directory of the OS.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "hark", "config.yaml")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "hark", "config.yaml")
}

// Load reads path on top of the defaults. An explicit path must exist; the
// default location may be missing.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		case errors.Is(err, os.ErrNotExist):
			return cfg, fmt.Errorf("config file not found: %w", err)
		default:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEnv loads KEY=value pairs from a .env file into the process
// environment without overriding variables that are already set. A missing
// default .env is not an error.
func LoadEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Provider, "HARK_PROVIDER")
	overrideString(&cfg.Language, "HARK_LANGUAGE")
	overrideString(&cfg.Device, "HARK_DEVICE")
	overrideString(&cfg.CaptureMode, "HARK_CAPTURE_MODE")
	overrideDuration(&cfg.AvailabilityPoll, "HARK_AVAILABILITY_POLL")
	overrideString(&cfg.Hotkey, "HARK_HOTKEY")
	overrideString(&cfg.TTS.Engine, "HARK_TTS_ENGINE")
	overrideString(&cfg.TTS.Voice, "HARK_TTS_VOICE")
	overrideString(&cfg.TTS.Command, "HARK_TTS_COMMAND")
	overrideInt(&cfg.TTS.SampleRate, "HARK_TTS_SAMPLE_RATE")
	overrideString(&cfg.DeepgramKey, "DEEPGRAM_API_KEY")
	overrideString(&cfg.GroqKey, "GROQ_API_KEY")
	overrideString(&cfg.OpenAIKey, "OPENAI_API_KEY")
}

func overrideString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func overrideInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func overrideDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			*dst = d
		}
	}
}

func (c Config) Validate() error {
	switch c.Provider {
	case "", "deepgram", "groq", "openai", "fake":
	default:
		return fmt.Errorf("provider must be deepgram, groq, openai or fake (got %q)", c.Provider)
	}
	switch c.CaptureMode {
	case "", "default", "measurement":
	default:
		return fmt.Errorf("capture_mode must be default or measurement (got %q)", c.CaptureMode)
	}
	if c.AvailabilityPoll < 100*time.Millisecond {
		return fmt.Errorf("availability_poll must be at least 100ms (got %s)", c.AvailabilityPoll)
	}
	switch c.TTS.Engine {
	case "", "aura", "command", "fake":
	default:
		return fmt.Errorf("tts.engine must be aura, command or fake (got %q)", c.TTS.Engine)
	}
	if c.TTS.Engine == "command" && strings.TrimSpace(c.TTS.Command) == "" {
		return fmt.Errorf("tts.command is required when tts.engine is command")
	}
	if c.TTS.SampleRate <= 0 {
		return fmt.Errorf("tts.sample_rate must be positive")
	}
	return nil
}

// Package config resolves application settings from defaults, a .env file,
// the environment, an optional config file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Setting keys, as used in config files.
const (
	KeyChatsDir     = "chats_dir"
	KeyModel        = "model"
	KeyTemperature  = "temperature"
	KeySystemPrompt = "system_prompt"
	KeyAPIKey       = "api_key"
	KeyLogLevel     = "log_level"
	KeyLogFile      = "log_file"
)

const (
	DefaultChatsDir     = "chats"
	DefaultModel        = "gemini-2.5-flash"
	DefaultTemperature  = 0.5
	DefaultSystemPrompt = "You are a helpful and concise console assistant."
	DefaultLogLevel     = "INFO"
	DefaultLogFile      = "gemini-helper.log"
	DefaultEnvFile      = ".env"
)

var envNames = map[string]string{
	KeyChatsDir:     "CHATS_DIR",
	KeyModel:        "DEFAULT_MODEL",
	KeyTemperature:  "DEFAULT_TEMPERATURE",
	KeySystemPrompt: "DEFAULT_SYSTEM_PROMPT",
	KeyAPIKey:       "GEMINI_API_KEY",
	KeyLogLevel:     "LOG_LEVEL",
	KeyLogFile:      "LOG_FILE",
}

// flagNames maps command-line flags onto setting keys.
var flagNames = map[string]string{
	"chats-dir": KeyChatsDir,
	"model":     KeyModel,
	"log-level": KeyLogLevel,
}

// ErrInvalid is returned for settings that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the resolved settings.
type Config struct {
	ChatsDir     string
	Model        string
	Temperature  float64
	SystemPrompt string
	APIKey       string
	LogLevel     string
	LogFile      string
}

// Options tell Load where to look besides the environment.
type Options struct {
	// ConfigFile is read when set, in any format viper understands.
	ConfigFile string
	// EnvFile is loaded into the environment without overriding it.
	// Empty means DefaultEnvFile, which may be absent.
	EnvFile string
	// Flags are consulted for the flags that were set explicitly.
	Flags *pflag.FlagSet
}

// Load resolves the configuration. Flags win over the environment, which
// wins over the config file, which wins over defaults.
func Load(opts Options) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault(KeyChatsDir, DefaultChatsDir)
	v.SetDefault(KeyModel, DefaultModel)
	v.SetDefault(KeyTemperature, DefaultTemperature)
	v.SetDefault(KeySystemPrompt, DefaultSystemPrompt)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFile, DefaultLogFile)

	for key, env := range envNames {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
		slog.Debug("Config file loaded", "path", v.ConfigFileUsed())
	}

	if opts.Flags != nil {
		for name, key := range flagNames {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}

	temperature, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(v.Get(KeyTemperature))), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: temperature %q is not a number", ErrInvalid, fmt.Sprint(v.Get(KeyTemperature)))
	}

	cfg := &Config{
		ChatsDir:     v.GetString(KeyChatsDir),
		Model:        v.GetString(KeyModel),
		Temperature:  temperature,
		SystemPrompt: v.GetString(KeySystemPrompt),
		APIKey:       v.GetString(KeyAPIKey),
		LogLevel:     strings.ToUpper(v.GetString(KeyLogLevel)),
		LogFile:      v.GetString(KeyLogFile),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have a restricted range.
func (c *Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("%w: temperature %v outside [0.0, 1.0]", ErrInvalid, c.Temperature)
	}
	if c.ChatsDir == "" {
		return fmt.Errorf("%w: chats directory is empty", ErrInvalid)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is empty", ErrInvalid)
	}
	return nil
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	slog.Debug("Env file loaded", "path", path)
	return nil
}

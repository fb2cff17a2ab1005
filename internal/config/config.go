// Configuration
//
// Loads bridge, browser, control socket and logger settings through viper.
// Values come from defaults, an optional config.yaml, WDBRIDGE_* environment
// variables and the legacy webdriver.chrome.bin variable.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvChromeBinary overrides browser binary discovery when set.
const EnvChromeBinary = "webdriver.chrome.bin"

// EnvPrefix is the prefix for environment overrides (WDBRIDGE_BRIDGE_PORT...).
const EnvPrefix = "WDBRIDGE"

// Config is the root configuration.
type Config struct {
	Bridge  BridgeConfig  `mapstructure:"bridge"`
	Chrome  ChromeConfig  `mapstructure:"chrome"`
	Control ControlConfig `mapstructure:"control"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

// BridgeConfig holds the extension listener settings.
type BridgeConfig struct {
	Port    int           `mapstructure:"port"`
	Backlog int           `mapstructure:"backlog"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChromeConfig holds browser launch settings.
type ChromeConfig struct {
	Binary       string   `mapstructure:"binary"`
	Args         []string `mapstructure:"args"`
	ExtensionDir string   `mapstructure:"extension_dir"`
	ProfileDir   string   `mapstructure:"profile_dir"`
	Launch       bool     `mapstructure:"launch"`
}

// ControlConfig holds the local client socket settings.
type ControlConfig struct {
	Socket string `mapstructure:"socket"`
}

// CatalogConfig points at an optional YAML command catalog.
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults registers default values so the bridge runs without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bridge.port", 1234)
	v.SetDefault("bridge.backlog", 4)
	v.SetDefault("bridge.timeout", 5*time.Second)

	v.SetDefault("chrome.binary", "")
	v.SetDefault("chrome.args", []string{})
	v.SetDefault("chrome.extension_dir", "")
	v.SetDefault("chrome.profile_dir", "")
	v.SetDefault("chrome.launch", true)

	v.SetDefault("control.socket", "/tmp/webdriver-bridge.sock")
	v.SetDefault("catalog.file", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "webdriver-bridge")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
}

// Setup wires file search paths and environment lookup into v.
// An empty path searches ./config.yaml.
func Setup(v *viper.Viper, path string) error {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// Load unmarshals v into a Config, applies the legacy binary override and
// validates the result.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// The dotted name cannot go through the env key replacer.
	if bin, ok := os.LookupEnv(EnvChromeBinary); ok && strings.TrimSpace(bin) != "" {
		cfg.Chrome.Binary = strings.TrimSpace(bin)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the bridge cannot run with.
func (c *Config) Validate() error {
	if c.Bridge.Port < 0 || c.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port must be between 0 and 65535, got %d", c.Bridge.Port)
	}
	if c.Bridge.Backlog <= 0 {
		return fmt.Errorf("bridge.backlog must be positive, got %d", c.Bridge.Backlog)
	}
	if c.Bridge.Timeout <= 0 {
		return fmt.Errorf("bridge.timeout must be positive, got %s", c.Bridge.Timeout)
	}
	if c.Control.Socket == "" {
		return errors.New("control.socket must not be empty")
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	return nil
}

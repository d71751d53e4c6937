package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the typed view of the stagehand configuration file.
type Config struct {
	Database struct {
		Type string `mapstructure:"type" yaml:"type"`
		DSN  string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"database" yaml:"database"`
	Language string `mapstructure:"language" yaml:"language"`
	Cert     struct {
		Dir        string   `mapstructure:"dir" yaml:"dir"`
		CommonName string   `mapstructure:"common_name" yaml:"common_name"`
		Hosts      []string `mapstructure:"hosts" yaml:"hosts"`
		Days       int      `mapstructure:"days" yaml:"days"`
		Algorithm  string   `mapstructure:"algorithm" yaml:"algorithm"`
	} `mapstructure:"cert" yaml:"cert"`
	Env struct {
		Dir          string `mapstructure:"dir" yaml:"dir"`
		Python       string `mapstructure:"python" yaml:"python"`
		Requirements string `mapstructure:"requirements" yaml:"requirements"`
	} `mapstructure:"env" yaml:"env"`
	Check struct {
		Manifest string `mapstructure:"manifest" yaml:"manifest"`
	} `mapstructure:"check" yaml:"check"`
	Server struct {
		Address    string `mapstructure:"address" yaml:"address"`
		Port       int    `mapstructure:"port" yaml:"port"`
		HealthPath string `mapstructure:"health_path" yaml:"health_path"`
	} `mapstructure:"server" yaml:"server"`
}

// Defaults returns the default settings keyed the way viper expects them.
// The fixed endpoint values mirror the local S3 server the bench targets.
func Defaults() map[string]any {
	return map[string]any{
		"database.type":      "sqlite",
		"database.dsn":       "./stagehand.db",
		"language":           "en",
		"cert.dir":           ".",
		"cert.common_name":   "localhost",
		"cert.hosts":         []string{"localhost", "127.0.0.1", "::1"},
		"cert.days":          365,
		"cert.algorithm":     "ecdsa",
		"env.dir":            "./.venv",
		"env.python":         "python3",
		"env.requirements":   "requirements.txt",
		"check.manifest":     "verification.yaml",
		"server.address":     "127.0.0.1",
		"server.port":        8000,
		"server.health_path": "healthz",
	}
}

// getConfigPath returns the full path for the configuration file.
func getConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Stagehand")
		default: // Linux, macOS, etc.
			configDir = "/etc/stagehand"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "stagehand")
	}

	return filepath.Join(configDir, "stagehand.yaml"), nil
}

// LoadConfig assembles the configuration from defaults, the config file
// search path, environment variables (STAGEHAND_*), and the command's bound
// flags, in ascending precedence.
func LoadConfig(cmd *cobra.Command, defaults map[string]any, explicitFile *string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("stagehand")
	v.SetConfigType("yaml")

	// An explicit --config file has the highest precedence for file-based
	// configuration.
	if explicitFile != nil && *explicitFile != "" {
		v.SetConfigFile(*explicitFile)
	}

	if userConfigPath, err := getConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := getConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; anything else is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}
	fileUsed = v.ConfigFileUsed()

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("stagehand")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}

var fileUsed string

// FileUsed reports the config file the last LoadConfig read, or "" when the
// configuration came from defaults, environment and flags alone.
func FileUsed() string {
	return fileUsed
}

// WriteConfigFile persists the configuration to the user or system location.
func WriteConfigFile(c *Config, system bool) error {
	path, err := getConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the DSN may contain credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	DefaultShellTimeout  = 120 * time.Second
	DefaultShellGrace    = 2 * time.Second
	DefaultMaxLines      = 2000
	DefaultMaxBytes      = 64 * 1024
	DefaultShellMaxBytes = 50 * 1024
	DefaultSimilarity    = 0.95
)

// ToolLimits controls max output sizes for tools.
type ToolLimits struct {
	MaxLines      int `mapstructure:"max_lines"`
	MaxBytes      int `mapstructure:"max_bytes"`
	ShellMaxBytes int `mapstructure:"shell_max_bytes"`
}

// Config holds runtime configuration values.
type Config struct {
	Workspace       string
	Quiet           bool
	Verbose         bool
	LogFile         string
	ShellTimeout    time.Duration
	ShellGrace      time.Duration
	EditSimilarity  float64
	PluginDir       string
	PermissionRules map[string]any
	PermissionsFile string
	ToolLimits      ToolLimits
}

type rawConfig struct {
	Workspace       string         `mapstructure:"workspace"`
	Quiet           bool           `mapstructure:"quiet"`
	Verbose         bool           `mapstructure:"verbose"`
	LogFile         string         `mapstructure:"log_file"`
	ShellTimeout    string         `mapstructure:"shell_timeout"`
	ShellGrace      string         `mapstructure:"shell_grace"`
	EditSimilarity  float64        `mapstructure:"edit_similarity"`
	PluginDir       string         `mapstructure:"plugin_dir"`
	PermissionRules map[string]any `mapstructure:"permissions"`
	ToolLimits      ToolLimits     `mapstructure:"tool_limits"`
}

// Load resolves configuration from defaults, config files, env, and flags.
func Load(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOOLRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("workspace", ".")
	v.SetDefault("quiet", false)
	v.SetDefault("verbose", false)
	v.SetDefault("log_file", "")
	v.SetDefault("shell_timeout", DefaultShellTimeout.String())
	v.SetDefault("shell_grace", DefaultShellGrace.String())
	v.SetDefault("edit_similarity", DefaultSimilarity)
	v.SetDefault("plugin_dir", defaultPluginDir())
	v.SetDefault("tool_limits.max_lines", DefaultMaxLines)
	v.SetDefault("tool_limits.max_bytes", DefaultMaxBytes)
	v.SetDefault("tool_limits.shell_max_bytes", DefaultShellMaxBytes)

	if cmd != nil {
		_ = v.BindPFlag("workspace", cmd.Flags().Lookup("workspace"))
		_ = v.BindPFlag("quiet", cmd.Flags().Lookup("quiet"))
		_ = v.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
		_ = v.BindPFlag("log_file", cmd.Flags().Lookup("log-file"))
		_ = v.BindPFlag("shell_timeout", cmd.Flags().Lookup("shell-timeout"))
		_ = v.BindPFlag("plugin_dir", cmd.Flags().Lookup("plugin-dir"))
	}

	if seconds := os.Getenv("TOOLRUN_SHELL_TIMEOUT_SECONDS"); seconds != "" {
		v.Set("shell_timeout", seconds+"s")
	}

	permissionsFile, err := loadConfigFile(v)
	if err != nil {
		return Config{}, err
	}

	var raw rawConfig
	decoder, _ := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "mapstructure", Result: &raw})
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return Config{}, err
	}

	shellTimeout := DefaultShellTimeout
	if raw.ShellTimeout != "" {
		parsed, err := time.ParseDuration(raw.ShellTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid shell_timeout duration: %w", err)
		}
		shellTimeout = parsed
	}
	shellGrace := DefaultShellGrace
	if raw.ShellGrace != "" {
		parsed, err := time.ParseDuration(raw.ShellGrace)
		if err != nil {
			return Config{}, fmt.Errorf("invalid shell_grace duration: %w", err)
		}
		shellGrace = parsed
	}

	cfg := Config{
		Workspace:       raw.Workspace,
		Quiet:           raw.Quiet,
		Verbose:         raw.Verbose,
		LogFile:         raw.LogFile,
		ShellTimeout:    shellTimeout,
		ShellGrace:      shellGrace,
		EditSimilarity:  raw.EditSimilarity,
		PluginDir:       raw.PluginDir,
		PermissionRules: raw.PermissionRules,
		PermissionsFile: permissionsFile,
		ToolLimits:      raw.ToolLimits,
	}

	if cfg.Workspace == "" {
		cfg.Workspace = "."
	}
	if cfg.ShellTimeout <= 0 {
		cfg.ShellTimeout = DefaultShellTimeout
	}
	if cfg.ShellGrace <= 0 {
		cfg.ShellGrace = DefaultShellGrace
	}
	if cfg.EditSimilarity <= 0 || cfg.EditSimilarity > 1 {
		cfg.EditSimilarity = DefaultSimilarity
	}
	if cfg.ToolLimits.MaxLines <= 0 {
		cfg.ToolLimits.MaxLines = DefaultMaxLines
	}
	if cfg.ToolLimits.MaxBytes <= 0 {
		cfg.ToolLimits.MaxBytes = DefaultMaxBytes
	}
	if cfg.ToolLimits.ShellMaxBytes <= 0 {
		cfg.ToolLimits.ShellMaxBytes = DefaultShellMaxBytes
	}

	return cfg, nil
}

func defaultPluginDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, "toolrun", "plugins")
}

// loadConfigFile reads the first config file found and returns its path so
// the permission watcher can follow it.
func loadConfigFile(v *viper.Viper) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", nil
	}
	base := filepath.Join(configDir, "toolrun")
	candidates := []string{
		filepath.Join(base, "config.yaml"),
		filepath.Join(base, "config.yml"),
		filepath.Join(base, "config.json"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return "", err
			}
			return path, nil
		}
	}
	return "", nil
}

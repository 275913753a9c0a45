package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	viper "github.com/spf13/viper"
	yaml "gopkg.in/yaml.v3"
)

const (
	// ConfigDirName is the per-project configuration directory
	ConfigDirName = ".modui"
	// ConfigFileName is the configuration file inside ConfigDirName
	ConfigFileName = "config.yaml"
	// EnvPrefix prefixes every environment override, e.g. MODUI_SOURCE_BACKEND
	EnvPrefix = "MODUI"
)

// DefaultConfigPath is the project configuration path relative to the working directory
var DefaultConfigPath = filepath.Join(ConfigDirName, ConfigFileName)

// Backend names accepted by source.backend
const (
	BackendAuto     = "auto"
	BackendTerminal = "terminal"
	BackendX11      = "x11"
	BackendScript   = "script"
)

// Config represents the modui configuration
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	Dispatch DispatchConfig `yaml:"dispatch" mapstructure:"dispatch"`
	Modules  ModulesConfig  `yaml:"modules" mapstructure:"modules"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// SourceConfig selects and configures the event source
type SourceConfig struct {
	Backend  string         `yaml:"backend" mapstructure:"backend"`
	Terminal TerminalConfig `yaml:"terminal" mapstructure:"terminal"`
	X11      X11Config      `yaml:"x11" mapstructure:"x11"`
	Script   ScriptConfig   `yaml:"script" mapstructure:"script"`
}

// TerminalConfig configures the terminal backend
type TerminalConfig struct {
	AltScreen   bool `yaml:"alt_screen" mapstructure:"alt_screen"`
	Mouse       bool `yaml:"mouse" mapstructure:"mouse"`
	ReportFocus bool `yaml:"report_focus" mapstructure:"report_focus"`
	FPS         int  `yaml:"fps" mapstructure:"fps"`
}

// X11Config configures the X11 backend
type X11Config struct {
	Display string `yaml:"display" mapstructure:"display"`
	Width   int    `yaml:"width" mapstructure:"width"`
	Height  int    `yaml:"height" mapstructure:"height"`
	Title   string `yaml:"title" mapstructure:"title"`
}

// ScriptConfig configures the scripted backend
type ScriptConfig struct {
	Path  string        `yaml:"path" mapstructure:"path"`
	Delay time.Duration `yaml:"delay" mapstructure:"delay"`
}

// DispatchConfig contains event loop options
type DispatchConfig struct {
	ExitOnError bool `yaml:"exit_on_error" mapstructure:"exit_on_error"`
}

// ModulesConfig lists enabled modules in dispatch order plus their settings
type ModulesConfig struct {
	Enabled   []string        `yaml:"enabled" mapstructure:"enabled"`
	Keymap    KeymapConfig    `yaml:"keymap" mapstructure:"keymap"`
	Status    StatusConfig    `yaml:"status" mapstructure:"status"`
	Journal   JournalConfig   `yaml:"journal" mapstructure:"journal"`
	Broadcast BroadcastConfig `yaml:"broadcast" mapstructure:"broadcast"`
	Mirror    MirrorConfig    `yaml:"mirror" mapstructure:"mirror"`
}

// KeymapConfig maps key names to actions
type KeymapConfig struct {
	Bindings    map[string]string `yaml:"bindings" mapstructure:"bindings"`
	QuitOnClose bool              `yaml:"quit_on_close" mapstructure:"quit_on_close"`
}

// StatusConfig styles the status line
type StatusConfig struct {
	Foreground string `yaml:"foreground" mapstructure:"foreground"`
	Background string `yaml:"background" mapstructure:"background"`
}

// JournalConfig configures event persistence. DSN is a file path for
// sqlite, a connection string for postgres and a redis:// URL for redis.
type JournalConfig struct {
	Driver         string        `yaml:"driver" mapstructure:"driver"`
	DSN            string        `yaml:"dsn" mapstructure:"dsn"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
}

// BroadcastConfig configures Redis fan-out
type BroadcastConfig struct {
	Addr       string        `yaml:"addr" mapstructure:"addr"`
	Password   string        `yaml:"password" mapstructure:"password"`
	DB         int           `yaml:"db" mapstructure:"db"`
	Channel    string        `yaml:"channel" mapstructure:"channel"`
	MaxElapsed time.Duration `yaml:"max_elapsed" mapstructure:"max_elapsed"`
}

// MirrorConfig configures the websocket mirror
type MirrorConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
	Path string `yaml:"path" mapstructure:"path"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "json",
			File:   filepath.Join(ConfigDirName, "logs", "modui.log"),
		},
		Source: SourceConfig{
			Backend: BackendAuto,
			Terminal: TerminalConfig{
				AltScreen:   true,
				Mouse:       false,
				ReportFocus: false,
				FPS:         60,
			},
			X11: X11Config{
				Width:  640,
				Height: 480,
				Title:  "modui",
			},
			Script: ScriptConfig{
				Delay: 0,
			},
		},
		Dispatch: DispatchConfig{
			ExitOnError: false,
		},
		Modules: ModulesConfig{
			Enabled: []string{"keymap", "trace", "status"},
			Keymap: KeymapConfig{
				Bindings: map[string]string{
					"ctrl+c": "quit",
					"q":      "quit",
					"esc":    "quit",
				},
				QuitOnClose: true,
			},
			Status: StatusConfig{
				Foreground: "#FAFAFA",
				Background: "#7D56F4",
			},
			Journal: JournalConfig{
				Driver:         "sqlite",
				DSN:            filepath.Join(ConfigDirName, "journal.db"),
				ConnectTimeout: 10 * time.Second,
			},
			Broadcast: BroadcastConfig{
				Addr:       "localhost:6379",
				Channel:    "modui.events",
				MaxElapsed: 5 * time.Second,
			},
			Mirror: MirrorConfig{
				Addr: "127.0.0.1:7681",
				Path: "/events",
			},
		},
	}
}

// SetDefaults registers every default value on v so env overrides resolve
// for keys absent from the config file
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("source.backend", d.Source.Backend)
	v.SetDefault("source.terminal.alt_screen", d.Source.Terminal.AltScreen)
	v.SetDefault("source.terminal.mouse", d.Source.Terminal.Mouse)
	v.SetDefault("source.terminal.report_focus", d.Source.Terminal.ReportFocus)
	v.SetDefault("source.terminal.fps", d.Source.Terminal.FPS)
	v.SetDefault("source.x11.display", d.Source.X11.Display)
	v.SetDefault("source.x11.width", d.Source.X11.Width)
	v.SetDefault("source.x11.height", d.Source.X11.Height)
	v.SetDefault("source.x11.title", d.Source.X11.Title)
	v.SetDefault("source.script.path", d.Source.Script.Path)
	v.SetDefault("source.script.delay", d.Source.Script.Delay)
	v.SetDefault("dispatch.exit_on_error", d.Dispatch.ExitOnError)
	v.SetDefault("modules.enabled", d.Modules.Enabled)
	v.SetDefault("modules.keymap.bindings", d.Modules.Keymap.Bindings)
	v.SetDefault("modules.keymap.quit_on_close", d.Modules.Keymap.QuitOnClose)
	v.SetDefault("modules.status.foreground", d.Modules.Status.Foreground)
	v.SetDefault("modules.status.background", d.Modules.Status.Background)
	v.SetDefault("modules.journal.driver", d.Modules.Journal.Driver)
	v.SetDefault("modules.journal.dsn", d.Modules.Journal.DSN)
	v.SetDefault("modules.journal.connect_timeout", d.Modules.Journal.ConnectTimeout)
	v.SetDefault("modules.broadcast.addr", d.Modules.Broadcast.Addr)
	v.SetDefault("modules.broadcast.password", d.Modules.Broadcast.Password)
	v.SetDefault("modules.broadcast.db", d.Modules.Broadcast.DB)
	v.SetDefault("modules.broadcast.channel", d.Modules.Broadcast.Channel)
	v.SetDefault("modules.broadcast.max_elapsed", d.Modules.Broadcast.MaxElapsed)
	v.SetDefault("modules.mirror.addr", d.Modules.Mirror.Addr)
	v.SetDefault("modules.mirror.path", d.Modules.Mirror.Path)
}

// NewViper returns a viper instance configured with defaults, the config file
// at path (when it exists) and MODUI_* environment overrides
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	return v, nil
}

// FromViper decodes and validates the configuration held by v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load loads configuration from path, falling back to defaults for missing keys
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid logging.format %q (must be json or console)", c.Logging.Format)
	}

	switch c.Source.Backend {
	case BackendAuto, BackendTerminal, BackendX11:
	case BackendScript:
		if c.Source.Script.Path == "" {
			return fmt.Errorf("source.script.path is required for the script backend")
		}
	default:
		return fmt.Errorf("invalid source.backend %q", c.Source.Backend)
	}
	if c.Source.Terminal.FPS < 0 || c.Source.Terminal.FPS > 120 {
		return fmt.Errorf("source.terminal.fps must be between 0 and 120, got %d", c.Source.Terminal.FPS)
	}
	if c.Source.X11.Width <= 0 || c.Source.X11.Height <= 0 {
		return fmt.Errorf("source.x11 width and height must be positive")
	}
	if c.Source.X11.Width > math.MaxUint16 || c.Source.X11.Height > math.MaxUint16 {
		return fmt.Errorf("source.x11 width and height must not exceed %d", math.MaxUint16)
	}
	if c.Source.Script.Delay < 0 {
		return fmt.Errorf("source.script.delay must not be negative")
	}

	seen := make(map[string]bool, len(c.Modules.Enabled))
	for _, name := range c.Modules.Enabled {
		if seen[name] {
			return fmt.Errorf("module %q enabled more than once", name)
		}
		seen[name] = true
	}
	if slices.Contains(c.Modules.Enabled, "journal") {
		switch c.Modules.Journal.Driver {
		case "sqlite", "postgres", "redis", "memory":
		default:
			return fmt.Errorf("invalid modules.journal.driver %q (must be sqlite, postgres, redis or memory)", c.Modules.Journal.Driver)
		}
	}
	return nil
}

// GetConfigPath resolves the configuration file path. An explicit path wins,
// otherwise the project file is used, then the user file under $HOME.
func GetConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ConfigDirName, ConfigFileName)
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	return DefaultConfigPath
}

// Write encodes cfg as YAML with the given indentation and writes it to path
func Write(path string, cfg *Config, indent int) error {
	var buf bytes.Buffer
	yamlEncoder := yaml.NewEncoder(&buf)
	yamlEncoder.SetIndent(indent)

	if err := yamlEncoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := yamlEncoder.Close(); err != nil {
		return fmt.Errorf("failed to close YAML encoder: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// WriteViper persists the values held by v to the file it was loaded from
func WriteViper(v *viper.Viper, indent int) error {
	filename := v.ConfigFileUsed()
	if filename == "" {
		return fmt.Errorf("no config file is currently being used")
	}

	cfg, err := FromViper(v)
	if err != nil {
		return err
	}

	return Write(filename, cfg, indent)
}

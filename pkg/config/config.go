// Package config provides YAML-based configuration loading for the CoSimIO binaries.
package config

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
    AppName     string             `mapstructure:"app_name"`
    Log         LogConfig          `mapstructure:"log"`
    Metrics     MetricsConfig      `mapstructure:"metrics"`
    // Connections are looked up by name when a binary connects.
    Connections []ConnectionConfig `mapstructure:"connections"`
}

// LogConfig defines logger settings.
type LogConfig struct {
    Level       string         `mapstructure:"level"`   // debug, info, warn, error
    Format      string         `mapstructure:"format"`  // console or json
    Outputs     []string       `mapstructure:"outputs"` // stdout, stderr or file paths
    Rotation    RotationConfig `mapstructure:"rotation"`
    Development bool           `mapstructure:"development"`
}

// RotationConfig routes file outputs through lumberjack when enabled.
type RotationConfig struct {
    Enable     bool   `mapstructure:"enable"`
    Filename   string `mapstructure:"filename"`
    MaxSizeMB  int    `mapstructure:"max_size_mb"`
    MaxBackups int    `mapstructure:"max_backups"`
    MaxAgeDays int    `mapstructure:"max_age_days"`
    Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig serves the prometheus registry on Listen when Enable is set.
type MetricsConfig struct {
    Enable bool   `mapstructure:"enable"`
    Listen string `mapstructure:"listen"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
    return &Config{
        AppName: "cosimio",
        Log: LogConfig{
            Level:       "info",
            Format:      "console",
            Outputs:     []string{"stderr"},
            Development: true,
            Rotation: RotationConfig{
                Enable:     false,
                Filename:   "logs/cosimio.log",
                MaxSizeMB:  50,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
        Metrics: MetricsConfig{Listen: ":9464"},
    }
}

// EnvPrefix prefixes environment overrides: COSIMIO_LOG_LEVEL=debug sets log.level.
const EnvPrefix = "COSIMIO"

// defaults flattens Default() into viper keys so env-only setups see them.
func defaults() map[string]any {
    d := Default()
    return map[string]any{
        "app_name":                  d.AppName,
        "log.level":                 d.Log.Level,
        "log.format":                d.Log.Format,
        "log.outputs":               d.Log.Outputs,
        "log.development":           d.Log.Development,
        "log.rotation.enable":       d.Log.Rotation.Enable,
        "log.rotation.filename":     d.Log.Rotation.Filename,
        "log.rotation.max_size_mb":  d.Log.Rotation.MaxSizeMB,
        "log.rotation.max_backups":  d.Log.Rotation.MaxBackups,
        "log.rotation.max_age_days": d.Log.Rotation.MaxAgeDays,
        "log.rotation.compress":     d.Log.Rotation.Compress,
        "metrics.enable":            d.Metrics.Enable,
        "metrics.listen":            d.Metrics.Listen,
    }
}

func newViper() *viper.Viper {
    v := viper.New()
    v.SetConfigType("yaml")
    v.SetEnvPrefix(EnvPrefix)
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()
    for k, val := range defaults() { v.SetDefault(k, val) }
    return v
}

// locate points v at path, at $COSIMIO_CONFIG, or at cosimio.yaml in the
// working directory, ./configs or ~/.cosimio.
func locate(v *viper.Viper, path string) {
    if path == "" { path = os.Getenv(EnvPrefix + "_CONFIG") }
    if path != "" {
        v.SetConfigFile(path)
        return
    }
    v.SetConfigName("cosimio")
    v.AddConfigPath(".")
    v.AddConfigPath("./configs")
    if home, err := os.UserHomeDir(); err == nil { v.AddConfigPath(filepath.Join(home, ".cosimio")) }
}

// Load reads the configuration at path. Without a path it searches the usual
// places; a missing file leaves defaults and environment overrides in effect.
func Load(path string) (*Config, error) {
    v := newViper()
    locate(v, path)
    if err := v.ReadInConfig(); err != nil {
        var notFound viper.ConfigFileNotFoundError
        if !errors.As(err, &notFound) { return nil, fmt.Errorf("read config: %w", err) }
    }
    cfg := Default()
    if err := v.Unmarshal(cfg); err != nil { return nil, fmt.Errorf("decode config: %w", err) }
    if err := cfg.validate(); err != nil { return nil, err }
    return cfg, nil
}

func (c *Config) validate() error {
    switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
    case "debug", "info", "warn", "warning", "error":
    default:
        return fmt.Errorf("invalid log.level: %q", c.Log.Level)
    }
    if c.Log.Format == "" { c.Log.Format = "console" }
    if len(c.Log.Outputs) == 0 { c.Log.Outputs = []string{"stderr"} }

    seen := make(map[string]bool, len(c.Connections))
    for i := range c.Connections {
        cc := &c.Connections[i]
        cc.Format = strings.ToLower(strings.TrimSpace(cc.Format))
        if cc.Name == "" { return fmt.Errorf("connections[%d]: missing connection_name", i) }
        if seen[cc.Name] { return fmt.Errorf("connections[%d]: duplicate connection_name %q", i, cc.Name) }
        seen[cc.Name] = true
    }
    return nil
}

// Connection returns the configured connection called name.
func (c *Config) Connection(name string) (ConnectionConfig, bool) {
    for _, cc := range c.Connections {
        if cc.Name == name { return cc, true }
    }
    return ConnectionConfig{}, false
}

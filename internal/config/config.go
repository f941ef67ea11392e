// Package config loads the service configuration from configs/config.yml,
// GRIDREPLAY_* environment variables and an optional battery profile.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gridreplay/internal/engine"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "gridreplay"

type Config struct {
	Port     string         `mapstructure:"port"`
	DB       DBConfig       `mapstructure:"db"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Playback PlaybackConfig `mapstructure:"playback"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// EngineConfig holds the classifier parameters. Zero values fall back to the
// battery profile, then to engine.DefaultConfig.
type EngineConfig struct {
	engine.Config `mapstructure:",squash"`
	BatteryFile   string `mapstructure:"battery_file"`
}

type PlaybackConfig struct {
	Tick            time.Duration `mapstructure:"tick"`
	DefaultInterval time.Duration `mapstructure:"default_interval"`
	MinInterval     time.Duration `mapstructure:"min_interval"`
}

type MQTTConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	BaseTopic string `mapstructure:"base_topic"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// engineKeys are bound to env explicitly since they carry no viper default.
var engineKeys = []string{
	"engine.battery_capacity_kwh",
	"engine.slice_seconds",
	"engine.low_battery_percent",
	"engine.efficiency_loss_per_cycle",
	"engine.battery_file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "gridreplay.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("playback.tick", 100*time.Millisecond)
	v.SetDefault("playback.default_interval", time.Second)
	v.SetDefault("playback.min_interval", 50*time.Millisecond)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.base_topic", "gridreplay")
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load reads the config file at path. With an empty path it looks for
// configs/config.yml and tolerates its absence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range engineKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	base := engine.DefaultConfig()
	if cfg.Engine.BatteryFile != "" {
		profile, err := LoadBatteryProfile(resolveRelative(cfg.Engine.BatteryFile, v.ConfigFileUsed()))
		if err != nil {
			return nil, err
		}
		base = MergeEngine(base, profile.Engine())
	}
	cfg.Engine.Config = MergeEngine(base, cfg.Engine.Config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		return errors.New("auth.signing_key is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be > 0")
	}
	if err := c.Engine.Config.Validate(); err != nil {
		return fmt.Errorf("engine config invalid: %w", err)
	}
	if c.Playback.Tick <= 0 {
		return errors.New("playback.tick must be > 0")
	}
	if c.Playback.MinInterval <= 0 || c.Playback.DefaultInterval < c.Playback.MinInterval {
		return errors.New("playback intervals must satisfy 0 < min_interval <= default_interval")
	}
	if c.MQTT.Enabled && (c.MQTT.Host == "" || c.MQTT.Port <= 0) {
		return errors.New("mqtt.host and mqtt.port are required when mqtt.enabled")
	}
	return nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	c.Auth.SigningKey = "*redacted*"
	if c.MQTT.Password != "" {
		c.MQTT.Password = "*redacted*"
	}
	return c
}

// BatteryProfile is the on-disk shape of engine.battery_file.
type BatteryProfile struct {
	Battery struct {
		Name                   string  `yaml:"name"`
		CapacityKWh            float64 `yaml:"capacity_kwh"`
		LowBatteryPercent      float64 `yaml:"low_battery_percent"`
		EfficiencyLossPerCycle float64 `yaml:"efficiency_loss_per_cycle"`
	} `yaml:"battery"`
	SliceSeconds float64 `yaml:"slice_seconds"`
}

func (p BatteryProfile) Engine() engine.Config {
	return engine.Config{
		BatteryCapacityKWh:     p.Battery.CapacityKWh,
		SliceSeconds:           p.SliceSeconds,
		LowBatteryPercent:      p.Battery.LowBatteryPercent,
		EfficiencyLossPerCycle: p.Battery.EfficiencyLossPerCycle,
	}
}

func LoadBatteryProfile(path string) (BatteryProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BatteryProfile{}, fmt.Errorf("read battery profile: %w", err)
	}
	var p BatteryProfile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return BatteryProfile{}, fmt.Errorf("parse battery profile %q: %w", path, err)
	}
	return p, nil
}

// MergeEngine overlays non-zero fields from override onto base.
func MergeEngine(base, override engine.Config) engine.Config {
	out := base
	if override.BatteryCapacityKWh != 0 {
		out.BatteryCapacityKWh = override.BatteryCapacityKWh
	}
	if override.SliceSeconds != 0 {
		out.SliceSeconds = override.SliceSeconds
	}
	if override.LowBatteryPercent != 0 {
		out.LowBatteryPercent = override.LowBatteryPercent
	}
	if override.EfficiencyLossPerCycle != 0 {
		out.EfficiencyLossPerCycle = override.EfficiencyLossPerCycle
	}
	return out
}

// resolveRelative prefers a path relative to the config file's directory.
func resolveRelative(p, configFile string) string {
	if filepath.IsAbs(p) || configFile == "" {
		return p
	}
	cand := filepath.Join(filepath.Dir(configFile), p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

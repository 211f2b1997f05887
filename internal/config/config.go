package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"tuss-cogs/internal/game"
)

// EnvPrefix prefixes every environment override, e.g. TUSS_SERVER_ADDR.
const EnvPrefix = "TUSS"

const devSecret = "tuss-dev-secret"

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

type LevelsConfig struct {
	Dir      string        `mapstructure:"dir"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type GameConfig struct {
	PhaseInterval    time.Duration `mapstructure:"phase_interval"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	BaseHP           int           `mapstructure:"base_hp"`
	StartCoins       int           `mapstructure:"start_coins"`
	FirstWaveCoinCap int           `mapstructure:"first_wave_coin_cap"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
	File   string `mapstructure:"file"`   // Rotated log file; stdout only when empty
}

// Config is the full server configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Data   DataConfig   `mapstructure:"data"`
	Levels LevelsConfig `mapstructure:"levels"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Game   GameConfig   `mapstructure:"game"`
	Log    LogConfig    `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("data.dir", "data/players")
	v.SetDefault("levels.dir", "levels")
	v.SetDefault("levels.cache_ttl", 10*time.Minute)
	v.SetDefault("auth.jwt_secret", devSecret)
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	d := game.DefaultSettings()
	v.SetDefault("game.phase_interval", d.PhaseInterval)
	v.SetDefault("game.tick_interval", d.TickInterval)
	v.SetDefault("game.base_hp", d.BaseHP)
	v.SetDefault("game.start_coins", d.StartCoins)
	v.SetDefault("game.first_wave_coin_cap", d.FirstWaveCoinCap)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Load reads .env (if any), then the optional config file at path, then
// TUSS_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Game.PhaseInterval <= 0:
		return errors.New("game.phase_interval must be positive")
	case c.Game.TickInterval <= 0:
		return errors.New("game.tick_interval must be positive")
	case c.Game.BaseHP <= 0:
		return errors.New("game.base_hp must be positive")
	case c.Game.StartCoins < 0:
		return errors.New("game.start_coins must not be negative")
	case len(c.Server.AllowedOrigins) == 0:
		return errors.New("server.allowed_origins must not be empty")
	case c.Auth.JWTSecret == "":
		return errors.New("auth.jwt_secret is required")
	case c.Auth.TokenTTL <= 0:
		return errors.New("auth.token_ttl must be positive")
	}
	return nil
}

// DevSecret reports whether the JWT secret is still the built-in default.
func (c *Config) DevSecret() bool {
	return c.Auth.JWTSecret == devSecret
}

// GameSettings derives engine settings from the game section.
func (c *Config) GameSettings() game.Settings {
	s := game.DefaultSettings()
	s.PhaseInterval = c.Game.PhaseInterval
	s.TickInterval = c.Game.TickInterval
	s.BaseHP = c.Game.BaseHP
	s.StartCoins = c.Game.StartCoins
	s.FirstWaveCoinCap = c.Game.FirstWaveCoinCap
	return s
}

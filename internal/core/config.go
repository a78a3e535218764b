// Package core holds the application configuration shared by the CLI and the HTTP host.
package core

import (
	"fmt"
	"slices"
	"time"

	"audioflow/internal/i18n"
)

// Resolver modes.
const (
	ResolverModeStatic = "static"
	ResolverModeRemote = "remote"
	ResolverModeRedis  = "redis"
	ResolverModeSQLite = "sqlite"
)

// Configuration defaults.
const (
	DefaultServerHost          = "0.0.0.0"
	DefaultServerPort          = 8080
	DefaultServerTimeout       = 10 * time.Second
	DefaultResolverTimeout     = 10 * time.Second
	DefaultDemoIdentifier      = "demo"
	DefaultCacheSize           = 1024
	DefaultRedisPort           = 6379
	DefaultSQLitePath          = "./audioflow.db"
	DefaultShareAckDuration    = 2 * time.Second
	DefaultFloodLimitPerMinute = 60
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Resolver ResolverConfig
	Redis    RedisConfig
	SQLite   SQLiteConfig
	App      AppConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type ResolverConfig struct {
	Mode          string
	Strict        bool
	Endpoint      string
	Timeout       time.Duration
	FallbackDelay time.Duration
	CacheSize     int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type SQLiteConfig struct {
	Path string
}

type AppConfig struct {
	DemoIdentifier      string
	ShareAckDuration    time.Duration
	Language            string
	FloodLimitPerMinute int
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultServerHost,
			Port:         DefaultServerPort,
			ReadTimeout:  DefaultServerTimeout,
			WriteTimeout: DefaultServerTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Resolver: ResolverConfig{
			Mode:      ResolverModeStatic,
			Strict:    true,
			Timeout:   DefaultResolverTimeout,
			CacheSize: DefaultCacheSize,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: DefaultRedisPort,
		},
		SQLite: SQLiteConfig{
			Path: DefaultSQLitePath,
		},
		App: AppConfig{
			DemoIdentifier:      DefaultDemoIdentifier,
			ShareAckDuration:    DefaultShareAckDuration,
			Language:            i18n.DefaultLanguage,
			FloodLimitPerMinute: DefaultFloodLimitPerMinute,
		},
	}
}

// ResolverModes returns the accepted values for Resolver.Mode.
func ResolverModes() []string {
	return []string{ResolverModeStatic, ResolverModeRemote, ResolverModeRedis, ResolverModeSQLite}
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if !slices.Contains(ResolverModes(), c.Resolver.Mode) {
		return fmt.Errorf("unknown resolver mode %q (supported: %v)", c.Resolver.Mode, ResolverModes())
	}
	if c.Resolver.Mode == ResolverModeRemote && c.Resolver.Endpoint == "" {
		return fmt.Errorf("resolver endpoint is required in %s mode", ResolverModeRemote)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Resolver.FallbackDelay < 0 {
		return fmt.Errorf("resolver fallback delay must not be negative")
	}
	return nil
}

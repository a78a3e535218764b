// Package main provides the AudioFlow CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"audioflow/internal/core"
	"audioflow/internal/flood"
	httpserver "audioflow/internal/http"
	"audioflow/internal/i18n"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "audioflow",
	Short: "AudioFlow - shareable audio chapter pages",
	Long: `AudioFlow serves a single-page audio player for catalog chapters. The chapter is
picked by the page's query string (/?<identifier>) and resolved against a static,
remote, Redis or SQLite catalog.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, text)")
	flags.String("server-host", defaults.Server.Host, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	flags.Duration("server-read-timeout", defaults.Server.ReadTimeout, "HTTP server read timeout")
	flags.Duration("server-write-timeout", defaults.Server.WriteTimeout, "HTTP server write timeout")
	flags.String("resolver-mode", defaults.Resolver.Mode,
		fmt.Sprintf("Metadata source (%s)", strings.Join(core.ResolverModes(), ", ")))
	flags.Bool("resolver-strict", defaults.Resolver.Strict, "Surface lookup failures instead of serving the demo record")
	flags.String("resolver-endpoint", "", "Lookup endpoint URL for remote mode")
	flags.Duration("resolver-timeout", defaults.Resolver.Timeout, "Remote lookup timeout")
	flags.Duration("resolver-fallback-delay", defaults.Resolver.FallbackDelay, "Delay before serving the demo record in non-strict mode")
	flags.String("demo-identifier", defaults.App.DemoIdentifier, "Identifier resolved when a page has none (non-strict mode)")
	flags.Int("cache-size", defaults.Resolver.CacheSize, "Number of resolved records kept in memory (0 disables the cache)")
	flags.String("redis-host", defaults.Redis.Host, "Redis host for redis mode")
	flags.Int("redis-port", defaults.Redis.Port, "Redis port for redis mode")
	flags.String("redis-password", "", "Redis password for redis mode")
	flags.String("sqlite-path", defaults.SQLite.Path, "SQLite database path for sqlite mode")
	flags.Duration("share-ack-duration", defaults.App.ShareAckDuration, "How long the share button shows its confirmation")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Page language (%s)", supportedLangs))
	flags.Int("flood-limit-per-minute", defaults.App.FloodLimitPerMinute, "Maximum requests per client per minute (0 disables)")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(resolveCmd, catalogCmd)
}

func initConfig() {
	// Load .env file explicitly using gotenv
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("AUDIOFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureServer(cfg)
	configureResolver(cfg)
	configureStores(cfg)
	configureApp(cfg)

	return cfg
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = core.DefaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Server.ReadTimeout = viper.GetDuration("server-read-timeout")
	cfg.Server.WriteTimeout = viper.GetDuration("server-write-timeout")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureResolver(cfg *core.Config) {
	cfg.Resolver.Mode = strings.ToLower(viper.GetString("resolver-mode"))
	cfg.Resolver.Strict = viper.GetBool("resolver-strict")
	cfg.Resolver.Endpoint = viper.GetString("resolver-endpoint")
	cfg.Resolver.Timeout = viper.GetDuration("resolver-timeout")
	cfg.Resolver.FallbackDelay = viper.GetDuration("resolver-fallback-delay")
	cfg.Resolver.CacheSize = viper.GetInt("cache-size")
}

func configureStores(cfg *core.Config) {
	cfg.Redis.Host = viper.GetString("redis-host")
	cfg.Redis.Port = viper.GetInt("redis-port")
	cfg.Redis.Password = viper.GetString("redis-password")
	cfg.SQLite.Path = viper.GetString("sqlite-path")
}

func configureApp(cfg *core.Config) {
	cfg.App.DemoIdentifier = viper.GetString("demo-identifier")
	if cfg.App.DemoIdentifier == "" {
		cfg.App.DemoIdentifier = core.DefaultDemoIdentifier
	}

	cfg.App.ShareAckDuration = viper.GetDuration("share-ack-duration")
	if cfg.App.ShareAckDuration <= 0 {
		cfg.App.ShareAckDuration = core.DefaultShareAckDuration
	}

	cfg.App.Language = viper.GetString("language")
	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}

	cfg.App.FloodLimitPerMinute = viper.GetInt("flood-limit-per-minute")
	if cfg.App.FloodLimitPerMinute < 0 {
		cfg.App.FloodLimitPerMinute = core.DefaultFloodLimitPerMinute
	}
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "text") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runServe(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting AudioFlow",
		zap.String("resolver_mode", config.Resolver.Mode),
		zap.Bool("strict", config.Resolver.Strict),
		zap.String("language", config.App.Language))

	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	return runServices(ctx, svcs)
}

type services struct {
	backend    *backend
	floodgate  *flood.Floodgate
	httpServer *httpserver.Server
}

func (s *services) close() {
	if err := s.backend.close(); err != nil {
		logger.Debug("Failed to close metadata backend", zap.Error(err))
	}
}

func initializeServices(ctx context.Context) (*services, error) {
	b, err := openBackend(ctx, config)
	if err != nil {
		return nil, err
	}

	resolver, err := b.resolver(ctx, config, logger.Named("resolver"))
	if err != nil {
		_ = b.close()
		return nil, err
	}

	floodgate := flood.New(config.App.FloodLimitPerMinute)

	handler, err := httpserver.NewHandler(httpserver.Deps{
		Resolver:         resolver,
		Strict:           config.Resolver.Strict,
		DemoIdentifier:   config.App.DemoIdentifier,
		Localizer:        i18n.NewLocalizer(config.App.Language),
		Floodgate:        floodgate,
		Cache:            b.cache,
		Metrics:          httpserver.NewMetrics(prometheus.DefaultRegisterer),
		ShareAckDuration: config.App.ShareAckDuration,
		Ready:            b.ready,
	}, logger.Named("http"))
	if err != nil {
		_ = b.close()
		return nil, err
	}

	return &services{
		backend:    b,
		floodgate:  floodgate,
		httpServer: httpserver.NewServer(&config.Server, handler.Routes(), logger.Named("http")),
	}, nil
}

func runServices(ctx context.Context, svcs *services) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.floodgate.Run(gCtx)
	})

	logger.Info("AudioFlow started successfully",
		zap.String("http_addr", svcs.httpServer.Addr()))

	if err := g.Wait(); err != nil {
		logger.Error("AudioFlow stopped with error", zap.Error(err))
		return err
	}

	logger.Info("AudioFlow stopped gracefully")
	return nil
}

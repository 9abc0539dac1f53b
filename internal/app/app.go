// Package app wires configuration, the IEX client, the cache and the price service together.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/iexgate/internal/clients/iex"
	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/interfaces"
	"github.com/bobmcallan/iexgate/internal/services/price"
	"github.com/bobmcallan/iexgate/internal/storage"
)

// App holds the initialized client, cache and service.
// It is the shared core used by cmd/iexgate and the server tests.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	IEXClient    interfaces.IEXClient
	Cache        interfaces.HistoricalPriceCache
	PriceService interfaces.PriceService
	StartupTime  time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the given path, IEXGATE_CONFIG,
// iexgate.toml next to the binary, then config/iexgate.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("IEXGATE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "iexgate.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/iexgate.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration from configPath (see ResolveConfigPath) and initializes the App.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	return New(ctx, config, logger)
}

// New initializes the App from an already loaded configuration.
func New(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	token, err := common.ResolveToken(config.Clients.IEX.Token)
	if err != nil {
		logger.Warn().Msg("IEX token not configured - upstream requests will be rejected")
	}

	client := iex.NewClient(token,
		iex.WithBaseURL(config.Clients.IEX.BaseURL),
		iex.WithTimeout(config.Clients.IEX.GetTimeout()),
		iex.WithLogger(logger),
	)

	cache, err := storage.NewHistoricalPriceCache(ctx, logger, config.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	priceService := price.NewService(client, cache, logger,
		price.WithLocation(config.History.GetLocation()),
	)

	a := &App{
		Config:       config,
		Logger:       logger,
		IEXClient:    client,
		Cache:        cache,
		PriceService: priceService,
		StartupTime:  startupStart,
	}

	logger.Info().
		Str("cache", cache.Backend()).
		Str("timezone", config.History.GetLocation().String()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close cache")
		}
		a.Cache = nil
	}
	if a.Logger != nil {
		a.Logger.Close()
	}
}

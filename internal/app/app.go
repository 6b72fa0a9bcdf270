// Package app assembles the geocoding service from configuration. Both the
// server and the CLI build their dependencies through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/address-geocoder/internal/adapter/geoapify"
	"github.com/couchcryptid/address-geocoder/internal/adapter/storage"
	"github.com/couchcryptid/address-geocoder/internal/config"
	"github.com/couchcryptid/address-geocoder/internal/domain"
	"github.com/couchcryptid/address-geocoder/internal/geocache"
	"github.com/couchcryptid/address-geocoder/internal/geocoding"
	"github.com/couchcryptid/address-geocoder/internal/observability"
)

// Components holds the wired service and the resources main must release.
type Components struct {
	Store   storage.Store
	Cache   *geocache.Cache
	Service *geocoding.Service
	closers []io.Closer
}

// Close releases the storage backend.
func (c *Components) Close() error {
	var errs []error
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

// Build opens the configured store and wires the cache, provider and service.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Components, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c := &Components{Store: store}
	if cl, ok := store.(io.Closer); ok {
		c.closers = append(c.closers, cl)
	}

	c.Cache = geocache.New(store, geocache.Options{
		Key:       cfg.CacheKey,
		Retention: cfg.CacheRetention,
	}, logger)

	var provider domain.Provider
	if cfg.GeocodingEnabled() {
		provider = geoapify.NewClient(geoapify.Config{
			APIKey:    cfg.GeoapifyAPIKey,
			BaseURL:   cfg.GeoapifyBaseURL,
			Timeout:   cfg.GeoapifyTimeout,
			RateLimit: cfg.GeoapifyRateLimit,
		}, logger)
		logger.Info("geoapify geocoding enabled", "timeout", cfg.GeoapifyTimeout, "rate_limit", cfg.GeoapifyRateLimit)
	} else {
		logger.Warn("GEOAPIFY_API_KEY not set, geocoding answers from cache only")
	}

	c.Service = geocoding.NewService(provider, c.Cache, ServiceOptions(cfg), logger, metrics)
	return c, nil
}

// OpenStore returns the storage backend named by cfg.CacheBackend.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendMemory:
		return storage.NewMemoryStore(), nil
	case config.CacheBackendRedis:
		s, err := storage.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.CacheBackendFile, "":
		s, err := storage.NewFileStore(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// ServiceOptions maps configuration onto geocoding.Options.
func ServiceOptions(cfg *config.Config) geocoding.Options {
	opts := geocoding.DefaultOptions()
	opts.QuerySuffix = cfg.QuerySuffix
	opts.CountryCode = cfg.CountryCode
	opts.Language = cfg.Language
	opts.BBox = cfg.BBox
	opts.Proximity = cfg.Proximity
	opts.ResolveCandidates = cfg.ResolveCandidates
	opts.SuggestCacheSize = cfg.SuggestCacheSize
	opts.SuggestCacheTTL = cfg.SuggestCacheTTL
	return opts
}

// ReadinessChecker matches the shared observability readiness contract.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Readiness is ready when every member is ready. An empty set is always ready.
type Readiness []ReadinessChecker

func (r Readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

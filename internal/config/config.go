package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/address-geocoder/internal/domain"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	CacheBackendFile   = "file"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Geoapify provider configuration. An empty key disables the provider.
	GeoapifyAPIKey    string
	GeoapifyBaseURL   string
	GeoapifyTimeout   time.Duration
	GeoapifyRateLimit float64

	// Service region and request shaping.
	QuerySuffix       string
	CountryCode       string
	Language          string
	BBox              domain.BoundingBox
	Proximity         domain.Coordinate
	ResolveCandidates int

	// Persistent geocode cache.
	CacheBackend   string
	CacheDir       string
	CacheKey       string
	CacheRetention time.Duration
	RedisURL       string

	// In-memory suggestion memo.
	SuggestCacheSize int
	SuggestCacheTTL  time.Duration

	// Batch geocoding pipeline.
	BatchEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// GeocodingEnabled reports whether a provider credential is configured.
func (c *Config) GeocodingEnabled() bool {
	return c.GeoapifyAPIKey != ""
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	geoapifyTimeout, err := parsePositiveDuration("GEOAPIFY_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GEOAPIFY_RATE_LIMIT", "5"), 64)
	if err != nil || rateLimit < 0 {
		return nil, errors.New("invalid GEOAPIFY_RATE_LIMIT")
	}

	bbox, err := domain.ParseBoundingBox(sharedcfg.EnvOrDefault("GEOCODE_BBOX", "-74.25,4.45,-73.99,4.85"))
	if err != nil {
		return nil, errors.New("invalid GEOCODE_BBOX")
	}

	proximity, err := domain.ParseCoordinate(sharedcfg.EnvOrDefault("GEOCODE_PROXIMITY", "4.7110,-74.0721"))
	if err != nil {
		return nil, errors.New("invalid GEOCODE_PROXIMITY")
	}

	candidates, err := parseNonNegativeInt("GEOCODE_CANDIDATES", "5")
	if err != nil || candidates == 0 {
		return nil, errors.New("invalid GEOCODE_CANDIDATES")
	}

	retention, err := parsePositiveDuration("CACHE_RETENTION", "720h")
	if err != nil {
		return nil, err
	}

	suggestCacheSize, err := parseNonNegativeInt("SUGGEST_CACHE_SIZE", "256")
	if err != nil {
		return nil, err
	}

	suggestCacheTTL, err := parsePositiveDuration("SUGGEST_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GeoapifyAPIKey:    os.Getenv("GEOAPIFY_API_KEY"),
		GeoapifyBaseURL:   sharedcfg.EnvOrDefault("GEOAPIFY_BASE_URL", "https://api.geoapify.com/v1/geocode"),
		GeoapifyTimeout:   geoapifyTimeout,
		GeoapifyRateLimit: rateLimit,

		QuerySuffix:       sharedcfg.EnvOrDefault("GEOCODE_QUERY_SUFFIX", ", Bogotá, Cundinamarca, Colombia"),
		CountryCode:       sharedcfg.EnvOrDefault("GEOCODE_COUNTRY", "co"),
		Language:          sharedcfg.EnvOrDefault("GEOCODE_LANGUAGE", "es"),
		BBox:              bbox,
		Proximity:         proximity,
		ResolveCandidates: candidates,

		CacheBackend:   sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheBackendFile),
		CacheDir:       sharedcfg.EnvOrDefault("CACHE_DIR", "./data"),
		CacheKey:       sharedcfg.EnvOrDefault("CACHE_KEY", "geocode-cache-v1"),
		CacheRetention: retention,
		RedisURL:       os.Getenv("REDIS_URL"),

		SuggestCacheSize: suggestCacheSize,
		SuggestCacheTTL:  suggestCacheTTL,

		BatchEnabled:       os.Getenv("BATCH_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "geocode-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "geocode-results"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "address-geocoder"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	switch cfg.CacheBackend {
	case CacheBackendFile, CacheBackendMemory:
	case CacheBackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("CACHE_BACKEND is redis but REDIS_URL is not set")
		}
	default:
		return nil, errors.New("invalid CACHE_BACKEND")
	}
	if cfg.CacheKey == "" {
		return nil, errors.New("CACHE_KEY is required")
	}

	if cfg.BatchEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseNonNegativeInt(key, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

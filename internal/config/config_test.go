package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/address-geocoder/internal/domain"
)

const (
	defaultBroker   = "localhost:9092"
	testGeoapifyKey = "test-api-key"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.False(t, cfg.GeocodingEnabled())
	assert.Empty(t, cfg.GeoapifyAPIKey)
	assert.Equal(t, "https://api.geoapify.com/v1/geocode", cfg.GeoapifyBaseURL)
	assert.Equal(t, 5*time.Second, cfg.GeoapifyTimeout)
	assert.InDelta(t, 5, cfg.GeoapifyRateLimit, 0)

	assert.Equal(t, ", Bogotá, Cundinamarca, Colombia", cfg.QuerySuffix)
	assert.Equal(t, "co", cfg.CountryCode)
	assert.Equal(t, "es", cfg.Language)
	assert.Equal(t, domain.BoundingBox{MinLon: -74.25, MinLat: 4.45, MaxLon: -73.99, MaxLat: 4.85}, cfg.BBox)
	assert.Equal(t, domain.Coordinate{Lat: 4.7110, Lon: -74.0721}, cfg.Proximity)
	assert.Equal(t, 5, cfg.ResolveCandidates)

	assert.Equal(t, CacheBackendFile, cfg.CacheBackend)
	assert.Equal(t, "./data", cfg.CacheDir)
	assert.Equal(t, "geocode-cache-v1", cfg.CacheKey)
	assert.Equal(t, 30*24*time.Hour, cfg.CacheRetention)
	assert.Equal(t, 256, cfg.SuggestCacheSize)
	assert.Equal(t, 5*time.Minute, cfg.SuggestCacheTTL)

	assert.False(t, cfg.BatchEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "geocode-requests", cfg.KafkaSourceTopic)
	assert.Equal(t, "geocode-results", cfg.KafkaSinkTopic)
	assert.Equal(t, "address-geocoder", cfg.KafkaGroupID)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("GEOAPIFY_API_KEY", testGeoapifyKey)
	t.Setenv("GEOAPIFY_TIMEOUT", "10s")
	t.Setenv("GEOAPIFY_RATE_LIMIT", "2.5")
	t.Setenv("GEOCODE_QUERY_SUFFIX", ", Medellín, Antioquia, Colombia")
	t.Setenv("GEOCODE_BBOX", "-75.72,6.13,-75.47,6.37")
	t.Setenv("GEOCODE_PROXIMITY", "6.2442,-75.5812")
	t.Setenv("GEOCODE_CANDIDATES", "8")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CACHE_RETENTION", "168h")
	t.Setenv("SUGGEST_CACHE_SIZE", "0")
	t.Setenv("BATCH_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("BATCH_SIZE", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.GeocodingEnabled())
	assert.Equal(t, testGeoapifyKey, cfg.GeoapifyAPIKey)
	assert.Equal(t, 10*time.Second, cfg.GeoapifyTimeout)
	assert.InDelta(t, 2.5, cfg.GeoapifyRateLimit, 0)
	assert.Equal(t, ", Medellín, Antioquia, Colombia", cfg.QuerySuffix)
	assert.InDelta(t, -75.72, cfg.BBox.MinLon, 0)
	assert.InDelta(t, 6.2442, cfg.Proximity.Lat, 0)
	assert.Equal(t, 8, cfg.ResolveCandidates)
	assert.Equal(t, CacheBackendRedis, cfg.CacheBackend)
	assert.Equal(t, 7*24*time.Hour, cfg.CacheRetention)
	assert.Zero(t, cfg.SuggestCacheSize)
	assert.True(t, cfg.BatchEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, 100, cfg.BatchSize)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"GEOAPIFY_TIMEOUT", "0s"},
		{"GEOAPIFY_TIMEOUT", "soon"},
		{"GEOAPIFY_RATE_LIMIT", "-1"},
		{"GEOCODE_BBOX", "1,2,3"},
		{"GEOCODE_PROXIMITY", "bogota"},
		{"GEOCODE_CANDIDATES", "0"},
		{"CACHE_RETENTION", "-24h"},
		{"CACHE_BACKEND", "s3"},
		{"SUGGEST_CACHE_SIZE", "-5"},
		{"SUGGEST_CACHE_TTL", "forever"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_RedisBackendRequiresURL(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
}

func TestLoad_BatchEnabledFlag(t *testing.T) {
	t.Setenv("BATCH_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.BatchEnabled)

	t.Setenv("BATCH_ENABLED", "true")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.BatchEnabled)
}

func TestLoad_BatchSizeTooLarge(t *testing.T) {
	t.Setenv("BATCH_SIZE", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

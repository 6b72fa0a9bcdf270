// Package geocoding resolves free-text addresses to coordinates and offers
// autocomplete suggestions. It combines the address normalizer, the
// persistent geocode cache, a remote provider and the candidate scorer.
//
// No method returns an error: every failure is logged and degrades to a
// "not found" or empty result so callers can render one uniform state.
package geocoding

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/address-geocoder/internal/domain"
	"github.com/couchcryptid/address-geocoder/internal/geocache"
	"github.com/couchcryptid/address-geocoder/internal/observability"
)

const (
	opResolve = "resolve"
	opSuggest = "suggest"

	// minSuggestLength is also the debounce boundary UI callers rely on.
	minSuggestLength = 3
)

// Cache is the persistent address cache consulted before the provider.
type Cache interface {
	Get(ctx context.Context, address string) (geocache.Entry, bool)
	Put(ctx context.Context, address string, coord domain.Coordinate)
	Clear(ctx context.Context)
}

// Options holds the service region and request shaping.
type Options struct {
	QuerySuffix         string // appended to every normalized query
	CountryCode         string
	Proximity           domain.Coordinate
	BBox                domain.BoundingBox
	Language            string
	ResolveCandidates   int // candidates requested per Resolve
	DefaultSuggestLimit int

	SuggestCacheSize int           // 0 disables the suggestion memo
	SuggestCacheTTL  time.Duration // 0 keeps entries until evicted by size
}

// DefaultOptions targets Bogotá, Colombia.
func DefaultOptions() Options {
	return Options{
		QuerySuffix:         ", Bogotá, Cundinamarca, Colombia",
		CountryCode:         "co",
		Proximity:           domain.Coordinate{Lat: 4.7110, Lon: -74.0721},
		BBox:                domain.BoundingBox{MinLon: -74.25, MinLat: 4.45, MaxLon: -73.99, MaxLat: 4.85},
		Language:            "es",
		ResolveCandidates:   5,
		DefaultSuggestLimit: 5,
	}
}

// Service implements address resolution and autocomplete.
type Service struct {
	provider    domain.Provider
	cache       Cache
	opts        Options
	suggestions *expirable.LRU[string, []domain.Suggestion]
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewService creates a Service. Pass a nil provider when no credential is
// configured; the service then answers from the cache only.
func NewService(provider domain.Provider, cache Cache, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if opts.ResolveCandidates <= 0 {
		opts.ResolveCandidates = 5
	}
	if opts.DefaultSuggestLimit <= 0 {
		opts.DefaultSuggestLimit = 5
	}

	s := &Service{
		provider: provider,
		cache:    cache,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
	if opts.SuggestCacheSize > 0 {
		s.suggestions = expirable.NewLRU[string, []domain.Suggestion](opts.SuggestCacheSize, nil, opts.SuggestCacheTTL)
	}

	if provider != nil {
		metrics.GeocodeEnabled.Set(1)
	} else {
		metrics.GeocodeEnabled.Set(0)
	}
	return s
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool {
	return s.provider != nil
}

// Resolve returns the best coordinate for address. Cached entries are
// served without a network call, including cached "no result" entries.
// Only successful resolutions are written to the cache.
func (s *Service) Resolve(ctx context.Context, address string) (domain.Coordinate, bool) {
	if strings.TrimSpace(address) == "" {
		s.metrics.GeocodeRequests.WithLabelValues(opResolve, "skipped").Inc()
		return domain.Coordinate{}, false
	}

	if e, ok := s.cache.Get(ctx, address); ok {
		s.metrics.GeocodeCache.WithLabelValues(opResolve, "hit").Inc()
		s.logger.Debug("geocode cache hit", "address", address)
		if e.Coordinate == nil {
			return domain.Coordinate{}, false
		}
		return *e.Coordinate, true
	}
	s.metrics.GeocodeCache.WithLabelValues(opResolve, "miss").Inc()

	if s.provider == nil {
		s.logger.Warn("geocoding provider not configured, cannot resolve", "address", address)
		s.metrics.GeocodeRequests.WithLabelValues(opResolve, "skipped").Inc()
		return domain.Coordinate{}, false
	}

	features, err := s.search(ctx, opResolve, address, s.opts.ResolveCandidates)
	if err != nil {
		s.logger.Error("geocode resolve failed", "address", address, "error", err)
		s.metrics.GeocodeRequests.WithLabelValues(opResolve, "error").Inc()
		return domain.Coordinate{}, false
	}
	if len(features) == 0 {
		s.logger.Info("geocode resolve found no in-region results", "address", address)
		s.metrics.GeocodeRequests.WithLabelValues(opResolve, "empty").Inc()
		return domain.Coordinate{}, false
	}

	best := domain.RankFeatures(features)[0]
	s.cache.Put(ctx, address, best.Coordinate)
	s.metrics.GeocodeRequests.WithLabelValues(opResolve, "success").Inc()
	return best.Coordinate, true
}

// ResolveMany resolves every address concurrently and returns one
// Resolution per input, in input order. A failure on one address never
// affects the others.
func (s *Service) ResolveMany(ctx context.Context, addresses []string) []domain.Resolution {
	results := make([]domain.Resolution, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	for i, addr := range addresses {
		g.Go(func() error {
			res := domain.Resolution{Address: addr}
			if coord, ok := s.Resolve(gctx, addr); ok {
				res.Coordinate = &coord
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	return results
}

// Suggest returns up to limit in-region candidates for a partial query in
// provider order. Queries shorter than three characters return nothing
// without a network call. A limit of zero or less uses the default.
func (s *Service) Suggest(ctx context.Context, query string, limit int) []domain.Suggestion {
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < minSuggestLength {
		return []domain.Suggestion{}
	}
	if limit <= 0 {
		limit = s.opts.DefaultSuggestLimit
	}
	if s.provider == nil {
		s.logger.Warn("geocoding provider not configured, cannot suggest", "query", trimmed)
		s.metrics.GeocodeRequests.WithLabelValues(opSuggest, "skipped").Inc()
		return []domain.Suggestion{}
	}

	memoKey := trimmed + "|" + strconv.Itoa(limit)
	if s.suggestions != nil {
		if cached, ok := s.suggestions.Get(memoKey); ok {
			s.metrics.GeocodeCache.WithLabelValues(opSuggest, "hit").Inc()
			return slices.Clone(cached)
		}
		s.metrics.GeocodeCache.WithLabelValues(opSuggest, "miss").Inc()
	}

	features, err := s.search(ctx, opSuggest, trimmed, limit)
	if err != nil {
		s.logger.Error("geocode suggest failed", "query", trimmed, "error", err)
		s.metrics.GeocodeRequests.WithLabelValues(opSuggest, "error").Inc()
		return []domain.Suggestion{}
	}

	n := min(len(features), limit)
	out := make([]domain.Suggestion, 0, n)
	for _, f := range features[:n] {
		out = append(out, domain.NewSuggestion(f))
	}

	if len(out) == 0 {
		s.metrics.GeocodeRequests.WithLabelValues(opSuggest, "empty").Inc()
		return out
	}
	if s.suggestions != nil {
		s.suggestions.Add(memoKey, slices.Clone(out))
	}
	s.metrics.GeocodeRequests.WithLabelValues(opSuggest, "success").Inc()
	return out
}

// ClearCache drops every cached resolution and memoized suggestion.
func (s *Service) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
	if s.suggestions != nil {
		s.suggestions.Purge()
	}
}

// search queries the provider and keeps only candidates inside the service
// region, since providers treat the rectangle filter as a hint.
func (s *Service) search(ctx context.Context, op, text string, limit int) ([]domain.Feature, error) {
	q := s.query(text, limit)

	start := time.Now()
	features, err := s.provider.Search(ctx, q)
	s.metrics.GeocodeAPIDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	inRegion := features[:0:0]
	for _, f := range features {
		if s.opts.BBox.Contains(f.Coordinate) {
			inRegion = append(inRegion, f)
		}
	}
	if dropped := len(features) - len(inRegion); dropped > 0 {
		s.logger.Debug("dropped out-of-region candidates", "operation", op, "dropped", dropped)
	}
	return inRegion, nil
}

func (s *Service) query(text string, limit int) domain.SearchQuery {
	proximity := s.opts.Proximity
	bbox := s.opts.BBox
	return domain.SearchQuery{
		Text:        domain.Normalize(text) + s.opts.QuerySuffix,
		CountryCode: s.opts.CountryCode,
		Proximity:   &proximity,
		BBox:        &bbox,
		Limit:       limit,
		Language:    s.opts.Language,
	}
}

package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/address-geocoder/internal/domain"
)

// Resolver resolves many addresses at once, returning one Resolution per
// address in input order.
type Resolver interface {
	ResolveMany(ctx context.Context, addresses []string) []domain.Resolution
}

// BatchGeocoder implements Geocoder on top of a Resolver.
type BatchGeocoder struct {
	resolver Resolver
	logger   *slog.Logger
}

// NewGeocoder creates a BatchGeocoder.
func NewGeocoder(resolver Resolver, logger *slog.Logger) *BatchGeocoder {
	return &BatchGeocoder{resolver: resolver, logger: logger}
}

func (g *BatchGeocoder) GeocodeBatch(ctx context.Context, requests []domain.GeocodeRequest) []domain.GeocodeResult {
	addresses := make([]string, len(requests))
	for i, req := range requests {
		addresses[i] = req.Address
	}

	resolutions := g.resolver.ResolveMany(ctx, addresses)

	results := make([]domain.GeocodeResult, len(requests))
	for i, req := range requests {
		results[i] = domain.NewGeocodeResult(req, resolutions[i])
	}
	return results
}

//go:build geoapify

package geoapify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/address-geocoder/internal/domain"
)

// These tests hit the real Geoapify API and require a valid GEOAPIFY_API_KEY env var.
// Run with: go test -tags=geoapify ./internal/adapter/geoapify/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("GEOAPIFY_API_KEY")
	if key == "" {
		t.Fatal("GEOAPIFY_API_KEY must be set to run smoke tests")
	}
	return &Client{
		apiKey:     key,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSmoke_Search(t *testing.T) {
	c := smokeClient(t)

	features, err := c.Search(context.Background(), bogotaQuery())
	require.NoError(t, err)
	require.NotEmpty(t, features)

	bbox := bogotaQuery().BBox
	assert.True(t, bbox.Contains(features[0].Coordinate), "first result should be inside Bogotá")
}

func TestSmoke_Search_Autocomplete(t *testing.T) {
	c := smokeClient(t)

	q := bogotaQuery()
	q.Text = "Calle 80, Bogotá, Cundinamarca, Colombia"
	features, err := c.Search(context.Background(), q)
	require.NoError(t, err)
	assert.NotEmpty(t, features)
	for _, f := range features {
		assert.NotEmpty(t, domain.DisplayText(f))
	}
}

package geoapify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/address-geocoder/internal/domain"
)

// DefaultBaseURL is the Geoapify forward geocoding endpoint root.
const DefaultBaseURL = "https://api.geoapify.com/v1/geocode"

// Config configures a Client.
type Config struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
}

// Client implements domain.Provider using the Geoapify Geocoding API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("geoapify API error: status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a Geoapify geocoding client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}
	return &Client{
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: limiter,
		logger:  logger,
	}
}

// Search runs a forward geocoding query and returns candidates in provider order.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Feature, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	u := c.baseURL + "/search?" + searchParams(c.apiKey, q).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var geoResp response
	if err := json.NewDecoder(resp.Body).Decode(&geoResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	features := make([]domain.Feature, 0, len(geoResp.Features))
	for _, f := range geoResp.Features {
		df, ok := f.toDomain()
		if !ok {
			continue
		}
		features = append(features, df)
	}
	c.logger.Debug("geoapify search", "text", q.Text, "candidates", len(features))
	return features, nil
}

func searchParams(apiKey string, q domain.SearchQuery) url.Values {
	params := url.Values{
		"text":   {q.Text},
		"apiKey": {apiKey},
		"format": {"geojson"},
	}

	var filters []string
	if q.CountryCode != "" {
		filters = append(filters, "countrycode:"+strings.ToLower(q.CountryCode))
	}
	if q.BBox != nil {
		filters = append(filters, "rect:"+q.BBox.String())
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, "|"))
	}
	if q.Proximity != nil {
		// Geoapify expects lon,lat.
		params.Set("bias", "proximity:"+formatFloat(q.Proximity.Lon)+","+formatFloat(q.Proximity.Lat))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Language != "" {
		params.Set("lang", q.Language)
	}
	return params
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Geoapify API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry   geometry   `json:"geometry"`
	Properties properties `json:"properties"`
}

type geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

type properties struct {
	ResultType  string `json:"result_type"`
	Rank        *rank  `json:"rank,omitempty"`
	Street      string `json:"street,omitempty"`
	HouseNumber string `json:"housenumber,omitempty"`
	Suburb      string `json:"suburb,omitempty"`
	District    string `json:"district,omitempty"`
	Formatted   string `json:"formatted,omitempty"`
	Name        string `json:"name,omitempty"`
}

type rank struct {
	Importance *float64 `json:"importance,omitempty"`
}

// toDomain converts a GeoJSON point feature. Features without a point are dropped.
func (f feature) toDomain() (domain.Feature, bool) {
	if len(f.Geometry.Coordinates) < 2 {
		return domain.Feature{}, false
	}
	p := f.Properties
	out := domain.Feature{
		Coordinate:  domain.Coordinate{Lat: f.Geometry.Coordinates[1], Lon: f.Geometry.Coordinates[0]},
		ResultType:  p.ResultType,
		Street:      p.Street,
		HouseNumber: p.HouseNumber,
		Suburb:      p.Suburb,
		District:    p.District,
		Formatted:   p.Formatted,
		Name:        p.Name,
	}
	if p.Rank != nil {
		out.Importance = p.Rank.Importance
	}
	return out, true
}

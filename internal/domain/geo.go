package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Coordinate is a WGS-84 latitude/longitude pair.
// It serializes as a two-element JSON array, latitude first.
type Coordinate struct {
	Lat float64
	Lon float64
}

// MarshalJSON renders the coordinate as [lat, lon].
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lon})
}

// UnmarshalJSON accepts a [lat, lon] array.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode coordinate: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode coordinate: expected 2 values, got %d", len(pair))
	}
	c.Lat, c.Lon = pair[0], pair[1]
	return nil
}

// String renders the coordinate as "lat,lon".
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// BoundingBox is an axis-aligned rectangle in longitude/latitude space.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Contains reports whether c lies inside the box. Edges are inclusive.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lon >= b.MinLon && c.Lon <= b.MaxLon &&
		c.Lat >= b.MinLat && c.Lat <= b.MaxLat
}

// String renders the box as "lonMin,latMin,lonMax,latMax", the order
// geocoding providers expect in rectangle filters.
func (b BoundingBox) String() string {
	parts := []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
	out := make([]string, len(parts))
	for i, v := range parts {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(out, ",")
}

// ParseBoundingBox parses "lonMin,latMin,lonMax,latMax".
func ParseBoundingBox(s string) (BoundingBox, error) {
	vals, err := parseFloats(s, 4)
	if err != nil {
		return BoundingBox{}, fmt.Errorf("parse bounding box: %w", err)
	}
	b := BoundingBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if b.MinLon > b.MaxLon || b.MinLat > b.MaxLat {
		return BoundingBox{}, errors.New("parse bounding box: min exceeds max")
	}
	return b, nil
}

// ParseCoordinate parses "lat,lon".
func ParseCoordinate(s string) (Coordinate, error) {
	vals, err := parseFloats(s, 2)
	if err != nil {
		return Coordinate{}, fmt.Errorf("parse coordinate: %w", err)
	}
	return Coordinate{Lat: vals[0], Lon: vals[1]}, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	fields := strings.Split(s, ",")
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d comma-separated values, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

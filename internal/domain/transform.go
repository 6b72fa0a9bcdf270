package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyAddress is returned for requests without a usable address.
var ErrEmptyAddress = errors.New("empty address")

// ParseGeocodeRequest deserializes a RawEvent's value into a GeocodeRequest.
// A missing id falls back to the message key, then to a hash of the address.
func ParseGeocodeRequest(raw RawEvent) (GeocodeRequest, error) {
	var req GeocodeRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return GeocodeRequest{}, fmt.Errorf("parse geocode request: %w", err)
	}
	if strings.TrimSpace(req.Address) == "" {
		return GeocodeRequest{}, fmt.Errorf("parse geocode request: %w", ErrEmptyAddress)
	}
	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	if req.ID == "" {
		req.ID = generateID(req.Address)
	}
	return req, nil
}

// NewGeocodeResult builds the published record for a request and its resolution.
func NewGeocodeResult(req GeocodeRequest, res Resolution) GeocodeResult {
	return GeocodeResult{
		ID:         req.ID,
		Address:    req.Address,
		Normalized: Normalize(req.Address),
		Coordinate: res.Coordinate,
		Resolved:   res.Coordinate != nil,
		ResolvedAt: clock.Now().UTC(),
	}
}

// generateID derives a deterministic id so replays of the same address
// produce the same key downstream.
func generateID(address string) string {
	hash := sha256.Sum256([]byte(address))
	return "addr-" + hex.EncodeToString(hash[:8])
}

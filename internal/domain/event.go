package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// GeocodeRequest asks for one address to be resolved in batch.
type GeocodeRequest struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// Resolution pairs an input address with its coordinate, nil when the
// address could not be resolved.
type Resolution struct {
	Address    string      `json:"address"`
	Coordinate *Coordinate `json:"coordenadas"`
}

// GeocodeResult is published for every batch request that was parsed.
type GeocodeResult struct {
	ID         string      `json:"id"`
	Address    string      `json:"address"`
	Normalized string      `json:"normalized"`
	Coordinate *Coordinate `json:"coordinate"`
	Resolved   bool        `json:"resolved"`
	ResolvedAt time.Time   `json:"resolved_at"`
}

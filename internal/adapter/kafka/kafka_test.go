package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/address-geocoder/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("client-42"),
		Value:     []byte(`{"id":"req-1","address":"cr 23 # 45-30"}`),
		Topic:     "geocode-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("crm-import")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("client-42"), raw.Key)
	assert.JSONEq(t, `{"id":"req-1","address":"cr 23 # 45-30"}`, string(raw.Value))
	assert.Equal(t, "geocode-requests", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "crm-import", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 4, 26, 15, 10, 0, 0, time.UTC)
	result := domain.GeocodeResult{
		ID:         "req-1",
		Address:    "cr 23 # 45-30",
		Normalized: "Carrera 23 Número 45-30",
		Coordinate: &domain.Coordinate{Lat: 4.6321, Lon: -74.0712},
		Resolved:   true,
		ResolvedAt: now,
	}

	msg, err := serializeToMessage(result)
	require.NoError(t, err)

	assert.Equal(t, []byte("req-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"coordinate":[4.6321,-74.0712]`)
	assert.Contains(t, string(msg.Value), `"normalized":"Carrera 23 Número 45-30"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "resolved", msg.Headers[0].Key)
	assert.Equal(t, []byte("true"), msg.Headers[0].Value)
	assert.Equal(t, "resolved_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_Unresolved(t *testing.T) {
	msg, err := serializeToMessage(domain.GeocodeResult{ID: "req-2", Address: "calle falsa 123"})
	require.NoError(t, err)

	assert.Contains(t, string(msg.Value), `"coordinate":null`)
	assert.Equal(t, []byte("false"), msg.Headers[0].Value)
}

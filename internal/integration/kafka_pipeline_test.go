//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/address-geocoder/internal/adapter/geoapify"
	"github.com/couchcryptid/address-geocoder/internal/adapter/kafka"
	"github.com/couchcryptid/address-geocoder/internal/adapter/storage"
	"github.com/couchcryptid/address-geocoder/internal/config"
	"github.com/couchcryptid/address-geocoder/internal/domain"
	"github.com/couchcryptid/address-geocoder/internal/geocache"
	"github.com/couchcryptid/address-geocoder/internal/geocoding"
	"github.com/couchcryptid/address-geocoder/internal/observability"
	"github.com/couchcryptid/address-geocoder/internal/pipeline"
)

const (
	testSourceTopic = "test-geocode-requests"
	testSinkTopic   = "test-geocode-results"
)

// knownAddresses maps the normalized street part of a query to the
// coordinate the fake provider answers with.
var knownAddresses = map[string][2]float64{
	"Carrera 7 Número 32-16":          {-74.0686, 4.6203},
	"Calle 72 Número 10-34":           {-74.0565, 4.6565},
	"Avenida Carrera 15 Número 93-60": {-74.0532, 4.6784},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	c, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("address-geocoder-test"))
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err, "start kafka container")

	brokers, err := c.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// fakeGeoapify answers /search for knownAddresses and returns an empty
// collection for anything else.
func fakeGeoapify(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		text, _, _ := strings.Cut(r.URL.Query().Get("text"), ",")
		w.Header().Set("Content-Type", "application/json")

		pt, ok := knownAddresses[text]
		if !ok {
			_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
			return
		}
		fmt.Fprintf(w, `{"type":"FeatureCollection","features":[{"type":"Feature",
			"geometry":{"type":"Point","coordinates":[%v,%v]},
			"properties":{"result_type":"building","street":"x","housenumber":"1"}}]}`, pt[0], pt[1])
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newService(t *testing.T, calls *atomic.Int32) *geocoding.Service {
	t.Helper()
	logger := discardLogger()
	provider := geoapify.NewClient(geoapify.Config{
		APIKey:  "test",
		BaseURL: fakeGeoapify(t, calls).URL,
		Timeout: 5 * time.Second,
	}, logger)
	cache := geocache.New(storage.NewMemoryStore(), geocache.Options{}, logger)
	return geocoding.NewService(provider, cache, geocoding.DefaultOptions(), logger, observability.NewMetricsForTesting())
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 2 * time.Second,
	}
}

type sinkMessage struct {
	Result  domain.GeocodeResult
	Key     string
	Headers map[string]string
}

func readResult(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var res domain.GeocodeResult
	require.NoError(t, json.Unmarshal(msg.Value, &res), "unmarshal sink message")
	return sinkMessage{Result: res, Key: string(msg.Key), Headers: headers}
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

func publish(ctx context.Context, t *testing.T, broker string, msgs ...kafkago.Message) {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

func request(t *testing.T, id, address string) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(domain.GeocodeRequest{ID: id, Address: address})
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(id), Value: payload}
}

// TestKafkaReaderWriter round-trips one request through the adapters.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	publish(ctx, t, broker, request(t, "req-1", "cra 7 # 32-16"))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	batch, err := reader.ExtractBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("req-1"), raw.Key)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	req, err := domain.ParseGeocodeRequest(raw)
	require.NoError(t, err)

	var calls atomic.Int32
	g := pipeline.NewGeocoder(newService(t, &calls), discardLogger())
	results := g.GeocodeBatch(ctx, []domain.GeocodeRequest{req})

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, results))

	sm := readResult(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, "req-1", sm.Key)
	assert.Equal(t, "true", sm.Headers["resolved"])
	_, err = time.Parse(time.RFC3339, sm.Headers["resolved_at"])
	require.NoError(t, err, "resolved_at should be valid RFC3339")

	assert.Equal(t, "Carrera 7 Número 32-16", sm.Result.Normalized)
	require.NotNil(t, sm.Result.Coordinate)
	assert.Equal(t, domain.Coordinate{Lat: 4.6203, Lon: -74.0686}, *sm.Result.Coordinate)
}

// TestPipelineEndToEnd runs Reader, Service and Writer together. A poison
// message is skipped, an unknown address is published unresolved and a
// repeated address is answered from the cache.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	publish(ctx, t, broker,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		request(t, "a", "cra 7 # 32-16"),
		request(t, "b", "cl 72 # 10-34"),
		request(t, "c", "ak 15 n° 93-60"),
		request(t, "d", "calle falsa 123"),
	)

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	var calls atomic.Int32
	svc := newService(t, &calls)
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewGeocoder(svc, discardLogger()), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	got := map[string]sinkMessage{}
	for len(got) < 4 {
		sm := readResult(ctx, t, consumer)
		got[sm.Key] = sm
	}

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	require.Error(t, err, "the poison message must not reach the sink")

	pipelineCancel()
	require.NoError(t, <-errCh)
	require.NoError(t, p.CheckReadiness(ctx))

	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, got[id].Result.Resolved, id)
		assert.Equal(t, "true", got[id].Headers["resolved"], id)
	}
	assert.False(t, got["d"].Result.Resolved)
	assert.Nil(t, got["d"].Result.Coordinate)
	assert.Equal(t, "Avenida Carrera 15 Número 93-60", got["c"].Result.Normalized)

	before := calls.Load()
	_, ok := svc.Resolve(ctx, "cra 7 # 32-16")
	require.True(t, ok)
	assert.Equal(t, before, calls.Load(), "resolved addresses are cached")
}

//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/snowex-etl-service/internal/adapter/kafka"
	"github.com/couchcryptid/snowex-etl-service/internal/adapter/store"
	"github.com/couchcryptid/snowex-etl-service/internal/config"
	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/observability"
	"github.com/couchcryptid/snowex-etl-service/internal/pipeline"
)

const testEventsTopic = "test-uploads"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("snowex-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
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
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// receivedEvent is an upload event read back from the topic.
type receivedEvent struct {
	Event   pipeline.UploadEvent
	Key     string
	Headers map[string]string
}

func readEvent(ctx context.Context, t *testing.T, consumer *kafkago.Reader) receivedEvent {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from events topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var evt pipeline.UploadEvent
	require.NoError(t, json.Unmarshal(msg.Value, &evt), "unmarshal upload event")
	return receivedEvent{Event: evt, Key: string(msg.Key), Headers: headers}
}

// TestProfileBatchPublishesEvents runs a profile batch against SQLite and
// checks that one event per file reaches Kafka.
func TestProfileBatchPublishesEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testEventsTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaEventsTopic: testEventsTopic,
	}
	publisher := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	db, err := store.Open("sqlite", fmt.Sprintf("file:integration-%d?mode=memory&cache=shared", time.Now().UnixNano()), discardLogger())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	metrics := observability.NewMetricsForTesting()
	st := store.New(db, discardLogger(), metrics)
	uploader := pipeline.NewProfileUploader(st, nil, discardLogger(), metrics)
	opts := domain.Options{Timezone: "MST"}

	batch := pipeline.NewBatch(func(ctx context.Context, path string) (pipeline.Result, error) {
		return uploader.Upload(ctx, path, opts)
	}, pipeline.BatchConfig{Kind: "profile", Publisher: publisher}, discardLogger(), metrics)

	files := []string{
		"../pipeline/testdata/density.csv",
		"../pipeline/testdata/missing.csv",
		"../pipeline/testdata/stratigraphy.csv",
	}
	rep, err := batch.Push(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Uploaded)
	require.Len(t, rep.Errors, 1)

	var layers int64
	require.NoError(t, db.Model(&store.LayerData{}).Count(&layers).Error)
	assert.Equal(t, int64(rep.Rows), layers)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testEventsTopic,
		GroupID:     fmt.Sprintf("test-events-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make([]receivedEvent, 0, len(files))
	for len(received) < len(files) {
		received = append(received, readEvent(ctx, t, consumer))
	}

	for i, re := range received {
		assert.Equal(t, rep.RunID.String(), re.Key)
		assert.Equal(t, rep.RunID, re.Event.RunID)
		assert.Equal(t, files[i], re.Event.File, "events keep file order on one partition")
		assert.Equal(t, "profile", re.Headers["kind"])
		assert.Equal(t, re.Event.Status, re.Headers["status"])
		_, err := time.Parse(time.RFC3339, re.Headers["finished_at"])
		assert.NoError(t, err, "finished_at should be valid RFC3339")
	}
	assert.Equal(t, pipeline.StatusUploaded, received[0].Event.Status)
	assert.Equal(t, pipeline.StatusFailed, received[1].Event.Status)
	assert.Equal(t, "parse", received[1].Event.ErrorKind)
	assert.Equal(t, pipeline.StatusUploaded, received[2].Event.Status)
}

// TestPublisherUnreachableBroker checks that a dead broker does not fail a batch.
func TestPublisherUnreachableBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	publisher := kafka.NewPublisher(&config.Config{
		KafkaBrokers:     []string{"127.0.0.1:1"},
		KafkaEventsTopic: testEventsTopic,
	}, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	batch := pipeline.NewBatch(func(context.Context, string) (pipeline.Result, error) {
		return pipeline.Result{Rows: 1}, nil
	}, pipeline.BatchConfig{Kind: "site", Publisher: publisher}, discardLogger(), observability.NewMetricsForTesting())

	rep, err := batch.Push(ctx, []string{"a.csv"})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Uploaded)
}

package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/talentwire/cv-ingest/internal/domain"
)

// BatchRunner executes one batch ingestion task end to end.
type BatchRunner interface {
	RunBatch(ctx domain.Context, payload domain.BatchTaskPayload) error
}

// Consumer reads batch tasks from Redpanda and hands them to a runner.
// Records are processed by a bounded worker pool; offsets auto-commit
// after processing marks.
type Consumer struct {
	client *kgo.Client
	runner BatchRunner

	groupID    string
	topic      string
	maxWorkers int

	shutdown chan struct{}
	once     sync.Once
}

// NewConsumer constructs a group Consumer for the ingestion topic.
func NewConsumer(brokers []string, groupID string, runner BatchRunner, maxWorkers int) (*Consumer, error) {
	return NewConsumerWithTopic(brokers, groupID, runner, maxWorkers, TopicIngestBatches)
}

// NewConsumerWithTopic constructs a Consumer on a custom topic. Tests use
// unique topics for isolation.
func NewConsumerWithTopic(brokers []string, groupID string, runner BatchRunner, maxWorkers int, topic string) (*Consumer, error) {
	slog.Info("creating redpanda consumer",
		slog.Any("brokers", brokers),
		slog.String("group_id", groupID),
		slog.String("topic", topic),
		slog.Int("max_workers", maxWorkers))

	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if groupID == "" {
		return nil, fmt.Errorf("missing required group ID")
	}
	if runner == nil {
		return nil, fmt.Errorf("missing batch runner")
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	ctx := context.Background()
	tempClient, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("temp client: %w", err)
	}
	defer tempClient.Close()

	if err := createTopicIfNotExists(ctx, tempClient, topic, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", topic),
			slog.Any("error", err))
	}

	kotelTracer := kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
	)
	kotelService := kotel.NewKotel(
		kotel.WithTracer(kotelTracer),
	)

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.WithHooks(kotelService.Hooks()...),

		kgo.DialTimeout(10 * time.Second),
		kgo.SessionTimeout(30 * time.Second),
		kgo.HeartbeatInterval(3 * time.Second),
		kgo.RebalanceTimeout(10 * time.Second),

		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(1 * time.Second),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("redpanda consumer client: %w", err)
	}

	return &Consumer{
		client:     client,
		runner:     runner,
		groupID:    groupID,
		topic:      topic,
		maxWorkers: maxWorkers,
		shutdown:   make(chan struct{}),
	}, nil
}

// Start consumes until the context is cancelled or Close is called.
// Each polled record is dispatched to the worker pool; the poll loop
// blocks when all workers are busy.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("starting redpanda consumer",
		slog.String("group_id", c.groupID),
		slog.String("topic", c.topic),
		slog.Int("max_workers", c.maxWorkers))

	sem := make(chan struct{}, c.maxWorkers)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-c.shutdown:
			wg.Wait()
			return nil
		default:
		}

		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			wg.Wait()
			return nil
		}
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("fetch error",
				slog.String("topic", topic),
				slog.Int("partition", int(partition)),
				slog.Any("error", err))
		})

		fetches.EachRecord(func(rec *kgo.Record) {
			sem <- struct{}{}
			wg.Add(1)
			go func() {
				defer func() {
					<-sem
					wg.Done()
				}()
				c.processRecord(ctx, rec)
			}()
		})
	}
}

// processRecord decodes and runs one batch task. Failed tasks are marked
// consumed anyway; the batch row already records the failure and replaying
// the record would reprocess deleted spool files.
func (c *Consumer) processRecord(ctx context.Context, rec *kgo.Record) {
	var payload domain.BatchTaskPayload
	if err := json.Unmarshal(rec.Value, &payload); err != nil {
		slog.Error("dropping undecodable record",
			slog.String("topic", rec.Topic),
			slog.Int64("offset", rec.Offset),
			slog.Any("error", err))
		c.client.MarkCommitRecords(rec)
		return
	}

	slog.Info("processing batch task",
		slog.String("batch_id", payload.BatchID),
		slog.Int("files", len(payload.Files)),
		slog.Int64("offset", rec.Offset))

	if err := c.runner.RunBatch(ctx, payload); err != nil {
		slog.Error("batch task failed",
			slog.String("batch_id", payload.BatchID),
			slog.Any("error", err))
	}
	c.client.MarkCommitRecords(rec)
}

// Close stops the poll loop and releases the client.
func (c *Consumer) Close() error {
	c.once.Do(func() { close(c.shutdown) })
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

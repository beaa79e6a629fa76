// Package redpanda provides Redpanda/Kafka queue integration.
//
// It carries batch ingestion tasks from the API to the worker with
// exactly-once publishing semantics so a batch is never processed
// twice after a producer retry.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/talentwire/cv-ingest/internal/domain"
)

const (
	// TopicIngestBatches is the Kafka topic for batch ingestion tasks.
	TopicIngestBatches = "ingest-batches"
)

// Producer wraps a transactional Kafka producer and implements domain.Queue.
type Producer struct {
	client *kgo.Client
	// Buffered channel of size 1 serializing transactions across goroutines.
	transactionChan chan struct{}
}

// NewProducer constructs a Producer with exactly-once semantics.
func NewProducer(brokers []string) (*Producer, error) {
	return NewProducerWithTransactionalID(brokers, "cv-ingest-producer")
}

// NewProducerWithTransactionalID constructs a Producer with a custom
// transactional ID. Tests use this to avoid conflicts between producers.
func NewProducerWithTransactionalID(brokers []string, transactionalID string) (*Producer, error) {
	slog.Info("creating redpanda producer", slog.Any("brokers", brokers), slog.String("transactional_id", transactionalID))

	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.TransactionalID(transactionalID),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		slog.Error("failed to create redpanda client", slog.Any("error", err))
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	ctx := context.Background()
	if err := createTopicIfNotExists(ctx, client, TopicIngestBatches, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", TopicIngestBatches),
			slog.Any("error", err))
	}

	return &Producer{
		client:          client,
		transactionChan: make(chan struct{}, 1),
	}, nil
}

// EnqueueBatch publishes a batch ingestion task with exactly-once semantics.
func (p *Producer) EnqueueBatch(ctx domain.Context, payload domain.BatchTaskPayload) (string, error) {
	return p.EnqueueBatchToTopic(ctx, payload, TopicIngestBatches)
}

// EnqueueBatchToTopic publishes to a specific topic. Tests use unique
// topics for isolation.
func (p *Producer) EnqueueBatchToTopic(ctx domain.Context, payload domain.BatchTaskPayload, topic string) (string, error) {
	slog.Info("enqueueing batch task",
		slog.String("batch_id", payload.BatchID),
		slog.Int("files", len(payload.Files)),
		slog.String("topic", topic))

	// Serialize transactions; a kgo client allows one open transaction.
	select {
	case p.transactionChan <- struct{}{}:
		defer func() { <-p.transactionChan }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := p.client.BeginTransaction(); err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		// Batch ID as key keeps retries of the same batch ordered.
		Key:   []byte(payload.BatchID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "batch_id", Value: []byte(payload.BatchID)},
			{Key: "requisition_id", Value: []byte(payload.RequisitionID)},
			{Key: "file_count", Value: []byte(strconv.Itoa(len(payload.Files)))},
		},
	}

	e := kgo.AbortingFirstErrPromise(p.client)
	p.client.Produce(ctx, record, e.Promise())

	if err := e.Err(); err != nil {
		slog.Error("failed to produce message",
			slog.String("batch_id", payload.BatchID),
			slog.String("topic", topic),
			slog.Any("error", err))
		if abortErr := p.client.EndTransaction(ctx, kgo.TryAbort); abortErr != nil {
			slog.Error("failed to abort transaction", slog.Any("error", abortErr))
		}
		return "", fmt.Errorf("produce: %w", err)
	}

	if err := p.client.EndTransaction(ctx, kgo.TryCommit); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("batch enqueued", slog.String("topic", topic), slog.String("batch_id", payload.BatchID))
	return payload.BatchID, nil
}

// Ping verifies broker connectivity. Used by readiness checks.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close closes the producer.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}

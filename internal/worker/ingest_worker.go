package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"examgen/internal/model"
	"examgen/internal/platform/rabbitmq"
)

type DocumentProcessor interface {
	Process(ctx context.Context, name string) (*model.DocumentState, error)
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeReject
	outcomeRequeue
)

// IngestWorker consumes ingest jobs one at a time. A job whose outcome was
// recorded on the document is acked even when ingestion failed; jobs that
// could not be decoded or recorded are dead-lettered. Jobs interrupted by
// shutdown go back on the queue.
type IngestWorker struct {
	conn      *amqp.Connection
	processor DocumentProcessor
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, processor DocumentProcessor, queueName string, logger *slog.Logger) *IngestWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestWorker{
		conn:      conn,
		processor: processor,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				switch w.handle(workerCtx, d.Body) {
				case outcomeAck:
					_ = d.Ack(false)
				case outcomeRequeue:
					_ = d.Nack(false, true)
				default:
					_ = d.Nack(false, false)
				}
			}
		}
	}()

	w.logger.Info("ingest worker started", "queue", w.queueName)
	return nil
}

func (w *IngestWorker) handle(ctx context.Context, body []byte) outcome {
	var job model.IngestJob
	if err := json.Unmarshal(body, &job); err != nil || job.Document == "" {
		w.logger.Error("decode ingest job failed", "error", err, "body", string(body))
		return outcomeReject
	}

	state, err := w.processor.Process(ctx, job.Document)
	if err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil) {
		w.logger.Warn("ingest job interrupted, requeueing", "job_id", job.ID, "document", job.Document, "error", err)
		return outcomeRequeue
	}
	if err != nil && state == nil {
		w.logger.Error("ingest job failed", "job_id", job.ID, "document", job.Document, "error", err)
		return outcomeReject
	}
	if err != nil {
		w.logger.Warn("ingest job finished with error", "job_id", job.ID, "document", job.Document, "error", err)
		return outcomeAck
	}
	w.logger.Info("ingest job done", "job_id", job.ID, "document", job.Document, "chunks", state.ChunkCount)
	return outcomeAck
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

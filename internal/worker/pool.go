package worker

import (
	"context"
	"errors"
	"sync"

	"docqa/internal/rag/pipeline"
	"docqa/pkg/logger"
)

// Ingestor runs one ingestion job end to end.
type Ingestor interface {
	Run(ctx context.Context, documentID uint, content []byte, reingest bool) (*pipeline.Outcome, error)
}

// ContentFetcher retrieves and disposes of raw uploaded bytes.
type ContentFetcher interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

// FailureRecorder marks a document failed when a job dies before the
// pipeline could take ownership of the status.
type FailureRecorder interface {
	MarkFailed(ctx context.Context, id uint, message string) error
}

// Pool consumes ingestion jobs from a queue with a fixed number of workers.
type Pool struct {
	queue   Queue
	content ContentFetcher
	ingest  Ingestor
	records FailureRecorder
	size    int
	log     *logger.Logger

	wg sync.WaitGroup
}

// NewPool creates a Pool of the given size.
func NewPool(queue Queue, content ContentFetcher, ingest Ingestor, records FailureRecorder, size int, log *logger.Logger) *Pool {
	if size <= 0 {
		size = 4
	}
	return &Pool{
		queue:   queue,
		content: content,
		ingest:  ingest,
		records: records,
		size:    size,
		log:     log,
	}
}

// Start launches the workers. They run until the context ends or the queue
// closes.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	log := p.log.WithField("worker", id)
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.WithError(err).Error("failed to dequeue ingestion job")
			continue
		}
		p.handle(ctx, log, job)
	}
}

// handle fetches the raw bytes, runs the pipeline and disposes of the object.
// The object is removed on every exit path; a leftover would only waste
// storage since re-ingestion uploads fresh bytes.
func (p *Pool) handle(ctx context.Context, log *logger.Logger, job Job) {
	log = log.WithField("document_id", job.DocumentID)

	defer func() {
		if job.ObjectKey == "" {
			return
		}
		if err := p.content.Remove(ctx, job.ObjectKey); err != nil {
			log.WithError(err).Warn("failed to remove raw content object")
		}
	}()

	content, err := p.content.Get(ctx, job.ObjectKey)
	if err != nil {
		log.WithError(err).Error("failed to fetch raw content for ingestion")
		if markErr := p.records.MarkFailed(ctx, job.DocumentID, "raw content unavailable: "+err.Error()); markErr != nil {
			log.WithError(markErr).Error("failed to record fetch failure")
		}
		return
	}

	outcome, err := p.ingest.Run(ctx, job.DocumentID, content, job.Reingest)
	if err != nil {
		log.WithError(err).Error("ingestion run failed")
		return
	}
	log.WithPayload(map[string]interface{}{
		"status": string(outcome.Status),
		"chunks": outcome.ChunkCount,
	}).Info("ingestion run finished")
}

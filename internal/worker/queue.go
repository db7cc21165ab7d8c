// Package worker runs ingestion jobs asynchronously: the API enqueues, a
// bounded worker pool dequeues and drives the ingestion pipeline. The queue
// is pluggable so a single process can use an in-memory channel while a
// deployment with separate ingestion nodes goes through Kafka.
package worker

import "context"

// Job is one ingestion request. ObjectKey locates the raw bytes in the
// content store.
type Job struct {
	DocumentID uint   `json:"document_id"`
	ObjectKey  string `json:"object_key"`
	Reingest   bool   `json:"reingest"`
}

// Queue transports ingestion jobs from the API to the worker pool.
type Queue interface {
	// Enqueue hands a job to the queue. It returns an error when the queue
	// is full or unreachable; the caller surfaces that to the uploader
	// instead of dropping the job silently.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue blocks until a job is available or the context ends.
	Dequeue(ctx context.Context) (Job, error)

	// Close releases the queue's resources. Blocked Dequeue calls return.
	Close() error
}

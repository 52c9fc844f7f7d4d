package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Job handles every message of one type.
type Job interface {
	// Type returns the message type this job consumes.
	Type() string

	// Handle processes one raw JSON payload.
	Handle(ctx context.Context, payload []byte) error
}

// Config tunes the consumer side of a queue.
type Config struct {
	Workers    int           // number of BRPOP workers
	RetryLimit int           // retries before a message goes to the dead-letter list
	RetryDelay time.Duration // delay before a failed message is retried
	PollEvery  time.Duration // how often due retries are moved back to the main list
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// Package queue is a Redis list backed job queue with delayed retries and a
// dead letter list.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Job handles every message of one type.
type Job interface {
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Enqueuer accepts new work.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
}

type Config struct {
	Workers     int           // number of workers
	RetryLimit  int           // retries before a message goes to the dead letter list
	RetryDelay  time.Duration // delay before a failed message is retried
	PollTimeout time.Duration // BRPOP timeout; bounds shutdown latency
	KeyPrefix   string
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "fundsignal:queue"
	}
}

// Message is the stored envelope of a job payload.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// DecodePayload unmarshals a message payload into T.
func DecodePayload[T any](payload json.RawMessage) (*T, error) {
	var out T
	if len(payload) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type runPayload struct {
	Codes []string `json:"codes"`
	Days  int      `json:"days"`
}

type noopJob struct{}

func (noopJob) Type() string                                  { return "report.run" }
func (noopJob) Handle(context.Context, json.RawMessage) error { return nil }

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload[runPayload](json.RawMessage(`{"codes":["110020"],"days":5}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.Codes) != 1 || p.Codes[0] != "110020" || p.Days != 5 {
		t.Fatalf("unexpected payload %+v", p)
	}

	empty, err := DecodePayload[runPayload](nil)
	if err != nil || empty.Days != 0 {
		t.Fatalf("empty payload should decode to zero value, got %+v %v", empty, err)
	}

	if _, err := DecodePayload[runPayload](json.RawMessage(`{"days":"x"}`)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNextAttempt(t *testing.T) {
	msg := Message{ID: "1"}
	var retry bool
	for i := 1; i <= 3; i++ {
		msg, retry = nextAttempt(msg, 2)
		if msg.Attempts != i {
			t.Fatalf("attempts = %d, want %d", msg.Attempts, i)
		}
		if want := i <= 2; retry != want {
			t.Fatalf("attempt %d: retry = %v, want %v", i, retry, want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	q := NewRedisQueue(nil, nil, Config{})
	if q.cfg.Workers != 1 || q.cfg.RetryDelay != 10*time.Second || q.cfg.PollTimeout != time.Second {
		t.Fatalf("unexpected defaults %+v", q.cfg)
	}
	if q.queueKey() != "fundsignal:queue:messages" || q.deadLetterKey() != "fundsignal:queue:dlq" {
		t.Fatalf("unexpected keys %s %s", q.queueKey(), q.deadLetterKey())
	}
}

func TestEnqueueRejectsUnknownType(t *testing.T) {
	q := NewRedisQueue(nil, nil, Config{})
	q.Register(noopJob{})
	if _, err := q.Enqueue(context.Background(), "other", nil); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

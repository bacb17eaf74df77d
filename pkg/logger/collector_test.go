package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingPublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *recordingPublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestCollectorDeduplicatesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("fetch failed", String("code", "110020"), Error(errors.New("timeout")))
	}
	l.Error("fetch failed", String("code", "001051"), Error(errors.New("timeout")))
	l.Info("not collected")
	l.RemoveCollector()

	if pub.topic != "logs" {
		t.Fatalf("topic = %q, want logs", pub.topic)
	}
	if len(pub.batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(pub.batches))
	}
	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Fields["code"].(string)] = e.Count
	}
	if counts["110020"] != 3 || counts["001051"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")
	c.Close()

	if len(pub.batches) != 1 || len(pub.batches[0]) != 2 {
		t.Fatalf("expected a single batch of two entries, got %v", pub.batches)
	}
}

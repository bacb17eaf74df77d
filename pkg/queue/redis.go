package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"FundSignal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrUnknownType is returned when enqueuing a type no job handles.
var ErrUnknownType = errors.New("no job registered for type")

// RedisQueue stores pending messages in a list, retries in a sorted set scored
// by due time and exhausted messages in a dead letter list.
type RedisQueue struct {
	log    *logger.Logger
	cfg    Config
	client *redis.Client

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRedisQueue(log *logger.Logger, client *redis.Client, cfg Config) *RedisQueue {
	cfg.setDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &RedisQueue{log: log, cfg: cfg, client: client, jobs: make(map[string]Job)}
}

// Register adds a job. A second job for the same type is ignored.
func (r *RedisQueue) Register(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Type()]; ok {
		r.log.Warn("job already registered", logger.String("type", job.Type()))
		return
	}
	r.jobs[job.Type()] = job
}

func (r *RedisQueue) job(msgType string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[msgType]
	return j, ok
}

// Enqueue pushes a message and returns its id.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	if _, ok := r.job(msgType); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, msgType)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	msg := Message{ID: uuid.NewString(), Type: msgType, Payload: raw, EnqueuedAt: time.Now().UTC()}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return "", fmt.Errorf("lpush: %w", err)
	}
	return msg.ID, nil
}

// Start launches the workers and the retry mover.
func (r *RedisQueue) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("queue already running")
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	ctx, r.cancel = context.WithCancel(context.Background())
	r.running = true
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}
	r.wg.Add(1)
	go r.retryLoop(ctx)

	r.log.Info("redis queue started",
		logger.Int("workers", r.cfg.Workers),
		logger.String("prefix", r.cfg.KeyPrefix))
	return nil
}

// Stop cancels the workers and waits for in-flight jobs or ctx.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for queue workers: %w", ctx.Err())
	case <-done:
		r.log.Info("redis queue stopped")
		return nil
	}
}

func (r *RedisQueue) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	for ctx.Err() == nil {
		res, err := r.client.BRPop(ctx, r.cfg.PollTimeout, r.queueKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			r.log.Error("brpop error", logger.Int("worker_id", id), logger.Error(err))
			sleep(ctx, time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.log.Error("unmarshal message", logger.Error(err))
			continue
		}
		r.process(ctx, msg)
	}
}

func (r *RedisQueue) process(ctx context.Context, msg Message) {
	job, ok := r.job(msg.Type)
	if !ok {
		r.log.Error("no job for message", logger.String("type", msg.Type), logger.String("id", msg.ID))
		r.push(r.deadLetterKey(), msg)
		return
	}

	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	if err == nil {
		r.log.Info("job done",
			logger.String("id", msg.ID),
			logger.String("type", msg.Type),
			logger.Duration("duration_ms", time.Since(start)))
		return
	}
	if errors.Is(err, context.Canceled) {
		r.log.Warn("job cancelled", logger.String("id", msg.ID), logger.String("type", msg.Type))
		return
	}

	r.log.Error("job failed",
		logger.String("id", msg.ID),
		logger.String("type", msg.Type),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))
	next, retry := nextAttempt(msg, r.cfg.RetryLimit)
	if !retry {
		r.push(r.deadLetterKey(), next)
		return
	}
	r.scheduleRetry(next, time.Now().Add(r.cfg.RetryDelay))
}

// nextAttempt bumps the attempt count and reports whether the message still
// has retries left.
func nextAttempt(msg Message, limit int) (Message, bool) {
	msg.Attempts++
	return msg, msg.Attempts <= limit
}

func (r *RedisQueue) push(key string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshal message", logger.Error(err))
		return
	}
	if err := r.client.LPush(context.Background(), key, data).Err(); err != nil {
		r.log.Error("lpush", logger.String("key", key), logger.Error(err))
	}
}

func (r *RedisQueue) scheduleRetry(msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshal retry", logger.Error(err))
		return
	}
	err = r.client.ZAdd(context.Background(), r.retryKey(), redis.Z{
		Score:  float64(at.Unix()),
		Member: data,
	}).Err()
	if err != nil {
		r.log.Error("zadd retry", logger.Error(err))
	}
}

func (r *RedisQueue) retryLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.moveDue(ctx)
		}
	}
}

// moveDue requeues retries whose due time has passed.
func (r *RedisQueue) moveDue(ctx context.Context) {
	due, err := r.client.ZRangeByScore(ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			r.log.Error("fetch retry messages", logger.Error(err))
		}
		return
	}
	for _, data := range due {
		pipe := r.client.TxPipeline()
		pipe.ZRem(ctx, r.retryKey(), data)
		pipe.LPush(ctx, r.queueKey(), data)
		if _, err := pipe.Exec(ctx); err != nil {
			if ctx.Err() == nil {
				r.log.Error("move retry to queue", logger.Error(err))
			}
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (r *RedisQueue) queueKey() string      { return r.cfg.KeyPrefix + ":messages" }
func (r *RedisQueue) retryKey() string      { return r.cfg.KeyPrefix + ":retry" }
func (r *RedisQueue) deadLetterKey() string { return r.cfg.KeyPrefix + ":dlq" }

package redisfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	gferrors "github.com/vnykmshr/workerpool/pkg/common/errors"
	"github.com/vnykmshr/workerpool/pkg/common/validation"
	"github.com/vnykmshr/workerpool/pkg/metrics"
	"github.com/vnykmshr/workerpool/pkg/scheduling/workerpool"
)

// Message is the envelope stored in the Redis list.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Handler string          `json:"handler"`
	Payload json.RawMessage `json:"payload,omitempty"`
	SentAt  time.Time       `json:"sent_at"`
}

// Handler processes the payload of one message on a pool worker. ctx is the
// context passed to Run, so a job still queued when the consumer stops
// starts with ctx already canceled.
type Handler func(ctx context.Context, payload []byte)

// Rejection reasons reported through metrics.
const (
	ReasonDecode         = "decode"
	ReasonUnknownHandler = "unknown_handler"
	ReasonSubmit         = "submit"
)

// Config holds consumer configuration.
type Config struct {
	// Redis client for the list.
	Redis redis.UniversalClient

	// Key is the Redis list the consumer pops from.
	Key string

	// PollTimeout bounds each BLPOP so Run notices cancellation. Default 1s.
	PollTimeout time.Duration

	// RetryDelay is the pause after a transport error. Default 500ms.
	RetryDelay time.Duration

	// OnError is called for transport errors and dropped messages.
	OnError func(err error)

	// Name labels the feed's metrics. Defaults to Key.
	Name string

	// Metrics receives feed instrumentation when non-nil.
	Metrics *metrics.Registry
}

// Consumer pops messages from a Redis list and submits them as jobs.
type Consumer struct {
	exec   workerpool.Executor
	config Config

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewConsumer creates a consumer feeding exec.
func NewConsumer(exec workerpool.Executor, config Config) (*Consumer, error) {
	if err := validation.ValidateNotNil("redisfeed", "executor", exec); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotNil("redisfeed", "Redis", config.Redis); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotEmpty("redisfeed", "Key", config.Key); err != nil {
		return nil, err
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if config.Name == "" {
		config.Name = config.Key
	}

	return &Consumer{
		exec:     exec,
		config:   config,
		handlers: make(map[string]Handler),
	}, nil
}

// Handle registers h for messages naming handler name.
func (c *Consumer) Handle(name string, h Handler) error {
	if err := validation.ValidateNotEmpty("redisfeed", "handler name", name); err != nil {
		return err
	}
	if h == nil {
		return gferrors.NewValidationError("redisfeed", "handler", nil, "cannot be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.handlers[name]; exists {
		return fmt.Errorf("handler %q: %w", name, gferrors.ErrDuplicate)
	}
	c.handlers[name] = h
	return nil
}

// Run pops and dispatches messages until ctx is canceled. It returns nil on
// cancellation; transport errors are reported and retried.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		res, err := c.config.Redis.BLPop(ctx, c.config.PollTimeout, c.config.Key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			c.countError()
			c.report(gferrors.NewOperationError("redisfeed", "BLPop", err).WithContext("key " + c.config.Key))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.config.RetryDelay):
			}
			continue
		}

		// BLPOP replies with [key, value].
		if len(res) == 2 {
			c.dispatch(ctx, res[1])
		}
	}
}

// dispatch decodes one raw envelope and submits its job.
func (c *Consumer) dispatch(ctx context.Context, raw string) {
	c.countReceived()

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		c.reject(ReasonDecode, fmt.Errorf("decode message: %w", err))
		return
	}

	c.mu.RLock()
	h, ok := c.handlers[msg.Handler]
	c.mu.RUnlock()
	if !ok {
		c.reject(ReasonUnknownHandler, fmt.Errorf("message %q: handler %q: %w", msg.ID, msg.Handler, gferrors.ErrNotFound))
		return
	}

	payload := []byte(msg.Payload)
	if err := c.exec.Execute(func() { h(ctx, payload) }); err != nil {
		c.reject(ReasonSubmit, fmt.Errorf("message %q: %w", msg.ID, err))
	}
}

func (c *Consumer) reject(reason string, err error) {
	if c.config.Metrics != nil {
		c.config.Metrics.FeedRejected.WithLabelValues(c.config.Name, reason).Inc()
	}
	c.report(err)
}

func (c *Consumer) report(err error) {
	if c.config.OnError != nil {
		c.config.OnError(err)
	}
}

func (c *Consumer) countReceived() {
	if c.config.Metrics != nil {
		c.config.Metrics.FeedReceived.WithLabelValues(c.config.Name).Inc()
	}
}

func (c *Consumer) countError() {
	if c.config.Metrics != nil {
		c.config.Metrics.FeedErrors.WithLabelValues(c.config.Name).Inc()
	}
}

// Producer appends messages to a Redis list.
type Producer struct {
	rdb redis.UniversalClient
	key string
	now func() time.Time
}

// NewProducer creates a producer writing to key.
func NewProducer(rdb redis.UniversalClient, key string) *Producer {
	return &Producer{rdb: rdb, key: key, now: time.Now}
}

// Publish encodes payload as JSON and appends a message for handler.
func (p *Producer) Publish(ctx context.Context, handler string, payload interface{}) error {
	return p.PublishMessage(ctx, handler, "", payload)
}

// PublishMessage is Publish with a caller-chosen message id.
func (p *Producer) PublishMessage(ctx context.Context, handler, id string, payload interface{}) error {
	raw, err := encode(handler, id, payload, p.now())
	if err != nil {
		return err
	}
	if err := p.rdb.RPush(ctx, p.key, raw).Err(); err != nil {
		return gferrors.NewOperationError("redisfeed", "Publish", err).WithContext("key " + p.key)
	}
	return nil
}

// Len returns the number of messages waiting in the list.
func (p *Producer) Len(ctx context.Context) (int64, error) {
	return p.rdb.LLen(ctx, p.key).Result()
}

func encode(handler, id string, payload interface{}, now time.Time) ([]byte, error) {
	if err := validation.ValidateNotEmpty("redisfeed", "handler", handler); err != nil {
		return nil, err
	}

	msg := Message{ID: id, Handler: handler, SentAt: now.UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		msg.Payload = data
	}
	return json.Marshal(msg)
}

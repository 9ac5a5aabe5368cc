package link

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a Redis pub/sub link.
type RedisConfig struct {
	// Namespace prefixes every channel as "<namespace>:<topic>". Empty means no prefix.
	Namespace      string
	ConnectTimeout time.Duration
	InboxSize      int
}

// Redis is a Link over Redis pub/sub. Topics map one-to-one onto channels.
type Redis struct {
	cfg RedisConfig
	rdb *redis.Client
	d   *dispatcher

	mu        sync.Mutex
	pubsub    *redis.PubSub
	readers   sync.WaitGroup
	connected atomic.Bool
	closed    atomic.Bool
}

// NewRedis creates an unconnected Redis link.
func NewRedis(opts *redis.Options, cfg RedisConfig) *Redis {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	return &Redis{
		cfg: cfg,
		rdb: redis.NewClient(opts),
		d:   newDispatcher(cfg.InboxSize),
	}
}

// Channel returns the Redis channel that carries topic.
func (r *Redis) Channel(topic string) string {
	if r.cfg.Namespace == "" {
		return topic
	}
	return r.cfg.Namespace + ":" + topic
}

func (r *Redis) topic(channel string) string {
	if r.cfg.Namespace == "" {
		return channel
	}
	return strings.TrimPrefix(channel, r.cfg.Namespace+":")
}

func (r *Redis) OnMessage(h Handler) {
	r.d.setHandler(h)
}

func (r *Redis) IsConnected() bool {
	return r.connected.Load()
}

// Connect verifies the server is reachable. go-redis dials lazily, so a
// successful PING is what marks the link up.
func (r *Redis) Connect(ctx context.Context) error {
	if r.closed.Load() {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ConnectTimeout)
	defer cancel()

	if err := r.rdb.Ping(ctx).Err(); err != nil {
		r.connected.Store(false)
		return fmt.Errorf("redis ping %s: %w", r.rdb.Options().Addr, err)
	}
	if !r.connected.Swap(true) {
		log.Printf("[INFO] Redis connected to %s", r.rdb.Options().Addr)
	}
	return nil
}

// Subscribe replaces the current subscription set with topics.
func (r *Redis) Subscribe(ctx context.Context, topics ...string) error {
	if len(topics) == 0 {
		return nil
	}
	if !r.IsConnected() {
		return ErrNotConnected
	}

	channels := make([]string, len(topics))
	for i, topic := range topics {
		channels[i] = r.Channel(topic)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeSubscriptionLocked()

	pubsub := r.rdb.Subscribe(ctx, channels...)
	// Wait for the subscription confirmation so messages published after
	// Subscribe returns are not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		r.markDown(err)
		return fmt.Errorf("redis subscribe %v: %w", channels, err)
	}
	r.pubsub = pubsub

	ch := pubsub.Channel()
	r.readers.Add(1)
	go func() {
		defer r.readers.Done()
		for msg := range ch {
			r.d.deliver(r.topic(msg.Channel), []byte(msg.Payload))
		}
	}()

	log.Printf("[DEBUG] Redis subscribed to %v", channels)
	return nil
}

func (r *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	if !r.IsConnected() {
		return ErrNotConnected
	}
	if err := r.rdb.Publish(ctx, r.Channel(topic), payload).Err(); err != nil {
		r.markDown(err)
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

// markDown records a transport failure so the supervisor reconnects.
// Context errors belong to the caller and leave the link up.
func (r *Redis) markDown(err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if r.connected.Swap(false) {
		log.Printf("[WARN] Redis link down: %v", err)
	}
}

func (r *Redis) closeSubscriptionLocked() {
	if r.pubsub == nil {
		return
	}
	if err := r.pubsub.Close(); err != nil {
		log.Printf("[DEBUG] Redis pubsub close: %v", err)
	}
	r.pubsub = nil
	r.readers.Wait()
}

func (r *Redis) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.mu.Lock()
	r.closeSubscriptionLocked()
	r.mu.Unlock()

	r.connected.Store(false)
	r.d.stop()
	return r.rdb.Close()
}

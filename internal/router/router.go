package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/dyluth/tablenode/internal/display"
	"github.com/dyluth/tablenode/internal/queue"
	"github.com/dyluth/tablenode/internal/tone"
	"github.com/dyluth/tablenode/pkg/payload"
)

// ErrUnknownTopic is returned by Route for a topic with no binding.
var ErrUnknownTopic = errors.New("unknown topic")

// DefaultRelayTimeout bounds a relay publish so a stalled link cannot hold
// up message dispatch.
const DefaultRelayTimeout = 2 * time.Second

// Publisher sends a payload to a topic. Satisfied by link.Link.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Stats counts routing outcomes.
type Stats struct {
	Received     uint64 `json:"received"`
	Display      uint64 `json:"display"`
	Tone         uint64 `json:"tone"`
	Relayed      uint64 `json:"relayed"`
	UnknownTopic uint64 `json:"unknown_topic"`
	DecodeErrors uint64 `json:"decode_errors"`
	QueueFull    uint64 `json:"queue_full"`
	RelayErrors  uint64 `json:"relay_errors"`
}

// Router is the inbound message handler. It holds no mutable state apart
// from its counters and is safe to call from a single dispatch goroutine.
type Router struct {
	bindings     Bindings
	codec        payload.Codec
	width        int
	displayQ     *queue.Queue[display.Entry]
	toneQ        *queue.Queue[tone.Entry]
	relay        Publisher
	relayTimeout time.Duration

	received, displayed, tones, relayed       atomic.Uint64
	unknown, decodeErrs, queueFull, relayErrs atomic.Uint64
}

// Option customises a Router.
type Option func(*Router)

// WithCodec selects the payload codec. The default is JSON.
func WithCodec(c payload.Codec) Option {
	return func(r *Router) { r.codec = c }
}

// WithWidth sets the display width used for line layout.
func WithWidth(width int) Option {
	return func(r *Router) { r.width = width }
}

// WithRelayTimeout bounds each relay publish.
func WithRelayTimeout(d time.Duration) Option {
	return func(r *Router) { r.relayTimeout = d }
}

// New creates a router. relay may be nil when no relay bindings exist.
func New(bindings Bindings, displayQ *queue.Queue[display.Entry], toneQ *queue.Queue[tone.Entry], relay Publisher, opts ...Option) *Router {
	r := &Router{
		bindings:     bindings,
		codec:        payload.JSON,
		width:        display.Width,
		displayQ:     displayQ,
		toneQ:        toneQ,
		relay:        relay,
		relayTimeout: DefaultRelayTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnMessage routes one inbound message. Every failure is logged and the
// message discarded; nothing here blocks for longer than the queue policy
// or the relay timeout allows.
func (r *Router) OnMessage(topic string, data []byte) {
	err := r.Route(topic, data)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownTopic):
		log.Printf("[WARN] Discarding message on unbound topic %q", topic)
	case errors.Is(err, queue.ErrQueueFull):
		log.Printf("[WARN] Dropping message on %q: %v", topic, err)
	default:
		var decodeErr *payload.DecodeError
		if errors.As(err, &decodeErr) {
			log.Printf("[WARN] Discarding malformed message on %q: %v", topic, err)
			return
		}
		log.Printf("[ERROR] Failed to route message on %q: %v", topic, err)
	}
}

// Route decodes and dispatches one message, returning why it was not
// delivered: ErrUnknownTopic, a *payload.DecodeError, a wrapped
// queue.ErrQueueFull, or a relay publish error.
func (r *Router) Route(topic string, data []byte) error {
	r.received.Add(1)

	binding, ok := r.bindings.Lookup(topic)
	if !ok {
		r.unknown.Add(1)
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	switch binding.Kind {
	case KindDisplay:
		return r.routeDisplay(data)
	case KindTone:
		return r.routeTone(data)
	case KindRelay:
		return r.routeRelay(binding.Target, data)
	default:
		r.unknown.Add(1)
		return fmt.Errorf("%w: %s has kind %s", ErrUnknownTopic, topic, binding.Kind)
	}
}

func (r *Router) routeDisplay(data []byte) error {
	cmd, err := payload.DecodeDisplay(r.codec, data)
	if err != nil {
		r.decodeErrs.Add(1)
		return err
	}

	entry := display.EntryFromCommand(cmd, r.width)
	if err := r.displayQ.Enqueue(entry); err != nil {
		r.queueFull.Add(1)
		return fmt.Errorf("display queue: %w", err)
	}

	r.displayed.Add(1)
	log.Printf("[DEBUG] Queued display entry top=%q bottom=%q hold=%s", entry.Top, entry.Bottom, entry.Hold)
	return nil
}

func (r *Router) routeTone(data []byte) error {
	cmd, err := payload.DecodeTone(r.codec, data)
	if err != nil {
		r.decodeErrs.Add(1)
		return err
	}

	entry := tone.EntryFromCommand(cmd)
	if err := r.toneQ.Enqueue(entry); err != nil {
		r.queueFull.Add(1)
		return fmt.Errorf("tone queue: %w", err)
	}

	r.tones.Add(1)
	log.Printf("[DEBUG] Queued tone sequence of %d step(s)", entry.Len())
	return nil
}

func (r *Router) routeRelay(target string, data []byte) error {
	if r.relay == nil {
		r.relayErrs.Add(1)
		return fmt.Errorf("relay to %s: no publisher configured", target)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.relayTimeout)
	defer cancel()

	if err := r.relay.Publish(ctx, target, data); err != nil {
		r.relayErrs.Add(1)
		return fmt.Errorf("relay to %s: %w", target, err)
	}

	r.relayed.Add(1)
	log.Printf("[DEBUG] Relayed %d byte(s) to %s", len(data), target)
	return nil
}

// Stats returns a snapshot of the routing counters.
func (r *Router) Stats() Stats {
	return Stats{
		Received:     r.received.Load(),
		Display:      r.displayed.Load(),
		Tone:         r.tones.Load(),
		Relayed:      r.relayed.Load(),
		UnknownTopic: r.unknown.Load(),
		DecodeErrors: r.decodeErrs.Load(),
		QueueFull:    r.queueFull.Load(),
		RelayErrors:  r.relayErrs.Load(),
	}
}

package testutil

import (
	"context"
	"sync"

	"github.com/dyluth/tablenode/internal/link"
)

// Message is one payload published through a FakeLink.
type Message struct {
	Topic   string
	Payload []byte
}

// FakeLink is an in-memory link.Link. Inject delivers inbound messages
// synchronously to the registered handler.
type FakeLink struct {
	mu         sync.Mutex
	connected  bool
	connectErr error
	subErr     error
	handler    link.Handler
	subscribed []string
	published  []Message
	connects   int
	subscribes int
}

var _ link.Link = (*FakeLink)(nil)

// SetConnectError makes subsequent Connect calls fail with err (nil to succeed).
func (f *FakeLink) SetConnectError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr = err
}

// SetSubscribeError makes subsequent Subscribe calls fail with err while
// the link stays connected (nil to succeed).
func (f *FakeLink) SetSubscribeError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subErr = err
}

// Drop simulates a lost connection.
func (f *FakeLink) Drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.subscribed = nil
}

func (f *FakeLink) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *FakeLink) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *FakeLink) Subscribe(ctx context.Context, topics ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return link.ErrNotConnected
	}
	f.subscribes++
	if f.subErr != nil {
		return f.subErr
	}
	f.subscribed = append([]string(nil), topics...)
	return nil
}

func (f *FakeLink) Publish(ctx context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return link.ErrNotConnected
	}
	f.published = append(f.published, Message{Topic: topic, Payload: append([]byte(nil), payload...)})
	return nil
}

func (f *FakeLink) OnMessage(h link.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *FakeLink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

// Inject delivers an inbound message to the handler, as the link's dispatch goroutine would.
func (f *FakeLink) Inject(topic string, payload []byte) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(topic, payload)
	}
}

// Published returns a copy of everything published so far.
func (f *FakeLink) Published() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.published...)
}

// PublishedTo returns the payloads published to topic.
func (f *FakeLink) PublishedTo(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]byte
	for _, m := range f.published {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

// Subscribed returns the topics of the most recent subscription.
func (f *FakeLink) Subscribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscribed...)
}

// Connects returns how many times Connect was called.
func (f *FakeLink) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

// Subscribes returns how many subscriptions succeeded.
func (f *FakeLink) Subscribes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes
}

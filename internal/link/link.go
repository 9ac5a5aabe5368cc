// Package link is the node's connection to the message broker. Two
// transports implement Link: MQTT (paho) for deployments and Redis pub/sub
// for hosts that already run Redis. Inbound messages from either transport
// are handed to a single dispatch goroutine, so the registered Handler never
// runs concurrently with itself.
package link

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConnected is returned by Publish and Subscribe while the link is down
	ErrNotConnected = errors.New("link not connected")

	// ErrClosed is returned by operations on a closed link
	ErrClosed = errors.New("link closed")
)

// Handler receives one inbound message. It runs on the link's dispatch goroutine.
type Handler func(topic string, payload []byte)

// Link is a publish/subscribe connection that can be re-established.
type Link interface {
	// Connect establishes the connection. Calling it while connected is a no-op.
	Connect(ctx context.Context) error
	IsConnected() bool
	// Subscribe registers interest in topics. Subscriptions do not survive a
	// reconnect; callers re-subscribe after every successful Connect.
	Subscribe(ctx context.Context, topics ...string) error
	Publish(ctx context.Context, topic string, payload []byte) error
	// OnMessage sets the inbound handler. It must be called before the first Subscribe.
	OnMessage(h Handler)
	Close() error
}

// Defaults shared by both transports.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultInboxSize      = 32
)

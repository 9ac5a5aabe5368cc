package link

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig configures an MQTT link.
type MQTTConfig struct {
	Broker         string // e.g. tcp://192.168.1.10:1883
	ClientID       string
	QoS            byte
	ConnectTimeout time.Duration
	InboxSize      int
}

// MQTT is a Link over an MQTT broker. Automatic reconnection is disabled;
// the supervisor owns the retry schedule.
type MQTT struct {
	cfg    MQTTConfig
	client mqtt.Client
	d      *dispatcher

	mu        sync.Mutex
	connected atomic.Bool
	closed    atomic.Bool
}

// NewMQTT creates an unconnected MQTT link.
func NewMQTT(cfg MQTTConfig) *MQTT {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	m := &MQTT{cfg: cfg, d: newDispatcher(cfg.InboxSize)}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetDefaultPublishHandler(m.handleMessage)

	opts.OnConnect = func(mqtt.Client) {
		m.connected.Store(true)
		log.Printf("[INFO] MQTT connected to %s as %s", cfg.Broker, cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		m.connected.Store(false)
		log.Printf("[WARN] MQTT connection to %s lost: %v", cfg.Broker, err)
	}

	m.client = mqtt.NewClient(opts)
	return m
}

func (m *MQTT) OnMessage(h Handler) {
	m.d.setHandler(h)
}

func (m *MQTT) IsConnected() bool {
	return m.connected.Load() && m.client.IsConnectionOpen()
}

func (m *MQTT) Connect(ctx context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsConnected() {
		return nil
	}

	log.Printf("[DEBUG] MQTT connecting to %s", m.cfg.Broker)
	if err := waitToken(ctx, m.client.Connect(), m.cfg.ConnectTimeout); err != nil {
		m.connected.Store(false)
		return fmt.Errorf("mqtt connect to %s: %w", m.cfg.Broker, err)
	}
	m.connected.Store(true)
	return nil
}

func (m *MQTT) Subscribe(ctx context.Context, topics ...string) error {
	if len(topics) == 0 {
		return nil
	}
	if !m.IsConnected() {
		return ErrNotConnected
	}

	filters := make(map[string]byte, len(topics))
	for _, topic := range topics {
		filters[topic] = m.cfg.QoS
	}
	if err := waitToken(ctx, m.client.SubscribeMultiple(filters, m.handleMessage), m.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("mqtt subscribe %v: %w", topics, err)
	}
	log.Printf("[DEBUG] MQTT subscribed to %v", topics)
	return nil
}

func (m *MQTT) Publish(ctx context.Context, topic string, payload []byte) error {
	if !m.IsConnected() {
		return ErrNotConnected
	}
	if err := waitToken(ctx, m.client.Publish(topic, m.cfg.QoS, false, payload), m.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

func (m *MQTT) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	if m.client.IsConnectionOpen() {
		m.client.Disconnect(250)
	}
	m.connected.Store(false)
	m.d.stop()
	return nil
}

// handleMessage runs on paho's router goroutine and must not block.
func (m *MQTT) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	m.d.deliver(msg.Topic(), msg.Payload())
}

// waitToken waits for a paho token, the timeout or ctx, whichever is first.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

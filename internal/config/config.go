package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dyluth/tablenode/pkg/payload"
)

// NodeConfig represents the top-level tablenode.yml configuration
type NodeConfig struct {
	Version   string          `yaml:"version"`
	Node      NodeSection     `yaml:"node"`
	Link      LinkConfig      `yaml:"link"`
	Topics    TopicsConfig    `yaml:"topics"`
	Beacon    BeaconConfig    `yaml:"beacon"`
	Queues    QueuesConfig    `yaml:"queues"`
	Display   DisplayConfig   `yaml:"display"`
	Tone      ToneConfig      `yaml:"tone"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Button    ButtonConfig    `yaml:"button"`
	Payload   PayloadConfig   `yaml:"payload"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Health    HealthConfig    `yaml:"health"`
}

// NodeSection identifies this node on the broker
type NodeSection struct {
	ClientID string `yaml:"client_id"` // Generated as tablenode-<8 hex> when empty
}

// LinkConfig selects and tunes the broker transport
type LinkConfig struct {
	Transport      string        `yaml:"transport"` // "mqtt" or "redis"
	Broker         string        `yaml:"broker"`    // MQTT broker URL
	RedisURL       string        `yaml:"redis_url"`
	Namespace      string        `yaml:"namespace"` // Redis channel prefix
	QoS            int           `yaml:"qos"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
	CheckInterval  time.Duration `yaml:"check_interval"`
	InboxSize      int           `yaml:"inbox_size"`
}

// TopicsConfig names the inbound and outbound topics
type TopicsConfig struct {
	Display    string            `yaml:"display"`
	Tone       string            `yaml:"tone"`
	Turn       string            `yaml:"turn"`
	TurnTarget string            `yaml:"turn_target"`
	Button     string            `yaml:"button"`
	Relays     map[string]string `yaml:"relays,omitempty"` // Extra inbound topic → target pairs
}

// BeaconConfig controls the liveness beacon
type BeaconConfig struct {
	Topic    string        `yaml:"topic"`
	Body     string        `yaml:"body"`
	Interval time.Duration `yaml:"interval"`
	Disabled bool          `yaml:"disabled,omitempty"`
}

// QueuesConfig sizes the actuator queues
type QueuesConfig struct {
	DisplayCapacity int           `yaml:"display_capacity"`
	ToneCapacity    int           `yaml:"tone_capacity"`
	Policy          string        `yaml:"policy"`          // "drop_newest" or "block"
	EnqueueTimeout  time.Duration `yaml:"enqueue_timeout"` // Only used by "block"
}

// DisplayConfig describes the character display
type DisplayConfig struct {
	Width    int    `yaml:"width"`
	IdleText string `yaml:"idle_text,omitempty"`
}

// ToneConfig tunes tone playback
type ToneConfig struct {
	Compensation float64       `yaml:"compensation"`
	Settle       time.Duration `yaml:"settle"`
}

// IndicatorConfig sets the LED blink period
type IndicatorConfig struct {
	On  time.Duration `yaml:"on"`
	Off time.Duration `yaml:"off"`
}

// ButtonConfig tunes press detection
type ButtonConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	LongPress    time.Duration `yaml:"long_press"`
	ActiveLow    *bool         `yaml:"active_low,omitempty"` // Default: true
}

// PayloadConfig selects the wire format
type PayloadConfig struct {
	Format string `yaml:"format"` // "json" or "cbor"
}

// HardwareConfig selects the peripheral backend
type HardwareConfig struct {
	Backend    string `yaml:"backend"` // "sim" or "gpio"
	Chip       string `yaml:"chip"`
	LEDLine    int    `yaml:"led_line"`
	ButtonLine int    `yaml:"button_line"`
	BuzzerLine int    `yaml:"buzzer_line"`
	Echo       bool   `yaml:"echo,omitempty"` // Log simulated display contents
}

// HealthConfig controls the HTTP health endpoint
type HealthConfig struct {
	Port     int  `yaml:"port"`
	Disabled bool `yaml:"disabled,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *NodeConfig {
	cfg := &NodeConfig{Version: "1.0"}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field.
func (c *NodeConfig) ApplyDefaults() {
	if c.Node.ClientID == "" {
		c.Node.ClientID = "tablenode-" + uuid.NewString()[:8]
	}

	l := &c.Link
	setString(&l.Transport, "mqtt")
	setString(&l.Broker, "tcp://localhost:1883")
	setString(&l.RedisURL, "redis://localhost:6379")
	setDuration(&l.ConnectTimeout, 5*time.Second)
	setDuration(&l.RetryInterval, 5*time.Second)
	setDuration(&l.CheckInterval, time.Second)
	setInt(&l.InboxSize, 32)

	t := &c.Topics
	setString(&t.Display, "table/display")
	setString(&t.Tone, "table/tone")
	setString(&t.Turn, "table/turn")
	setString(&t.TurnTarget, "actuator/turn")
	setString(&t.Button, "table/button")

	setString(&c.Beacon.Topic, "table/alive")
	setString(&c.Beacon.Body, "tablenode online")
	setDuration(&c.Beacon.Interval, 10*time.Second)

	q := &c.Queues
	setInt(&q.DisplayCapacity, 10)
	setInt(&q.ToneCapacity, 20)
	setString(&q.Policy, "drop_newest")
	setDuration(&q.EnqueueTimeout, 50*time.Millisecond)

	setInt(&c.Display.Width, 16)

	if c.Tone.Compensation == 0 {
		c.Tone.Compensation = 1.3
	}
	setDuration(&c.Tone.Settle, 100*time.Millisecond)

	setDuration(&c.Indicator.On, time.Second)
	setDuration(&c.Indicator.Off, time.Second)

	setDuration(&c.Button.PollInterval, 100*time.Millisecond)
	setDuration(&c.Button.LongPress, 500*time.Millisecond)
	if c.Button.ActiveLow == nil {
		activeLow := true
		c.Button.ActiveLow = &activeLow
	}

	setString(&c.Payload.Format, "json")

	h := &c.Hardware
	setString(&h.Backend, "sim")
	setString(&h.Chip, "gpiochip0")
	setInt(&h.LEDLine, 17)
	setInt(&h.ButtonLine, 27)
	setInt(&h.BuzzerLine, 22)

	setInt(&c.Health.Port, 8080)
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func setInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

func setDuration(field *time.Duration, def time.Duration) {
	if *field == 0 {
		*field = def
	}
}

// ApplyEnv overrides link settings from the environment, in the same way
// the containerised node is configured:
// TABLENODE_TRANSPORT, TABLENODE_BROKER, REDIS_URL and TABLENODE_CLIENT_ID.
func (c *NodeConfig) ApplyEnv(getenv func(string) string) {
	if v := getenv("TABLENODE_TRANSPORT"); v != "" {
		c.Link.Transport = v
	}
	if v := getenv("TABLENODE_BROKER"); v != "" {
		c.Link.Broker = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Link.RedisURL = v
	}
	if v := getenv("TABLENODE_CLIENT_ID"); v != "" {
		c.Node.ClientID = v
	}
}

// Validate performs strict validation on the configuration
func (c *NodeConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := c.Link.Validate(); err != nil {
		return err
	}
	if err := c.Topics.Validate(); err != nil {
		return err
	}

	if !c.Beacon.Disabled && c.Beacon.Topic == "" {
		return fmt.Errorf("beacon.topic is required unless beacon.disabled is set")
	}

	if c.Queues.DisplayCapacity < 1 || c.Queues.ToneCapacity < 1 {
		return fmt.Errorf("queue capacities must be >= 1 (display=%d, tone=%d)", c.Queues.DisplayCapacity, c.Queues.ToneCapacity)
	}
	if c.Queues.Policy != "drop_newest" && c.Queues.Policy != "block" {
		return fmt.Errorf("invalid queues.policy: %s (must be 'drop_newest' or 'block')", c.Queues.Policy)
	}
	if c.Queues.Policy == "block" && c.Queues.EnqueueTimeout <= 0 {
		return fmt.Errorf("queues.enqueue_timeout must be positive when policy is 'block'")
	}

	if c.Display.Width < 1 {
		return fmt.Errorf("display.width must be >= 1, got %d", c.Display.Width)
	}
	if c.Tone.Compensation <= 0 {
		return fmt.Errorf("tone.compensation must be positive, got %g", c.Tone.Compensation)
	}
	if c.Tone.Settle < 0 {
		return fmt.Errorf("tone.settle must be >= 0")
	}
	if c.Indicator.On <= 0 || c.Indicator.Off <= 0 {
		return fmt.Errorf("indicator on/off times must be positive")
	}
	if c.Button.PollInterval <= 0 || c.Button.LongPress <= 0 {
		return fmt.Errorf("button poll_interval and long_press must be positive")
	}

	if _, err := payload.NewCodec(c.Payload.Format); err != nil {
		return fmt.Errorf("payload: %w", err)
	}

	switch c.Hardware.Backend {
	case "sim":
	case "gpio":
		if c.Hardware.Chip == "" {
			return fmt.Errorf("hardware.chip is required for the gpio backend")
		}
	default:
		return fmt.Errorf("invalid hardware.backend: %s (must be 'sim' or 'gpio')", c.Hardware.Backend)
	}

	if c.Health.Port < 0 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port out of range: %d", c.Health.Port)
	}

	return nil
}

// Validate checks the transport settings
func (l *LinkConfig) Validate() error {
	switch l.Transport {
	case "mqtt":
		if l.Broker == "" {
			return fmt.Errorf("link.broker is required for the mqtt transport")
		}
	case "redis":
		if l.RedisURL == "" {
			return fmt.Errorf("link.redis_url is required for the redis transport")
		}
	default:
		return fmt.Errorf("invalid link.transport: %s (must be 'mqtt' or 'redis')", l.Transport)
	}

	if l.QoS < 0 || l.QoS > 2 {
		return fmt.Errorf("link.qos must be 0, 1 or 2, got %d", l.QoS)
	}
	if l.ConnectTimeout <= 0 || l.RetryInterval <= 0 || l.CheckInterval <= 0 {
		return fmt.Errorf("link timeouts and intervals must be positive")
	}
	return nil
}

// Validate checks that inbound topics are set and distinct
func (t *TopicsConfig) Validate() error {
	if t.Display == "" || t.Tone == "" || t.Button == "" {
		return fmt.Errorf("topics.display, topics.tone and topics.button are required")
	}
	if t.Turn != "" && t.TurnTarget == "" {
		return fmt.Errorf("topics.turn_target is required when topics.turn is set")
	}

	inbound := t.Inbound()
	seen := make(map[string]bool, len(inbound))
	for _, topic := range inbound {
		if seen[topic] {
			return fmt.Errorf("topic %q is bound more than once", topic)
		}
		seen[topic] = true
	}
	for from, to := range t.Relays {
		if to == "" {
			return fmt.Errorf("relay %q has no target", from)
		}
	}
	return nil
}

// Inbound lists every subscribed topic, including relay sources.
func (t *TopicsConfig) Inbound() []string {
	topics := []string{t.Display, t.Tone}
	if t.Turn != "" {
		topics = append(topics, t.Turn)
	}
	for from := range t.Relays {
		topics = append(topics, from)
	}
	return topics
}

// Load reads and validates tablenode.yml from the specified path.
// Environment overrides are applied before validation.
func Load(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, os.Getenv)
}

// Parse decodes, defaults and validates a configuration document.
func Parse(data []byte, getenv func(string) string) (*NodeConfig, error) {
	var config NodeConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyDefaults()
	if getenv != nil {
		config.ApplyEnv(getenv)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

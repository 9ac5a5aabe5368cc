// Package supervisor keeps the node's broker link up: it reconnects on a
// fixed schedule, re-subscribes after every connect and publishes the
// liveness beacon.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/dyluth/tablenode/internal/clock"
	"github.com/dyluth/tablenode/internal/link"
)

// State is the supervisor's view of the link.
type State int32

const (
	// StateDisconnected means the link is down or not yet subscribed
	StateDisconnected State = iota

	// StateConnecting means a connect or subscribe attempt is in flight
	StateConnecting

	// StateConnected means the link is up and every inbound topic is subscribed
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Defaults for Config fields left zero.
const (
	DefaultRetryInterval  = 5 * time.Second
	DefaultCheckInterval  = time.Second
	DefaultBeaconInterval = 10 * time.Second
)

// Config controls the reconnect loop and the beacon.
type Config struct {
	// Topics are subscribed after every successful connect.
	Topics        []string
	RetryInterval time.Duration
	CheckInterval time.Duration

	// BeaconTopic empty disables the beacon.
	BeaconTopic    string
	BeaconBody     []byte
	BeaconInterval time.Duration
}

// Stats counts supervisor activity.
type Stats struct {
	State          string `json:"state"`
	Connects       uint64 `json:"connects"`
	Failures       uint64 `json:"failures"`
	Beacons        uint64 `json:"beacons"`
	BeaconFailures uint64 `json:"beacon_failures"`
}

// Supervisor owns the link lifecycle. Run and RunBeacon each run in their own goroutine.
type Supervisor struct {
	link  link.Link
	cfg   Config
	sleep clock.SleepFunc

	state          atomic.Int32
	connects       atomic.Uint64
	failures       atomic.Uint64
	beacons        atomic.Uint64
	beaconFailures atomic.Uint64
}

// Option customises a Supervisor.
type Option func(*Supervisor)

// WithSleep replaces the retry and check timer.
func WithSleep(sleep clock.SleepFunc) Option {
	return func(s *Supervisor) { s.sleep = sleep }
}

// New creates a supervisor for l.
func New(l link.Link, cfg Config, opts ...Option) *Supervisor {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.BeaconInterval <= 0 {
		cfg.BeaconInterval = DefaultBeaconInterval
	}
	s := &Supervisor{link: l, cfg: cfg, sleep: clock.Sleep}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current link state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Connected reports whether the link is up. Publishers outside the
// supervisor check this before sending.
func (s *Supervisor) Connected() bool {
	return s.link.IsConnected()
}

// Stats returns a snapshot of the counters.
func (s *Supervisor) Stats() Stats {
	return Stats{
		State:          s.State().String(),
		Connects:       s.connects.Load(),
		Failures:       s.failures.Load(),
		Beacons:        s.beacons.Load(),
		BeaconFailures: s.beaconFailures.Load(),
	}
}

// Run keeps the link connected and subscribed until ctx is cancelled. A
// failed connect or subscribe is retried after RetryInterval; a healthy link
// is re-checked every CheckInterval.
func (s *Supervisor) Run(ctx context.Context) error {
	log.Printf("[INFO] Link supervisor starting (retry=%s, check=%s)", s.cfg.RetryInterval, s.cfg.CheckInterval)
	defer log.Printf("[DEBUG] Link supervisor exited cleanly")

	for {
		wait := s.cfg.CheckInterval
		if !s.link.IsConnected() || s.State() != StateConnected {
			if s.State() == StateConnected {
				log.Printf("[WARN] Link lost, reconnecting")
			}
			if err := s.connect(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.failures.Add(1)
				s.state.Store(int32(StateDisconnected))
				log.Printf("[WARN] Link setup failed, retrying in %s: %v", s.cfg.RetryInterval, err)
				wait = s.cfg.RetryInterval
			}
		}

		if err := s.sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

func (s *Supervisor) connect(ctx context.Context) error {
	s.state.Store(int32(StateConnecting))
	if !s.link.IsConnected() {
		if err := s.link.Connect(ctx); err != nil {
			return err
		}
	}
	if err := s.link.Subscribe(ctx, s.cfg.Topics...); err != nil {
		return fmt.Errorf("subscribe %v: %w", s.cfg.Topics, err)
	}

	s.connects.Add(1)
	s.state.Store(int32(StateConnected))
	log.Printf("[INFO] Link up, subscribed to %v", s.cfg.Topics)
	return nil
}

// RunBeacon publishes BeaconBody to BeaconTopic every BeaconInterval while
// the link is up. Ticks while disconnected are skipped.
func (s *Supervisor) RunBeacon(ctx context.Context) error {
	if s.cfg.BeaconTopic == "" {
		return nil
	}
	log.Printf("[DEBUG] Beacon starting (topic=%s, interval=%s)", s.cfg.BeaconTopic, s.cfg.BeaconInterval)

	for {
		if err := s.sleep(ctx, s.cfg.BeaconInterval); err != nil {
			return nil
		}
		s.Beacon(ctx)
	}
}

// Beacon publishes one liveness message if the link is up.
func (s *Supervisor) Beacon(ctx context.Context) {
	if !s.link.IsConnected() {
		return
	}
	if err := s.link.Publish(ctx, s.cfg.BeaconTopic, s.cfg.BeaconBody); err != nil {
		s.beaconFailures.Add(1)
		log.Printf("[WARN] Beacon publish failed: %v", err)
		return
	}
	s.beacons.Add(1)
	log.Printf("[DEBUG] Beacon published to %s", s.cfg.BeaconTopic)
}

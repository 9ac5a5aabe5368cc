// Package node wires the link, router, queues and actuator tasks of one
// table node together and runs them until shutdown.
package node

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/dyluth/tablenode/internal/button"
	"github.com/dyluth/tablenode/internal/config"
	"github.com/dyluth/tablenode/internal/display"
	"github.com/dyluth/tablenode/internal/hardware"
	"github.com/dyluth/tablenode/internal/indicator"
	"github.com/dyluth/tablenode/internal/link"
	"github.com/dyluth/tablenode/internal/queue"
	"github.com/dyluth/tablenode/internal/router"
	"github.com/dyluth/tablenode/internal/supervisor"
	"github.com/dyluth/tablenode/internal/tone"
	"github.com/dyluth/tablenode/pkg/payload"
)

// Engine runs one goroutine per task:
//   - Supervisor: keeps the link connected and subscribed
//   - Beacon: publishes the liveness message
//   - Display and Tone: consume their queues and drive the peripherals
//   - Indicator: blinks the status LED
//   - Button: publishes presses
//
// Inbound messages reach the router on the link's dispatch goroutine.
type Engine struct {
	cfg     *config.NodeConfig
	link    link.Link
	devices *hardware.Devices

	displayQ *queue.Queue[display.Entry]
	toneQ    *queue.Queue[tone.Entry]

	router     *router.Router
	supervisor *supervisor.Supervisor
	display    *display.Task
	tone       *tone.Task
	indicator  *indicator.Blinker
	button     *button.Sensor

	wg sync.WaitGroup
}

// New builds an engine. The link's message handler is registered here, so
// the link must not be subscribed before New returns.
func New(cfg *config.NodeConfig, l link.Link, devices *hardware.Devices) (*Engine, error) {
	codec, err := payload.NewCodec(cfg.Payload.Format)
	if err != nil {
		return nil, err
	}

	bindings, err := router.NewBindings(BindingTable(&cfg.Topics))
	if err != nil {
		return nil, fmt.Errorf("invalid topic bindings: %w", err)
	}

	policy := queue.DropNewest()
	if cfg.Queues.Policy == "block" {
		policy = queue.BlockWithTimeout(cfg.Queues.EnqueueTimeout)
	}

	e := &Engine{
		cfg:      cfg,
		link:     l,
		devices:  devices,
		displayQ: queue.New[display.Entry]("display", cfg.Queues.DisplayCapacity, policy),
		toneQ:    queue.New[tone.Entry]("tone", cfg.Queues.ToneCapacity, policy),
	}

	e.router = router.New(bindings, e.displayQ, e.toneQ, l,
		router.WithCodec(codec),
		router.WithWidth(cfg.Display.Width),
	)

	supCfg := supervisor.Config{
		Topics:         bindings.Topics(),
		RetryInterval:  cfg.Link.RetryInterval,
		CheckInterval:  cfg.Link.CheckInterval,
		BeaconBody:     []byte(cfg.Beacon.Body),
		BeaconInterval: cfg.Beacon.Interval,
	}
	if !cfg.Beacon.Disabled {
		supCfg.BeaconTopic = cfg.Beacon.Topic
	}
	e.supervisor = supervisor.New(l, supCfg)

	displayOpts := []display.Option{}
	if cfg.Display.IdleText != "" {
		displayOpts = append(displayOpts, display.WithIdleText(cfg.Display.IdleText))
	}
	e.display = display.NewTask(devices.Display, e.displayQ, displayOpts...)

	e.tone = tone.NewTask(devices.Tone, e.toneQ,
		tone.WithCompensation(cfg.Tone.Compensation),
		tone.WithSettle(cfg.Tone.Settle),
	)

	e.indicator = indicator.New(devices.Indicator, indicator.WithPeriod(cfg.Indicator.On, cfg.Indicator.Off))

	activeLow := cfg.Button.ActiveLow == nil || *cfg.Button.ActiveLow
	e.button = button.New(devices.Button, l, button.Config{
		Topic:        cfg.Topics.Button,
		PollInterval: cfg.Button.PollInterval,
		LongPress:    cfg.Button.LongPress,
		ActiveLow:    activeLow,
	}, button.WithCodec(codec))

	l.OnMessage(e.router.OnMessage)
	return e, nil
}

// BindingTable maps the configured inbound topics to router bindings.
func BindingTable(t *config.TopicsConfig) map[string]router.Binding {
	table := map[string]router.Binding{
		t.Display: {Kind: router.KindDisplay},
		t.Tone:    {Kind: router.KindTone},
	}
	if t.Turn != "" {
		table[t.Turn] = router.Binding{Kind: router.KindRelay, Target: t.TurnTarget}
	}
	for from, to := range t.Relays {
		table[from] = router.Binding{Kind: router.KindRelay, Target: to}
	}
	return table
}

// Start launches every task and blocks until ctx is cancelled and all tasks
// have exited. The link is closed on the way out.
func (e *Engine) Start(ctx context.Context) error {
	log.Printf("[INFO] Table node %s starting (transport=%s, payload=%s)",
		e.cfg.Node.ClientID, e.cfg.Link.Transport, e.cfg.Payload.Format)

	e.spawn(ctx, "supervisor", e.supervisor.Run)
	e.spawn(ctx, "beacon", e.supervisor.RunBeacon)
	e.spawn(ctx, "display", e.display.Run)
	e.spawn(ctx, "tone", e.tone.Run)
	e.spawn(ctx, "indicator", e.indicator.Run)
	e.spawn(ctx, "button", e.button.Run)

	<-ctx.Done()
	log.Printf("[INFO] Shutdown signal received, initiating graceful shutdown")

	e.wg.Wait()
	if err := e.link.Close(); err != nil {
		log.Printf("[WARN] Failed to close link: %v", err)
	}
	log.Printf("[INFO] All tasks exited, shutdown complete")
	return nil
}

func (e *Engine) spawn(ctx context.Context, name string, run func(context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := run(ctx); err != nil {
			log.Printf("[ERROR] %s task failed: %v", name, err)
		}
	}()
}

// Router exposes the router, mainly for tests and diagnostics.
func (e *Engine) Router() *router.Router { return e.router }

// Connected reports whether the link is up.
func (e *Engine) Connected() bool { return e.link.IsConnected() }

// Snapshot is the engine's diagnostic state, served on /statsz.
type Snapshot struct {
	ClientID  string           `json:"client_id"`
	Transport string           `json:"transport"`
	Connected bool             `json:"connected"`
	Link      supervisor.Stats `json:"link"`
	Router    router.Stats     `json:"router"`
	Queues    []queue.Stats    `json:"queues"`
	Display   TaskState        `json:"display"`
	Tone      TaskState        `json:"tone"`
	Button    button.Stats     `json:"button"`
}

// TaskState summarises an actuator task.
type TaskState struct {
	State string `json:"state"`
	Done  uint64 `json:"done"`
}

// Snapshot returns the current diagnostic state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		ClientID:  e.cfg.Node.ClientID,
		Transport: e.cfg.Link.Transport,
		Connected: e.link.IsConnected(),
		Link:      e.supervisor.Stats(),
		Router:    e.router.Stats(),
		Queues:    []queue.Stats{e.displayQ.Stats(), e.toneQ.Stats()},
		Display:   TaskState{State: e.display.State().String(), Done: e.display.Rendered()},
		Tone:      TaskState{State: e.tone.State().String(), Done: e.tone.Played()},
		Button:    e.button.Stats(),
	}
}

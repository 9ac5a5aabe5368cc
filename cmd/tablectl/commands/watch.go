package commands

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/tablenode/internal/printer"
	"github.com/dyluth/tablenode/pkg/payload"
)

var (
	watchOutputFormat string
	watchExtraTopics  []string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream events published by table nodes",
	Long: `Stream button presses and liveness beacons as nodes publish them.

Output Formats:
  default - Human-readable output with timestamps
  json    - Line-delimited JSON for programmatic processing

Examples:
  tablectl watch
  tablectl watch --topic actuator/turn --output=json > events.jsonl`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().StringSliceVar(&watchExtraTopics, "topic", nil, "Additional topics to watch")
	rootCmd.AddCommand(watchCmd)
}

// WatchEvent is one line of json watch output.
type WatchEvent struct {
	Time   time.Time            `json:"time"`
	Topic  string               `json:"topic"`
	Button *payload.ButtonEvent `json:"button,omitempty"`
	Raw    string               `json:"raw,omitempty"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchOutputFormat != "default" && watchOutputFormat != "json" {
		return printer.Error(
			"invalid output format",
			"Unknown format: "+watchOutputFormat,
			[]string{"Valid formats: default, json"},
		)
	}

	ctx, cancel := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	events := make(chan WatchEvent, 64)
	s.link.OnMessage(func(topic string, body []byte) {
		ev := classify(s.codec, s.cfg.Topics.Button, topic, body, time.Now())
		select {
		case events <- ev:
		default:
		}
	})

	topics := append([]string{s.cfg.Topics.Button}, watchExtraTopics...)
	if !s.cfg.Beacon.Disabled {
		topics = append(topics, s.cfg.Beacon.Topic)
	}
	if err := s.link.Subscribe(ctx, topics...); err != nil {
		return printer.Error("subscribe failed", err.Error(), nil)
	}
	if watchOutputFormat == "default" {
		printer.Step("Watching %v (Ctrl-C to stop)\n", topics)
	}

	return streamEvents(ctx, events, watchOutputFormat)
}

func streamEvents(ctx context.Context, events <-chan WatchEvent, outputFormat string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if outputFormat == "json" {
				line, err := json.Marshal(ev)
				if err != nil {
					return err
				}
				printer.Line(string(line))
				continue
			}
			printer.Event(ev.Time, ev.Topic, describe(ev))
		}
	}
}

// classify decodes button events and keeps everything else raw.
func classify(codec payload.Codec, buttonTopic, topic string, body []byte, at time.Time) WatchEvent {
	ev := WatchEvent{Time: at, Topic: topic}
	if topic == buttonTopic {
		if button, err := payload.DecodeButtonEvent(codec, body); err == nil {
			ev.Button = &button
			return ev
		}
	}
	ev.Raw = string(body)
	return ev
}

func describe(ev WatchEvent) string {
	if ev.Button != nil {
		return string(ev.Button.Type) + " press, " + time.Duration(ev.Button.DurationMs*int64(time.Millisecond)).String()
	}
	return ev.Raw
}

package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/tablenode/internal/display"
	"github.com/dyluth/tablenode/internal/printer"
	"github.com/dyluth/tablenode/pkg/payload"
)

var displayHoldMs uint32

var displayCmd = &cobra.Command{
	Use:   "display TOP [BOTTOM]",
	Short: "Show text on a node's display",
	Long: `Show text on a node's two-line display.

When BOTTOM is omitted, a long TOP is split across both lines at the last
space that fits. Lines longer than the display width are truncated by the node.

Examples:
  tablectl display "Hello there friend"
  tablectl display "Round 3" "Player 2" --time 2000`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDisplay,
}

var toneCmd = &cobra.Command{
	Use:   "tone FREQ:MS [FREQ:MS...]",
	Short: "Play a tone sequence on a node's buzzer",
	Long: `Play a sequence of up to 20 tones. Each step is FREQ:MS, a frequency in
hertz and a duration in milliseconds. A frequency of 0 ends the sequence.

Example:
  tablectl tone 440:200 660:200 880:400`,
	Args: cobra.RangeArgs(1, payload.MaxToneSteps),
	RunE: runTone,
}

var turnCmd = &cobra.Command{
	Use:   "turn PAYLOAD",
	Short: "Send a turn signal, relayed verbatim by the node",
	Args:  cobra.ExactArgs(1),
	RunE:  runTurn,
}

func init() {
	displayCmd.Flags().Uint32VarP(&displayHoldMs, "time", "t", 0, "Clear after this many milliseconds (0 keeps the text)")
	rootCmd.AddCommand(displayCmd, toneCmd, turnCmd)
}

func runDisplay(cmd *cobra.Command, args []string) error {
	cmdBody := payload.DisplayCommand{Top: args[0], TimeMs: displayHoldMs}
	if len(args) == 2 {
		cmdBody.Down = args[1]
	}
	return send(contextOf(cmd), func(s *session) (string, any) {
		return s.cfg.Topics.Display, cmdBody
	}, func(s *session) {
		entry := display.EntryFromCommand(cmdBody, s.cfg.Display.Width)
		printer.Success("Display: %q / %q\n", entry.Top, entry.Bottom)
	})
}

func runTone(cmd *cobra.Command, args []string) error {
	toneBody, err := parseToneSteps(args)
	if err != nil {
		return printer.Error("invalid tone sequence", err.Error(),
			[]string{"Use FREQ:MS pairs, e.g. tablectl tone 440:200 0:0"})
	}
	return send(contextOf(cmd), func(s *session) (string, any) {
		return s.cfg.Topics.Tone, toneBody
	}, func(*session) {
		printer.Success("Tone: %d step(s)\n", len(toneBody.Tones))
	})
}

func runTurn(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.cfg.Topics.Turn == "" {
		return printer.Error("turn relay disabled", "topics.turn is empty in the node configuration", nil)
	}
	if err := s.publish(ctx, s.cfg.Topics.Turn, []byte(args[0])); err != nil {
		return err
	}
	printer.Success("Turn sent to %s\n", s.cfg.Topics.Turn)
	return nil
}

// send encodes the body chosen by build with the session codec and publishes it.
func send(ctx context.Context, build func(*session) (string, any), done func(*session)) error {
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	topic, body := build(s)
	data, err := s.codec.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", s.codec.Name(), err)
	}
	if err := s.publish(ctx, topic, data); err != nil {
		return err
	}
	done(s)
	return nil
}

// parseToneSteps turns FREQ:MS arguments into a validated tone command.
func parseToneSteps(args []string) (payload.ToneCommand, error) {
	var cmd payload.ToneCommand
	for _, arg := range args {
		freqStr, msStr, ok := strings.Cut(arg, ":")
		if !ok {
			return payload.ToneCommand{}, fmt.Errorf("step %q is not FREQ:MS", arg)
		}
		freq, err := strconv.ParseUint(freqStr, 10, 32)
		if err != nil {
			return payload.ToneCommand{}, fmt.Errorf("step %q: invalid frequency: %w", arg, err)
		}
		ms, err := strconv.ParseUint(msStr, 10, 32)
		if err != nil {
			return payload.ToneCommand{}, fmt.Errorf("step %q: invalid duration: %w", arg, err)
		}
		cmd.Tones = append(cmd.Tones, uint32(freq))
		cmd.Duration = append(cmd.Duration, uint32(ms))
	}
	if err := cmd.Validate(); err != nil {
		return payload.ToneCommand{}, err
	}
	return cmd, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

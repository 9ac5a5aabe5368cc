package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/tablenode/internal/printer"
	"github.com/dyluth/tablenode/pkg/payload"
)

// execute runs rootCmd with args, resetting flags the previous run may have set.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	configPath, transport, broker, redisURL, namespace, format = "", "", "", "", "", ""
	timeout = 2 * time.Second
	displayHoldMs = 0
	watchOutputFormat = "default"

	prev := color.NoColor
	color.NoColor = true
	var stdout, stderr bytes.Buffer
	restore := printer.SetOutput(&stdout, &stderr)
	defer func() {
		restore()
		color.NoColor = prev
	}()

	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	stdout, _, err := execute(t)
	assert.NoError(t, err)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "tablectl")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := execute(t, "--unknown-flag", "value")
	assert.Error(t, err)
}

func TestParseToneSteps(t *testing.T) {
	cmd, err := parseToneSteps([]string{"440:200", "0:0"})
	require.NoError(t, err)
	assert.Equal(t, payload.ToneCommand{Tones: []uint32{440, 0}, Duration: []uint32{200, 0}}, cmd)

	for _, bad := range [][]string{{"440"}, {"x:200"}, {"440:-1"}, {"440:2:3"}} {
		_, err := parseToneSteps(bad)
		assert.Error(t, err, "args %v", bad)
	}
}

func TestClassify(t *testing.T) {
	at := time.Unix(0, 0)

	ev := classify(payload.JSON, "table/button", "table/button", []byte(`{"type":"long","duration":900}`), at)
	require.NotNil(t, ev.Button)
	assert.Equal(t, payload.PressLong, ev.Button.Type)
	assert.Equal(t, "long press, 900ms", describe(ev))

	ev = classify(payload.JSON, "table/button", "table/alive", []byte("tablenode online"), at)
	assert.Nil(t, ev.Button)
	assert.Equal(t, "tablenode online", describe(ev))

	ev = classify(payload.JSON, "table/button", "table/button", []byte("garbage"), at)
	assert.Nil(t, ev.Button)
	assert.Equal(t, "garbage", ev.Raw)
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func TestStreamEvents_JSON(t *testing.T) {
	stdout := &syncBuffer{}
	restore := printer.SetOutput(stdout, stdout)
	defer restore()

	events := make(chan WatchEvent, 1)
	events <- WatchEvent{Time: time.Unix(0, 0).UTC(), Topic: "table/button", Button: &payload.ButtonEvent{Type: payload.PressShort, DurationMs: 300}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- streamEvents(ctx, events, "json") }()

	require.Eventually(t, func() bool { return len(stdout.Bytes()) > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	var got WatchEvent
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &got))
	assert.Equal(t, "table/button", got.Topic)
	assert.Equal(t, int64(300), got.Button.DurationMs)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yml")
	require.NoError(t, os.WriteFile(good, []byte("version: \"1.0\"\ntopics:\n  display: t9/display\n"), 0644))
	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte(`version: "0.1"`), 0644))

	stdout, _, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, stdout, "is valid")
	assert.Contains(t, stdout, "t9/display")

	_, stderr, err := execute(t, "validate", bad)
	require.Error(t, err)
	assert.Contains(t, stderr, "unsupported version")
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "today")
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "tablectl 1.2.3 (commit: abc")
}

func TestWatchCommand_RejectsUnknownOutput(t *testing.T) {
	_, stderr, err := execute(t, "watch", "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, stderr, "Valid formats: default, json")
}

// redisSubscriber subscribes to channel on mr and waits for the confirmation.
func redisSubscriber(t *testing.T, mr *miniredis.Miniredis, channel string) *redis.PubSub {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	ps := rdb.Subscribe(context.Background(), channel)
	t.Cleanup(func() { ps.Close() })
	_, err := ps.Receive(context.Background())
	require.NoError(t, err)
	return ps
}

func TestDisplayCommand_PublishesOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ps := redisSubscriber(t, mr, "table/display")

	stdout, _, err := execute(t, "--transport", "redis", "--redis-url", "redis://"+mr.Addr(),
		"display", "Hello there friend", "--time", "1500")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"Hello there" / "friend"`)

	msg, err := ps.ReceiveMessage(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"top":"Hello there friend","down":"","time":1500}`, msg.Payload)
}

func TestToneCommand_PublishesOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ps := redisSubscriber(t, mr, "table/tone")

	_, _, err := execute(t, "--transport", "redis", "--redis-url", "redis://"+mr.Addr(), "tone", "440:200", "0:0")
	require.NoError(t, err)

	msg, err := ps.ReceiveMessage(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"tones":[440,0],"duration":[200,0]}`, msg.Payload)
}

func TestTurnCommand_PublishesVerbatim(t *testing.T) {
	mr := miniredis.RunT(t)
	ps := redisSubscriber(t, mr, "table/turn")

	_, _, err := execute(t, "--transport", "redis", "--redis-url", "redis://"+mr.Addr(), "turn", "player-2")
	require.NoError(t, err)

	msg, err := ps.ReceiveMessage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "player-2", msg.Payload)
}

func TestDisplayCommand_BrokerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, stderr, err := execute(t, "--transport", "redis", "--redis-url", "redis://"+addr, "--timeout", "500ms", "display", "x")
	require.Error(t, err)
	assert.Contains(t, stderr, "cannot reach the broker")
}


package link

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

var _ mqtt.Message = (*fakeMessage)(nil)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(complete bool, err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

var _ mqtt.Token = (*fakeToken)(nil)

func TestMQTT_HandleMessageDispatches(t *testing.T) {
	m := NewMQTT(MQTTConfig{Broker: "tcp://127.0.0.1:1", ClientID: "test"})
	defer m.Close()

	var mu sync.Mutex
	var got []message
	m.OnMessage(func(topic string, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, message{topic: topic, payload: payload})
	})

	m.handleMessage(nil, &fakeMessage{topic: "table/display", payload: []byte(`{"top":"Hi"}`)})
	m.handleMessage(nil, &fakeMessage{topic: "table/tone", payload: []byte(`{}`)})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "table/display", got[0].topic)
	assert.Equal(t, `{"top":"Hi"}`, string(got[0].payload))
	assert.Equal(t, "table/tone", got[1].topic)
}

func TestMQTT_NotConnected(t *testing.T) {
	m := NewMQTT(MQTTConfig{Broker: "tcp://127.0.0.1:1", ClientID: "test"})
	defer m.Close()
	ctx := context.Background()

	assert.False(t, m.IsConnected())
	assert.ErrorIs(t, m.Publish(ctx, "x", []byte("y")), ErrNotConnected)
	assert.ErrorIs(t, m.Subscribe(ctx, "x"), ErrNotConnected)
}

func TestMQTT_ConnectFailsWithoutBroker(t *testing.T) {
	m := NewMQTT(MQTTConfig{Broker: "tcp://127.0.0.1:1", ClientID: "test", ConnectTimeout: 2 * time.Second})
	defer m.Close()

	err := m.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt connect to tcp://127.0.0.1:1")
	assert.False(t, m.IsConnected())
}

func TestMQTT_ConnectAfterClose(t *testing.T) {
	m := NewMQTT(MQTTConfig{Broker: "tcp://127.0.0.1:1", ClientID: "test"})
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Connect(context.Background()), ErrClosed)
	assert.NoError(t, m.Close())
}

func TestWaitToken(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, waitToken(ctx, newFakeToken(true, nil), time.Second))

	boom := errors.New("not authorised")
	assert.ErrorIs(t, waitToken(ctx, newFakeToken(true, boom), time.Second), boom)

	err := waitToken(ctx, newFakeToken(false, nil), 10*time.Millisecond)
	assert.ErrorContains(t, err, "timed out")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, waitToken(cancelled, newFakeToken(false, nil), time.Second), context.Canceled)
}

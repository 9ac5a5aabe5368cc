//go:build integration

package link

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupMosquitto starts a broker container and returns its tcp:// URL.
// The 1.6 image accepts anonymous clients on 1883 without a config file.
func setupMosquitto(t *testing.T, ctx context.Context) string {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "eclipse-mosquitto:1.6",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp").WithStartupTimeout(30 * time.Second),
	}

	brokerC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := brokerC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate mosquitto container: %v", err)
		}
	})

	host, err := brokerC.Host(ctx)
	require.NoError(t, err)
	port, err := brokerC.MappedPort(ctx, "1883")
	require.NoError(t, err)

	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func TestMQTT_Integration_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	broker := setupMosquitto(t, ctx)

	node := NewMQTT(MQTTConfig{Broker: broker, ClientID: "node-" + uuid.NewString()[:8]})
	defer node.Close()
	ctl := NewMQTT(MQTTConfig{Broker: broker, ClientID: "ctl-" + uuid.NewString()[:8]})
	defer ctl.Close()

	var mu sync.Mutex
	var got []message
	node.OnMessage(func(topic string, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, message{topic: topic, payload: payload})
	})

	require.NoError(t, node.Connect(ctx))
	require.NoError(t, ctl.Connect(ctx))
	assert.True(t, node.IsConnected())
	require.NoError(t, node.Subscribe(ctx, "table/display", "table/tone"))

	require.NoError(t, ctl.Publish(ctx, "table/display", []byte(`{"top":"Hello"}`)))
	require.NoError(t, ctl.Publish(ctx, "table/tone", []byte(`{"tones":[440],"duration":[100]}`)))
	require.NoError(t, ctl.Publish(ctx, "table/other", []byte(`nope`)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "table/display", got[0].topic)
	assert.Equal(t, `{"top":"Hello"}`, string(got[0].payload))
	assert.Equal(t, "table/tone", got[1].topic)
}

func TestMQTT_Integration_ReconnectNeedsResubscribe(t *testing.T) {
	ctx := context.Background()
	broker := setupMosquitto(t, ctx)

	node := NewMQTT(MQTTConfig{Broker: broker, ClientID: "node-" + uuid.NewString()[:8]})
	defer node.Close()

	require.NoError(t, node.Connect(ctx))
	require.NoError(t, node.Connect(ctx), "connect while connected is a no-op")

	node.client.Disconnect(100)
	node.connected.Store(false)
	assert.False(t, node.IsConnected())

	require.NoError(t, node.Connect(ctx))
	assert.True(t, node.IsConnected())
	assert.NoError(t, node.Subscribe(ctx, "table/display"))
}

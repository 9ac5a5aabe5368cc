package link

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_DeliversInOrderOnOneGoroutine(t *testing.T) {
	d := newDispatcher(16)
	defer d.stop()

	var mu sync.Mutex
	var got []string
	active := 0
	overlap := false
	d.setHandler(func(topic string, payload []byte) {
		mu.Lock()
		active++
		if active > 1 {
			overlap = true
		}
		got = append(got, string(payload))
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
	})

	for _, p := range []string{"a", "b", "c", "d"} {
		d.deliver("t", []byte(p))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 4
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	assert.False(t, overlap, "handler ran concurrently with itself")
}

func TestDispatcher_DropsWhenInboxFull(t *testing.T) {
	d := newDispatcher(1)
	defer d.stop()

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	d.setHandler(func(string, []byte) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	})

	d.deliver("t", []byte("1"))
	<-entered
	d.deliver("t", []byte("2"))
	d.deliver("t", []byte("3"))

	assert.Equal(t, uint64(1), d.dropped.Load())
	close(release)
}

func TestDispatcher_DeliverAfterStopIsIgnored(t *testing.T) {
	d := newDispatcher(1)
	d.stop()

	assert.NotPanics(t, func() {
		d.deliver("t", []byte("late"))
		d.stop()
	})
}

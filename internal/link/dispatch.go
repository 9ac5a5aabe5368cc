package link

import (
	"log"
	"sync"
	"sync/atomic"
)

type message struct {
	topic   string
	payload []byte
}

// dispatcher moves messages from transport callbacks onto one goroutine.
// A full inbox drops the newest message rather than stalling the transport.
type dispatcher struct {
	inbox   chan message
	handler atomic.Pointer[Handler]
	done    chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

func newDispatcher(size int) *dispatcher {
	if size < 1 {
		size = DefaultInboxSize
	}
	d := &dispatcher{
		inbox: make(chan message, size),
		done:  make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *dispatcher) setHandler(h Handler) {
	d.handler.Store(&h)
}

// deliver never blocks.
func (d *dispatcher) deliver(topic string, payload []byte) {
	select {
	case <-d.done:
		return
	default:
	}

	select {
	case d.inbox <- message{topic: topic, payload: payload}:
	default:
		d.dropped.Add(1)
		log.Printf("[WARN] Inbound message on %q dropped: dispatch inbox full", topic)
	}
}

func (d *dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case msg := <-d.inbox:
			h := d.handler.Load()
			if h == nil || *h == nil {
				log.Printf("[WARN] Inbound message on %q with no handler registered", msg.topic)
				continue
			}
			d.delivered.Add(1)
			(*h)(msg.topic, msg.payload)
		}
	}
}

func (d *dispatcher) stop() {
	d.stopped.Do(func() { close(d.done) })
	d.wg.Wait()
}

// Package router classifies inbound messages by topic, decodes them and
// hands the result to the actuator queues or relays it onward.
package router

import (
	"fmt"
	"sort"
)

// Kind is what the router does with a message on a bound topic.
type Kind int

const (
	// KindDisplay decodes a display command onto the display queue
	KindDisplay Kind = iota + 1

	// KindTone decodes a tone command onto the tone queue
	KindTone

	// KindRelay republishes the raw payload to Binding.Target
	KindRelay
)

func (k Kind) String() string {
	switch k {
	case KindDisplay:
		return "display"
	case KindTone:
		return "tone"
	case KindRelay:
		return "relay"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Binding is the action for one inbound topic.
type Binding struct {
	Kind   Kind
	Target string // relay destination, empty otherwise
}

// Bindings is the immutable topic table. The zero value binds nothing.
type Bindings struct {
	table map[string]Binding
}

// NewBindings validates and copies table. Later changes to table do not
// affect the returned Bindings.
func NewBindings(table map[string]Binding) (Bindings, error) {
	copied := make(map[string]Binding, len(table))
	for topic, b := range table {
		if topic == "" {
			return Bindings{}, fmt.Errorf("empty topic in bindings")
		}
		switch b.Kind {
		case KindDisplay, KindTone:
			if b.Target != "" {
				return Bindings{}, fmt.Errorf("topic %q: %s binding takes no target", topic, b.Kind)
			}
		case KindRelay:
			if b.Target == "" {
				return Bindings{}, fmt.Errorf("topic %q: relay binding requires a target", topic)
			}
			if b.Target == topic {
				return Bindings{}, fmt.Errorf("topic %q: relay target must differ from the topic", topic)
			}
		default:
			return Bindings{}, fmt.Errorf("topic %q: unknown binding kind %s", topic, b.Kind)
		}
		copied[topic] = b
	}
	return Bindings{table: copied}, nil
}

// Lookup returns the binding for topic.
func (b Bindings) Lookup(topic string) (Binding, bool) {
	binding, ok := b.table[topic]
	return binding, ok
}

// Topics returns the bound topics in sorted order, ready to subscribe.
func (b Bindings) Topics() []string {
	topics := make([]string, 0, len(b.table))
	for topic := range b.table {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

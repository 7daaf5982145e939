package eventstream

import (
	"sync"
	"time"

	"github.com/streamkit/eventstream/core"
)

// Lifecycle notification names emitted around the publish and receive paths.
const (
	NotifyPublished     = "event.published"
	NotifyPublishFailed = "event.publish.failed"
	NotifyReceived      = "event.received"
	NotifyProcessed     = "event.processed"
	NotifyProcessFailed = "event.process.failed"
)

// Notification carries one lifecycle event for observability hooks.
type Notification struct {
	Name    string
	Topic   string
	Message *core.EventMessage
	Error   string
	Time    time.Time
}

// Observer receives lifecycle notifications. Observers run inline with the
// publish/receive path, so they must be fast and must not block.
type Observer func(Notification)

// notifier fan-outs notifications to registered observers. Observer panics
// are contained so a broken hook cannot stall the stream.
type notifier struct {
	mu        sync.RWMutex
	observers []Observer
}

func (n *notifier) add(obs Observer) {
	if obs == nil {
		return
	}
	n.mu.Lock()
	n.observers = append(n.observers, obs)
	n.mu.Unlock()
}

func (n *notifier) emit(name, topic string, msg *core.EventMessage, err error) {
	n.mu.RLock()
	observers := make([]Observer, len(n.observers))
	copy(observers, n.observers)
	n.mu.RUnlock()
	if len(observers) == 0 {
		return
	}

	note := Notification{Name: name, Topic: topic, Message: msg, Time: time.Now()}
	if err != nil {
		note.Error = err.Error()
	}
	for _, obs := range observers {
		func() {
			defer func() { _ = recover() }()
			obs(note)
		}()
	}
}

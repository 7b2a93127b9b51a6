// Package notify queues user-facing messages for whichever surface is rendering them.
//
// Producers (the browse controller, the unlock flow, commands) dispatch events; exactly one
// renderer per surface consumes them. The CLI logs them, the TUI shows a modal.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/shared"
)

// Severity of a notification.
type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Event is one queued notification.
type Event struct {
	ID       string
	Severity Severity
	Title    string
	Message  string
	Time     time.Time
}

const defaultCapacity = 64

// Dispatcher is a bounded queue of events. When full, the oldest event is dropped.
type Dispatcher struct {
	mu     sync.Mutex
	events chan Event
	now    func() time.Time
}

// NewDispatcher creates a dispatcher holding up to capacity undelivered events.
func NewDispatcher(capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Dispatcher{events: make(chan Event, capacity), now: time.Now}
}

// Dispatch queues an event without blocking and returns it with its id and time filled in.
func (d *Dispatcher) Dispatch(sev Severity, title, message string) Event {
	e := Event{ID: shared.GenerateID(), Severity: sev, Title: title, Message: message, Time: d.now()}

	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		select {
		case d.events <- e:
			return e
		default:
		}
		select {
		case <-d.events:
		default:
		}
	}
}

func (d *Dispatcher) Info(title, message string) Event    { return d.Dispatch(Info, title, message) }
func (d *Dispatcher) Success(title, message string) Event { return d.Dispatch(Success, title, message) }
func (d *Dispatcher) Warn(title, message string) Event    { return d.Dispatch(Warning, title, message) }
func (d *Dispatcher) Error(title, message string) Event   { return d.Dispatch(Error, title, message) }

// Events exposes the queue for a single consuming renderer.
func (d *Dispatcher) Events() <-chan Event {
	return d.events
}

// Drain removes and returns every queued event in dispatch order.
func (d *Dispatcher) Drain() []Event {
	var out []Event
	for {
		select {
		case e := <-d.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

// Render drains the queue through fn.
func (d *Dispatcher) Render(fn func(Event)) {
	for _, e := range d.Drain() {
		fn(e)
	}
}

// LogRenderer returns a renderer that writes events through logger at a matching level.
func LogRenderer(logger *log.Logger) func(Event) {
	return func(e Event) {
		kv := []any{"title", e.Title}
		switch e.Severity {
		case Error:
			logger.Error(e.Message, kv...)
		case Warning:
			logger.Warn(e.Message, kv...)
		default:
			logger.Info(e.Message, kv...)
		}
	}
}

package sh

import (
	"sync"
	"time"

	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

// DefaultEventBacklog is the number of events an EventLog keeps.
const DefaultEventBacklog = 32

// Event is a received event with its arrival time.
type Event struct {
	At  time.Time
	Msg msgs.Message
}

// EventLog keeps the latest events in arrival order.
type EventLog struct {
	lock   sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewEventLog creates an EventLog holding size events, at least one.
func NewEventLog(size int) *EventLog {
	if size < 1 {
		size = 1
	}
	return &EventLog{events: make([]Event, size)}
}

// Add records msg, evicting the oldest event when full.
func (l *EventLog) Add(msg msgs.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.events[l.next] = Event{At: time.Now(), Msg: msg}
	l.next++
	if l.next == len(l.events) {
		l.next, l.full = 0, true
	}
}

// Last returns up to n latest events, oldest first. n <= 0 returns all.
func (l *EventLog) Last(n int) []Event {
	l.lock.Lock()
	defer l.lock.Unlock()
	count := l.next
	if l.full {
		count = len(l.events)
	}
	if n <= 0 || n > count {
		n = count
	}
	out := make([]Event, n)
	for i := range out {
		out[i] = l.events[(l.next-n+i+len(l.events))%len(l.events)]
	}
	return out
}

// Reset drops all events.
func (l *EventLog) Reset() {
	l.lock.Lock()
	defer l.lock.Unlock()
	for i := range l.events {
		l.events[i] = Event{}
	}
	l.next, l.full = 0, false
}

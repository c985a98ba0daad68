// file: internal/search/events.go
// version: 1.0.0
// guid: 0f7f3e2b-93f6-4b1f-b5ba-1d3e0a0c9e44

package search

import (
	"sync/atomic"
)

// EventKind identifies what a coordinator event reports.
type EventKind int

const (
	EventProgress EventKind = iota
	EventFinished
	EventCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventFinished:
		return "finished"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Progress is the accumulated progress of all running site tasks.
type Progress struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
	Max      int    `json:"max"`
}

// Event is a message from the coordinator to its observer. Each event can
// be consumed once; observers recreated after an interruption receive the
// last terminal event again and use Consume to skip it if it was handled.
type Event struct {
	Kind     EventKind
	SearchID uint64
	Progress Progress
	Result   *Result

	consumed *atomic.Bool
}

func newEvent(kind EventKind, searchID uint64) Event {
	return Event{Kind: kind, SearchID: searchID, consumed: new(atomic.Bool)}
}

// Consume marks the event handled and reports whether this call was the
// first to do so.
func (e Event) Consume() bool {
	if e.consumed == nil {
		return false
	}
	return e.consumed.CompareAndSwap(false, true)
}

// Consumed reports whether the event has been handled.
func (e Event) Consumed() bool {
	return e.consumed == nil || e.consumed.Load()
}

// IsTerminal reports whether the event ends a search.
func (e Event) IsTerminal() bool {
	return e.Kind == EventFinished || e.Kind == EventCancelled
}

const eventBuffer = 32

// eventChannel is the state holder plus single-subscriber channel. All
// methods are called with the coordinator lock held.
type eventChannel struct {
	ch     chan Event
	last   *Event
	closed bool
}

// subscribe replaces the current subscriber. The previous channel is
// closed. An unconsumed terminal event is replayed on the new channel.
func (ec *eventChannel) subscribe() <-chan Event {
	if ec.ch != nil {
		close(ec.ch)
	}
	ch := make(chan Event, eventBuffer)
	if ec.closed {
		close(ch)
		ec.ch = nil
		return ch
	}
	ec.ch = ch
	if ec.last != nil && !ec.last.Consumed() {
		ch <- *ec.last
	}
	return ch
}

// lastTerminal returns the most recent terminal event.
func (ec *eventChannel) lastTerminal() (Event, bool) {
	if ec.last == nil {
		return Event{}, false
	}
	return *ec.last, true
}

func (ec *eventChannel) reset() {
	ec.last = nil
}

// send delivers ev. Progress events are dropped when the subscriber lags;
// terminal events displace queued progress so they are never lost.
func (ec *eventChannel) send(ev Event) {
	if ev.IsTerminal() {
		stored := ev
		ec.last = &stored
	}
	if ec.ch == nil {
		return
	}
	if !ev.IsTerminal() {
		select {
		case ec.ch <- ev:
		default:
		}
		return
	}
	for {
		select {
		case ec.ch <- ev:
			return
		default:
		}
		select {
		case <-ec.ch:
		default:
		}
	}
}

func (ec *eventChannel) close() {
	if ec.closed {
		return
	}
	ec.closed = true
	if ec.ch != nil {
		close(ec.ch)
		ec.ch = nil
	}
}

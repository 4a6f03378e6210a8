package application

import (
	"fmt"

	"catalogtree/internal/domain"
)

// ChangeKind identifies a structural or selection mutation.
type ChangeKind int

const (
	RowsInserted ChangeKind = iota
	RowsRemoved
	CheckStateChanged
)

func (k ChangeKind) String() string {
	switch k {
	case RowsInserted:
		return "rows-inserted"
	case RowsRemoved:
		return "rows-removed"
	case CheckStateChanged:
		return "check-state-changed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// ChangeEvent describes one mutation. For row events Parent and the
// inclusive [First, Last] range locate the rows; for CheckStateChanged Node
// is the node whose state changed and First == Last == its row.
type ChangeEvent struct {
	Kind   ChangeKind
	Parent *domain.Node
	Node   *domain.Node
	First  int
	Last   int
}

// Listener receives change events synchronously, in mutation order.
type Listener func(ChangeEvent)

type listenerEntry struct {
	id int
	fn Listener
}

type notifier struct {
	nextID    int
	listeners []listenerEntry
}

// Subscribe registers fn and returns a function that removes it.
func (n *notifier) Subscribe(fn Listener) func() {
	n.nextID++
	id := n.nextID
	n.listeners = append(n.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		for i, l := range n.listeners {
			if l.id == id {
				// A fresh slice keeps an emit in progress on the old one intact
				rest := make([]listenerEntry, 0, len(n.listeners)-1)
				rest = append(rest, n.listeners[:i]...)
				n.listeners = append(rest, n.listeners[i+1:]...)
				return
			}
		}
	}
}

func (n *notifier) emit(ev ChangeEvent) {
	ls := n.listeners
	for _, l := range ls {
		l.fn(ev)
	}
}

// EventRecorder collects events, e.g. to batch them into one UI refresh.
type EventRecorder struct {
	Events []ChangeEvent
}

// Record is a Listener.
func (r *EventRecorder) Record(ev ChangeEvent) {
	r.Events = append(r.Events, ev)
}

// Drain returns the recorded events and resets the recorder.
func (r *EventRecorder) Drain() []ChangeEvent {
	out := r.Events
	r.Events = nil
	return out
}

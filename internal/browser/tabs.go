// Package browser abstracts the live tab API the background process
// consumes: query, get, activate, focus and change events.
package browser

import (
	"context"
	"errors"

	"github.com/lotas/tabsammlung/internal/types"
)

var (
	ErrNotConnected = errors.New("browser: no extension connected")
	ErrReadOnly     = errors.New("browser: source is read-only")
	ErrNoTab        = errors.New("browser: no such tab")
)

// Query filters tabs. Zero value matches all tabs.
type Query struct {
	Active        bool
	CurrentWindow bool
}

// EventKind names a tab lifecycle change.
type EventKind string

const (
	TabCreated EventKind = "tabCreated"
	TabUpdated EventKind = "tabUpdated"
	TabRemoved EventKind = "tabRemoved"
)

// Event is a tab change notification. Consumers re-query for state.
type Event struct {
	Kind  EventKind
	TabID int
}

// Tabs is a live tab source.
type Tabs interface {
	Query(ctx context.Context, q Query) ([]types.OpenTab, error)
	Get(ctx context.Context, id int) (types.OpenTab, error)
	Activate(ctx context.Context, id int) error
	FocusWindow(ctx context.Context, windowID int) error
	Events() <-chan Event
}

// Filter applies q to tabs given the id of the current window.
func Filter(tabs []types.OpenTab, q Query, currentWindow int) []types.OpenTab {
	var out []types.OpenTab
	for _, t := range tabs {
		if q.CurrentWindow && t.WindowID != currentWindow {
			continue
		}
		if q.Active && !t.Active {
			continue
		}
		out = append(out, t)
	}
	return out
}

// publish delivers ev without blocking; a full channel drops it.
func publish(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
	}
}

package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lotas/tabsammlung/internal/applog"
	"github.com/lotas/tabsammlung/internal/types"
	"nhooyr.io/websocket"
)

// bridgeRequest is a command to the extension.
type bridgeRequest struct {
	ID            string `json:"id"`
	Action        string `json:"action"`
	TabID         int    `json:"tabId,omitempty"`
	WindowID      int    `json:"windowId,omitempty"`
	Active        bool   `json:"active,omitempty"`
	CurrentWindow bool   `json:"currentWindow,omitempty"`
}

// bridgeMessage is a reply or pushed event from the extension.
type bridgeMessage struct {
	Type  string          `json:"type,omitempty"`
	ID    string          `json:"id,omitempty"`
	OK    *bool           `json:"ok,omitempty"`
	Error string          `json:"error,omitempty"`
	Tabs  []types.OpenTab `json:"tabs,omitempty"`
	Tab   *types.OpenTab  `json:"tab,omitempty"`
	TabID int             `json:"tabId,omitempty"`
}

// Bridge is a Tabs backed by the browser extension dialing in over
// WebSocket. Only the most recent extension connection is used.
type Bridge struct {
	timeout time.Duration
	events  chan Event

	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
	pending map[string]chan bridgeMessage
}

// NewBridge returns a bridge with no extension connected.
func NewBridge() *Bridge {
	return &Bridge{
		timeout: 10 * time.Second,
		events:  make(chan Event, 64),
		pending: make(map[string]chan bridgeMessage),
	}
}

// Connected reports whether an extension is connected.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Events returns tab change events pushed by the extension.
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// Query lists tabs matching q.
func (b *Bridge) Query(ctx context.Context, q Query) ([]types.OpenTab, error) {
	reply, err := b.call(ctx, bridgeRequest{Action: "query", Active: q.Active, CurrentWindow: q.CurrentWindow})
	if err != nil {
		return nil, err
	}
	return reply.Tabs, nil
}

// Get returns one tab.
func (b *Bridge) Get(ctx context.Context, id int) (types.OpenTab, error) {
	reply, err := b.call(ctx, bridgeRequest{Action: "get", TabID: id})
	if err != nil {
		return types.OpenTab{}, err
	}
	if reply.Tab == nil {
		return types.OpenTab{}, ErrNoTab
	}
	return *reply.Tab, nil
}

// Activate makes the tab the active one in its window.
func (b *Bridge) Activate(ctx context.Context, id int) error {
	_, err := b.call(ctx, bridgeRequest{Action: "activate", TabID: id})
	return err
}

// FocusWindow raises the window.
func (b *Bridge) FocusWindow(ctx context.Context, windowID int) error {
	_, err := b.call(ctx, bridgeRequest{Action: "focusWindow", WindowID: windowID})
	return err
}

func (b *Bridge) call(ctx context.Context, req bridgeRequest) (bridgeMessage, error) {
	req.ID = uuid.NewString()
	data, err := json.Marshal(req)
	if err != nil {
		return bridgeMessage{}, err
	}

	b.mu.Lock()
	conn, connCtx := b.conn, b.connCtx
	if conn == nil {
		b.mu.Unlock()
		return bridgeMessage{}, ErrNotConnected
	}
	ch := make(chan bridgeMessage, 1)
	b.pending[req.ID] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, req.ID)
		b.mu.Unlock()
	}()

	applog.Info("bridge.send", "action", req.Action, "id", req.ID)
	if err := conn.Write(connCtx, websocket.MessageText, data); err != nil {
		return bridgeMessage{}, fmt.Errorf("bridge %s: %w", req.Action, err)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	select {
	case reply, ok := <-ch:
		if !ok {
			return bridgeMessage{}, ErrNotConnected
		}
		if reply.OK != nil && !*reply.OK {
			return reply, fmt.Errorf("bridge %s: %s", req.Action, reply.Error)
		}
		return reply, nil
	case <-timer.C:
		return bridgeMessage{}, fmt.Errorf("bridge %s: timed out", req.Action)
	case <-ctx.Done():
		return bridgeMessage{}, ctx.Err()
	}
}

// Handler accepts the extension's WebSocket connection.
func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("bridge.accept", err)
			return
		}
		conn.SetReadLimit(16 << 20)

		ctx := r.Context()
		b.mu.Lock()
		if b.conn != nil {
			applog.Info("bridge.replaced")
			b.conn.CloseNow()
		}
		b.conn = conn
		b.connCtx = ctx
		b.mu.Unlock()
		applog.Info("bridge.connected", "remote", r.RemoteAddr)

		defer func() {
			b.mu.Lock()
			if b.conn == conn {
				b.conn = nil
				b.connCtx = nil
				for id, ch := range b.pending {
					close(ch)
					delete(b.pending, id)
				}
			}
			b.mu.Unlock()
			conn.CloseNow()
			applog.Info("bridge.disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg bridgeMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				applog.Error("bridge.parse", err)
				continue
			}
			b.dispatch(msg)
		}
	})
}

func (b *Bridge) dispatch(msg bridgeMessage) {
	if msg.ID != "" {
		b.mu.Lock()
		ch, ok := b.pending[msg.ID]
		if ok {
			delete(b.pending, msg.ID)
		}
		b.mu.Unlock()
		if ok {
			ch <- msg
		}
		return
	}
	switch kind := EventKind(msg.Type); kind {
	case TabCreated, TabUpdated, TabRemoved:
		applog.Info("bridge.event", "type", msg.Type, "tab", msg.TabID)
		publish(b.events, Event{Kind: kind, TabID: msg.TabID})
	default:
		applog.Info("bridge.ignored", "type", msg.Type)
	}
}

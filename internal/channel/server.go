package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/lotas/tabsammlung/internal/applog"
	"github.com/lotas/tabsammlung/internal/browser"
	"nhooyr.io/websocket"
)

// Server accepts UI connections and answers their requests through a
// Service. Each request runs in its own goroutine, so responses may
// arrive out of issue order.
type Server struct {
	svc *Service

	mu    sync.Mutex
	conns map[*websocket.Conn]context.Context
}

// NewServer returns a server over svc.
func NewServer(svc *Service) *Server {
	return &Server{
		svc:   svc,
		conns: make(map[*websocket.Conn]context.Context),
	}
}

// Clients returns the number of connected UIs.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Handler returns an http.Handler that accepts UI WebSocket upgrades.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("channel.accept", err)
			return
		}
		conn.SetReadLimit(4 << 20)

		ctx := r.Context()
		s.mu.Lock()
		s.conns[conn] = ctx
		s.mu.Unlock()
		applog.Info("channel.connected", "remote", r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
			conn.CloseNow()
			applog.Info("channel.disconnected", "remote", r.RemoteAddr)
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				// A frame with a readable reqId still gets its one reply.
				var head struct {
					ReqID string `json:"reqId"`
				}
				if json.Unmarshal(data, &head) != nil || head.ReqID == "" {
					applog.Error("channel.parse", err)
					continue
				}
				applog.Error("channel.parse", err, "reqId", head.ReqID)
				msg = Message{ReqID: head.ReqID}
			}
			applog.Info("channel.recv", "type", string(msg.Type), "reqId", msg.ReqID)
			go s.reply(ctx, conn, msg)
		}
	})
}

func (s *Server) reply(ctx context.Context, conn *websocket.Conn, msg Message) {
	resp := s.svc.Handle(ctx, msg)
	data, err := json.Marshal(resp)
	if err != nil {
		applog.Error("channel.encode", err, "type", string(msg.Type))
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		applog.Error("channel.reply", err, "type", string(msg.Type))
	}
}

// Broadcast sends msg to every connected UI. Delivery is best-effort;
// failures are logged and dropped.
func (s *Server) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		applog.Error("channel.encode", err, "type", string(msg.Type))
		return
	}
	s.mu.Lock()
	targets := make(map[*websocket.Conn]context.Context, len(s.conns))
	for c, ctx := range s.conns {
		targets[c] = ctx
	}
	s.mu.Unlock()

	for conn, ctx := range targets {
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			applog.Error("channel.broadcast", err, "type", string(msg.Type))
		}
	}
}

// Watch broadcasts OPEN_TABS_UPDATED for every tab event until ctx is
// done or events is closed.
func (s *Server) Watch(ctx context.Context, events <-chan browser.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			applog.Info("channel.tabs_changed", "kind", string(ev.Kind), "tab", ev.TabID)
			s.Broadcast(Message{Type: OpenTabsUpdated})
		}
	}
}

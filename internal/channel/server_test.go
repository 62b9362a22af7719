package channel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lotas/tabsammlung/internal/browser"
	"github.com/lotas/tabsammlung/internal/types"
	"nhooyr.io/websocket"
)

func startServer(t *testing.T, svc *Service) (*Server, string) {
	t.Helper()
	srv := NewServer(svc)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func waitClients(t *testing.T, srv *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", srv.Clients(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClientCall(t *testing.T) {
	_, url := startServer(t, NewService(activeTab("Ex", "https://ex.com"), &memItems{}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	saved, err := c.Call(ctx, Request(SaveCurrentTab))
	if err != nil || !saved.OK {
		t.Fatalf("save = %+v, %v", saved, err)
	}
	items := c.Send(ctx, Request(GetItems))
	if items == nil || len(items.Items) != 1 || items.Items[0].URL != "https://ex.com" {
		t.Fatalf("items = %+v", items)
	}
	if !items.Items[0].CreatedAt.Equal(saved.Item.CreatedAt.Truncate(time.Millisecond)) {
		t.Errorf("createdAt changed over the wire: %v vs %v", items.Items[0].CreatedAt, saved.Item.CreatedAt)
	}
	unknown := c.Send(ctx, Request("NOPE"))
	if unknown == nil || unknown.OK || unknown.Error != "unknown message" {
		t.Errorf("unknown = %+v", unknown)
	}
}

func TestResponsesCorrelateOutOfOrder(t *testing.T) {
	tabs := activeTab("Ex", "https://ex.com")
	tabs.block = make(chan struct{})
	_, url := startServer(t, NewService(tabs, &memItems{items: []types.SavedItem{{ID: "a"}}}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	slow := make(chan Response, 1)
	go func() {
		resp, _ := c.Call(ctx, Request(GetOpenTabs))
		slow <- resp
	}()
	time.Sleep(20 * time.Millisecond)

	fast, err := c.Call(ctx, Request(GetItems))
	if err != nil || len(fast.Items) != 1 {
		t.Fatalf("fast = %+v, %v", fast, err)
	}
	select {
	case <-slow:
		t.Fatal("blocked request answered early")
	default:
	}

	close(tabs.block)
	select {
	case resp := <-slow:
		if !resp.OK || len(resp.Tabs) != 1 {
			t.Errorf("slow = %+v", resp)
		}
	case <-ctx.Done():
		t.Fatal("slow request never answered")
	}
}

func TestWatchBroadcastsToAllClients(t *testing.T) {
	srv, url := startServer(t, NewService(&fakeTabs{}, &memItems{}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	a, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer a.Close()
	b, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer b.Close()
	waitClients(t, srv, 2)

	events := make(chan browser.Event, 1)
	go srv.Watch(ctx, events)
	events <- browser.Event{Kind: browser.TabCreated, TabID: 4}

	for name, c := range map[string]*Client{"a": a, "b": b} {
		select {
		case n := <-c.Notifications():
			if n.Type != OpenTabsUpdated {
				t.Errorf("%s got %q", name, n.Type)
			}
		case <-ctx.Done():
			t.Fatalf("%s: no notification", name)
		}
	}
}

func TestMalformedFrameDropped(t *testing.T) {
	_, url := startServer(t, NewService(&fakeTabs{}, &memItems{}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	conn.Write(ctx, websocket.MessageText, []byte(`{not json`))
	conn.Write(ctx, websocket.MessageText, []byte(`{"reqId":"r2","type":"CLEAR_ITEMS"}`))
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"reqId":"r2","ok":true}` {
		t.Errorf("first frame = %s", data)
	}
}

func TestMistypedFrameGetsUnknownReply(t *testing.T) {
	_, url := startServer(t, NewService(&fakeTabs{}, &memItems{}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	conn.Write(ctx, websocket.MessageText, []byte(`{"reqId":"r1","type":5}`))
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"reqId":"r1","ok":false,"error":"unknown message"}` {
		t.Errorf("reply = %s", data)
	}
}

func TestSendAfterServerGoneIsNil(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conn.Close(websocket.StatusGoingAway, "shutting down")
	}))
	defer ts.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	// The read loop notices the drop and closes notifications.
	select {
	case _, ok := <-c.Notifications():
		if ok {
			t.Fatal("unexpected notification")
		}
	case <-ctx.Done():
		t.Fatal("client never noticed the closed connection")
	}
	if resp := c.Send(ctx, Request(GetItems)); resp != nil {
		t.Errorf("resp = %+v, want nil", resp)
	}
	if _, err := c.Call(ctx, Request(GetItems)); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestCloseFailsLaterCalls(t *testing.T) {
	_, url := startServer(t, NewService(&fakeTabs{}, &memItems{}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	c.Close()
	if resp := c.Send(ctx, Request(GetItems)); resp != nil {
		t.Errorf("resp = %+v, want nil", resp)
	}
}

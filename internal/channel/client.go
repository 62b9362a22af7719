package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lotas/tabsammlung/internal/applog"
	"nhooyr.io/websocket"
)

// ErrClosed is returned for calls on a client whose connection is gone.
var ErrClosed = errors.New("channel: connection closed")

// incoming is any frame from the background process.
type incoming struct {
	Response
	Type Type `json:"type,omitempty"`
}

// Client is a UI's connection to the background process.
type Client struct {
	conn  *websocket.Conn
	notes chan Message

	mu      sync.Mutex
	pending map[string]chan Response
	closed  bool
}

// Dial connects to the background process at url (ws://host:port/ui).
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(4 << 20)
	c := &Client{
		conn:    conn,
		notes:   make(chan Message, 16),
		pending: make(map[string]chan Response),
	}
	go c.readLoop()
	return c, nil
}

// Notifications delivers unsolicited messages. It is closed when the
// connection ends. Slow readers miss notifications.
func (c *Client) Notifications() <-chan Message {
	return c.notes
}

func (c *Client) readLoop() {
	defer c.shutdown()
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			return
		}
		var in incoming
		if err := json.Unmarshal(data, &in); err != nil {
			applog.Error("client.parse", err)
			continue
		}
		c.mu.Lock()
		if in.ReqID == "" {
			if !c.closed {
				select {
				case c.notes <- Message{Type: in.Type}:
				default:
				}
			}
			c.mu.Unlock()
			continue
		}
		ch, ok := c.pending[in.ReqID]
		delete(c.pending, in.ReqID)
		c.mu.Unlock()
		if ok {
			ch <- in.Response
		}
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	close(c.notes)
}

// Call sends msg and waits for its response. A ReqID is assigned when
// msg has none.
func (c *Client) Call(ctx context.Context, msg Message) (Response, error) {
	if msg.ReqID == "" {
		msg.ReqID = uuid.NewString()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return Response{}, err
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Response{}, ErrClosed
	}
	c.pending[msg.ReqID] = ch
	c.mu.Unlock()

	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.forget(msg.ReqID)
		return Response{}, fmt.Errorf("send %s: %w", msg.Type, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return Response{}, ErrClosed
		}
		return resp, nil
	case <-ctx.Done():
		c.forget(msg.ReqID)
		return Response{}, ctx.Err()
	}
}

func (c *Client) forget(reqID string) {
	c.mu.Lock()
	delete(c.pending, reqID)
	c.mu.Unlock()
}

// Send is Call for UI code: any channel failure is logged and reported
// as a nil response.
func (c *Client) Send(ctx context.Context, msg Message) *Response {
	resp, err := c.Call(ctx, msg)
	if err != nil {
		applog.Error("client.send", err, "type", string(msg.Type))
		return nil
	}
	return &resp
}

// Close ends the connection. In-flight calls fail with ErrClosed.
func (c *Client) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.shutdown()
	return err
}

package browser

import (
	"context"
	"fmt"
	"sync"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/lotas/tabsammlung/internal/applog"
	"github.com/lotas/tabsammlung/internal/types"
)

// CDP is a Tabs over a running Chromium's DevTools endpoint. Page
// targets are tabs; each target gets a small int handle for its lifetime.
type CDP struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan Event

	mu      sync.Mutex
	handles map[target.ID]int
	targets map[int]target.ID
	next    int
}

// DialCDP attaches to the browser at url, e.g. ws://127.0.0.1:9222/devtools/browser/<id>
// or http://127.0.0.1:9222.
func DialCDP(ctx context.Context, url string) (*CDP, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, url)
	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	c := &CDP{
		ctx: cctx,
		cancel: func() {
			cancelCtx()
			cancelAlloc()
		},
		events:  make(chan Event, 64),
		handles: make(map[target.ID]int),
		targets: make(map[int]target.ID),
	}

	// Targets connects to the browser without opening a tab.
	if _, err := chromedp.Targets(cctx); err != nil {
		c.cancel()
		return nil, fmt.Errorf("connect to %s: %w", url, err)
	}
	chromedp.ListenBrowser(cctx, c.onEvent)
	if err := target.SetDiscoverTargets(true).Do(c.exec()); err != nil {
		c.cancel()
		return nil, fmt.Errorf("discover targets: %w", err)
	}
	applog.Info("cdp.connected", "url", url)
	return c, nil
}

// Close detaches from the browser.
func (c *CDP) Close() {
	c.cancel()
}

// Events returns target lifecycle events.
func (c *CDP) Events() <-chan Event {
	return c.events
}

func (c *CDP) exec() context.Context {
	return cdp.WithExecutor(c.ctx, chromedp.FromContext(c.ctx).Browser)
}

func (c *CDP) onEvent(ev any) {
	switch ev := ev.(type) {
	case *target.EventTargetCreated:
		if ev.TargetInfo.Type == "page" {
			publish(c.events, Event{Kind: TabCreated, TabID: c.handle(ev.TargetInfo.TargetID)})
		}
	case *target.EventTargetInfoChanged:
		if ev.TargetInfo.Type == "page" {
			publish(c.events, Event{Kind: TabUpdated, TabID: c.handle(ev.TargetInfo.TargetID)})
		}
	case *target.EventTargetDestroyed:
		c.mu.Lock()
		id, ok := c.handles[ev.TargetID]
		delete(c.handles, ev.TargetID)
		delete(c.targets, id)
		c.mu.Unlock()
		if ok {
			publish(c.events, Event{Kind: TabRemoved, TabID: id})
		}
	}
}

func (c *CDP) handle(tid target.ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.handles[tid]; ok {
		return id
	}
	c.next++
	c.handles[tid] = c.next
	c.targets[c.next] = tid
	return c.next
}

func (c *CDP) target(id int) (target.ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tid, ok := c.targets[id]
	return tid, ok
}

// tabs lists page targets. Chromium returns them most recently focused
// first, so the first page is the active tab and its window is current.
func (c *CDP) tabs(ctx context.Context) ([]types.OpenTab, int, error) {
	infos, err := chromedp.Targets(c.ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list targets: %w", err)
	}
	var out []types.OpenTab
	current := 0
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		windowID, _, err := cdpbrowser.GetWindowForTarget().WithTargetID(info.TargetID).Do(c.exec())
		if err != nil {
			applog.Error("cdp.window", err, "target", string(info.TargetID))
		}
		tab := types.OpenTab{
			ID:       c.handle(info.TargetID),
			WindowID: int(windowID),
			Title:    info.Title,
			URL:      info.URL,
			Active:   len(out) == 0,
		}
		if tab.Active {
			current = tab.WindowID
		}
		out = append(out, tab)
	}
	return out, current, nil
}

// Query lists tabs matching q.
func (c *CDP) Query(ctx context.Context, q Query) ([]types.OpenTab, error) {
	tabs, current, err := c.tabs(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(tabs, q, current), nil
}

// Get returns the tab with handle id.
func (c *CDP) Get(ctx context.Context, id int) (types.OpenTab, error) {
	tabs, _, err := c.tabs(ctx)
	if err != nil {
		return types.OpenTab{}, err
	}
	for _, t := range tabs {
		if t.ID == id {
			return t, nil
		}
	}
	return types.OpenTab{}, ErrNoTab
}

// Activate brings the target to the front.
func (c *CDP) Activate(ctx context.Context, id int) error {
	tid, ok := c.target(id)
	if !ok {
		return ErrNoTab
	}
	return target.ActivateTarget(tid).Do(c.exec())
}

// FocusWindow restores the window if it is minimised.
func (c *CDP) FocusWindow(ctx context.Context, windowID int) error {
	return cdpbrowser.SetWindowBounds(cdpbrowser.WindowID(windowID), &cdpbrowser.Bounds{
		WindowState: cdpbrowser.WindowStateNormal,
	}).Do(c.exec())
}

package channel

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lotas/tabsammlung/internal/applog"
	"github.com/lotas/tabsammlung/internal/browser"
	"github.com/lotas/tabsammlung/internal/types"
)

// ItemStore persists the quick-save list.
type ItemStore interface {
	Load() ([]types.SavedItem, error)
	Save(items []types.SavedItem) error
}

// Service dispatches requests against a tab source and the quick-save list.
type Service struct {
	tabs  browser.Tabs
	items ItemStore
	now   func() time.Time
	newID func() string

	// mu serialises read-modify-write on the quick-save list.
	mu sync.Mutex
}

// NewService returns a service over tabs and items.
func NewService(tabs browser.Tabs, items ItemStore) *Service {
	return &Service{
		tabs:  tabs,
		items: items,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Handle runs one request and returns its response. It never fails
// without a response; errors become {ok:false}.
func (s *Service) Handle(ctx context.Context, msg Message) Response {
	var resp Response
	switch msg.Type {
	case SaveCurrentTab:
		resp = s.saveCurrentTab(ctx)
	case GetOpenTabs:
		resp = s.getOpenTabs(ctx)
	case ActivateTab:
		resp = s.activateTab(ctx, msg)
	case GetItems:
		resp = s.getItems()
	case RemoveItem:
		resp = s.removeItem(msg.StringID())
	case ClearItems:
		resp = s.clearItems()
	default:
		resp = fail("unknown message")
	}
	resp.ReqID = msg.ReqID
	if !resp.OK {
		applog.Info("channel.fail", "type", string(msg.Type), "error", resp.Error)
	}
	return resp
}

func (s *Service) saveCurrentTab(ctx context.Context) Response {
	tabs, err := s.tabs.Query(ctx, browser.Query{Active: true, CurrentWindow: true})
	if err != nil {
		return fail(err.Error())
	}
	if len(tabs) == 0 || tabs[0].URL == "" {
		return fail("no active tab")
	}
	tab := tabs[0]
	title := tab.Title
	if title == "" {
		title = tab.URL
	}
	item := types.SavedItem{
		ID:        s.newID(),
		Title:     title,
		URL:       tab.URL,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.items.Load()
	if err != nil {
		return fail(err.Error())
	}
	items = append([]types.SavedItem{item}, items...)
	if len(items) > types.SavedItemsCap {
		items = items[:types.SavedItemsCap]
	}
	if err := s.items.Save(items); err != nil {
		return fail(err.Error())
	}
	applog.Info("channel.saved", "id", item.ID, "url", item.URL, "count", len(items))
	return Response{OK: true, Item: &item}
}

func (s *Service) getOpenTabs(ctx context.Context) Response {
	tabs, err := s.tabs.Query(ctx, browser.Query{CurrentWindow: true})
	if err != nil {
		return fail(err.Error())
	}
	out := make([]types.OpenTab, 0, len(tabs))
	for _, t := range tabs {
		if t.URL == "" {
			continue
		}
		if t.Title == "" {
			t.Title = t.URL
		}
		out = append(out, t)
	}
	return Response{OK: true, Tabs: out}
}

func (s *Service) activateTab(ctx context.Context, msg Message) Response {
	id, ok := msg.IntID()
	if !ok {
		return fail("invalid tab id")
	}
	tab, err := s.tabs.Get(ctx, id)
	if err != nil {
		return fail(err.Error())
	}
	if tab.WindowID != 0 {
		if err := s.tabs.FocusWindow(ctx, tab.WindowID); err != nil {
			return fail(err.Error())
		}
	}
	if err := s.tabs.Activate(ctx, id); err != nil {
		return fail(err.Error())
	}
	return Response{OK: true}
}

func (s *Service) getItems() Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.items.Load()
	if err != nil {
		return fail(err.Error())
	}
	if items == nil {
		items = []types.SavedItem{}
	}
	return Response{OK: true, Items: items}
}

func (s *Service) removeItem(id string) Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.items.Load()
	if err != nil {
		return fail(err.Error())
	}
	kept := items[:0]
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	if err := s.items.Save(kept); err != nil {
		return fail(err.Error())
	}
	return Response{OK: true}
}

func (s *Service) clearItems() Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.items.Save([]types.SavedItem{}); err != nil {
		return fail(err.Error())
	}
	return Response{OK: true}
}

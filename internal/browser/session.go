package browser

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/lotas/tabsammlung/internal/applog"
	"github.com/lotas/tabsammlung/internal/firefox"
	"github.com/lotas/tabsammlung/internal/types"
)

// Session is a read-only Tabs over a Firefox profile's session file.
// The focused window of the file is the current window.
type Session struct {
	profileDir string
	interval   time.Duration
	events     chan Event

	mu      sync.Mutex
	snap    *firefox.Snapshot
	modTime time.Time
}

// NewSession reads tabs from profileDir, checking for changes every interval.
func NewSession(profileDir string, interval time.Duration) *Session {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Session{
		profileDir: profileDir,
		interval:   interval,
		events:     make(chan Event, 16),
	}
}

// Events fires TabUpdated whenever the session file changes.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Run polls the session file until ctx is done.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := s.refresh()
			if err != nil {
				applog.Error("session.refresh", err, "profile", s.profileDir)
				continue
			}
			if changed {
				publish(s.events, Event{Kind: TabUpdated})
			}
		}
	}
}

// refresh re-reads the file when its mtime moved. The first successful
// read does not count as a change.
func (s *Session) refresh() (bool, error) {
	path, err := firefox.SessionFilePath(s.profileDir)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	same := s.snap != nil && info.ModTime().Equal(s.modTime)
	first := s.snap == nil
	s.mu.Unlock()
	if same {
		return false, nil
	}

	snap, err := firefox.ReadSessionFile(s.profileDir)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	s.snap = snap
	s.modTime = info.ModTime()
	s.mu.Unlock()
	return !first, nil
}

func (s *Session) snapshot() (*firefox.Snapshot, error) {
	if _, err := s.refresh(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, nil
}

// Query lists tabs matching q.
func (s *Session) Query(ctx context.Context, q Query) ([]types.OpenTab, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return Filter(snap.Tabs, q, snap.CurrentWindow), nil
}

// Get returns the tab with id.
func (s *Session) Get(ctx context.Context, id int) (types.OpenTab, error) {
	snap, err := s.snapshot()
	if err != nil {
		return types.OpenTab{}, err
	}
	for _, t := range snap.Tabs {
		if t.ID == id {
			return t, nil
		}
	}
	return types.OpenTab{}, ErrNoTab
}

// Activate is not supported on a session file.
func (s *Session) Activate(ctx context.Context, id int) error {
	return ErrReadOnly
}

// FocusWindow is not supported on a session file.
func (s *Session) FocusWindow(ctx context.Context, windowID int) error {
	return ErrReadOnly
}

package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lotas/tabsammlung/internal/firefox"
)

func writeSession(t *testing.T, profile, body string, mod time.Time) {
	t.Helper()
	dir := filepath.Join(profile, "sessionstore-backups")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	enc, err := firefox.CompressMozLz4([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "recovery.jsonlz4")
	if err := os.WriteFile(path, enc, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

const twoWindows = `{"selectedWindow":1,"windows":[
	{"selected":2,"tabs":[
		{"entries":[{"url":"https://a","title":"A"}],"index":1},
		{"entries":[{"url":"https://b","title":"B"}],"index":1}
	]},
	{"selected":1,"tabs":[
		{"entries":[{"url":"https://c","title":"C"}],"index":1}
	]}
]}`

func TestSessionQuery(t *testing.T) {
	profile := t.TempDir()
	writeSession(t, profile, twoWindows, time.Now())
	s := NewSession(profile, time.Hour)
	ctx := context.Background()

	active, err := s.Query(ctx, Query{Active: true, CurrentWindow: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(active) != 1 || active[0].URL != "https://b" {
		t.Errorf("active = %+v", active)
	}
	all, _ := s.Query(ctx, Query{})
	if len(all) != 3 {
		t.Errorf("got %d tabs", len(all))
	}
	got, err := s.Get(ctx, all[2].ID)
	if err != nil || got.URL != "https://c" {
		t.Errorf("Get = %+v, %v", got, err)
	}
	if _, err := s.Get(ctx, 99); !errors.Is(err, ErrNoTab) {
		t.Errorf("Get unknown = %v", err)
	}
}

func TestSessionReadOnly(t *testing.T) {
	s := NewSession(t.TempDir(), time.Hour)
	if err := s.Activate(context.Background(), 1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Activate = %v", err)
	}
	if err := s.FocusWindow(context.Background(), 1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("FocusWindow = %v", err)
	}
}

func TestSessionRefreshDetectsChange(t *testing.T) {
	profile := t.TempDir()
	base := time.Now().Add(-time.Minute)
	writeSession(t, profile, twoWindows, base)
	s := NewSession(profile, time.Hour)

	if changed, err := s.refresh(); err != nil || changed {
		t.Fatalf("first refresh = %v, %v", changed, err)
	}
	if changed, _ := s.refresh(); changed {
		t.Error("unchanged file reported as changed")
	}
	writeSession(t, profile, `{"windows":[{"tabs":[]}]}`, base.Add(time.Second))
	if changed, err := s.refresh(); err != nil || !changed {
		t.Errorf("refresh after write = %v, %v", changed, err)
	}
	tabs, _ := s.Query(context.Background(), Query{})
	if len(tabs) != 0 {
		t.Errorf("stale snapshot: %d tabs", len(tabs))
	}
}

func TestSessionRunEmitsEvent(t *testing.T) {
	profile := t.TempDir()
	base := time.Now().Add(-time.Minute)
	writeSession(t, profile, twoWindows, base)
	s := NewSession(profile, 10*time.Millisecond)
	s.refresh()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go s.Run(ctx)

	writeSession(t, profile, twoWindows, base.Add(time.Second))
	select {
	case ev := <-s.Events():
		if ev.Kind != TabUpdated {
			t.Errorf("event = %+v", ev)
		}
	case <-ctx.Done():
		t.Fatal("no event after session change")
	}
}

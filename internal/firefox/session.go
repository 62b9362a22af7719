package firefox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lotas/tabsammlung/internal/types"
)

// SessionFiles are tried in order inside sessionstore-backups.
var SessionFiles = []string{"recovery.jsonlz4", "previous.jsonlz4"}

// Snapshot is the tab state recorded in a session file.
type Snapshot struct {
	Tabs []types.OpenTab
	// CurrentWindow is the WindowID of the focused window, 0 if unknown.
	CurrentWindow int
}

// WindowTabs returns the tabs of one window in tab order.
func (s *Snapshot) WindowTabs(windowID int) []types.OpenTab {
	var out []types.OpenTab
	for _, t := range s.Tabs {
		if t.WindowID == windowID {
			out = append(out, t)
		}
	}
	return out
}

type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries []rawEntry `json:"entries"`
	Index   int        `json:"index"`
	Image   string     `json:"image"`
	Pinned  bool       `json:"pinned"`
}

type rawWindow struct {
	Tabs     []rawTab `json:"tabs"`
	Selected int      `json:"selected"`
}

type rawSession struct {
	Windows        []rawWindow `json:"windows"`
	SelectedWindow int         `json:"selectedWindow"`
}

// ParseSession reads decompressed session JSON. Windows are numbered from
// 1 in file order and tabs get sequential ids across all windows, so ids
// are stable only for one file version.
func ParseSession(data []byte) (*Snapshot, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	snap := &Snapshot{}
	if raw.SelectedWindow >= 1 && raw.SelectedWindow <= len(raw.Windows) {
		snap.CurrentWindow = raw.SelectedWindow
	} else if len(raw.Windows) > 0 {
		snap.CurrentWindow = 1
	}

	nextID := 1
	for w, window := range raw.Windows {
		windowID := w + 1
		for i, rt := range window.Tabs {
			id := nextID
			nextID++
			if len(rt.Entries) == 0 {
				continue
			}
			// index is 1-based; clamp to the last entry when out of range.
			e := rt.Index - 1
			if e < 0 || e >= len(rt.Entries) {
				e = len(rt.Entries) - 1
			}
			entry := rt.Entries[e]
			snap.Tabs = append(snap.Tabs, types.OpenTab{
				ID:       id,
				WindowID: windowID,
				Title:    entry.Title,
				URL:      entry.URL,
				Favicon:  rt.Image,
				Active:   window.Selected == i+1,
				Pinned:   rt.Pinned,
			})
		}
	}
	return snap, nil
}

// SessionFilePath returns the first existing session file of a profile.
func SessionFilePath(profileDir string) (string, error) {
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	for _, name := range SessionFiles {
		p := filepath.Join(backupDir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no session file found in %s", backupDir)
}

// ReadSessionFile reads and parses the session of a profile directory.
func ReadSessionFile(profileDir string) (*Snapshot, error) {
	path, err := SessionFilePath(profileDir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress session file: %w", err)
	}
	return ParseSession(decompressed)
}

package types

import (
	"encoding/json"
	"time"
)

const (
	// DefaultCollectionID is the collection that receives new and orphaned items.
	DefaultCollectionID   = "inbox"
	DefaultCollectionName = "INBOX"

	// SavedItemsCap bounds the quick-save list kept by the background process.
	SavedItemsCap = 500
)

// Item is a saved tab reference inside a collection.
type Item struct {
	ID           string
	Title        string
	URL          string
	Favicon      string
	Thumbnail    string
	CollectionID string
	Created      time.Time
	Order        int
}

// Collection is a named, orderable group of items.
type Collection struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Starred  bool   `json:"starred"`
	Expanded bool   `json:"expanded"`
	Order    int    `json:"order"`
}

// OpenTab is a live browser tab. It is never persisted.
type OpenTab struct {
	ID       int    `json:"id"`
	WindowID int    `json:"windowId,omitempty"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Favicon  string `json:"favIconUrl,omitempty"`
	Active   bool   `json:"active"`
	Pinned   bool   `json:"pinned"`
}

// SavedItem is an entry of the flat quick-save list used by the popup path.
type SavedItem struct {
	ID        string
	Title     string
	URL       string
	CreatedAt time.Time
}

// savedItemJSON is the wire shape: createdAt travels as epoch milliseconds.
type savedItemJSON struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}

func (s SavedItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(savedItemJSON{
		ID:        s.ID,
		Title:     s.Title,
		URL:       s.URL,
		CreatedAt: s.CreatedAt.UnixMilli(),
	})
}

func (s *SavedItem) UnmarshalJSON(data []byte) error {
	var raw savedItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID = raw.ID
	s.Title = raw.Title
	s.URL = raw.URL
	s.CreatedAt = time.UnixMilli(raw.CreatedAt)
	return nil
}

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}

package board

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lotas/tabsammlung/internal/applog"
	"github.com/lotas/tabsammlung/internal/types"
)

// Storage keys shared with the dashboard's on-disk format.
const (
	keyItems       = "toby-tabs"
	keyCollections = "toby-collections"
	keyVersion     = "toby-version"
)

// Store is the key-value persistence the board writes through.
// SetMany must apply all entries atomically.
type Store interface {
	Get(key string) ([]byte, bool, error)
	SetMany(entries map[string][]byte) error
}

// itemJSON is the persisted item. Collection carries the legacy
// name-based reference and is only read.
type itemJSON struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	URL          string          `json:"url"`
	Favicon      string          `json:"favicon,omitempty"`
	Thumbnail    string          `json:"thumbnail,omitempty"`
	CollectionID string          `json:"collectionId,omitempty"`
	Collection   string          `json:"collection,omitempty"`
	Created      json.RawMessage `json:"created,omitempty"`
	Order        int             `json:"order"`
}

type collectionJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Starred  bool   `json:"starred"`
	Expanded bool   `json:"expanded"`
	Order    *int   `json:"order,omitempty"`
}

// Load reads the board from store. Missing or malformed keys are treated
// as empty; store read errors are returned.
func Load(store Store, opts ...Option) (*Board, error) {
	rawCols, _, err := store.Get(keyCollections)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	rawItems, _, err := store.Get(keyItems)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	rawVersion, _, err := store.Get(keyVersion)
	if err != nil {
		return nil, fmt.Errorf("load version: %w", err)
	}

	collections, err := DecodeCollections(rawCols)
	if err != nil {
		applog.Error("board.load.collections", err)
		collections = nil
	}
	b := New(nil, collections, store, opts...)

	items, err := decodeItems(rawItems, b)
	if err != nil {
		applog.Error("board.load.items", err)
		items = nil
	}
	b.items = items
	if v, err := strconv.ParseInt(string(rawVersion), 10, 64); err == nil {
		b.version = v
	}
	applog.Info("board.load", "items", len(b.items), "collections", len(b.collections), "version", b.version)
	return b, nil
}

// Version is the persisted write counter.
func (b *Board) Version() int64 {
	return b.version
}

// DecodeCollections parses the persisted collection list. A collection
// without an order takes its list position.
func DecodeCollections(data []byte) ([]types.Collection, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw []collectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode collections: %w", err)
	}
	out := make([]types.Collection, 0, len(raw))
	for i, rc := range raw {
		c := types.Collection{
			ID:       rc.ID,
			Name:     rc.Name,
			Starred:  rc.Starred,
			Expanded: rc.Expanded,
			Order:    i,
		}
		if rc.Order != nil {
			c.Order = *rc.Order
		}
		out = append(out, c)
	}
	return out, nil
}

// decodeItems parses persisted items, resolving legacy name references
// against b's collections.
func decodeItems(data []byte, b *Board) ([]types.Item, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw []itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	out := make([]types.Item, 0, len(raw))
	for _, ri := range raw {
		created, err := parseTimestamp(ri.Created)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", ri.ID, err)
		}
		it := types.Item{
			ID:           ri.ID,
			Title:        ri.Title,
			URL:          ri.URL,
			Favicon:      ri.Favicon,
			Thumbnail:    ri.Thumbnail,
			CollectionID: ri.CollectionID,
			Created:      created,
			Order:        ri.Order,
		}
		if _, ok := b.Collection(it.CollectionID); !ok {
			it.CollectionID = types.DefaultCollectionID
			if c, ok := b.CollectionByName(ri.Collection); ok {
				it.CollectionID = c.ID
			}
		}
		out = append(out, it)
	}
	return out, nil
}

// parseTimestamp accepts an RFC 3339 string or epoch milliseconds.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}, err
		}
		if ms, err := strconv.ParseInt(str, 10, 64); err == nil {
			return time.UnixMilli(ms), nil
		}
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", str, err)
		}
		return t, nil
	}
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %s: %w", s, err)
	}
	return time.UnixMilli(int64(ms)), nil
}

// EncodeItems serialises items in the persisted format.
func EncodeItems(items []types.Item) ([]byte, error) {
	raw := make([]itemJSON, 0, len(items))
	for _, it := range items {
		created, err := json.Marshal(it.Created.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return nil, err
		}
		raw = append(raw, itemJSON{
			ID:           it.ID,
			Title:        it.Title,
			URL:          it.URL,
			Favicon:      it.Favicon,
			Thumbnail:    it.Thumbnail,
			CollectionID: it.CollectionID,
			Created:      created,
			Order:        it.Order,
		})
	}
	return json.Marshal(raw)
}

// EncodeCollections serialises collections in the persisted format.
func EncodeCollections(collections []types.Collection) ([]byte, error) {
	if collections == nil {
		collections = []types.Collection{}
	}
	return json.Marshal(collections)
}

// persist writes the named keys and a bumped version in one SetMany.
// Failures are logged; the in-memory state stays authoritative.
func (b *Board) persist(keys ...string) {
	if b.store == nil {
		return
	}
	entries := make(map[string][]byte, len(keys)+1)
	for _, k := range keys {
		var data []byte
		var err error
		switch k {
		case keyItems:
			data, err = EncodeItems(b.items)
		case keyCollections:
			data, err = EncodeCollections(b.collections)
		}
		if err != nil {
			applog.Error("board.encode", err, "key", k)
			return
		}
		entries[k] = data
	}
	next := b.version + 1
	entries[keyVersion] = []byte(strconv.FormatInt(next, 10))

	if err := b.store.SetMany(entries); err != nil {
		applog.Error("board.persist", err, "keys", strings.Join(keys, ","))
		return
	}
	b.version = next
}

// Save writes both lists unconditionally.
func (b *Board) Save() {
	b.persist(keyItems, keyCollections)
}

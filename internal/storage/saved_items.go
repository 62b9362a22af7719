package storage

import (
	"encoding/json"
	"fmt"

	"github.com/lotas/tabsammlung/internal/types"
)

// SavedItemsKey holds the quick-save list owned by the background process.
const SavedItemsKey = "items"

// SavedItems persists the flat SavedItem list as one JSON array.
type SavedItems struct {
	kv *KV
}

// NewSavedItems returns a repository backed by kv.
func NewSavedItems(kv *KV) *SavedItems {
	return &SavedItems{kv: kv}
}

// Load returns the stored list. A missing key yields an empty list.
func (r *SavedItems) Load() ([]types.SavedItem, error) {
	data, ok, err := r.kv.Get(SavedItemsKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []types.SavedItem{}, nil
	}
	var items []types.SavedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode saved items: %w", err)
	}
	if items == nil {
		items = []types.SavedItem{}
	}
	return items, nil
}

// Save replaces the stored list.
func (r *SavedItems) Save(items []types.SavedItem) error {
	if items == nil {
		items = []types.SavedItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode saved items: %w", err)
	}
	return r.kv.Set(SavedItemsKey, data)
}

// Package export writes and reads the quick-save list as a file and
// renders the board as markdown.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lotas/tabsammlung/internal/firefox"
	"github.com/lotas/tabsammlung/internal/types"
)

// DefaultFileName is used when no output path is given.
const DefaultFileName = "toby-export.json"

// SavedItemsJSON formats items as an indented JSON array.
func SavedItemsJSON(items []types.SavedItem) ([]byte, error) {
	if items == nil {
		items = []types.SavedItem{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Encode formats items as JSON, wrapped in mozlz4 when compress is set.
func Encode(items []types.SavedItem, compress bool) ([]byte, error) {
	data, err := SavedItemsJSON(items)
	if err != nil || !compress {
		return data, err
	}
	return firefox.CompressMozLz4(data)
}

// ParseSavedItems reads an export in either form. Any parse error is
// returned and nothing partial is produced.
func ParseSavedItems(data []byte) ([]types.SavedItem, error) {
	if firefox.IsMozLz4(data) {
		raw, err := firefox.DecompressMozLz4(data)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	data = bytes.TrimSpace(data)
	if !bytes.HasPrefix(data, []byte("[")) {
		return nil, fmt.Errorf("parse export: expected a JSON array")
	}
	var items []types.SavedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	if items == nil {
		items = []types.SavedItem{}
	}
	return items, nil
}

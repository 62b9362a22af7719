// Package channel is the request/response link between UI processes and
// the background process that owns the browser tab API and the
// quick-save list.
package channel

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/lotas/tabsammlung/internal/types"
)

// Type tags a message.
type Type string

const (
	SaveCurrentTab  Type = "SAVE_CURRENT_TAB"
	GetOpenTabs     Type = "GET_OPEN_TABS"
	ActivateTab     Type = "ACTIVATE_TAB"
	GetItems        Type = "GET_ITEMS"
	RemoveItem      Type = "REMOVE_ITEM"
	ClearItems      Type = "CLEAR_ITEMS"
	OpenTabsUpdated Type = "OPEN_TABS_UPDATED"
)

// Message is a request, or a notification when ReqID is empty.
// ID is a string for REMOVE_ITEM and a number for ACTIVATE_TAB.
type Message struct {
	ReqID string          `json:"reqId,omitempty"`
	Type  Type            `json:"type"`
	ID    json.RawMessage `json:"id,omitempty"`
}

// Response answers exactly one request, echoing its ReqID.
type Response struct {
	ReqID string            `json:"reqId,omitempty"`
	OK    bool              `json:"ok"`
	Item  *types.SavedItem  `json:"item,omitempty"`
	Tabs  []types.OpenTab   `json:"tabs,omitempty"`
	Items []types.SavedItem `json:"items,omitempty"`
	Error string            `json:"error,omitempty"`
}

// MarshalJSON sends Tabs and Items whenever they are non-nil, so an empty
// list goes out as [] rather than being left off.
func (r Response) MarshalJSON() ([]byte, error) {
	type wire struct {
		ReqID string             `json:"reqId,omitempty"`
		OK    bool               `json:"ok"`
		Item  *types.SavedItem   `json:"item,omitempty"`
		Tabs  *[]types.OpenTab   `json:"tabs,omitempty"`
		Items *[]types.SavedItem `json:"items,omitempty"`
		Error string             `json:"error,omitempty"`
	}
	w := wire{ReqID: r.ReqID, OK: r.OK, Item: r.Item, Error: r.Error}
	if r.Tabs != nil {
		w.Tabs = &r.Tabs
	}
	if r.Items != nil {
		w.Items = &r.Items
	}
	return json.Marshal(w)
}

// Request builds a message without an id.
func Request(t Type) Message {
	return Message{Type: t}
}

// RemoveItemRequest builds a REMOVE_ITEM message.
func RemoveItemRequest(id string) Message {
	raw, _ := json.Marshal(id)
	return Message{Type: RemoveItem, ID: raw}
}

// ActivateTabRequest builds an ACTIVATE_TAB message.
func ActivateTabRequest(tabID int) Message {
	return Message{Type: ActivateTab, ID: json.RawMessage(strconv.Itoa(tabID))}
}

// StringID returns ID as a string. Numbers are returned in their JSON form.
func (m Message) StringID() string {
	raw := strings.TrimSpace(string(m.ID))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.ID, &s); err == nil {
		return s
	}
	return raw
}

// IntID returns ID as an int. Numeric strings are accepted.
func (m Message) IntID() (int, bool) {
	s := m.StringID()
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func fail(msg string) Response {
	return Response{OK: false, Error: msg}
}

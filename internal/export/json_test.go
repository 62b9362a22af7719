package export

import (
	"strings"
	"testing"
	"time"

	"github.com/lotas/tabsammlung/internal/types"
)

func TestSavedItemsJSON(t *testing.T) {
	items := []types.SavedItem{
		{ID: "b", Title: "Newer", URL: "https://b", CreatedAt: time.UnixMilli(1700000002000)},
		{ID: "a", Title: "Older", URL: "https://a", CreatedAt: time.UnixMilli(1700000001000)},
	}
	data, err := SavedItemsJSON(items)
	if err != nil {
		t.Fatalf("SavedItemsJSON: %v", err)
	}
	s := string(data)
	if !strings.HasPrefix(s, "[\n  {") || !strings.HasSuffix(s, "]\n") {
		t.Errorf("not indented:\n%s", s)
	}
	if !strings.Contains(s, `"createdAt": 1700000002000`) {
		t.Errorf("createdAt not epoch ms:\n%s", s)
	}

	empty, _ := SavedItemsJSON(nil)
	if string(empty) != "[]\n" {
		t.Errorf("empty = %q", empty)
	}
}

func TestParseSavedItems_RoundTrip(t *testing.T) {
	items := []types.SavedItem{
		{ID: "a", Title: "A", URL: "https://a", CreatedAt: time.UnixMilli(1700000001000)},
	}
	for _, compress := range []bool{false, true} {
		data, err := Encode(items, compress)
		if err != nil {
			t.Fatalf("Encode(%v): %v", compress, err)
		}
		got, err := ParseSavedItems(data)
		if err != nil {
			t.Fatalf("ParseSavedItems(%v): %v", compress, err)
		}
		if len(got) != 1 || got[0].ID != "a" || !got[0].CreatedAt.Equal(items[0].CreatedAt) {
			t.Errorf("compress=%v: got %+v", compress, got)
		}
	}
}

func TestParseSavedItems_Rejects(t *testing.T) {
	for _, in := range []string{``, `{}`, `[{"id":`, `"items"`, "mozLz40\x00\x05"} {
		if _, err := ParseSavedItems([]byte(in)); err == nil {
			t.Errorf("ParseSavedItems(%q) accepted", in)
		}
	}
}

func TestParseSavedItems_EmptyArray(t *testing.T) {
	got, err := ParseSavedItems([]byte(" [] \n"))
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v", got)
	}
}

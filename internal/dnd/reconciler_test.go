package dnd

import (
	"fmt"
	"testing"

	"github.com/lotas/tabsammlung/internal/board"
	"github.com/lotas/tabsammlung/internal/types"
)

func newBoard(cols ...types.Collection) *board.Board {
	n := 0
	return board.New(nil, cols, nil, board.WithIDs(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))
}

func titles(items []types.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestDropOpenTab_ExpandsCollapsedCollection(t *testing.T) {
	b := newBoard(types.Collection{ID: "work", Name: "Work", Expanded: false, Order: 1})
	r := New(b)
	r.SetOpenTabs([]types.OpenTab{
		{ID: 10, URL: "https://a"},
		{ID: 11, URL: "https://b"},
		{ID: 12, Title: "X", URL: "https://x"},
	})

	if eff, ok := r.StartOpenTab(2); !ok || eff != EffectCopyMove {
		t.Fatalf("StartOpenTab = %v, %v", eff, ok)
	}
	if eff := r.Over("work"); eff != EffectCopy {
		t.Errorf("Over effect = %v, want copy", eff)
	}
	if !r.Drop("work") {
		t.Fatal("drop not applied")
	}

	c, _ := b.Collection("work")
	if !c.Expanded {
		t.Error("Work not expanded after drop")
	}
	got := b.RawCollectionTabs("work")
	if len(got) != 1 || got[0].Title != "X" || got[0].URL != "https://x" {
		t.Errorf("Work items = %+v", got)
	}
	if r.Dragging() || r.Hover() != "" {
		t.Errorf("drag state not reset: %v %q", r.Drag(), r.Hover())
	}
}

func TestDropOpenTab_ClearsHidingSearch(t *testing.T) {
	b := newBoard()
	b.SetSearch("golang")
	r := New(b)
	r.SetOpenTabs([]types.OpenTab{{Title: "Rust", URL: "https://rust-lang.org"}})
	r.StartOpenTab(0)
	r.Drop(types.DefaultCollectionID)
	if b.Search() != "" {
		t.Errorf("search = %q, want cleared", b.Search())
	}
}

func TestDropOpenTab_KeepsMatchingSearch(t *testing.T) {
	b := newBoard()
	b.SetSearch("go")
	r := New(b)
	r.SetOpenTabs([]types.OpenTab{{Title: "Go", URL: "https://go.dev"}})
	r.StartOpenTab(0)
	r.Drop(types.DefaultCollectionID)
	if b.Search() != "go" {
		t.Errorf("search = %q, want kept", b.Search())
	}
}

func TestDropOpenTab_TitleFallsBackToURL(t *testing.T) {
	b := newBoard()
	r := New(b)
	r.SetOpenTabs([]types.OpenTab{{URL: "https://bare"}})
	r.StartOpenTab(0)
	r.Drop(types.DefaultCollectionID)
	got := b.RawCollectionTabs(types.DefaultCollectionID)
	if len(got) != 1 || got[0].Title != "https://bare" {
		t.Errorf("got %+v", got)
	}
}

func TestDropOpenTab_OutOfRange(t *testing.T) {
	b := newBoard()
	r := New(b)
	r.SetOpenTabs([]types.OpenTab{{URL: "https://a"}})
	r.StartOpenTab(5)
	if r.Drop(types.DefaultCollectionID) {
		t.Error("out-of-range drop applied")
	}
	if len(b.Items()) != 0 {
		t.Errorf("got %d items", len(b.Items()))
	}
	if r.Dragging() {
		t.Error("drag not reset")
	}
}

func TestDropItem_ReorderInPlace(t *testing.T) {
	b := newBoard()
	for _, title := range []string{"a", "b", "c"} {
		b.AddTab(title, "https://"+title, "")
	}
	a := b.RawCollectionTabs(types.DefaultCollectionID)[0]
	r := New(b)
	if eff, ok := r.StartItem(a.ID); !ok || eff != EffectMove {
		t.Fatalf("StartItem = %v, %v", eff, ok)
	}
	r.DropAt(types.DefaultCollectionID, 2)

	got := titles(b.RawCollectionTabs(types.DefaultCollectionID))
	if fmt.Sprint(got) != "[b c a]" {
		t.Errorf("order = %v", got)
	}
}

func TestDropItem_OtherCollectionTakesSlotOrder(t *testing.T) {
	b := newBoard(types.Collection{ID: "work", Name: "Work", Expanded: true, Order: 1})
	b.AddTab("a", "https://a", "work")
	b.AddTab("b", "https://b", "work")
	x, _ := b.AddTab("x", "https://x", "")
	r := New(b)
	r.StartItem(x.ID)
	if !r.DropAt("work", 0) {
		t.Fatal("drop not applied")
	}

	got, _ := b.Item(x.ID)
	if got.CollectionID != "work" || got.Order != 0 {
		t.Errorf("x = collection %q order %d, want work/0", got.CollectionID, got.Order)
	}
	if len(b.RawCollectionTabs(types.DefaultCollectionID)) != 0 {
		t.Error("item still in source collection")
	}
}

func TestDropItem_OtherCollectionHeaderAppends(t *testing.T) {
	b := newBoard(types.Collection{ID: "work", Name: "Work", Expanded: true, Order: 1})
	b.AddTab("w", "https://w", "work")
	it, _ := b.AddTab("a", "https://a", "")
	r := New(b)
	r.StartItem(it.ID)
	r.Drop("work")

	got := b.RawCollectionTabs("work")
	if fmt.Sprint(titles(got)) != "[w a]" || got[1].Order != 1 {
		t.Errorf("work = %v", got)
	}
}

func TestDropItem_NoIndexMovesToEnd(t *testing.T) {
	b := newBoard()
	first, _ := b.AddTab("a", "https://a", "")
	b.AddTab("b", "https://b", "")
	r := New(b)
	r.StartItem(first.ID)
	r.Drop(types.DefaultCollectionID)
	got := titles(b.RawCollectionTabs(types.DefaultCollectionID))
	if fmt.Sprint(got) != "[b a]" {
		t.Errorf("order = %v", got)
	}
}

func TestDropCollection_Reorders(t *testing.T) {
	b := newBoard(
		types.Collection{ID: "work", Name: "Work", Order: 1},
		types.Collection{ID: "read", Name: "Read", Order: 2},
	)
	r := New(b)
	r.StartCollection("read")
	if !r.DropOnCollection(types.DefaultCollectionID) {
		t.Fatal("reorder not applied")
	}
	var names []string
	for _, c := range b.Collections() {
		names = append(names, c.Name)
	}
	if fmt.Sprint(names) != "[Read INBOX Work]" {
		t.Errorf("collections = %v", names)
	}
}

func TestDropOnCollection_IgnoresOtherDrags(t *testing.T) {
	b := newBoard()
	it, _ := b.AddTab("a", "https://a", "")
	r := New(b)
	r.StartItem(it.ID)
	if r.DropOnCollection(types.DefaultCollectionID) {
		t.Error("item drag applied as collection reorder")
	}
	if r.Dragging() {
		t.Error("drag not reset")
	}
}

func TestStart_MutuallyExclusive(t *testing.T) {
	b := newBoard()
	it, _ := b.AddTab("a", "https://a", "")
	r := New(b)
	r.StartOpenTab(0)
	if _, ok := r.StartItem(it.ID); ok {
		t.Error("second drag started while one is active")
	}
	if _, ok := r.StartCollection(types.DefaultCollectionID); ok {
		t.Error("collection drag started while one is active")
	}
	if _, ok := r.Drag().(DraggingOpenTab); !ok {
		t.Errorf("drag = %#v", r.Drag())
	}
}

func TestEnd_UnsticksAbandonedDrag(t *testing.T) {
	b := newBoard()
	it, _ := b.AddTab("a", "https://a", "")
	r := New(b)
	r.StartItem(it.ID)
	r.Over(types.DefaultCollectionID)
	r.End()
	if r.Dragging() || r.Hover() != "" {
		t.Fatal("state not reset")
	}
	if _, ok := r.StartItem(it.ID); !ok {
		t.Error("cannot start a new drag after End")
	}
}

func TestDrop_UnknownCollectionResets(t *testing.T) {
	b := newBoard()
	it, _ := b.AddTab("a", "https://a", "")
	r := New(b)
	r.StartItem(it.ID)
	r.Over("nope")
	if r.Drop("nope") {
		t.Error("drop on unknown collection applied")
	}
	if r.Dragging() || r.Hover() != "" {
		t.Error("state not reset")
	}
}

func TestOverAndLeave(t *testing.T) {
	b := newBoard()
	r := New(b)
	if eff := r.Over("inbox"); eff != EffectNone {
		t.Errorf("effect without drag = %v", eff)
	}
	bounds := Rect{X: 0, Y: 10, W: 40, H: 3}

	r.Leave(Point{X: 5, Y: 11}, bounds)
	if r.Hover() != "inbox" {
		t.Error("hover cleared while pointer still inside")
	}
	r.Leave(Point{X: 5, Y: 13}, bounds)
	if r.Hover() != "" {
		t.Error("hover kept after pointer left")
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 2, Y: 2, W: 3, H: 2}
	cases := []struct {
		p    Point
		want bool
	}{
		{Point{2, 2}, true},
		{Point{4, 3}, true},
		{Point{5, 3}, false},
		{Point{3, 4}, false},
		{Point{1, 2}, false},
	}
	for _, tc := range cases {
		if got := r.Contains(tc.p); got != tc.want {
			t.Errorf("Contains(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
}

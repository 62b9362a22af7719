// Package dnd turns pointer drag gestures into board operations.
//
// At most one drag is active at a time. The active drag is a Drag value;
// nil means nothing is being dragged. Hover is tracked separately and is
// presentational only.
package dnd

import (
	"github.com/lotas/tabsammlung/internal/applog"
	"github.com/lotas/tabsammlung/internal/board"
	"github.com/lotas/tabsammlung/internal/types"
)

// Drag is the active drag. Implemented by DraggingItem, DraggingOpenTab
// and DraggingCollection only.
type Drag interface {
	isDrag()
}

// DraggingItem drags a saved item.
type DraggingItem struct{ ID string }

// DraggingOpenTab drags a live browser tab by its index in the open-tab list.
type DraggingOpenTab struct{ Index int }

// DraggingCollection drags a collection header.
type DraggingCollection struct{ ID string }

func (DraggingItem) isDrag()       {}
func (DraggingOpenTab) isDrag()    {}
func (DraggingCollection) isDrag() {}

// Effect is the drag-effect hint shown by the pointer.
type Effect string

const (
	EffectNone     Effect = "none"
	EffectMove     Effect = "move"
	EffectCopy     Effect = "copy"
	EffectCopyMove Effect = "copyMove"
)

// Point is a pointer position.
type Point struct{ X, Y int }

// Rect is a target's bounding box.
type Rect struct{ X, Y, W, H int }

// Contains reports whether p lies inside r. The right and bottom edges
// are exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Reconciler applies drops to a board.
type Reconciler struct {
	board    *board.Board
	openTabs []types.OpenTab
	drag     Drag
	hover    string
}

// New returns a reconciler over b with no active drag.
func New(b *board.Board) *Reconciler {
	return &Reconciler{board: b}
}

// SetOpenTabs replaces the open-tab snapshot that DraggingOpenTab indexes into.
func (r *Reconciler) SetOpenTabs(tabs []types.OpenTab) {
	r.openTabs = append([]types.OpenTab(nil), tabs...)
}

// OpenTabs returns the current open-tab snapshot.
func (r *Reconciler) OpenTabs() []types.OpenTab {
	return append([]types.OpenTab(nil), r.openTabs...)
}

// Drag returns the active drag, or nil.
func (r *Reconciler) Drag() Drag { return r.drag }

// Dragging reports whether a drag is active.
func (r *Reconciler) Dragging() bool { return r.drag != nil }

// Hover returns the highlighted collection id, or "".
func (r *Reconciler) Hover() string { return r.hover }

// StartItem begins dragging a saved item.
func (r *Reconciler) StartItem(id string) (Effect, bool) {
	if r.drag != nil {
		return EffectNone, false
	}
	if _, ok := r.board.Item(id); !ok {
		return EffectNone, false
	}
	r.drag = DraggingItem{ID: id}
	return EffectMove, true
}

// StartOpenTab begins dragging the open tab at index.
func (r *Reconciler) StartOpenTab(index int) (Effect, bool) {
	if r.drag != nil {
		return EffectNone, false
	}
	r.drag = DraggingOpenTab{Index: index}
	return EffectCopyMove, true
}

// StartCollection begins dragging a collection header.
func (r *Reconciler) StartCollection(id string) (Effect, bool) {
	if r.drag != nil {
		return EffectNone, false
	}
	if _, ok := r.board.Collection(id); !ok {
		return EffectNone, false
	}
	r.drag = DraggingCollection{ID: id}
	return EffectMove, true
}

// Over reports the drop effect for the active drag and highlights
// collectionID when it is non-empty.
func (r *Reconciler) Over(collectionID string) Effect {
	if collectionID != "" {
		r.hover = collectionID
	}
	switch r.drag.(type) {
	case nil:
		return EffectNone
	case DraggingOpenTab:
		return EffectCopy
	default:
		return EffectMove
	}
}

// Leave clears the hover highlight once the pointer is outside bounds.
func (r *Reconciler) Leave(pointer Point, bounds Rect) {
	if !bounds.Contains(pointer) {
		r.hover = ""
	}
}

// Drop drops onto a collection without a slot index.
func (r *Reconciler) Drop(collectionID string) bool {
	return r.drop(collectionID, -1)
}

// DropAt drops onto slot index of a collection. index is a position in
// the collection's unfiltered, order-sorted item list.
func (r *Reconciler) DropAt(collectionID string, index int) bool {
	if index < 0 {
		index = 0
	}
	return r.drop(collectionID, index)
}

// DropOnCollection drops a dragged collection header onto another header.
func (r *Reconciler) DropOnCollection(targetID string) bool {
	defer r.End()
	d, ok := r.drag.(DraggingCollection)
	if !ok {
		return false
	}
	return r.reorderCollections(d.ID, targetID)
}

// End resets the drag and hover state. Safe to call when no drop fired.
func (r *Reconciler) End() {
	r.drag = nil
	r.hover = ""
}

func (r *Reconciler) drop(collectionID string, index int) bool {
	defer r.End()
	if _, ok := r.board.Collection(collectionID); !ok {
		return false
	}

	switch d := r.drag.(type) {
	case DraggingItem:
		return r.dropItem(d.ID, collectionID, index)
	case DraggingOpenTab:
		return r.dropOpenTab(d.Index, collectionID)
	case DraggingCollection:
		return r.reorderCollections(d.ID, collectionID)
	}
	return false
}

func (r *Reconciler) dropItem(id, collectionID string, index int) bool {
	item, ok := r.board.Item(id)
	if !ok {
		return false
	}
	if index < 0 {
		r.board.MoveTab(id, collectionID)
		applog.Info("dnd.move", "item", id, "collection", collectionID)
		return true
	}
	if item.CollectionID != collectionID {
		r.board.MoveTabTo(id, collectionID, index)
		applog.Info("dnd.move", "item", id, "collection", collectionID, "order", index)
		return true
	}
	src := -1
	for i, it := range r.board.RawCollectionTabs(collectionID) {
		if it.ID == id {
			src = i
			break
		}
	}
	r.board.ReorderTabs(collectionID, src, index)
	applog.Info("dnd.reorder", "item", id, "from", src, "to", index)
	return true
}

func (r *Reconciler) dropOpenTab(index int, collectionID string) bool {
	if index < 0 || index >= len(r.openTabs) {
		return false
	}
	tab := r.openTabs[index]
	title := tab.Title
	if title == "" {
		title = tab.URL
	}
	if _, ok := r.board.AddTab(title, tab.URL, collectionID); !ok {
		return false
	}
	r.board.SetExpanded(collectionID, true)
	if !r.board.Matches(title, tab.URL) {
		r.board.SetSearch("")
	}
	applog.Info("dnd.copy", "tab", tab.ID, "collection", collectionID)
	return true
}

func (r *Reconciler) reorderCollections(srcID, dstID string) bool {
	src, dst := -1, -1
	for i, c := range r.board.Collections() {
		switch c.ID {
		case srcID:
			src = i
		case dstID:
			dst = i
		}
	}
	if srcID == dstID {
		dst = src
	}
	if src < 0 || dst < 0 {
		return false
	}
	r.board.ReorderCollections(src, dst)
	return true
}

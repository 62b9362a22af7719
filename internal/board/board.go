// Package board holds the dashboard's in-memory model of collections and
// their saved items. Every mutation is applied synchronously and then
// written through the Store. Operations on unknown ids are no-ops.
//
// A Board is not safe for concurrent use.
package board

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lotas/tabsammlung/internal/types"
)

// Board is the collection/item state owned by one UI process.
type Board struct {
	items       []types.Item
	collections []types.Collection
	selected    []string
	search      string
	version     int64

	store Store
	now   func() time.Time
	newID func() string
}

// Option configures a Board.
type Option func(*Board)

// WithClock overrides time.Now for created timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// WithIDs overrides the id generator.
func WithIDs(newID func() string) Option {
	return func(b *Board) { b.newID = newID }
}

// New builds a board from existing state. store may be nil, in which case
// nothing is persisted. The default collection is created if missing.
func New(items []types.Item, collections []types.Collection, store Store, opts ...Option) *Board {
	b := &Board{
		items:       append([]types.Item(nil), items...),
		collections: append([]types.Collection(nil), collections...),
		store:       store,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, o := range opts {
		o(b)
	}
	b.ensureDefault()
	return b
}

func (b *Board) ensureDefault() {
	if b.collectionIndex(types.DefaultCollectionID) >= 0 {
		return
	}
	// The default collection sorts first.
	order := 0
	for i, c := range b.collections {
		if i == 0 || c.Order <= order {
			order = c.Order - 1
		}
	}
	b.collections = append(b.collections, types.Collection{
		ID:       types.DefaultCollectionID,
		Name:     types.DefaultCollectionName,
		Expanded: true,
		Order:    order,
	})
}

// --- Items ---

// AddTab appends a new item to the end of the collection. An empty
// collectionID means the default collection.
func (b *Board) AddTab(title, url, collectionID string) (types.Item, bool) {
	if collectionID == "" {
		collectionID = types.DefaultCollectionID
	}
	if b.collectionIndex(collectionID) < 0 {
		return types.Item{}, false
	}
	item := types.Item{
		ID:           b.newID(),
		Title:        title,
		URL:          url,
		CollectionID: collectionID,
		Created:      b.now(),
		Order:        b.nextOrder(collectionID),
	}
	b.items = append(b.items, item)
	b.persist(keyItems)
	return item, true
}

// DeleteTab removes an item. Sibling orders are left as they are.
func (b *Board) DeleteTab(id string) {
	i := b.itemIndex(id)
	if i < 0 {
		return
	}
	b.items = append(b.items[:i], b.items[i+1:]...)
	b.dropSelected(id)
	b.persist(keyItems)
}

// EditTab updates title and url in place.
func (b *Board) EditTab(id, title, url string) {
	i := b.itemIndex(id)
	if i < 0 {
		return
	}
	b.items[i].Title = title
	b.items[i].URL = url
	b.persist(keyItems)
}

// DuplicateTab copies an item to the end of its collection with a
// "(Copy)" title suffix.
func (b *Board) DuplicateTab(id string) (types.Item, bool) {
	i := b.itemIndex(id)
	if i < 0 {
		return types.Item{}, false
	}
	dup := b.items[i]
	dup.ID = b.newID()
	dup.Title = dup.Title + " (Copy)"
	dup.Created = b.now()
	dup.Order = b.nextOrder(dup.CollectionID)
	b.items = append(b.items, dup)
	b.persist(keyItems)
	return dup, true
}

// MoveTab moves an item to the end of the target collection. The source
// collection is not renumbered.
func (b *Board) MoveTab(id, collectionID string) {
	i := b.itemIndex(id)
	if i < 0 || b.collectionIndex(collectionID) < 0 {
		return
	}
	order := b.nextOrder(collectionID)
	if b.items[i].CollectionID == collectionID && b.items[i].Order == order-1 {
		return
	}
	b.items[i].CollectionID = collectionID
	b.items[i].Order = order
	b.persist(keyItems)
}

// MoveTabTo moves an item into the target collection with an explicit order.
func (b *Board) MoveTabTo(id, collectionID string, order int) {
	i := b.itemIndex(id)
	if i < 0 || b.collectionIndex(collectionID) < 0 {
		return
	}
	b.items[i].CollectionID = collectionID
	b.items[i].Order = order
	b.persist(keyItems)
}

// ReorderTabs moves the item at src to dst within the collection's
// order-sorted view and renumbers the whole collection 0..n-1.
func (b *Board) ReorderTabs(collectionID string, src, dst int) {
	view := b.RawCollectionTabs(collectionID)
	if src == dst || src < 0 || src >= len(view) || dst < 0 {
		return
	}
	ranked := Reorder(view, src, dst)
	pos := make(map[string]int, len(ranked))
	for n, it := range ranked {
		pos[it.ID] = n
	}
	for i := range b.items {
		if n, ok := pos[b.items[i].ID]; ok {
			b.items[i].Order = n
		}
	}
	b.persist(keyItems)
}

// --- Selection and bulk edits ---

// Select adds id to the selection, keeping selection order.
func (b *Board) Select(id string) {
	if b.itemIndex(id) < 0 || b.IsSelected(id) {
		return
	}
	b.selected = append(b.selected, id)
}

// Deselect removes id from the selection.
func (b *Board) Deselect(id string) {
	b.dropSelected(id)
}

// ToggleSelected flips the selection state of id.
func (b *Board) ToggleSelected(id string) {
	if b.IsSelected(id) {
		b.dropSelected(id)
		return
	}
	b.Select(id)
}

// IsSelected reports whether id is selected.
func (b *Board) IsSelected(id string) bool {
	for _, s := range b.selected {
		if s == id {
			return true
		}
	}
	return false
}

// Selected returns the selected ids in selection order.
func (b *Board) Selected() []string {
	return append([]string(nil), b.selected...)
}

// ClearSelection empties the selection.
func (b *Board) ClearSelection() {
	b.selected = nil
}

func (b *Board) dropSelected(id string) {
	for i, s := range b.selected {
		if s == id {
			b.selected = append(b.selected[:i], b.selected[i+1:]...)
			return
		}
	}
}

// BulkMove moves every selected item to the end of the collection,
// preserving selection order, then clears the selection.
func (b *Board) BulkMove(collectionID string) {
	if b.collectionIndex(collectionID) < 0 {
		return
	}
	base := b.nextOrder(collectionID)
	rank := make(map[string]int, len(b.selected))
	for n, id := range b.selected {
		rank[id] = n
	}
	changed := false
	for i := range b.items {
		if n, ok := rank[b.items[i].ID]; ok {
			b.items[i].CollectionID = collectionID
			b.items[i].Order = base + n
			changed = true
		}
	}
	b.selected = nil
	if changed {
		b.persist(keyItems)
	}
}

// BulkDelete removes every selected item and clears the selection.
func (b *Board) BulkDelete() {
	if len(b.selected) == 0 {
		return
	}
	drop := make(map[string]bool, len(b.selected))
	for _, id := range b.selected {
		drop[id] = true
	}
	kept := b.items[:0]
	for _, it := range b.items {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	b.items = kept
	b.selected = nil
	b.persist(keyItems)
}

// --- Collections ---

// AddCollection appends a new expanded, unstarred collection.
func (b *Board) AddCollection(name string) (types.Collection, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Collection{}, false
	}
	order := -1
	for _, c := range b.collections {
		if c.Order > order {
			order = c.Order
		}
	}
	c := types.Collection{
		ID:       b.newID(),
		Name:     name,
		Expanded: true,
		Order:    order + 1,
	}
	b.collections = append(b.collections, c)
	b.persist(keyCollections)
	return c, true
}

// DeleteCollection reassigns the collection's items to the default
// collection and removes it. The default collection cannot be deleted.
func (b *Board) DeleteCollection(id string) {
	ci := b.collectionIndex(id)
	if ci < 0 || id == types.DefaultCollectionID {
		return
	}
	moved := false
	for i := range b.items {
		if b.items[i].CollectionID == id {
			b.items[i].CollectionID = types.DefaultCollectionID
			moved = true
		}
	}
	b.collections = append(b.collections[:ci], b.collections[ci+1:]...)
	if moved {
		b.persist(keyItems, keyCollections)
		return
	}
	b.persist(keyCollections)
}

// RenameCollection changes the display name. Items reference the
// collection by id and are untouched.
func (b *Board) RenameCollection(id, name string) {
	name = strings.TrimSpace(name)
	ci := b.collectionIndex(id)
	if ci < 0 || name == "" || b.collections[ci].Name == name {
		return
	}
	b.collections[ci].Name = name
	b.persist(keyCollections)
}

// ToggleStarred flips the starred flag.
func (b *Board) ToggleStarred(id string) {
	ci := b.collectionIndex(id)
	if ci < 0 {
		return
	}
	b.collections[ci].Starred = !b.collections[ci].Starred
	b.persist(keyCollections)
}

// ToggleExpanded flips the expanded flag.
func (b *Board) ToggleExpanded(id string) {
	ci := b.collectionIndex(id)
	if ci < 0 {
		return
	}
	b.collections[ci].Expanded = !b.collections[ci].Expanded
	b.persist(keyCollections)
}

// SetExpanded sets the expanded flag.
func (b *Board) SetExpanded(id string, expanded bool) {
	ci := b.collectionIndex(id)
	if ci < 0 || b.collections[ci].Expanded == expanded {
		return
	}
	b.collections[ci].Expanded = expanded
	b.persist(keyCollections)
}

// ReorderCollections moves the collection at src to dst in the
// order-sorted list and renumbers every collection 0..n-1.
func (b *Board) ReorderCollections(src, dst int) {
	sorted := b.Collections()
	if src == dst || src < 0 || src >= len(sorted) {
		return
	}
	b.collections = Reorder(sorted, src, dst)
	for i := range b.collections {
		b.collections[i].Order = i
	}
	b.persist(keyCollections)
}

// --- Read views ---

// Items returns a copy of all items in storage order.
func (b *Board) Items() []types.Item {
	return append([]types.Item(nil), b.items...)
}

// Item looks up an item by id.
func (b *Board) Item(id string) (types.Item, bool) {
	i := b.itemIndex(id)
	if i < 0 {
		return types.Item{}, false
	}
	return b.items[i], true
}

// Collections returns the collections sorted by order.
func (b *Board) Collections() []types.Collection {
	out := append([]types.Collection(nil), b.collections...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Collection looks up a collection by id.
func (b *Board) Collection(id string) (types.Collection, bool) {
	ci := b.collectionIndex(id)
	if ci < 0 {
		return types.Collection{}, false
	}
	return b.collections[ci], true
}

// CollectionByName returns the first collection, in order, with the given name.
func (b *Board) CollectionByName(name string) (types.Collection, bool) {
	for _, c := range b.Collections() {
		if c.Name == name {
			return c, true
		}
	}
	return types.Collection{}, false
}

// RawCollectionTabs returns the collection's items sorted by order,
// ignoring the active search.
func (b *Board) RawCollectionTabs(collectionID string) []types.Item {
	var out []types.Item
	for _, it := range b.items {
		if it.CollectionID == collectionID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// CollectionTabs returns the collection's items sorted by order and
// filtered by the active search.
func (b *Board) CollectionTabs(collectionID string) []types.Item {
	raw := b.RawCollectionTabs(collectionID)
	if strings.TrimSpace(b.search) == "" {
		return raw
	}
	var out []types.Item
	for _, it := range raw {
		if b.Matches(it.Title, it.URL) {
			out = append(out, it)
		}
	}
	return out
}

// OpenAll returns the collection's URLs in order.
func (b *Board) OpenAll(collectionID string) []string {
	var urls []string
	for _, it := range b.RawCollectionTabs(collectionID) {
		urls = append(urls, it.URL)
	}
	return urls
}

// --- Search ---

// SetSearch sets the active search query.
func (b *Board) SetSearch(q string) {
	b.search = q
}

// Search returns the active search query.
func (b *Board) Search() string {
	return b.search
}

// Matches reports whether title/url pass the active search. An empty or
// whitespace-only query matches everything.
func (b *Board) Matches(title, url string) bool {
	return MatchQuery(b.search, title, url)
}

// MatchQuery is a case-insensitive substring match of q against title and url.
func MatchQuery(q, title, url string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title+" "+url), q)
}

// --- helpers ---

func (b *Board) itemIndex(id string) int {
	for i := range b.items {
		if b.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) collectionIndex(id string) int {
	for i := range b.collections {
		if b.collections[i].ID == id {
			return i
		}
	}
	return -1
}

// nextOrder is one past the highest order in the collection, or 0.
func (b *Board) nextOrder(collectionID string) int {
	highest := -1
	for _, it := range b.items {
		if it.CollectionID == collectionID && it.Order > highest {
			highest = it.Order
		}
	}
	return highest + 1
}

package refresh

import (
	"sync"

	"OrderFlowDash/internal/model"
)

// Entry is the cached series of one board.
type Entry struct {
	Code     string
	Name     string
	Points   []model.Point
	Rendered bool
	Visible  bool
	// Stale marks points seeded from an earlier recording. They are drawn
	// but still count as missing until a fetch replaces them.
	Stale bool
}

// HasData reports whether the entry holds enough points to draw a line.
func (e Entry) HasData() bool {
	return len(e.Points) >= 2
}

// Last returns the most recent point, if any.
func (e Entry) Last() (model.Point, bool) {
	if len(e.Points) == 0 {
		return model.Point{}, false
	}
	return e.Points[len(e.Points)-1], true
}

// Cache holds the entries of one grid keyed by board code. Entries exist only
// for boards placed on the grid; writes for unknown codes are dropped.
type Cache struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*Entry
}

// NewCache creates a cache with one empty entry per board, in board order.
func NewCache(boards []model.Board, visible bool) *Cache {
	c := &Cache{entries: make(map[string]*Entry, len(boards))}
	for _, b := range boards {
		if b.Code == "" {
			continue
		}
		if _, dup := c.entries[b.Code]; dup {
			continue
		}
		c.order = append(c.order, b.Code)
		c.entries[b.Code] = &Entry{Code: b.Code, Name: b.Name, Visible: visible}
	}
	return c
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Codes returns the board codes in grid order.
func (c *Cache) Codes() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Get returns a copy of the entry for code.
func (c *Cache) Get(code string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[code]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns copies of all entries in grid order.
func (c *Cache) Entries() []Entry {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, *c.entries[code])
	}
	return out
}

// Missing filters codes down to those whose entry lacks at least two fresh
// points. On a nil cache every code is missing.
func (c *Cache) Missing(codes []string) []string {
	if c == nil {
		return append([]string(nil), codes...)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if e, ok := c.entries[code]; ok && len(e.Points) >= 2 && !e.Stale {
			continue
		}
		out = append(out, code)
	}
	return out
}

// Store overwrites the points of code and marks the entry not yet rendered.
// It reports whether the entry exists and is currently visible.
func (c *Cache) Store(code string, points []model.Point) (exists, visible bool) {
	return c.put(code, points, false)
}

// Seed is Store for points that may be outdated: the entry shows them but
// stays missing for only-missing refreshes.
func (c *Cache) Seed(code string, points []model.Point) (exists, visible bool) {
	return c.put(code, points, true)
}

func (c *Cache) put(code string, points []model.Point, stale bool) (exists, visible bool) {
	if c == nil {
		return false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	if !ok {
		return false, false
	}
	e.Points = points
	e.Rendered = false
	e.Stale = stale
	return true, e.Visible
}

// MarkRendered flags the entry as drawn.
func (c *Cache) MarkRendered(code string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[code]; ok {
		e.Rendered = true
	}
}

// SetVisible updates the visibility of code and reports whether the entry now
// needs a deferred render (visible, has data, not rendered).
func (c *Cache) SetVisible(code string, visible bool) (needsRender bool) {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	if !ok {
		return false
	}
	e.Visible = visible
	return visible && len(e.Points) >= 2 && !e.Rendered
}

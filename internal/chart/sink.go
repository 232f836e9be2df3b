package chart

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Image is one rendered chart.
type Image struct {
	Name      string    `json:"name"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	UpdatedAt time.Time `json:"updated_at"`
	PNG       []byte    `json:"-"`
}

// Sink keeps the latest PNG per chart name and optionally mirrors it to a
// directory.
type Sink struct {
	mu     sync.RWMutex
	dir    string
	images map[string]Image
}

// NewSink creates a sink. An empty dir keeps images in memory only.
func NewSink(dir string) *Sink {
	return &Sink{dir: dir, images: make(map[string]Image)}
}

// Put stores png under name, replacing any previous image.
func (s *Sink) Put(name string, png []byte, w, h int) error {
	img := Image{Name: name, Width: w, Height: h, UpdatedAt: time.Now(), PNG: png}
	s.mu.Lock()
	s.images[name] = img
	s.mu.Unlock()

	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	path := filepath.Join(s.dir, fileName(name))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write chart %s: %w", name, err)
	}
	return nil
}

// Get returns the image stored under name.
func (s *Sink) Get(name string) (Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[name]
	return img, ok
}

// Names lists stored chart names in sorted order.
func (s *Sink) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.images))
	for name := range s.images {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of stored charts.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// Clear drops every in-memory image.
func (s *Sink) Clear() {
	s.mu.Lock()
	s.images = make(map[string]Image)
	s.mu.Unlock()
}

func fileName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
	return clean + ".png"
}

// Painter renders named series with one surface and theme into a sink.
type Painter struct {
	mu      sync.RWMutex
	surface Surface
	theme   Theme
	sink    *Sink
}

// NewPainter creates a painter writing to sink.
func NewPainter(sink *Sink, surface Surface, theme Theme) *Painter {
	return &Painter{sink: sink, surface: surface, theme: theme}
}

// Surface returns the current surface size.
func (p *Painter) Surface() Surface {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.surface
}

// Resize changes the surface used by later Paint calls.
func (p *Painter) Resize(surface Surface) {
	p.mu.Lock()
	p.surface = surface
	p.mu.Unlock()
}

// SetTheme switches the palette used by later Paint calls.
func (p *Painter) SetTheme(th Theme) {
	p.mu.Lock()
	p.theme = th
	p.mu.Unlock()
}

// Sink returns the sink charts are written to.
func (p *Painter) Sink() *Sink { return p.sink }

// Paint renders s and stores it under name. Errors are logged and returned.
func (p *Painter) Paint(name string, s Series) error {
	p.mu.RLock()
	surface, theme := p.surface, p.theme
	p.mu.RUnlock()

	png, err := RenderPNG(surface, s, theme)
	if err != nil {
		log.Printf("[ERROR] render chart %s: %v", name, err)
		return err
	}
	w, h := surface.Pixels()
	if err := p.sink.Put(name, png, w, h); err != nil {
		log.Printf("[WARN] store chart %s: %v", name, err)
		return err
	}
	return nil
}

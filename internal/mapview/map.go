// Package mapview is the map host: one viewport per mount cycle, shared by
// the presenters that draw on it.
package mapview

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-river/internal/catalog"
	"github.com/joeblew999/plat-river/internal/geo"
)

// MaxZoom bounds fitted zoom levels.
const MaxZoom = 20

// Resolution returns web mercator metres per pixel at zoom.
func Resolution(zoom float64) float64 {
	return 156543.03392804097 / math.Pow(2, zoom)
}

// Padding is in pixels: top, right, bottom, left.
type Padding [4]float64

// Layer is a styled vector layer drawing one Source.
type Layer struct {
	ID     string
	Name   string
	Source *Source
	Style  catalog.Style
	ZIndex int

	seq int
}

// TileLayer is the raster base layer.
type TileLayer struct {
	URL string
}

// Overlay is a positioned UI element, such as the selection popup. A nil
// Position hides it.
type Overlay struct {
	ID          string
	Positioning string
	Position    *orb.Point
}

// SetPosition moves the overlay; nil hides it.
func (o *Overlay) SetPosition(p *orb.Point) { o.Position = p }

// ClickEvent is a pointer click in display projection.
type ClickEvent struct {
	Point orb.Point
	Zoom  float64
}

// Interaction reacts to clicks on the map.
type Interaction interface {
	HandleClick(ev ClickEvent)
}

// View is the visible area.
type View struct {
	Center  orb.Point // display projection
	Zoom    float64
	Extent  orb.Bound // last fitted extent, display projection
	Fitted  bool
	Padding Padding
}

// Viewport is what presenters may do to the shared map.
type Viewport interface {
	AddLayer(l *Layer)
	RemoveLayer(l *Layer)
	AddInteraction(i Interaction)
	RemoveInteraction(i Interaction)
	AddOverlay(o *Overlay)
	RemoveOverlay(o *Overlay)
	FitExtent(b orb.Bound, pad Padding)
	View() View
}

// Config describes a new map.
type Config struct {
	Target  string
	TileURL string
	Center  orb.Point // lon/lat
	Zoom    float64
	Width   float64 // viewport size in pixels, used when fitting
	Height  float64
}

// Map is the concrete viewport. It has one base tile layer and no
// built-in controls.
type Map struct {
	target       string
	base         TileLayer
	layers       []*Layer
	interactions []Interaction
	overlays     []*Overlay
	view         View
	width        float64
	height       float64
	seq          int
	generation   int
}

// New constructs a map.
func New(cfg Config, generation int) *Map {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 800
	}
	return &Map{
		target: cfg.Target,
		base:   TileLayer{URL: cfg.TileURL},
		view: View{
			Center: geo.PointFromLonLat(cfg.Center),
			Zoom:   cfg.Zoom,
		},
		width:      cfg.Width,
		height:     cfg.Height,
		generation: generation,
	}
}

// AddLayer adds l; adding a layer twice is a no-op.
func (m *Map) AddLayer(l *Layer) {
	for _, existing := range m.layers {
		if existing == l {
			return
		}
	}
	m.seq++
	l.seq = m.seq
	m.layers = append(m.layers, l)
	sort.SliceStable(m.layers, func(i, j int) bool {
		if m.layers[i].ZIndex != m.layers[j].ZIndex {
			return m.layers[i].ZIndex < m.layers[j].ZIndex
		}
		return m.layers[i].seq < m.layers[j].seq
	})
}

// RemoveLayer removes l if present.
func (m *Map) RemoveLayer(l *Layer) {
	for i, existing := range m.layers {
		if existing == l {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			return
		}
	}
}

// Layers returns the vector layers bottom to top.
func (m *Map) Layers() []*Layer {
	out := make([]*Layer, len(m.layers))
	copy(out, m.layers)
	return out
}

// AddInteraction adds i.
func (m *Map) AddInteraction(i Interaction) {
	m.interactions = append(m.interactions, i)
}

// RemoveInteraction removes i if present.
func (m *Map) RemoveInteraction(i Interaction) {
	for idx, existing := range m.interactions {
		if existing == i {
			m.interactions = append(m.interactions[:idx], m.interactions[idx+1:]...)
			return
		}
	}
}

// Interactions returns the registered interactions.
func (m *Map) Interactions() []Interaction {
	out := make([]Interaction, len(m.interactions))
	copy(out, m.interactions)
	return out
}

// AddOverlay adds o; adding an overlay twice is a no-op.
func (m *Map) AddOverlay(o *Overlay) {
	for _, existing := range m.overlays {
		if existing == o {
			return
		}
	}
	m.overlays = append(m.overlays, o)
}

// RemoveOverlay removes o if present.
func (m *Map) RemoveOverlay(o *Overlay) {
	for i, existing := range m.overlays {
		if existing == o {
			m.overlays = append(m.overlays[:i], m.overlays[i+1:]...)
			return
		}
	}
}

// Overlays returns the overlays.
func (m *Map) Overlays() []*Overlay {
	out := make([]*Overlay, len(m.overlays))
	copy(out, m.overlays)
	return out
}

// FitExtent centres the view on b and picks the largest zoom that shows
// all of it inside the padded viewport.
func (m *Map) FitExtent(b orb.Bound, pad Padding) {
	w := m.width - pad[1] - pad[3]
	h := m.height - pad[0] - pad[2]
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	zoom := float64(MaxZoom)
	res := math.Max((b.Max[0]-b.Min[0])/w, (b.Max[1]-b.Min[1])/h)
	if res > 0 {
		zoom = math.Log2(Resolution(0) / res)
	}
	zoom = math.Max(0, math.Min(MaxZoom, zoom))

	m.view = View{
		Center:  b.Center(),
		Zoom:    zoom,
		Extent:  b,
		Fitted:  true,
		Padding: pad,
	}
}

// View returns the current view.
func (m *Map) View() View { return m.view }

// Click dispatches a click to every interaction.
func (m *Map) Click(ev ClickEvent) {
	for _, i := range m.Interactions() {
		i.HandleClick(ev)
	}
}

// Base is the raster base layer.
func (m *Map) Base() TileLayer { return m.base }

// Target is the render target; empty once detached.
func (m *Map) Target() string { return m.target }

// Detach clears the render target.
func (m *Map) Detach() { m.target = "" }

// Generation numbers the mount cycle that created this map.
func (m *Map) Generation() int { return m.generation }

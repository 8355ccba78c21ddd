// Package catalog describes which river datasets are drawn and how.
package catalog

// DefaultDrawOrder is used for layers that leave DrawOrder unset.
const DefaultDrawOrder = 2

// Point shapes understood by Style.Shape.
const (
	ShapeNone     = "none"
	ShapeCircle   = "circle"
	ShapeTriangle = "triangle"
)

// Style is the visual descriptor for a layer. Huma reads the tags for the
// OpenAPI schema; the browser reads the JSON as-is.
type Style struct {
	Fill        string  `json:"fill,omitempty" yaml:"fill,omitempty" doc:"Fill colour (CSS)" example:"rgba(42, 183, 255, 0.3)"`
	Stroke      string  `json:"stroke,omitempty" yaml:"stroke,omitempty" doc:"Stroke colour (CSS)" example:"rgb(42, 183, 255)"`
	StrokeWidth float64 `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty" minimum:"0" doc:"Stroke width in pixels" example:"2"`
	Shape       string  `json:"shape,omitempty" yaml:"shape,omitempty" enum:"none,circle,triangle" doc:"Marker shape for point features" example:"circle"`
	Radius      float64 `json:"radius,omitempty" yaml:"radius,omitempty" minimum:"0" doc:"Marker radius in pixels" example:"8"`
	Points      int     `json:"points,omitempty" yaml:"points,omitempty" minimum:"0" doc:"Vertex count for regular-shape markers" example:"3"`
	Angle       float64 `json:"angle,omitempty" yaml:"angle,omitempty" doc:"Marker rotation in radians"`
	Opacity     float64 `json:"opacity,omitempty" yaml:"opacity,omitempty" minimum:"0" maximum:"1" doc:"Layer opacity (0-1)" example:"1"`
}

// LayerSpec names one dataset and the way it is painted.
type LayerSpec struct {
	ID        string `json:"id" yaml:"id,omitempty" doc:"Unique layer identifier" example:"campsites"`
	Name      string `json:"name" yaml:"name" doc:"Display name" example:"Campsites"`
	File      string `json:"file" yaml:"file" doc:"Dataset path relative to the data directory, or an http(s) URL" example:"layers/Campsites.geojson"`
	Style     Style  `json:"style" yaml:"style" doc:"Visual style"`
	DrawOrder int    `json:"drawOrder,omitempty" yaml:"drawOrder,omitempty" doc:"Draw order; higher is on top (default 2)" example:"3"`
}

// Order returns the effective draw order.
func (s LayerSpec) Order() int {
	if s.DrawOrder == 0 {
		return DefaultDrawOrder
	}
	return s.DrawOrder
}

// SliderConfig bounds the water-level slider, in metres of water level.
type SliderConfig struct {
	Min     float64 `json:"min" yaml:"min" doc:"Lowest water level (m)" example:"-0.9"`
	Max     float64 `json:"max" yaml:"max" doc:"Highest water level (m)" example:"3.2"`
	Step    float64 `json:"step" yaml:"step" doc:"Slider increment (m)" example:"0.1"`
	Initial float64 `json:"initial" yaml:"initial" doc:"Starting water level (m)" example:"-0.9"`
}

// ViewConfig is the initial map view before any data is fitted.
type ViewConfig struct {
	Center  [2]float64 `json:"center" yaml:"center" doc:"Initial centre, lon/lat"`
	Zoom    float64    `json:"zoom" yaml:"zoom" doc:"Initial zoom level" example:"2"`
	TileURL string     `json:"tileUrl" yaml:"tileUrl,omitempty" doc:"Base tile URL template" example:"https://tile.openstreetmap.org/{z}/{x}/{y}.png"`
}

// Catalog is the full, immutable map description.
type Catalog struct {
	Layers []LayerSpec  `json:"layers" yaml:"layers" doc:"Feature layers, in registration order"`
	River  LayerSpec    `json:"river" yaml:"river" doc:"River outline that follows the water level"`
	Slider SliderConfig `json:"slider" yaml:"slider" doc:"Water level slider bounds"`
	View   ViewConfig   `json:"view" yaml:"view" doc:"Initial view"`
}

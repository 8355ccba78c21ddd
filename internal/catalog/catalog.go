package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a layer ID is not in the catalog.
var ErrNotFound = errors.New("layer not found")

// DefaultTileURL is the OpenStreetMap raster tile template.
const DefaultTileURL = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

// Default returns the built-in Madawaska River catalog.
func Default() Catalog {
	c := Catalog{
		Layers: []LayerSpec{
			{
				Name: "Access Points",
				File: "layers/AccessPoints.geojson",
				Style: Style{
					Shape:       ShapeCircle,
					Radius:      8,
					Fill:        "rgba(207, 232, 17, 0.431)",
					Stroke:      "rgba(250, 249, 14, 0.988)",
					StrokeWidth: 1,
				},
				DrawOrder: 4,
			},
			{
				Name: "Campsites",
				File: "layers/Campsites.geojson",
				Style: Style{
					Shape:       ShapeTriangle,
					Points:      3,
					Radius:      10,
					Fill:        "rgba(0, 255, 119, 0.5)",
					Stroke:      "rgba(6, 140, 69, 0.922)",
					StrokeWidth: 1,
				},
				DrawOrder: 3,
			},
			{
				Name:  "Rapids",
				File:  "layers/MadRapids.geojson",
				Style: Style{Stroke: "rgb(255, 82, 84)", StrokeWidth: 2},
			},
			{
				Name: "Rapid Spots",
				File: "layers/MadRapidsSpot.geojson",
				Style: Style{
					Shape:       ShapeCircle,
					Radius:      10,
					Fill:        "rgba(199, 114, 74, 0.478)",
					Stroke:      "rgba(232, 74, 34, 0.839)",
					StrokeWidth: 2,
				},
			},
		},
		River: LayerSpec{
			Name: "Madawaska River",
			File: "layers/MadawaskaRiver.geojson",
			Style: Style{
				Fill:        "rgba(42, 183, 255, 0.3)",
				Stroke:      "rgb(42, 183, 255)",
				StrokeWidth: 2,
			},
			DrawOrder: 1,
		},
		Slider: SliderConfig{Min: -0.9, Max: 3.2, Step: 0.1, Initial: -0.9},
		View:   ViewConfig{Zoom: 2, TileURL: DefaultTileURL},
	}
	c.applyDefaults()
	return c
}

// Load reads a YAML catalog from path. Missing sections fall back to the
// built-in catalog's values.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and validates it.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parsing catalog: %w", err)
	}

	def := Default()
	if len(c.Layers) == 0 {
		c.Layers = def.Layers
	}
	if c.River.File == "" {
		c.River = def.River
	}
	if c.Slider == (SliderConfig{}) {
		c.Slider = def.Slider
	}
	if c.View.Zoom == 0 {
		c.View.Zoom = def.View.Zoom
	}
	if c.View.TileURL == "" {
		c.View.TileURL = def.View.TileURL
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Marshal encodes the catalog as YAML.
func (c Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks the catalog for missing files, duplicate IDs and a
// usable slider range.
func (c Catalog) Validate() error {
	seen := map[string]bool{}
	for _, l := range append(append([]LayerSpec{}, c.Layers...), c.River) {
		if l.File == "" {
			return fmt.Errorf("layer %q: file is required", l.Name)
		}
		if seen[l.ID] {
			return fmt.Errorf("duplicate layer id %q", l.ID)
		}
		seen[l.ID] = true
	}
	if c.Slider.Step <= 0 {
		return fmt.Errorf("slider step must be positive, got %v", c.Slider.Step)
	}
	if c.Slider.Min >= c.Slider.Max {
		return fmt.Errorf("slider min %v must be below max %v", c.Slider.Min, c.Slider.Max)
	}
	return nil
}

// Layer returns the layer (feature layer or river) with the given ID.
func (c Catalog) Layer(id string) (LayerSpec, error) {
	for _, l := range c.Layers {
		if l.ID == id {
			return l, nil
		}
	}
	if c.River.ID == id {
		return c.River, nil
	}
	return LayerSpec{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// applyDefaults fills IDs and names.
func (c *Catalog) applyDefaults() {
	for i := range c.Layers {
		fillIdentity(&c.Layers[i])
	}
	fillIdentity(&c.River)
	if c.Slider.Initial < c.Slider.Min || c.Slider.Initial > c.Slider.Max {
		c.Slider.Initial = c.Slider.Min
	}
}

func fillIdentity(l *LayerSpec) {
	if l.Name == "" {
		l.Name = baseName(l.File)
	}
	if l.ID == "" {
		l.ID = generateID(l.Name)
	}
	if l.Style.Opacity == 0 {
		l.Style.Opacity = 1
	}
}

func baseName(file string) string {
	name := file
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

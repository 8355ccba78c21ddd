// Package service contains the river map session and dataset listing.
package service

import (
	"github.com/joeblew999/plat-river/internal/catalog"
	"github.com/joeblew999/plat-river/internal/presenter"
)

// WaterLevel is the slider state. Huma reads the tags for OpenAPI; the
// humastar form renderer reads them for the Datastar slider.
type WaterLevel struct {
	Level    float64 `json:"level" doc:"Pending water level (m)" example:"-0.9" input:"range"`
	Distance float64 `json:"distance" doc:"Buffer distance the pending level produces (m)" example:"-5.29"`
	Min      float64 `json:"min" doc:"Lowest water level (m)" example:"-0.9"`
	Max      float64 `json:"max" doc:"Highest water level (m)" example:"3.2"`
	Step     float64 `json:"step" doc:"Slider increment (m)" example:"0.1"`
}

// LayerState is one drawn layer and its load progress.
type LayerState struct {
	ID        string        `json:"id" doc:"Layer identifier" example:"campsites" card:"id"`
	Name      string        `json:"name" doc:"Display name" example:"Campsites" card:"title"`
	File      string        `json:"file" doc:"Dataset reference" example:"layers/Campsites.geojson" card:"meta"`
	State     string        `json:"state" enum:"loading,ready,error" doc:"Load state" example:"ready" card:"badge"`
	Error     string        `json:"error,omitempty" doc:"Load error, when state is error"`
	Features  int           `json:"features" doc:"Loaded feature count" example:"3"`
	DrawOrder int           `json:"drawOrder" doc:"Effective draw order" example:"3"`
	Style     catalog.Style `json:"style" doc:"Visual style"`
}

// ViewState is the map view in geographic coordinates.
type ViewState struct {
	Center     [2]float64 `json:"center" doc:"View centre, lon/lat"`
	Zoom       float64    `json:"zoom" doc:"Zoom level" example:"14.2"`
	Extent     []float64  `json:"extent,omitempty" doc:"Last fitted extent as [minLon, minLat, maxLon, maxLat]"`
	Fitted     bool       `json:"fitted" doc:"Whether the view has been fitted to loaded data"`
	Generation int        `json:"generation" doc:"Map instance generation; increases on every remount" example:"1"`
	TileURL    string     `json:"tileUrl" doc:"Base tile URL template"`
}

// Snapshot is a consistent read of the whole session.
type Snapshot struct {
	Mounted    bool                   `json:"mounted" doc:"Whether a map is currently mounted"`
	View       ViewState              `json:"view" doc:"Current view"`
	Layers     []LayerState           `json:"layers" doc:"Feature layers in registration order"`
	River      LayerState             `json:"river" doc:"River outline layer"`
	Selection  *presenter.Selection   `json:"selection,omitempty" doc:"Selected feature, if any"`
	WaterLevel WaterLevel             `json:"waterLevel" doc:"Slider state"`
	Buffer     presenter.BufferResult `json:"buffer" doc:"Outcome of the last buffer recompute"`
}

// SourceFile represents a dataset file in the data directory.
type SourceFile struct {
	Name     string `json:"name" doc:"Path relative to the data directory" example:"layers/Campsites.geojson" card:"title"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 KB" card:"meta"`
	FileType string `json:"fileType" doc:"File type" example:"GeoJSON" card:"badge"`
	Layer    string `json:"layer,omitempty" doc:"Catalog layer drawing this file" example:"campsites"`
}

// WaterLevelInput is the slider form and the PUT body. The bounds in the
// tags are the built-in catalog's; the server rewrites them from the
// loaded catalog at startup.
type WaterLevelInput struct {
	Level float64 `json:"level" minimum:"-0.9" maximum:"3.2" default:"-0.9" step:"0.1" input:"range" doc:"Water level (m)" example:"1.2"`
}

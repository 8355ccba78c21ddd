package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-river/internal/service"
)

// InfoHandler describes the running service: which river it serves, the
// buffer engine and the water level range.
type InfoHandler struct {
	river   *service.RiverMap
	dataDir string
}

func NewInfoHandler(river *service.RiverMap, dataDir string) *InfoHandler {
	return &InfoHandler{river: river, dataDir: dataDir}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string     `json:"name" doc:"Service name"`
	Version  string     `json:"version" doc:"Service version"`
	River    string     `json:"river" doc:"Name of the river layer" example:"Madawaska River"`
	DataDir  string     `json:"data_dir" doc:"Directory layer files are read from"`
	Engine   string     `json:"engine" doc:"Buffer engine in use" example:"geos"`
	Layers   int        `json:"layers" doc:"Number of catalogued layers, river included"`
	Range    [2]float64 `json:"range" doc:"Water level slider bounds in metres"`
	Features []string   `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	cat := h.river.Catalog()
	features := []string{"geojson", "water-level", "selection", "datastar"}
	if h.river.Engine() == "duckdb" {
		features = append(features, "st_buffer")
	}
	out := &struct{ Body InfoBody }{}
	out.Body = InfoBody{
		Name:     "plat-river",
		Version:  Version,
		River:    cat.River.Name,
		DataDir:  h.dataDir,
		Engine:   h.river.Engine(),
		Layers:   len(cat.Layers) + 1,
		Range:    [2]float64{cat.Slider.Min, cat.Slider.Max},
		Features: features,
	}
	return out, nil
}

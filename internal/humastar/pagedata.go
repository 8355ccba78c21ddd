package humastar

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// PageData is what a page template reads from the OpenAPI description, so
// markup never hardcodes a URL or a signal name.
type PageData struct {
	// Signals is the data-signals JSON: schema defaults merged with UI state.
	Signals string
	Routes  SchemaRoutes
	// FormTmpl names the generated form template.
	FormTmpl string
}

// SchemaRoutes are the UI routes found under a DatastarSchemaConfig.BasePath.
type SchemaRoutes struct {
	List    string            // GET on the base path
	Update  string            // PUT on the base path
	Events  string            // GET on the sibling /events stream
	Actions map[string]string // POST sub-paths keyed by last segment, e.g. "apply"
}

// DataInit is the data-init expression that loads the page state and then
// opens the event stream.
func (pd PageData) DataInit() string {
	var calls []string
	for _, u := range []string{pd.Routes.List, pd.Routes.Events} {
		if u != "" {
			calls = append(calls, fmt.Sprintf("@get('%s')", u))
		}
	}
	return strings.Join(calls, "; ")
}

// BuildPageData reads the signal defaults of cfg.Type and the routes under
// cfg.BasePath from the OpenAPI description. Entries in ui override the
// schema defaults.
func BuildPageData(api huma.API, cfg DatastarSchemaConfig, ui map[string]any) PageData {
	signals := defaultSignals(api, cfg)
	for k, v := range ui {
		signals[k] = v
	}
	raw, _ := json.Marshal(signals)
	return PageData{
		Signals:  string(raw),
		Routes:   findRoutes(api.OpenAPI(), cfg.BasePath),
		FormTmpl: cfg.FormTmpl,
	}
}

// defaultSignals gives every scalar property of the schema its default,
// or the zero value of its JSON type.
func defaultSignals(api huma.API, cfg DatastarSchemaConfig) map[string]any {
	signals := map[string]any{}
	schema, ok := api.OpenAPI().Components.Schemas.Map()[cfg.Type.Name()]
	if !ok {
		return signals
	}
	for name, prop := range schema.Properties {
		if strings.HasPrefix(name, "$") || prop.Type == "array" || prop.Type == "object" {
			continue
		}
		v := prop.Default
		if v == nil {
			switch prop.Type {
			case "boolean":
				v = false
			case "number", "integer":
				v = 0
			default:
				v = ""
			}
		}
		signals[signalName(cfg.Prefix, name, prop)] = v
	}
	return signals
}

func findRoutes(oapi *huma.OpenAPI, base string) SchemaRoutes {
	routes := SchemaRoutes{Actions: map[string]string{}}
	if base == "" {
		return routes
	}
	events := path.Join(path.Dir(base), "events")

	for p, item := range oapi.Paths {
		switch {
		case p == events && item.Get != nil:
			routes.Events = p
		case p == base:
			if item.Get != nil {
				routes.List = p
			}
			if item.Put != nil {
				routes.Update = p
			}
		case path.Dir(p) == base && item.Post != nil:
			routes.Actions[path.Base(p)] = p
		}
	}
	return routes
}

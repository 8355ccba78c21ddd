package humastar

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// DatastarSchema is stored as the "x-datastar" extension of a schema.
type DatastarSchema struct {
	Prefix   string `json:"prefix"`
	FormTmpl string `json:"formTemplate"`
}

// DatastarSchemaConfig binds a Go body type to its signal prefix, form
// template name and the UI path its routes live under.
type DatastarSchemaConfig struct {
	Type     reflect.Type
	Prefix   string
	FormTmpl string
	BasePath string
}

// propertyTags maps struct tags to the property extensions they produce.
// Values are converted by the paired parser.
var propertyTags = map[string]func(string) (any, bool){
	"signal": func(s string) (any, bool) { return s, true },
	"input":  func(s string) (any, bool) { return s, true },
	"step": func(s string) (any, bool) {
		v, err := strconv.ParseFloat(s, 64)
		return v, err == nil
	},
}

// InjectExtensions stamps x-datastar on each configured schema and copies
// the signal, input and step struct tags onto its properties as x-signal,
// x-input and x-step.
func InjectExtensions(api huma.API, configs []DatastarSchemaConfig) {
	registry := api.OpenAPI().Components.Schemas.Map()
	for _, cfg := range configs {
		schema, ok := registry[cfg.Type.Name()]
		if !ok {
			continue
		}
		setExtension(&schema.Extensions, "x-datastar", DatastarSchema{Prefix: cfg.Prefix, FormTmpl: cfg.FormTmpl})

		for i := range cfg.Type.NumField() {
			sf := cfg.Type.Field(i)
			prop, ok := schema.Properties[jsonName(sf)]
			if !ok {
				continue
			}
			for tag, parse := range propertyTags {
				raw := sf.Tag.Get(tag)
				if raw == "" {
					continue
				}
				if v, ok := parse(raw); ok {
					setExtension(&prop.Extensions, "x-"+tag, v)
				}
			}
		}
	}
}

// SetRange replaces a numeric property's bounds, default and step once the
// schema is registered, for ranges read from configuration at startup.
// Validation messages are recomputed so requests are checked against the
// new bounds.
func SetRange(api huma.API, t reflect.Type, property string, min, max, step, def float64) bool {
	schema, ok := api.OpenAPI().Components.Schemas.Map()[t.Name()]
	if !ok {
		return false
	}
	prop, ok := schema.Properties[property]
	if !ok {
		return false
	}
	prop.Minimum, prop.Maximum, prop.Default = &min, &max, def
	setExtension(&prop.Extensions, "x-step", step)
	prop.PrecomputeMessages()
	return true
}

func setExtension(ext *map[string]any, key string, v any) {
	if *ext == nil {
		*ext = map[string]any{}
	}
	(*ext)[key] = v
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

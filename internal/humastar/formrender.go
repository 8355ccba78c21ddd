package humastar

import (
	"cmp"
	"fmt"
	"html/template"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// fieldKind selects the control rendered for a schema property.
type fieldKind int

const (
	textField fieldKind = iota
	numberField
	rangeField
	checkField
	choiceField
)

// formField is one Datastar-bound control derived from a schema property.
type formField struct {
	Kind     fieldKind
	Label    string
	Signal   string
	Required bool
	Prop     *huma.Schema
}

// RegisterFormTemplates defines a template for each schema carrying an
// x-datastar form name, e.g. "water-level-form", so pages include the
// form with {{template "water-level-form" .}} and controls follow the
// OpenAPI bounds in force at startup.
//
// Call after InjectExtensions and SetRange.
func RegisterFormTemplates(api huma.API, r *Renderer) {
	for _, schema := range api.OpenAPI().Components.Schemas.Map() {
		ds, ok := schema.Extensions["x-datastar"].(DatastarSchema)
		if !ok || ds.FormTmpl == "" {
			continue
		}
		var b strings.Builder
		for _, f := range formFields(schema, ds.Prefix) {
			f.write(&b)
		}
		r.mu.Lock()
		template.Must(r.templates.Parse(fmt.Sprintf(`{{define %q}}%s{{end}}`, ds.FormTmpl, b.String())))
		r.mu.Unlock()
	}
}

// formFields lists controls for the scalar properties of schema, required
// ones first and each group in name order.
func formFields(schema *huma.Schema, prefix string) []formField {
	names := make([]string, 0, len(schema.Properties))
	for name, prop := range schema.Properties {
		if !strings.HasPrefix(name, "$") && prop.Type != "array" && prop.Type != "object" {
			names = append(names, name)
		}
	}
	slices.SortFunc(names, func(a, b string) int {
		ra, rb := slices.Contains(schema.Required, a), slices.Contains(schema.Required, b)
		if ra != rb {
			if ra {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})

	fields := make([]formField, 0, len(names))
	for _, name := range names {
		prop := schema.Properties[name]
		f := formField{
			Label:    cmp.Or(prop.Description, name),
			Signal:   signalName(prefix, name, prop),
			Required: slices.Contains(schema.Required, name),
			Prop:     prop,
		}
		input, _ := prop.Extensions["x-input"].(string)
		switch {
		case prop.Type == "boolean":
			f.Kind = checkField
		case input == "range":
			f.Kind = rangeField
		case len(prop.Enum) > 0:
			f.Kind = choiceField
		case prop.Type == "number" || prop.Type == "integer":
			f.Kind = numberField
		}
		fields = append(fields, f)
	}
	return fields
}

func (f formField) write(b *strings.Builder) {
	p := f.Prop
	switch f.Kind {
	case checkField:
		fmt.Fprintf(b, "<div class=\"form-group\">\n    <label><input type=\"checkbox\" data-bind:%s> %s</label>\n</div>\n", f.Signal, f.Label)
		return
	case choiceField:
		fmt.Fprintf(b, "<div class=\"form-group\">\n    <label>%s</label>\n    <select data-bind:%s%s>\n", f.Label, f.Signal, f.required())
		for _, v := range p.Enum {
			fmt.Fprintf(b, "        <option value=\"%v\">%v</option>\n", v, v)
		}
		b.WriteString("    </select>\n</div>\n")
		return
	case rangeField:
		fmt.Fprintf(b, "<div class=\"form-group range-group\">\n    <label>%s <output data-text=\"$%s\"></output></label>\n", f.Label, f.Signal)
	default:
		fmt.Fprintf(b, "<div class=\"form-group\">\n    <label>%s</label>\n", f.Label)
	}

	attrs := []string{fmt.Sprintf("data-bind:%s", f.Signal)}
	if p.Minimum != nil {
		attrs = append(attrs, fmt.Sprintf(`min="%v"`, *p.Minimum))
	}
	if p.Maximum != nil {
		attrs = append(attrs, fmt.Sprintf(`max="%v"`, *p.Maximum))
	}
	typ := "text"
	switch f.Kind {
	case rangeField:
		typ = "range"
		step, ok := p.Extensions["x-step"]
		if !ok {
			step = "any"
		}
		attrs = append(attrs, fmt.Sprintf(`step="%v"`, step))
	case numberField:
		typ = "number"
		if p.Type == "number" {
			attrs = append(attrs, `step="0.1"`)
		}
	}
	if f.Kind != rangeField && p.Default != nil {
		attrs = append(attrs, fmt.Sprintf(`placeholder="%v"`, p.Default))
	}
	fmt.Fprintf(b, "    <input type=\"%s\" %s%s>\n</div>\n", typ, strings.Join(attrs, " "), f.required())
}

func (f formField) required() string {
	if f.Required && f.Kind != rangeField {
		return " required"
	}
	return ""
}

// signalName is prefix plus the x-signal override or the lowercased
// property name.
func signalName(prefix, property string, prop *huma.Schema) string {
	if sig, ok := prop.Extensions["x-signal"]; ok {
		return prefix + fmt.Sprint(sig)
	}
	return prefix + strings.ToLower(property)
}

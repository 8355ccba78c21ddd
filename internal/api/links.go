package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// links maps operation paths to domain RFC 8288 Link header values that
// the generated link map cannot infer from paths alone.
var links = map[string][]string{
	"/api/v1/layers": {
		`</api/v1/view>; rel="view"`,
		`</api/v1/water-level>; rel="water-level"`,
	},
	"/api/v1/view": {
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/selection>; rel="selection"`,
	},
	"/api/v1/selection": {
		`</api/v1/view>; rel="view"`,
	},
	"/api/v1/water-level": {
		`</api/v1/water-level/apply>; rel="apply"`,
		`</api/v1/buffer>; rel="buffer"`,
	},
	"/api/v1/water-level/apply": {
		`</api/v1/water-level>; rel="up"`,
	},
	"/api/v1/buffer": {
		`</api/v1/water-level>; rel="water-level"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects the domain links.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}
		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}
		return v, nil
	}
}

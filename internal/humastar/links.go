package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// entryPoint is the path every top-level resource links back to.
const entryPoint = "/health"

type link struct {
	Href string
	Rel  string
}

func (l link) String() string {
	return fmt.Sprintf(`<%s>; rel="%s"`, l.Href, l.Rel)
}

// linkGraph holds the generated links keyed by operation path.
type linkGraph map[string][]link

func (g linkGraph) add(from, href, rel string) {
	l := link{Href: href, Rel: rel}
	if !slices.Contains(g[from], l) {
		g[from] = append(g[from], l)
	}
}

func (g linkGraph) headers(p string) []string {
	out := make([]string, 0, len(g[p]))
	for _, l := range g[p] {
		out = append(out, l.String())
	}
	return out
}

var generated linkGraph

// AutoLinks derives hypermedia links from the registered paths and stores
// them for LinkTransformer. Datastar endpoints (tag "ui") are skipped.
// Call once every route is registered.
//
// The rules, by path shape:
//   - a path links "up" to its nearest registered ancestor, or to /health
//   - a templated path also links "collection" and its ancestor links "item"
//   - a POST sub-resource such as /water-level/apply is linked from its
//     ancestor with its last segment as rel
//   - a PUT or PATCH path links "edit" to itself
//   - GET paths link "describedby" to their response schema
func AutoLinks(api huma.API) {
	oapi := api.OpenAPI()
	g := linkGraph{}

	var paths []string
	for p, pi := range oapi.Paths {
		if !slices.Contains(tagsOf(pi), "ui") {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)

	for _, p := range paths {
		pi := oapi.Paths[p]
		templated := strings.Contains(p, "{")

		switch parent := ancestor(oapi, p); {
		case parent != "":
			g.add(p, parent, "up")
			if templated {
				g.add(p, parent, "collection")
				g.add(parent, p, "item")
			} else if pi.Post != nil && pi.Get == nil {
				g.add(parent, p, path.Base(p))
			}
		case p != entryPoint:
			g.add(p, entryPoint, "up")
			if !templated {
				g.add(entryPoint, p, path.Base(p))
			}
		}

		if pi.Put != nil || pi.Patch != nil {
			g.add(p, p, "edit")
		}
		if ref := schemaName(pi); ref != "" {
			g.add(p, "/openapi.json#/components/schemas/"+ref, "describedby")
		}
	}

	g.add(entryPoint, "/openapi.json", "service-desc")
	g.add(entryPoint, "/docs", "service-doc")
	g.add(entryPoint, "/metrics", "monitor")

	for p, pi := range oapi.Paths {
		for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
			if op != nil {
				documentLinks(op, g[p])
			}
		}
	}
	generated = g
}

// LinkTransformer returns a Huma Transformer that writes the generated links
// plus self, pagination and action links taken from the response.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}
		for _, h := range generated.headers(op.Path) {
			ctx.AppendHeader("Link", h)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", link{Href: ctx.URL().Path, Rel: "self"}.String())
		}
		if p, ok := v.(Pager); ok {
			for _, h := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", h)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

// RootLinks returns the entry point links for handlers outside Huma, such
// as the map page.
func RootLinks() []string {
	return generated.headers(entryPoint)
}

// ancestor returns the closest registered path above p.
func ancestor(oapi *huma.OpenAPI, p string) string {
	for dir := path.Dir(p); dir != "/" && dir != "."; dir = path.Dir(dir) {
		if _, ok := oapi.Paths[dir]; ok {
			return dir
		}
	}
	return ""
}

func tagsOf(pi *huma.PathItem) []string {
	for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

// schemaName is the component name of the GET success body, if any.
func schemaName(pi *huma.PathItem) string {
	if pi.Get == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				return path.Base(mt.Schema.Ref)
			}
		}
	}
	return ""
}

// documentLinks copies links into the OpenAPI Response.Links of the
// operation's success response.
func documentLinks(op *huma.Operation, links []link) {
	if len(links) == 0 {
		return
	}
	for code, resp := range op.Responses {
		if !strings.HasPrefix(code, "2") {
			continue
		}
		if resp.Links == nil {
			resp.Links = map[string]*huma.Link{}
		}
		for _, l := range links {
			resp.Links[l.Rel] = &huma.Link{OperationRef: l.Href, Description: "Related: " + l.Rel}
		}
		return
	}
}

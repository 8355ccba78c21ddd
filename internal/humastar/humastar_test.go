package humastar

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
)

func TestSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"waterlevel":"1.5","zoom":12,"on":true,"name":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Float("waterlevel"); got != 1.5 {
		t.Errorf("Float(string) = %v, want 1.5", got)
	}
	if got := s.Float("zoom"); got != 12 {
		t.Errorf("Float = %v, want 12", got)
	}
	if !s.Bool("on") || s.String("name") != "x" {
		t.Errorf("Bool/String mismatch: %v", s)
	}
	if s.Has("missing") || s.Float("missing") != 0 {
		t.Errorf("missing key reported present")
	}

	in := SignalsInput{RawBody: []byte("{")}
	if _, err := in.MustParse(); err == nil {
		t.Fatal("MustParse accepted invalid JSON")
	}
}

func TestPaginationLinks(t *testing.T) {
	tests := []struct {
		name   string
		page   PageBody[int]
		want   []string
		absent string
	}{
		{
			name:   "first page",
			page:   PageBody[int]{Total: 25, Offset: 0, Limit: 10},
			want:   []string{`offset=10&limit=10>; rel="next"`, `offset=20&limit=10>; rel="last"`},
			absent: `rel="prev"`,
		},
		{
			name:   "last page",
			page:   PageBody[int]{Total: 25, Offset: 20, Limit: 10},
			want:   []string{`offset=10&limit=10>; rel="prev"`},
			absent: `rel="next"`,
		},
		{
			name: "empty",
			page: PageBody[int]{Total: 0, Offset: 0, Limit: 10},
			want: []string{`offset=0&limit=10>; rel="last"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := strings.Join(tt.page.PaginationLinks("/items"), "\n")
			for _, w := range tt.want {
				if !strings.Contains(links, w) {
					t.Errorf("missing %q in\n%s", w, links)
				}
			}
			if tt.absent != "" && strings.Contains(links, tt.absent) {
				t.Errorf("unexpected %q in\n%s", tt.absent, links)
			}
		})
	}
}

func TestActionLinkHeader(t *testing.T) {
	actions := ActionsFor("campsites", []ActionDef{
		{Rel: "features", Pattern: "/api/v1/layers/%s/features", Method: "GET", Title: "Features"},
	})
	got := actions[0].LinkHeader()
	want := `</api/v1/layers/campsites/features>; rel="features"; method="GET"; title="Features"`
	if got != want {
		t.Fatalf("LinkHeader = %s, want %s", got, want)
	}
}

func TestRenderer(t *testing.T) {
	fsys := fstest.MapFS{
		"fragments/coord.html":       {Data: []byte(`{{define "coord"}}{{fixed 6 .}}{{end}}`)},
		"fragments/depth.html":       {Data: []byte(`{{define "depth"}}{{metres .}}{{end}}`)},
		"fragments/empty-state.html": {Data: []byte(`{{define "empty-state"}}<p>{{.Title}}</p>{{end}}`)},
		"fragments/item.html":        {Data: []byte(`{{define "item"}}<li>{{.}}</li>{{end}}`)},
	}
	r, err := NewRenderer(fsys, "fragments/*.html")
	if err != nil {
		t.Fatal(err)
	}

	if got := r.MustRender("coord", -77.52839999999999); got != "-77.528400" {
		t.Errorf("coord = %q", got)
	}
	if got := r.MustRender("depth", 18.8249); got != "18.82 m" {
		t.Errorf("depth = %q", got)
	}
	if got := RenderList(r, "item", []any{"a", "b"}, "none", ""); got != "<li>a</li><li>b</li>" {
		t.Errorf("list = %q", got)
	}
	if got := RenderList(r, "item", nil, "Nothing here", ""); got != "<p>Nothing here</p>" {
		t.Errorf("empty list = %q", got)
	}
	if _, err := r.Render("missing", nil); err == nil {
		t.Error("rendering an undefined template succeeded")
	}
}

type RangeInput struct {
	Level float64 `json:"level" minimum:"0" maximum:"1" default:"0" step:"0.5" input:"range" doc:"Level"`
}

func TestRangeFormFromSchema(t *testing.T) {
	_, api := humatest.New(t)
	huma.Put(api, "/level", func(ctx context.Context, in *struct{ Body RangeInput }) (*struct{}, error) {
		return nil, nil
	})

	typ := reflect.TypeOf(RangeInput{})
	InjectExtensions(api, []DatastarSchemaConfig{{Type: typ, Prefix: "w", FormTmpl: "level-form", BasePath: "/level"}})
	if !SetRange(api, typ, "level", -1, 2, 0.25, 1) {
		t.Fatal("SetRange did not find the property")
	}

	r, err := NewRenderer(fstest.MapFS{"page.html": {Data: []byte(`{{template "level-form" .}}`)}}, "*.html")
	if err != nil {
		t.Fatal(err)
	}
	RegisterFormTemplates(api, r)

	html := r.MustRender("page.html", nil)
	for _, want := range []string{`type="range"`, `data-bind:wlevel`, `min="-1"`, `max="2"`, `step="0.25"`, `data-text="$wlevel"`} {
		if !strings.Contains(html, want) {
			t.Errorf("form missing %q:\n%s", want, html)
		}
	}

	pd := BuildPageData(api, DatastarSchemaConfig{Type: typ, Prefix: "w", BasePath: "/level"}, map[string]any{"extra": true})
	if pd.Routes.Update != "/level" || pd.Routes.List != "" || pd.DataInit() != "" {
		t.Errorf("Update route = %q", pd.Routes.Update)
	}
	if !strings.Contains(pd.Signals, `"wlevel":1`) || !strings.Contains(pd.Signals, `"extra":true`) {
		t.Errorf("signals = %s", pd.Signals)
	}

	// bounds are enforced by validation after SetRange
	if resp := api.Put("/level", map[string]any{"level": 1.5}); resp.Code != 204 {
		t.Errorf("in-range PUT status=%d", resp.Code)
	}
	if resp := api.Put("/level", map[string]any{"level": 3}); resp.Code != 422 {
		t.Errorf("out-of-range PUT status=%d, want 422", resp.Code)
	}
}

func TestPage(t *testing.T) {
	items := []string{"a", "b", "c"}
	if p := Page(items, 1, 1); p.Total != 3 || len(p.Data) != 1 || p.Data[0] != "b" {
		t.Errorf("Page(1,1) = %+v", p)
	}
	if p := Page(items, 10, 5); p.Data == nil || len(p.Data) != 0 {
		t.Errorf("Page past end = %+v", p)
	}
	if p := Page(items, 0, 0); len(p.Data) != 3 || p.PaginationLinks("/x") != nil {
		t.Errorf("unlimited page = %+v", p)
	}
}

func TestAutoLinks(t *testing.T) {
	cfg := huma.DefaultConfig("links", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, LinkTransformer())
	_, api := humatest.New(t, cfg)

	type out struct {
		Body struct {
			OK bool `json:"ok"`
		}
	}
	get := func(ctx context.Context, _ *struct{}) (*out, error) { return &out{}, nil }
	huma.Get(api, "/health", get)
	huma.Get(api, "/api/v1/gauges", get)
	huma.Get(api, "/api/v1/gauges/{id}", func(ctx context.Context, _ *struct {
		ID string `path:"id"`
	}) (*out, error) {
		return &out{}, nil
	})
	huma.Post(api, "/api/v1/gauges/reset", get)
	huma.Put(api, "/api/v1/gauges", get)
	AutoLinks(api)

	root := strings.Join(RootLinks(), ",")
	for _, want := range []string{`</api/v1/gauges>; rel="gauges"`, `rel="monitor"`, `rel="service-desc"`} {
		if !strings.Contains(root, want) {
			t.Errorf("root links missing %s: %s", want, root)
		}
	}

	links := strings.Join(api.Get("/api/v1/gauges").Result().Header.Values("Link"), ",")
	for _, want := range []string{
		`</health>; rel="up"`,
		`</api/v1/gauges/{id}>; rel="item"`,
		`</api/v1/gauges/reset>; rel="reset"`,
		`</api/v1/gauges>; rel="edit"`,
	} {
		if !strings.Contains(links, want) {
			t.Errorf("collection links missing %s: %s", want, links)
		}
	}

	links = strings.Join(api.Get("/api/v1/gauges/g1").Result().Header.Values("Link"), ",")
	for _, want := range []string{`</api/v1/gauges>; rel="collection"`, `</api/v1/gauges/g1>; rel="self"`} {
		if !strings.Contains(links, want) {
			t.Errorf("item links missing %s: %s", want, links)
		}
	}
}

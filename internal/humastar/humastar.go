// Package humastar serves Datastar front-ends from Huma operations.
//
// Huma owns routing, validation and the OpenAPI description; Datastar owns
// the page. The package connects the two: UI operations return a
// [huma.StreamResponse] whose body writes Datastar SSE events through [SSE],
// request signals arrive through [SignalsInput], and fragments come from a
// [Renderer]. The OpenAPI description also drives page data, generated
// forms and hypermedia links.
//
//	func (h *MapHandler) GetWaterLevel(ctx context.Context, _ *humastar.EmptyInput) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Patch(h.Renderer.MustRender("slider", state), "#slider-state")
//	    }), nil
//	}
package humastar

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"
)

// Handler is embedded by UI handlers for the shared renderer.
type Handler struct {
	Renderer *Renderer
}

// Stream wraps fn as the body of a streaming response.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{Body: func(ctx huma.Context) { fn(NewSSE(ctx)) }}
}

// RenderList renders each item with tmpl, or the "empty-state" fragment
// when there are none.
func (h *Handler) RenderList(tmpl string, items []any, emptyTitle, emptyMsg string) string {
	return RenderList(h.Renderer, tmpl, items, emptyTitle, emptyMsg)
}

// RenderList is Handler.RenderList for callers without a Handler.
func RenderList(r *Renderer, tmpl string, items []any, emptyTitle, emptyMsg string) string {
	var buf bytes.Buffer
	if len(items) == 0 {
		r.RenderToBuffer(&buf, "empty-state", map[string]string{"Title": emptyTitle, "Message": emptyMsg})
		return buf.String()
	}
	for _, item := range items {
		r.RenderToBuffer(&buf, tmpl, item)
	}
	return buf.String()
}

// SSE writes Datastar events to a streaming Huma response.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE unwraps the net/http pair behind ctx.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch replaces the children of the element matching selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html, datastar.WithSelector(selector), datastar.WithModeInner(), datastar.WithViewTransitions())
}

// Signals merges values into the page signals.
func (s SSE) Signals(values map[string]any) {
	s.MarshalAndPatchSignals(values)
}

// Error sets the "error" signal the page shows as a banner.
func (s SSE) Error(msg string) { s.Signals(map[string]any{"error": msg}) }

// Success sets the "success" signal and clears "error".
func (s SSE) Success(msg string) { s.Signals(map[string]any{"success": msg, "error": ""}) }

// Event dispatches a DOM CustomEvent with detail on the page.
func (s SSE) Event(name string, detail any) {
	s.DispatchCustomEvent(name, detail)
}

// Signals is the flat JSON object Datastar posts with every action.
type Signals map[string]any

// ParseSignals decodes a request body into Signals.
func ParseSignals(body []byte) (Signals, error) {
	var s Signals
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Has reports whether key was sent, whatever its value.
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Float reads a number. Inputs bound with data-bind post their value as a
// string, so numeric strings count too. Anything else reads as 0.
func (s Signals) Float(key string) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// String reads a string, or "".
func (s Signals) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Bool reads a boolean, or false.
func (s Signals) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// EmptyInput is the input of operations without parameters.
type EmptyInput struct{}

// SignalsInput receives the raw Datastar signals body.
type SignalsInput struct {
	RawBody []byte
}

// Parse decodes the signals.
func (i *SignalsInput) Parse() (Signals, error) {
	return ParseSignals(i.RawBody)
}

// MustParse decodes the signals, answering 400 when the body is not JSON.
func (i *SignalsInput) MustParse() (Signals, error) {
	s, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid signals: " + err.Error())
	}
	return s, nil
}

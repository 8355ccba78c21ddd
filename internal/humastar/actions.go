package humastar

import (
	"fmt"
	"strings"
)

// Action is a state-dependent hypermedia link. Response bodies implement
// Actor to emit RFC 8288 Link headers carrying method, title and schema
// extension parameters, e.g. a selection that can be cleared:
//
//	</api/v1/selection>; rel="clear"; method="DELETE"; title="Clear selection"
type Action struct {
	Rel    string // IANA rel or custom (e.g., "clear", "apply")
	Href   string // target URL
	Method string // HTTP method: POST, PUT, DELETE, etc.
	Title  string // optional human-readable label
	Schema string // optional JSON Schema URL for the request body
}

// Actor is implemented by response bodies that provide state-dependent actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as an RFC 8288 Link header value.
func (a Action) LinkHeader() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<%s>; rel="%s"`, a.Href, a.Rel)
	for _, p := range [][2]string{{"method", a.Method}, {"title", a.Title}, {"schema", a.Schema}} {
		if p[1] != "" {
			fmt.Fprintf(&b, `; %s="%s"`, p[0], p[1])
		}
	}
	return b.String()
}

// ActionDef describes an action shared by every resource of a kind.
// Pattern holds one %s verb for the resource ID.
type ActionDef struct {
	Rel     string
	Pattern string
	Method  string
	Title   string
}

// ActionsFor expands defs for the resource id.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, 0, len(defs))
	for _, d := range defs {
		actions = append(actions, Action{Rel: d.Rel, Href: fmt.Sprintf(d.Pattern, id), Method: d.Method, Title: d.Title})
	}
	return actions
}

package humastar

import "strings"

// Action is one RFC 8288 link a response offers, with the method and title
// extension parameters a client needs to follow it:
//
//	</api/v1/sessions/ab12/toggles/waterSupply>; rel="toggle"; method="PUT"; title="Show waterSupply"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
}

// Actor is implemented by response bodies whose links depend on state.
type Actor interface {
	Actions() []Action
}

func (a Action) LinkHeader() string {
	var b strings.Builder
	b.WriteString("<" + a.Href + `>; rel="` + quote(a.Rel) + `"`)
	if a.Method != "" {
		b.WriteString(`; method="` + a.Method + `"`)
	}
	if a.Title != "" {
		b.WriteString(`; title="` + quote(a.Title) + `"`)
	}
	return b.String()
}

func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// ActionDef is an action template. Path and Title may hold {name}
// placeholders.
type ActionDef struct {
	Rel    string
	Path   string
	Method string
	Title  string
}

// Expand fills the placeholders from vars. Unknown placeholders are left as
// they are.
func (d ActionDef) Expand(vars map[string]string) Action {
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	return Action{Rel: d.Rel, Href: r.Replace(d.Path), Method: d.Method, Title: r.Replace(d.Title)}
}

// ActionsFor expands defs with {id} bound to id.
func ActionsFor(id string, defs []ActionDef) []Action {
	vars := map[string]string{"id": id}
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = d.Expand(vars)
	}
	return actions
}

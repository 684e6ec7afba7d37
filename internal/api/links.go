package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-overlay/internal/humastar"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/demos>; rel="demos"`,
		`</api/v1/tables>; rel="tables"`,
		`</api/v1/sessions>; rel="sessions"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/demos>; rel="demos"`,
	},
	"/api/v1/demos": {
		`</api/v1/tables>; rel="tables"`,
		`</api/v1/sessions>; rel="sessions"`,
	},
	"/api/v1/demos/{id}": {
		`</api/v1/demos>; rel="collection"`,
	},
	"/api/v1/tables": {
		`</api/v1/demos>; rel="demos"`,
	},
	"/api/v1/tables/{name}": {
		`</api/v1/tables>; rel="collection"`,
	},
	"/api/v1/sessions": {
		`</api/v1/demos>; rel="demos"`,
	},
	"/api/v1/sessions/{id}": {
		`</api/v1/sessions>; rel="collection"`,
	},
	"/api/v1/extracts": {
		`</api/v1/db/tables>; rel="tables"`,
	},
	"/api/v1/db/tables": {
		`</api/v1/extracts>; rel="extracts"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
// Bodies implementing humastar.Actor add their state-dependent actions.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if actor, ok := v.(humastar.Actor); ok {
			for _, a := range actor.Actions() {
				ctx.AppendHeader("Link", a.LinkHeader())
			}
		}

		return v, nil
	}
}

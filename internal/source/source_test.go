package source

import (
	"reflect"
	"strings"
	"testing"
)

const stressQuery = `SELECT label, CAST(basinid AS STRING) AS geoid
FROM water_risk_indicators_projections
WHERE year = @selectedYear AND indicator = 'water_stress'
  AND scenario = @selectedScenario AND label IS NOT NULL AND year = @selectedYear`

func TestTemplate_Params(t *testing.T) {
	tpl := Template{Kind: BoundaryQuery, Connection: "carto_dw", Table: "tiles", Query: stressQuery}
	want := []string{"selectedScenario", "selectedYear"}
	if got := tpl.Params(); !reflect.DeepEqual(got, want) {
		t.Fatalf("params=%v want %v", got, want)
	}
}

func TestTemplate_BindNeverFormatsValues(t *testing.T) {
	tpl := Template{Kind: VectorQuery, Connection: "carto_dw", Query: "SELECT * FROM zones WHERE version = @version"}
	hostile := "v1'; DROP TABLE zones; --"
	d := tpl.Bind(func(name string) (any, bool) {
		if name == "version" {
			return hostile, true
		}
		return nil, false
	})

	if strings.Contains(d.Query, "DROP") {
		t.Fatalf("value leaked into query text: %s", d.Query)
	}
	if d.Parameters["version"] != hostile {
		t.Fatalf("parameters=%v", d.Parameters)
	}
	if len(d.Missing()) != 0 {
		t.Fatalf("missing=%v", d.Missing())
	}
}

func TestDescriptor_Missing(t *testing.T) {
	tpl := Template{Kind: BoundaryQuery, Connection: "c", Table: "t", Query: stressQuery}
	d := tpl.Bind(func(name string) (any, bool) {
		if name == "selectedYear" {
			return 2020, true
		}
		return nil, false
	})
	if got := d.Missing(); !reflect.DeepEqual(got, []string{"selectedScenario"}) {
		t.Fatalf("missing=%v", got)
	}
}

func TestTemplate_Validate(t *testing.T) {
	cases := []struct {
		name string
		tpl  Template
		ok   bool
	}{
		{"vector", Template{Kind: VectorQuery, Connection: "c", Query: "q"}, true},
		{"boundary", Template{Kind: BoundaryQuery, Connection: "c", Table: "t", Query: "q"}, true},
		{"boundary without table", Template{Kind: BoundaryQuery, Connection: "c", Query: "q"}, false},
		{"unknown kind", Template{Kind: "raster", Connection: "c", Query: "q"}, false},
		{"no connection", Template{Kind: VectorQuery, Query: "q"}, false},
		{"no query", Template{Kind: VectorQuery, Connection: "c"}, false},
	}
	for _, tc := range cases {
		err := tc.tpl.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("%s: err=%v ok=%v", tc.name, err, tc.ok)
		}
	}
}

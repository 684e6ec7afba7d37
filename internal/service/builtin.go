package service

import (
	"github.com/joeblew999/plat-overlay/internal/classify"
	"github.com/joeblew999/plat-overlay/internal/render"
	"github.com/joeblew999/plat-overlay/internal/selector"
	"github.com/joeblew999/plat-overlay/internal/source"
	"github.com/joeblew999/plat-overlay/internal/viewstate"
)

const (
	projectionsTileset = "carto-dw-ac-3nduqebh.shared.aqueduct_projections_20150309_geom_split_tileset_0_12"
	projectionsTable   = "carto-dw-ac-3nduqebh.shared.water_risk_indicators_projections"
	blueZonesTable     = "carto-dw-ac-7xhfwyml.shared.ford-blue-zones"
)

func projectionQuery(indicator string) string {
	return "SELECT label, CAST(basinid AS STRING) AS geoid\n" +
		"FROM `" + projectionsTable + "`\n" +
		"WHERE year = @selectedYear\n" +
		"  AND type = 'future_value'\n" +
		"  AND indicator = '" + indicator + "'\n" +
		"  AND scenario = @selectedScenario\n" +
		"  AND label IS NOT NULL"
}

func projectionSource(connection, indicator string) source.Template {
	return source.Template{
		Kind:           source.BoundaryQuery,
		Connection:     connection,
		Table:          projectionsTileset,
		Query:          projectionQuery(indicator),
		MatchingColumn: "geoid",
	}
}

var boundaryStyle = render.Style{Opacity: 0.8, LineWidth: 1, LineWidthUnits: "pixels", Pickable: true}

var projectionSelectors = []selector.Definition{
	{Param: "selectedYear", Column: "year", Table: projectionsTable, Numeric: true},
	{Param: "selectedScenario", Column: "scenario", Table: projectionsTable},
}

// builtinDemos returns the demos that ship with the binary.
func builtinDemos(connection string) []Demo {
	return []Demo{
		{
			ID:          "water-risk",
			Title:       "Projected water stress and supply",
			InitialView: viewstate.ViewState{Latitude: 41.8097343, Longitude: -110.5556199, Zoom: 3},
			Basemap:     "positron",
			Params:      map[string]any{"selectedYear": 2020, "selectedScenario": "business_as_usual"},
			Toggles:     map[string]bool{"waterStress": true, "waterSupply": false},
			Selectors:   projectionSelectors,
			Layers: []LayerSpec{
				{ID: "water-stress", Toggle: "waterStress", Source: projectionSource(connection, "water_stress"), Table: "water_stress", Style: boundaryStyle},
				{ID: "water-supply", Toggle: "waterSupply", Source: projectionSource(connection, "water_supply"), Table: "water_supply", Style: boundaryStyle},
			},
		},
		{
			ID:          "sample-boundary",
			Title:       "Projected water stress",
			InitialView: viewstate.ViewState{Latitude: 41.8097343, Longitude: -110.5556199, Zoom: 3},
			Basemap:     "positron",
			Params:      map[string]any{"selectedYear": 2020, "selectedScenario": "business_as_usual"},
			Selectors:   projectionSelectors,
			Layers: []LayerSpec{
				{ID: "projected-water-stress", Source: projectionSource(connection, "water_stress"), Table: "water_stress",
					Style: render.Style{Opacity: 0.8, Pickable: true}},
			},
		},
		{
			ID:          "blue-zones",
			Title:       "Blue zones by version",
			InitialView: viewstate.ViewState{Latitude: 42.3514, Longitude: -83.0658, Zoom: 12},
			Basemap:     "voyager",
			Selectors:   []selector.Definition{{Param: "version", Column: "version", Table: blueZonesTable}},
			Layers: []LayerSpec{
				{
					ID: "ford-blue-zones",
					Source: source.Template{
						Kind:       source.VectorQuery,
						Connection: connection,
						Query:      "SELECT * FROM `" + blueZonesTable + "` WHERE version = @version",
					},
					Table: "blue_zone",
					Style: render.Style{Opacity: 0.3, LineWidthMinPixels: 2, LineColor: blueLine(), Pickable: true},
				},
			},
		},
	}
}

func blueLine() *classify.Color {
	c := classify.RGB(0, 0, 255)
	return &c
}

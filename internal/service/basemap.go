package service

import (
	"fmt"
	"strings"
)

// Basemap describes the style the basemap surface draws.
type Basemap struct {
	ID        string `json:"id" doc:"Basemap id as given by the client" example:"positron"`
	Provider  string `json:"provider" enum:"carto,google" doc:"Basemap provider"`
	StyleURL  string `json:"styleUrl,omitempty" doc:"Vector style document for CARTO basemaps"`
	MapTypeID string `json:"mapTypeId,omitempty" doc:"Google map type"`
	MapID     string `json:"mapId,omitempty" doc:"Google cloud map id"`
}

var cartoStyles = map[string]string{
	"positron":    "https://basemaps.cartocdn.com/gl/positron-gl-style/style.json",
	"voyager":     "https://basemaps.cartocdn.com/gl/voyager-gl-style/style.json",
	"dark-matter": "https://basemaps.cartocdn.com/gl/dark-matter-gl-style/style.json",
}

var googleMapTypes = map[string]bool{
	"roadmap":   true,
	"satellite": true,
	"hybrid":    true,
	"terrain":   true,
}

// ParseBasemap resolves a basemap id. CARTO styles are named directly;
// Google basemaps are written "mapTypeId.mapId", e.g. "roadmap.3754c817b510f791".
func ParseBasemap(id string) (Basemap, error) {
	if url, ok := cartoStyles[id]; ok {
		return Basemap{ID: id, Provider: "carto", StyleURL: url}, nil
	}
	mapType, mapID, ok := strings.Cut(id, ".")
	if !ok || !googleMapTypes[mapType] || mapID == "" {
		return Basemap{}, fmt.Errorf("%w: %q", ErrInvalidBasemap, id)
	}
	return Basemap{ID: id, Provider: "google", MapTypeID: mapType, MapID: mapID}, nil
}

package server

const defaultAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors ` +
	`&copy; <a href="https://carto.com/attributions">CARTO</a>`

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type MarkerIcon struct {
	Size   [2]int `json:"size"`
	Anchor [2]int `json:"anchor"`
}

// MapConfig is everything the browser needs to set up the map view
type MapConfig struct {
	Center      LatLng        `json:"center"`
	Zoom        int           `json:"zoom"`
	MinZoom     int           `json:"minZoom"`
	MaxZoom     int           `json:"maxZoom"`
	MaxBounds   [2][2]float64 `json:"maxBounds"`
	TileURL     string        `json:"tileUrl"`
	Attribution string        `json:"attribution"`
	MarkerIcon  MarkerIcon    `json:"markerIcon"`
}

func DefaultMapConfig() MapConfig {
	return MapConfig{
		Center:      LatLng{Lat: 52.507932, Lng: 13.338414},
		Zoom:        3,
		MinZoom:     3,
		MaxZoom:     18,
		MaxBounds:   [2][2]float64{{85, 190}, {-85, -170}},
		TileURL:     "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: defaultAttribution,
		MarkerIcon:  MarkerIcon{Size: [2]int{38, 95}, Anchor: [2]int{22, 94}},
	}
}

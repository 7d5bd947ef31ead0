package chat

import "sort"

// Location is a [lat, lng] pair
type Location [2]float64

// Marker is a map pin bound to exactly one group
type Marker struct {
	GroupID     string   `json:"id"`
	DisplayName string   `json:"chatName"`
	Location    Location `json:"location"`
}

// Registry associates markers with the groups they represent.
// It is built once per map view and never mutated afterwards.
type Registry struct {
	markers []Marker
	byID    map[string]Marker
}

// LoadMarkers creates one marker per group, ordered by group id
func LoadMarkers(groups map[string]Group) *Registry {
	r := &Registry{
		markers: make([]Marker, 0, len(groups)),
		byID:    make(map[string]Marker, len(groups)),
	}

	for id, g := range groups {
		m := Marker{
			GroupID:     id,
			DisplayName: g.Name,
			Location:    Location{g.Lat, g.Lng},
		}
		r.markers = append(r.markers, m)
		r.byID[id] = m
	}

	sort.Slice(r.markers, func(i, j int) bool {
		return r.markers[i].GroupID < r.markers[j].GroupID
	})

	return r
}

// Markers returns a copy of all markers
func (r *Registry) Markers() []Marker {
	out := make([]Marker, len(r.markers))
	copy(out, r.markers)
	return out
}

func (r *Registry) Lookup(groupID string) (Marker, bool) {
	if r == nil {
		return Marker{}, false
	}
	m, ok := r.byID[groupID]
	return m, ok
}

func (r *Registry) Len() int {
	return len(r.markers)
}

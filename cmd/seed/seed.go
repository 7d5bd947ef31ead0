package main

import (
	"errors"
	"fmt"

	"github.com/valyala/fastjson"

	"map-chat/internal/storage"
)

// parseSeed reads an array of group objects, new groups have no message list
func parseSeed(data []byte) ([]storage.Group, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, err
	}

	items, err := v.Array()
	if err != nil {
		return nil, errors.New("seed file must hold an array of groups")
	}

	groups := make([]storage.Group, 0, len(items))
	for i, item := range items {
		name := string(item.GetStringBytes("name"))
		if name == "" {
			return nil, fmt.Errorf("group #%d: missing field \"name\"", i)
		}

		lat, err := number(item, "lat")
		if err != nil {
			return nil, fmt.Errorf("group #%d: %w", i, err)
		}
		lng, err := number(item, "lng")
		if err != nil {
			return nil, fmt.Errorf("group #%d: %w", i, err)
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return nil, fmt.Errorf("group #%d: location %v,%v is out of range", i, lat, lng)
		}

		groups = append(groups, storage.Group{
			ID:   string(item.GetStringBytes("id")),
			Name: name,
			Lat:  lat,
			Lng:  lng,
		})
	}

	return groups, nil
}

func number(v *fastjson.Value, name string) (float64, error) {
	f := v.Get(name)
	if f == nil || f.Type() != fastjson.TypeNumber {
		return 0, fmt.Errorf("field %q must be a number", name)
	}
	return f.Float64()
}

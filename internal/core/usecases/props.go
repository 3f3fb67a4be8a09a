package usecases

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// propText returns the first present, non-empty value among keys, or def.
// Missing keys, nulls, empty strings, false and zero fall through.
func propText(props geojson.Properties, def string, keys ...string) string {
	for _, k := range keys {
		if s, ok := truthy(props[k]); ok {
			return s
		}
	}
	return def
}

func truthy(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case bool:
		if !val {
			return "", false
		}
		return "true", true
	case float64:
		if val == 0 {
			return "", false
		}
		return fmt.Sprint(val), true
	default:
		return fmt.Sprint(val), true
	}
}

// containsFold reports whether s contains substr, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// featureJSON renders a feature as a plain map for JSON responses.
func featureJSON(f *geojson.Feature) map[string]interface{} {
	m := map[string]interface{}{
		"type":       "Feature",
		"properties": map[string]interface{}(f.Properties),
	}
	if f.ID != nil {
		m["id"] = f.ID
	}
	if f.Geometry != nil {
		m["geometry"] = geojson.NewGeometry(f.Geometry)
	} else {
		m["geometry"] = nil
	}
	return m
}

package domain

import (
	"fmt"
	"strings"
)

// DatasetID names one of the fixed geodata collections.
type DatasetID string

const (
	DatasetDisasters   DatasetID = "disasters"
	DatasetRestaurants DatasetID = "restaurants"
	DatasetTrains      DatasetID = "trains"
	DatasetHighways    DatasetID = "highways"
	DatasetRivers      DatasetID = "rivers"
)

// Datasets lists every dataset in load order.
var Datasets = []DatasetID{
	DatasetDisasters,
	DatasetRestaurants,
	DatasetTrains,
	DatasetHighways,
	DatasetRivers,
}

// DefaultFiles binds each dataset to its backing resource name.
func DefaultFiles() map[DatasetID]string {
	return map[DatasetID]string{
		DatasetDisasters:   "Disaster_all.geojson",
		DatasetRestaurants: "restaurants_all.geojson",
		DatasetTrains:      "ralway_All.geojson",
		DatasetHighways:    "HW_all.geojson",
		DatasetRivers:      "Oya_all.geojson",
	}
}

// ParseDatasetID validates a user-supplied dataset identifier.
func ParseDatasetID(s string) (DatasetID, error) {
	id := DatasetID(strings.ToLower(strings.TrimSpace(s)))
	if !id.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDataset, s)
	}
	return id, nil
}

// Known reports whether id is one of the fixed datasets.
func (id DatasetID) Known() bool {
	for _, d := range Datasets {
		if d == id {
			return true
		}
	}
	return false
}

// Category is a chat topic. Each category is answered from one dataset.
type Category string

const (
	CategoryDisaster   Category = "disaster"
	CategoryRailway    Category = "railway"
	CategoryRestaurant Category = "restaurant"
	CategoryHighway    Category = "highway"
	CategoryRiver      Category = "river"
)

// Dataset returns the dataset backing the category.
func (c Category) Dataset() DatasetID {
	switch c {
	case CategoryDisaster:
		return DatasetDisasters
	case CategoryRailway:
		return DatasetTrains
	case CategoryRestaurant:
		return DatasetRestaurants
	case CategoryHighway:
		return DatasetHighways
	case CategoryRiver:
		return DatasetRivers
	}
	return ""
}

// DefaultRadiusKm is the search radius used for "nearby" questions.
func (c Category) DefaultRadiusKm() float64 {
	switch c {
	case CategoryDisaster:
		return 50
	case CategoryRailway:
		return 30
	case CategoryRestaurant:
		return 5
	case CategoryHighway:
		return 10
	case CategoryRiver:
		return 20
	}
	return 0
}

// CategoryFor returns the chat category answered from a dataset.
func CategoryFor(id DatasetID) Category {
	switch id {
	case DatasetDisasters:
		return CategoryDisaster
	case DatasetTrains:
		return CategoryRailway
	case DatasetRestaurants:
		return CategoryRestaurant
	case DatasetHighways:
		return CategoryHighway
	case DatasetRivers:
		return CategoryRiver
	}
	return ""
}

// NearbyResult is one feature ranked by distance from a query point.
type NearbyResult struct {
	Name       string                 `json:"name"`
	Type       string                 `json:"type"`
	Location   string                 `json:"location"`
	DistanceKm float64                `json:"distance_km"`
	Properties map[string]interface{} `json:"properties"`
}

// PropertySummary describes one property key across a collection.
type PropertySummary struct {
	Name        string      `json:"name"`
	SampleValue interface{} `json:"sample_value"`
	Count       int         `json:"count"`
}

// DatasetStats summarises the shape of a collection.
type DatasetStats struct {
	Dataset       DatasetID                  `json:"dataset"`
	File          string                     `json:"file"`
	TotalFeatures int                        `json:"total_features"`
	GeometryTypes []string                   `json:"geometry_types"`
	Properties    map[string]PropertySummary `json:"properties"`
	Sample        []map[string]interface{}   `json:"sample"`
}

// DatasetSummary holds the per-dataset facts used by the map panels.
type DatasetSummary struct {
	Dataset       DatasetID `json:"dataset"`
	File          string    `json:"file"`
	TotalFeatures int       `json:"total_features"`
	Types         []string  `json:"types,omitempty"`
	Locations     []string  `json:"locations,omitempty"`
	Stations      *int      `json:"stations,omitempty"`
}

// FeatureMatch is a bounded list of matching features.
type FeatureMatch struct {
	Dataset  DatasetID                `json:"dataset"`
	File     string                   `json:"file"`
	Query    string                   `json:"query"`
	Matches  int                      `json:"matches"`
	Features []map[string]interface{} `json:"features"`
}

// SearchHit is a property value that matched a keyword.
type SearchHit struct {
	Name     string      `json:"name,omitempty"`
	Location string      `json:"location,omitempty"`
	Match    interface{} `json:"match"`
}

// DatasetHits groups the keyword hits for one dataset.
type DatasetHits struct {
	Matches []SearchHit `json:"matches"`
	Total   int         `json:"total"`
}

// SearchResult is the outcome of a keyword search across every dataset.
type SearchResult struct {
	Keyword string                    `json:"keyword"`
	Results map[DatasetID]DatasetHits `json:"results"`
	Errors  map[DatasetID]string      `json:"errors,omitempty"`
}

package usecases

import (
	"strings"

	"github.com/samirrijal/srimap/internal/core/domain"
)

// keywordRule binds a category to its trigger words.
type keywordRule struct {
	category domain.Category
	keywords []string
	nearby   []string
}

var defaultNearbyTerms = []string{"nearby", "near me", "close"}

// rules is evaluated top to bottom; the first match wins.
var rules = []keywordRule{
	{
		category: domain.CategoryDisaster,
		keywords: []string{"danger", "risk", "disaster", "earthquake", "flood", "landslide", "tsunami", "hazard", "unsafe", "careful"},
		nearby:   defaultNearbyTerms,
	},
	{
		category: domain.CategoryRailway,
		keywords: []string{"train", "railway", "station", "transport", "rail", "locomotive", "track"},
		nearby:   defaultNearbyTerms,
	},
	{
		category: domain.CategoryRestaurant,
		keywords: []string{"restaurant", "food", "eat", "dining", "cafe", "hotel", "meal", "cuisine", "where eat"},
		nearby:   defaultNearbyTerms,
	},
	{
		category: domain.CategoryHighway,
		keywords: []string{"highway", "road", "drive", "route", "path", "traffic", "way", "street"},
		nearby:   []string{"nearby", "near me", "route"},
	},
	{
		category: domain.CategoryRiver,
		keywords: []string{"river", "water", "stream", "waterway", "flow", "oya", "lake"},
		nearby:   defaultNearbyTerms,
	},
}

// knownPlaces are the towns the disaster answer can search by name.
var knownPlaces = []string{"colombo", "kandy", "galle", "matara", "jaffna", "trincomalee"}

// Classification is the router's reading of a question.
type Classification struct {
	Category domain.Category `json:"category,omitempty"`
	Matched  bool            `json:"matched"`
	Nearby   bool            `json:"nearby"`
	Place    string          `json:"place,omitempty"`
}

// Classify maps free text to a category. Matching is substring based on the
// lower-cased text.
func Classify(text string) (domain.Category, bool) {
	q := strings.ToLower(text)
	for _, r := range rules {
		if containsAny(q, r.keywords) {
			return r.category, true
		}
	}
	return "", false
}

// WantsNearby reports whether the question asks for results around the user.
func WantsNearby(text string, c domain.Category) bool {
	q := strings.ToLower(text)
	for _, r := range rules {
		if r.category == c {
			return containsAny(q, r.nearby)
		}
	}
	return false
}

// MentionedPlace returns the first known town named in the text.
func MentionedPlace(text string) (string, bool) {
	q := strings.ToLower(text)
	for _, p := range knownPlaces {
		if strings.Contains(q, p) {
			return p, true
		}
	}
	return "", false
}

// Analyze runs the full classification of a question.
func Analyze(text string) Classification {
	c, ok := Classify(text)
	if !ok {
		return Classification{}
	}
	cl := Classification{Category: c, Matched: true, Nearby: WantsNearby(text, c)}
	if c == domain.CategoryDisaster {
		cl.Place, _ = MentionedPlace(text)
	}
	return cl
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/srimap/internal/core/domain"
)

const nearbyListSize = 5

// HelpMessage is returned when a question matches no category and no remote
// answer service is configured.
const HelpMessage = "I can help you with information about:\n\n" +
	"🚨 **Disasters** - Earthquakes, floods, landslides near you\n" +
	"🚂 **Railways** - Train stations and routes\n" +
	"🍽️ **Restaurants** - Dining options and eateries\n" +
	"🛣️ **Highways** - Road networks and routes\n" +
	"💧 **Rivers** - Waterways and streams\n\n" +
	"Try asking:\n" +
	"  • \"What nearby disasters?\"\n" +
	"  • \"Show restaurants near me\"\n" +
	"  • \"Where are train stations?\"\n" +
	"  • \"What roads are near me?\"\n" +
	"  • \"Tell me about rivers\""

var locationPrompts = map[domain.Category]string{
	domain.CategoryDisaster:   "📍 Please enable location access to check for nearby dangers.",
	domain.CategoryRailway:    "📍 Please enable location access to find nearby stations.",
	domain.CategoryRestaurant: "📍 Please enable location access to find nearby restaurants.",
	domain.CategoryHighway:    "📍 Please enable location access to find nearby roads.",
	domain.CategoryRiver:      "📍 Please enable location access to find nearby rivers.",
}

// Answerer builds text answers from the local datasets.
type Answerer struct {
	store  *FeatureStore
	nearby *NearbyService
}

// NewAnswerer creates an Answerer.
func NewAnswerer(store *FeatureStore, nearby *NearbyService) *Answerer {
	return &Answerer{store: store, nearby: nearby}
}

// Answer formats the reply for a classified question. It never fails:
// dataset errors become a short apology.
func (a *Answerer) Answer(ctx context.Context, cl Classification, loc *domain.UserLocation) string {
	c := cl.Category
	fc, err := a.store.Load(ctx, c.Dataset())
	if err != nil {
		return unavailable(c, err)
	}
	if len(fc.Features) == 0 {
		return fmt.Sprintf("❌ No %s data available currently.", c)
	}

	if cl.Nearby {
		if loc == nil {
			return locationPrompts[c]
		}
		results, err := a.nearby.FindNearby(ctx, loc.Lat, loc.Lon, c.DefaultRadiusKm(), c.Dataset())
		if err != nil {
			return unavailable(c, err)
		}
		return nearbyAnswer(c, results)
	}

	if c == domain.CategoryDisaster && cl.Place != "" {
		return disastersInPlace(fc, cl.Place)
	}
	return overview(c, fc)
}

func unavailable(c domain.Category, err error) string {
	slog.Warn("local answer fell back", "category", c, "error", err)
	return fmt.Sprintf("I couldn't fetch %s information right now. Please try again later.", c)
}

func nearbyAnswer(c domain.Category, results []domain.NearbyResult) string {
	radius := c.DefaultRadiusKm()
	if len(results) == 0 {
		switch c {
		case domain.CategoryDisaster:
			return fmt.Sprintf("✅ No dangerous areas detected nearby (within %.0f km). You are safe!", radius)
		case domain.CategoryRailway:
			return fmt.Sprintf("❌ No railway stations found nearby (within %.0f km).", radius)
		case domain.CategoryRestaurant:
			return "❌ No restaurants found nearby. Try searching in a wider area."
		case domain.CategoryHighway:
			return "❌ No highways found nearby."
		default:
			return "❌ No major rivers found nearby."
		}
	}

	if len(results) > nearbyListSize {
		results = results[:nearbyListSize]
	}

	var b strings.Builder
	switch c {
	case domain.CategoryDisaster:
		fmt.Fprintf(&b, "⚠️ **NEARBY DANGEROUS AREAS (within %.0f km):**\n\n", radius)
	case domain.CategoryRailway:
		fmt.Fprintf(&b, "🚂 **NEARBY RAILWAY STATIONS (within %.0f km):**\n\n", radius)
	case domain.CategoryRestaurant:
		fmt.Fprintf(&b, "🍽️ **NEARBY RESTAURANTS (within %.0f km):**\n\n", radius)
	case domain.CategoryHighway:
		fmt.Fprintf(&b, "🛣️ **NEARBY ROADS & HIGHWAYS (within %.0f km):**\n\n", radius)
	default:
		fmt.Fprintf(&b, "💧 **NEARBY RIVERS & WATERWAYS (within %.0f km):**\n\n", radius)
	}

	for _, r := range results {
		props := geojson.Properties(r.Properties)
		switch c {
		case domain.CategoryDisaster:
			fmt.Fprintf(&b, "🔴 **%s** at %s (%.1f km away)\n",
				propText(props, "Hazard", "natural", "water"),
				propText(props, "Unknown area", "is_in"),
				r.DistanceKm)
		case domain.CategoryRailway:
			fmt.Fprintf(&b, "🚉 %s (%.1f km away)\n", propText(props, "Railway", "name"), r.DistanceKm)
		case domain.CategoryRestaurant:
			fmt.Fprintf(&b, "🍴 %s (%s) - %.1f km away\n",
				propText(props, "Restaurant", "name"),
				propText(props, "Dining", "cuisine", "amenity"),
				r.DistanceKm)
		case domain.CategoryHighway:
			fmt.Fprintf(&b, "🚗 %s (%s lane(s))\n",
				strings.ToUpper(propText(props, "Road", "highway")),
				propText(props, "?", "lanes"))
		default:
			fmt.Fprintf(&b, "🌊 %s (%.1f km away)\n", propText(props, "Waterway", "name"), r.DistanceKm)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func disastersInPlace(fc *geojson.FeatureCollection, place string) string {
	var b strings.Builder
	n := 0
	for _, f := range fc.Features {
		loc, _ := f.Properties["is_in"].(string)
		if loc == "" || !containsFold(loc, place) {
			continue
		}
		if n == 0 {
			fmt.Fprintf(&b, "⚠️ **DANGEROUS AREAS IN %s:**\n\n", strings.ToUpper(place))
		}
		fmt.Fprintf(&b, "🔴 %s\n", propText(f.Properties, "Hazard", "natural"))
		n++
		if n == nearbyListSize {
			break
		}
	}
	if n == 0 {
		return fmt.Sprintf("✅ No major disaster risks recorded in %s. It appears relatively safe.", place)
	}
	return strings.TrimRight(b.String(), "\n")
}

func overview(c domain.Category, fc *geojson.FeatureCollection) string {
	total := len(fc.Features)
	var b strings.Builder

	switch c {
	case domain.CategoryDisaster:
		b.WriteString("📊 **DISASTER & HAZARD OVERVIEW:**\n\n")
		for _, tc := range countBy(fc, 5, "natural", "water") {
			fmt.Fprintf(&b, "⚠️ %s: %d areas recorded\n", tc.value, tc.count)
		}
		b.WriteString("\n💡 *Use \"nearby dangers\" to check your area*")

	case domain.CategoryRailway:
		stations := countStations(fc)
		b.WriteString("🚂 **RAILWAY NETWORK INFO:**\n\n")
		fmt.Fprintf(&b, "📊 Total railway features: %d\n", total)
		fmt.Fprintf(&b, "🚉 Stations: %d\n", stations)
		fmt.Fprintf(&b, "🛤️ Routes/Lines: %d\n", total-stations)
		b.WriteString("✅ Railway network covers Sri Lanka\n")
		b.WriteString("💡 Use \"nearby stations\" to find closest train station")

	case domain.CategoryRestaurant:
		b.WriteString("🍽️ **RESTAURANT GUIDE:**\n\n")
		fmt.Fprintf(&b, "📊 Total restaurants: %d\n", total)
		b.WriteString("✅ Restaurants available across Sri Lanka\n")
		b.WriteString("💡 Use \"nearby restaurants\" to find places to eat")

	case domain.CategoryHighway:
		b.WriteString("🛣️ **HIGHWAY & ROAD NETWORK:**\n\n")
		fmt.Fprintf(&b, "📊 Total road segments: %d\n", total)
		if types := countBy(fc, 8, "highway"); len(types) > 0 {
			b.WriteString("\n**Road Types:**\n")
			for _, tc := range types {
				fmt.Fprintf(&b, "  • %s: %d roads\n", capitalizeFirst(tc.value), tc.count)
			}
			b.WriteString("\n")
		}
		b.WriteString("✅ Comprehensive road network across Sri Lanka\n")
		b.WriteString("💡 Use \"nearby roads\" to check local routes")

	default:
		b.WriteString("💧 **RIVER & WATERWAY SYSTEM:**\n\n")
		fmt.Fprintf(&b, "📊 Total waterways mapped: %d\n", total)
		named := 0
		for _, f := range fc.Features {
			name, ok := truthy(f.Properties["name"])
			if !ok {
				continue
			}
			if named == 0 {
				b.WriteString("\n**Named Waterways:**\n")
			}
			fmt.Fprintf(&b, "  • %s (%s)\n", name, propText(f.Properties, "Waterway", "water"))
			named++
			if named == 10 {
				break
			}
		}
		if named > 0 {
			b.WriteString("\n")
		}
		b.WriteString("✅ Major rivers: Mahaweli, Kelani, Ruwanwella, and more\n")
		b.WriteString("💡 Use \"nearby rivers\" to find local waterways")
	}

	return b.String()
}

type typeCount struct {
	value string
	count int
}

// countBy groups features by the first truthy key, most frequent first.
// Ties keep first-seen order. Features with none of the keys count as
// "Unknown".
func countBy(fc *geojson.FeatureCollection, limit int, keys ...string) []typeCount {
	idx := make(map[string]int)
	var out []typeCount
	for _, f := range fc.Features {
		v := propText(f.Properties, "Unknown", keys...)
		i, ok := idx[v]
		if !ok {
			i = len(out)
			idx[v] = i
			out = append(out, typeCount{value: v})
		}
		out[i].count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func capitalizeFirst(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

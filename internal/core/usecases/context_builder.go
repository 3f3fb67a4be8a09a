package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/samirrijal/srimap/internal/core/domain"
)

const promptTemplate = `You are a helpful map assistant for Sri Lanka. You have access to data about disasters, restaurants, train routes, highways, and rivers.


User question: "%s"

Map data summary:
%s

Please answer the user's question in a natural, conversational way. Be specific about locations when possible. Keep your response short and easy to understand (2-3 sentences max).`

// BuildPrompt wraps a question and its data digest for the remote service.
func BuildPrompt(question, digest string) string {
	return fmt.Sprintf(promptTemplate, question, digest)
}

// BuildContext summarises the datasets around the user for the remote
// answer service. Sections whose dataset cannot be loaded are left out.
func (a *Answerer) BuildContext(ctx context.Context, loc *domain.UserLocation) string {
	var b strings.Builder

	if loc != nil {
		fmt.Fprintf(&b, "USER LOCATION: Latitude %.4f, Longitude %.4f\n", loc.Lat, loc.Lon)
		fmt.Fprintf(&b, "Location accuracy: ±%d meters\n\n", int(math.Round(loc.AccuracyM)))

		nearby, err := a.nearby.FindNearby(ctx, loc.Lat, loc.Lon, domain.CategoryDisaster.DefaultRadiusKm(), domain.DatasetDisasters)
		if err != nil {
			slog.Warn("context: nearby disasters unavailable", "error", err)
		} else if len(nearby) > 0 {
			b.WriteString("NEARBY DISASTERS (within 50 km):\n")
			if len(nearby) > nearbyListSize {
				nearby = nearby[:nearbyListSize]
			}
			for _, r := range nearby {
				fmt.Fprintf(&b, "- %s at %s (%.1f km away)\n",
					propText(r.Properties, "Unknown", "natural", "water"),
					propText(r.Properties, "Unknown location", "is_in"),
					r.DistanceKm)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("USER LOCATION: Not available\n\n")
	}

	if fc, err := a.store.Load(ctx, domain.DatasetDisasters); err != nil {
		slog.Warn("context: disasters unavailable", "error", err)
	} else if len(fc.Features) > 0 {
		var order []string
		byType := make(map[string][]string)
		for _, f := range fc.Features {
			t := propText(f.Properties, "Unknown", "natural", "water")
			if _, ok := byType[t]; !ok {
				order = append(order, t)
			}
			byType[t] = append(byType[t], propText(f.Properties, "Unknown location", "is_in"))
		}

		b.WriteString("DISASTERS BY TYPE (all):\n")
		for _, t := range order {
			locs := byType[t]
			shown := locs
			if len(shown) > 3 {
				shown = shown[:3]
			}
			fmt.Fprintf(&b, "- %s: Found in %s", t, strings.Join(shown, ", "))
			if len(locs) > 3 {
				fmt.Fprintf(&b, " and %d more", len(locs)-3)
			}
			b.WriteString("\n")
		}
	}

	if fc, err := a.store.Load(ctx, domain.DatasetRestaurants); err != nil {
		slog.Warn("context: restaurants unavailable", "error", err)
	} else if len(fc.Features) > 0 {
		fmt.Fprintf(&b, "\nRESTAURANTS: Total %d restaurants available\n", len(fc.Features))
		for i, f := range fc.Features {
			if i == nearbyListSize {
				break
			}
			if name, ok := truthy(f.Properties["name"]); ok {
				fmt.Fprintf(&b, "- %s\n", name)
			}
		}
	}

	if fc, err := a.store.Load(ctx, domain.DatasetTrains); err != nil {
		slog.Warn("context: trains unavailable", "error", err)
	} else if len(fc.Features) > 0 {
		fmt.Fprintf(&b, "\nTRAIN STATIONS: %d stations available across Sri Lanka\n", countStations(fc))
	}

	if fc, err := a.store.Load(ctx, domain.DatasetRivers); err != nil {
		slog.Warn("context: rivers unavailable", "error", err)
	} else if len(fc.Features) > 0 {
		fmt.Fprintf(&b, "\nRIVERS: %d rivers and waterways mapped\n", len(fc.Features))
	}

	return b.String()
}

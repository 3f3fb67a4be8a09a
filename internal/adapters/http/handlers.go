package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/srimap/internal/core/domain"
	"github.com/samirrijal/srimap/internal/core/usecases"
)

const maxQueryLen = 200

// datasetParam resolves the :id route parameter.
func datasetParam(c *fiber.Ctx) (domain.DatasetID, error) {
	return domain.ParseDatasetID(c.Params("id"))
}

// ListDatasetsHandler returns every dataset binding.
func ListDatasetsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Datasets.List())
	}
}

// GetDatasetHandler returns the raw FeatureCollection of a dataset.
func GetDatasetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := datasetParam(c)
		if err != nil {
			return errFromDomain(c, err)
		}
		fc, err := deps.Datasets.Collection(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fc, "application/geo+json")
	}
}

// DatasetFeaturesHandler returns a page of a dataset's features.
func DatasetFeaturesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := datasetParam(c)
		if err != nil {
			return errFromDomain(c, err)
		}
		offset, limit := pageParams(c, 100, 1000)

		features, total, err := deps.Datasets.Features(c.UserContext(), id, offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: features, Pagination: pg})
	}
}

// DatasetStatsHandler describes the geometry and properties of a dataset.
func DatasetStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := datasetParam(c)
		if err != nil {
			return errFromDomain(c, err)
		}
		stats, err := deps.Datasets.Stats(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(stats)
	}
}

// DatasetSummaryHandler returns the per-dataset panel facts.
func DatasetSummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := datasetParam(c)
		if err != nil {
			return errFromDomain(c, err)
		}
		sum, err := deps.Datasets.Summary(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(sum)
	}
}

// NearbyHandler ranks a dataset's features by distance from lat/lon.
// radius is in km and defaults to the dataset's category radius.
func NearbyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := datasetParam(c)
		if err != nil {
			return errFromDomain(c, err)
		}

		lat, err := requiredFloat(c, "lat")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		lon, err := requiredFloat(c, "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius := domain.CategoryFor(id).DefaultRadiusKm()
		if raw := c.Query("radius"); raw != "" {
			radius, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return errBadRequest(c, "radius must be a number")
			}
		}

		results, err := deps.Nearby.FindNearby(c.UserContext(), lat, lon, radius, id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(results)
	}
}

func requiredFloat(c *fiber.Ctx, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" must be a number")
	}
	return v, nil
}

// SearchLocationHandler matches a keyword against the is_in property.
func SearchLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := datasetParam(c)
		if err != nil {
			return errFromDomain(c, err)
		}
		location := strings.TrimSpace(c.Query("location"))
		if location == "" {
			return errBadRequest(c, "location query parameter is required")
		}
		if len(location) > maxQueryLen {
			return errBadRequest(c, "location too long (max 200 characters)")
		}
		m, err := deps.Datasets.SearchByLocation(c.UserContext(), id, location)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(m)
	}
}

// QueryPropertyHandler returns features whose property equals value.
func QueryPropertyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := datasetParam(c)
		if err != nil {
			return errFromDomain(c, err)
		}
		property, value := c.Query("property"), c.Query("value")
		if property == "" {
			return errBadRequest(c, "property query parameter is required")
		}
		m, err := deps.Datasets.QueryByProperty(c.UserContext(), id, property, value)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(m)
	}
}

// SearchAllHandler searches every property of every dataset.
func SearchAllHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(q) > maxQueryLen {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		res, err := deps.Datasets.SearchAll(c.UserContext(), q)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(res)
	}
}

// ClassifyHandler exposes the keyword router.
func ClassifyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Query("q")
		if strings.TrimSpace(q) == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		return c.JSON(usecases.Analyze(q))
	}
}

// ClearCacheHandler drops every cached dataset here and on peer instances.
func ClearCacheHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Datasets.ClearCache(c.UserContext())
		return c.JSON(fiber.Map{"status": "cleared"})
	}
}

// LegacyDataHandler serves /data/<file> for the map front end.
func LegacyDataHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := deps.Datasets.ByFile(c.Params("file"))
		if !ok {
			return errNotFound(c, "unknown data file")
		}
		fc, err := deps.Datasets.Collection(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fc, "application/geo+json")
	}
}

package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// legacySunset is when the /data/<file> routes will be removed.
var legacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// DeprecationMiddleware adds Deprecation, Sunset and Link headers
// (RFC 8594, RFC 8288). successor maps the request to its replacement URL;
// an empty result omits the Link header.
func DeprecationMiddleware(sunset time.Time, successor func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Deprecation", "true")
		c.Set("Sunset", sunset.UTC().Format(time.RFC1123))
		if successor != nil {
			if alt := successor(c); alt != "" {
				c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, alt))
			}
		}
		days := time.Until(sunset).Hours() / 24
		c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
		return c.Next()
	}
}

// legacySuccessor points /data/<file> at /v1/datasets/<id>.
func legacySuccessor(deps *Dependencies) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		if id, ok := deps.Datasets.ByFile(c.Params("file")); ok {
			return "/v1/datasets/" + string(id)
		}
		return ""
	}
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/srimap/internal/core/domain"
)

type locationBody struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Accuracy float64  `json:"accuracy"`
}

func (b locationBody) toDomain() (domain.UserLocation, bool) {
	if b.Lat == nil || b.Lon == nil {
		return domain.UserLocation{}, false
	}
	loc := domain.UserLocation{Lat: *b.Lat, Lon: *b.Lon, AccuracyM: b.Accuracy}
	return loc, loc.Point().Valid()
}

type sessionResponse struct {
	ID       string               `json:"id"`
	Location *domain.UserLocation `json:"location,omitempty"`
}

// CreateSessionHandler opens a chat session. The body may carry the
// user's location.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var loc *domain.UserLocation
		if len(c.Body()) > 0 {
			var body locationBody
			if err := c.BodyParser(&body); err != nil {
				return errBadRequest(c, "invalid request body")
			}
			if body.Lat != nil || body.Lon != nil {
				l, ok := body.toDomain()
				if !ok {
					return errBadRequest(c, "lat and lon must both be set and in range")
				}
				loc = &l
			}
		}

		sess := deps.Chat.Open(loc)
		return c.Status(fiber.StatusCreated).JSON(sessionResponse{ID: sess.ID(), Location: sess.Location()})
	}
}

// SetLocationHandler records the user's position for a session.
func SetLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Chat.Get(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		var body locationBody
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		loc, ok := body.toDomain()
		if !ok {
			return errBadRequest(c, "lat and lon must both be set and in range")
		}
		sess.SetLocation(loc)
		return c.JSON(sessionResponse{ID: sess.ID(), Location: sess.Location()})
	}
}

// ClearLocationHandler forgets the user's position.
func ClearLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Chat.Get(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		sess.ClearLocation()
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// AskHandler answers one chat message. Rate-limited or overlapping
// messages still return 200 with route "rejected".
func AskHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Text string `json:"text"`
	}

	return func(c *fiber.Ctx) error {
		sess, err := deps.Chat.Get(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		reply, err := sess.Ask(c.UserContext(), req.Text)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(reply)
	}
}

// HistoryHandler lists persisted turns of a session.
func HistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := deps.Chat.Get(id); err != nil {
			return errFromDomain(c, err)
		}
		turns, err := deps.Chat.History(c.UserContext(), id, c.QueryInt("limit", 50))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(turns)
	}
}

// CloseSessionHandler ends a session.
func CloseSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := deps.Chat.Get(c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		deps.Chat.Close(c.Params("id"))
		return c.SendStatus(fiber.StatusNoContent)
	}
}

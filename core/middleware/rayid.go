package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RayIDHeader carries the request id in both directions.
const RayIDHeader = "X-Ray-ID"

// RayID reuses an incoming X-Ray-ID or generates one, stores it in the
// "ray_id" local and echoes it on the response.
func RayID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(RayIDHeader)
		if rid == "" {
			rid = uuid.New().String()
		}
		c.Locals("ray_id", rid)
		c.Set(RayIDHeader, rid)
		return c.Next()
	}
}

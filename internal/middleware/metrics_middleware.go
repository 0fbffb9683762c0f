package middleware

import (
	"errors"
	"strconv"
	"time"

	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics records request counts and latency per route template.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		route := c.Route().Path
		m.HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperror.KindOf(err).StatusCode()
}

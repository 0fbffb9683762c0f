package middleware

import (
	"strconv"
	"time"

	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/auth"
	"go-inventory-pos/internal/metrics"
	"go-inventory-pos/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRateLimitStatus    = "X-RateLimit-Status"
)

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	Now    func() time.Time
}

// RateLimit admits or rejects each request before any handler runs. It must run after
// Authenticate so authenticated callers are keyed by user. When the limiter backend fails the
// request is admitted and the degradation is logged and counted.
func RateLimit(limiter ratelimit.Limiter, cfg RateLimitConfig, m *metrics.Metrics, log *zap.Logger) fiber.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log = log.Named("ratelimit")

	return func(c *fiber.Ctx) error {
		key := ratelimit.KeyFor(auth.FromContext(c.UserContext()), c.IP())

		res, err := limiter.Admit(c.UserContext(), key)
		if err != nil {
			log.Warn("rate limiter unavailable, admitting request",
				zap.String("outcome", metrics.OutcomeFailOpen),
				zap.String("key", key),
				zap.Error(err),
			)
			m.RateLimitDecisions.WithLabelValues(metrics.OutcomeFailOpen).Inc()
			setRateLimitHeaders(c, ratelimit.FailOpen(cfg.Limit, cfg.Window, cfg.Now()))
			c.Set(HeaderRateLimitStatus, "fail-open")
			return c.Next()
		}

		setRateLimitHeaders(c, res)
		if !res.Allowed {
			m.RateLimitDecisions.WithLabelValues(metrics.OutcomeDenied).Inc()
			return apperror.RateLimited("Too many requests, please try again later", map[string]interface{}{
				"limit":     res.Limit,
				"remaining": res.Remaining,
				"reset_at":  res.ResetAt.UnixMilli(),
			})
		}

		m.RateLimitDecisions.WithLabelValues(metrics.OutcomeAllowed).Inc()
		return c.Next()
	}
}

func setRateLimitHeaders(c *fiber.Ctx, res ratelimit.Result) {
	c.Set(HeaderRateLimitLimit, strconv.Itoa(res.Limit))
	c.Set(HeaderRateLimitRemaining, strconv.Itoa(res.Remaining))
	c.Set(HeaderRateLimitReset, strconv.FormatInt(res.ResetAt.UnixMilli(), 10))
}

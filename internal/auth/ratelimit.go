package auth

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// RateLimit limits requests per client IP, e.g. rate "10-M" for the login route.
func RateLimit(rate string) (fiber.Handler, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("rate limit %q tidak valid: %w", rate, err)
	}
	instance := limiter.New(memory.NewStore(), r)

	return func(c *fiber.Ctx) error {
		lctx, err := instance.Get(c.UserContext(), c.IP())
		if err != nil {
			// limiter rusak tidak boleh mengunci login
			zap.L().Warn("rate limiter", zap.Error(err))
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			return fiber.NewError(fiber.StatusTooManyRequests, "Terlalu banyak percobaan, coba lagi nanti")
		}
		return c.Next()
	}, nil
}

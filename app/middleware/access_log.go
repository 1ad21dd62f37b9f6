package middleware

import (
	"time"

	"github.com/amirphl/dokany-admin/logx"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// AccessLog writes one structured entry per request
func AccessLog() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else if status < fiber.StatusBadRequest {
				status = fiber.StatusInternalServerError
			}
		}

		fields := []any{
			"request_id", requestid.FromContext(c),
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
		}
		if r := c.Route(); r != nil && r.Path != "" {
			fields = append(fields, "route", r.Path)
		}
		if adminID, ok := c.Locals(LocalAdminID).(string); ok && adminID != "" {
			fields = append(fields, "admin_id", adminID)
		}
		if err != nil {
			fields = append(fields, "error", err.Error())
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logx.L().Errorw("request completed", fields...)
		case status >= fiber.StatusBadRequest:
			logx.L().Warnw("request completed", fields...)
		default:
			logx.L().Infow("request completed", fields...)
		}
		return err
	}
}

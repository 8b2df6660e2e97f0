package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	sqlInjectionPattern = regexp.MustCompile(`(?i)(union\s+select|insert\s+into|drop\s+table|exec\s|<script|javascript:)`)
	xssPattern          = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
)

type Config struct {
	MaxFieldLength      int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware guards the suggestion endpoint against oversized or hostile
// free-text input before it reaches the matcher.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxFieldLength == 0 {
		cfg.MaxFieldLength = 2000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		if c.Method() == "POST" && strings.HasSuffix(c.Path(), "/suggestions") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			for _, field := range []string{"task_activity", "hazard_identified", "location_area", "who_at_risk"} {
				value, ok := req[field].(string)
				if !ok {
					continue
				}

				if len(value) > cfg.MaxFieldLength {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Field " + field + " exceeds maximum length",
					})
				}

				if sqlInjectionPattern.MatchString(value) || xssPattern.MatchString(value) {
					cfg.Logger.Warn("Suspicious input rejected",
						zap.String("ip", c.IP()),
						zap.String("field", field),
					)
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Invalid content in field " + field,
					})
				}
			}
		}

		return c.Next()
	}
}

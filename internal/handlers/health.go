package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"mailaudit/internal/models"
)

// RuleCounter reports how many audit rules are active
type RuleCounter interface {
	Count() int
}

// HealthHandler handles basic health check requests
// @Summary Health check
// @Description Service health, version and number of loaded audit rules
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func HealthHandler(version string, rules RuleCounter) echo.HandlerFunc {
	return func(c echo.Context) error {
		response := models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Version:   version,
		}
		if rules != nil {
			response.RulesLoaded = rules.Count()
		}

		return c.JSON(http.StatusOK, response)
	}
}

// RootHandler handles requests to the root endpoint
func RootHandler(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "Mail Audit API",
			"version": version,
			"status":  "running",
		})
	}
}

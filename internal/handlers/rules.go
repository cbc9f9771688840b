package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"mailaudit/internal/models"
	"mailaudit/internal/rules"
)

// ListRulesHandler lists the active audit rules
// @Summary List audit rules
// @Description Active rules in evaluation order
// @Tags rules
// @Produce json
// @Success 200 {object} models.RulesResponse
// @Router /api/rules [get]
func ListRulesHandler(store *rules.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, rulesResponse(store))
	}
}

// ReloadRulesHandler re-reads the rule file. On a configuration error the
// previous rule set stays active.
// @Summary Reload audit rules
// @Description Re-read the rule configuration file
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.RulesResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/admin/rules/reload [post]
func ReloadRulesHandler(store *rules.Store, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := store.Reload()
		switch {
		case err == nil:
		case errors.Is(err, rules.ErrNoSource), errors.Is(err, rules.ErrRulesNotList):
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Rule configuration was not reloaded",
				Details: err.Error(),
			})
		default:
			logger.Error().Err(err).Msg("Failed to reload rules")
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "Failed to reload rules",
				Details: err.Error(),
			})
		}

		logger.Info().Int("rules", store.Count()).Msg("Rules reloaded")
		return c.JSON(http.StatusOK, rulesResponse(store))
	}
}

func rulesResponse(store *rules.Store) models.RulesResponse {
	active := store.Rules()
	response := models.RulesResponse{
		Count: len(active),
		Rules: make([]models.RuleSummary, 0, len(active)),
	}
	for _, rule := range active {
		response.Rules = append(response.Rules, rule.Summary())
	}
	return response
}

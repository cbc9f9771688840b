package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"mailaudit/internal/auth"
	"mailaudit/internal/models"
)

// AdminLoginHandler handles admin authentication
// @Summary Admin login
// @Description Authenticate admin user and receive a bearer token
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/admin/login [post]
func AdminLoginHandler(authManager *auth.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.LoginRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Invalid request body",
				Details: err.Error(),
			})
		}

		token, expiresAt, err := authManager.Authenticate(req.Username, req.Password)
		switch {
		case errors.Is(err, auth.ErrAdminDisabled):
			return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
				Error: "Admin access is not configured",
			})
		case err != nil:
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "Invalid username or password",
			})
		}

		return c.JSON(http.StatusOK, models.LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
		})
	}
}

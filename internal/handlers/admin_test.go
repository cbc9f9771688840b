package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailaudit/internal/auth"
	"mailaudit/internal/config"
	"mailaudit/internal/models"
)

func TestAdminLoginHandler(t *testing.T) {
	configured := &config.Config{AdminUsername: "admin", AdminPassword: "s3cret"}

	tests := []struct {
		name   string
		cfg    *config.Config
		body   string
		status int
	}{
		{name: "valid login", cfg: configured, body: `{"username":"admin","password":"s3cret"}`, status: http.StatusOK},
		{name: "wrong password", cfg: configured, body: `{"username":"admin","password":"nope"}`, status: http.StatusUnauthorized},
		{name: "admin disabled", cfg: &config.Config{}, body: `{"username":"","password":""}`, status: http.StatusServiceUnavailable},
		{name: "malformed body", cfg: configured, body: `{"username":`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := auth.NewManager(tt.cfg)
			rec := postJSON(t, AdminLoginHandler(manager), "/api/admin/login", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			if tt.status == http.StatusOK {
				var resp models.LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
				assert.True(t, manager.ValidateToken(resp.Token))
			}
		})
	}
}

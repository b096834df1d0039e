package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gowra/backend/internal/auth"
	"github.com/gowra/backend/internal/models"
	"github.com/gowra/backend/pkg/response"
)

func gatedRouter(mw gin.HandlerFunc, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/gated", func(c *gin.Context) {
		if role != "" {
			c.Set(auth.ContextUserRole, role)
		}
		c.Next()
	}, mw, func(c *gin.Context) {
		response.OK(c, gin.H{"ok": true})
	})
	return r
}

func get(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gated", nil))
	return w
}

func TestRequireOrganizer(t *testing.T) {
	cases := []struct {
		role         string
		wantStatus   int
		needsUpgrade bool
	}{
		{string(models.RoleOrganizer), http.StatusOK, false},
		{string(models.RoleAdmin), http.StatusOK, false},
		{string(models.RoleRegular), http.StatusForbidden, true},
		{"bogus", http.StatusForbidden, false},
		{"", http.StatusUnauthorized, false},
	}
	for _, tc := range cases {
		w := get(gatedRouter(RequireOrganizer(), tc.role))
		assert.Equal(t, tc.wantStatus, w.Code, "role %q", tc.role)

		var body struct {
			NeedsUpgrade bool `json:"needsUpgrade"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.needsUpgrade, body.NeedsUpgrade, "role %q", tc.role)
	}
}

func TestRequireRole(t *testing.T) {
	adminOnly := RequireRole(models.RoleAdmin)

	assert.Equal(t, http.StatusOK, get(gatedRouter(adminOnly, string(models.RoleAdmin))).Code)
	assert.Equal(t, http.StatusForbidden, get(gatedRouter(adminOnly, string(models.RoleOrganizer))).Code)
	assert.Equal(t, http.StatusForbidden, get(gatedRouter(adminOnly, string(models.RoleRegular))).Code)
	assert.Equal(t, http.StatusUnauthorized, get(gatedRouter(adminOnly, "")).Code)
}

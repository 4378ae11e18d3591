package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAPIKeyMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		configured string
		header     string
		value      string
		wantStatus int
	}{
		{
			name:       "auth disabled when no key configured",
			configured: "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid key via X-API-Key",
			configured: "secret",
			header:     "X-API-Key",
			value:      "secret",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid key via bearer token",
			configured: "secret",
			header:     "Authorization",
			value:      "Bearer secret",
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing key",
			configured: "secret",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong key",
			configured: "secret",
			header:     "X-API-Key",
			value:      "nope",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "bearer with wrong token",
			configured: "secret",
			header:     "Authorization",
			value:      "Bearer nope",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(APIKeyMiddleware(tt.configured))
			r.GET("/ping", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

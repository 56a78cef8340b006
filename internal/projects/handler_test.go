package projects

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
)

func newTestRouter(reg Registry, actor auth.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		auth.WithPrincipal(c, actor)
		c.Next()
	})
	NewHandler(reg, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestHandlerRegister(t *testing.T) {
	reg, _, _ := newTestRegistry()
	router := newTestRouter(reg, wetlands)

	body, _ := json.Marshal(map[string]interface{}{
		"name":          "Mangrove Alpha",
		"location":      "Sundarbans",
		"hectares":      50,
		"rate":          "7",
		"period":        1,
		"evidence_link": "https://drive.google.com/file/d/alpha",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/projects", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, w.Code)
	var got Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Absorbed.Equal(dec("350")))
	assert.Equal(t, StatusAuditing, got.Status)
}

func TestHandlerRegisterReportsInvalidField(t *testing.T) {
	reg, _, _ := newTestRegistry()
	router := newTestRouter(reg, wetlands)

	body := []byte(`{"name":"X","hectares":0,"rate":1,"period":1,"evidence_link":"https://example.org/e"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/projects", bytes.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation", resp["code"])
	assert.Equal(t, "hectares", resp["field"])
}

func TestHandlerPendingForbiddenForIndustry(t *testing.T) {
	reg, _, _ := newTestRegistry()
	router := newTestRouter(reg, industry)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/projects/pending", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlerGetUnknownProject(t *testing.T) {
	reg, _, _ := newTestRegistry()
	router := newTestRouter(reg, admin)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/projects/2f1c1e5e-6d8a-4d5e-9a6b-000000000000", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/projects/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

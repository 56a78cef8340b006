package oversight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/compliance"
	"carbon-connect/portal-backend/internal/notifications"
	"carbon-connect/portal-backend/internal/notifications/websocket"
	"carbon-connect/portal-backend/internal/projects"
	"carbon-connect/portal-backend/pkg/apperrors"
)

var (
	admin    = auth.Principal{UserID: "adm-1", Role: auth.RoleAdmin}
	gov      = auth.Principal{UserID: "gov-1", Role: auth.RoleGov}
	wetlands = auth.Principal{UserID: "wet-1", Role: auth.RoleWetlands}
	industry = auth.Principal{UserID: "ind-1", Role: auth.RoleIndustry}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	service Service
	feed    *notifications.Feed
	bus     *notifications.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	feed := notifications.NewFeed(10)
	bus := notifications.NewBus(zap.NewNop())
	bus.Subscribe("feed", feed)

	registry := projects.NewRegistry(projects.NewMemoryRepository(), bus, zap.NewNop())
	policy := compliance.Policy{WarningThreshold: dec("10"), DailyAverage: dec("2.5"), DefaultQuota: dec("50")}
	ledger := compliance.NewLedger(compliance.NewMemoryStore(), policy, bus, zap.NewNop())

	for _, in := range []projects.RegisterInput{
		{Name: "Mangrove Alpha", Hectares: dec("50"), Rate: dec("7"), Period: dec("1"), EvidenceLink: "https://example.org/a"},
		{Name: "Peatland Beta", Hectares: dec("20"), Rate: dec("2.25"), Period: dec("1"), EvidenceLink: "https://example.org/b"},
	} {
		_, err := registry.Register(ctx, wetlands, in)
		require.NoError(t, err)
	}

	for id, quota := range map[string]string{"ind-1": "50", "ind-2": "8", "ind-3": "1"} {
		q := dec(quota)
		_, err := ledger.OpenAccount(ctx, admin, compliance.OpenAccountInput{AccountID: id, Quota: &q})
		require.NoError(t, err)
	}
	_, err := ledger.LogEmission(ctx, auth.Principal{UserID: "ind-3", Role: auth.RoleIndustry}, "ind-3",
		compliance.LogEmissionInput{Amount: dec("4"), Date: "2023-10-24"})
	require.NoError(t, err)

	return &fixture{service: NewService(registry, ledger, feed), feed: feed, bus: bus}
}

func TestSummaryAggregatesBothSides(t *testing.T) {
	f := newFixture(t)

	s, err := f.service.Summary(context.Background(), gov)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Projects.Projects)
	assert.Equal(t, 2, s.Projects.Pending)
	assert.True(t, s.Projects.TotalAbsorbed.Equal(dec("395")))
	assert.True(t, s.Projects.VerifiedAbsorbed.IsZero())

	assert.Equal(t, 3, s.Accounts)
	assert.Equal(t, 1, s.Compliant)
	assert.Equal(t, 1, s.Warnings)
	assert.Equal(t, 1, s.Deficits)
	assert.True(t, s.CreditsOwned.Equal(dec("59")))
	assert.True(t, s.TotalEmissions.Equal(dec("4")))
}

func TestOversightRequiresRegulator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, actor := range []auth.Principal{wetlands, industry, {}} {
		_, err := f.service.Summary(ctx, actor)
		assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
		_, err = f.service.Recent(ctx, actor, 5)
		assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
	}
}

func TestRecentIsNewestFirst(t *testing.T) {
	f := newFixture(t)

	events, err := f.service.Recent(context.Background(), admin, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, notifications.EventEmissionLogged, events[0].Type)
	assert.Equal(t, notifications.EventAccountOpened, events[1].Type)
}

func newRouter(f *fixture, stream *websocket.Manager, actor auth.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		auth.WithPrincipal(c, actor)
		c.Next()
	})
	NewHandler(f.service, stream, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestHandlerFeed(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f, nil, gov)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/oversight/feed?limit=3", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count  int                   `json:"count"`
		Events []notifications.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/oversight/feed?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerStreamDisabled(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	newRouter(f, nil, gov).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/oversight/stream", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	newRouter(f, nil, industry).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/oversight/stream", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlerStreamDeliversEvents(t *testing.T) {
	f := newFixture(t)
	stream := websocket.NewManager(zap.NewNop(), func(*http.Request) bool { return true })
	f.bus.Subscribe("stream", stream)

	server := httptest.NewServer(newRouter(f, stream, gov))
	t.Cleanup(func() {
		stream.Close()
		server.Close()
	})

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/oversight/stream"
	client, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.Eventually(t, func() bool { return stream.GetConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	event := notifications.NewEvent(notifications.EventProjectVerified, "p-1", admin.UserID, nil)
	require.NoError(t, f.bus.Publish(context.Background(), event))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got notifications.Event
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, event.ID, got.ID)
}

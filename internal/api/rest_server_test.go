package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/voxelforge/internal/auth"
	"github.com/annel0/voxelforge/internal/logging"
	"github.com/annel0/voxelforge/internal/recipe"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/signal"
	"github.com/annel0/voxelforge/internal/world"
	"github.com/annel0/voxelforge/internal/world/block/implementations"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*RestServer
	t     *testing.T
	world *world.World
	auth  *auth.Authenticator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry, err := implementations.NewDefaultRegistry(recipe.Defaults())
	require.NoError(t, err)
	gate := security.NewGate(security.NewMemoryTrust(), security.WithLogger(logging.NewDiscardLogger()))
	w := world.New(registry, implementations.DefaultGrammars(), gate, world.WithLogger(logging.NewDiscardLogger()))

	secret, err := auth.GenerateSecureSecret()
	require.NoError(t, err)
	a, err := auth.NewAuthenticator(secret)
	require.NoError(t, err)

	webhooks := NewOutboundWebhookManager(logging.NewDiscardLogger())
	t.Cleanup(webhooks.Close)

	reg := prometheus.NewRegistry()
	rs := NewRestServer(Config{
		World:      w,
		Auth:       a,
		Webhooks:   webhooks,
		Registerer: reg,
		Gatherer:   reg,
		Logger:     logging.NewDiscardLogger(),
	})
	return &testServer{RestServer: rs, t: t, world: w, auth: a}
}

func (ts *testServer) token(actor uuid.UUID, op bool) string {
	tok, err := ts.auth.Issue(actor, op)
	require.NoError(ts.t, err)
	return tok
}

// do выполняет запрос и разбирает ответ в GenericResponse.
func (ts *testServer) do(method, path, token string, body any) (int, GenericResponse) {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)

	var resp GenericResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec.Code, resp
}

func (ts *testServer) place(token string, pos cube.Pos, tag string) {
	ts.t.Helper()
	code, resp := ts.do(http.MethodPost, "/api/cells", token, PlaceRequest{Pos: pos, Tag: tag})
	require.Equal(ts.t, http.StatusCreated, code, resp.Message)
}

func TestHealthAndAuth(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp := ts.do(http.MethodGet, "/api/structures", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Success)

	code, _ = ts.do(http.MethodGet, "/api/structures", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = ts.do(http.MethodGet, "/api/structures", ts.token(uuid.New(), false), nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestTankOverREST(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(uuid.New(), false)
	ctx := context.Background()

	valve := cube.Pos{1, 0, 1}
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			for z := 0; z < 3; z++ {
				p := cube.Pos{x, y, z}
				switch p {
				case cube.Pos{1, 1, 1}:
				case valve:
					ts.place(tok, p, implementations.TankValveTag)
				default:
					ts.place(tok, p, implementations.TankCasingTag)
				}
			}
		}
	}
	ts.world.Tick(ctx)

	code, resp := ts.do(http.MethodGet, "/api/structures", tok, nil)
	require.Equal(t, http.StatusOK, code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, 1.0, data["total"])

	code, resp = ts.do(http.MethodPost, "/api/ports/insert", tok, PortRequest{
		Pos: valve, Face: "down", Stack: &StackRequest{Kind: "fluid", Type: "water", Amount: 4_000},
	})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = ts.do(http.MethodPost, "/api/ports/extract", tok, PortRequest{
		Pos: valve, Face: "down", Transmission: "fluid", Amount: 10,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code, "грань клапана настроена на вход")

	s, ok := ts.world.StructureAt(valve)
	require.True(t, ok)
	req := httptest.NewRequest(http.MethodGet, "/api/cells/1/0/1/signal", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var sig struct {
		Level int `json:"level"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sig))
	assert.Equal(t, signal.FromFill(4_000, s.Capacity), sig.Level)

	code, _ = ts.do(http.MethodGet, "/api/cells/1/x/1/signal", tok, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestInteractSecurity(t *testing.T) {
	ts := newTestServer(t)
	owner, stranger := uuid.New(), uuid.New()
	ownerTok := ts.token(owner, false)
	pos := cube.Pos{5, 0, 5}

	ts.place(ownerTok, pos, "basic_energy_cube")

	code, resp := ts.do(http.MethodPost, "/api/events/interact", ownerTok, InteractRequest{Pos: pos, Kind: "set_mode", Mode: "private"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.True(t, resp.Success)

	code, resp = ts.do(http.MethodPost, "/api/events/interact", ts.token(stranger, false), InteractRequest{Pos: pos, Kind: "open"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, map[string]any{"denied": true}, resp.Data)

	code, _ = ts.do(http.MethodDelete, "/api/cells/5/0/5", ts.token(stranger, false), nil)
	assert.Equal(t, http.StatusForbidden, code, "чужую ячейку нельзя сломать")

	code, _ = ts.do(http.MethodPost, "/api/events/interact", ts.token(stranger, true), InteractRequest{Pos: pos, Kind: "open"})
	assert.Equal(t, http.StatusOK, code, "оператор проходит проверку")

	code, _ = ts.do(http.MethodPost, "/api/events/interact", ownerTok, InteractRequest{Pos: pos, Kind: "fly"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(http.MethodPost, "/api/events/interact", ownerTok, InteractRequest{Pos: cube.Pos{9, 9, 9}, Kind: "open"})
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = ts.do(http.MethodDelete, "/api/cells/5/0/5", ownerTok, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, resp.Data, "разборка отдаёт данные предмета")
}

func TestNeighborEventAndPlaceErrors(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(uuid.New(), false)

	code, _ := ts.do(http.MethodPost, "/api/events/neighbor", tok, NeighborRequest{Pos: cube.Pos{0, 0, 0}, Face: "up"})
	assert.Equal(t, http.StatusAccepted, code)

	code, _ = ts.do(http.MethodPost, "/api/events/neighbor", tok, NeighborRequest{Face: "sideways"})
	assert.Equal(t, http.StatusBadRequest, code)

	ts.place(tok, cube.Pos{0, 0, 0}, "stone")
	code, _ = ts.do(http.MethodPost, "/api/cells", tok, PlaceRequest{Pos: cube.Pos{0, 0, 0}, Tag: "stone"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.do(http.MethodPost, "/api/cells", tok, PlaceRequest{Pos: cube.Pos{1, 0, 0}, Tag: "unobtainium"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := ts.do(http.MethodGet, "/api/cells/0/0/0", tok, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "stone", resp.Data.(map[string]any)["tag"])

	code, _ = ts.do(http.MethodGet, "/api/stats", tok, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestWebhookAdmin(t *testing.T) {
	ts := newTestServer(t)
	user := ts.token(uuid.New(), false)
	op := ts.token(uuid.New(), true)

	code, _ := ts.do(http.MethodGet, "/api/admin/webhooks", user, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ts.do(http.MethodPost, "/api/admin/webhooks", op, OutboundWebhook{Name: "no-url"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := ts.do(http.MethodPost, "/api/admin/webhooks", op, OutboundWebhook{
		Name: "audit", URL: "http://127.0.0.1:1/hook", Events: []string{"access_denied"},
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 1.0, resp.Data.(map[string]any)["id"])

	code, _ = ts.do(http.MethodPut, "/api/admin/webhooks/1", op, OutboundWebhook{Name: "audit-2", Active: true})
	assert.Equal(t, http.StatusOK, code)
	code, resp = ts.do(http.MethodGet, "/api/admin/webhooks/1", op, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "audit-2", resp.Data.(map[string]any)["name"])

	code, _ = ts.do(http.MethodDelete, "/api/admin/webhooks/1", op, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = ts.do(http.MethodGet, "/api/admin/webhooks/1", op, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = ts.do(http.MethodGet, "/api/admin/webhooks/abc", op, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

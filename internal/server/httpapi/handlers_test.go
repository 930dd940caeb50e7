package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/logging"
	"github.com/dmitrijs2005/placekeeper/internal/server/config"
	"github.com/dmitrijs2005/placekeeper/internal/server/models"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/placekeeper/internal/server/services"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testAPI struct {
	router *gin.Engine
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()

	m := repomanager.NewInMemoryRepositoryManager()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	srv := NewServer(cfg, logger,
		services.NewCuratorService(nil, m, cfg),
		services.NewEntityService(nil, m),
		services.NewCurationService(nil, m),
		services.NewMediaService(cfg),
		nil,
	)

	api := &testAPI{router: srv.Router()}
	resp := api.request(t, http.MethodPost, "/api/auth/register", map[string]string{
		"login": "ada", "name": "Ada Lovelace", "password": "pw",
	}, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &auth))
	api.token = auth.Token
	return api
}

func (a *testAPI) request(t *testing.T, method, path string, body any, version string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set(common.AuthorizationHeader, "Bearer "+a.token)
	}
	if version != "" {
		req.Header.Set(common.ExpectedVersionHeader, version)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func entityBody(entityID, name string) map[string]any {
	return map[string]any{
		"entity_id": entityID,
		"type":      "restaurant",
		"name":      name,
		"status":    "active",
		"data":      map[string]any{"city": "Napoli"},
		"metadata":  []map[string]string{{"category": "cuisine", "value": "neapolitan"}},
	}
}

func TestPing(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodGet, "/api/ping", nil, "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"OK"}`, resp.Body.String())
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	api := newTestAPI(t)
	api.token = ""

	resp := api.request(t, http.MethodGet, "/api/entities", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	api.token = "garbage"
	resp = api.request(t, http.MethodGet, "/api/entities", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestEntityLifecycle(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/entities", entityBody("e1", "Trattoria Uno"), "")
	require.Equal(t, http.StatusCreated, resp.Code)

	var created models.Entity
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, int64(1), created.Version)
	assert.NotEmpty(t, created.CreatedBy)

	resp = api.request(t, http.MethodGet, "/api/entities/e1", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.request(t, http.MethodPut, "/api/entities/e1", entityBody("e1", "Trattoria Due"), "1")
	require.Equal(t, http.StatusOK, resp.Code)
	var updated models.Entity
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, int64(2), updated.Version)

	resp = api.request(t, http.MethodDelete, "/api/entities/e1", nil, "2")
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = api.request(t, http.MethodGet, "/api/entities/e1", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestEntityUpdate_StaleVersionAnswersWithServerState(t *testing.T) {
	api := newTestAPI(t)

	api.request(t, http.MethodPost, "/api/entities", entityBody("e1", "Trattoria Uno"), "")
	resp := api.request(t, http.MethodPut, "/api/entities/e1", entityBody("e1", "First Writer"), "1")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = api.request(t, http.MethodPut, "/api/entities/e1", entityBody("e1", "Second Writer"), "1")
	require.Equal(t, http.StatusConflict, resp.Code)

	var body struct {
		Code          string        `json:"code"`
		ServerVersion int64         `json:"server_version"`
		Document      models.Entity `json:"document"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "version_conflict", body.Code)
	assert.Equal(t, int64(2), body.ServerVersion)
	assert.Equal(t, "First Writer", body.Document.Name)
}

func TestEntityUpdate_MissingVersionHeader(t *testing.T) {
	api := newTestAPI(t)

	api.request(t, http.MethodPost, "/api/entities", entityBody("e1", "Trattoria Uno"), "")
	resp := api.request(t, http.MethodPut, "/api/entities/e1", entityBody("e1", "No Header"), "")
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "missing_version", body.Code)
}

func TestEntityCreate_Duplicate(t *testing.T) {
	api := newTestAPI(t)

	api.request(t, http.MethodPost, "/api/entities", entityBody("e1", "Trattoria Uno"), "")
	resp := api.request(t, http.MethodPost, "/api/entities", entityBody("e1", "Impostor"), "")
	require.Equal(t, http.StatusConflict, resp.Code)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "already_exists", body.Code)
}

func TestCurationCreate_UnknownEntity(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/curations", map[string]any{
		"curation_id": "c1",
		"entity_id":   "ghost",
		"notes":       map[string]string{"public": "great pizza"},
	}, "")
	require.Equal(t, http.StatusNotFound, resp.Code)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Code)
}

func TestCurationLifecycle(t *testing.T) {
	api := newTestAPI(t)

	api.request(t, http.MethodPost, "/api/entities", entityBody("e1", "Trattoria Uno"), "")
	resp := api.request(t, http.MethodPost, "/api/curations", map[string]any{
		"curation_id": "c1",
		"entity_id":   "e1",
		"concepts":    []map[string]string{{"category": "vibe", "value": "quiet"}},
		"notes":       map[string]string{"public": "great pizza"},
	}, "")
	require.Equal(t, http.StatusCreated, resp.Code)

	var created models.Curation
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, "Ada Lovelace", created.Curator.Name)

	resp = api.request(t, http.MethodGet, "/api/curations?entity=e1", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var page struct {
		Items []models.Curation `json:"items"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "great pizza", page.Items[0].Notes.Public)
}

func TestEntityList_FilterAndPaging(t *testing.T) {
	api := newTestAPI(t)

	for _, id := range []string{"e1", "e2", "e3"} {
		resp := api.request(t, http.MethodPost, "/api/entities", entityBody(id, "Venue "+id), "")
		require.Equal(t, http.StatusCreated, resp.Code)
	}

	resp := api.request(t, http.MethodGet, "/api/entities?type=restaurant&limit=2", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)

	var page struct {
		Items []models.Entity `json:"items"`
		Total int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)

	resp = api.request(t, http.MethodGet, "/api/entities?from=not-a-time", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRegister_TakenLogin(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/auth/register", map[string]string{
		"login": "ada", "password": "pw2",
	}, "")
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"login": "ada", "password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestDownloadURL_RequiresKey(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodGet, "/api/media/download-url", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

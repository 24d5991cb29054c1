package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/modules/allocation/infrastructure/feed"
	allocpersistence "github.com/planora/planora/modules/allocation/infrastructure/persistence"
	"github.com/planora/planora/modules/allocation/services"
	portfoliopersistence "github.com/planora/planora/modules/portfolio/infrastructure/persistence"
	portfolioservices "github.com/planora/planora/modules/portfolio/services"
	"github.com/planora/planora/pkg/application"
	"github.com/planora/planora/pkg/eventbus"
)

func newRouter(t *testing.T) (*mux.Router, string) {
	t.Helper()
	root := t.TempDir()
	store, err := portfoliopersistence.NewDirStore(root)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(log),
		Logger:   log,
	})
	portfolios := portfolioservices.NewPortfolioService(store, app.EventPublisher())
	app.RegisterServices(
		portfolios,
		services.NewMatrixService(
			feed.NewCapacityFeed(),
			allocpersistence.NewCapacityFileGateway(),
			nil,
			portfolios,
			app.EventPublisher(),
			log,
		),
	)

	router := mux.NewRouter()
	NewAllocationAPIController(app).Register(router)
	return router, root
}

func seedFeed(t *testing.T, root, name string) string {
	t.Helper()
	outputDir := filepath.Join(root, name, "output")
	require.NoError(t, os.MkdirAll(outputDir, 0o755))
	path := filepath.Join(outputDir, "resource_capacity.csv")
	content := "person,role,month,project_name,project_id,project_alloc_pct,total_pct\n" +
		"Alice,Dev,2025-01,Apollo,P-1,0.3000,0.5000\n" +
		"Alice,Dev,2025-01,KTLO,,0.2000,0.5000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func doRequest(t *testing.T, router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestMatrix(t *testing.T) {
	router, root := newRouter(t)
	seedFeed(t, root, "acme")

	resp := doRequest(t, router, http.MethodGet, "/api/portfolios/acme/allocation", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var snapshot struct {
		Months []string `json:"months"`
		Roles  []struct {
			Name string `json:"name"`
		} `json:"roles"`
		Dirty bool `json:"dirty"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snapshot))
	require.Equal(t, []string{"2025-01"}, snapshot.Months)
	require.Len(t, snapshot.Roles, 1)
	require.Equal(t, "Dev", snapshot.Roles[0].Name)
	require.False(t, snapshot.Dirty)
}

func TestMatrix_UnknownPortfolio(t *testing.T) {
	router, _ := newRouter(t)
	resp := doRequest(t, router, http.MethodGet, "/api/portfolios/ghost/allocation", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestEdit(t *testing.T) {
	router, root := newRouter(t)
	seedFeed(t, root, "acme")

	resp := doRequest(t, router, http.MethodPost, "/api/portfolios/acme/allocation/edits",
		`{"person":"Alice","project":"Apollo","month":"2025-01","value":"75"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		EffectiveValue float64            `json:"effectiveValue"`
		CellDirty      bool               `json:"cellDirty"`
		PersonTotal    float64            `json:"personTotal"`
		RoleAverages   map[string]float64 `json:"roleAverages"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.InDelta(t, 0.75, payload.EffectiveValue, 1e-9)
	require.True(t, payload.CellDirty)
	require.InDelta(t, 0.95, payload.PersonTotal, 1e-9)
	require.InDelta(t, 0.95, payload.RoleAverages["Dev"], 1e-9)
}

func TestEdit_UnknownCell(t *testing.T) {
	router, root := newRouter(t)
	seedFeed(t, root, "acme")

	resp := doRequest(t, router, http.MethodPost, "/api/portfolios/acme/allocation/edits",
		`{"person":"Alice","project":"Nope","month":"2025-01","value":"0.5"}`)
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Contains(t, resp.Body.String(), "ALLOCATION_UNKNOWN_CELL")
}

func TestEdit_MissingFields(t *testing.T) {
	router, root := newRouter(t)
	seedFeed(t, root, "acme")

	resp := doRequest(t, router, http.MethodPost, "/api/portfolios/acme/allocation/edits",
		`{"person":"Alice"}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestChangesDiscardFlow(t *testing.T) {
	router, root := newRouter(t)
	seedFeed(t, root, "acme")

	doRequest(t, router, http.MethodPost, "/api/portfolios/acme/allocation/edits",
		`{"person":"Alice","project":"Apollo","month":"2025-01","value":"0.9"}`)

	resp := doRequest(t, router, http.MethodGet, "/api/portfolios/acme/allocation/changes", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var changesPayload struct {
		Changes []struct {
			Person   string  `json:"person"`
			NewValue float64 `json:"newValue"`
		} `json:"changes"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &changesPayload))
	require.Len(t, changesPayload.Changes, 1)
	require.InDelta(t, 0.9, changesPayload.Changes[0].NewValue, 1e-9)

	resp = doRequest(t, router, http.MethodPost, "/api/portfolios/acme/allocation/discard", "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doRequest(t, router, http.MethodGet, "/api/portfolios/acme/allocation/changes", "")
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &changesPayload))
	require.Empty(t, changesPayload.Changes)
}

func TestCommit_WritesFeed(t *testing.T) {
	router, root := newRouter(t)
	path := seedFeed(t, root, "acme")

	doRequest(t, router, http.MethodPost, "/api/portfolios/acme/allocation/edits",
		`{"person":"Alice","project":"Apollo","month":"2025-01","value":"0.9"}`)

	resp := doRequest(t, router, http.MethodPost, "/api/portfolios/acme/allocation/commit", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Success        bool `json:"success"`
		ChangesApplied int  `json:"changesApplied"`
		Snapshot       struct {
			Dirty bool `json:"dirty"`
		} `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.True(t, payload.Success)
	require.Equal(t, 1, payload.ChangesApplied)
	require.False(t, payload.Snapshot.Dirty)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "0.9000")
	require.Contains(t, string(data), "1.1000")
}

func TestCommit_MissingFeed(t *testing.T) {
	router, root := newRouter(t)
	seedFeed(t, root, "acme")

	// Edit first, then remove the feed so the gateway fails.
	doRequest(t, router, http.MethodPost, "/api/portfolios/acme/allocation/edits",
		`{"person":"Alice","project":"Apollo","month":"2025-01","value":"0.9"}`)
	require.NoError(t, os.Remove(filepath.Join(root, "acme", "output", "resource_capacity.csv")))

	resp := doRequest(t, router, http.MethodPost, "/api/portfolios/acme/allocation/commit", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Contains(t, resp.Body.String(), "ALLOCATION_FEED_NOT_FOUND")

	// The pending edit is still there.
	resp = doRequest(t, router, http.MethodGet, "/api/portfolios/acme/allocation/changes", "")
	var changesPayload struct {
		Changes []any `json:"changes"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &changesPayload))
	require.Len(t, changesPayload.Changes, 1)
}

func TestAudit_DisabledIsEmpty(t *testing.T) {
	router, root := newRouter(t)
	seedFeed(t, root, "acme")

	resp := doRequest(t, router, http.MethodGet, "/api/portfolios/acme/allocation/audit", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"entries":[]}`, resp.Body.String())
}

func TestAudit_BadLimit(t *testing.T) {
	router, root := newRouter(t)
	seedFeed(t, root, "acme")

	resp := doRequest(t, router, http.MethodGet, "/api/portfolios/acme/allocation/audit?limit=zero", "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "ALLOCATION_BAD_REQUEST")
}

func TestAudit_UnknownPortfolio(t *testing.T) {
	router, _ := newRouter(t)

	resp := doRequest(t, router, http.MethodGet, "/api/portfolios/ghost/allocation/audit", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
}

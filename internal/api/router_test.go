package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/crime-lisa-go/internal/app"
	"github.com/jengzang/crime-lisa-go/internal/config"
	"github.com/jengzang/crime-lisa-go/internal/database"
	"github.com/jengzang/crime-lisa-go/internal/handler"
	"github.com/jengzang/crime-lisa-go/internal/middleware"
	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app    *app.App
	router *gin.Engine
}

// writeGrid writes a 3x3 grid of half-degree provinces ITA{x}{y}
func writeGrid(t *testing.T) string {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			x0, y0 := 10+float64(x)*0.5, 40+float64(y)*0.5
			f := geojson.NewFeature(orb.Polygon{{
				{x0, y0}, {x0 + 0.5, y0}, {x0 + 0.5, y0 + 0.5}, {x0, y0 + 0.5}, {x0, y0},
			}})
			f.Properties["NUTS_ID"] = fmt.Sprintf("ITA%d%d", x, y)
			f.Properties["CNTR_CODE"] = "IT"
			f.Properties["NAME_LATN"] = fmt.Sprintf("Province %d-%d", x, y)
			fc.Append(f)
		}
	}
	data, err := fc.MarshalJSON()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nuts3.geojson")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Defaults()
	cfg.Environment = "test"
	cfg.JWTSecret = testSecret
	cfg.RateLimit = 0
	cfg.TaxonomyFile = filepath.Join("..", "..", "configs", "crime_types.yaml")
	cfg.Geometry.Provinces = writeGrid(t)
	cfg.Geometry.Macro = filepath.Join(t.TempDir(), "missing.geojson")
	cfg.Analysis.Permutations = 99
	cfg.Analysis.Seed = 7

	db, err := database.Open(filepath.Join(t.TempDir(), "crime.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db).RunMigrations())

	a, err := app.New(cfg, db)
	require.NoError(t, err)
	require.NoError(t, a.SeedCatalog(context.Background()))

	// pre-covid: gradient across the grid; during-covid: one column only;
	// post-covid: every value doubled
	var obs []models.Observation
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			id := fmt.Sprintf("ITA%d%d", x, y)
			base := float64(x*10 + y + 1)
			obs = append(obs,
				models.Observation{RefArea: id, CrimeType: "THEFT", Year: 2018, Value: base},
				models.Observation{RefArea: id, CrimeType: "THEFT", Year: 2019, Value: base},
				models.Observation{RefArea: id, CrimeType: "THEFT", Year: 2022, Value: 2 * base},
			)
			if x == 0 {
				obs = append(obs, models.Observation{RefArea: id, CrimeType: "THEFT", Year: 2020, Value: base})
			}
		}
	}
	_, err = a.Observations.Upsert(context.Background(), models.MeasureCount, obs)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := SetupRouter(cfg, logger, Handlers{
		Lisa:      handler.NewLisaHandler(a.Lisa),
		Variation: handler.NewVariationHandler(a.Variation),
		Catalog:   handler.NewCatalogHandler(a.CatalogSvc),
		Tasks:     handler.NewAnalysisTaskHandler(a.TaskService),
	})
	return &testServer{app: a, router: router}
}

func (s *testServer) do(t *testing.T, method, target string, body []byte, token string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, code)

	// one computation so the counter has a series
	code, _ = s.do(t, http.MethodGet, "/api/v1/lisa?crime=THEFT", nil, "")
	require.Equal(t, http.StatusOK, code)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lisa_period_computations_total")
}

func TestPeriodsAndCrimeTypes(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/periods", nil, "")
	require.Equal(t, http.StatusOK, code)
	var periods []models.Period
	require.NoError(t, json.Unmarshal(env.Data, &periods))
	assert.Len(t, periods, 3)

	code, env = s.do(t, http.MethodGet, "/api/v1/crime-types?measure=count", nil, "")
	require.Equal(t, http.StatusOK, code)
	var catalog struct {
		CrimeTypes []models.CrimeType `json:"crime_types"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &catalog))
	require.Len(t, catalog.CrimeTypes, 1)
	assert.Equal(t, "THEFT", catalog.CrimeTypes[0].Code)

	code, env = s.do(t, http.MethodGet, "/api/v1/crime-types?measure=weekly", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", env.Error)
}

func TestGetLisa(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/lisa?crime=THEFT&period=pre-covid", nil, "")
	require.Equal(t, http.StatusOK, code)

	var result struct {
		Global struct {
			I            float64 `json:"i"`
			Permutations int     `json:"permutations"`
		} `json:"global"`
		Units []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Label string `json:"label"`
		} `json:"units"`
		Seed uint64 `json:"seed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Units, 9)
	assert.Equal(t, "ITA00", result.Units[0].ID)
	assert.Equal(t, "Province 0-0", result.Units[0].Name)
	assert.Positive(t, result.Global.I, "the gradient is positively autocorrelated")
	assert.Equal(t, 99, result.Global.Permutations)
	assert.Equal(t, uint64(7), result.Seed)

	// same seed, same answer
	_, again := s.do(t, http.MethodGet, "/api/v1/lisa?crime=THEFT&period=pre-covid", nil, "")
	assert.JSONEq(t, string(env.Data), string(again.Data))
}

func TestGetLisa_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"missing crime", "/api/v1/lisa", http.StatusBadRequest, ""},
		{"unknown level", "/api/v1/lisa?crime=THEFT&level=nuts9", http.StatusBadRequest, "invalid_input"},
		{"unknown period", "/api/v1/lisa?crime=THEFT&period=someday", http.StatusBadRequest, "invalid_input"},
		{"too few units", "/api/v1/lisa?crime=THEFT&period=during-covid", http.StatusUnprocessableEntity, "insufficient_data"},
		{"no data", "/api/v1/lisa?crime=FRAUD", http.StatusUnprocessableEntity, "insufficient_data"},
		{"no geometry", "/api/v1/lisa?crime=THEFT&level=macro", http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, http.MethodGet, tt.target, nil, "")
			assert.Equal(t, tt.status, code)
			assert.Equal(t, tt.code, env.Error)
		})
	}
}

func TestGetMoranAndTransitions(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/moran?crime=THEFT", nil, "")
	require.Equal(t, http.StatusOK, code)
	var overview struct {
		Periods []struct {
			Error string `json:"error_code"`
		} `json:"periods"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &overview))
	require.Len(t, overview.Periods, 3)
	assert.Empty(t, overview.Periods[0].Error)
	assert.Equal(t, "insufficient_data", overview.Periods[1].Error)
	assert.Empty(t, overview.Periods[2].Error)

	code, env = s.do(t, http.MethodGet, "/api/v1/transitions?crime=THEFT&from=pre-covid&to=post-covid", nil, "")
	require.Equal(t, http.StatusOK, code)
	var report struct {
		Records []struct {
			ID       string `json:"id"`
			Category string `json:"category"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	require.Len(t, report.Records, 9)
	for _, r := range report.Records {
		assert.NotEmpty(t, r.Category, r.ID)
	}

	code, env = s.do(t, http.MethodGet, "/api/v1/transitions?crime=THEFT&from=pre-covid&to=during-covid", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "insufficient_data", env.Error)

	code, _ = s.do(t, http.MethodGet, "/api/v1/transitions?crime=THEFT&from=pre-covid&to=pre-covid", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetVariation(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/variation?crime=THEFT&period=post-covid", nil, "")
	require.Equal(t, http.StatusOK, code)

	var report struct {
		Records []models.VariationRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	require.Len(t, report.Records, 9)
	for _, r := range report.Records {
		require.NotNil(t, r.Variation, r.ID)
		assert.InDelta(t, 100.0, *r.Variation, 1e-9, r.ID)
		assert.NotEmpty(t, r.Name)
	}

	code, _ = s.do(t, http.MethodGet, "/api/v1/variation?crime=THEFT", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTasks(t *testing.T) {
	s := newTestServer(t)
	token, err := middleware.IssueToken([]byte(testSecret), "analyst", time.Hour)
	require.NoError(t, err)

	code, _ := s.do(t, http.MethodGet, "/api/v1/tasks", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/tasks", []byte(`{"level":"provinces"}`), token)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := s.do(t, http.MethodPost, "/api/v1/tasks", []byte(`{"crime":"THEFT"}`), token)
	require.Equal(t, http.StatusCreated, code)
	var created models.AnalysisTask
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.TaskStatusPending, created.Status)
	assert.Equal(t, "analyst", created.CreatedBy)

	s.app.TaskService.Wait()

	code, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%d", created.ID), nil, token)
	require.Equal(t, http.StatusOK, code)
	var task models.AnalysisTask
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.Equal(t, 3, task.TotalPeriods)
	assert.Equal(t, 1, task.SkippedPeriods)
	assert.Contains(t, task.ResultSummary, `"skipped":"insufficient_data"`)

	code, env = s.do(t, http.MethodGet, "/api/v1/tasks?limit=500", nil, token)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Tasks []models.AnalysisTask `json:"tasks"`
		Limit int                   `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Tasks, 1)
	assert.Equal(t, 20, list.Limit)

	code, _ = s.do(t, http.MethodGet, "/api/v1/tasks/999", nil, token)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/tasks/abc", nil, token)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(cors([]string{"http://maps.example"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://maps.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://maps.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

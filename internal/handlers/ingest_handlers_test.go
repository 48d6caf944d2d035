package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/epeers/fundsync/internal/middleware"
	"github.com/epeers/fundsync/internal/models"
	"github.com/epeers/fundsync/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	report *services.RunReport
	err    error
	last   *services.RunReport
}

func (f *fakeIngester) Run(ctx context.Context) (*services.RunReport, error) {
	return f.report, f.err
}

func (f *fakeIngester) LastReport() *services.RunReport {
	return f.last
}

func setupRouter(ing Ingester) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewIngestHandler(ing)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET("/health", Health)
	router.POST("/admin/ingest", h.Run)
	router.GET("/admin/ingest/last", h.LastRun)
	return router
}

func TestHealth(t *testing.T) {
	router := setupRouter(&fakeIngester{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRequestID_Propagated(t *testing.T) {
	router := setupRouter(&fakeIngester{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestRunIngest_Success(t *testing.T) {
	report := &services.RunReport{RunID: "run-1", Succeeded: true}
	router := setupRouter(&fakeIngester{report: report})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/ingest", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got services.RunReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, got.Succeeded)
}

func TestRunIngest_InProgress(t *testing.T) {
	router := setupRouter(&fakeIngester{err: services.ErrRunInProgress})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/ingest", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	var got models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run_in_progress", got.Error)
}

func TestRunIngest_StageFailure(t *testing.T) {
	report := &services.RunReport{RunID: "run-2", FailedStage: services.StageAccounts}
	err := &services.StageError{Stage: services.StageAccounts, Err: errors.New("grant failed")}
	router := setupRouter(&fakeIngester{report: report, err: err})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/admin/ingest", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var got IngestFailureResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "ingest_failed", got.Error)
	assert.Contains(t, got.Message, "accounts")
	require.NotNil(t, got.Report)
	assert.Equal(t, services.StageAccounts, got.Report.FailedStage)
}

func TestLastRun(t *testing.T) {
	router := setupRouter(&fakeIngester{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin/ingest/last", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	router = setupRouter(&fakeIngester{last: &services.RunReport{RunID: "run-3"}})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got services.RunReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run-3", got.RunID)
}

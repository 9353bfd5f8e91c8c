package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestHealthzInstalled(t *testing.T) {
	cfg := NewConfig()
	cfg.Mode = gin.TestMode
	cfg.EnableProfiling = true

	s, err := cfg.Complete().New()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCloseBeforeRunIsNoop(t *testing.T) {
	cfg := NewConfig()
	cfg.Mode = gin.TestMode
	s, err := cfg.Complete().New()
	require.NoError(t, err)
	s.Close()
}

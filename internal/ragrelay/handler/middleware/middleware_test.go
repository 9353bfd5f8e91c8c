package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newEngine(cfg *AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.Use(CORS(), BearerAuth(cfg))
	g.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	g.GET("/v1/tools", func(c *gin.Context) { c.Status(http.StatusOK) })
	return g
}

func do(g *gin.Engine, method, path, remote, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remote
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestBearerAuth(t *testing.T) {
	g := newEngine(&AuthConfig{Enabled: true, Token: "s3cret", AllowLoopback: true})
	remote := "10.0.0.8:5555"

	require.Equal(t, http.StatusUnauthorized, do(g, http.MethodGet, "/v1/tools", remote, "").Code)
	require.Equal(t, http.StatusUnauthorized, do(g, http.MethodGet, "/v1/tools", remote, "Basic s3cret").Code)
	require.Equal(t, http.StatusUnauthorized, do(g, http.MethodGet, "/v1/tools", remote, "Bearer nope").Code)
	require.Equal(t, http.StatusOK, do(g, http.MethodGet, "/v1/tools", remote, "Bearer s3cret").Code)
	require.Equal(t, http.StatusOK, do(g, http.MethodGet, "/healthz", remote, "").Code)
	require.Equal(t, http.StatusOK, do(g, http.MethodGet, "/v1/tools", "127.0.0.1:4000", "").Code)
	require.Equal(t, http.StatusOK, do(g, http.MethodGet, "/v1/tools", "[::1]:4000", "").Code)
}

func TestBearerAuthWithoutLoopbackBypass(t *testing.T) {
	g := newEngine(&AuthConfig{Enabled: true, Token: "s3cret"})
	require.Equal(t, http.StatusUnauthorized, do(g, http.MethodGet, "/v1/tools", "127.0.0.1:4000", "").Code)
}

func TestBearerAuthDisabled(t *testing.T) {
	g := newEngine(&AuthConfig{Enabled: false, Token: "s3cret"})
	require.Equal(t, http.StatusOK, do(g, http.MethodGet, "/v1/tools", "10.0.0.8:5555", "").Code)

	t.Setenv(TokenEnv, "")
	g = newEngine(&AuthConfig{Enabled: true})
	require.Equal(t, http.StatusOK, do(g, http.MethodGet, "/v1/tools", "10.0.0.8:5555", "").Code)
}

func TestTokenFromEnvironment(t *testing.T) {
	t.Setenv(TokenEnv, "from-env")
	g := newEngine(&AuthConfig{Enabled: true})
	require.Equal(t, http.StatusUnauthorized, do(g, http.MethodGet, "/v1/tools", "10.0.0.8:5555", "").Code)
	require.Equal(t, http.StatusOK, do(g, http.MethodGet, "/v1/tools", "10.0.0.8:5555", "Bearer from-env").Code)
}

func TestCORSPreflight(t *testing.T) {
	g := newEngine(&AuthConfig{})
	w := do(g, http.MethodOptions, "/v1/tools", "10.0.0.8:5555", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Chat-Id")
}

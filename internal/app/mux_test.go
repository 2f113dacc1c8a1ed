package app

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/sockbridge/sockbridge/internal/build"
	"github.com/sockbridge/sockbridge/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Port:     8080,
		LogLevel: "info",
		HTTP: config.HTTPConfig{
			HealthEnabled:     true,
			PrometheusEnabled: true,
		},
		SockJS: config.SockJSConfig{
			Prefix:           "/echo",
			Websocket:        true,
			HeartbeatDelay:   25 * time.Second,
			DisconnectDelay:  5 * time.Second,
			ResponseLimit:    128 * 1024,
			MessageCacheSize: 100,
		},
	}
}

func getBody(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestMuxEndpoints(t *testing.T) {
	mux, err := Mux(testConfig())
	require.NoError(t, err)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	for _, prefix := range []string{"/echo", "/close", "/disabled_websocket_echo", "/cookie_needed_echo"} {
		status, body := getBody(t, srv, prefix)
		require.Equal(t, http.StatusOK, status, prefix)
		require.Equal(t, "Welcome to SockJS!\n", body, prefix)
	}

	status, body := getBody(t, srv, "/health")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, build.Version, gjson.Get(body, "version").String())

	status, body = getBody(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "sockbridge_")
}

func TestMuxEndpointInfoVariants(t *testing.T) {
	mux, err := Mux(testConfig())
	require.NoError(t, err)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, body := getBody(t, srv, "/echo/info")
	require.True(t, gjson.Get(body, "websocket").Bool())
	require.False(t, gjson.Get(body, "cookie_needed").Bool())

	_, body = getBody(t, srv, "/disabled_websocket_echo/info")
	require.False(t, gjson.Get(body, "websocket").Bool())

	_, body = getBody(t, srv, "/cookie_needed_echo/info")
	require.True(t, gjson.Get(body, "cookie_needed").Bool())
}

func TestMuxCloseEndpoint(t *testing.T) {
	mux, err := Mux(testConfig())
	require.NoError(t, err)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/close/000/closing/xhr", "text/plain", strings.NewReader(""))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, "o\n", string(body))

	resp, err = http.Post(srv.URL+"/close/000/closing/xhr", "text/plain", strings.NewReader(""))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, "c[3000,\"Go away!\"]\n", string(body))
}

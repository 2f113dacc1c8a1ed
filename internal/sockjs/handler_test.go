package sockjs

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newEchoHandler(t *testing.T, opts Options) *Handler {
	t.Helper()
	echo := HandlerFuncs{
		OnMessageFunc: func(s Session, msg string) {
			_ = s.Send(msg)
		},
	}
	h, err := NewHandler("/echo", opts, echo)
	require.NoError(t, err)
	return h
}

func doRequest(h *Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerGreeting(t *testing.T) {
	h := newEchoHandler(t, testSessionOptions())

	rec := doRequest(h, "GET", "/echo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Welcome to SockJS!\n", rec.Body.String())
	require.Equal(t, "text/plain; charset=UTF-8", rec.Header().Get("Content-Type"))

	rec = doRequest(h, "GET", "/echo/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h, "POST", "/echo", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET", rec.Header().Get("Allow"))

	rec = doRequest(h, "GET", "/other", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerInfo(t *testing.T) {
	opts := testSessionOptions()
	opts.Websocket = true
	opts.JSessionID = true
	h := newEchoHandler(t, opts)

	rec := doRequest(h, "GET", "/echo/info", map[string]string{"Origin": "https://example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json; charset=UTF-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

	body := rec.Body.String()
	require.True(t, gjson.Get(body, "websocket").Bool())
	require.True(t, gjson.Get(body, "cookie_needed").Bool())
	require.Equal(t, "*:*", gjson.Get(body, "origins.0").String())
	require.True(t, gjson.Get(body, "entropy").Exists())

	// Entropy must differ between calls.
	other := doRequest(h, "GET", "/echo/info", nil).Body.String()
	require.NotEqual(t, gjson.Get(body, "entropy").Uint(), gjson.Get(other, "entropy").Uint())
}

func TestHandlerInfoOptions(t *testing.T) {
	h := newEchoHandler(t, testSessionOptions())

	rec := doRequest(h, "OPTIONS", "/echo/info", map[string]string{"Origin": "https://example.com"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "OPTIONS, GET", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "31536000", rec.Header().Get("Access-Control-Max-Age"))
	require.Contains(t, rec.Header().Get("Cache-Control"), "public")

	rec = doRequest(h, "PUT", "/echo/info", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET, OPTIONS", rec.Header().Get("Allow"))
}

func TestHandlerInfoRejectsOrigin(t *testing.T) {
	opts := testSessionOptions()
	opts.AllowedOrigins = []string{"https://trusted.example.com"}
	h := newEchoHandler(t, opts)

	rec := doRequest(h, "GET", "/echo/info", map[string]string{"Origin": "https://evil.example.com"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(h, "GET", "/echo/info", map[string]string{"Origin": "https://trusted.example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h, "GET", "/echo/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandlerIframe(t *testing.T) {
	h := newEchoHandler(t, testSessionOptions())

	rec := doRequest(h, "GET", "/echo/iframe.html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "SockJS.bootstrap_iframe()")
	require.Contains(t, rec.Body.String(), DefaultOptions.SockJSURL)
	require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	// Versioned iframe paths serve the same document.
	rec = doRequest(h, "GET", "/echo/iframe-1.5.2.min.html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, etag, rec.Header().Get("ETag"))

	rec = doRequest(h, "GET", "/echo/iframe.html", map[string]string{"If-None-Match": etag})
	require.Equal(t, http.StatusNotModified, rec.Code)
}

func TestHandlerIframeDisabledByOriginList(t *testing.T) {
	opts := testSessionOptions()
	opts.AllowedOrigins = []string{"https://trusted.example.com"}
	h := newEchoHandler(t, opts)

	rec := doRequest(h, "GET", "/echo/iframe.html", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// A wildcard keeps iframe enabled but drops the frame options header.
	opts.AllowedOrigins = []string{"*"}
	h = newEchoHandler(t, opts)
	rec = doRequest(h, "GET", "/echo/iframe.html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("X-Frame-Options"))
}

func TestHandlerSessionPathValidation(t *testing.T) {
	h := newEchoHandler(t, testSessionOptions())

	tests := []struct {
		name string
		path string
	}{
		{"too few segments", "/echo/server/xhr"},
		{"too many segments", "/echo/a/b/c/xhr"},
		{"empty server id", "/echo//session/xhr"},
		{"empty session id", "/echo/server//xhr"},
		{"dot in server id", "/echo/ser.ver/session/xhr"},
		{"dot in session id", "/echo/server/ses.sion/xhr"},
		{"path parameter in transport", "/echo/server/session/xhr;jsessionid=x"},
		{"unknown transport", "/echo/server/session/teleport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, "POST", tt.path, nil)
			require.Equal(t, http.StatusNotFound, rec.Code, tt.path)
		})
	}
}

func TestHandlerTransportMethodRules(t *testing.T) {
	h := newEchoHandler(t, testSessionOptions())

	rec := doRequest(h, "GET", "/echo/server/session/xhr", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "POST, OPTIONS", rec.Header().Get("Allow"))

	rec = doRequest(h, "OPTIONS", "/echo/server/session/xhr", map[string]string{"Origin": "https://example.com"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "OPTIONS, POST", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = doRequest(h, "POST", "/echo/server/session/eventsource", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET, OPTIONS", rec.Header().Get("Allow"))
}

func TestHandlerWebsocketDisabled(t *testing.T) {
	opts := testSessionOptions()
	opts.Websocket = false
	h := newEchoHandler(t, opts)

	rec := doRequest(h, "GET", "/echo/server/session/websocket", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerJSessionID(t *testing.T) {
	opts := testSessionOptions()
	opts.JSessionID = true
	h := newEchoHandler(t, opts)

	rec := doRequest(h, "POST", "/echo/server/cookiesess/xhr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Set-Cookie"), "JSESSIONID=dummy")

	rec = doRequest(h, "POST", "/echo/server/cookiesess2/xhr", map[string]string{"Cookie": "JSESSIONID=abc"})
	require.Contains(t, rec.Header().Get("Set-Cookie"), "JSESSIONID=abc")
}


type fakeHijacker struct {
	http.ResponseWriter
	err error
}

func (f *fakeHijacker) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return nil, nil, f.err
}

func TestTransportResponseRecorderHijackStatus(t *testing.T) {
	// Plain recorders do not support hijacking, the recorded status
	// must stay untouched.
	rec := &transportResponseRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	_, _, err := rec.Hijack()
	require.Error(t, err)
	require.Equal(t, http.StatusOK, rec.status)

	// A failed hijack on a capable writer keeps the status too.
	rec = &transportResponseRecorder{ResponseWriter: &fakeHijacker{httptest.NewRecorder(), errors.New("hijack failed")}, status: http.StatusOK}
	_, _, err = rec.Hijack()
	require.Error(t, err)
	require.Equal(t, http.StatusOK, rec.status)

	// Only a successful hijack counts as a protocol switch.
	rec = &transportResponseRecorder{ResponseWriter: &fakeHijacker{httptest.NewRecorder(), nil}, status: http.StatusOK}
	_, _, err = rec.Hijack()
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, rec.status)
}

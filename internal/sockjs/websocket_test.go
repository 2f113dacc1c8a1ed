package sockjs

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func newWsTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	handler := HandlerFuncs{
		OnMessageFunc: func(s Session, msg string) {
			if msg == "bye" {
				_ = s.Close(3000, "Go away!")
				return
			}
			_ = s.Send(msg)
		},
	}
	h, err := NewHandler("/echo", opts, handler)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func readTextMessage(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(payload)
}

func TestWebsocketTransport(t *testing.T) {
	srv := newWsTestServer(t, testSessionOptions())

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/echo/000/wstest/websocket"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Equal(t, "o", readTextMessage(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`["hello"]`)))
	require.Equal(t, `a["hello"]`, readTextMessage(t, conn))

	// A bare JSON string is a single message.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`"single"`)))
	require.Equal(t, `a["single"]`, readTextMessage(t, conn))
}

func TestWebsocketServerClose(t *testing.T) {
	srv := newWsTestServer(t, testSessionOptions())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/echo/000/wsclose/websocket"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, "o", readTextMessage(t, conn))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`["bye"]`)))
	require.Equal(t, `c[3000,"Go away!"]`, readTextMessage(t, conn))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
}

// Unparseable payload drops the connection without a close frame.
func TestWebsocketBrokenJSON(t *testing.T) {
	srv := newWsTestServer(t, testSessionOptions())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/echo/000/wsbroken/websocket"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, "o", readTextMessage(t, conn))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
}

func TestWebsocketUpgradeRequired(t *testing.T) {
	srv := newWsTestServer(t, testSessionOptions())

	resp, err := http.Get(srv.URL + "/echo/000/plain/websocket")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Can \"Upgrade\" only to \"WebSocket\".\n", readAll(t, resp))
}

func TestRawWebsocket(t *testing.T) {
	opts := testSessionOptions()
	opts.RawWebsocket = true
	srv := newWsTestServer(t, opts)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/echo/websocket"), nil)
	require.NoError(t, err)
	defer conn.Close()

	// No open frame on the raw endpoint, messages pass through unframed.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	require.Equal(t, "hello", readTextMessage(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("bye")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	require.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
	require.Equal(t, "Go away!", closeErr.Text)
}

func TestRawWebsocketDisabled(t *testing.T) {
	srv := newWsTestServer(t, testSessionOptions())

	// The disabled raw endpoint ignores requests without touching the
	// response.
	resp, err := http.Get(srv.URL + "/echo/websocket")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Empty(t, body)
	resp.Body.Close()
}

package sockjs

import (
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Options control protocol behavior of a Handler.
type Options struct {
	// Websocket enables the framed websocket transport on session paths.
	Websocket bool
	// RawWebsocket enables the /websocket endpoint which bypasses the
	// SockJS framing completely.
	RawWebsocket bool
	// WebsocketUpgrader allows tuning the gorilla/websocket Upgrader used
	// for both websocket transports. A default upgrader is used when nil.
	WebsocketUpgrader *websocket.Upgrader
	// WebsocketWriteTimeout is a maximum duration of a single websocket
	// write, a slower client gets disconnected.
	WebsocketWriteTimeout time.Duration
	// ResponseLimit bounds bytes written into a single streaming response
	// body. Once exceeded the response is finished and the client has to
	// reconnect.
	ResponseLimit int
	// MessageCacheSize bounds the outbound buffer of a session while no
	// transport request is bound. Session.Send fails when exceeded.
	MessageCacheSize int
	// HeartbeatDelay is a maximum quiet period on a bound transport
	// request after which a heartbeat frame is sent.
	HeartbeatDelay time.Duration
	// DisconnectDelay is a grace period a session survives without any
	// bound transport request before it is closed and evicted.
	DisconnectDelay time.Duration
	// SockJSURL is an address of the SockJS client library served inside
	// iframe documents. Must match the client library version used by
	// connecting clients.
	SockJSURL string
	// JSessionID enables dumb JSESSIONID cookie echo needed by some load
	// balancers, reflected in the cookie_needed field of /info.
	JSessionID bool
	// AllowedOrigins is a list of glob patterns for the Origin header of
	// cross-origin requests, pattern "*" allows any origin. Empty list
	// allows any origin too but keeps iframe transports enabled with
	// X-Frame-Options: SAMEORIGIN. A non-wildcard list disables iframe
	// transports entirely since those can not satisfy origin checks.
	AllowedOrigins []string
	// CheckOrigin when set overrides AllowedOrigins completely.
	CheckOrigin func(*http.Request) bool
	// Entropy is a source of random values for the /info endpoint. Client
	// libraries use it to seed their session id generators. Defaults to
	// math/rand/v2.
	Entropy func() uint32
}

// DefaultOptions mirror the defaults of the reference SockJS servers.
var DefaultOptions = Options{
	Websocket:        true,
	ResponseLimit:    128 * 1024,
	MessageCacheSize: 100,
	HeartbeatDelay:   25 * time.Second,
	DisconnectDelay:  5 * time.Second,
	SockJSURL:        "https://cdn.jsdelivr.net/npm/sockjs-client@1/dist/sockjs.min.js",
}

func (o Options) entropy() uint32 {
	if o.Entropy != nil {
		return o.Entropy()
	}
	return rand.Uint32()
}

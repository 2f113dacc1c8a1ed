package sockjs

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sockbridge/sockbridge/internal/metrics"
	"github.com/sockbridge/sockbridge/internal/origin"
)

var iframePathRe = regexp.MustCompile(`^/iframe[a-z0-9\-._]*\.html$`)

// Handler serves a SockJS endpoint tree under a path prefix and routes
// transport requests to sessions.
type Handler struct {
	prefix      string
	options     Options
	handler     SessionHandler
	middlewares []Middleware
	sessions    *registry

	originChecker   *origin.Checker
	allowAnyOrigin  bool
	explicitOrigins bool

	iframePage []byte
	iframeETag string

	wsUpgrader *websocket.Upgrader
}

// NewHandler creates a Handler serving SockJS endpoints under prefix.
// Session lifecycle events go to h wrapped into provided middlewares.
func NewHandler(prefix string, opts Options, h SessionHandler, middlewares ...Middleware) (*Handler, error) {
	opts = normalizeOptions(opts)

	handler := &Handler{
		prefix:      strings.TrimSuffix(prefix, "/"),
		options:     opts,
		handler:     h,
		middlewares: middlewares,
		sessions:    newRegistry(),
	}

	handler.explicitOrigins = len(opts.AllowedOrigins) > 0
	handler.allowAnyOrigin = !handler.explicitOrigins
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			handler.allowAnyOrigin = true
			break
		}
	}
	if !handler.allowAnyOrigin {
		checker, err := origin.NewChecker(opts.AllowedOrigins)
		if err != nil {
			return nil, fmt.Errorf("error creating origin checker: %w", err)
		}
		handler.originChecker = checker
	}

	handler.iframePage = renderIframe(opts.SockJSURL)
	handler.iframeETag = iframeETag(handler.iframePage)

	if opts.WebsocketUpgrader != nil {
		handler.wsUpgrader = opts.WebsocketUpgrader
	} else {
		handler.wsUpgrader = &websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return handler.originAllowed(r) },
			Error:           func(w http.ResponseWriter, r *http.Request, status int, reason error) {},
		}
	}
	return handler, nil
}

func normalizeOptions(opts Options) Options {
	if opts.ResponseLimit == 0 {
		opts.ResponseLimit = DefaultOptions.ResponseLimit
	}
	if opts.MessageCacheSize == 0 {
		opts.MessageCacheSize = DefaultOptions.MessageCacheSize
	}
	if opts.HeartbeatDelay == 0 {
		opts.HeartbeatDelay = DefaultOptions.HeartbeatDelay
	}
	if opts.DisconnectDelay == 0 {
		opts.DisconnectDelay = DefaultOptions.DisconnectDelay
	}
	if opts.SockJSURL == "" {
		opts.SockJSURL = DefaultOptions.SockJSURL
	}
	return opts
}

// Prefix returns the path prefix the Handler was created with.
func (h *Handler) Prefix() string {
	return h.prefix
}

func (h *Handler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	path, found := strings.CutPrefix(req.URL.Path, h.prefix)
	if !found {
		http.NotFound(rw, req)
		return
	}
	switch {
	case path == "" || path == "/":
		h.serveGreeting(rw, req)
	case path == "/info":
		h.serveInfo(rw, req)
	case iframePathRe.MatchString(path):
		h.serveIframe(rw, req)
	case path == "/websocket":
		// Disabled raw endpoint leaves the response untouched.
		if h.options.RawWebsocket {
			h.rawWebsocket(rw, req)
		}
	default:
		h.serveSession(rw, req, path)
	}
}

func (h *Handler) serveGreeting(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeMethodNotAllowed(rw, http.MethodGet)
		return
	}
	rw.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	_, _ = rw.Write([]byte("Welcome to SockJS!\n"))
}

// serveSession dispatches a /{server}/{session}/{transport} path.
func (h *Handler) serveSession(rw http.ResponseWriter, req *http.Request, path string) {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) != 3 {
		http.NotFound(rw, req)
		return
	}
	serverID, sessionID, transport := parts[0], parts[1], parts[2]
	if serverID == "" || sessionID == "" || transport == "" {
		http.NotFound(rw, req)
		return
	}
	// Dots in ids are reserved, they would collide with path handling of
	// intermediaries.
	if strings.Contains(serverID, ".") || strings.Contains(sessionID, ".") {
		http.NotFound(rw, req)
		return
	}
	// A path parameter on the last segment enables response splitting
	// tricks in some containers, reject outright.
	if strings.Contains(transport, ";") {
		http.NotFound(rw, req)
		return
	}

	rec := &transportResponseRecorder{ResponseWriter: rw, status: http.StatusOK}
	defer func() {
		metrics.TransportRequestsTotal.WithLabelValues(transport, strconv.Itoa(rec.status)).Inc()
	}()

	switch transport {
	case "websocket":
		if !h.options.Websocket {
			http.NotFound(rec, req)
			return
		}
		h.sockjsWebsocket(rec, req, sessionID)
	case "xhr":
		if !h.allowTransportMethod(rec, req, http.MethodPost) {
			return
		}
		h.xhrPoll(rec, req, sessionID)
	case "xhr_send":
		if !h.allowTransportMethod(rec, req, http.MethodPost) {
			return
		}
		h.xhrSend(rec, req, sessionID)
	case "xhr_streaming":
		if !h.allowTransportMethod(rec, req, http.MethodPost) {
			return
		}
		h.xhrStreaming(rec, req, sessionID)
	case "eventsource":
		if !h.allowTransportMethod(rec, req, http.MethodGet) {
			return
		}
		h.eventSource(rec, req, sessionID)
	case "htmlfile":
		if !h.allowTransportMethod(rec, req, http.MethodGet) {
			return
		}
		h.htmlFile(rec, req, sessionID)
	case "jsonp":
		if !h.allowTransportMethod(rec, req, http.MethodGet) {
			return
		}
		h.jsonp(rec, req, sessionID)
	case "jsonp_send":
		if !h.allowTransportMethod(rec, req, http.MethodPost) {
			return
		}
		h.jsonpSend(rec, req, sessionID)
	default:
		http.NotFound(rec, req)
	}
}

// allowTransportMethod resolves OPTIONS preflight and method mismatch for
// a transport endpoint. Returns true when the request should proceed.
func (h *Handler) allowTransportMethod(rw http.ResponseWriter, req *http.Request, method string) bool {
	if req.Method == http.MethodOptions {
		if !h.applyCORS(rw, req) {
			return false
		}
		writeCacheHeaders(rw)
		rw.Header().Set("Access-Control-Allow-Methods", "OPTIONS, "+method)
		rw.Header().Set("Access-Control-Max-Age", "31536000")
		rw.WriteHeader(http.StatusNoContent)
		return false
	}
	if req.Method != method {
		writeMethodNotAllowed(rw, method, http.MethodOptions)
		return false
	}
	return true
}

// applyCORS validates request Origin and writes CORS headers. On rejected
// Origin a 403 is written and false returned.
func (h *Handler) applyCORS(rw http.ResponseWriter, req *http.Request) bool {
	reqOrigin := req.Header.Get("Origin")
	if reqOrigin != "" && reqOrigin != "null" && !h.originAllowed(req) {
		rw.WriteHeader(http.StatusForbidden)
		return false
	}
	header := rw.Header()
	if reqOrigin == "" || reqOrigin == "null" {
		header.Set("Access-Control-Allow-Origin", "*")
	} else {
		header.Set("Access-Control-Allow-Origin", reqOrigin)
		header.Set("Access-Control-Allow-Credentials", "true")
	}
	if allowHeaders := req.Header.Get("Access-Control-Request-Headers"); allowHeaders != "" && allowHeaders != "null" {
		header.Set("Access-Control-Allow-Headers", allowHeaders)
	}
	return true
}

// originAllowed checks request Origin against handler configuration.
// Same-origin requests always pass.
func (h *Handler) originAllowed(req *http.Request) bool {
	if h.options.CheckOrigin != nil {
		return h.options.CheckOrigin(req)
	}
	if h.allowAnyOrigin {
		return true
	}
	if o := req.Header.Get("Origin"); o != "" {
		if u, err := url.Parse(strings.ToLower(o)); err == nil && strings.EqualFold(u.Host, req.Host) {
			return true
		}
	}
	return h.originChecker.Check(req) == nil
}

// setSessionCookie echoes a dumb JSESSIONID cookie when configured, needed
// by sticky load balancers.
func (h *Handler) setSessionCookie(rw http.ResponseWriter, req *http.Request) {
	if !h.options.JSessionID {
		return
	}
	cookie, err := req.Cookie("JSESSIONID")
	if err != nil {
		cookie = &http.Cookie{Name: "JSESSIONID", Value: "dummy"}
	}
	cookie.Path = "/"
	http.SetCookie(rw, cookie)
}

func writeNoCacheHeaders(rw http.ResponseWriter) {
	rw.Header().Set("Cache-Control", "no-store, no-cache, no-transform, must-revalidate, max-age=0")
}

func writeCacheHeaders(rw http.ResponseWriter) {
	rw.Header().Set("Cache-Control", "public, max-age=31536000")
	rw.Header().Set("Expires", time.Now().AddDate(1, 0, 0).UTC().Format(http.TimeFormat))
}

func writeMethodNotAllowed(rw http.ResponseWriter, allowed ...string) {
	rw.Header().Set("Allow", strings.Join(allowed, ", "))
	rw.WriteHeader(http.StatusMethodNotAllowed)
}

// transportResponseRecorder keeps response status for metrics while still
// exposing Flusher and Hijacker to transports.
type transportResponseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *transportResponseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *transportResponseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *transportResponseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("ResponseWriter doesn't support Hijacker interface")
	}
	conn, rw, err := hijacker.Hijack()
	if err == nil {
		r.status = http.StatusSwitchingProtocols
	}
	return conn, rw, err
}

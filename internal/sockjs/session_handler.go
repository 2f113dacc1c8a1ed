package sockjs

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// CloseStatus describes why a session was closed.
type CloseStatus struct {
	Code   uint32
	Reason string
}

var (
	// CloseNormal is a default status for server-initiated close.
	CloseNormal = CloseStatus{Code: 3000, Reason: "Go away!"}
	// CloseAnotherConnection is sent to a request which holds a session
	// when a newer request binds to the same session.
	CloseAnotherConnection = CloseStatus{Code: 2010, Reason: "Another connection still open"}
	// CloseSessionTimeout reported to the application when a session had
	// no bound request for longer than the disconnect delay.
	CloseSessionTimeout = CloseStatus{Code: 3001, Reason: "Session timed out"}
	// CloseClientDisconnect reported to the application when the client
	// connection went away.
	CloseClientDisconnect = CloseStatus{Code: 1001, Reason: "Client disconnected"}
)

// Session is a logical bidirectional connection exposed to application code.
type Session interface {
	// ID returns a unique session identifier.
	ID() string
	// Transport returns the transport which created this session.
	Transport() TransportType
	// Request returns the HTTP request which created this session.
	Request() *http.Request
	// Send delivers a message to the client, buffering it when no
	// transport request is currently bound.
	Send(msg string) error
	// Close closes the session with provided code and reason.
	Close(code uint32, reason string) error
}

// SessionHandler is the application side of SockJS connections. Callbacks
// of a single session are never invoked concurrently and messages are
// delivered in arrival order.
type SessionHandler interface {
	OnOpen(s Session)
	OnMessage(s Session, msg string)
	OnError(s Session, err error)
	OnClose(s Session, status CloseStatus)
}

// Middleware wraps a SessionHandler adding behavior around its callbacks.
// Middlewares are composed at session creation time, the first middleware
// in the list becomes the outermost wrapper.
type Middleware func(SessionHandler) SessionHandler

func composeHandler(h SessionHandler, middlewares []Middleware) SessionHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// HandlerFuncs is an adapter to build a SessionHandler from plain
// functions. Nil members are simply skipped.
type HandlerFuncs struct {
	OnOpenFunc    func(s Session)
	OnMessageFunc func(s Session, msg string)
	OnErrorFunc   func(s Session, err error)
	OnCloseFunc   func(s Session, status CloseStatus)
}

func (h HandlerFuncs) OnOpen(s Session) {
	if h.OnOpenFunc != nil {
		h.OnOpenFunc(s)
	}
}

func (h HandlerFuncs) OnMessage(s Session, msg string) {
	if h.OnMessageFunc != nil {
		h.OnMessageFunc(s, msg)
	}
}

func (h HandlerFuncs) OnError(s Session, err error) {
	if h.OnErrorFunc != nil {
		h.OnErrorFunc(s, err)
	}
}

func (h HandlerFuncs) OnClose(s Session, status CloseStatus) {
	if h.OnCloseFunc != nil {
		h.OnCloseFunc(s, status)
	}
}

// WithLogging is a Middleware logging session lifecycle on debug level.
func WithLogging(next SessionHandler) SessionHandler {
	return loggingHandler{next: next}
}

type loggingHandler struct {
	next SessionHandler
}

func (h loggingHandler) OnOpen(s Session) {
	log.Debug().Str("session", s.ID()).Str("transport", s.Transport().String()).Msg("session opened")
	h.next.OnOpen(s)
}

func (h loggingHandler) OnMessage(s Session, msg string) {
	h.next.OnMessage(s, msg)
}

func (h loggingHandler) OnError(s Session, err error) {
	log.Error().Err(err).Str("session", s.ID()).Msg("session error")
	h.next.OnError(s, err)
}

func (h loggingHandler) OnClose(s Session, status CloseStatus) {
	log.Debug().Str("session", s.ID()).Uint32("code", status.Code).Str("reason", status.Reason).Msg("session closed")
	h.next.OnClose(s, status)
}

// WithRecovery is a Middleware translating panics in application callbacks
// into OnError notifications.
func WithRecovery(next SessionHandler) SessionHandler {
	return recoveryHandler{next: next}
}

type recoveryHandler struct {
	next SessionHandler
}

func (h recoveryHandler) recover(s Session) {
	if r := recover(); r != nil {
		err, ok := r.(error)
		if !ok {
			err = fmt.Errorf("panic in session handler: %v", r)
		}
		h.next.OnError(s, err)
	}
}

func (h recoveryHandler) OnOpen(s Session) {
	defer h.recover(s)
	h.next.OnOpen(s)
}

func (h recoveryHandler) OnMessage(s Session, msg string) {
	defer h.recover(s)
	h.next.OnMessage(s, msg)
}

func (h recoveryHandler) OnError(s Session, err error) {
	h.next.OnError(s, err)
}

func (h recoveryHandler) OnClose(s Session, status CloseStatus) {
	defer h.recover(s)
	h.next.OnClose(s, status)
}

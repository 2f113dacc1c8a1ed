package sockjs

import (
	"io"
	"net/http"
	"strings"
)

// streamingPrelude defeats buffering heuristics of browsers and proxies
// which otherwise delay delivery of the first streamed frames.
var streamingPrelude = strings.Repeat("h", 2048) + "\n"

func (h *Handler) newSession(req *http.Request, id string, transport TransportType) *session {
	return newSession(req, id, transport, h.options, h.handler, h.middlewares, h.sessions)
}

// sessionForSending finds or creates a session for a sending transport and
// verifies the session kind matches buffering semantics of the transport.
func (h *Handler) sessionForSending(rw http.ResponseWriter, req *http.Request, sessionID string, transport TransportType) (*session, bool) {
	sess, _ := h.sessions.getOrCreate(sessionID, func() *session {
		return h.newSession(req, sessionID, transport)
	})
	if sess.transport.kind() != transport.kind() {
		http.NotFound(rw, req)
		return nil, false
	}
	return sess, true
}

// waitReceiver blocks until the receiver delivered everything it is going
// to deliver or the client went away. Polling receivers finish after one
// frame, streaming receivers when the byte limit is exceeded or the
// session closed.
func waitReceiver(recv *httpReceiver) {
	select {
	case <-recv.doneNotify():
	case <-recv.interruptedNotify():
	}
}

// xhrPoll serves the xhr polling transport: exactly one frame per request.
func (h *Handler) xhrPoll(rw http.ResponseWriter, req *http.Request, sessionID string) {
	if !h.applyCORS(rw, req) {
		return
	}
	sess, ok := h.sessionForSending(rw, req, sessionID, TransportXHR)
	if !ok {
		return
	}
	h.setSessionCookie(rw, req)
	writeNoCacheHeaders(rw)
	rw.Header().Set("Content-Type", "application/javascript; charset=UTF-8")

	recv := newHTTPReceiver(rw, req, recvModePolling, 0, xhrFrameWriter{})
	_ = sess.attachReceiver(recv)
	waitReceiver(recv)
}

// xhrSend serves the receiving side of xhr transports: the request body is
// a JSON array of messages forwarded to the application handler.
func (h *Handler) xhrSend(rw http.ResponseWriter, req *http.Request, sessionID string) {
	if !h.applyCORS(rw, req) {
		return
	}
	sess, ok := h.sessions.get(sessionID)
	if !ok {
		http.NotFound(rw, req)
		return
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		http.Error(rw, "Payload expected.", http.StatusInternalServerError)
		return
	}
	messages, err := decodeMessageArray(body)
	if err != nil {
		http.Error(rw, "Broken JSON encoding.", http.StatusInternalServerError)
		return
	}
	if err := sess.accept(messages...); err != nil {
		// Session exists but is not open anymore.
		http.NotFound(rw, req)
		return
	}
	h.setSessionCookie(rw, req)
	writeNoCacheHeaders(rw)
	rw.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	rw.WriteHeader(http.StatusOK)
}

// xhrStreaming serves the xhr streaming transport: the response stays open
// and receives frames until ResponseLimit bytes were written.
func (h *Handler) xhrStreaming(rw http.ResponseWriter, req *http.Request, sessionID string) {
	if !h.applyCORS(rw, req) {
		return
	}
	sess, ok := h.sessionForSending(rw, req, sessionID, TransportXHRStreaming)
	if !ok {
		return
	}
	h.setSessionCookie(rw, req)
	writeNoCacheHeaders(rw)
	rw.Header().Set("Content-Type", "application/javascript; charset=UTF-8")
	rw.WriteHeader(http.StatusOK)

	if _, err := rw.Write([]byte(streamingPrelude)); err != nil {
		return
	}
	if f, ok := rw.(http.Flusher); ok {
		f.Flush()
	}

	recv := newHTTPReceiver(rw, req, recvModeStreaming, h.options.ResponseLimit, xhrFrameWriter{})
	_ = sess.attachReceiver(recv)
	waitReceiver(recv)
}

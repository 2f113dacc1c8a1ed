package sockjs

import (
	"net/http"
)

// eventSource serves the EventSource (Server-Sent Events) streaming
// transport.
func (h *Handler) eventSource(rw http.ResponseWriter, req *http.Request, sessionID string) {
	if !h.applyCORS(rw, req) {
		return
	}
	sess, ok := h.sessionForSending(rw, req, sessionID, TransportEventSource)
	if !ok {
		return
	}
	h.setSessionCookie(rw, req)
	writeNoCacheHeaders(rw)
	rw.Header().Set("Content-Type", "text/event-stream; charset=UTF-8")
	rw.WriteHeader(http.StatusOK)

	if _, err := rw.Write([]byte("\r\n")); err != nil {
		return
	}
	if f, ok := rw.(http.Flusher); ok {
		f.Flush()
	}

	recv := newHTTPReceiver(rw, req, recvModeStreaming, h.options.ResponseLimit, eventSourceFrameWriter{})
	_ = sess.attachReceiver(recv)
	waitReceiver(recv)
}

package sockjs

import (
	"io"
	"net/http"
	"strings"
)

// jsonp serves the JSONP polling transport: one frame per request wrapped
// into a script callback invocation.
func (h *Handler) jsonp(rw http.ResponseWriter, req *http.Request, sessionID string) {
	callback, err := callbackParam(req)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	sess, ok := h.sessionForSending(rw, req, sessionID, TransportJSONP)
	if !ok {
		return
	}
	h.setSessionCookie(rw, req)
	writeNoCacheHeaders(rw)
	rw.Header().Set("Content-Type", "application/javascript; charset=UTF-8")

	recv := newHTTPReceiver(rw, req, recvModePolling, 0, jsonpFrameWriter{callback: callback})
	_ = sess.attachReceiver(recv)
	waitReceiver(recv)
}

// jsonpSend serves the receiving side of the JSONP transport. The payload
// arrives either as a d= form parameter or as a raw JSON body.
func (h *Handler) jsonpSend(rw http.ResponseWriter, req *http.Request, sessionID string) {
	sess, ok := h.sessions.get(sessionID)
	if !ok {
		http.NotFound(rw, req)
		return
	}

	var payload []byte
	if strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := req.ParseForm(); err != nil {
			http.Error(rw, "Payload expected.", http.StatusInternalServerError)
			return
		}
		payload = []byte(req.PostForm.Get("d"))
	} else {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		payload = body
	}
	if len(payload) == 0 {
		http.Error(rw, "Payload expected.", http.StatusInternalServerError)
		return
	}
	messages, err := decodeMessageArray(payload)
	if err != nil {
		http.Error(rw, "Broken JSON encoding.", http.StatusInternalServerError)
		return
	}
	if err := sess.accept(messages...); err != nil {
		http.NotFound(rw, req)
		return
	}
	h.setSessionCookie(rw, req)
	writeNoCacheHeaders(rw)
	rw.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	_, _ = rw.Write([]byte("ok"))
}

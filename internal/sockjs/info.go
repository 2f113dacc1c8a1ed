package sockjs

import (
	"encoding/json"
	"net/http"
)

type infoResponse struct {
	Websocket    bool     `json:"websocket"`
	CookieNeeded bool     `json:"cookie_needed"`
	Origins      []string `json:"origins"`
	Entropy      uint32   `json:"entropy"`
}

// serveInfo implements the /info endpoint used by clients to discover
// server capabilities before choosing a transport.
func (h *Handler) serveInfo(rw http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		if !h.applyCORS(rw, req) {
			return
		}
		writeNoCacheHeaders(rw)
		rw.Header().Set("Content-Type", "application/json; charset=UTF-8")
		_ = json.NewEncoder(rw).Encode(infoResponse{
			Websocket:    h.options.Websocket,
			CookieNeeded: h.options.JSessionID,
			Origins:      []string{"*:*"},
			Entropy:      h.options.entropy(),
		})
	case http.MethodOptions:
		if !h.applyCORS(rw, req) {
			return
		}
		writeCacheHeaders(rw)
		rw.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET")
		rw.Header().Set("Access-Control-Max-Age", "31536000")
		rw.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(rw, http.MethodGet, http.MethodOptions)
	}
}

package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// LogRequest logs method, path, status, response size and duration of each
// request at debug level.
func LogRequest(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		lw := &loggedResponseWriter{ResponseWriter: w}
		h.ServeHTTP(lw, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", lw.status()).
			Int("size", lw.written).
			Str("addr", clientAddr(r)).
			Dur("duration", time.Since(started)).
			Msg("http request")
	})
}

func clientAddr(r *http.Request) string {
	if addr := r.Header.Get("X-Real-IP"); addr != "" {
		return addr
	}
	if addr := r.Header.Get("X-Forwarded-For"); addr != "" {
		return addr
	}
	return r.RemoteAddr
}

type loggedResponseWriter struct {
	http.ResponseWriter
	code    int
	written int
}

func (lw *loggedResponseWriter) WriteHeader(code int) {
	lw.code = code
	lw.ResponseWriter.WriteHeader(code)
}

func (lw *loggedResponseWriter) Write(p []byte) (int, error) {
	n, err := lw.ResponseWriter.Write(p)
	lw.written += n
	return n, err
}

func (lw *loggedResponseWriter) status() int {
	if lw.code == 0 {
		return http.StatusOK
	}
	return lw.code
}

// Hijack is required for the websocket upgrade to pass through.
func (lw *loggedResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := lw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("ResponseWriter doesn't support Hijacker interface")
	}
	lw.code = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// Flush is required for streaming transports to pass through.
func (lw *loggedResponseWriter) Flush() {
	if flusher, ok := lw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

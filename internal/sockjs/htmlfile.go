package sockjs

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/valyala/fasttemplate"
)

var callbackRe = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)

var (
	errCallbackRequired = errors.New(`"callback" parameter required`)
	errCallbackInvalid  = errors.New(`invalid "callback" parameter`)
)

// callbackParam extracts and validates the JavaScript callback name passed
// by htmlfile and jsonp transports. Validation blocks script injection
// through the callback name.
func callbackParam(req *http.Request) (string, error) {
	c := req.URL.Query().Get("c")
	if c == "" {
		c = req.URL.Query().Get("callback")
	}
	if c == "" {
		return "", errCallbackRequired
	}
	if !callbackRe.MatchString(c) {
		return "", errCallbackInvalid
	}
	return c, nil
}

const htmlfileTemplate = `<!doctype html>
<html><head>
  <meta http-equiv="X-UA-Compatible" content="IE=edge" />
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
</head><body><h2>Don't panic!</h2>
  <script>
    document.domain = document.domain;
    var c = parent.{{callback}};
    c.start();
    function p(d) {c.message(d);};
    window.onload = function() {c.stop();};
  </script>
`

// htmlfilePrologue renders the htmlfile bootstrap document, padded so the
// browser starts interpreting it immediately.
func htmlfilePrologue(callback string) []byte {
	doc := fasttemplate.ExecuteString(htmlfileTemplate, "{{", "}}", map[string]interface{}{
		"callback": callback,
	})
	if pad := 1024 - len(doc); pad > 0 {
		doc += strings.Repeat(" ", pad)
	}
	return []byte(doc + "\r\n\r\n")
}

// htmlFile serves the iframe-bridged streaming transport used by browsers
// without EventSource and CORS support.
func (h *Handler) htmlFile(rw http.ResponseWriter, req *http.Request, sessionID string) {
	callback, err := callbackParam(req)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	sess, ok := h.sessionForSending(rw, req, sessionID, TransportHTMLFile)
	if !ok {
		return
	}
	h.setSessionCookie(rw, req)
	writeNoCacheHeaders(rw)
	rw.Header().Set("Content-Type", "text/html; charset=UTF-8")
	rw.WriteHeader(http.StatusOK)

	if _, err := rw.Write(htmlfilePrologue(callback)); err != nil {
		return
	}
	if f, ok := rw.(http.Flusher); ok {
		f.Flush()
	}

	recv := newHTTPReceiver(rw, req, recvModeStreaming, h.options.ResponseLimit, htmlfileFrameWriter{})
	_ = sess.attachReceiver(recv)
	waitReceiver(recv)
}

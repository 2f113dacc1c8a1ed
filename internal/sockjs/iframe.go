package sockjs

import (
	"crypto/md5"
	"fmt"
	"net/http"

	"github.com/valyala/fasttemplate"
)

// iframeTemplate is the document served to iframe-based transports. The
// embedded client library version must match the one connecting clients
// use, otherwise the client raises a version mismatch error.
const iframeTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta http-equiv="X-UA-Compatible" content="IE=edge" />
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
  <script src="{{sockjs_url}}"></script>
  <script>
    document.domain = document.domain;
    SockJS.bootstrap_iframe();
  </script>
</head>
<body>
  <h2>Don't panic!</h2>
  <p>This is a SockJS hidden iframe. It's used for cross domain magic.</p>
</body>
</html>
`

func renderIframe(sockJSURL string) []byte {
	return []byte(fasttemplate.ExecuteString(iframeTemplate, "{{", "}}", map[string]interface{}{
		"sockjs_url": sockJSURL,
	}))
}

func iframeETag(page []byte) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%x", md5.Sum(page)))
}

// serveIframe serves the iframe document with ETag caching. When an
// explicit origin allow-list without wildcard is configured iframe
// transports can never satisfy origin checks, so the document is not
// served at all.
func (h *Handler) serveIframe(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeMethodNotAllowed(rw, http.MethodGet)
		return
	}
	if h.explicitOrigins && !h.allowAnyOrigin {
		http.NotFound(rw, req)
		return
	}
	if req.Header.Get("If-None-Match") == h.iframeETag {
		rw.WriteHeader(http.StatusNotModified)
		return
	}
	header := rw.Header()
	if !h.explicitOrigins {
		header.Set("X-Frame-Options", "SAMEORIGIN")
	}
	header.Set("Content-Type", "text/html; charset=UTF-8")
	header.Set("ETag", h.iframeETag)
	writeCacheHeaders(rw)
	_, _ = rw.Write(h.iframePage)
}

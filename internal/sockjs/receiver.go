package sockjs

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

type receiverMode int

const (
	// recvModePolling receivers finish the response after a single frame.
	recvModePolling receiverMode = iota
	// recvModeStreaming receivers keep the response open, flushing frames
	// until the cumulative byte limit is exceeded.
	recvModeStreaming
)

// frameWriter wraps a protocol frame into transport-specific bytes.
type frameWriter interface {
	writeFrame(w io.Writer, frame string) (int, error)
}

// httpReceiver delivers frames into an HTTP response held open by a
// polling or streaming transport request.
type httpReceiver struct {
	mu          sync.Mutex
	rw          http.ResponseWriter
	fw          frameWriter
	mode        receiverMode
	maxBytes    int
	written     int
	closed      bool
	doneCh      chan struct{}
	interruptCh chan struct{}
}

func newHTTPReceiver(rw http.ResponseWriter, req *http.Request, mode receiverMode, maxBytes int, fw frameWriter) *httpReceiver {
	recv := &httpReceiver{
		rw:          rw,
		fw:          fw,
		mode:        mode,
		maxBytes:    maxBytes,
		doneCh:      make(chan struct{}),
		interruptCh: make(chan struct{}),
	}
	go func() {
		select {
		case <-req.Context().Done():
			recv.interrupt()
		case <-recv.doneCh:
		}
	}()
	return recv
}

func (r *httpReceiver) sendBulk(messages ...string) {
	if len(messages) == 0 {
		return
	}
	r.sendFrame(encodeMessageFrame(messages...))
}

func (r *httpReceiver) sendFrame(frame string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	n, err := r.fw.writeFrame(r.rw, frame)
	if err != nil {
		// Client went away mid-write. The session survives, the client
		// is expected to issue a new request.
		r.interruptLocked()
		return
	}
	if f, ok := r.rw.(http.Flusher); ok {
		f.Flush()
	}
	r.written += n
	if r.mode == recvModePolling || (r.maxBytes > 0 && r.written >= r.maxBytes) {
		r.closeLocked()
	}
}

func (r *httpReceiver) sendClose(status CloseStatus) {
	r.sendFrame(closeFrame(status.Code, status.Reason))
}

func (r *httpReceiver) canSend() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

func (r *httpReceiver) doneNotify() <-chan struct{} {
	return r.doneCh
}

func (r *httpReceiver) interruptedNotify() <-chan struct{} {
	return r.interruptCh
}

func (r *httpReceiver) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *httpReceiver) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	close(r.doneCh)
}

func (r *httpReceiver) interrupt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interruptLocked()
}

func (r *httpReceiver) interruptLocked() {
	if r.closed {
		return
	}
	r.closed = true
	close(r.interruptCh)
	close(r.doneCh)
}

type xhrFrameWriter struct{}

func (xhrFrameWriter) writeFrame(w io.Writer, frame string) (int, error) {
	return fmt.Fprintf(w, "%s\n", frame)
}

type eventSourceFrameWriter struct{}

func (eventSourceFrameWriter) writeFrame(w io.Writer, frame string) (int, error) {
	return fmt.Fprintf(w, "data: %s\r\n\r\n", frame)
}

type htmlfileFrameWriter struct{}

func (htmlfileFrameWriter) writeFrame(w io.Writer, frame string) (int, error) {
	quoted, _ := json.Marshal(frame)
	return fmt.Fprintf(w, "<script>\np(%s);\n</script>\r\n", quoted)
}

type jsonpFrameWriter struct {
	callback string
}

func (j jsonpFrameWriter) writeFrame(w io.Writer, frame string) (int, error) {
	quoted, _ := json.Marshal(frame)
	return fmt.Fprintf(w, "/**/%s(%s);\r\n", j.callback, quoted)
}

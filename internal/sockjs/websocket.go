package sockjs

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// sockjsWebsocket serves the framed websocket transport. The connection
// carries whole protocol frames as text messages, one frame per message,
// and an inbound message is either a JSON string or a JSON array of
// strings.
func (h *Handler) sockjsWebsocket(rw http.ResponseWriter, req *http.Request, sessionID string) {
	if req.Method != http.MethodGet {
		writeMethodNotAllowed(rw, http.MethodGet)
		return
	}
	conn, err := h.wsUpgrader.Upgrade(rw, req, nil)
	if err != nil {
		if h.options.WebsocketUpgrader == nil {
			// The default upgrader suppresses gorilla's own error body.
			http.Error(rw, `Can "Upgrade" only to "WebSocket".`, http.StatusBadRequest)
		}
		return
	}

	sess, _ := h.sessions.getOrCreate(sessionID, func() *session {
		return h.newSession(req, sessionID, TransportWebsocket)
	})
	if sess.transport.kind() != kindWebsocket {
		_ = conn.Close()
		return
	}

	recv := newWsReceiver(conn, h.options.WebsocketWriteTimeout)
	recv.onWriteError = func(err error) {
		// Write failures surface from under the session lock, handle them
		// on their own goroutine.
		go func() {
			sess.reportError(err)
			_ = sess.closeAbrupt(CloseClientDisconnect)
		}()
	}
	if err := sess.attachReceiver(recv); err != nil {
		// Closing or closed session, the close frame went out already.
		_ = conn.Close()
		return
	}

	readClosed := make(chan struct{})
	go func() {
		defer close(readClosed)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			messages, err := decodeWebsocketPayload(payload)
			if err != nil {
				// Broken framing kills the connection without a close frame.
				return
			}
			if err := sess.accept(messages...); err != nil {
				return
			}
		}
	}()

	select {
	case <-readClosed:
		// The client is gone or violated the protocol, drop the
		// connection without a close frame.
		_ = sess.closeAbrupt(CloseClientDisconnect)
	case <-recv.doneNotify():
	case <-recv.interruptedNotify():
	}
	_ = conn.Close()
}

// wsReceiver delivers frames over a framed websocket connection.
type wsReceiver struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
	closed       bool
	doneCh       chan struct{}
	interruptCh  chan struct{}

	onWriteError func(error)
}

func newWsReceiver(conn *websocket.Conn, writeTimeout time.Duration) *wsReceiver {
	return &wsReceiver{
		conn:         conn,
		writeTimeout: writeTimeout,
		doneCh:       make(chan struct{}),
		interruptCh:  make(chan struct{}),
	}
}

func (w *wsReceiver) sendBulk(messages ...string) {
	if len(messages) == 0 {
		return
	}
	w.sendFrame(encodeMessageFrame(messages...))
}

func (w *wsReceiver) sendFrame(frame string) {
	w.writeMessage([]byte(frame))
}

func (w *wsReceiver) sendClose(status CloseStatus) {
	w.writeMessage([]byte(closeFrame(status.Code, status.Reason)))
}

func (w *wsReceiver) writeMessage(payload []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.writeTimeout != 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		w.closed = true
		close(w.interruptCh)
		close(w.doneCh)
		if w.onWriteError != nil {
			w.onWriteError(err)
		}
	}
}

func (w *wsReceiver) canSend() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed
}

func (w *wsReceiver) doneNotify() <-chan struct{} {
	return w.doneCh
}

func (w *wsReceiver) interruptedNotify() <-chan struct{} {
	return w.interruptCh
}

func (w *wsReceiver) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.doneCh)
}

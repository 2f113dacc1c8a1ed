package sockjs

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// rawWebsocket serves the raw websocket endpoint mounted directly under
// the handler prefix. There is no framing, every text message is a single
// application message in both directions. Raw sessions carry a generated
// id and are not addressable through the HTTP transports.
func (h *Handler) rawWebsocket(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeMethodNotAllowed(rw, http.MethodGet)
		return
	}
	conn, err := h.wsUpgrader.Upgrade(rw, req, nil)
	if err != nil {
		if h.options.WebsocketUpgrader == nil {
			http.Error(rw, `Can "Upgrade" only to "WebSocket".`, http.StatusBadRequest)
		}
		return
	}

	sess := newSession(req, uuid.NewString(), TransportRawWebsocket, h.options, h.handler, h.middlewares, nil)
	recv := newRawWsReceiver(conn, h.options.WebsocketWriteTimeout)
	recv.onWriteError = func(err error) {
		go func() {
			sess.reportError(err)
			_ = sess.closeAbrupt(CloseClientDisconnect)
		}()
	}
	if err := sess.attachReceiver(recv); err != nil {
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
			if err := sess.accept(string(payload)); err != nil {
				return
			}
		}
	}()

	select {
	case <-readClosed:
		_ = sess.closeAbrupt(CloseClientDisconnect)
	case <-recv.doneNotify():
	case <-recv.interruptedNotify():
	}
	_ = conn.Close()
}

// rawWsReceiver delivers messages over an unframed websocket connection.
// Protocol frames translate to websocket primitives: the open frame has
// no wire representation, heartbeats become pings and close notifications
// become websocket close messages.
type rawWsReceiver struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
	closed       bool
	doneCh       chan struct{}
	interruptCh  chan struct{}

	onWriteError func(error)
}

func newRawWsReceiver(conn *websocket.Conn, writeTimeout time.Duration) *rawWsReceiver {
	return &rawWsReceiver{
		conn:         conn,
		writeTimeout: writeTimeout,
		doneCh:       make(chan struct{}),
		interruptCh:  make(chan struct{}),
	}
}

func (w *rawWsReceiver) sendBulk(messages ...string) {
	for _, msg := range messages {
		w.write(websocket.TextMessage, []byte(msg))
	}
}

func (w *rawWsReceiver) sendFrame(frame string) {
	switch frame {
	case frameOpen:
	case frameHeartbeat:
		w.write(websocket.PingMessage, nil)
	default:
		w.write(websocket.TextMessage, []byte(frame))
	}
}

func (w *rawWsReceiver) sendClose(status CloseStatus) {
	w.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, status.Reason))
}

func (w *rawWsReceiver) write(messageType int, payload []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.writeTimeout != 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
	if err := w.conn.WriteMessage(messageType, payload); err != nil {
		w.closed = true
		close(w.interruptCh)
		close(w.doneCh)
		if w.onWriteError != nil {
			w.onWriteError(err)
		}
	}
}

func (w *rawWsReceiver) canSend() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed
}

func (w *rawWsReceiver) doneNotify() <-chan struct{} {
	return w.doneCh
}

func (w *rawWsReceiver) interruptedNotify() <-chan struct{} {
	return w.interruptCh
}

func (w *rawWsReceiver) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.doneCh)
}

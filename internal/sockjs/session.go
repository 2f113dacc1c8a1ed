package sockjs

import (
	"net/http"
	"sync"
	"time"

	"github.com/sockbridge/sockbridge/internal/metrics"
	"github.com/sockbridge/sockbridge/internal/timers"
)

type sessionState int

const (
	// sessionOpening: session created, open frame not sent yet.
	sessionOpening sessionState = iota
	// sessionActive: open frame sent, messages flow in both directions.
	sessionActive
	// sessionClosing: close frame sent or queued, the session still
	// answers new transport requests with the close frame until evicted.
	sessionClosing
	// sessionClosed: terminal, the session left the registry.
	sessionClosed
)

// receiver is a transport-bound connection able to deliver frames to the
// client: an HTTP response held by a polling or streaming request, or a
// websocket connection. A session binds at most one receiver at a time.
type receiver interface {
	// sendBulk delivers messages as a single message-array frame.
	sendBulk(messages ...string)
	// sendFrame delivers an open or heartbeat frame.
	sendFrame(frame string)
	// sendClose delivers a close notification in transport-specific form.
	sendClose(status CloseStatus)
	// canSend reports whether the receiver still accepts frames.
	canSend() bool
	// doneNotify is closed when the receiver finished delivering frames.
	doneNotify() <-chan struct{}
	// interruptedNotify is closed when the client connection went away
	// before the receiver finished. May be nil when a transport can not
	// distinguish interruption from completion.
	interruptedNotify() <-chan struct{}
	// close terminates the receiver.
	close()
}

type session struct {
	mu sync.Mutex

	id        string
	req       *http.Request
	transport TransportType
	createdAt time.Time

	state sessionState

	recv       receiver
	resetCh    chan struct{} // heartbeat countdown reset, recreated on every bind
	sendBuffer []string

	handler  SessionHandler
	registry *registry // nil for sessions not addressable over HTTP

	heartbeatDelay  time.Duration
	disconnectDelay time.Duration
	cacheSize       int

	evictionTimer *time.Timer
	closeStatus   CloseStatus

	dispatchMu      sync.Mutex // serializes application callbacks
	closeDispatched bool
}

func newSession(req *http.Request, id string, transport TransportType, opts Options, handler SessionHandler, middlewares []Middleware, reg *registry) *session {
	s := &session{
		id:              id,
		req:             req,
		transport:       transport,
		createdAt:       time.Now(),
		state:           sessionOpening,
		handler:         composeHandler(handler, middlewares),
		registry:        reg,
		heartbeatDelay:  opts.HeartbeatDelay,
		disconnectDelay: opts.DisconnectDelay,
		cacheSize:       opts.MessageCacheSize,
	}
	// A fresh session starts unbound, it is evicted unless a transport
	// request binds to it in time.
	s.evictionTimer = time.AfterFunc(s.disconnectDelay, s.evict)
	return s
}

func (s *session) ID() string {
	return s.id
}

func (s *session) Transport() TransportType {
	return s.transport
}

func (s *session) Request() *http.Request {
	return s.req
}

// Send delivers a message to the client. While no transport request is
// bound the message is buffered, bounded by MessageCacheSize.
func (s *session) Send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == sessionClosing || s.state == sessionClosed {
		return ErrSessionNotOpen
	}
	if len(s.sendBuffer) >= s.cacheSize {
		return ErrSessionBufferFull
	}
	s.sendBuffer = append(s.sendBuffer, msg)
	s.flushLocked()
	return nil
}

// Close closes the session. The close frame is delivered to the currently
// bound request if any, and replayed to every request binding later, until
// the session is evicted after the disconnect delay.
func (s *session) Close(code uint32, reason string) error {
	return s.closeWithStatus(CloseStatus{Code: code, Reason: reason})
}

func (s *session) closeWithStatus(status CloseStatus) error {
	s.mu.Lock()
	if s.state == sessionClosing || s.state == sessionClosed {
		s.mu.Unlock()
		return ErrSessionNotOpen
	}
	s.state = sessionClosing
	s.closeStatus = status
	s.sendBuffer = nil
	if s.recv != nil {
		s.recv.sendClose(status)
		metrics.FramesSentTotal.WithLabelValues("close").Inc()
		s.recv.close()
		s.recv = nil
		s.resetCh = nil
	}
	s.scheduleEvictionLocked()
	s.mu.Unlock()

	s.dispatchClose(status)
	return nil
}

// closeAbrupt closes the session after the client side of the transport
// is already gone. No close frame is written to the bound receiver, it
// is released right away.
func (s *session) closeAbrupt(status CloseStatus) error {
	s.mu.Lock()
	if s.state == sessionClosing || s.state == sessionClosed {
		s.mu.Unlock()
		return ErrSessionNotOpen
	}
	s.state = sessionClosing
	s.closeStatus = status
	s.sendBuffer = nil
	if s.recv != nil {
		s.recv.close()
		s.recv = nil
		s.resetCh = nil
	}
	s.scheduleEvictionLocked()
	s.mu.Unlock()

	s.dispatchClose(status)
	return nil
}

// attachReceiver binds a transport request to the session. A session in
// closing state answers with its close frame. When another receiver is
// still bound it is told to go away and the new one takes over.
func (s *session) attachReceiver(recv receiver) error {
	s.mu.Lock()
	if s.state == sessionClosing || s.state == sessionClosed {
		status := s.closeStatus
		if s.state == sessionClosed {
			status = CloseNormal
		}
		recv.sendClose(status)
		metrics.FramesSentTotal.WithLabelValues("close").Inc()
		recv.close()
		s.mu.Unlock()
		return ErrSessionNotOpen
	}
	if s.recv != nil {
		old := s.recv
		old.sendClose(CloseAnotherConnection)
		metrics.FramesSentTotal.WithLabelValues("close").Inc()
		old.close()
		s.recv = nil
	}
	if s.evictionTimer != nil {
		s.evictionTimer.Stop()
		s.evictionTimer = nil
	}
	s.recv = recv
	s.resetCh = make(chan struct{}, 1)
	resetCh := s.resetCh

	var opened bool
	if s.state == sessionOpening {
		s.state = sessionActive
		recv.sendFrame(frameOpen)
		s.frameSentLocked()
		metrics.FramesSentTotal.WithLabelValues("open").Inc()
		opened = true
	}
	s.flushLocked()
	s.mu.Unlock()

	go s.heartbeatLoop(recv, resetCh)
	go s.watchReceiver(recv)

	if opened {
		s.dispatchMu.Lock()
		s.handler.OnOpen(s)
		s.dispatchMu.Unlock()
	}
	return nil
}

// accept forwards messages received from the client to the application
// handler, preserving arrival order.
func (s *session) accept(messages ...string) error {
	if len(messages) == 0 {
		return nil
	}
	s.mu.Lock()
	if s.state != sessionActive {
		s.mu.Unlock()
		return ErrSessionNotOpen
	}
	s.mu.Unlock()

	metrics.MessagesReceivedTotal.Add(float64(len(messages)))
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	for _, msg := range messages {
		s.handler.OnMessage(s, msg)
	}
	return nil
}

// reportError notifies the application handler about a transport failure.
func (s *session) reportError(err error) {
	s.dispatchMu.Lock()
	s.handler.OnError(s, err)
	s.dispatchMu.Unlock()
}

func (s *session) flushLocked() {
	if s.state != sessionActive || s.recv == nil || !s.recv.canSend() || len(s.sendBuffer) == 0 {
		return
	}
	messages := s.sendBuffer
	s.sendBuffer = nil
	s.recv.sendBulk(messages...)
	s.frameSentLocked()
	metrics.FramesSentTotal.WithLabelValues("message").Inc()
}

func (s *session) frameSentLocked() {
	select {
	case s.resetCh <- struct{}{}:
	default:
	}
}

func (s *session) watchReceiver(recv receiver) {
	select {
	case <-recv.doneNotify():
	case <-recv.interruptedNotify():
	}
	s.detachReceiver(recv)
}

func (s *session) detachReceiver(recv receiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recv != recv {
		// A newer receiver took over already.
		return
	}
	s.recv = nil
	s.resetCh = nil
	s.scheduleEvictionLocked()
}

func (s *session) scheduleEvictionLocked() {
	if s.state == sessionClosed {
		return
	}
	if s.evictionTimer != nil {
		s.evictionTimer.Stop()
	}
	s.evictionTimer = time.AfterFunc(s.disconnectDelay, s.evict)
}

// evict terminates a session which spent the disconnect delay without a
// bound transport request.
func (s *session) evict() {
	s.mu.Lock()
	if s.recv != nil || s.state == sessionClosed {
		s.mu.Unlock()
		return
	}
	wasOpen := s.state == sessionOpening || s.state == sessionActive
	s.state = sessionClosed
	s.sendBuffer = nil
	if s.evictionTimer != nil {
		s.evictionTimer.Stop()
		s.evictionTimer = nil
	}
	s.mu.Unlock()

	if s.registry != nil {
		s.registry.remove(s.id)
	}
	if wasOpen {
		s.dispatchClose(CloseSessionTimeout)
	}
}

// heartbeatLoop sends a heartbeat frame when nothing was written to the
// bound receiver for the heartbeat delay. The countdown restarts on every
// sent frame and the loop exits together with its receiver.
func (s *session) heartbeatLoop(recv receiver, resetCh <-chan struct{}) {
	for {
		tm := timers.AcquireTimer(s.heartbeatDelay)
		select {
		case <-resetCh:
			timers.ReleaseTimer(tm)
		case <-recv.doneNotify():
			timers.ReleaseTimer(tm)
			return
		case <-tm.C:
			timers.ReleaseTimer(tm)
			s.heartbeat(recv)
		}
	}
}

func (s *session) heartbeat(recv receiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recv != recv || s.state != sessionActive || !recv.canSend() {
		return
	}
	recv.sendFrame(frameHeartbeat)
	s.frameSentLocked()
	metrics.FramesSentTotal.WithLabelValues("heartbeat").Inc()
}

func (s *session) dispatchClose(status CloseStatus) {
	s.mu.Lock()
	if s.closeDispatched {
		s.mu.Unlock()
		return
	}
	s.closeDispatched = true
	s.mu.Unlock()

	metrics.SessionsClosedTotal.WithLabelValues(closeReasonLabel(status)).Inc()
	// Close may be called from inside a callback which already holds the
	// dispatch lock, so OnClose is queued on its own goroutine.
	go func() {
		s.dispatchMu.Lock()
		s.handler.OnClose(s, status)
		s.dispatchMu.Unlock()
	}()
}

func closeReasonLabel(status CloseStatus) string {
	switch status {
	case CloseSessionTimeout:
		return "timeout"
	case CloseClientDisconnect:
		return "client_disconnect"
	default:
		return "close"
	}
}

package sockjs

import "errors"

var (
	// ErrSessionNotOpen returned on operations with a session which is not
	// in open state anymore.
	ErrSessionNotOpen = errors.New("session not open")
	// ErrSessionBufferFull returned by Session.Send when the outbound
	// message cache reached its configured limit.
	ErrSessionBufferFull = errors.New("session outbound buffer full")
)

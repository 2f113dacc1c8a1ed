// Package sockjs implements the server side of the SockJS protocol: an
// emulation of a persistent bidirectional message-oriented connection on
// top of plain HTTP for clients which can not use WebSocket directly.
//
// A Handler serves the whole SockJS endpoint tree under a path prefix:
// greeting, /info, iframe documents, the raw websocket endpoint and
// session-bound transport endpoints (xhr polling, xhr streaming,
// eventsource, htmlfile, jsonp and framed websocket). Application code
// reacts to connections by implementing SessionHandler.
package sockjs

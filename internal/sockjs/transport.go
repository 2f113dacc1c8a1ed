package sockjs

// TransportType is a concrete wire transport of a session.
type TransportType int

const (
	TransportWebsocket TransportType = iota
	TransportXHR
	TransportXHRSend
	TransportXHRStreaming
	TransportEventSource
	TransportHTMLFile
	TransportJSONP
	TransportJSONPSend
	TransportRawWebsocket
)

var transportNames = map[TransportType]string{
	TransportWebsocket:    "websocket",
	TransportXHR:          "xhr",
	TransportXHRSend:      "xhr_send",
	TransportXHRStreaming: "xhr_streaming",
	TransportEventSource:  "eventsource",
	TransportHTMLFile:     "htmlfile",
	TransportJSONP:        "jsonp",
	TransportJSONPSend:    "jsonp_send",
	TransportRawWebsocket: "raw_websocket",
}

func (t TransportType) String() string {
	if name, ok := transportNames[t]; ok {
		return name
	}
	return "unknown"
}

// transportKind groups transports with the same buffering and flushing
// semantics. A session created by a transport of one kind can only be
// driven by transports of the same kind afterwards.
type transportKind int

const (
	kindPolling transportKind = iota
	kindStreaming
	kindWebsocket
)

func (t TransportType) kind() transportKind {
	switch t {
	case TransportXHR, TransportJSONP:
		return kindPolling
	case TransportXHRStreaming, TransportEventSource, TransportHTMLFile:
		return kindStreaming
	default:
		return kindWebsocket
	}
}

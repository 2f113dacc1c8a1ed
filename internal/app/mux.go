package app

import (
	"net/http"

	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sockbridge/sockbridge/internal/build"
	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/health"
	"github.com/sockbridge/sockbridge/internal/middleware"
	"github.com/sockbridge/sockbridge/internal/sockjs"
)

// echoHandler sends every received message back to the client.
var echoHandler = sockjs.HandlerFuncs{
	OnMessageFunc: func(s sockjs.Session, msg string) {
		_ = s.Send(msg)
	},
}

// closeHandler closes every session right after it opens, used by client
// test suites to exercise close frame delivery.
var closeHandler = sockjs.HandlerFuncs{
	OnOpenFunc: func(s sockjs.Session) {
		_ = s.Close(3000, "Go away!")
	},
}

func sockjsOptions(cfg config.SockJSConfig) sockjs.Options {
	opts := sockjs.DefaultOptions
	opts.Websocket = cfg.Websocket
	opts.RawWebsocket = cfg.RawWebsocket
	opts.JSessionID = cfg.JSessionID
	opts.HeartbeatDelay = cfg.HeartbeatDelay
	opts.DisconnectDelay = cfg.DisconnectDelay
	opts.ResponseLimit = cfg.ResponseLimit
	opts.MessageCacheSize = cfg.MessageCacheSize
	opts.WebsocketWriteTimeout = cfg.WebsocketWriteTimeout
	opts.AllowedOrigins = cfg.AllowedOrigins
	if cfg.SockJSURL != "" {
		opts.SockJSURL = cfg.SockJSURL
	}
	return opts
}

type endpoint struct {
	prefix  string
	opts    func(sockjs.Options) sockjs.Options
	handler sockjs.SessionHandler
}

// Mux returns the HTTP mux of the server: the configured SockJS endpoint
// plus companion endpoints exercised by SockJS client test suites, and
// the optional health and metrics handlers.
func Mux(cfg config.Config) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	var commonMiddlewares []alice.Constructor
	if cfg.HTTP.LogRequests && zerolog.GlobalLevel() <= zerolog.DebugLevel {
		commonMiddlewares = append(commonMiddlewares, middleware.LogRequest)
	}
	if cfg.HTTP.PrometheusEnabled {
		commonMiddlewares = append(commonMiddlewares, middleware.HTTPServerInstrumentation)
	}
	basicChain := alice.New(commonMiddlewares...)

	sessionMiddlewares := []sockjs.Middleware{sockjs.WithRecovery}
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		sessionMiddlewares = append(sessionMiddlewares, sockjs.WithLogging)
	}

	baseOpts := sockjsOptions(cfg.SockJS)
	endpoints := []endpoint{
		{cfg.SockJS.Prefix, nil, echoHandler},
		{"/close", nil, closeHandler},
		{"/disabled_websocket_echo", func(o sockjs.Options) sockjs.Options {
			o.Websocket = false
			return o
		}, echoHandler},
		{"/cookie_needed_echo", func(o sockjs.Options) sockjs.Options {
			o.JSessionID = true
			return o
		}, echoHandler},
	}
	mounted := map[string]struct{}{}
	for _, e := range endpoints {
		if _, ok := mounted[e.prefix]; ok {
			continue
		}
		mounted[e.prefix] = struct{}{}
		opts := baseOpts
		if e.opts != nil {
			opts = e.opts(opts)
		}
		h, err := sockjs.NewHandler(e.prefix, opts, e.handler, sessionMiddlewares...)
		if err != nil {
			return nil, err
		}
		mux.Handle(e.prefix+"/", basicChain.Then(h))
		mux.Handle(e.prefix, basicChain.Then(h))
		log.Info().Str("prefix", e.prefix).Msg("serving SockJS endpoint")
	}

	if cfg.HTTP.HealthEnabled {
		mux.Handle("/health", basicChain.Then(middleware.Get(health.NewHandler(health.Config{Version: build.Version}))))
	}
	if cfg.HTTP.PrometheusEnabled {
		mux.Handle("/metrics", basicChain.Then(middleware.Get(promhttp.Handler())))
	}
	return mux, nil
}

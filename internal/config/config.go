package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sockbridge/sockbridge/internal/logging"
)

const envPrefix = "SOCKBRIDGE"

// Config is a full server configuration.
type Config struct {
	// Address to bind HTTP server to.
	Address string `mapstructure:"address" json:"address"`
	// Port to bind HTTP server to.
	Port int `mapstructure:"port" json:"port"`
	// PidFile is a path to write the PID file to.
	PidFile string `mapstructure:"pid_file" json:"pid_file"`

	// LogLevel is one of none, trace, debug, info, warn, error, fatal.
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	// LogFile when set redirects log output from STDOUT to a file.
	LogFile string `mapstructure:"log_file" json:"log_file"`

	// HTTP is configuration of auxiliary HTTP endpoints.
	HTTP HTTPConfig `mapstructure:"http" json:"http"`
	// SockJS is configuration of the SockJS endpoint itself.
	SockJS SockJSConfig `mapstructure:"sockjs" json:"sockjs"`
}

// HTTPConfig configures auxiliary HTTP endpoints of the server.
type HTTPConfig struct {
	// HealthEnabled enables the /health endpoint.
	HealthEnabled bool `mapstructure:"health" json:"health"`
	// PrometheusEnabled enables the /metrics endpoint.
	PrometheusEnabled bool `mapstructure:"prometheus" json:"prometheus"`
	// LogRequests enables debug logging of every HTTP request.
	LogRequests bool `mapstructure:"log_requests" json:"log_requests"`
}

// SockJSConfig configures SockJS protocol behavior.
type SockJSConfig struct {
	// Prefix is a path prefix the SockJS endpoint tree is mounted under.
	Prefix string `mapstructure:"prefix" json:"prefix"`
	// Websocket enables the framed websocket transport.
	Websocket bool `mapstructure:"websocket" json:"websocket"`
	// RawWebsocket enables the unframed /websocket endpoint.
	RawWebsocket bool `mapstructure:"raw_websocket" json:"raw_websocket"`
	// JSessionID enables JSESSIONID cookie echo for sticky load balancers.
	JSessionID bool `mapstructure:"jsessionid" json:"jsessionid"`
	// HeartbeatDelay is a quiet period after which a heartbeat frame goes
	// out on a bound transport request.
	HeartbeatDelay time.Duration `mapstructure:"heartbeat_delay" json:"heartbeat_delay"`
	// DisconnectDelay is how long a session survives without any bound
	// transport request.
	DisconnectDelay time.Duration `mapstructure:"disconnect_delay" json:"disconnect_delay"`
	// ResponseLimit bounds bytes written into one streaming response.
	ResponseLimit int `mapstructure:"response_limit" json:"response_limit"`
	// MessageCacheSize bounds the per-session outbound buffer.
	MessageCacheSize int `mapstructure:"message_cache_size" json:"message_cache_size"`
	// SockJSURL is the client library URL served in iframe documents.
	SockJSURL string `mapstructure:"sockjs_url" json:"sockjs_url"`
	// AllowedOrigins is a list of origin glob patterns, "*" allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins"`
	// WebsocketWriteTimeout bounds a single websocket write.
	WebsocketWriteTimeout time.Duration `mapstructure:"websocket_write_timeout" json:"websocket_write_timeout"`
}

// DefineFlags adds server command line flags to cmd.
func DefineFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("address", "a", "", "interface address to listen on")
	cmd.Flags().IntP("port", "p", 8080, "port to bind HTTP server to")
	cmd.Flags().String("pid_file", "", "optional path to write PID file to")
	cmd.Flags().String("log_level", "info", "set the log level: trace, debug, info, warn, error, fatal or none")
	cmd.Flags().String("log_file", "", "optional log file - if not specified logs go to STDOUT")
	cmd.Flags().Bool("health", false, "enable health endpoint")
	cmd.Flags().Bool("prometheus", false, "enable Prometheus metrics endpoint")
	cmd.Flags().String("prefix", "/echo", "path prefix for SockJS endpoints")
	cmd.Flags().String("sockjs_url", "", "URL of the SockJS client library for iframe transports")
}

func setDefaults() {
	viper.SetDefault("address", "")
	viper.SetDefault("port", 8080)
	viper.SetDefault("pid_file", "")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_file", "")
	viper.SetDefault("http.health", false)
	viper.SetDefault("http.prometheus", false)
	viper.SetDefault("http.log_requests", false)
	viper.SetDefault("sockjs.prefix", "/echo")
	viper.SetDefault("sockjs.websocket", true)
	viper.SetDefault("sockjs.raw_websocket", false)
	viper.SetDefault("sockjs.jsessionid", false)
	viper.SetDefault("sockjs.heartbeat_delay", 25*time.Second)
	viper.SetDefault("sockjs.disconnect_delay", 5*time.Second)
	viper.SetDefault("sockjs.response_limit", 128*1024)
	viper.SetDefault("sockjs.message_cache_size", 100)
	viper.SetDefault("sockjs.sockjs_url", "https://cdn.jsdelivr.net/npm/sockjs-client@1/dist/sockjs.min.js")
	viper.SetDefault("sockjs.allowed_origins", []string{})
	viper.SetDefault("sockjs.websocket_write_timeout", 0)
}

// Meta carries details about how configuration was loaded.
type Meta struct {
	FileNotFound bool
}

// GetConfig loads configuration merging defaults, optional config file,
// environment variables with the SOCKBRIDGE_ prefix and command flags.
func GetConfig(cmd *cobra.Command, configFile string) (Config, Meta, error) {
	v := viper.GetViper()
	setDefaults()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	meta := Meta{}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			switch err.(type) {
			case viper.ConfigParseError:
				return Config{}, meta, fmt.Errorf("error parsing configuration: %w", err)
			default:
				meta.FileNotFound = true
			}
		}
	}

	if cmd != nil {
		for _, flag := range []string{"address", "port", "pid_file", "log_level", "log_file"} {
			if f := cmd.Flags().Lookup(flag); f != nil {
				_ = v.BindPFlag(flag, f)
			}
		}
		for viperKey, flag := range map[string]string{
			"http.health":       "health",
			"http.prometheus":   "prometheus",
			"sockjs.prefix":     "prefix",
			"sockjs.sockjs_url": "sockjs_url",
		} {
			if f := cmd.Flags().Lookup(flag); f != nil {
				_ = v.BindPFlag(viperKey, f)
			}
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return Config{}, meta, fmt.Errorf("error unmarshaling configuration: %w", err)
	}
	return cfg, meta, nil
}

// Validate checks configuration consistency.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	if !strings.HasPrefix(c.SockJS.Prefix, "/") {
		return fmt.Errorf("sockjs prefix must start with /: %s", c.SockJS.Prefix)
	}
	if c.SockJS.HeartbeatDelay < time.Second {
		return fmt.Errorf("heartbeat delay can not be less than one second")
	}
	if c.SockJS.ResponseLimit <= 0 {
		return fmt.Errorf("invalid response limit: %d", c.SockJS.ResponseLimit)
	}
	return nil
}

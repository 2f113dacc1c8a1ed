package app

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/sockbridge/sockbridge/internal/build"
	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/logging"
	"github.com/sockbridge/sockbridge/internal/service"
	"github.com/sockbridge/sockbridge/internal/tools"
)

const shutdownTimeout = 10 * time.Second

func Run(cmd *cobra.Command, configFile string) {
	dotEnvUsed := false
	if tools.FileExists(".env") {
		if err := godotenv.Load(); err != nil {
			log.Fatal().Err(err).Msg("error loading .env file")
		}
		dotEnvUsed = true
	}
	cfg, cfgMeta, err := config.GetConfig(cmd, configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error getting config")
	}

	ctx, serviceCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer serviceCancel()

	logCloseFn := logging.Setup(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logCloseFn()

	if cfgMeta.FileNotFound {
		log.Warn().Msg("config file not found, continue using environment and flag options")
	} else {
		absConfPath, _ := filepath.Abs(configFile)
		log.Info().Str("path", absConfPath).Msg("using config file")
		if dotEnvUsed {
			log.Info().Msg("environment variables have been loaded from .env file")
		}
	}
	if err := tools.WritePidFile(cfg.PidFile); err != nil {
		log.Fatal().Err(err).Msg("error writing PID")
	}
	_, _ = maxprocs.Set(maxprocs.Logger(func(s string, i ...interface{}) {
		log.Info().Msgf(strings.ToLower(s), i...)
	}))

	log.Info().
		Str("version", build.Version).
		Str("runtime", runtime.Version()).
		Int("pid", os.Getpid()).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Msg("starting Sockbridge")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("error validating config")
	}

	mux, err := Mux(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error building server mux")
	}

	addr := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))
	serviceManager := service.NewManager()
	serviceManager.Register(service.NewHTTPServer(&http.Server{Addr: addr, Handler: mux}, shutdownTimeout))
	if err := serviceManager.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("bye")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chesscast/chesscast/pkg/calibration"
	"github.com/chesscast/chesscast/pkg/config"
	"github.com/chesscast/chesscast/pkg/gateway"
	"github.com/chesscast/chesscast/pkg/logger"
	"github.com/chesscast/chesscast/pkg/media"
	"github.com/chesscast/chesscast/pkg/monitoring"
	"github.com/chesscast/chesscast/pkg/network/httpx"
	"github.com/chesscast/chesscast/pkg/network/webrtc"
	osx "github.com/chesscast/chesscast/pkg/os"
	"github.com/chesscast/chesscast/pkg/proc"
	"github.com/chesscast/chesscast/pkg/recognition"
	"github.com/chesscast/chesscast/pkg/service"
	"github.com/chesscast/chesscast/pkg/session"
	"github.com/chesscast/chesscast/pkg/storage"
	"github.com/joho/godotenv"
)

var Version = "?"

const shutdownTimeout = 10 * time.Second

var errEngineStopped = errors.New("media engine has stopped")

func main() {
	// .env is optional
	_ = godotenv.Load()

	config.PreParse(os.Args[1:])
	conf, err := config.NewConfig()
	if err != nil {
		panic(err)
	}
	conf.ParseFlags()

	log := newLogger(conf.Log)
	log.Info().Msgf("version %s", Version)
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	if err := run(conf, log); err != nil {
		log.Fatal().Err(err).Msg("chesscast has failed")
	}
}

func newLogger(conf config.Log) *logger.Logger {
	if !conf.HasFile() {
		return logger.NewConsole(conf.Debug, "cc", conf.NoColor)
	}
	file := logger.NewRotatingFile(logger.FileOptions{
		Path:       conf.File.Path,
		MaxSizeMB:  conf.File.MaxSizeMB,
		MaxBackups: conf.File.MaxBackups,
		MaxAgeDays: conf.File.MaxAgeDays,
	})
	return logger.NewConsoleWithFile(conf.Debug, "cc", conf.NoColor, file)
}

func run(conf config.Config, log *logger.Logger) error {
	ctx := context.Background()

	remote, err := storage.New(ctx, conf.Storage, log)
	if err != nil {
		return err
	}
	store, err := calibration.NewStore(conf.Mappings.Dir, remote, log.Module("mappings"))
	if err != nil {
		return err
	}
	spawner := proc.Exec{WaitDelay: 2 * time.Second}
	calibrator := calibration.NewCoordinator(conf.Calibration.Command, spawner, store, log)
	recognizer := recognition.NewManager(recognition.Config{
		Command:     conf.Recognition.Command,
		ModelPath:   conf.Recognition.ModelPath,
		MappingsDir: store.Dir(),
		QueueSize:   conf.Recognition.QueueSize,
		Advisory:    conf.Recognition.Advisory,
	}, spawner, log)

	factory, err := webrtc.NewApiFactory(conf.Webrtc, log, media.RegisterCodecs, nil)
	if err != nil {
		return err
	}
	engine := media.NewPionEngine(factory.API(), factory.ICEServers(), conf.Webrtc.GatherTimeout, log)
	rooms := media.NewManager(engine, log)

	hub := gateway.NewHub(conf.Gateway, session.NewRegistry(log), recognizer, calibrator, rooms, log)
	server, err := httpx.NewServer(
		conf.Server.GetAddr(),
		func(*httpx.Server) httpx.Handler {
			mux := httpx.NewServeMux("")
			hub.Routes(mux)
			return mux
		},
		httpx.WithServerConfig(conf.Server),
		httpx.WithLogger(log),
	)
	if err != nil {
		return err
	}

	services := service.Group{}
	if conf.Monitoring.IsEnabled() {
		mon, err := monitoring.New(conf.Monitoring, log)
		if err != nil {
			return err
		}
		services.Add(mon)
	}
	if conf.Mappings.Watch {
		watcher, err := calibration.NewWatcher(store.Dir(), hub.OnMappingChange, log)
		if err != nil {
			return err
		}
		services.Add(watcher)
	}
	services.Add(server)
	services.Start()
	log.Info().Msgf("Chess streams are at %v://%v%v", server.GetProtocol(), server.Addr, conf.Gateway.Path)

	failure := wait(osx.ExpectTermination(), rooms.Done(), engine.Err)
	if failure != nil {
		log.Error().Err(failure).Msg("Shutting down")
	}

	sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := services.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("service shutdown errors")
	}
	for _, s := range []interface {
		Shutdown(context.Context) error
	}{hub, recognizer, rooms} {
		if err := s.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msgf("%v shutdown", s)
		}
	}
	if err := factory.Close(); err != nil {
		log.Error().Err(err).Msg("webrtc close")
	}
	return failure
}

// wait blocks until the process is asked to stop or the media engine dies.
// Every media room needs the engine, so its death is fatal.
func wait(term, engineDone <-chan struct{}, cause func() error) error {
	select {
	case <-term:
		return nil
	case <-engineDone:
		if err := cause(); err != nil {
			return fmt.Errorf("media engine has stopped: %w", err)
		}
		return errEngineStopped
	}
}

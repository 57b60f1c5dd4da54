package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/live-capture-wrapper/internal/db"
	"github.com/airenas/live-capture-wrapper/internal/handlers"
	"github.com/airenas/live-capture-wrapper/internal/reconcile"
	"github.com/airenas/live-capture-wrapper/internal/service"
	"github.com/airenas/live-capture-wrapper/internal/session"
	"github.com/airenas/live-capture-wrapper/internal/silence"
	"github.com/airenas/live-capture-wrapper/internal/stream"
	"github.com/labstack/gommon/color"
)

type dataStore interface {
	session.NoteSaver
	session.AudioSaver
	service.NoteProvider
	service.AudioProvider
}

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	cfg.SetDefault("port", 8000)
	cfg.SetDefault("capture.sampleRate", 16000)
	cfg.SetDefault("capture.blockSize", 4096)
	cfg.SetDefault("capture.silenceTimeout", silence.DefaultTimeout)
	cfg.SetDefault("capture.newUtteranceRatio", reconcile.DefaultRatio)
	cfg.SetDefault("capture.keepAudio", false)

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	speechURL := cfg.GetString("speech.url")
	if speechURL == "" {
		goapp.Log.Fatal().Msg("no speech.url")
	}
	sampleRate := cfg.GetInt("capture.sampleRate")
	dial := func(ctx context.Context) (session.Transport, error) {
		res, err := stream.Dial(ctx, speechURL, sampleRate)
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	var store dataStore
	if redisURL := cfg.GetString("redis.url"); redisURL != "" {
		rdb, err := db.NewRedisDataManager(redisURL, cfg.GetString("redis.key"), sampleRate)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init redis")
		}
		defer rdb.Close()
		store = rdb
	} else {
		goapp.Log.Warn().Msg("no redis.url, notes are kept in memory")
		store = db.NewMemoryDataManager(sampleRate)
	}

	sCfg := session.Config{
		SilenceTimeout:    cfg.GetDuration("capture.silenceTimeout"),
		NewUtteranceRatio: cfg.GetFloat64("capture.newUtteranceRatio"),
		KeepAudio:         cfg.GetBool("capture.keepAudio"),
	}
	goapp.Log.Info().Dur("silence", sCfg.SilenceTimeout).Float64("ratio", sCfg.NewUtteranceRatio).
		Bool("keepAudio", sCfg.KeepAudio).Msg("capture")
	capture := service.NewCaptureHandler(sCfg, cfg.GetInt("capture.blockSize"), dial, store, store)
	capture.TextMiddleware = handlers.NewListHandler(handlers.NewCleaner())
	capture.NoteMiddleware = initNoteMiddleware()

	data := &service.Data{}
	data.Ctx = ctx
	data.Port = cfg.GetInt("port")
	data.CaptureHandler = capture
	data.Notes = store
	if sCfg.KeepAudio {
		data.Audio = store
	}

	doneCh, err := service.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}

	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

func initNoteMiddleware() session.Handler {
	cfg := goapp.Config
	res := handlers.NewListHandler()
	if url := cfg.GetString("joiner.url"); url != "" {
		joiner, err := handlers.NewJoiner(url)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init joiner")
		}
		res.Add(joiner)
	}
	if url := cfg.GetString("punctuator.url"); url != "" {
		punctuator, err := handlers.NewPunctuator(url)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init punctuator")
		}
		res.Add(punctuator)
	}
	if res.Len() == 0 {
		return nil
	}
	return res
}

var (
	version = "DEV"
)

func printBanner() {
	banner :=
		`
    LIVE CAPTURE WRAPPER v: %s
	
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/live-capture-wrapper"))
}

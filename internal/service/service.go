package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/websocket"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/live-capture-wrapper/internal/db"
	"github.com/airenas/live-capture-wrapper/internal/domain"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NoteProvider returns saved notes
type NoteProvider interface {
	ListNotes(ctx context.Context, patientID string) ([]*domain.Note, error)
}

// AudioProvider returns kept session audio as WAV
type AudioProvider interface {
	GetAudio(ctx context.Context, id string) ([]byte, error)
}

// Data keeps data required for service work
type Data struct {
	Port           int
	CaptureHandler *CaptureHandler
	Notes          NoteProvider
	Audio          AudioProvider
	Ctx            context.Context
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) (<-chan struct{}, error) {
	goapp.Log.Info().Msgf("Starting live capture service at %d", data.Port)
	if err := validate(data); err != nil {
		return nil, err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 10 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	res := make(chan struct{}, 1)
	go func() {
		defer close(res)
		if err := gracehttp.Serve(e.Server); err != nil {
			goapp.Log.Error().Err(err).Msg("can't start web server")
		}
		goapp.Log.Info().Msg("exit http routine")
	}()
	return res, nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("live_capture", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/live", live(data))
	e.GET("/client/ws/capture", capture(data))
	e.GET("/notes/:patient", notes(data))
	if data.Audio != nil {
		e.GET("/audio/:id", audio(data))
	}

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func validate(data *Data) error {
	if data.CaptureHandler == nil {
		return fmt.Errorf("no CaptureHandler")
	}
	if data.Notes == nil {
		return fmt.Errorf("no Notes")
	}
	return nil
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

func capture(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		patient := c.QueryParam("patient")
		if patient == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no patient")
		}
		ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return err
		}
		defer ws.Close()

		return data.CaptureHandler.HandleConnection(data.Ctx, ws, patient)
	}
}

func notes(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		res, err := data.Notes.ListNotes(c.Request().Context(), c.Param("patient"))
		if err != nil {
			goapp.Log.Error().Err(err).Msg("can't list notes")
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if res == nil {
			res = []*domain.Note{}
		}
		return c.JSON(http.StatusOK, res)
	}
}

func audio(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		res, err := data.Audio.GetAudio(c.Request().Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound)
			}
			goapp.Log.Error().Err(err).Msg("can't get audio")
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.Blob(http.StatusOK, "audio/wav", res)
	}
}

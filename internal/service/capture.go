package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/live-capture-wrapper/internal/api"
	"github.com/airenas/live-capture-wrapper/internal/pcm"
	"github.com/airenas/live-capture-wrapper/internal/session"
	"github.com/gorilla/websocket"
)

// CaptureHandler runs a capture session for each UI connection
type CaptureHandler struct {
	cfg       session.Config
	blockSize int
	dial      session.DialFunc
	notes     session.NoteSaver
	audios    session.AudioSaver
	stopWait  time.Duration

	TextMiddleware session.Handler
	NoteMiddleware session.Handler
}

// NewCaptureHandler creates handler, audios may be nil
func NewCaptureHandler(cfg session.Config, blockSize int, dial session.DialFunc, notes session.NoteSaver,
	audios session.AudioSaver) *CaptureHandler {
	return &CaptureHandler{cfg: cfg, blockSize: blockSize, dial: dial, notes: notes, audios: audios,
		stopWait: time.Second * 15}
}

// HandleConnection loops until the UI connection is active, the session is stopped on exit
func (h *CaptureHandler) HandleConnection(ctx context.Context, conn WsConn, patientID string) error {
	goapp.Log.Info().Str("patient", patientID).Msg("capture connection")
	mic := newWSMicrophone(h.blockSize)
	ctrl, err := session.NewController(h.cfg, mic, h.dial, h.notes, h.audios)
	if err != nil {
		return err
	}
	ctrl.TextMiddleware = h.TextMiddleware
	ctrl.NoteMiddleware = h.NoteMiddleware
	w := &msgWriter{conn: conn}
	ctrl.OnUpdate = func(s session.Snapshot) {
		w.write(toUpdateMsg(s))
	}

	connCtx, cf := context.WithCancel(ctx)
	defer cf()
	wg := &sync.WaitGroup{}
	defer func() {
		cf()
		h.stop(ctrl)
		wg.Wait()
		goapp.Log.Info().Str("patient", patientID).Msg("capture connection finish")
	}()

	for d := range readWebSocket(connCtx, conn) {
		if d.t == websocket.BinaryMessage {
			samples, err := pcm.DecodeFloat32(d.msg)
			if err != nil {
				goapp.Log.Warn().Err(err).Msg("bad audio block")
				continue
			}
			mic.Push(samples)
			continue
		}
		if d.t != websocket.TextMessage {
			continue
		}
		cmd := string(d.msg)
		goapp.Log.Debug().Str("cmd", cmd).Msg("got")
		switch cmd {
		case api.EventStartCapture:
			acquire, err := ctrl.BeginStart(connCtx, patientID)
			if err != nil {
				w.write(toErrorMsg(err))
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := acquire(); err != nil && !errors.Is(err, session.ErrStopped) {
					w.write(toErrorMsg(err))
				}
			}()
		case api.EventStopCapture:
			finish := ctrl.BeginStop()
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.finish(finish)
			}()
		case api.EventMicGranted:
			mic.Answer(nil)
		case api.EventMicDenied:
			mic.Answer(session.ErrPermissionDenied)
		case api.EventMicNotFound:
			mic.Answer(session.ErrNoDevice)
		default:
			goapp.Log.Warn().Str("cmd", cmd).Msg("unknown command")
		}
	}
	return nil
}

func (h *CaptureHandler) stop(ctrl *session.Controller) {
	h.finish(ctrl.BeginStop())
}

// finish does not depend on the connection, the note must be saved after the UI leaves
func (h *CaptureHandler) finish(f func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.stopWait)
	defer cancel()
	if err := f(ctx); err != nil {
		goapp.Log.Error().Err(err).Msg("can't stop")
	}
}

type msgWriter struct {
	lock sync.Mutex
	conn WsConn
}

func (w *msgWriter) write(msg *api.CaptureMsg) {
	b, err := json.Marshal(msg)
	if err != nil {
		goapp.Log.Error().Err(err).Msg("can't marshal")
		return
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		goapp.Log.Warn().Err(err).Msg("can't write")
	}
}

func toUpdateMsg(s session.Snapshot) *api.CaptureMsg {
	res := &api.CaptureMsg{Event: api.EventUpdate, State: s.State.String(), Paused: s.Paused,
		Message: s.Message, Completed: s.Completed}
	if s.Err != nil {
		res.Error = s.Err.Error()
		res.ErrorCode = errorCode(s.Err)
	}
	return res
}

func toErrorMsg(err error) *api.CaptureMsg {
	return &api.CaptureMsg{Event: api.EventError, Error: err.Error(), ErrorCode: errorCode(err)}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrPermissionDenied):
		return api.ErrCodePermission
	case errors.Is(err, session.ErrNoDevice):
		return api.ErrCodeNoDevice
	case errors.Is(err, session.ErrConnection):
		return api.ErrCodeConnection
	case errors.Is(err, session.ErrService):
		return api.ErrCodeService
	case errors.Is(err, session.ErrAudioEnded):
		return api.ErrCodeAudio
	case errors.Is(err, session.ErrBusy):
		return api.ErrCodeBusy
	}
	return api.ErrCodeUnknown
}

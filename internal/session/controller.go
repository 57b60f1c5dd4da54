package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/live-capture-wrapper/internal/domain"
	"github.com/airenas/live-capture-wrapper/internal/pcm"
	"github.com/airenas/live-capture-wrapper/internal/reconcile"
	"github.com/airenas/live-capture-wrapper/internal/silence"
	"github.com/airenas/live-capture-wrapper/internal/stream"
	"github.com/oklog/ulid/v2"
)

// Config of the capture session
type Config struct {
	SilenceTimeout    time.Duration
	NewUtteranceRatio float64
	KeepAudio         bool
}

// Snapshot is the observable state of the controller
type Snapshot struct {
	State     State
	Paused    bool
	Message   *domain.ActiveMessage
	Completed []domain.CompletedMessage
	Err       error
}

// Controller runs one recording session at a time
type Controller struct {
	cfg    Config
	mic    Microphone
	dial   DialFunc
	notes  NoteSaver
	audios AudioSaver

	// TextMiddleware is applied to every partial transcript before reconciling
	TextMiddleware Handler
	// NoteMiddleware is applied to the note content before saving
	NoteMiddleware Handler
	// OnUpdate is called after each state change, must not block for long
	OnUpdate func(Snapshot)

	lock      sync.Mutex
	state     State
	rec       *recording
	completed []domain.CompletedMessage
	err       error
}

type recording struct {
	id        string
	patientID string

	ctx         context.Context
	cancel      func()
	cancelStart func()

	reconciler *reconcile.Reconciler
	watchdog   *silence.Watchdog
	audio      AudioStream
	transport  Transport

	paused bool
	active domain.ActiveMessage
	chunks [][]byte
	wg     sync.WaitGroup
}

// NewController creates controller, notes and audios may be nil
func NewController(cfg Config, mic Microphone, dial DialFunc, notes NoteSaver, audios AudioSaver) (*Controller, error) {
	if mic == nil {
		return nil, fmt.Errorf("no microphone")
	}
	if dial == nil {
		return nil, fmt.Errorf("no dial func")
	}
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = silence.DefaultTimeout
	}
	if cfg.NewUtteranceRatio <= 0 {
		cfg.NewUtteranceRatio = reconcile.DefaultRatio
	}
	return &Controller{cfg: cfg, mic: mic, dial: dial, notes: notes, audios: audios}, nil
}

// Start acquires the microphone, connects to the transcription service and starts recording.
// Blocks until recording is running or failed.
func (c *Controller) Start(ctx context.Context, patientID string) error {
	acquire, err := c.BeginStart(ctx, patientID)
	if err != nil {
		return err
	}
	return acquire()
}

// BeginStart moves the controller to Starting right away. The returned func
// acquires the microphone and the transport and may block until the user answers.
// A Stop called in between makes it return ErrStopped.
func (c *Controller) BeginStart(ctx context.Context, patientID string) (func() error, error) {
	c.lock.Lock()
	if c.state != Idle {
		c.lock.Unlock()
		return nil, ErrBusy
	}
	r := c.newRecording(patientID)
	startCtx, cancelStart := context.WithCancel(ctx)
	r.cancelStart = cancelStart
	c.rec = r
	c.state = Starting
	c.err = nil
	c.completed = nil
	c.lock.Unlock()
	c.publish()
	goapp.Log.Info().Str("session", r.id).Str("patient", patientID).Msg("starting")
	return func() error {
		defer cancelStart()
		return c.acquire(startCtx, r)
	}, nil
}

func (c *Controller) acquire(ctx context.Context, r *recording) error {
	audio, err := c.mic.Open(ctx)
	if err != nil {
		if !c.current(r, Starting) {
			return ErrStopped
		}
		if !errors.Is(err, ErrPermissionDenied) && !errors.Is(err, ErrNoDevice) {
			err = fmt.Errorf("can't open microphone: %w", err)
		}
		c.abortStart(r, err)
		return err
	}
	if !c.current(r, Starting) {
		closeQuietly("audio", audio.Close)
		return ErrStopped
	}

	transport, err := c.dial(ctx)
	if err != nil {
		closeQuietly("audio", audio.Close)
		if !c.current(r, Starting) {
			return ErrStopped
		}
		err = fmt.Errorf("%w: %w", ErrConnection, err)
		c.abortStart(r, err)
		return err
	}

	c.lock.Lock()
	if c.rec != r || c.state != Starting {
		c.lock.Unlock()
		closeQuietly("audio", audio.Close)
		closeQuietly("transport", transport.Close)
		return ErrStopped
	}
	r.audio = audio
	r.transport = transport
	r.watchdog = silence.New(c.cfg.SilenceTimeout, func() { c.onSilence(r) })
	c.state = Recording
	r.wg.Add(2)
	go c.pump(r)
	go c.listen(r)
	c.lock.Unlock()
	c.publish()
	goapp.Log.Info().Str("session", r.id).Msg("recording")
	return nil
}

// Stop finalizes the recording, releases all resources and saves the note.
// Calling it when nothing is recorded is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	return c.BeginStop()(ctx)
}

// BeginStop leaves Starting or Recording right away. The returned func
// releases resources and saves the note, it is a no-op if nothing was recorded.
func (c *Controller) BeginStop() func(ctx context.Context) error {
	c.lock.Lock()
	switch c.state {
	case Idle, Stopping:
		c.lock.Unlock()
		return noop
	case Starting:
		r := c.rec
		c.rec = nil
		c.state = Idle
		c.lock.Unlock()
		r.cancelStart()
		r.cancel()
		goapp.Log.Info().Str("session", r.id).Msg("start canceled")
		c.publish()
		return noop
	}
	return c.beginTeardown(c.rec, nil)
}

func noop(context.Context) error { return nil }

// Snapshot returns the current state
func (c *Controller) Snapshot() Snapshot {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() Snapshot {
	res := Snapshot{State: c.state, Err: c.err}
	if c.rec != nil && (c.state == Recording || c.state == Stopping) {
		msg := c.rec.active
		res.Message = &msg
		res.Paused = c.rec.paused
	}
	if len(c.completed) > 0 {
		res.Completed = append([]domain.CompletedMessage(nil), c.completed...)
	}
	return res
}

func (c *Controller) publish() {
	if c.OnUpdate == nil {
		return
	}
	c.OnUpdate(c.Snapshot())
}

func (c *Controller) newRecording(patientID string) *recording {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	res := &recording{
		id:         ulid.Make().String(),
		patientID:  patientID,
		ctx:        ctx,
		cancel:     cancel,
		reconciler: reconcile.New(c.cfg.NewUtteranceRatio),
	}
	res.active = domain.ActiveMessage{ID: res.id, Timestamp: now}
	return res
}

func (c *Controller) current(r *recording, state State) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.rec == r && c.state == state
}

func (c *Controller) abortStart(r *recording, err error) {
	c.lock.Lock()
	if c.rec != r {
		c.lock.Unlock()
		return
	}
	c.rec = nil
	c.state = Idle
	c.err = err
	c.lock.Unlock()
	r.cancel()
	goapp.Log.Error().Err(err).Str("session", r.id).Msg("can't start")
	c.publish()
}

// pump encodes captured audio and forwards it to the transport
func (c *Controller) pump(r *recording) {
	defer r.wg.Done()
	frames := r.audio.Frames()
	for {
		select {
		case <-r.ctx.Done():
			return
		case samples, ok := <-frames:
			if !ok {
				go c.abort(r, ErrAudioEnded)
				return
			}
			frame := pcm.Encode(samples)
			if c.cfg.KeepAudio {
				r.chunks = append(r.chunks, frame)
			}
			if err := r.transport.Send(frame); err != nil {
				go c.abort(r, fmt.Errorf("%w: %w", ErrConnection, err))
				return
			}
		}
	}
}

// listen handles transcription events one by one in arrival order
func (c *Controller) listen(r *recording) {
	defer r.wg.Done()
	events := r.transport.Events()
	for {
		select {
		case <-r.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				go c.abort(r, fmt.Errorf("%w: %w", ErrConnection, stream.ErrRemoteClosed))
				return
			}
			if ev.Err != nil {
				go c.abort(r, classify(ev.Err))
				return
			}
			c.onTranscript(r, ev)
		}
	}
}

func classify(err error) error {
	var se *stream.ServiceError
	if errors.As(err, &se) {
		return fmt.Errorf("%w: %s", ErrService, se.Msg)
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}

func (c *Controller) onTranscript(r *recording, ev stream.Event) {
	text := ev.Text
	if c.TextMiddleware != nil {
		res, err := c.TextMiddleware.Process(r.ctx, text)
		if err != nil {
			goapp.Log.Error().Err(err).Msg("text middleware")
		} else {
			text = res
		}
	}

	c.lock.Lock()
	if c.rec != r || c.state != Recording {
		c.lock.Unlock()
		return
	}
	var accepted bool
	if ev.Final {
		accepted = r.reconciler.ApplyFinal(text)
	} else {
		accepted = r.reconciler.Apply(text)
	}
	if !accepted {
		c.lock.Unlock()
		return
	}
	r.paused = false
	r.active.Text = r.reconciler.Text()
	text = r.active.Text
	r.watchdog.Reset()
	c.lock.Unlock()
	goapp.Log.Debug().Str("session", r.id).Str("text", text).Msg("updated")
	c.publish()
}

func (c *Controller) onSilence(r *recording) {
	c.lock.Lock()
	if c.rec != r || c.state != Recording {
		c.lock.Unlock()
		return
	}
	r.paused = true
	r.reconciler.Finalize()
	r.active.Text = r.reconciler.Text()
	c.lock.Unlock()
	goapp.Log.Debug().Str("session", r.id).Msg("paused")
	c.publish()
}

func (c *Controller) abort(r *recording, err error) {
	c.lock.Lock()
	if c.rec != r || c.state != Recording {
		c.lock.Unlock()
		return
	}
	goapp.Log.Error().Err(err).Str("session", r.id).Msg("session failed")
	if tErr := c.beginTeardown(r, err)(context.Background()); tErr != nil {
		goapp.Log.Error().Err(tErr).Str("session", r.id).Msg("teardown")
	}
}

// beginTeardown must be called with the lock held and state Recording, it unlocks
func (c *Controller) beginTeardown(r *recording, cause error) func(ctx context.Context) error {
	c.state = Stopping
	c.err = cause
	r.cancel()
	r.watchdog.Stop()
	r.reconciler.Finalize()
	r.active.Text = r.reconciler.Text()
	c.completed = append(c.completed, domain.CompletedMessage(r.active))
	completed := append([]domain.CompletedMessage(nil), c.completed...)
	c.lock.Unlock()
	c.publish()
	return func(ctx context.Context) error {
		return c.finishTeardown(ctx, r, completed)
	}
}

func (c *Controller) finishTeardown(ctx context.Context, r *recording, completed []domain.CompletedMessage) error {
	err := errors.Join(r.release()...)
	r.wg.Wait()

	if sErr := c.save(ctx, r, completed); sErr != nil {
		err = errors.Join(err, sErr)
	}

	c.lock.Lock()
	c.rec = nil
	c.state = Idle
	c.lock.Unlock()
	goapp.Log.Info().Str("session", r.id).Msg("stopped")
	c.publish()
	return err
}

// release closes every resource even if some of them fail
func (r *recording) release() []error {
	var res []error
	if r.audio != nil {
		if err := r.audio.Close(); err != nil {
			res = append(res, fmt.Errorf("close audio: %w", err))
		}
	}
	if r.transport != nil {
		if err := r.transport.Close(); err != nil {
			res = append(res, fmt.Errorf("close transport: %w", err))
		}
	}
	return res
}

func (c *Controller) save(ctx context.Context, r *recording, completed []domain.CompletedMessage) error {
	var err error
	if c.notes != nil {
		err = c.saveNote(ctx, r, completed)
	}
	if c.cfg.KeepAudio && c.audios != nil && len(r.chunks) > 0 {
		if aErr := c.audios.SaveAudio(ctx, r.id, r.chunks); aErr != nil {
			err = errors.Join(err, fmt.Errorf("save audio: %w", aErr))
		}
	}
	return err
}

func (c *Controller) saveNote(ctx context.Context, r *recording, completed []domain.CompletedMessage) error {
	content := NoteContent(completed)
	if content == "" {
		goapp.Log.Info().Str("session", r.id).Msg("nothing to save")
		return nil
	}
	if c.NoteMiddleware != nil {
		res, err := c.NoteMiddleware.Process(ctx, content)
		if err != nil {
			goapp.Log.Error().Err(err).Msg("note middleware")
		} else {
			content = res
		}
	}
	note := &domain.Note{
		ID:        ulid.Make().String(),
		PatientID: r.patientID,
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Type:      domain.NoteTypeLiveCapture,
		Speaker:   domain.SpeakerSystem,
	}
	if err := c.notes.SaveNote(ctx, note); err != nil {
		return fmt.Errorf("save note: %w", err)
	}
	goapp.Log.Info().Str("session", r.id).Str("note", note.ID).Msg("note saved")
	return nil
}

// NoteContent joins non-empty message texts with a blank line
func NoteContent(msgs []domain.CompletedMessage) string {
	var parts []string
	for _, m := range msgs {
		if t := strings.TrimSpace(m.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

func closeQuietly(what string, f func() error) {
	if err := f(); err != nil {
		goapp.Log.Warn().Err(err).Str("what", what).Msg("can't close")
	}
}

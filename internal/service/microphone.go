package service

import (
	"context"
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/live-capture-wrapper/internal/pcm"
	"github.com/airenas/live-capture-wrapper/internal/session"
)

const framesBuffer = 100

// wsMicrophone is the browser microphone behind the UI websocket.
// The UI reports the permission answer and then streams float32 blocks.
type wsMicrophone struct {
	blockSize int
	consent   chan error

	lock    sync.Mutex
	stream  *wsAudioStream
	blocker *pcm.Blocker
}

func newWSMicrophone(blockSize int) *wsMicrophone {
	return &wsMicrophone{blockSize: blockSize, consent: make(chan error, 1)}
}

// Open waits for the permission answer of the UI
func (m *wsMicrophone) Open(ctx context.Context) (session.AudioStream, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-m.consent:
		if err != nil {
			return nil, err
		}
	}
	res := &wsAudioStream{frames: make(chan []float32, framesBuffer)}
	m.lock.Lock()
	m.stream = res
	m.blocker = pcm.NewBlocker(m.blockSize)
	m.lock.Unlock()
	return res, nil
}

// Answer keeps the latest permission answer, nil means granted
func (m *wsMicrophone) Answer(err error) {
	select {
	case <-m.consent:
	default:
	}
	select {
	case m.consent <- err:
	default:
	}
}

// Push forwards samples to the opened stream, they are dropped if nothing is opened
func (m *wsMicrophone) Push(samples []float32) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.stream == nil {
		goapp.Log.Trace().Int("len", len(samples)).Msg("no stream, drop")
		return
	}
	for _, b := range m.blocker.Add(samples) {
		if !m.stream.push(b) {
			m.stream = nil
			return
		}
	}
}

type wsAudioStream struct {
	lock   sync.Mutex
	frames chan []float32
	closed bool
}

func (s *wsAudioStream) Frames() <-chan []float32 {
	return s.frames
}

func (s *wsAudioStream) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
	return nil
}

// push returns false if the stream is closed
func (s *wsAudioStream) push(samples []float32) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.frames <- samples:
	default:
		goapp.Log.Warn().Int("len", len(samples)).Msg("audio buffer full, drop")
	}
	return true
}

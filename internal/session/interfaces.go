package session

import (
	"context"

	"github.com/airenas/live-capture-wrapper/internal/domain"
	"github.com/airenas/live-capture-wrapper/internal/stream"
)

// Microphone provides audio capture. Open may block until the user answers
// the permission prompt and must return when ctx is canceled.
type Microphone interface {
	Open(ctx context.Context) (AudioStream, error)
}

// AudioStream is an opened capture, Close stops all tracks
type AudioStream interface {
	Frames() <-chan []float32
	Close() error
}

// Transport is a connection to the transcription service
type Transport interface {
	Send(frame []byte) error
	Events() <-chan stream.Event
	Close() error
}

// DialFunc opens a Transport
type DialFunc func(ctx context.Context) (Transport, error)

type NoteSaver interface {
	SaveNote(ctx context.Context, note *domain.Note) error
}

type AudioSaver interface {
	SaveAudio(ctx context.Context, id string, chunks [][]byte) error
}

// Handler transforms text
type Handler interface {
	Process(context.Context, string) (string, error)
}

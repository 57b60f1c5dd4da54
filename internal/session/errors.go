package session

import "errors"

var (
	// ErrPermissionDenied - user or OS refused microphone access
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrNoDevice - no microphone present
	ErrNoDevice = errors.New("no microphone found")
	// ErrConnection - transcription service unreachable or connection lost
	ErrConnection = errors.New("transcription service connection error")
	// ErrService - transcription service reported it can't continue
	ErrService = errors.New("transcription service error")
	// ErrAudioEnded - audio capture stopped delivering frames
	ErrAudioEnded = errors.New("audio capture ended")
	// ErrBusy is returned by Start when a session is already running
	ErrBusy = errors.New("session is active")
	// ErrStopped is returned by Start when Stop was called before start completed
	ErrStopped = errors.New("session stopped")
)

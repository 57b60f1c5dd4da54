package api

import "github.com/airenas/live-capture-wrapper/internal/domain"

// Commands sent by the UI
const (
	EventStartCapture = "START_CAPTURE"
	EventStopCapture  = "STOP_CAPTURE"
	EventMicGranted   = "MIC_GRANTED"
	EventMicDenied    = "MIC_DENIED"
	EventMicNotFound  = "MIC_NOT_FOUND"
)

// Events sent to the UI
const (
	EventUpdate = "UPDATE"
	EventError  = "ERROR"
)

// Error codes, the UI offers retry for all of them
const (
	ErrCodePermission = "permission_denied"
	ErrCodeNoDevice   = "no_device"
	ErrCodeConnection = "connection"
	ErrCodeService    = "service"
	ErrCodeAudio      = "audio_ended"
	ErrCodeBusy       = "busy"
	ErrCodeUnknown    = "unknown"
)

// CaptureMsg is the message sent to the UI
type CaptureMsg struct {
	Event     string                    `json:"event"`
	State     string                    `json:"state,omitempty"`
	Paused    bool                      `json:"paused"`
	Message   *domain.ActiveMessage     `json:"message,omitempty"`
	Completed []domain.CompletedMessage `json:"completed,omitempty"`
	Error     string                    `json:"error,omitempty"`
	ErrorCode string                    `json:"errorCode,omitempty"`
}

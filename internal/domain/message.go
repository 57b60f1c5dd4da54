package domain

import "time"

const (
	// NoteTypeLiveCapture marks notes produced by the live capture
	NoteTypeLiveCapture = "live_capture"
	// SpeakerSystem is the speaker of captured notes
	SpeakerSystem = "system"
)

// ActiveMessage is the single message updated in place during a recording
type ActiveMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CompletedMessage is a frozen copy of an ActiveMessage
type CompletedMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Note is the record saved when a recording stops
type Note struct {
	ID        string `json:"id"`
	PatientID string `json:"patientId"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Speaker   string `json:"speaker"`
}

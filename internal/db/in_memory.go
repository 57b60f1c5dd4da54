package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/live-capture-wrapper/internal/domain"
	"github.com/airenas/live-capture-wrapper/internal/pcm"
)

// MemoryDataManager keeps notes and audio in memory, data is lost on restart
type MemoryDataManager struct {
	sampleRate int

	audio map[string][]byte
	notes map[string][]*domain.Note

	lock sync.RWMutex
}

func NewMemoryDataManager(sampleRate int) *MemoryDataManager {
	return &MemoryDataManager{
		sampleRate: sampleRate,
		audio:      make(map[string][]byte),
		notes:      make(map[string][]*domain.Note),
	}
}

// SaveAudio stores chunks as WAV
func (am *MemoryDataManager) SaveAudio(_ context.Context, id string, chunks [][]byte) error {
	goapp.Log.Info().Str("id", id).Int("chunks", len(chunks)).Msg("Save audio")
	res, err := pcm.ToWAV(chunks, am.sampleRate)
	if err != nil {
		return fmt.Errorf("to wav: %w", err)
	}
	am.lock.Lock()
	defer am.lock.Unlock()
	am.audio[id] = res
	return nil
}

func (am *MemoryDataManager) GetAudio(_ context.Context, id string) ([]byte, error) {
	am.lock.RLock()
	defer am.lock.RUnlock()
	data, ok := am.audio[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// SaveNote appends note to the patient's list
func (am *MemoryDataManager) SaveNote(_ context.Context, note *domain.Note) error {
	if note == nil || note.PatientID == "" {
		return fmt.Errorf("no patient")
	}
	am.lock.Lock()
	defer am.lock.Unlock()
	cp := *note
	am.notes[note.PatientID] = append(am.notes[note.PatientID], &cp)
	return nil
}

// ListNotes returns patient's notes in save order
func (am *MemoryDataManager) ListNotes(_ context.Context, patientID string) ([]*domain.Note, error) {
	am.lock.RLock()
	defer am.lock.RUnlock()
	res := make([]*domain.Note, 0, len(am.notes[patientID]))
	for _, n := range am.notes[patientID] {
		cp := *n
		res = append(res, &cp)
	}
	return res, nil
}

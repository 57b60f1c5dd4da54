package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/airenas/live-capture-wrapper/internal/session"
)

func TestMicrophone_Open(t *testing.T) {
	tests := []struct {
		name    string
		answer  error
		wantErr error
	}{
		{name: "granted"},
		{name: "denied", answer: session.ErrPermissionDenied, wantErr: session.ErrPermissionDenied},
		{name: "not found", answer: session.ErrNoDevice, wantErr: session.ErrNoDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newWSMicrophone(2)
			go m.Answer(tt.answer)
			got, err := m.Open(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() failed: %v", err)
			}
			_ = got.Close()
		})
	}
}

func TestMicrophone_OpenCanceled(t *testing.T) {
	m := newWSMicrophone(2)
	ctx, cf := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cf()
	}()
	if _, err := m.Open(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Open() error = %v, want canceled", err)
	}
}

func TestMicrophone_KeepsLastAnswer(t *testing.T) {
	m := newWSMicrophone(2)
	m.Answer(session.ErrPermissionDenied)
	m.Answer(nil)
	s, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	_ = s.Close()
}

func TestMicrophone_Push(t *testing.T) {
	m := newWSMicrophone(2)
	m.Push([]float32{1, 1})
	m.Answer(nil)
	s, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	m.Push([]float32{0.1, 0.2, 0.3})
	m.Push([]float32{0.4})
	var got [][]float32
	for i := 0; i < 2; i++ {
		select {
		case f := <-s.Frames():
			got = append(got, f)
		case <-time.After(time.Second):
			t.Fatalf("no frame %d", i)
		}
	}
	if len(got[0]) != 2 || got[0][0] != 0.1 || got[1][0] != 0.3 || got[1][1] != 0.4 {
		t.Errorf("frames = %v", got)
	}

	_ = s.Close()
	_ = s.Close()
	if _, ok := <-s.Frames(); ok {
		t.Error("frames not closed")
	}
	m.Push([]float32{0.1, 0.2})
}

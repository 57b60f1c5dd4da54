package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type failHandler struct{}

func (failHandler) Process(context.Context, string) (string, error) {
	return "", errors.New("fail")
}

type suffixHandler string

func (s suffixHandler) Process(_ context.Context, text string) (string, error) {
	return text + string(s), nil
}

func TestListHandler(t *testing.T) {
	h := NewListHandler(suffixHandler("a"), failHandler{})
	h.Add(suffixHandler("b"))
	got, err := h.Process(context.Background(), "x")
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if got != "xab" {
		t.Errorf("Process() = %q, want %q", got, "xab")
	}
	if h.Len() != 3 {
		t.Errorf("Len() = %d", h.Len())
	}
}

func TestCleaner(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trim", in: "  hello  ", want: "hello"},
		{name: "underscore", in: "blood_pressure high", want: "blood pressure high"},
		{name: "spaces", in: "a   b\tc", want: "a b c"},
		{name: "empty", in: " ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := NewCleaner().Process(context.Background(), tt.in)
			if got != tt.want {
				t.Errorf("Process() = %q, want %q", got, tt.want)
			}
		})
	}
}

func newTextServer(t *testing.T, status int, reply func(text string) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply(req.Text))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPunctuator(t *testing.T) {
	srv := newTextServer(t, http.StatusOK, func(text string) any {
		return punctResponse{PunctuatedText: strings.ToUpper(text[:1]) + text[1:] + "."}
	})
	p, err := NewPunctuator(srv.URL)
	if err != nil {
		t.Fatalf("NewPunctuator() failed: %v", err)
	}
	got, err := p.Process(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if got != "Hello there." {
		t.Errorf("Process() = %q", got)
	}
}

func TestJoiner(t *testing.T) {
	srv := newTextServer(t, http.StatusOK, func(text string) any {
		return joinResponse{Result: strings.ReplaceAll(text, "twenty five", "25")}
	})
	j, err := NewJoiner(srv.URL)
	if err != nil {
		t.Fatalf("NewJoiner() failed: %v", err)
	}
	got, err := j.Process(context.Background(), "pulse twenty five")
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if got != "pulse 25" {
		t.Errorf("Process() = %q", got)
	}
}

func TestTextService_Errors(t *testing.T) {
	if _, err := NewPunctuator(""); err == nil {
		t.Error("NewPunctuator() expected error for no url")
	}
	if _, err := NewJoiner(""); err == nil {
		t.Error("NewJoiner() expected error for no url")
	}
	srv := newTextServer(t, http.StatusInternalServerError, func(text string) any { return "err" })
	p, _ := NewPunctuator(srv.URL)
	if _, err := p.Process(context.Background(), "x"); err == nil {
		t.Error("Process() expected error for 500")
	}
}

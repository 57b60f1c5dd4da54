package handlers

import (
	"context"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/live-capture-wrapper/internal/utils"
)

// Punctuator calls punctuation service
type Punctuator struct {
	srv *textService
}

func NewPunctuator(url string) (*Punctuator, error) {
	srv, err := newTextService(url, time.Second*10)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("url", url).Msg("Punctuator")
	return &Punctuator{srv: srv}, nil
}

func (sp *Punctuator) Process(ctx context.Context, text string) (string, error) {
	defer utils.MeasureTime("punctuator", time.Now())
	goapp.Log.Debug().Str("text", text).Msg("punctuating")
	res := &punctResponse{}
	if err := sp.srv.post(ctx, punctRequest{Text: text}, res); err != nil {
		return "", err
	}
	goapp.Log.Debug().Str("text", res.PunctuatedText).Msg("punctuation result")
	return res.PunctuatedText, nil
}

type punctRequest struct {
	Text string `json:"text"`
}

type punctResponse struct {
	PunctuatedText string   `json:"punctuatedText"`
	Original       []string `json:"original"`
	Punctuated     []string `json:"punctuated"`
}

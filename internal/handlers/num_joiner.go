package handlers

import (
	"context"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/live-capture-wrapper/internal/utils"
)

// Joiner calls number joiner service, it turns spelled numbers into digits
type Joiner struct {
	srv *textService
}

func NewJoiner(url string) (*Joiner, error) {
	srv, err := newTextService(url, time.Second*3)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("url", url).Msg("Joiner")
	return &Joiner{srv: srv}, nil
}

func (sp *Joiner) Process(ctx context.Context, text string) (string, error) {
	defer utils.MeasureTime("joiner", time.Now())
	res := &joinResponse{}
	if err := sp.srv.post(ctx, joinRequest{Text: text}, res); err != nil {
		return "", err
	}
	return res.Result, nil
}

type joinRequest struct {
	Text string `json:"text"`
}

type joinResponse struct {
	Result string `json:"result"`
}

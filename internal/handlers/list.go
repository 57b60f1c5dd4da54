package handlers

import (
	"context"

	"github.com/airenas/go-app/pkg/goapp"
)

// Handler transforms text
type Handler interface {
	Process(context.Context, string) (string, error)
}

// ListHandler passes text through a list of handlers.
// A failing handler is skipped, the text goes on unchanged.
type ListHandler struct {
	handlers []Handler
}

func NewListHandler(handlers ...Handler) *ListHandler {
	return &ListHandler{handlers: handlers}
}

func (sp *ListHandler) Process(ctx context.Context, data string) (string, error) {
	res := data
	for i, h := range sp.handlers {
		goapp.Log.Trace().Int("handler", i).Msg("Processing")
		dataNew, err := h.Process(ctx, res)
		if err != nil {
			goapp.Log.Error().Err(err).Int("handler", i).Msg("Can't process")
			continue
		}
		res = dataNew
	}
	return res, nil
}

func (sp *ListHandler) Add(h Handler) {
	sp.handlers = append(sp.handlers, h)
}

// Len returns count of handlers
func (sp *ListHandler) Len() int {
	return len(sp.handlers)
}

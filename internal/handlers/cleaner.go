package handlers

import (
	"context"
	"strings"
)

// Cleaner normalizes spacing of transcribed text
type Cleaner struct {
}

func NewCleaner() *Cleaner {
	return &Cleaner{}
}

func (sp *Cleaner) Process(_ context.Context, text string) (string, error) {
	text = strings.ReplaceAll(text, "_", " ")
	return strings.Join(strings.Fields(text), " "), nil
}

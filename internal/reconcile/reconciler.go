// Package reconcile folds streamed partial transcripts into one growing conversation text.
//
// The transcription backend resends the whole utterance-so-far on every update and
// gives no utterance boundary markers. A sudden drop of the text length below
// ratio*previous length is taken as the start of a new utterance. This is a
// heuristic: a long phrase trailing off into a short one can be split wrongly.
package reconcile

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultRatio is the length drop that marks a new utterance
const DefaultRatio = 0.5

// Reconciler keeps the state of one recording session. Not safe for concurrent use.
type Reconciler struct {
	ratio       float64
	prevLen     int
	current     string
	accumulated string
}

// New creates reconciler, ratio <= 0 falls back to DefaultRatio
func New(ratio float64) *Reconciler {
	if ratio <= 0 {
		ratio = DefaultRatio
	}
	return &Reconciler{ratio: ratio}
}

// Apply takes the next partial transcript. Returns false if the text was ignored.
func (r *Reconciler) Apply(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	l := utf8.RuneCountInString(text)
	if float64(l) < float64(r.prevLen)*r.ratio {
		r.fold()
	}
	r.current = text
	r.prevLen = l
	return true
}

// ApplyFinal applies text and closes the utterance at once
func (r *Reconciler) ApplyFinal(text string) bool {
	if !r.Apply(text) {
		return false
	}
	r.Finalize()
	r.prevLen = 0
	return true
}

// Finalize moves the in-progress utterance into the accumulated conversation.
// Returns true if there was something to move.
func (r *Reconciler) Finalize() bool {
	return r.fold()
}

func (r *Reconciler) fold() bool {
	if r.current == "" {
		return false
	}
	r.accumulated = join(r.accumulated, r.current)
	r.current = ""
	return true
}

// Text returns accumulated conversation with the in-progress utterance
func (r *Reconciler) Text() string {
	return join(r.accumulated, r.current)
}

// Accumulated returns finalized text only
func (r *Reconciler) Accumulated() string {
	return r.accumulated
}

// InProgress returns the current utterance
func (r *Reconciler) InProgress() string {
	return r.current
}

func join(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	last, _ := utf8.DecodeLastRuneInString(a)
	if unicode.IsSpace(last) {
		return a + b
	}
	return a + " " + b
}

//go:generate stringer -type=State
package session

// State of the capture session
type State int

const (
	Idle State = iota
	Starting
	Recording
	Stopping
)

package silence

import (
	"sync"
	"time"
)

// DefaultTimeout is the pause after which the current utterance is closed
const DefaultTimeout = 2 * time.Second

// Watchdog calls fire once if Reset is not called again within timeout.
// A fire scheduled before the latest Reset or Stop is dropped.
type Watchdog struct {
	timeout time.Duration
	fire    func()

	lock    sync.Mutex
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// New creates an idle watchdog, it starts counting on the first Reset
func New(timeout time.Duration, fire func()) *Watchdog {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Watchdog{timeout: timeout, fire: fire}
}

// Reset restarts the countdown
func (w *Watchdog) Reset() {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.seq++
	seq := w.seq
	w.timer = time.AfterFunc(w.timeout, func() { w.onTimer(seq) })
}

// Stop cancels the pending fire, the watchdog can't be used after it
func (w *Watchdog) Stop() {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.stopped = true
	w.seq++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watchdog) onTimer(seq uint64) {
	w.lock.Lock()
	if w.stopped || seq != w.seq {
		w.lock.Unlock()
		return
	}
	w.timer = nil
	w.lock.Unlock()
	w.fire()
}

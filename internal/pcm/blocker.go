package pcm

// Blocker collects samples and releases them in fixed size blocks
type Blocker struct {
	size int
	buf  []float32
}

// NewBlocker creates a blocker, size <= 0 disables re-chunking
func NewBlocker(size int) *Blocker {
	return &Blocker{size: size}
}

// Add appends samples and returns all full blocks collected so far
func (b *Blocker) Add(samples []float32) [][]float32 {
	if b.size <= 0 {
		if len(samples) == 0 {
			return nil
		}
		return [][]float32{samples}
	}
	b.buf = append(b.buf, samples...)
	var res [][]float32
	for len(b.buf) >= b.size {
		block := make([]float32, b.size)
		copy(block, b.buf[:b.size])
		res = append(res, block)
		b.buf = b.buf[b.size:]
	}
	return res
}

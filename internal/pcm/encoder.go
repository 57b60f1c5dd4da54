package pcm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode converts float samples to 16-bit signed little-endian PCM.
// Samples are clamped to [-1, 1]; negative values scale by 0x8000 and
// non-negative ones by 0x7FFF so +1.0 does not overflow. A non-zero sample
// never maps to 0.
func Encode(samples []float32) []byte {
	res := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(res[2*i:], uint16(toInt16(s)))
	}
	return res
}

func toInt16(s float32) int16 {
	if math.IsNaN(float64(s)) {
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	switch {
	case s < 0:
		return min(int16(s*0x8000), -1)
	case s > 0:
		return max(int16(s*0x7FFF), 1)
	}
	return 0
}

// DecodeFloat32 parses a block of float32 little-endian samples as sent by the browser worklet
func DecodeFloat32(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("wrong float32 block size %d", len(data))
	}
	res := make([]float32, len(data)/4)
	for i := range res {
		res[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return res, nil
}

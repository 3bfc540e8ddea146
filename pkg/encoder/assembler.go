package encoder

import "fmt"

// ErrTooLarge is returned when a coded frame does not fit into the
// assembler's buffer. The frame is dropped, the next one gets a fresh
// attempt.
var ErrTooLarge = fmt.Errorf("coded frame exceeds the assembly buffer")

// Assembler flattens the layer/unit structure of a Result into one
// contiguous byte sequence, keeping the codec's own unit boundaries
// (start codes etc.) untouched. The backing buffer is allocated once
// and reused for every frame.
type Assembler struct {
	buf []byte
}

// NewAssembler returns an assembler with a fixed capacity in bytes.
// Width*height of the stream is a workable bound for a codec that is
// expected to compress.
func NewAssembler(capacity int) *Assembler {
	return &Assembler{buf: make([]byte, capacity)}
}

// Cap returns the assembler's fixed capacity.
func (a *Assembler) Cap() int { return len(a.buf) }

// Assemble concatenates every coded unit of res, layers in order and
// units in order within a layer. The returned slice is a prefix of the
// reused buffer and stays valid only until the next Assemble call;
// a nil slice means there is nothing to publish for this frame.
func (a *Assembler) Assemble(res *Result) ([]byte, error) {
	total := 0
	for _, layer := range res.Layers {
		for _, unit := range layer.Units {
			if total+len(unit) > len(a.buf) {
				return nil, fmt.Errorf("%w: need more than %d bytes", ErrTooLarge, len(a.buf))
			}
			total += copy(a.buf[total:], unit)
		}
	}
	if total == 0 {
		return nil, nil
	}
	return a.buf[:total], nil
}

package encoder

// Picture describes one raw I420 frame inside an externally owned
// buffer. The plane slices alias that buffer, no copy is made; they are
// only safe to read while the caller holds the region lock.
type Picture struct {
	Width  int
	Height int
	// Y, Cb, Cr are the three planes with Stride, Stride/2, Stride/2
	// bytes per row respectively.
	Y, Cb, Cr []byte
	Stride    int
}

// Layer is the output of one spatial/temporal layer for a single frame:
// an ordered list of coded units (NAL units for H.264).
type Layer struct {
	Units [][]byte
}

// Result is what the codec produced for exactly one input frame.
// It is only valid until the next Encode call.
type Result struct {
	// Skipped is set when rate control decided to emit nothing for
	// this frame. Not an error.
	Skipped bool
	Layers  []Layer
}

// Codec turns raw pictures into coded frames. Implementations own the
// underlying engine exclusively and are not safe for concurrent use.
type Codec interface {
	// Encode processes one frame. A non-nil error is a transient
	// per-frame failure, the session stays usable.
	Encode(pic Picture) (*Result, error)
	// Shutdown releases the engine. Called once on loop exit.
	Shutdown() error
	// Info describes the underlying engine and its version.
	Info() string
}

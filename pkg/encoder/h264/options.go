package h264

// Options hold the encoder parameters fixed at session creation.
// There is no reconfiguration path, the session keeps them for its
// whole lifetime.
type Options struct {
	// FrameRate is the nominal rate the producer delivers frames at.
	// It is not measured, the wait on the shared region paces the
	// stream implicitly.
	FrameRate int
	// TargetBitrate and MaxBitrate in bits per second.
	TargetBitrate int
	MaxBitrate    int
	// Gop is the distance between forced reference frames.
	Gop int
	// Threads is a hint for the engine's internal threading.
	Threads int
	// AdaptiveQuant toggles adaptive quantization.
	AdaptiveQuant bool
	// BackgroundDetection toggles the engine's background detection.
	BackgroundDetection bool
	// Verbose raises the engine trace output from quiet to info.
	Verbose bool
}

// DefaultOptions returns the quality-targeted single-layer setup used
// for live camera streams.
func DefaultOptions(gop int, verbose bool) Options {
	return Options{
		FrameRate:           20,
		TargetBitrate:       2_500_000,
		MaxBitrate:          5_000_000,
		Gop:                 gop,
		Threads:             1,
		AdaptiveQuant:       true,
		BackgroundDetection: true,
		Verbose:             verbose,
	}
}

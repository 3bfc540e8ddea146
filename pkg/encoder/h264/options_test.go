package h264

import "testing"

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions(25, false)
	if opts.Gop != 25 {
		t.Errorf("gop = %d, want 25", opts.Gop)
	}
	if opts.TargetBitrate >= opts.MaxBitrate {
		t.Errorf("target bitrate %d must stay below max %d", opts.TargetBitrate, opts.MaxBitrate)
	}
	if opts.FrameRate <= 0 || opts.Threads <= 0 {
		t.Errorf("broken defaults: %+v", opts)
	}
	if DefaultOptions(10, true).Verbose == false {
		t.Error("verbose not carried into the options")
	}
}

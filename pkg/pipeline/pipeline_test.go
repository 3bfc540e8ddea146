package pipeline

import (
	"bytes"
	"errors"
	"testing"

	"github.com/framecast/framecast/pkg/encoder"
	"github.com/framecast/framecast/pkg/logger"
	"github.com/framecast/framecast/pkg/shm"
)

type fakeSource struct {
	data    []byte
	frames  int
	invalid bool
	onWait  func(s *fakeSource)
	locked  bool
	locks   int
}

func (s *fakeSource) Wait() bool {
	if s.invalid || s.frames == 0 {
		return false
	}
	s.frames--
	if s.onWait != nil {
		s.onWait(s)
	}
	return !s.invalid
}
func (s *fakeSource) Lock()        { s.locked = true; s.locks++ }
func (s *fakeSource) Unlock()      { s.locked = false }
func (s *fakeSource) Valid() bool  { return !s.invalid }
func (s *fakeSource) Data() []byte { return s.data }

type step struct {
	res *encoder.Result
	err error
}

type fakeCodec struct {
	steps     []step
	encodes   int
	shutdowns int
	pics      []encoder.Picture
	lockedAt  *fakeSource
	wasLocked []bool
}

func (c *fakeCodec) Encode(pic encoder.Picture) (*encoder.Result, error) {
	if c.lockedAt != nil {
		c.wasLocked = append(c.wasLocked, c.lockedAt.locked)
	}
	c.pics = append(c.pics, pic)
	st := c.steps[c.encodes%len(c.steps)]
	c.encodes++
	return st.res, st.err
}
func (c *fakeCodec) Shutdown() error { c.shutdowns++; return nil }
func (c *fakeCodec) Info() string    { return "fake" }

type published struct {
	payload []byte
	w, h    int
}

type fakePublisher struct {
	down  bool
	calls []published
}

func (p *fakePublisher) Publish(payload []byte, w, h int) error {
	if p.down {
		return errors.New("not running")
	}
	p.calls = append(p.calls, published{payload: bytes.Clone(payload), w: w, h: h})
	return nil
}
func (p *fakePublisher) Running() bool { return !p.down }

func newPipe(src *fakeSource, codec *fakeCodec, pub *fakePublisher, w, h int) *Pipeline {
	if src.data == nil {
		src.data = make([]byte, w*h*3/2)
	}
	codec.lockedAt = src
	return New(src, codec, pub, shm.Geometry{Width: w, Height: h}, logger.Default())
}

func coded(units ...[]byte) *encoder.Result {
	return &encoder.Result{Layers: []encoder.Layer{{Units: units}}}
}

func TestSkipNeverPublishes(t *testing.T) {
	src := &fakeSource{frames: 3}
	codec := &fakeCodec{steps: []step{{res: &encoder.Result{Skipped: true}}}}
	pub := &fakePublisher{}

	newPipe(src, codec, pub, 64, 48).Run()

	if codec.encodes != 3 {
		t.Errorf("encodes = %d, want 3", codec.encodes)
	}
	if len(pub.calls) != 0 {
		t.Errorf("skip produced %d publish calls", len(pub.calls))
	}
	if codec.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", codec.shutdowns)
	}
}

func TestEncodeFailureContinues(t *testing.T) {
	src := &fakeSource{frames: 2}
	codec := &fakeCodec{steps: []step{
		{err: errors.New("status 4")},
		{res: coded([]byte{1, 2, 3})},
	}}
	pub := &fakePublisher{}

	newPipe(src, codec, pub, 64, 48).Run()

	if codec.encodes != 2 {
		t.Errorf("a failure stopped the loop, encodes = %d", codec.encodes)
	}
	if len(pub.calls) != 1 || !bytes.Equal(pub.calls[0].payload, []byte{1, 2, 3}) {
		t.Errorf("published calls = %+v", pub.calls)
	}
}

func TestZeroBytesDoNotPublish(t *testing.T) {
	src := &fakeSource{frames: 1}
	codec := &fakeCodec{steps: []step{{res: coded([]byte{}, []byte{})}}}
	pub := &fakePublisher{}

	newPipe(src, codec, pub, 64, 48).Run()

	if len(pub.calls) != 0 {
		t.Errorf("empty result published %d times", len(pub.calls))
	}
}

func TestOversizedFrameIsDropped(t *testing.T) {
	src := &fakeSource{frames: 2}
	big := make([]byte, 64*48+1)
	codec := &fakeCodec{steps: []step{
		{res: coded(big)},
		{res: coded([]byte{9})},
	}}
	pub := &fakePublisher{}

	newPipe(src, codec, pub, 64, 48).Run()

	if len(pub.calls) != 1 || !bytes.Equal(pub.calls[0].payload, []byte{9}) {
		t.Errorf("oversized frame handling broken: %+v", pub.calls)
	}
}

func TestSessionDeathWhileWaitingStopsBeforeEncode(t *testing.T) {
	pub := &fakePublisher{}
	src := &fakeSource{frames: 5, onWait: func(*fakeSource) { pub.down = true }}
	codec := &fakeCodec{steps: []step{{res: coded([]byte{1})}}}

	newPipe(src, codec, pub, 64, 48).Run()

	if codec.encodes != 0 {
		t.Errorf("encoded %d frames for a dead session", codec.encodes)
	}
	if codec.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want exactly 1", codec.shutdowns)
	}
}

func TestRegionInvalidationStopsLoop(t *testing.T) {
	src := &fakeSource{frames: 5, onWait: func(s *fakeSource) { s.invalid = true }}
	codec := &fakeCodec{steps: []step{{res: coded([]byte{1})}}}
	pub := &fakePublisher{}

	newPipe(src, codec, pub, 64, 48).Run()

	if codec.encodes != 0 {
		t.Errorf("encoded %d frames from an invalid region", codec.encodes)
	}
	if codec.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want exactly 1", codec.shutdowns)
	}
}

func TestEncodeRunsUnderTheRegionLock(t *testing.T) {
	src := &fakeSource{frames: 2}
	codec := &fakeCodec{steps: []step{{res: coded([]byte{1})}}}
	pub := &fakePublisher{}

	newPipe(src, codec, pub, 64, 48).Run()

	if src.locks != 2 || src.locked {
		t.Errorf("locks = %d, still locked = %v", src.locks, src.locked)
	}
	for i, locked := range codec.wasLocked {
		if !locked {
			t.Errorf("encode %d ran outside the critical section", i)
		}
	}
}

func TestEndToEnd640x480(t *testing.T) {
	const w, h = 640, 480
	unit := make([]byte, 5000)
	for i := range unit {
		unit[i] = byte(i)
	}
	src := &fakeSource{frames: 1}
	codec := &fakeCodec{steps: []step{{res: coded(unit)}}}
	pub := &fakePublisher{}

	p := newPipe(src, codec, pub, w, h)
	if got := len(src.data); got != 460800 {
		t.Fatalf("region size = %d, want 460800", got)
	}
	if got := p.asm.Cap(); got != 307200 {
		t.Fatalf("assembly buffer = %d, want 307200", got)
	}
	p.Run()

	if len(pub.calls) != 1 {
		t.Fatalf("publish calls = %d, want 1", len(pub.calls))
	}
	call := pub.calls[0]
	if call.w != w || call.h != h {
		t.Errorf("published %dx%d", call.w, call.h)
	}
	if !bytes.Equal(call.payload, unit) {
		t.Errorf("payload differs from the coded unit, len %d vs %d", len(call.payload), len(unit))
	}

	// the codec saw the region's plane layout
	pic := codec.pics[0]
	if len(pic.Y) != w*h || len(pic.Cb) != w*h/4 || len(pic.Cr) != w*h/4 {
		t.Errorf("plane sizes %d/%d/%d", len(pic.Y), len(pic.Cb), len(pic.Cr))
	}
	if pic.Stride != w {
		t.Errorf("stride = %d, want %d", pic.Stride, w)
	}
}

// Package pipeline drives the frame-acquisition/encode/publish cycle.
// Everything runs on the caller's goroutine, one frame at a time.
package pipeline

import (
	"errors"
	"time"

	"github.com/framecast/framecast/pkg/encoder"
	"github.com/framecast/framecast/pkg/logger"
	"github.com/framecast/framecast/pkg/shm"
)

// Source is the shared frame region boundary. Wait blocks until the
// producer signals a new frame or the region becomes invalid. Data may
// only be read between Lock and Unlock.
type Source interface {
	Wait() bool
	Lock()
	Unlock()
	Valid() bool
	Data() []byte
}

// Publisher is the session bus boundary.
type Publisher interface {
	Publish(payload []byte, width, height int) error
	Running() bool
}

// Pipeline owns one encoding stream: source in, session out.
type Pipeline struct {
	src   Source
	codec encoder.Codec
	pub   Publisher
	asm   *encoder.Assembler
	geo   shm.Geometry
	log   *logger.Logger
}

func New(src Source, codec encoder.Codec, pub Publisher, geo shm.Geometry, log *logger.Logger) *Pipeline {
	return &Pipeline{
		src:   src,
		codec: codec,
		pub:   pub,
		// width*height is a generous bound for output that is
		// expected to compress; the assembler still checks it.
		asm: encoder.NewAssembler(geo.Width * geo.Height),
		geo: geo,
		log: log,
	}
}

// Run loops until the source or the session reports it is no longer
// valid. Per-frame anomalies are logged and absorbed, they never stop
// the stream. The codec is shut down on every exit path.
func (p *Pipeline) Run() {
	defer func() {
		if err := p.codec.Shutdown(); err != nil {
			p.log.Error().Err(err).Msg("failed to close the encoder")
		}
	}()

	for p.src.Valid() && p.pub.Running() {
		if !p.src.Wait() {
			break
		}
		// The session may have died while we were blocked; a frame
		// for a dead transport is not worth the encode.
		if !p.pub.Running() {
			break
		}
		p.cycle()
	}
	p.log.Info().Msg("pipeline stopped")
}

// cycle processes the frame that Wait just reported. Only the encode
// invocation runs under the region lock, assembly and publishing work
// on the encoder's own output buffers.
func (p *Pipeline) cycle() {
	start := time.Now()
	p.src.Lock()
	res, err := p.codec.Encode(p.picture())
	p.src.Unlock()
	metricEncodeSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		metricEncodeFailures.Inc()
		p.log.Error().Err(err).Msg("failed to encode frame")
		return
	}
	if res.Skipped {
		metricFramesSkipped.Inc()
		p.log.Warn().Msg("skipping frame")
		return
	}

	payload, err := p.asm.Assemble(res)
	if err != nil {
		if errors.Is(err, encoder.ErrTooLarge) {
			metricFramesOversized.Inc()
		}
		p.log.Error().Err(err).Msg("failed to assemble frame")
		return
	}
	if payload == nil {
		return
	}

	if err := p.pub.Publish(payload, p.geo.Width, p.geo.Height); err != nil {
		p.log.Warn().Err(err).Msg("publish failed")
		return
	}
	metricFramesPublished.Inc()
	metricBytesPublished.Add(float64(len(payload)))
	p.log.Debug().Int("bytes", len(payload)).Msg("frame published")
}

// picture maps the locked region onto the codec's plane layout.
func (p *Pipeline) picture() encoder.Picture {
	y, cb, cr := p.geo.Planes(p.src.Data())
	return encoder.Picture{
		Width:  p.geo.Width,
		Height: p.geo.Height,
		Y:      y,
		Cb:     cb,
		Cr:     cr,
		Stride: p.geo.LumaStride(),
	}
}

package h264

/*
// See: [openh264](https://github.com/cisco/openh264)
#cgo pkg-config: openh264

#include <string.h>
#include <wels/codec_api.h>

// ISVCEncoder is a table of function pointers in the C API.
static ISVCEncoder *enc_create()
{
	ISVCEncoder *e = NULL;
	if (WelsCreateSVCEncoder(&e) != 0)
		return NULL;
	return e;
}

static int enc_trace_level(ISVCEncoder *e, int level)
{
	return (*e)->SetOption(e, ENCODER_OPTION_TRACE_LEVEL, &level);
}

static void enc_defaults(ISVCEncoder *e, SEncParamExt *p)
{
	memset(p, 0, sizeof(SEncParamExt));
	(*e)->GetDefaultParams(e, p);
}

static int enc_init(ISVCEncoder *e, SEncParamExt *p)
{
	return (*e)->InitializeExt(e, p);
}

static int enc_frame(ISVCEncoder *e, SSourcePicture *pic, SFrameBSInfo *info)
{
	memset(info, 0, sizeof(SFrameBSInfo));
	return (*e)->EncodeFrame(e, pic, info);
}

static void enc_destroy(ISVCEncoder *e)
{
	if (e == NULL) return;
	(*e)->Uninitialize(e);
	WelsDestroySVCEncoder(e);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/framecast/framecast/pkg/encoder"
)

// Session is an openh264 encoding session for one fixed-size stream.
// It owns the engine exclusively and must be used from one goroutine.
type Session struct {
	engine *C.ISVCEncoder
	pic    C.SSourcePicture
	info   C.SFrameBSInfo
	width  int
	height int
}

// NewSession creates and configures the engine. A failure here is a
// startup failure, there is no point in running without an encoder.
func NewSession(width, height int, opts Options) (*Session, error) {
	engine := C.enc_create()
	if engine == nil {
		return nil, fmt.Errorf("openh264: cannot create the encoder")
	}

	trace := C.int(C.WELS_LOG_QUIET)
	if opts.Verbose {
		trace = C.WELS_LOG_INFO
	}
	C.enc_trace_level(engine, trace)

	var params C.SEncParamExt
	C.enc_defaults(engine, &params)

	params.fMaxFrameRate = C.float(opts.FrameRate)
	params.iPicWidth = C.int(width)
	params.iPicHeight = C.int(height)
	params.iTargetBitrate = C.int(opts.TargetBitrate)
	params.iMaxBitrate = C.int(opts.MaxBitrate)
	params.iRCMode = C.RC_QUALITY_MODE
	params.iTemporalLayerNum = 1
	params.iSpatialLayerNum = 1
	params.bEnableAdaptiveQuant = C._Bool(opts.AdaptiveQuant)
	params.bEnableBackgroundDetection = C._Bool(opts.BackgroundDetection)
	params.bEnableDenoise = C._Bool(false)
	params.bEnableFrameSkip = C._Bool(false)
	params.bEnableLongTermReference = C._Bool(false)
	params.iLtrMarkPeriod = 30
	params.uiIntraPeriod = C.uint(opts.Gop)
	params.eSpsPpsIdStrategy = C.CONSTANT_ID
	params.bPrefixNalAddingCtrl = C._Bool(false)
	params.iLoopFilterDisableIdc = 0
	params.iEntropyCodingModeFlag = 0
	params.iMultipleThreadIdc = C.ushort(opts.Threads)

	// The engine treats a mismatch between the spatial layer and the
	// top-level parameters as undefined behavior, mirror them exactly.
	params.sSpatialLayers[0].iVideoWidth = params.iPicWidth
	params.sSpatialLayers[0].iVideoHeight = params.iPicHeight
	params.sSpatialLayers[0].fFrameRate = params.fMaxFrameRate
	params.sSpatialLayers[0].iSpatialBitrate = params.iTargetBitrate
	params.sSpatialLayers[0].iMaxSpatialBitrate = params.iMaxBitrate
	params.sSpatialLayers[0].sSliceArgument.uiSliceMode = C.SM_SIZELIMITED_SLICE
	params.sSpatialLayers[0].sSliceArgument.uiSliceNum = 1

	if rv := C.enc_init(engine, &params); rv != C.cmResultSuccess {
		C.enc_destroy(engine)
		return nil, fmt.Errorf("openh264: InitializeExt rejected the parameters: %d", int(rv))
	}

	s := &Session{engine: engine, width: width, height: height}
	s.pic.iColorFormat = C.videoFormatI420
	s.pic.iPicWidth = C.int(width)
	s.pic.iPicHeight = C.int(height)
	s.pic.iStride[0] = C.int(width)
	s.pic.iStride[1] = C.int(width / 2)
	s.pic.iStride[2] = C.int(width / 2)
	return s, nil
}

// Encode runs the engine on one frame. The returned Result references
// the engine's internal bitstream buffer and is valid until the next
// Encode call.
func (s *Session) Encode(pic encoder.Picture) (*encoder.Result, error) {
	s.pic.pData[0] = (*C.uchar)(unsafe.Pointer(unsafe.SliceData(pic.Y)))
	s.pic.pData[1] = (*C.uchar)(unsafe.Pointer(unsafe.SliceData(pic.Cb)))
	s.pic.pData[2] = (*C.uchar)(unsafe.Pointer(unsafe.SliceData(pic.Cr)))

	if rv := C.enc_frame(s.engine, &s.pic, &s.info); rv != C.cmResultSuccess {
		return nil, fmt.Errorf("openh264: EncodeFrame: status %d", int(rv))
	}
	if s.info.eFrameType == C.videoFrameTypeSkip {
		return &encoder.Result{Skipped: true}, nil
	}

	res := &encoder.Result{}
	for i := 0; i < int(s.info.iLayerNum); i++ {
		li := &s.info.sLayerInfo[i]
		lengths := unsafe.Slice(li.pNalLengthInByte, int(li.iNalCount))
		layer := encoder.Layer{Units: make([][]byte, 0, len(lengths))}
		buf := unsafe.Pointer(li.pBsBuf)
		off := 0
		for _, l := range lengths {
			layer.Units = append(layer.Units,
				unsafe.Slice((*byte)(unsafe.Add(buf, off)), int(l)))
			off += int(l)
		}
		res.Layers = append(res.Layers, layer)
	}
	return res, nil
}

// Shutdown releases the engine. The session is unusable afterwards.
func (s *Session) Shutdown() error {
	if s.engine != nil {
		C.enc_destroy(s.engine)
		s.engine = nil
	}
	return nil
}

func (s *Session) Info() string {
	v := C.WelsGetCodecVersion()
	return fmt.Sprintf("openh264: v%d.%d.%d", int(v.uMajor), int(v.uMinor), int(v.uRevision))
}

package bus

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ImageReading is a single compressed video frame on the bus.
type ImageReading struct {
	// Format identifies the coded format of Data, e.g. "h264".
	Format string `json:"format"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	Data   []byte `json:"data"`
}

// ImageReadingType is the message identifier of ImageReading envelopes.
const ImageReadingType int32 = 1055

// Envelope wraps a message for transport on the session bus.
type Envelope struct {
	DataType    int32         `json:"dataType"`
	SenderStamp uint32        `json:"senderStamp"`
	// Sent is the send time in microseconds since the epoch.
	Sent         int64         `json:"sent"`
	ImageReading *ImageReading `json:"imageReading,omitempty"`
}

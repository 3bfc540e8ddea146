// Package shm gives access to a shared memory area holding a single
// raw video frame which an external producer overwrites and signals.
package shm

// Geometry describes the fixed I420 layout of the frame area: a full
// resolution luma plane followed by two quarter resolution chroma
// planes, rows tightly packed.
type Geometry struct {
	Width  int
	Height int
}

// Size returns the required byte size of the area, w*h*3/2.
func (g Geometry) Size() int { return g.Width * g.Height * 3 / 2 }

// LumaStride returns the bytes per row of the Y plane.
func (g Geometry) LumaStride() int { return g.Width }

// ChromaStride returns the bytes per row of the Cb and Cr planes.
func (g Geometry) ChromaStride() int { return g.Width / 2 }

// CbOffset returns the byte offset of the Cb plane.
func (g Geometry) CbOffset() int { return g.Width * g.Height }

// CrOffset returns the byte offset of the Cr plane.
func (g Geometry) CrOffset() int { return g.Width*g.Height + g.Width*g.Height/4 }

// Planes slices data into the three I420 planes. The slices alias
// data, nothing is copied.
func (g Geometry) Planes(data []byte) (y, cb, cr []byte) {
	y = data[:g.CbOffset()]
	cb = data[g.CbOffset():g.CrOffset()]
	cr = data[g.CrOffset():g.Size()]
	return
}

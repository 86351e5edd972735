package denoise

import (
	"slices"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/parallel"

	"go-image-denoise/internal/raster"
)

type medianFilter struct {
	size int
}

// NewMedian returns a per-channel median filter with a size×size window.
// Even sizes are bumped to the next odd size; sizes below 1 act as identity.
func NewMedian(size int) Filter {
	if size%2 == 0 {
		size++
	}
	return &medianFilter{size: size}
}

func (m *medianFilter) Kind() Kind        { return KindMedian }
func (m *medianFilter) Strength() float64 { return float64(m.size) }

// Apply replicates border pixels outward by size/2 so the output keeps the
// input dimensions.
func (m *medianFilter) Apply(src *raster.Raster) *raster.Raster {
	if src.Empty() || m.size <= 1 {
		return src.Clone()
	}
	radius := m.size / 2
	padded := clone.Pad(src.ToRGBA(), radius, radius, clone.EdgeExtend)
	dst := raster.New(src.Width, src.Height)
	window := m.size * m.size

	parallel.Line(src.Height, func(start, end int) {
		buf := make([]uint8, window)
		for y := start; y < end; y++ {
			for x := 0; x < src.Width; x++ {
				out := dst.Offset(x, y)
				for ch := 0; ch < raster.Channels; ch++ {
					n := 0
					for ky := 0; ky < m.size; ky++ {
						row := (y+ky)*padded.Stride + ch
						for kx := 0; kx < m.size; kx++ {
							buf[n] = padded.Pix[row+(x+kx)*4]
							n++
						}
					}
					slices.Sort(buf)
					dst.Pix[out+ch] = buf[window/2]
				}
			}
		}
	})
	return dst
}

package fan

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"sonaris/internal/faults"
)

// Image is a decoded fan-projected intensity grid. Pix is row-major,
// Pix[y*Width+x], one byte per pixel.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// Decode converts one frame's raw samples into a fan-projected image.
// Samples are range-bin major as stored on disk. A sample slice whose length
// disagrees with the projector's geometry yields ErrMalformedFrame.
func (p *Projector) Decode(samples []uint8) (*Image, error) {
	want := p.geom.Beams * p.geom.Bins
	if len(samples) != want {
		return nil, faults.Wrap(faults.ErrMalformedFrame, "decoder", "frame",
			fmt.Sprintf("%d samples, geometry needs %d", len(samples), want), nil)
	}

	cols := p.interpolate(samples)

	img := &Image{
		Width:  p.width,
		Height: p.height,
		Pix:    make([]uint8, p.width*p.height),
	}
	m := p.geom.Bins
	for ix := 0; ix < p.width; ix++ {
		for iy := 0; iy < p.height; iy++ {
			idx := int(p.lookup[ix*p.height+iy])
			v := cols[idx/m][idx%m]
			r := math.RoundToEven(v)
			if r < 0 {
				r = 0
			} else if r > 255 {
				r = 255
			}
			img.Pix[iy*p.width+ix] = uint8(r)
		}
	}
	return img, nil
}

// interpolate mirrors the beams left-right and upsamples them 4x with linear
// weights, returning one float column per interpolated beam. The first sample
// of the first column is blanked so out-of-fan pixels resolve to black.
func (p *Projector) interpolate(samples []uint8) [][]float64 {
	n := p.geom.Beams
	m := p.geom.Bins

	cols := make([][]float64, p.nout)
	for k := 0; k < n; k++ {
		col := make([]float64, m)
		src := n - 1 - k // mirrored beam order
		for bin := 0; bin < m; bin++ {
			col[bin] = float64(samples[bin*n+src])
		}
		cols[4*k] = col
	}

	for k := 0; k < n-1; k++ {
		a := cols[4*k]
		b := cols[4*k+4]
		for step, weight := range []float64{0.25, 0.5, 0.75} {
			col := make([]float64, m)
			floats.ScaleTo(col, 1-weight, a)
			floats.AddScaled(col, weight, b)
			cols[4*k+1+step] = col
		}
	}

	cols[0][0] = 0
	return cols
}

package fan

import (
	"fmt"
	"math"

	"sonaris/internal/faults"
)

// halfAngleDeg is half the 28° total field of view of an ARIS transducer.
const halfAngleDeg = 14.0

// Geometry captures everything the projection depends on. WindowStart and
// WindowEnd are in meters.
type Geometry struct {
	Beams       int
	Bins        int
	WindowStart float64
	WindowEnd   float64
}

func (g Geometry) validate() error {
	if g.Beams <= 0 || g.Bins <= 0 {
		return faults.Wrap(faults.ErrUnsupportedFormat, "decoder", "geometry",
			fmt.Sprintf("empty geometry %dx%d", g.Beams, g.Bins), nil)
	}
	if g.WindowEnd <= g.WindowStart || g.WindowStart < 0 {
		return faults.Wrap(faults.ErrUnsupportedFormat, "decoder", "geometry",
			fmt.Sprintf("bad window [%g, %g]", g.WindowStart, g.WindowEnd), nil)
	}
	return nil
}

// Projector maps interpolated polar samples onto a Cartesian pixel grid.
// Build it once per recording; Apply is safe for concurrent use.
type Projector struct {
	geom   Geometry
	nout   int // beam columns after 4x interpolation
	width  int
	height int
	// lookup holds, per output pixel (column-major), the index of the source
	// sample in the column-major interpolated frame. Pixels outside the fan
	// point at sample 0, which decode blanks before projection.
	lookup []int32
}

// NewProjector precomputes the projection table for the given geometry.
// Beam counts without a lens-distortion calibration are rejected as
// unsupported.
func NewProjector(geom Geometry) (*Projector, error) {
	if err := geom.validate(); err != nil {
		return nil, err
	}

	nout := 4*geom.Beams - 3
	if _, err := lensCoefficients(nout); err != nil {
		return nil, err
	}

	m := geom.Bins
	minRange := geom.WindowStart
	maxRange := geom.WindowEnd

	width := int(math.RoundToEven(0.1773*float64(m) + 309))
	// ratio of pixels to meters across the widest part of the fan
	gamma := float64(width) / (2 * maxRange * math.Sin(halfAngleDeg*math.Pi/180))
	// distance from the bottom of the image to the transducer origin
	d3 := minRange * math.Cos(halfAngleDeg*math.Pi/180)
	height := int(math.Trunc(gamma*(maxRange-d3) + 0.5))
	binsPerMeter := float64(m-1) / (maxRange - minRange)

	p := &Projector{
		geom:   geom,
		nout:   nout,
		width:  width,
		height: height,
		lookup: make([]int32, width*height),
	}

	for ix := 0; ix < width; ix++ {
		x := (float64(ix) - float64(width)/2) / gamma
		for iy := 0; iy < height; iy++ {
			y := maxRange - float64(iy)/gamma
			r := math.Hypot(x, y)
			thetaDeg := math.Atan2(x, y) * 180 / math.Pi

			bin := math.Trunc((r-minRange)*binsPerMeter + 1.5)
			beam := correctedBeam(nout, thetaDeg)

			var pos float64
			if beam >= 1 && beam <= float64(nout) && bin >= 1 && bin <= float64(m) {
				pos = (beam-1)*float64(m) + bin
			}
			if pos == 0 {
				pos = 1
			}
			p.lookup[ix*height+iy] = int32(pos) - 1
		}
	}
	return p, nil
}

// Size returns the output image dimensions in pixels.
func (p *Projector) Size() (width, height int) {
	return p.width, p.height
}

// Geometry returns the geometry the projector was built for.
func (p *Projector) Geometry() Geometry {
	return p.geom
}

type lensPoly struct {
	factor float64
	a      [4]float64
}

// lensCoefficients returns the empirical distortion polynomial for the given
// beam-column count. The table covers raw 48- and 96-beam frames plus the
// 4x-interpolated widths of the 48/96/128-beam transducers.
func lensCoefficients(beams int) (lensPoly, error) {
	switch beams {
	case 48:
		return lensPoly{factor: 1, a: [4]float64{0.0015, -0.0036, 1.3351, 24.0976}}, nil
	case 189:
		return lensPoly{factor: 4.026, a: [4]float64{0.0015, -0.0036, 1.3351, 24.0976}}, nil
	case 96:
		return lensPoly{factor: 1.012, a: [4]float64{0.0030, -0.0055, 2.6829, 48.04}}, nil
	case 381:
		return lensPoly{factor: 4.05, a: [4]float64{0.0030, -0.0055, 2.6829, 48.04}}, nil
	case 509:
		return lensPoly{factor: 5.45, a: [4]float64{0.0030, -0.0055, 2.6829, 48.04}}, nil
	default:
		return lensPoly{}, faults.Wrap(faults.ErrUnsupportedFormat, "decoder", "lens",
			fmt.Sprintf("no distortion calibration for %d beam columns", beams), nil)
	}
}

// correctedBeam maps an angle in degrees to a 1-based beam column after lens
// distortion correction.
func correctedBeam(beams int, thetaDeg float64) float64 {
	poly, err := lensCoefficients(beams)
	if err != nil {
		return 0
	}
	t := thetaDeg
	v := poly.a[0]*t*t*t + poly.a[1]*t*t + poly.a[2]*t + poly.a[3]
	return math.RoundToEven(poly.factor*v + 1)
}

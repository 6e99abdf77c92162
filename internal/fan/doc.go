// Package fan converts raw ARIS beam/range-bin samples into fan-projected
// intensity images.
//
// The conversion matches the ARISreader toolbox: beams are mirrored, upsampled
// 4x by linear interpolation, then remapped from polar (range, beam angle)
// into Cartesian pixels through a precomputed lookup table that also corrects
// the acoustic lens distortion with an empirical per-beam-count polynomial.
// The table depends only on the recording geometry, so it is built once per
// file and shared read-only across workers. Decoding itself is a pure function
// of the geometry and one frame's samples.
package fan

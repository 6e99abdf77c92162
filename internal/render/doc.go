// Package render turns decoded fan images into published artifacts.
//
// The Exporter encodes grayscale frames as PNG or JPEG, optionally stamps a
// frame label into the corner, and publishes files atomically so interrupted
// runs never leave a valid-looking partial image. The AVI writer assembles
// per-frame JPEG payloads into an MJPEG container at the recorded frame rate.
package render

// Package scan runs the kiosk side of badge scanning: it pulls frames from a
// camera, decodes QR badges, and submits them to labtrackd.
package scan

import (
	"context"
	"errors"
	"image"
)

// ErrCameraUnavailable is returned when a frame source cannot be started or
// stops delivering frames.
var ErrCameraUnavailable = errors.New("camera unavailable")

// Resolution is a size preference. Sources may ignore it.
type Resolution struct {
	Width  int
	Height int
}

// Source acquires a camera. The returned Stream owns it until Stop.
type Source interface {
	Start(ctx context.Context, res Resolution) (Stream, error)
}

// Stream hands out frames from a started Source.
//
// Frame returns (nil, nil) when no new frame is ready yet and io.EOF once a
// finite source is exhausted. Stop releases the camera; it is idempotent.
type Stream interface {
	Frame() (image.Image, error)
	Stop() error
}

package seek

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned when an operation needs an opened video.
	ErrNotOpen = errors.New("seek: no video open")

	// ErrNotAvailable is returned by CurrentFrame when no frame is cached.
	ErrNotAvailable = errors.New("seek: no decoded frame available")

	// ErrNoVideoStream is returned when the container has no video stream.
	ErrNoVideoStream = errors.New("seek: no video stream")

	// ErrCodecUnavailable is returned when the video decoder cannot be opened.
	ErrCodecUnavailable = errors.New("seek: codec unavailable")

	// ErrUnknownFrameRate is returned when the stream has no usable frame rate.
	ErrUnknownFrameRate = errors.New("seek: unknown frame rate")

	// ErrNoDecodableFrame is returned when not a single frame can be decoded.
	ErrNoDecodableFrame = errors.New("seek: no decodable frame")

	// ErrEndOfStream is returned when the stream ends before the target frame.
	ErrEndOfStream = errors.New("seek: end of stream before target frame")

	// ErrFrameOutOfRange is returned for negative frame numbers.
	ErrFrameOutOfRange = errors.New("seek: frame number out of range")
)

// OpenError reports a failure to open a video. The engine stays closed.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("seek: open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// SeekError reports a failed seek. The frame cache is invalid afterwards,
// but the engine remains usable and the caller may retry another frame.
type SeekError struct {
	Frame int64
	Err   error
}

func (e *SeekError) Error() string {
	return fmt.Sprintf("seek: frame %d: %v", e.Frame, e.Err)
}

func (e *SeekError) Unwrap() error { return e.Err }

// DecodeError reports a packet that failed to decode.
type DecodeError struct {
	DTS int64
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("seek: decode packet at dts %d: %v", e.DTS, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

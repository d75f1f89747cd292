// Package formatdetect identifies container formats from their leading
// bytes and the video codec of MP4 files.
package formatdetect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Container is a container family framemark can demux.
type Container string

const (
	ContainerMP4      Container = "mp4"
	ContainerMPEGTS   Container = "mpegts"
	ContainerMatroska Container = "matroska"
	ContainerUnknown  Container = "unknown"
)

// FormatName returns the container format name ffprobe would report.
func (c Container) FormatName() string {
	switch c {
	case ContainerMP4:
		return "mov,mp4,m4a,3gp,3g2,mj2"
	case ContainerMPEGTS:
		return "mpegts"
	case ContainerMatroska:
		return "matroska,webm"
	default:
		return ""
	}
}

// ErrUnknownContainer is returned for files with no recognizable signature.
var ErrUnknownContainer = errors.New("formatdetect: unknown container")

const (
	tsPacketSize = 188
	tsSyncByte   = 0x47
	sniffSize    = 4 * tsPacketSize
)

var (
	ebmlMagic = []byte{0x1a, 0x45, 0xdf, 0xa3}
	mp4Atoms  = [][]byte{[]byte("ftyp"), []byte("moov"), []byte("mdat"), []byte("free"), []byte("wide"), []byte("skip"), []byte("styp")}
)

// DetectFromFile sniffs the container of the file at path.
func DetectFromFile(path string) (Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return ContainerUnknown, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return DetectFromReader(f)
}

// DetectFromReader sniffs the container from the start of r.
func DetectFromReader(r io.Reader) (Container, error) {
	head := make([]byte, sniffSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return ContainerUnknown, fmt.Errorf("read header: %w", err)
	}
	return Detect(head[:n])
}

// Detect identifies the container from its leading bytes.
func Detect(head []byte) (Container, error) {
	if len(head) < 8 {
		return ContainerUnknown, fmt.Errorf("%w: only %d bytes", ErrUnknownContainer, len(head))
	}

	if bytes.HasPrefix(head, ebmlMagic) {
		return ContainerMatroska, nil
	}

	for _, atom := range mp4Atoms {
		if bytes.Equal(head[4:8], atom) {
			return ContainerMP4, nil
		}
	}

	if isTransportStream(head) {
		return ContainerMPEGTS, nil
	}
	return ContainerUnknown, ErrUnknownContainer
}

// isTransportStream checks the sync byte of every full packet in head.
func isTransportStream(head []byte) bool {
	packets := len(head) / tsPacketSize
	if packets == 0 {
		return false
	}
	for i := 0; i < packets; i++ {
		if head[i*tsPacketSize] != tsSyncByte {
			return false
		}
	}
	return true
}

// Package ivf frames VP8, VP9 and AV1 packets as an IVF stream, the raw
// input format ffmpeg reads for those codecs.
package ivf

import "encoding/binary"

const (
	fileHeaderSize  = 32
	frameHeaderSize = 12
)

// FourCC values of the supported codecs.
const (
	VP8 = "VP80"
	VP9 = "VP90"
	AV1 = "AV01"
)

// FileHeader returns the 32-byte IVF file header. rateNum/rateDen is the
// time base of the frame timestamps.
func FileHeader(fourcc string, width, height int, rateNum, rateDen uint32, frames uint32) []byte {
	h := make([]byte, fileHeaderSize)
	copy(h[0:4], "DKIF")
	binary.LittleEndian.PutUint16(h[4:6], 0)
	binary.LittleEndian.PutUint16(h[6:8], fileHeaderSize)
	copy(h[8:12], fourcc)
	binary.LittleEndian.PutUint16(h[12:14], uint16(width))
	binary.LittleEndian.PutUint16(h[14:16], uint16(height))
	binary.LittleEndian.PutUint32(h[16:20], rateDen)
	binary.LittleEndian.PutUint32(h[20:24], rateNum)
	binary.LittleEndian.PutUint32(h[24:28], frames)
	return h
}

// Frame returns data behind a 12-byte IVF frame header.
func Frame(pts int64, data []byte) []byte {
	out := make([]byte, frameHeaderSize+len(data))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(data)))
	binary.LittleEndian.PutUint64(out[4:12], uint64(pts))
	copy(out[frameHeaderSize:], data)
	return out
}

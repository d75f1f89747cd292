package ports

// Bitstream tells a picture decoder how the payloads of a demuxed video
// stream are framed.
type Bitstream struct {
	// Format is the raw input format understood by the decoder backend,
	// e.g. "h264", "hevc", "mpegvideo" or "ivf".
	Format string
	// Header is written once before the first packet after every
	// (re)start of the decoder, e.g. an IVF file header.
	Header []byte
}

// Demuxer splits a container into packets of its first video stream.
type Demuxer interface {
	// Open parses the container headers.
	Open(path string) error

	// Info returns the metadata gathered by Open.
	Info() *MediaInfo

	// Bitstream describes the framing of the video packets.
	Bitstream() Bitstream

	// ReadPacket returns the next video packet, or io.EOF.
	ReadPacket() (*Packet, error)

	// SeekKeyframe positions the demuxer at the last keyframe whose decode
	// timestamp (or frame index for SeekFrame) is at or before target.
	SeekKeyframe(target int64, flag SeekFlag) error

	// Close releases the demuxer.
	Close() error
}

// PictureDecoder turns video packets into RGB pictures.
type PictureDecoder interface {
	// Start prepares the decoder for a stream of the given framing and size.
	Start(bs Bitstream, width, height int) error

	// Decode feeds one packet and returns the oldest finished picture, if any.
	Decode(pkt *Packet) (*Picture, bool, error)

	// Drain signals end of input and returns the pictures still buffered.
	Drain() ([]*Picture, error)

	// Flush discards all buffered input and output.
	Flush()

	// Close stops the decoder.
	Close() error
}

// Prober reads container metadata without demuxing.
type Prober interface {
	Probe(path string) (*MediaInfo, error)
}

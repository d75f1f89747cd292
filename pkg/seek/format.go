package seek

import "strings"

// ContainerFormat selects the timing model used to seek and number frames.
type ContainerFormat int

const (
	// FormatGeneric covers AVI-like containers whose decode timestamps count frames.
	FormatGeneric ContainerFormat = iota
	// FormatMpeg covers MPEG program and transport streams.
	FormatMpeg
	// FormatAsf covers ASF/WMV files. It shares the MPEG timing model.
	FormatAsf
	// FormatMatroska covers Matroska and WebM files.
	FormatMatroska
)

// String returns the format tag.
func (f ContainerFormat) String() string {
	switch f {
	case FormatMpeg:
		return "mpeg"
	case FormatAsf:
		return "asf"
	case FormatMatroska:
		return "matroska"
	default:
		return "generic"
	}
}

// ParseContainerFormat maps a demuxer format name to a ContainerFormat.
// Unknown names fall back to FormatGeneric.
func ParseContainerFormat(name string) ContainerFormat {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mpeg", "mpegts", "mpegvideo":
		return FormatMpeg
	case "asf":
		return FormatAsf
	case "matroska,webm", "matroska", "webm":
		return FormatMatroska
	default:
		return FormatGeneric
	}
}

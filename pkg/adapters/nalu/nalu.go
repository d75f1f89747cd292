// Package nalu converts H.264 and HEVC access units between the length
// prefixed layout of MP4 and Matroska and the Annex B byte stream the
// decoder reads.
package nalu

import (
	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/hevc"
)

var startCode = []byte{0, 0, 0, 1}

// ToAnnexB converts 4-byte length prefixed NAL units to start code
// prefixed ones. A truncated trailing unit is dropped.
func ToAnnexB(data []byte) []byte {
	var result []byte
	offset := 0

	for offset+4 <= len(data) {
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4

		if offset+naluLen > len(data) {
			break
		}

		result = append(result, startCode...)
		result = append(result, data[offset:offset+naluLen]...)
		offset += naluLen
	}

	return result
}

// JoinAnnexB writes each unit behind a start code.
func JoinAnnexB(units ...[]byte) []byte {
	var out []byte
	for _, u := range units {
		out = append(out, startCode...)
		out = append(out, u...)
	}
	return out
}

// Prepend returns header followed by sample in a new slice.
func Prepend(header, sample []byte) []byte {
	out := make([]byte, len(header)+len(sample))
	copy(out, header)
	copy(out[len(header):], sample)
	return out
}

// AVCKeyframe reports whether an Annex B access unit holds an IDR slice.
func AVCKeyframe(annexB []byte) bool {
	for _, n := range avc.ExtractNalusFromByteStream(annexB) {
		if len(n) > 0 && avc.GetNaluType(n[0]) == avc.NALU_IDR {
			return true
		}
	}
	return false
}

// HEVCKeyframe reports whether an Annex B access unit holds an IRAP picture.
func HEVCKeyframe(annexB []byte) bool {
	for _, n := range avc.ExtractNalusFromByteStream(annexB) {
		if len(n) == 0 {
			continue
		}
		// BLA_W_LP (16) through CRA (21).
		if t := hevc.GetNaluType(n[0]); t >= 16 && t <= 21 {
			return true
		}
	}
	return false
}

// AVCParameterSets returns the SPS and PPS units found in an Annex B access
// unit.
func AVCParameterSets(annexB []byte) (sps, pps [][]byte) {
	for _, n := range avc.ExtractNalusFromByteStream(annexB) {
		if len(n) == 0 {
			continue
		}
		switch avc.GetNaluType(n[0]) {
		case avc.NALU_SPS:
			sps = append(sps, n)
		case avc.NALU_PPS:
			pps = append(pps, n)
		}
	}
	return sps, pps
}

// AVCDimensions returns the coded picture size from an SPS unit.
func AVCDimensions(sps []byte) (width, height int, ok bool) {
	parsed, err := avc.ParseSPSNALUnit(sps, false)
	if err != nil {
		return 0, 0, false
	}
	return int(parsed.Width), int(parsed.Height), true
}

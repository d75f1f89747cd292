package nalu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToAnnexB(t *testing.T) {
	avcc := []byte{
		0, 0, 0, 2, 0x65, 0xaa,
		0, 0, 0, 1, 0x41,
		0, 0, 0, 9, 0x01, // truncated
	}

	got := ToAnnexB(avcc)

	require.Equal(t, []byte{0, 0, 0, 1, 0x65, 0xaa, 0, 0, 0, 1, 0x41}, got)
}

func TestJoinAndPrepend(t *testing.T) {
	ps := JoinAnnexB([]byte{0x67, 1}, []byte{0x68, 2})
	require.Equal(t, []byte{0, 0, 0, 1, 0x67, 1, 0, 0, 0, 1, 0x68, 2}, ps)

	au := Prepend(ps, []byte{0, 0, 0, 1, 0x65})
	require.Len(t, au, len(ps)+5)
	require.Equal(t, ps, au[:len(ps)])
}

func TestAVCKeyframe(t *testing.T) {
	idr := JoinAnnexB([]byte{0x09, 0xf0}, []byte{0x65, 0x88, 0x84})
	nonIDR := JoinAnnexB([]byte{0x09, 0xf0}, []byte{0x41, 0x9a, 0x02})

	require.True(t, AVCKeyframe(idr))
	require.False(t, AVCKeyframe(nonIDR))
}

func TestHEVCKeyframe(t *testing.T) {
	// NAL unit type lives in bits 1-6 of the first header byte.
	idr := JoinAnnexB([]byte{19 << 1, 0x01, 0xaf})
	trail := JoinAnnexB([]byte{1 << 1, 0x01, 0xd0})

	require.True(t, HEVCKeyframe(idr))
	require.False(t, HEVCKeyframe(trail))
}

func TestAVCParameterSets(t *testing.T) {
	au := JoinAnnexB([]byte{0x67, 0x42}, []byte{0x68, 0xce}, []byte{0x65, 0x88})

	sps, pps := AVCParameterSets(au)

	require.Equal(t, [][]byte{{0x67, 0x42}}, sps)
	require.Equal(t, [][]byte{{0x68, 0xce}}, pps)
}

package tr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	frame := []byte{CmdWriteRead, 0x83, 1, 2, 3, 0, 0}
	crc := Checksum(frame, 3)
	require.Equal(t, crcSeed^CmdWriteRead^0x83^1^2^3, crc)

	// a read request carries an all-zero payload.
	read := make([]byte, FrameBufferSize)
	read[0], read[1] = CmdWriteRead, 0x40
	require.Equal(t, crcSeed^CmdWriteRead^0x40, Checksum(read, 64))
}

func TestVerifyChecksum(t *testing.T) {
	testCases := []struct {
		name  string
		ptype byte
		data  []byte
	}{
		{"single byte", 0x81, []byte{0x55}},
		{"info", ptypeInfo16, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}},
		{"read 64", 0x40, make([]byte, 64)},
		{"zeros", 0x05, []byte{0, 0, 0, 0, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := len(tc.data)
			frame := make([]byte, n+FrameOverhead)
			frame[0], frame[1] = 0xAA, 0xBB // untrusted echo
			copy(frame[2:], tc.data)
			frame[n+2] = ResponseChecksum(tc.ptype, tc.data)
			require.True(t, VerifyChecksum(frame, n, tc.ptype))
			require.False(t, VerifyChecksum(frame, n, tc.ptype^0x01))

			for i := 2; i < n+2; i++ {
				for bit := uint(0); bit < 8; bit++ {
					frame[i] ^= 1 << bit
					require.Falsef(t, VerifyChecksum(frame, n, tc.ptype), "byte %d bit %d", i, bit)
					frame[i] ^= 1 << bit
				}
			}
		})
	}
}

func TestVerifyChecksumShortFrame(t *testing.T) {
	require.False(t, VerifyChecksum([]byte{0, 0, 0}, 1, 0x01))
	require.False(t, VerifyChecksum(nil, 0, 0))
}

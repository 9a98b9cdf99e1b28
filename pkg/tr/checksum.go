package tr

// Checksum computes CRCM of an outbound frame carrying n payload bytes:
// the seed folded with CMD, PTYPE and the payload.
// The frame must hold at least n+2 bytes.
func Checksum(frame []byte, n int) byte {
	crc := crcSeed
	for _, b := range frame[:n+2] {
		crc ^= b
	}
	return crc
}

// VerifyChecksum checks CRCS of an inbound frame carrying n payload bytes.
// The module echoes garbage in the header positions, so the expected PTYPE
// is folded into the seed instead.
func VerifyChecksum(frame []byte, n int, ptype byte) bool {
	if n < 0 || len(frame) < n+3 {
		return false
	}
	crc := crcSeed ^ ptype
	for _, b := range frame[2 : n+2] {
		crc ^= b
	}
	return frame[n+2] == crc
}

// ResponseChecksum computes the CRCS a module appends to n payload bytes
// answered for ptype.
func ResponseChecksum(ptype byte, data []byte) byte {
	crc := crcSeed ^ ptype
	for _, b := range data {
		crc ^= b
	}
	return crc
}

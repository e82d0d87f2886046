package h264

// StartCode is the 4-byte Annex-B prefix written in front of every NAL unit.
var StartCode = []byte{0x00, 0x00, 0x00, 0x01}

// MaxNALUSize bounds a single reassembled NAL unit. A 250 Mbps stream has
// NAL units around 2.2 MB.
const MaxNALUSize = 3 * 1024 * 1024

// AppendAnnexB appends nalu to dst, prefixed with a 4-byte start code.
func AppendAnnexB(dst []byte, nalu []byte) []byte {
	dst = append(dst, StartCode...)
	return append(dst, nalu...)
}

// AnnexBEncode joins NAL units into a single Annex-B buffer.
func AnnexBEncode(nalus [][]byte) []byte {
	n := 0
	for _, nalu := range nalus {
		n += len(StartCode) + len(nalu)
	}
	buf := make([]byte, 0, n)
	for _, nalu := range nalus {
		buf = AppendAnnexB(buf, nalu)
	}
	return buf
}

// FindNALUnits splits an Annex-B buffer into NAL units, accepting both 3-byte
// (00 00 01) and 4-byte (00 00 00 01) start codes. The returned slices alias
// b. If no start code is present the whole buffer is treated as one unit.
func FindNALUnits(b []byte) [][]byte {
	if len(b) == 0 {
		return nil
	}

	var nalus [][]byte
	start := -1 // Offset of the current unit's first byte, or -1 before the first start code.
	i := 0
	for i+2 < len(b) {
		if b[i] != 0 || b[i+1] != 0 || b[i+2] != 1 {
			i++
			continue
		}

		// 3-byte start code at i. A preceding zero makes it a 4-byte code.
		end := i
		if end > 0 && b[end-1] == 0 {
			end--
		}
		if start >= 0 && end > start {
			nalus = append(nalus, b[start:end])
		}
		i += 3
		start = i
	}

	if start < 0 {
		return [][]byte{b}
	}
	if start < len(b) {
		nalus = append(nalus, b[start:])
	}
	return nalus
}

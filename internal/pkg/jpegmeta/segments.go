package jpegmeta

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
)

// maxSegmentPayload is the largest payload a JPEG marker segment can carry:
// the length field is a uint16 that includes its own two bytes.
const maxSegmentPayload = 65533

// JPEG marker bytes relevant for metadata embedding.
const (
	markerSOI   = 0xD8
	markerAPP0  = 0xE0 // JFIF
	markerAPP1  = 0xE1 // EXIF / XMP
	markerAPP13 = 0xED // Photoshop / IPTC
)

var jpegExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".jpe":  true,
	".jfif": true,
}

// IsJPEG reports whether the file should be treated as a JPEG, based on the
// declared mime type or the file extension. Embedding is strictly JPEG-only;
// everything else passes through untouched.
func IsJPEG(mimeType, filename string) bool {
	if strings.EqualFold(mimeType, "image/jpeg") || strings.EqualFold(mimeType, "image/jpg") {
		return true
	}
	return jpegExtensions[strings.ToLower(filepath.Ext(filename))]
}

// hasSOI reports whether the buffer starts with a JPEG start-of-image marker.
func hasSOI(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == markerSOI
}

// segmentLength reads the declared length of the marker segment starting at
// offset (offset points at the 0xFF byte). Returns the total number of bytes
// covered by the segment including the two marker bytes, or -1 when the
// buffer is too short or inconsistent.
func segmentLength(data []byte, offset int) int {
	if offset+4 > len(data) {
		return -1
	}
	declared := int(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
	if declared < 2 || offset+2+declared > len(data) {
		return -1
	}
	return 2 + declared
}

// metadataInsertOffset scans forward from the SOI marker, skipping over
// APP0, APP1 and APP13 segments by their declared lengths, and returns the
// offset of the first marker that is none of those. This is where a new
// metadata segment can be spliced in without disturbing the decoder.
func metadataInsertOffset(data []byte) int {
	offset := 2
	for offset+4 <= len(data) && data[offset] == 0xFF {
		marker := data[offset+1]
		if marker != markerAPP0 && marker != markerAPP1 && marker != markerAPP13 {
			break
		}
		total := segmentLength(data, offset)
		if total < 0 {
			break
		}
		offset += total
	}
	return offset
}

// stripSegments returns a copy of data with every leading application
// segment matching marker removed. Only the marker run between SOI and the
// first non-application segment is considered; a truncated or inconsistent
// length field stops the scan.
func stripSegments(data []byte, marker byte) []byte {
	out := make([]byte, 0, len(data))
	out = append(out, data[:2]...)

	offset := 2
	for offset+4 <= len(data) && data[offset] == 0xFF {
		m := data[offset+1]
		if m < 0xE0 || m > 0xEF {
			break
		}
		total := segmentLength(data, offset)
		if total < 0 {
			break
		}
		if m != marker {
			out = append(out, data[offset:offset+total]...)
		}
		offset += total
	}
	out = append(out, data[offset:]...)
	return out
}

// buildSegment wraps payload in a JPEG marker segment: 0xFF, marker, 2-byte
// big-endian length (including the length field itself), payload. Payloads
// above 65,533 bytes cannot be represented and panic; Embed recovers and
// falls back to the original image bytes.
func buildSegment(marker byte, payload []byte) []byte {
	if len(payload) > maxSegmentPayload {
		panic(fmt.Sprintf("segment 0x%02X payload %d bytes exceeds the %d byte limit", marker, len(payload), maxSegmentPayload))
	}
	seg := make([]byte, 0, len(payload)+4)
	seg = append(seg, 0xFF, marker)
	length := uint16(len(payload) + 2)
	seg = append(seg, byte(length>>8), byte(length))
	seg = append(seg, payload...)
	return seg
}

// spliceAt returns a new buffer with segment inserted at offset, shifting
// all subsequent bytes. The input buffer is never mutated.
func spliceAt(data []byte, offset int, segment []byte) []byte {
	out := make([]byte, 0, len(data)+len(segment))
	out = append(out, data[:offset]...)
	out = append(out, segment...)
	out = append(out, data[offset:]...)
	return out
}

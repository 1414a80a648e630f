package jpegmeta

import (
	"bytes"
	"encoding/binary"

	"github.com/TobiKellner/StockShip/internal/pkg/metadata"
)

// IPTC-IIM application record (record 2) dataset numbers.
const (
	iptcTagMarker     = 0x1C
	iptcRecordApp     = 2
	datasetObjectName = 0x05
	datasetKeywords   = 0x19
	datasetCaption    = 0x78
)

// Legacy IIM length fields are 15 bits wide; this implementation has no
// extended-length escape, so longer values are truncated before encoding.
const maxDatasetLength = 32767

const photoshopHeader = "Photoshop 3.0\x00"

// embedIPTC returns a copy of data with an APP13 "Photoshop 3.0" segment
// carrying the record as an IPTC-IIM block. Any pre-existing APP13 segment
// is stripped first so a re-export never leaves two conflicting blocks.
func embedIPTC(data []byte, rec metadata.Record) []byte {
	stream := buildIPTCStream(rec)
	resource := buildPhotoshopResource(stream)

	payload := make([]byte, 0, len(photoshopHeader)+len(resource))
	payload = append(payload, photoshopHeader...)
	payload = append(payload, resource...)

	out := stripSegments(data, markerAPP13)
	return spliceAt(out, metadataInsertOffset(out), buildSegment(markerAPP13, payload))
}

// buildIPTCStream encodes the record as a sequence of IIM datasets: one
// ObjectName for the title, one Keywords dataset per tag (the field is
// repeatable, tags are never joined) and one Caption for the description.
func buildIPTCStream(rec metadata.Record) []byte {
	var buf bytes.Buffer
	writeDataset(&buf, datasetObjectName, rec.Title)
	for _, tag := range rec.Tags {
		writeDataset(&buf, datasetKeywords, tag)
	}
	writeDataset(&buf, datasetCaption, rec.Description)
	return buf.Bytes()
}

// writeDataset appends one dataset: marker byte, record number, dataset
// number, 2-byte big-endian length, raw text bytes.
func writeDataset(buf *bytes.Buffer, dataset byte, value string) {
	text := []byte(value)
	if len(text) > maxDatasetLength {
		text = text[:maxDatasetLength]
	}
	buf.WriteByte(iptcTagMarker)
	buf.WriteByte(iptcRecordApp)
	buf.WriteByte(dataset)
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(text)))
	buf.Write(length[:])
	buf.Write(text)
}

// buildPhotoshopResource wraps the IPTC stream in an 8BIM image resource
// block: signature, resource id 0x0404 (IPTC-NAA record), an empty
// Pascal-string name padded to even length, the 4-byte big-endian payload
// length, the payload, and a trailing pad byte when the payload is odd.
func buildPhotoshopResource(iptcStream []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("8BIM")
	buf.Write([]byte{0x04, 0x04})
	buf.Write([]byte{0x00, 0x00}) // empty name + pad to even length

	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(iptcStream)))
	buf.Write(length[:])
	buf.Write(iptcStream)
	if len(iptcStream)%2 != 0 {
		buf.WriteByte(0x00)
	}
	return buf.Bytes()
}

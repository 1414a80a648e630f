package jpegmeta

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/TobiKellner/StockShip/internal/pkg/metadata"
)

const exifHeader = "Exif\x00\x00"

// TIFF field types used in the entries we write.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeUndefined = 7
	typeSRational = 10
)

// IFD0 tag ids.
const (
	tagImageDescription = 0x010E
	tagUserComment      = 0x9286
	tagXPTitle          = 0x9C9B
	tagXPKeywords       = 0x9C9E
	tagXPSubject        = 0x9C9F
)

// pointerTagIDs are sub-IFD pointer tags. Their offsets are only valid in
// the original TIFF block, so they must not be carried into a rebuilt one.
var pointerTagIDs = map[uint16]bool{
	0x8769: true, // ExifIFDPointer
	0x8825: true, // GPSInfoIFDPointer
	0xA005: true, // InteroperabilityIFDPointer
}

type ifdEntry struct {
	tag  uint16
	typ  uint16
	data []byte
}

// embedEXIF returns a copy of data with an APP1 EXIF segment carrying the
// record's title, tags and description. Fields from a pre-existing EXIF
// block, Orientation and exposure data included, are merged into the rebuilt
// segment; a corrupt block is treated as absent.
func embedEXIF(data []byte, rec metadata.Record) []byte {
	entries := map[uint16]ifdEntry{}

	// Carry over fields from the existing EXIF block, if any.
	if existing := findExifPayload(data); existing != nil {
		for id, entry := range decodeCarryoverEntries(existing) {
			entries[id] = entry
		}
	}

	entries[tagImageDescription] = ifdEntry{tag: tagImageDescription, typ: typeASCII, data: append([]byte(rec.Title), 0)}
	entries[tagXPTitle] = ifdEntry{tag: tagXPTitle, typ: typeByte, data: encodeUTF16LE(rec.Title)}
	entries[tagXPKeywords] = ifdEntry{tag: tagXPKeywords, typ: typeByte, data: encodeUTF16LE(strings.Join(rec.Tags, ";"))}
	entries[tagXPSubject] = ifdEntry{tag: tagXPSubject, typ: typeByte, data: encodeUTF16LE(rec.Description)}
	entries[tagUserComment] = ifdEntry{tag: tagUserComment, typ: typeUndefined, data: append([]byte("ASCII\x00\x00\x00"), rec.Description...)}

	payload := buildExifPayload(entries)

	out := stripSegments(data, markerAPP1)
	return spliceAt(out, exifInsertOffset(out), buildSegment(markerAPP1, payload))
}

// findExifPayload returns the payload of the first APP1 EXIF segment
// (after the "Exif\x00\x00" header), or nil.
func findExifPayload(data []byte) []byte {
	offset := 2
	for offset+4 <= len(data) && data[offset] == 0xFF {
		marker := data[offset+1]
		if marker < 0xE0 || marker > 0xEF {
			break
		}
		total := segmentLength(data, offset)
		if total < 0 {
			break
		}
		payload := data[offset+4 : offset+total]
		if marker == markerAPP1 && bytes.HasPrefix(payload, []byte(exifHeader)) {
			return payload[len(exifHeader):]
		}
		offset += total
	}
	return nil
}

// exifInsertOffset returns the offset right behind the JFIF APP0 run, the
// conventional place for the EXIF APP1 segment.
func exifInsertOffset(data []byte) int {
	offset := 2
	for offset+4 <= len(data) && data[offset] == 0xFF && data[offset+1] == markerAPP0 {
		total := segmentLength(data, offset)
		if total < 0 {
			break
		}
		offset += total
	}
	return offset
}

type carryoverWalker struct {
	entries map[uint16]ifdEntry
}

func (w carryoverWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if pointerTagIDs[tag.Id] {
		return nil
	}

	// The source block may be big-endian, so values are re-encoded rather
	// than copied raw. Unsupported types are dropped.
	switch tag.Type {
	case tiff.DTAscii:
		val, err := tag.StringVal()
		if err != nil {
			return nil
		}
		w.entries[tag.Id] = ifdEntry{tag: tag.Id, typ: typeASCII, data: append([]byte(val), 0)}
	case tiff.DTShort:
		if data, ok := encodeIntValues(tag, 2); ok {
			w.entries[tag.Id] = ifdEntry{tag: tag.Id, typ: typeShort, data: data}
		}
	case tiff.DTLong:
		if data, ok := encodeIntValues(tag, 4); ok {
			w.entries[tag.Id] = ifdEntry{tag: tag.Id, typ: typeLong, data: data}
		}
	case tiff.DTRational:
		if data, ok := encodeRationalValues(tag); ok {
			w.entries[tag.Id] = ifdEntry{tag: tag.Id, typ: typeRational, data: data}
		}
	case tiff.DTSRational:
		if data, ok := encodeRationalValues(tag); ok {
			w.entries[tag.Id] = ifdEntry{tag: tag.Id, typ: typeSRational, data: data}
		}
	}
	return nil
}

// encodeIntValues re-encodes the tag's integer values as little-endian with
// the given per-value width.
func encodeIntValues(tag *tiff.Tag, width int) ([]byte, bool) {
	data := make([]byte, 0, int(tag.Count)*width)
	for i := 0; i < int(tag.Count); i++ {
		v, err := tag.Int(i)
		if err != nil {
			return nil, false
		}
		switch width {
		case 2:
			data = binary.LittleEndian.AppendUint16(data, uint16(v))
		case 4:
			data = binary.LittleEndian.AppendUint32(data, uint32(v))
		}
	}
	return data, true
}

// encodeRationalValues re-encodes the tag's rational values as little-endian
// numerator/denominator pairs.
func encodeRationalValues(tag *tiff.Tag) ([]byte, bool) {
	data := make([]byte, 0, int(tag.Count)*8)
	for i := 0; i < int(tag.Count); i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return nil, false
		}
		data = binary.LittleEndian.AppendUint32(data, uint32(num))
		data = binary.LittleEndian.AppendUint32(data, uint32(den))
	}
	return data, true
}

// decodeCarryoverEntries reads the preservable fields out of a raw TIFF
// block, keyed by tag id. Decode errors yield an empty map: images without
// usable EXIF start from scratch.
func decodeCarryoverEntries(tiffData []byte) map[uint16]ifdEntry {
	entries := map[uint16]ifdEntry{}
	x, err := exif.Decode(bytes.NewReader(tiffData))
	if err != nil {
		return entries
	}
	_ = x.Walk(carryoverWalker{entries: entries})
	return entries
}

// buildExifPayload serializes the entries into an EXIF APP1 payload: the
// "Exif" header, a little-endian TIFF header and a single IFD0 with the
// entries in ascending tag order.
func buildExifPayload(entries map[uint16]ifdEntry) []byte {
	sorted := make([]ifdEntry, 0, len(entries))
	for _, e := range entries {
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].tag < sorted[j].tag })

	var buf bytes.Buffer
	buf.WriteString(exifHeader)
	buf.WriteString("II")                     // little-endian byte order
	buf.Write([]byte{0x2A, 0x00})             // TIFF magic
	buf.Write([]byte{0x08, 0x00, 0x00, 0x00}) // offset of IFD0

	// Entry slots are fixed-size; values longer than four bytes live in a
	// data area behind the IFD and are referenced by offset from the start
	// of the TIFF block.
	const ifdBase = 8
	ifdSize := 2 + len(sorted)*12 + 4
	valOffset := ifdBase + ifdSize

	var ifdBuf bytes.Buffer
	var valueBuf bytes.Buffer
	le16 := func(v uint16) { _ = binary.Write(&ifdBuf, binary.LittleEndian, v) }
	le32 := func(v uint32) { _ = binary.Write(&ifdBuf, binary.LittleEndian, v) }

	le16(uint16(len(sorted)))
	for _, e := range sorted {
		le16(e.tag)
		le16(e.typ)
		le32(uint32(len(e.data) / typeSize(e.typ)))
		if len(e.data) <= 4 {
			padded := make([]byte, 4)
			copy(padded, e.data)
			ifdBuf.Write(padded)
		} else {
			le32(uint32(valOffset + valueBuf.Len()))
			valueBuf.Write(e.data)
		}
	}
	le32(0) // no further IFDs

	buf.Write(ifdBuf.Bytes())
	buf.Write(valueBuf.Bytes())
	return buf.Bytes()
}

// typeSize returns the byte width of a single value of the given TIFF
// field type. The IFD count field counts values, not bytes.
func typeSize(typ uint16) int {
	switch typ {
	case typeShort:
		return 2
	case typeLong:
		return 4
	case typeRational, typeSRational:
		return 8
	default:
		return 1
	}
}

// encodeUTF16LE encodes s as null-terminated UTF-16LE, the encoding the
// Windows XP* EXIF fields expect.
func encodeUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units)*2+2)
	for _, u := range units {
		out = append(out, byte(u), byte(u>>8))
	}
	return append(out, 0, 0)
}

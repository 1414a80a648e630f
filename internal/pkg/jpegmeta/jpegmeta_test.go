package jpegmeta

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/color"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiKellner/StockShip/internal/pkg/metadata"
)

var fullConfig = Config{Enabled: true, WriteEXIF: true, WriteIPTC: true}

func fixtureJPEG(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(16, 16, color.NRGBA{R: 200, G: 120, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func fixturePNG(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(16, 16, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func utf16Bytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units)*2)
	for _, u := range units {
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}

func TestEmbedPassesThroughNonJPEG(t *testing.T) {
	t.Parallel()

	png := fixturePNG(t)
	rec := metadata.Record{Title: "Title", Tags: []string{"a"}}

	out, err := Embed(png, rec, "image/png", "photo.png", fullConfig)
	require.NoError(t, err)
	assert.Equal(t, png, out, "non-JPEG input must pass through byte-identical")
}

func TestEmbedPassesThroughWhenDisabled(t *testing.T) {
	t.Parallel()

	jpg := fixtureJPEG(t)
	rec := metadata.Record{Title: "Title"}

	out, err := Embed(jpg, rec, "image/jpeg", "photo.jpg", Config{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, jpg, out)
}

func TestEmbedPassesThroughWithoutSOI(t *testing.T) {
	t.Parallel()

	// Declared as JPEG but the buffer is not one.
	data := []byte("definitely not a jpeg")
	out, err := Embed(data, metadata.Record{Title: "x"}, "image/jpeg", "photo.jpg", fullConfig)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestEmbedDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	jpg := fixtureJPEG(t)
	original := make([]byte, len(jpg))
	copy(original, jpg)

	_, err := Embed(jpg, metadata.Record{Title: "Title", Tags: []string{"a", "b"}}, "image/jpeg", "photo.jpg", fullConfig)
	require.NoError(t, err)
	assert.Equal(t, original, jpg)
}

func TestEmbedEXIFRoundTrip(t *testing.T) {
	t.Parallel()

	rec := metadata.Record{
		Title:       "Golden Retriever on Beach",
		Description: "A dog runs along the shoreline at sunset",
		Tags:        []string{"dog", "beach", "sunset"},
	}

	out, err := Embed(fixtureJPEG(t), rec, "image/jpeg", "photo.jpg", Config{Enabled: true, WriteEXIF: true})
	require.NoError(t, err)
	require.True(t, hasSOI(out))

	x, err := exif.Decode(bytes.NewReader(out))
	require.NoError(t, err, "embedded EXIF block must be decodable")

	tag, err := x.Get(exif.ImageDescription)
	require.NoError(t, err)
	desc, err := tag.StringVal()
	require.NoError(t, err)
	assert.Equal(t, rec.Title, desc)

	// The Windows XP* fields carry title, joined keywords and description as
	// UTF-16LE byte arrays.
	assert.True(t, bytes.Contains(out, utf16Bytes(rec.Title)))
	assert.True(t, bytes.Contains(out, utf16Bytes("dog;beach;sunset")))
	assert.True(t, bytes.Contains(out, utf16Bytes(rec.Description)))

	// UserComment carries the description with the ASCII charset prefix.
	assert.True(t, bytes.Contains(out, append([]byte("ASCII\x00\x00\x00"), rec.Description...)))

	// The result must still decode as an image.
	_, err = imaging.Decode(bytes.NewReader(out))
	assert.NoError(t, err)
}

func TestEmbedEXIFPreservesExistingFields(t *testing.T) {
	t.Parallel()

	first := metadata.Record{Title: "First Title", Tags: []string{"one"}}
	out, err := Embed(fixtureJPEG(t), first, "image/jpeg", "photo.jpg", Config{Enabled: true, WriteEXIF: true})
	require.NoError(t, err)

	second := metadata.Record{Title: "Second Title", Tags: []string{"two"}}
	out, err = Embed(out, second, "image/jpeg", "photo.jpg", Config{Enabled: true, WriteEXIF: true})
	require.NoError(t, err)

	x, err := exif.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	tag, err := x.Get(exif.ImageDescription)
	require.NoError(t, err)
	desc, err := tag.StringVal()
	require.NoError(t, err)
	assert.Equal(t, "Second Title", desc, "re-embedding must replace, not duplicate")

	// Only one EXIF segment may remain.
	assert.Equal(t, 1, bytes.Count(out, []byte(exifHeader)))
}

func TestEmbedEXIFPreservesOrientation(t *testing.T) {
	t.Parallel()

	// Seed the fixture with an EXIF block carrying Orientation 6, the way a
	// camera would tag a rotated shot.
	orient := make([]byte, 2)
	binary.LittleEndian.PutUint16(orient, 6)
	seeded := buildExifPayload(map[uint16]ifdEntry{
		0x0112: {tag: 0x0112, typ: typeShort, data: orient},
	})
	jpg := fixtureJPEG(t)
	jpg = spliceAt(jpg, exifInsertOffset(jpg), buildSegment(markerAPP1, seeded))

	out, err := Embed(jpg, metadata.Record{Title: "Rotated Shot"}, "image/jpeg", "photo.jpg", Config{Enabled: true, WriteEXIF: true})
	require.NoError(t, err)

	x, err := exif.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	tag, err := x.Get(exif.Orientation)
	require.NoError(t, err, "orientation must survive re-embedding")
	val, err := tag.Int(0)
	require.NoError(t, err)
	assert.Equal(t, 6, val)

	desc, err := x.Get(exif.ImageDescription)
	require.NoError(t, err)
	title, err := desc.StringVal()
	require.NoError(t, err)
	assert.Equal(t, "Rotated Shot", title)
}

func TestEmbedFailsOnOversizedEXIFPayload(t *testing.T) {
	t.Parallel()

	// The UTF-16LE XPSubject field doubles the description, blowing past the
	// 65,533 byte segment ceiling. The embedder must fail rather than write a
	// segment with a wrapped length field.
	rec := metadata.Record{
		Title:       "Title",
		Description: strings.Repeat("d", 40000),
	}

	out, err := Embed(fixtureJPEG(t), rec, "image/jpeg", "photo.jpg", Config{Enabled: true, WriteEXIF: true})
	assert.Error(t, err)
	assert.Nil(t, out)
}

func TestEmbedFailsOnOversizedIPTCPayload(t *testing.T) {
	t.Parallel()

	tags := make([]string, 9000)
	for i := range tags {
		tags[i] = fmt.Sprintf("keyword%04d", i)
	}

	out, err := Embed(fixtureJPEG(t), metadata.Record{Title: "Title", Tags: tags}, "image/jpeg", "photo.jpg", Config{Enabled: true, WriteIPTC: true})
	assert.Error(t, err)
	assert.Nil(t, out)
}

func TestEmbedIPTCBlockStructure(t *testing.T) {
	t.Parallel()

	rec := metadata.Record{
		Title:       "Golden Retriever on Beach",
		Description: "A dog runs along the shoreline",
		Tags:        []string{"dog", "beach", "sunset"},
	}

	out, err := Embed(fixtureJPEG(t), rec, "image/jpeg", "photo.jpg", Config{Enabled: true, WriteIPTC: true})
	require.NoError(t, err)

	assert.True(t, bytes.Contains(out, []byte(photoshopHeader)))
	assert.True(t, bytes.Contains(out, []byte("8BIM")))

	// One Keywords dataset per tag, never joined.
	for _, tag := range rec.Tags {
		dataset := []byte{iptcTagMarker, iptcRecordApp, datasetKeywords, 0x00, byte(len(tag))}
		dataset = append(dataset, tag...)
		assert.True(t, bytes.Contains(out, dataset), "missing keywords dataset for %q", tag)
	}

	title := append([]byte{iptcTagMarker, iptcRecordApp, datasetObjectName, 0x00, byte(len(rec.Title))}, rec.Title...)
	assert.True(t, bytes.Contains(out, title))

	caption := append([]byte{iptcTagMarker, iptcRecordApp, datasetCaption, 0x00, byte(len(rec.Description))}, rec.Description...)
	assert.True(t, bytes.Contains(out, caption))

	_, err = imaging.Decode(bytes.NewReader(out))
	assert.NoError(t, err)
}

func TestEmbedIPTCReplacesExistingBlock(t *testing.T) {
	t.Parallel()

	cfg := Config{Enabled: true, WriteIPTC: true}
	out, err := Embed(fixtureJPEG(t), metadata.Record{Title: "First"}, "image/jpeg", "photo.jpg", cfg)
	require.NoError(t, err)

	out, err = Embed(out, metadata.Record{Title: "Second"}, "image/jpeg", "photo.jpg", cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, bytes.Count(out, []byte(photoshopHeader)))
	assert.False(t, bytes.Contains(out, []byte("First")))
	assert.True(t, bytes.Contains(out, []byte("Second")))
}

func TestIsJPEG(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mimeType string
		filename string
		want     bool
	}{
		{name: "mime type wins", mimeType: "image/jpeg", filename: "whatever.bin", want: true},
		{name: "legacy mime type", mimeType: "image/jpg", filename: "x", want: true},
		{name: "jpg extension", mimeType: "", filename: "photo.JPG", want: true},
		{name: "jfif extension", mimeType: "", filename: "photo.jfif", want: true},
		{name: "png is not a jpeg", mimeType: "image/png", filename: "photo.png", want: false},
		{name: "no hints", mimeType: "", filename: "photo", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsJPEG(tt.mimeType, tt.filename))
		})
	}
}

func TestSegmentHelpers(t *testing.T) {
	t.Parallel()

	seg := buildSegment(markerAPP13, []byte{0xAA, 0xBB})
	assert.Equal(t, []byte{0xFF, markerAPP13, 0x00, 0x04, 0xAA, 0xBB}, seg)

	data := append([]byte{0xFF, markerSOI}, seg...)
	data = append(data, 0xFF, 0xDA) // start of scan
	assert.Equal(t, len(seg), segmentLength(data, 2))

	stripped := stripSegments(data, markerAPP13)
	assert.Equal(t, []byte{0xFF, markerSOI, 0xFF, 0xDA}, stripped)

	// Truncated length field stops the scan instead of panicking.
	assert.Equal(t, -1, segmentLength([]byte{0xFF, markerAPP13, 0x00}, 0))

	// A payload the length field cannot represent must not be silently
	// wrapped.
	assert.Panics(t, func() { buildSegment(markerAPP1, make([]byte, maxSegmentPayload+1)) })
}

// Package jpegmeta writes marketplace metadata into the binary header
// segments of JPEG files: EXIF (APP1) and IPTC-IIM inside a Photoshop
// APP13 resource. Non-JPEG input always passes through byte-identical.
package jpegmeta

import (
	"fmt"

	"github.com/TobiKellner/StockShip/internal/pkg/metadata"
)

// Config controls which binary metadata blocks are written.
type Config struct {
	Enabled   bool `json:"enabled"`
	WriteEXIF bool `json:"write_exif"`
	WriteIPTC bool `json:"write_iptc"`
}

// Embed returns a new buffer with the record written into the image's
// metadata segments. The input buffer is never mutated. Files that are not
// JPEGs (by declared mime type or extension) and buffers without a valid
// SOI marker are returned unchanged.
func Embed(data []byte, rec metadata.Record, mimeType, filename string, cfg Config) (out []byte, err error) {
	if !cfg.Enabled || !IsJPEG(mimeType, filename) {
		return data, nil
	}
	if !hasSOI(data) {
		return data, nil
	}

	// Malformed segment tables can push the scanners out of bounds; the
	// caller degrades to the original bytes in that case.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("metadata embedding failed for %s: %v", filename, r)
		}
	}()

	out = data
	if cfg.WriteEXIF {
		out = embedEXIF(out, rec)
	}
	if cfg.WriteIPTC {
		out = embedIPTC(out, rec)
	}
	return out, nil
}

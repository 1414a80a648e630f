// Package spreadsheet renders the metadata sidecar CSV that accompanies
// every export archive.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/TobiKellner/StockShip/internal/pkg/metadata"
)

// EntryName is the fixed name of the spreadsheet inside the archive.
const EntryName = "metadata.csv"

// utf8BOM lets spreadsheet applications pick up the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Generate renders one row per record in input order. Tags are joined into
// a single comma-separated field and capped at the marketplace tag limit;
// the title is truncated once more here because this file is the artifact a
// human reads, even though the record builder already enforces the limit.
func Generate(records []metadata.Record, marketplace metadata.Marketplace) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Filename", "Title", "Description", "Tags"}); err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet header: %w", err)
	}

	tagLimit := marketplace.TagLimit()
	for _, rec := range records {
		tags := rec.Tags
		if len(tags) > tagLimit {
			tags = tags[:tagLimit]
		}
		row := []string{
			rec.Filename,
			metadata.TruncateTitle(rec.Title, marketplace.TitleLimit()),
			rec.Description,
			strings.Join(tags, ","),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write spreadsheet row for %s: %w", rec.Filename, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

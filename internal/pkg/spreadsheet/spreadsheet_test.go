package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiKellner/StockShip/internal/pkg/metadata"
)

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, utf8BOM), "spreadsheet must start with a UTF-8 BOM")
	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestGenerateHeaderAndRows(t *testing.T) {
	t.Parallel()

	records := []metadata.Record{
		{Filename: "beach-1.jpg", Title: "Golden Retriever on Beach", Description: "A dog at sunset", Tags: []string{"dog", "beach", "sunset"}},
		{Filename: "beach-2.jpg", Title: "Second Image", Description: "", Tags: nil},
	}

	data, err := Generate(records, metadata.MarketplaceEtsy)
	require.NoError(t, err)

	rows := parseCSV(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Filename", "Title", "Description", "Tags"}, rows[0])
	assert.Equal(t, []string{"beach-1.jpg", "Golden Retriever on Beach", "A dog at sunset", "dog,beach,sunset"}, rows[1])
	assert.Equal(t, []string{"beach-2.jpg", "Second Image", "", ""}, rows[2])
}

func TestGenerateEscapesSpecialCharacters(t *testing.T) {
	t.Parallel()

	records := []metadata.Record{
		{Filename: "a.jpg", Title: `Title with "quotes", commas`, Description: "line one\nline two", Tags: []string{"a,b"}},
	}

	data, err := Generate(records, metadata.MarketplaceEtsy)
	require.NoError(t, err)

	rows := parseCSV(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, `Title with "quotes", commas`, rows[1][1])
	assert.Equal(t, "line one\nline two", rows[1][2])
}

func TestGenerateCapsTagsAtMarketplaceLimit(t *testing.T) {
	t.Parallel()

	tags := make([]string, 20)
	for i := range tags {
		tags[i] = string(rune('a' + i))
	}
	records := []metadata.Record{{Filename: "a.jpg", Title: "t", Tags: tags}}

	data, err := Generate(records, metadata.MarketplaceEtsy)
	require.NoError(t, err)

	rows := parseCSV(t, data)
	got := strings.Split(rows[1][3], ",")
	assert.Len(t, got, metadata.MarketplaceEtsy.TagLimit())
	assert.Equal(t, tags[:13], got)
}

func TestGenerateTruncatesOverlongTitle(t *testing.T) {
	t.Parallel()

	records := []metadata.Record{{Filename: "a.jpg", Title: strings.Repeat("x", 250)}}

	data, err := Generate(records, metadata.MarketplaceEtsy)
	require.NoError(t, err)

	rows := parseCSV(t, data)
	assert.Len(t, rows[1][1], 140)
	assert.True(t, strings.HasSuffix(rows[1][1], "..."))
}

func TestGenerateEmptyInput(t *testing.T) {
	t.Parallel()

	data, err := Generate(nil, metadata.MarketplaceEtsy)
	require.NoError(t, err)

	rows := parseCSV(t, data)
	require.Len(t, rows, 1, "only the header row")
}

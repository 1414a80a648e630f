package metadata

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBuildRecordPriorityChain(t *testing.T) {
	t.Parallel()

	group := ImageGroup{
		ID:                "g1",
		SharedTitle:       "Shared Title",
		SharedDescription: "Shared description",
		SharedTags:        []string{"shared-tag"},
	}

	tests := []struct {
		name      string
		asset     ImageAsset
		wantTitle string
		wantTags  []string
	}{
		{
			name:      "user edits win over everything",
			asset:     ImageAsset{UserTitle: "User Title", UserTags: []string{"user-tag"}, AITitle: "AI Title", AITags: []string{"ai-tag"}},
			wantTitle: "User Title",
			wantTags:  []string{"user-tag"},
		},
		{
			name:      "group values win over ai values",
			asset:     ImageAsset{AITitle: "AI Title", AITags: []string{"ai-tag"}},
			wantTitle: "Shared Title",
			wantTags:  []string{"shared-tag"},
		},
		{
			name:      "fields resolve independently",
			asset:     ImageAsset{UserTitle: "User Title", AITags: []string{"ai-tag"}},
			wantTitle: "User Title",
			wantTags:  []string{"shared-tag"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := BuildRecord(tt.asset, group, MarketplaceEtsy)
			assert.Equal(t, tt.wantTitle, rec.Title)
			assert.Equal(t, tt.wantTags, rec.Tags)
			assert.Equal(t, "Shared description", rec.Description)
		})
	}
}

func TestBuildRecordFallsBackToAI(t *testing.T) {
	t.Parallel()

	group := ImageGroup{ID: "g1"}
	asset := ImageAsset{AITitle: "AI Title", AITags: []string{"ai-tag"}}

	rec := BuildRecord(asset, group, MarketplaceEtsy)
	assert.Equal(t, "AI Title", rec.Title)
	assert.Equal(t, []string{"ai-tag"}, rec.Tags)
	assert.Empty(t, rec.Description)
}

func TestBuildRecordTruncatesTitleToMarketplaceLimit(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 250)
	group := ImageGroup{ID: "g1", SharedTitle: long}

	rec := BuildRecord(ImageAsset{}, group, MarketplaceEtsy)
	assert.Len(t, rec.Title, 140)
	assert.True(t, strings.HasSuffix(rec.Title, "..."))

	rec = BuildRecord(ImageAsset{}, group, MarketplaceAdobeStock)
	assert.Len(t, rec.Title, 200)
	assert.True(t, strings.HasSuffix(rec.Title, "..."))
}

func TestTruncateTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", TruncateTitle("short", 140))
	assert.Equal(t, strings.Repeat("a", 140), TruncateTitle(strings.Repeat("a", 140), 140))
	assert.Equal(t, strings.Repeat("a", 137)+"...", TruncateTitle(strings.Repeat("a", 141), 140))
}

func TestTruncateTitleCountsCharactersNotBytes(t *testing.T) {
	t.Parallel()

	got := TruncateTitle(strings.Repeat("ä", 250), 140)
	assert.Equal(t, strings.Repeat("ä", 137)+"...", got)
	assert.Equal(t, 140, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))

	// A title at exactly the character limit is left alone even though its
	// byte length exceeds it.
	exact := strings.Repeat("ü", 140)
	assert.Equal(t, exact, TruncateTitle(exact, 140))
}

func TestMarketplaceLimits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 140, MarketplaceEtsy.TitleLimit())
	assert.Equal(t, 13, MarketplaceEtsy.TagLimit())
	assert.Equal(t, 200, MarketplaceAdobeStock.TitleLimit())
	assert.Equal(t, 49, MarketplaceAdobeStock.TagLimit())

	assert.True(t, MarketplaceEtsy.Valid())
	assert.True(t, MarketplaceAdobeStock.Valid())
	assert.False(t, Marketplace("shutterstock").Valid())
}

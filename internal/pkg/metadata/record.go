package metadata

// UnclusteredGroupID is the bucket for images the clustering collaborator
// could not assign to any group. It is never exportable.
const UnclusteredGroupID = "unclustered"

// ImageGroup is a named cluster of images sharing metadata defaults. Groups
// are produced by the clustering/editing collaborator and consumed read-only
// by the export pipeline.
type ImageGroup struct {
	ID                string       `json:"id"`
	DisplayIndex      int          `json:"display_index"`
	SharedTitle       string       `json:"shared_title"`
	SharedDescription string       `json:"shared_description"`
	SharedTags        []string     `json:"shared_tags"` // insertion order carries SEO priority
	IsVerified        bool         `json:"is_verified"`
	Images            []ImageAsset `json:"images"`
}

// ImageAsset is one image inside a group. Data holds the original image
// bytes; FilePath is the staged location used when bytes are not delivered
// inline. The pipeline only ever reads the buffer.
type ImageAsset struct {
	ID               string   `json:"id"`
	Data             []byte   `json:"-"`
	FilePath         string   `json:"file_path,omitempty"`
	OriginalFilename string   `json:"original_filename"`
	MimeType         string   `json:"mime_type"`
	UserTitle        string   `json:"user_title,omitempty"`
	UserTags         []string `json:"user_tags,omitempty"`
	AITitle          string   `json:"ai_title,omitempty"`
	AITags           []string `json:"ai_tags,omitempty"`
	AIConfidence     float64  `json:"ai_confidence,omitempty"`
}

// Record is the resolved, marketplace-normalized metadata for one exported
// image. It is created once per image per export run and never mutated.
type Record struct {
	Filename    string
	Title       string
	Description string
	Tags        []string
}

// BuildRecord resolves title, description and tags for one image using a
// fixed priority chain, independently per field: user edits win over
// group-shared values, which win over AI-generated values.
func BuildRecord(asset ImageAsset, group ImageGroup, marketplace Marketplace) Record {
	title := firstNonEmpty(asset.UserTitle, group.SharedTitle, asset.AITitle)

	tags := asset.UserTags
	if len(tags) == 0 {
		tags = group.SharedTags
	}
	if len(tags) == 0 {
		tags = asset.AITags
	}

	return Record{
		Title:       TruncateTitle(title, marketplace.TitleLimit()),
		Description: group.SharedDescription,
		Tags:        tags,
	}
}

// TruncateTitle caps the title at limit characters, replacing the tail with
// an ellipsis when it is too long. The limit counts characters, not bytes,
// so multibyte titles are never cut mid-rune.
func TruncateTitle(title string, limit int) string {
	runes := []rune(title)
	if limit <= 3 || len(runes) <= limit {
		return title
	}
	return string(runes[:limit-3]) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

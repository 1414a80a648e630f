package naming

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Template describes how exported files are named. Pattern may contain the
// placeholders {date}, {project}, {seq} and {original}; {seq} is mandatory
// because it is the only part guaranteed to differ between two images.
type Template struct {
	Pattern         string `json:"pattern"`
	SequencePadding int    `json:"sequence_padding" validate:"gte=0,lte=10"`
	ProjectName     string `json:"project_name"`
}

const maxBaseNameLength = 200

var (
	illegalChars      = regexp.MustCompile(`[<>:"/\\|?*]`)
	repeatUnderscores = regexp.MustCompile(`_+`)
	nonSlugChars      = regexp.MustCompile(`[^a-z0-9]+`)
)

// Validate checks that the template can produce unique file names.
func (t Template) Validate() error {
	if strings.TrimSpace(t.Pattern) == "" {
		return fmt.Errorf("naming pattern must not be empty")
	}
	if !strings.Contains(t.Pattern, "{seq}") {
		return fmt.Errorf("naming pattern %q must contain the {seq} placeholder, otherwise file names can collide", t.Pattern)
	}
	return nil
}

// Generate builds the file name (without extension) for the given 1-based
// sequence number. originalName is the uploaded file name used for the
// {original} placeholder.
func (t Template) Generate(seq int, originalName string, now time.Time) string {
	project := Slugify(t.ProjectName)
	if project == "" {
		project = "export"
	}

	padding := t.SequencePadding
	if padding <= 0 {
		padding = 1
	}

	original := originalName
	if idx := strings.LastIndex(original, "."); idx > 0 {
		original = original[:idx]
	}

	name := t.Pattern
	name = strings.ReplaceAll(name, "{date}", now.Format("2006-01-02"))
	name = strings.ReplaceAll(name, "{project}", project)
	name = strings.ReplaceAll(name, "{seq}", fmt.Sprintf("%0*d", padding, seq))
	name = strings.ReplaceAll(name, "{original}", Slugify(original))

	return Sanitize(name)
}

// Sanitize removes characters that are illegal on common file systems,
// collapses repeated underscores and caps the length.
func Sanitize(name string) string {
	name = illegalChars.ReplaceAllString(name, "_")
	name = repeatUnderscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if runes := []rune(name); len(runes) > maxBaseNameLength {
		name = string(runes[:maxBaseNameLength])
	}
	return name
}

// Slugify lowercases the input and replaces every non-alphanumeric run with
// a single hyphen.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

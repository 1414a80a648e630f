// Package exporter drives the marketplace export pipeline: it selects the
// groups to export, names and embeds every image, and packages the result
// into a single compressed archive with a metadata spreadsheet.
package exporter

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/TobiKellner/StockShip/internal/pkg/jpegmeta"
	"github.com/TobiKellner/StockShip/internal/pkg/metadata"
	"github.com/TobiKellner/StockShip/internal/pkg/naming"
	"github.com/TobiKellner/StockShip/internal/pkg/spreadsheet"
)

// DefaultCompressionLevel is the DEFLATE level used when none is configured.
const DefaultCompressionLevel = 6

// Options configures one export run.
type Options struct {
	Marketplace      metadata.Marketplace `json:"marketplace" validate:"required"`
	Template         naming.Template      `json:"template"`
	Embed            jpegmeta.Config      `json:"embed"`
	SelectedGroupIDs []string             `json:"selected_group_ids,omitempty"`
	CompressionLevel int                  `json:"compression_level,omitempty"`

	// OnProgress, when set, receives progress events for every phase.
	OnProgress ProgressFunc `json:"-"`

	// Now is overridable for deterministic archive names in tests.
	Now func() time.Time `json:"-"`
}

// Export runs the whole pipeline over the given groups. It never returns an
// error: every failure mode is folded into the Result. Images are processed
// strictly one at a time in stable order so the sequence numbers stay
// monotonic and gap-free.
func Export(ctx context.Context, groups []metadata.ImageGroup, opts Options) Result {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	// An unusable naming template is a configuration error and fails before
	// any image is touched.
	if opts.Template.Pattern != "" {
		if err := opts.Template.Validate(); err != nil {
			return Result{Error: err.Error()}
		}
	}

	filtered := filterGroups(groups, opts.SelectedGroupIDs)

	stats := Stats{TotalGroups: len(filtered)}
	for _, g := range filtered {
		stats.TotalImages += len(g.Images)
	}

	if stats.TotalImages == 0 {
		return Result{
			Error: "no exportable images: select at least one group with a title or tags",
			Stats: stats,
		}
	}

	emit(opts.OnProgress, Progress{Total: stats.TotalImages, Phase: PhasePreparing})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	level := opts.CompressionLevel
	if level == 0 {
		level = DefaultCompressionLevel
	}
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	records := make([]metadata.Record, 0, stats.TotalImages)
	used := map[string]int{}
	seq := 0
	processed := 0

	for gi, group := range filtered {
		base := naming.Slugify(group.SharedTitle)
		if base == "" {
			base = fmt.Sprintf("group-%d", groupNumber(group, gi))
		}

		for ii, asset := range group.Images {
			if err := ctx.Err(); err != nil {
				log.Warnf("[Exporter] run cancelled after %d of %d images", processed, stats.TotalImages)
				return Result{Error: "export cancelled", Stats: stats}
			}

			data, err := acquireBytes(asset)
			if err != nil {
				log.Warnf("[Exporter] skipping image %s: %v", asset.ID, err)
				stats.SkippedImages++
				processed++
				continue
			}

			seq++
			filename := buildFilename(opts.Template, base, seq, ii, len(group.Images), asset.OriginalFilename, used, now())

			rec := metadata.BuildRecord(asset, group, opts.Marketplace)
			rec.Filename = filename

			processed++
			emit(opts.OnProgress, Progress{
				Current:     processed,
				Total:       stats.TotalImages,
				Phase:       PhaseProcessing,
				CurrentFile: filename,
			})

			embedded, err := jpegmeta.Embed(data, rec, asset.MimeType, asset.OriginalFilename, opts.Embed)
			if err != nil {
				// Embedding never fails the run; the original bytes are
				// exported instead.
				log.Warnf("[Exporter] %v, exporting original bytes", err)
				embedded = data
			}

			if err := writeArchiveEntry(zw, filename, embedded); err != nil {
				log.Errorf("[Exporter] archive write failed: %v", err)
				return Result{Error: fmt.Sprintf("failed to write %s to archive: %v", filename, err), Stats: stats}
			}
			records = append(records, rec)
		}
	}

	emit(opts.OnProgress, Progress{Current: processed, Total: stats.TotalImages, Phase: PhaseCompressing})

	sheet, err := spreadsheet.Generate(records, opts.Marketplace)
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to generate spreadsheet: %v", err), Stats: stats}
	}
	if err := writeArchiveEntry(zw, spreadsheet.EntryName, sheet); err != nil {
		return Result{Error: fmt.Sprintf("failed to write spreadsheet to archive: %v", err), Stats: stats}
	}

	if err := zw.Close(); err != nil {
		return Result{Error: fmt.Sprintf("failed to finalize archive: %v", err), Stats: stats}
	}

	emit(opts.OnProgress, Progress{Current: processed, Total: stats.TotalImages, Phase: PhaseComplete})
	log.Infof("[Exporter] exported %d images (%d skipped) across %d groups", len(records), stats.SkippedImages, stats.TotalGroups)

	return Result{
		Success:      true,
		ArchiveBytes: buf.Bytes(),
		ArchiveName:  archiveName(opts.Marketplace, now()),
		Stats:        stats,
	}
}

// filterGroups drops the unclustered bucket, then applies the explicit
// subset when one was given; otherwise it keeps every group that has at
// least one image and at least one non-empty metadata field.
func filterGroups(groups []metadata.ImageGroup, selected []string) []metadata.ImageGroup {
	selectedSet := map[string]bool{}
	for _, id := range selected {
		selectedSet[id] = true
	}

	var out []metadata.ImageGroup
	for _, g := range groups {
		if g.ID == metadata.UnclusteredGroupID {
			continue
		}
		if len(selected) > 0 {
			if selectedSet[g.ID] {
				out = append(out, g)
			}
			continue
		}
		if len(g.Images) == 0 {
			continue
		}
		if g.SharedTitle == "" && len(g.SharedTags) == 0 {
			continue
		}
		out = append(out, g)
	}
	return out
}

// acquireBytes resolves the raw image payload: inline bytes win, otherwise
// the staged file is read. A missing payload skips the image, it never
// fails the run.
func acquireBytes(asset metadata.ImageAsset) ([]byte, error) {
	if len(asset.Data) > 0 {
		return asset.Data, nil
	}
	if asset.FilePath == "" {
		return nil, fmt.Errorf("image has no byte payload")
	}
	data, err := os.ReadFile(asset.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged file: %w", err)
	}
	return data, nil
}

// buildFilename names one archive entry. A configured template pattern
// wins; otherwise the group base name is used, with a numeric suffix only
// when the group has more than one image. Collisions across groups get a
// counter suffix so every archive entry stays unique.
func buildFilename(tpl naming.Template, base string, seq, indexInGroup, groupSize int, originalName string, used map[string]int, now time.Time) string {
	var name string
	if tpl.Pattern != "" {
		name = tpl.Generate(seq, originalName, now)
	} else {
		name = base
		if groupSize > 1 {
			name = fmt.Sprintf("%s-%d", base, indexInGroup+1)
		}
	}

	used[name]++
	if n := used[name]; n > 1 {
		name = fmt.Sprintf("%s-%d", name, n)
	}

	return name + fileExtension(originalName)
}

func fileExtension(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".jpg"
	}
	return ext
}

func groupNumber(group metadata.ImageGroup, index int) int {
	if group.DisplayIndex > 0 {
		return group.DisplayIndex
	}
	return index + 1
}

func writeArchiveEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func archiveName(marketplace metadata.Marketplace, now time.Time) string {
	return fmt.Sprintf("%s_export_%s.zip", marketplace, now.Format("2006-01-02_150405"))
}

func emit(fn ProgressFunc, p Progress) {
	if fn != nil {
		fn(p)
	}
}

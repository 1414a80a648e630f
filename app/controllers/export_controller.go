package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/TobiKellner/StockShip/app/models"
	"github.com/TobiKellner/StockShip/internal/pkg/database"
	"github.com/TobiKellner/StockShip/internal/pkg/env"
	"github.com/TobiKellner/StockShip/internal/pkg/exporter"
	"github.com/TobiKellner/StockShip/internal/pkg/jobqueue"
	"github.com/TobiKellner/StockShip/internal/pkg/jpegmeta"
	"github.com/TobiKellner/StockShip/internal/pkg/metadata"
	"github.com/TobiKellner/StockShip/internal/pkg/naming"
	"github.com/TobiKellner/StockShip/internal/pkg/upload"
)

var validate = validator.New()

// createExportRequest is the JSON manifest part of the multipart request.
// Every image asset references its uploaded file part by asset id.
type createExportRequest struct {
	Marketplace      metadata.Marketplace  `json:"marketplace" validate:"required,oneof=etsy adobestock"`
	Template         naming.Template       `json:"template"`
	Embed            jpegmeta.Config       `json:"embed"`
	SelectedGroupIDs []string              `json:"selected_group_ids"`
	CompressionLevel int                   `json:"compression_level" validate:"gte=0,lte=9"`
	Groups           []metadata.ImageGroup `json:"groups" validate:"required,min=1"`
}

// HandleCreateExport accepts a multipart export request: a "manifest" JSON
// field describing the groups plus one file part per image asset, named by
// the asset id. The export itself runs on the background job queue; the
// response carries the job uuid for polling.
func HandleCreateExport(c *fiber.Ctx) error {
	manifestJSON := c.FormValue("manifest")
	if manifestJSON == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "manifest field missing"})
	}

	var req createExportRequest
	if err := json.Unmarshal([]byte(manifestJSON), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid manifest JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	// Reject an unusable naming template before staging anything
	if req.Template.Pattern != "" {
		if err := req.Template.Validate(); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
		}
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "multipart form required"})
	}

	jobUUID := uuid.New().String()
	workDir := filepath.Join(env.GetEnv("UPLOAD_DIR", "uploads"), "exports", jobUUID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		fiberlog.Errorf("[Export] failed to create work dir: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to stage upload"})
	}

	if err := stageImageFiles(form, req.Groups, workDir); err != nil {
		_ = os.RemoveAll(workDir)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	manifest := exporter.Manifest{
		Groups: req.Groups,
		Options: exporter.Options{
			Marketplace:      req.Marketplace,
			Template:         req.Template,
			Embed:            req.Embed,
			SelectedGroupIDs: req.SelectedGroupIDs,
			CompressionLevel: req.CompressionLevel,
		},
	}
	manifestPath := filepath.Join(workDir, "manifest.json")
	if err := manifest.Save(manifestPath); err != nil {
		fiberlog.Errorf("[Export] %v", err)
		_ = os.RemoveAll(workDir)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to stage manifest"})
	}

	record := models.ExportJob{
		UUID:        jobUUID,
		Marketplace: string(req.Marketplace),
		Status:      models.EXPORT_STATUS_PENDING,
	}
	if err := database.GetDB().Create(&record).Error; err != nil {
		fiberlog.Errorf("[Export] failed to create job record: %v", err)
		_ = os.RemoveAll(workDir)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to create export job"})
	}

	payload := jobqueue.ExportJobPayload{
		JobUUID:      jobUUID,
		ManifestPath: manifestPath,
		WorkDir:      workDir,
	}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeExport, payload.ToMap()); err != nil {
		fiberlog.Errorf("[Export] failed to enqueue job: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "failed to enqueue export job"})
	}

	_ = exporter.SetExportStatus(jobUUID, models.EXPORT_STATUS_PENDING)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_uuid": jobUUID,
		"status":   models.EXPORT_STATUS_PENDING,
	})
}

// stageImageFiles writes every uploaded file part to the work dir and wires
// the staged path into the matching image asset. File parts are looked up by
// asset id. An asset without an uploaded part keeps an empty path; the
// pipeline counts it as skipped.
func stageImageFiles(form *multipart.Form, groups []metadata.ImageGroup, workDir string) error {
	imageDir := filepath.Join(workDir, "images")
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return fmt.Errorf("failed to create image dir: %w", err)
	}

	for gi := range groups {
		for ai := range groups[gi].Images {
			asset := &groups[gi].Images[ai]
			headers := form.File[asset.ID]
			if len(headers) == 0 {
				continue
			}
			header := headers[0]

			head, err := readFileHead(header, 512)
			if err != nil {
				return fmt.Errorf("failed to read file for asset %s: %w", asset.ID, err)
			}
			mimeType, err := upload.ValidateImageBySniff(header.Filename, head)
			if err != nil {
				return fmt.Errorf("file for asset %s rejected: %w", asset.ID, err)
			}

			dstPath := filepath.Join(imageDir, asset.ID+filepath.Ext(header.Filename))
			if err := saveFilePart(header, dstPath); err != nil {
				return fmt.Errorf("failed to stage file for asset %s: %w", asset.ID, err)
			}

			asset.FilePath = dstPath
			asset.MimeType = mimeType
			if asset.OriginalFilename == "" {
				asset.OriginalFilename = header.Filename
			}
		}
	}
	return nil
}

func readFileHead(header *multipart.FileHeader, n int) ([]byte, error) {
	src, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	head := make([]byte, n)
	read, err := src.Read(head)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return head[:read], nil
}

func saveFilePart(header *multipart.FileHeader, dstPath string) error {
	src, err := header.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// HandleGetExport returns status, progress and stats for one export job
func HandleGetExport(c *fiber.Ctx) error {
	jobUUID := c.Params("uuid")
	if jobUUID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "uuid missing"})
	}

	record, err := models.FindExportJobByUUID(database.GetDB(), jobUUID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "export job not found"})
	}

	status := record.Status
	if cached, cerr := exporter.GetExportStatus(jobUUID); cerr == nil && cached != "" {
		status = cached
	}

	response := fiber.Map{
		"job_uuid":     record.UUID,
		"marketplace":  record.Marketplace,
		"status":       status,
		"archive_name": record.ArchiveName,
		"stats": fiber.Map{
			"total_groups":   record.TotalGroups,
			"total_images":   record.TotalImages,
			"skipped_images": record.SkippedImages,
		},
	}
	if record.ErrorMsg != "" {
		response["error_msg"] = record.ErrorMsg
	}
	if progress, perr := exporter.GetExportProgress(jobUUID); perr == nil {
		response["progress"] = progress
	}

	return c.JSON(response)
}

// HandleDownloadExport streams the finished archive
func HandleDownloadExport(c *fiber.Ctx) error {
	jobUUID := c.Params("uuid")
	if jobUUID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "uuid missing"})
	}

	record, err := models.FindExportJobByUUID(database.GetDB(), jobUUID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "export job not found"})
	}
	if record.Status != models.EXPORT_STATUS_COMPLETED || record.ArchivePath == "" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": fmt.Sprintf("export job is %s", record.Status)})
	}
	if _, err := os.Stat(record.ArchivePath); err != nil {
		fiberlog.Errorf("[Export] archive missing for job %s: %v", jobUUID, err)
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "gone", "message": "archive no longer available"})
	}

	return c.Download(record.ArchivePath, record.ArchiveName)
}

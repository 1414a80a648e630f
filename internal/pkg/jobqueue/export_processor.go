package jobqueue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/TobiKellner/StockShip/app/models"
	"github.com/TobiKellner/StockShip/internal/pkg/database"
	"github.com/TobiKellner/StockShip/internal/pkg/env"
	"github.com/TobiKellner/StockShip/internal/pkg/exporter"
	"github.com/TobiKellner/StockShip/internal/pkg/s3delivery"
)

// processExportJob runs the export pipeline for one staged manifest and
// persists the outcome.
func (q *Queue) processExportJob(ctx context.Context, job *Job) error {
	payload, err := ExportJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid export job payload: %w", err)
	}

	manifest, err := exporter.LoadManifest(payload.ManifestPath)
	if err != nil {
		return err
	}

	db := database.GetDB()
	record, err := models.FindExportJobByUUID(db, payload.JobUUID)
	if err != nil {
		return fmt.Errorf("export job %s not found: %w", payload.JobUUID, err)
	}

	updateJobRecord(record, models.EXPORT_STATUS_PROCESSING, nil)
	_ = exporter.SetExportStatus(payload.JobUUID, models.EXPORT_STATUS_PROCESSING)

	opts := manifest.Options
	opts.OnProgress = func(p exporter.Progress) {
		if err := exporter.SetExportProgress(payload.JobUUID, p); err != nil {
			log.Warnf("[JobQueue] Failed to publish progress for job %s: %v", payload.JobUUID, err)
		}
	}

	result := exporter.Export(ctx, manifest.Groups, opts)

	record.TotalGroups = result.Stats.TotalGroups
	record.TotalImages = result.Stats.TotalImages
	record.SkippedImages = result.Stats.SkippedImages

	if !result.Success {
		record.ErrorMsg = result.Error
		updateJobRecord(record, models.EXPORT_STATUS_FAILED, nil)
		_ = exporter.SetExportStatus(payload.JobUUID, models.EXPORT_STATUS_FAILED)
		return fmt.Errorf("export run failed: %s", result.Error)
	}

	archivePath, err := storeArchive(payload.JobUUID, result.ArchiveName, result.ArchiveBytes)
	if err != nil {
		record.ErrorMsg = err.Error()
		updateJobRecord(record, models.EXPORT_STATUS_FAILED, nil)
		_ = exporter.SetExportStatus(payload.JobUUID, models.EXPORT_STATUS_FAILED)
		return err
	}

	now := time.Now()
	record.ArchiveName = result.ArchiveName
	record.ArchivePath = archivePath
	record.ArchiveSize = int64(len(result.ArchiveBytes))
	updateJobRecord(record, models.EXPORT_STATUS_COMPLETED, &now)
	_ = exporter.SetExportStatus(payload.JobUUID, models.EXPORT_STATUS_COMPLETED)

	// Staged uploads are no longer needed once the archive exists
	if payload.WorkDir != "" {
		if err := os.RemoveAll(payload.WorkDir); err != nil {
			log.Warnf("[JobQueue] Failed to clean up work dir %s: %v", payload.WorkDir, err)
		}
	}

	q.enqueueDeliveryIfEnabled(payload.JobUUID, archivePath, result.ArchiveName)
	return nil
}

// processArchiveDeliveryJob ships a finished archive to the configured S3
// bucket.
func (q *Queue) processArchiveDeliveryJob(ctx context.Context, job *Job) error {
	payload, err := ArchiveDeliveryJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid delivery job payload: %w", err)
	}

	cfg, err := s3delivery.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.IsEnabled() {
		log.Warnf("[JobQueue] S3 delivery disabled, dropping delivery job for %s", payload.JobUUID)
		return nil
	}

	client, err := s3delivery.NewClient(cfg)
	if err != nil {
		return err
	}

	objectKey := cfg.GetObjectKey(payload.JobUUID, payload.ArchiveName, time.Now())
	if _, err := client.UploadArchive(payload.ArchivePath, objectKey); err != nil {
		return err
	}

	db := database.GetDB()
	if record, rerr := models.FindExportJobByUUID(db, payload.JobUUID); rerr == nil {
		record.S3Key = objectKey
		if err := db.Save(record).Error; err != nil {
			log.Errorf("[JobQueue] Failed to persist S3 key for job %s: %v", payload.JobUUID, err)
		}
	}

	return nil
}

func (q *Queue) enqueueDeliveryIfEnabled(jobUUID, archivePath, archiveName string) {
	cfg, err := s3delivery.LoadConfig()
	if err != nil || !cfg.IsEnabled() {
		return
	}

	payload := ArchiveDeliveryJobPayload{
		JobUUID:     jobUUID,
		ArchivePath: archivePath,
		ArchiveName: archiveName,
	}
	if _, err := q.EnqueueJob(JobTypeArchiveDelivery, payload.ToMap()); err != nil {
		log.Errorf("[JobQueue] Failed to enqueue delivery job for %s: %v", jobUUID, err)
	}
}

// storeArchive writes the finished archive below the export directory using
// the job uuid as a namespace.
func storeArchive(jobUUID, archiveName string, data []byte) (string, error) {
	dir := filepath.Join(env.GetEnv("EXPORT_DIR", "exports"), jobUUID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, archiveName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	return path, nil
}

func updateJobRecord(record *models.ExportJob, status string, completedAt *time.Time) {
	record.Status = status
	if completedAt != nil {
		record.CompletedAt = completedAt
	}
	if err := database.GetDB().Save(record).Error; err != nil {
		log.Errorf("[JobQueue] Failed to persist export job %s: %v", record.UUID, err)
	}
}

package exporter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/TobiKellner/StockShip/internal/pkg/cache"
)

// Cache key formats for export job status tracking
const (
	ExportStatusKeyFormat   = "export:status:%s"   // Format: export:status:<uuid>
	ExportProgressKeyFormat = "export:progress:%s" // Format: export:progress:<uuid>
)

const statusTTL = 24 * time.Hour

// SetExportStatus sets the processing status of an export job in the cache
func SetExportStatus(jobUUID string, status string) error {
	key := fmt.Sprintf(ExportStatusKeyFormat, jobUUID)
	return cache.Set(key, status, statusTTL)
}

// GetExportStatus retrieves the processing status of an export job from the cache
func GetExportStatus(jobUUID string) (string, error) {
	key := fmt.Sprintf(ExportStatusKeyFormat, jobUUID)
	return cache.Get(key)
}

// SetExportProgress publishes the latest progress event for an export job
func SetExportProgress(jobUUID string, p Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(ExportProgressKeyFormat, jobUUID)
	return cache.Set(key, string(data), statusTTL)
}

// GetExportProgress retrieves the latest progress event for an export job
func GetExportProgress(jobUUID string) (Progress, error) {
	key := fmt.Sprintf(ExportProgressKeyFormat, jobUUID)
	raw, err := cache.Get(key)
	if err != nil {
		return Progress{}, err
	}
	var p Progress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Progress{}, err
	}
	return p, nil
}

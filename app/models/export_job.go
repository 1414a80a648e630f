package models

import (
	"time"

	"gorm.io/gorm"
)

// Export job status values
const (
	EXPORT_STATUS_PENDING    = "pending"
	EXPORT_STATUS_PROCESSING = "processing"
	EXPORT_STATUS_COMPLETED  = "completed"
	EXPORT_STATUS_FAILED     = "failed"
)

// ExportJob is the persisted history record of one export run.
type ExportJob struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UUID          string     `gorm:"type:char(36) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex;not null" json:"uuid"`
	Marketplace   string     `gorm:"type:varchar(50);not null" json:"marketplace" validate:"required,oneof=etsy adobestock"`
	Status        string     `gorm:"type:varchar(20);default:pending;index" json:"status"`
	ArchiveName   string     `gorm:"type:varchar(255)" json:"archive_name"`
	ArchiveSize   int64      `gorm:"type:bigint" json:"archive_size"`
	ArchivePath   string     `gorm:"type:varchar(255)" json:"-"`
	S3Key         string     `gorm:"type:varchar(255)" json:"-"`
	TotalGroups   int        `gorm:"type:int" json:"total_groups"`
	TotalImages   int        `gorm:"type:int" json:"total_images"`
	SkippedImages int        `gorm:"type:int" json:"skipped_images"`
	ErrorMsg      string     `gorm:"type:text" json:"error_msg,omitempty"`
	CompletedAt   *time.Time `gorm:"type:datetime" json:"completed_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// FindExportJobByUUID looks up a job by its public id.
func FindExportJobByUUID(db *gorm.DB, uuid string) (*ExportJob, error) {
	var job ExportJob
	if err := db.Where("uuid = ?", uuid).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

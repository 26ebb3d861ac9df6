package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Video statuses, in pipeline order. Each failed_* status names the step
// that failed.
const (
	VideoPending          = "pending"
	VideoProcessingScript = "processing_script"
	VideoPendingRender    = "pending_render"
	VideoRendering        = "rendering"
	VideoPendingMetadata  = "pending_metadata"
	VideoProcessingMeta   = "processing_metadata"
	VideoPendingUpload    = "pending_upload"
	VideoUploading        = "uploading"
	VideoComplete         = "complete"

	VideoFailedScript   = "failed_script"
	VideoFailedRender   = "failed_render"
	VideoFailedMetadata = "failed_metadata"
	VideoFailedUpload   = "failed_upload"
	VideoNoContext      = "failed_no_context"
)

type Video struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TopicID     uint      `gorm:"not null;index" json:"topic_id"`
	Topic       Topic     `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	Script      string    `gorm:"type:text" json:"script,omitempty"`
	Grounded    bool      `json:"grounded"`
	SourceURL   string    `json:"source_url,omitempty"`
	Title       string    `gorm:"size:255" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Tags        string    `gorm:"type:text" json:"-"`
	AvatarJobID string    `gorm:"size:128" json:"avatar_job_id,omitempty"`
	FilePath    string    `json:"file_path,omitempty"`
	YouTubeID   string    `gorm:"column:youtube_id;size:64" json:"youtube_id,omitempty"`
	Status      string    `gorm:"default:'pending'" json:"status"`
	Error       string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Video) TableName() string {
	return "videos"
}

// TagList returns the stored comma-separated tags.
func (v *Video) TagList() []string {
	if v.Tags == "" {
		return nil
	}
	return strings.Split(v.Tags, ",")
}

// SetTags stores tags as a comma-separated column.
func (v *Video) SetTags(tags []string) {
	v.Tags = strings.Join(tags, ",")
}

// Fail records the failing status and error message on the row.
func (v *Video) Fail(db *gorm.DB, status string, err error) error {
	updates := map[string]interface{}{"status": status}
	if err != nil {
		updates["error"] = err.Error()
	}
	return db.Model(v).Updates(updates).Error
}

// AutoMigrate creates or updates every table the pipeline uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Topic{}, &Video{})
}

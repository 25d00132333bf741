package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ProcessingStatus tracks a material through the extraction state machine:
// pending -> processing -> ready | error. A new processing run may re-enter
// processing from any status.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusReady      ProcessingStatus = "ready"
	StatusError      ProcessingStatus = "error"
)

type Material struct {
	Base
	UserID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Title            string           `gorm:"not null" json:"title"`
	OriginalFilename string           `gorm:"not null" json:"original_filename"`
	FileType         string           `gorm:"not null" json:"file_type"`
	SizeBytes        int64            `gorm:"not null" json:"size_bytes"`
	StoragePath      string           `gorm:"not null" json:"storage_path"`
	ProcessingStatus ProcessingStatus `gorm:"type:varchar(50);not null;index;default:'pending'" json:"processing_status"`
	TextContent      *string          `gorm:"type:text" json:"text_content,omitempty"`
	ErrorMessage     *string          `gorm:"type:text" json:"error_message,omitempty"`
	Metadata         datatypes.JSON   `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (Material) TableName() string {
	return "materials"
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

type ImportSession struct {
	ID                string                                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	WorkspaceID       string                                `gorm:"type:text;not null;index:idx_import_sessions_workspace"`
	ImportType        string                                `gorm:"type:text;not null"`
	Filename          string                                `gorm:"type:text;not null"`
	TotalRecords      int64                                 `gorm:"not null"`
	ProcessedRecords  int64                                 `gorm:"not null;default:0"`
	SuccessfulRecords int64                                 `gorm:"not null;default:0"`
	FailedRecords     int64                                 `gorm:"not null;default:0"`
	Status            string                                `gorm:"type:text;not null"`
	ImportMode        string                                `gorm:"type:text;not null"`
	DuplicateField    string                                `gorm:"type:text;not null;default:''"`
	FieldMapping      datatypes.JSONType[map[string]string] `gorm:"type:jsonb;not null"`
	ErrorLog          *string                               `gorm:"type:text"`
	CreatedBy         string                                `gorm:"type:text;not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}

func (ImportSession) TableName() string {
	return "import_sessions"
}

type ImportError struct {
	ID           string                                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID    string                                `gorm:"type:uuid;not null;index"`
	RowNumber    int64                                 `gorm:"not null"`
	FieldName    *string                               `gorm:"type:text"`
	ErrorType    string                                `gorm:"type:text;not null"`
	ErrorMessage string                                `gorm:"type:text;not null"`
	RawData      datatypes.JSONType[map[string]string] `gorm:"type:jsonb"`
	CreatedAt    time.Time
}

func (ImportError) TableName() string {
	return "import_errors"
}

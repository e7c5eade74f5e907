package importing

import "time"

type ImportType string

const (
	ImportTypeContacts   ImportType = "contacts"
	ImportTypeBusinesses ImportType = "businesses"
	ImportTypeDonations  ImportType = "donations"
)

func (t ImportType) Valid() bool {
	switch t {
	case ImportTypeContacts, ImportTypeBusinesses, ImportTypeDonations:
		return true
	}
	return false
}

type ImportMode string

const (
	ImportModeCreateOnly     ImportMode = "create_only"
	ImportModeUpdateOrCreate ImportMode = "update_or_create"
)

func (m ImportMode) Valid() bool {
	return m == ImportModeCreateOnly || m == ImportModeUpdateOrCreate
}

type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusProcessing SessionStatus = "processing"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
	StatusCancelled  SessionStatus = "cancelled"
)

// Terminal reports whether no further batches can be applied.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindDuplicate  ErrorKind = "duplicate"
	ErrorKindProcessing ErrorKind = "processing"
)

// FieldMapping maps a CSV column name to a target field name.
type FieldMapping map[string]string

type ImportSession struct {
	ID                string
	WorkspaceID       string
	ImportType        ImportType
	Filename          string
	TotalRecords      int64
	ProcessedRecords  int64
	SuccessfulRecords int64
	FailedRecords     int64
	Status            SessionStatus
	ImportMode        ImportMode
	DuplicateField    string
	FieldMapping      FieldMapping
	ErrorLog          string
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}

func (s ImportSession) Progress() ImportProgress {
	return ImportProgress{
		TotalRecords:      s.TotalRecords,
		ProcessedRecords:  s.ProcessedRecords,
		SuccessfulRecords: s.SuccessfulRecords,
		FailedRecords:     s.FailedRecords,
		Status:            s.Status,
	}
}

type ImportProgress struct {
	TotalRecords      int64
	ProcessedRecords  int64
	SuccessfulRecords int64
	FailedRecords     int64
	Status            SessionStatus
}

func (p ImportProgress) PercentComplete() int {
	if p.TotalRecords <= 0 {
		return 0
	}
	return int(p.ProcessedRecords * 100 / p.TotalRecords)
}

type ImportError struct {
	ID           string
	SessionID    string
	RowNumber    int64
	FieldName    string
	ErrorType    ErrorKind
	ErrorMessage string
	RawData      map[string]string
	CreatedAt    time.Time
}

// RowFailure is the per-row summary returned to the client for one batch.
type RowFailure struct {
	RowNumber int64             `json:"rowNumber"`
	Error     string            `json:"error"`
	Data      map[string]string `json:"data"`
}

// BatchCommit carries everything written when a batch is committed.
type BatchCommit struct {
	SessionID  string
	StartIndex int64
	RowCount   int64
	Successful int64
	Failed     int64
	Errors     []ImportError
	Failures   []RowFailure
}

// CommittedBatch is the stored outcome of an already committed batch.
type CommittedBatch struct {
	SessionID  string
	StartIndex int64
	RowCount   int64
	Successful int64
	Failed     int64
	Failures   []RowFailure
	CreatedAt  time.Time
}

type ErrorCounts struct {
	Validation int64
	Duplicate  int64
	Processing int64
}

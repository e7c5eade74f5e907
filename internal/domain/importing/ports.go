package importing

import (
	"context"
	"time"
)

type SessionRepository interface {
	Create(ctx context.Context, session ImportSession) (ImportSession, error)
	Get(ctx context.Context, sessionID string) (ImportSession, error)
	ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]ImportSession, error)
	// TransitionStatus moves a session to status "to" only while it is in one of
	// "from"; ErrSessionStateChanged is returned otherwise.
	TransitionStatus(ctx context.Context, sessionID string, from []SessionStatus, to SessionStatus, errorLog string) (ImportSession, error)
	Delete(ctx context.Context, sessionID string) error
	ListErrors(ctx context.Context, sessionID string, limit, offset int) ([]ImportError, error)
	CountErrors(ctx context.Context, sessionID string) (ErrorCounts, error)
}

type BatchRepository interface {
	// FindBatch returns nil without error when the batch was never committed.
	FindBatch(ctx context.Context, sessionID string, startIndex int64) (*CommittedBatch, error)
	// CommitBatch stores the batch marker, its errors and the counter increments
	// atomically. ErrBatchAlreadyCommitted is returned when the marker exists.
	CommitBatch(ctx context.Context, commit BatchCommit) (ImportSession, error)
}

type ExistingRecord struct {
	ID    string
	Value string
}

type RecordStore interface {
	FindByField(ctx context.Context, t ImportType, workspaceID, column string, caseInsensitive bool, values []string) ([]ExistingRecord, error)
	Create(ctx context.Context, workspaceID, createdBy string, record Record) (string, error)
	Update(ctx context.Context, workspaceID, recordID string, record Record) error
}

type ImportEvent struct {
	Type              string        `json:"type"`
	SessionID         string        `json:"sessionId"`
	WorkspaceID       string        `json:"workspaceId"`
	ImportType        ImportType    `json:"importType"`
	Status            SessionStatus `json:"status"`
	TotalRecords      int64         `json:"totalRecords"`
	SuccessfulRecords int64         `json:"successfulRecords"`
	FailedRecords     int64         `json:"failedRecords"`
	OccurredAt        time.Time     `json:"occurredAt"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event ImportEvent) error
}

type WorkspaceAuthorizer interface {
	CanAccessWorkspace(ctx context.Context, principalID, workspaceID string) (bool, error)
}

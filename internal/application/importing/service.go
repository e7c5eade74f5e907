package importing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
	"github.com/mohammadpnp/crm-import/internal/logging"
)

const (
	defaultMaxBatchSize = 500
	defaultSessionList  = 50
	defaultErrorPage    = 100
	maxErrorPage        = 1000
)

type CreateSessionInput struct {
	WorkspaceID    string
	ImportType     string
	Filename       string
	TotalRecords   int64
	ImportMode     string
	DuplicateField string
	FieldMapping   map[string]string
	CreatedBy      string
}

type CreateSessionOutput struct {
	SessionID string               `json:"sessionId"`
	Status    domain.SessionStatus `json:"status"`
}

type ProcessBatchInput struct {
	SessionID  string
	Rows       []RawRow
	StartIndex int64
}

type ProcessBatchOutput struct {
	Successful int64               `json:"successful"`
	Failed     int64               `json:"failed"`
	Created    int64               `json:"created"`
	Updated    int64               `json:"updated"`
	Errors     []domain.RowFailure `json:"errors"`
	Progress   ProgressOutput      `json:"progress"`
	Replayed   bool                `json:"replayed"`
}

type ProgressOutput struct {
	TotalRecords      int64                `json:"totalRecords"`
	ProcessedRecords  int64                `json:"processedRecords"`
	SuccessfulRecords int64                `json:"successfulRecords"`
	FailedRecords     int64                `json:"failedRecords"`
	Status            domain.SessionStatus `json:"status"`
	PercentComplete   int                  `json:"percentComplete"`
}

type SessionOutput struct {
	ID                string               `json:"id"`
	WorkspaceID       string               `json:"workspaceId"`
	ImportType        domain.ImportType    `json:"importType"`
	Filename          string               `json:"filename"`
	TotalRecords      int64                `json:"totalRecords"`
	ProcessedRecords  int64                `json:"processedRecords"`
	SuccessfulRecords int64                `json:"successfulRecords"`
	FailedRecords     int64                `json:"failedRecords"`
	Status            domain.SessionStatus `json:"status"`
	ImportMode        domain.ImportMode    `json:"importMode"`
	DuplicateField    string               `json:"duplicateField,omitempty"`
	FieldMapping      map[string]string    `json:"fieldMapping"`
	ErrorLog          string               `json:"errorLog,omitempty"`
	CreatedBy         string               `json:"createdBy"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
	CompletedAt       *time.Time           `json:"completedAt,omitempty"`
}

type ImportErrorOutput struct {
	ID           string            `json:"id"`
	RowNumber    int64             `json:"rowNumber"`
	FieldName    string            `json:"fieldName,omitempty"`
	ErrorType    domain.ErrorKind  `json:"errorType"`
	ErrorMessage string            `json:"errorMessage"`
	RawData      map[string]string `json:"rawData,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

type ErrorCountsOutput struct {
	Validation int64 `json:"validation"`
	Duplicate  int64 `json:"duplicate"`
	Processing int64 `json:"processing"`
}

type SummaryOutput struct {
	Session     SessionOutput       `json:"session"`
	Progress    ProgressOutput      `json:"progress"`
	ErrorCounts ErrorCountsOutput   `json:"errorCounts"`
	Errors      []ImportErrorOutput `json:"errors"`
}

type ImportService interface {
	CreateSession(ctx context.Context, in CreateSessionInput) (CreateSessionOutput, error)
	ProcessBatch(ctx context.Context, in ProcessBatchInput) (ProcessBatchOutput, error)
	GetProgress(ctx context.Context, sessionID string) (ProgressOutput, error)
	GetSession(ctx context.Context, sessionID string) (SessionOutput, error)
	GetSummary(ctx context.Context, sessionID string) (SummaryOutput, error)
	ListSessions(ctx context.Context, workspaceID string) ([]SessionOutput, error)
	ListErrors(ctx context.Context, sessionID string, limit, offset int) ([]ImportErrorOutput, error)
	CancelSession(ctx context.Context, sessionID string) (SessionOutput, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ValidateData(ctx context.Context, in ValidateDataInput) (ValidateDataOutput, error)
	CheckDuplicates(ctx context.Context, in CheckDuplicatesInput) ([]DuplicateOutput, error)
}

type ServiceConfig struct {
	MaxBatchSize int
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.ImportEvent) error { return nil }

type importService struct {
	sessions  domain.SessionRepository
	batches   domain.BatchRepository
	records   domain.RecordStore
	publisher domain.EventPublisher
	validator *Validator
	detector  *DuplicateDetector
	cfg       ServiceConfig
	now       func() time.Time
}

func NewImportService(sessions domain.SessionRepository, batches domain.BatchRepository, records domain.RecordStore, publisher domain.EventPublisher, cfg ServiceConfig) ImportService {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultMaxBatchSize
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &importService{
		sessions:  sessions,
		batches:   batches,
		records:   records,
		publisher: publisher,
		validator: NewValidator(),
		detector:  NewDuplicateDetector(records),
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *importService) CreateSession(ctx context.Context, in CreateSessionInput) (CreateSessionOutput, error) {
	workspaceID := strings.TrimSpace(in.WorkspaceID)
	if workspaceID == "" {
		return CreateSessionOutput{}, ErrInvalidWorkspace
	}

	importType := domain.ImportType(strings.TrimSpace(in.ImportType))
	cfg, ok := domain.ConfigFor(importType)
	if !ok {
		return CreateSessionOutput{}, fmt.Errorf("%w: %q", ErrUnsupportedImportType, in.ImportType)
	}

	mode := domain.ImportMode(strings.TrimSpace(in.ImportMode))
	if mode == "" {
		mode = domain.ImportModeCreateOnly
	}
	if !mode.Valid() {
		return CreateSessionOutput{}, fmt.Errorf("%w: %q", ErrInvalidImportMode, in.ImportMode)
	}

	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return CreateSessionOutput{}, ErrInvalidFilename
	}
	if in.TotalRecords <= 0 {
		return CreateSessionOutput{}, ErrInvalidTotalRecords
	}

	mapping, err := checkFieldMapping(cfg, in.FieldMapping)
	if err != nil {
		return CreateSessionOutput{}, err
	}

	duplicateField := strings.TrimSpace(in.DuplicateField)
	if duplicateField != "" {
		if _, ok := cfg.DuplicateCandidate(duplicateField); !ok {
			return CreateSessionOutput{}, fmt.Errorf("%w: %q", ErrInvalidDuplicateField, duplicateField)
		}
	}

	session, err := s.sessions.Create(ctx, domain.ImportSession{
		WorkspaceID:    workspaceID,
		ImportType:     importType,
		Filename:       filename,
		TotalRecords:   in.TotalRecords,
		Status:         domain.StatusPending,
		ImportMode:     mode,
		DuplicateField: duplicateField,
		FieldMapping:   mapping,
		CreatedBy:      in.CreatedBy,
	})
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return CreateSessionOutput{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return CreateSessionOutput{}, fmt.Errorf("%w: %v", ErrCreateSession, err)
	}

	importSessionTransitions.WithLabelValues(string(importType), string(domain.StatusPending)).Inc()
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"session_id":    session.ID,
		"workspace_id":  workspaceID,
		"import_type":   importType,
		"total_records": in.TotalRecords,
	}).Info("import session created")

	return CreateSessionOutput{SessionID: session.ID, Status: session.Status}, nil
}

// checkFieldMapping requires every required field to be targeted and rejects
// unknown targets. Columns mapped to an empty target are dropped.
func checkFieldMapping(cfg domain.ImportConfig, mapping map[string]string) (domain.FieldMapping, error) {
	out := make(domain.FieldMapping, len(mapping))
	targeted := map[string]bool{}
	var unknown []string
	for column, field := range mapping {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if _, ok := cfg.Field(field); !ok {
			unknown = append(unknown, field)
			continue
		}
		out[column] = field
		targeted[field] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMappedField, strings.Join(sortedCopy(unknown), ", "))
	}

	var missing []string
	for _, required := range cfg.RequiredFields() {
		if !targeted[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequiredMapping, strings.Join(missing, ", "))
	}
	return out, nil
}

func (s *importService) GetProgress(ctx context.Context, sessionID string) (ProgressOutput, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return ProgressOutput{}, err
	}
	return toProgressOutput(session.Progress()), nil
}

func (s *importService) GetSession(ctx context.Context, sessionID string) (SessionOutput, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return SessionOutput{}, err
	}
	return toSessionOutput(session), nil
}

func (s *importService) GetSummary(ctx context.Context, sessionID string) (SummaryOutput, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return SummaryOutput{}, err
	}

	counts, err := s.sessions.CountErrors(ctx, sessionID)
	if err != nil {
		return SummaryOutput{}, s.storeError(ErrGetSession, err)
	}

	var all []domain.ImportError
	for offset := 0; ; offset += maxErrorPage {
		page, err := s.sessions.ListErrors(ctx, sessionID, maxErrorPage, offset)
		if err != nil {
			return SummaryOutput{}, s.storeError(ErrGetSession, err)
		}
		all = append(all, page...)
		if len(page) < maxErrorPage {
			break
		}
	}

	return SummaryOutput{
		Session:  toSessionOutput(session),
		Progress: toProgressOutput(session.Progress()),
		ErrorCounts: ErrorCountsOutput{
			Validation: counts.Validation,
			Duplicate:  counts.Duplicate,
			Processing: counts.Processing,
		},
		Errors: toImportErrorOutputs(all),
	}, nil
}

func (s *importService) ListSessions(ctx context.Context, workspaceID string) ([]SessionOutput, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return nil, ErrInvalidWorkspace
	}
	sessions, err := s.sessions.ListByWorkspace(ctx, workspaceID, defaultSessionList)
	if err != nil {
		return nil, s.storeError(ErrGetSession, err)
	}
	out := make([]SessionOutput, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionOutput(session))
	}
	return out, nil
}

func (s *importService) ListErrors(ctx context.Context, sessionID string, limit, offset int) ([]ImportErrorOutput, error) {
	if _, err := s.loadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultErrorPage
	}
	limit = min(limit, maxErrorPage)
	offset = max(offset, 0)

	errs, err := s.sessions.ListErrors(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, s.storeError(ErrGetSession, err)
	}
	return toImportErrorOutputs(errs), nil
}

func (s *importService) CancelSession(ctx context.Context, sessionID string) (SessionOutput, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return SessionOutput{}, err
	}

	for {
		switch session.Status {
		case domain.StatusCancelled:
			return toSessionOutput(session), nil
		case domain.StatusCompleted, domain.StatusFailed:
			return SessionOutput{}, ErrSessionClosed
		}

		updated, err := s.sessions.TransitionStatus(ctx, sessionID,
			[]domain.SessionStatus{domain.StatusPending, domain.StatusProcessing},
			domain.StatusCancelled, "cancelled by user")
		if errors.Is(err, domain.ErrSessionStateChanged) {
			if session, err = s.loadSession(ctx, sessionID); err != nil {
				return SessionOutput{}, err
			}
			continue
		}
		if err != nil {
			return SessionOutput{}, s.storeError(ErrUpdateSession, err)
		}

		s.onTerminal(ctx, updated)
		return toSessionOutput(updated), nil
	}
}

func (s *importService) DeleteSession(ctx context.Context, sessionID string) error {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == domain.StatusProcessing {
		return ErrSessionBusy
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return s.storeError(ErrDeleteSession, err)
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"session_id":   sessionID,
		"workspace_id": session.WorkspaceID,
	}).Info("import session deleted")
	return nil
}

func (s *importService) loadSession(ctx context.Context, sessionID string) (domain.ImportSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.ImportSession{}, ErrSessionNotFound
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ImportSession{}, ErrSessionNotFound
		}
		return domain.ImportSession{}, s.storeError(ErrGetSession, err)
	}
	return session, nil
}

// storeError wraps repository failures, keeping the unavailable class visible
// so the transport can ask the client to retry.
func (s *importService) storeError(kind error, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%w: %v", kind, err)
}

// onTerminal records metrics and publishes the lifecycle event for a session
// that just reached a terminal status. Publish failures are logged only.
func (s *importService) onTerminal(ctx context.Context, session domain.ImportSession) {
	importSessionTransitions.WithLabelValues(string(session.ImportType), string(session.Status)).Inc()

	logger := logging.FromContext(ctx).WithFields(logrus.Fields{
		"session_id":   session.ID,
		"workspace_id": session.WorkspaceID,
		"status":       session.Status,
		"successful":   session.SuccessfulRecords,
		"failed":       session.FailedRecords,
	})
	logger.Info("import session finished")

	event := domain.ImportEvent{
		Type:              "import." + string(session.Status),
		SessionID:         session.ID,
		WorkspaceID:       session.WorkspaceID,
		ImportType:        session.ImportType,
		Status:            session.Status,
		TotalRecords:      session.TotalRecords,
		SuccessfulRecords: session.SuccessfulRecords,
		FailedRecords:     session.FailedRecords,
		OccurredAt:        s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.WithError(err).Warn("publish import event failed")
	}
}

func toProgressOutput(p domain.ImportProgress) ProgressOutput {
	return ProgressOutput{
		TotalRecords:      p.TotalRecords,
		ProcessedRecords:  p.ProcessedRecords,
		SuccessfulRecords: p.SuccessfulRecords,
		FailedRecords:     p.FailedRecords,
		Status:            p.Status,
		PercentComplete:   p.PercentComplete(),
	}
}

func toSessionOutput(s domain.ImportSession) SessionOutput {
	mapping := make(map[string]string, len(s.FieldMapping))
	for k, v := range s.FieldMapping {
		mapping[k] = v
	}
	return SessionOutput{
		ID:                s.ID,
		WorkspaceID:       s.WorkspaceID,
		ImportType:        s.ImportType,
		Filename:          s.Filename,
		TotalRecords:      s.TotalRecords,
		ProcessedRecords:  s.ProcessedRecords,
		SuccessfulRecords: s.SuccessfulRecords,
		FailedRecords:     s.FailedRecords,
		Status:            s.Status,
		ImportMode:        s.ImportMode,
		DuplicateField:    s.DuplicateField,
		FieldMapping:      mapping,
		ErrorLog:          s.ErrorLog,
		CreatedBy:         s.CreatedBy,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		CompletedAt:       s.CompletedAt,
	}
}

func toImportErrorOutputs(errs []domain.ImportError) []ImportErrorOutput {
	out := make([]ImportErrorOutput, 0, len(errs))
	for _, e := range errs {
		out = append(out, ImportErrorOutput{
			ID:           e.ID,
			RowNumber:    e.RowNumber,
			FieldName:    e.FieldName,
			ErrorType:    e.ErrorType,
			ErrorMessage: e.ErrorMessage,
			RawData:      e.RawData,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}

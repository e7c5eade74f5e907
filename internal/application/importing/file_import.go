package importing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
	"github.com/mohammadpnp/crm-import/internal/logging"
)

var ErrEmptyFile = errors.New("import file has no data rows")

type FileSource interface {
	Open(ctx context.Context, sourcePath string) (io.ReadCloser, error)
}

type FileImportConfig struct {
	BatchSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
}

type FileImportInput struct {
	WorkspaceID    string
	ImportType     string
	SourcePath     string
	ImportMode     string
	DuplicateField string
	// FieldMapping defaults to mapping every header that names a target field
	// to itself, which matches files built from the download template.
	FieldMapping map[string]string
	CreatedBy    string
}

type FileImportResult struct {
	SessionID string         `json:"sessionId"`
	Batches   int            `json:"batches"`
	Progress  ProgressOutput `json:"progress"`
}

// FileImporter drives a server-side CSV file through the same session and
// batch operations a client uses. Batches that hit an unavailable store are
// resent; batch commits are idempotent so a resend never double counts.
type FileImporter struct {
	service ImportService
	source  FileSource
	cfg     FileImportConfig
}

func NewFileImporter(service ImportService, source FileSource, cfg FileImportConfig) *FileImporter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultMaxBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	return &FileImporter{service: service, source: source, cfg: cfg}
}

func (f *FileImporter) Import(ctx context.Context, in FileImportInput) (FileImportResult, error) {
	reader, err := f.source.Open(ctx, in.SourcePath)
	if err != nil {
		return FileImportResult{}, fmt.Errorf("open import source: %w", err)
	}
	defer reader.Close()

	parsed, err := ParseCSV(reader)
	if err != nil {
		return FileImportResult{}, err
	}
	if len(parsed.Rows) == 0 {
		return FileImportResult{}, ErrEmptyFile
	}

	mapping := in.FieldMapping
	if len(mapping) == 0 {
		mapping = identityMapping(domain.ImportType(in.ImportType), parsed.Headers)
	}

	created, err := f.service.CreateSession(ctx, CreateSessionInput{
		WorkspaceID:    in.WorkspaceID,
		ImportType:     in.ImportType,
		Filename:       filepath.Base(in.SourcePath),
		TotalRecords:   int64(len(parsed.Rows)),
		ImportMode:     in.ImportMode,
		DuplicateField: in.DuplicateField,
		FieldMapping:   mapping,
		CreatedBy:      in.CreatedBy,
	})
	if err != nil {
		return FileImportResult{}, err
	}

	logger := logging.FromContext(ctx).WithFields(logrus.Fields{
		"session_id": created.SessionID,
		"source":     in.SourcePath,
		"rows":       len(parsed.Rows),
	})
	result := FileImportResult{SessionID: created.SessionID}

	for start := 0; start < len(parsed.Rows); start += f.cfg.BatchSize {
		if ctx.Err() != nil {
			f.cancel(created.SessionID, logger)
			return result, ctx.Err()
		}

		end := min(start+f.cfg.BatchSize, len(parsed.Rows))
		out, err := f.sendBatch(ctx, ProcessBatchInput{
			SessionID:  created.SessionID,
			Rows:       parsed.Rows[start:end],
			StartIndex: int64(start),
		}, logger)
		if err != nil {
			if ctx.Err() != nil {
				f.cancel(created.SessionID, logger)
			}
			return result, fmt.Errorf("batch starting at row %d: %w", start+1, err)
		}
		result.Batches++
		result.Progress = out.Progress
		logger.WithFields(logrus.Fields{
			"processed": out.Progress.ProcessedRecords,
			"failed":    out.Progress.FailedRecords,
		}).Debug("file import batch done")
	}

	return result, nil
}

func (f *FileImporter) sendBatch(ctx context.Context, in ProcessBatchInput, logger *logrus.Entry) (ProcessBatchOutput, error) {
	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		out, err := f.service.ProcessBatch(ctx, in)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrStoreUnavailable) {
			return ProcessBatchOutput{}, err
		}
		lastErr = err
		logger.WithError(err).WithField("attempt", attempt).Warn("import store unavailable, retrying batch")
		if !sleepWithContext(ctx, f.cfg.RetryBackoff*time.Duration(attempt)) {
			return ProcessBatchOutput{}, ctx.Err()
		}
	}
	return ProcessBatchOutput{}, lastErr
}

// cancel runs on a fresh context since the caller's is already done.
func (f *FileImporter) cancel(sessionID string, logger *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := f.service.CancelSession(ctx, sessionID); err != nil {
		logger.WithError(err).Warn("cancel interrupted file import")
	}
}

func identityMapping(t domain.ImportType, headers []string) map[string]string {
	cfg, ok := domain.ConfigFor(t)
	if !ok {
		return nil
	}
	mapping := map[string]string{}
	for _, header := range headers {
		if _, known := cfg.Field(header); known {
			mapping[header] = header
		}
	}
	return mapping
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

package importing

import (
	"errors"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

var (
	ErrUnsupportedImportType  = errors.New("unsupported import type")
	ErrInvalidImportMode      = errors.New("invalid import mode")
	ErrInvalidWorkspace       = errors.New("invalid workspace id")
	ErrInvalidFilename        = errors.New("invalid filename")
	ErrInvalidTotalRecords    = errors.New("total records must be positive")
	ErrMissingRequiredMapping = errors.New("field mapping is missing required fields")
	ErrUnknownMappedField     = errors.New("field mapping references unknown fields")
	ErrInvalidDuplicateField  = errors.New("invalid duplicate detection field")
	ErrInvalidCSV             = errors.New("invalid csv")

	ErrSessionNotFound   = errors.New("import session not found")
	ErrSessionCancelled  = errors.New("import session was cancelled")
	ErrSessionClosed     = errors.New("import session is already finished")
	ErrSessionBusy       = errors.New("import session is processing")
	ErrEmptyBatch        = errors.New("batch has no rows")
	ErrBatchTooLarge     = errors.New("batch exceeds the maximum size")
	ErrInvalidStartIndex = errors.New("invalid batch start index")
	ErrBatchOutOfRange   = errors.New("batch runs past the session total")
	ErrBatchConflict     = errors.New("batch conflicts with an already committed batch")
	ErrBatchOverlap      = errors.New("batch overlaps rows already processed")
	ErrRelatedNotFound   = errors.New("related record not found")

	ErrStoreUnavailable = errors.New("import store unavailable")
	ErrImportFailed     = errors.New("import failed")
	ErrCreateSession    = errors.New("failed to create import session")
	ErrGetSession       = errors.New("failed to get import session")
	ErrUpdateSession    = errors.New("failed to update import session")
	ErrDeleteSession    = errors.New("failed to delete import session")
	ErrProcessBatch     = errors.New("failed to process import batch")
	ErrCheckDuplicates  = errors.New("failed to check duplicates")
)

// isFatalStoreError reports errors that must abort the whole batch instead of
// being recorded against a single row.
func isFatalStoreError(err error) bool {
	return errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, domain.ErrStoreMisconfigured)
}

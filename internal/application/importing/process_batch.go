package importing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
	"github.com/mohammadpnp/crm-import/internal/logging"
)

type rowOutcome int

const (
	outcomeCreated rowOutcome = iota
	outcomeUpdated
	outcomeDuplicate
)

// ProcessBatch applies one client batch to a session. Row level problems are
// recorded and counted; only store outages and session state abort the call,
// and in that case no counters move.
func (s *importService) ProcessBatch(ctx context.Context, in ProcessBatchInput) (ProcessBatchOutput, error) {
	started := time.Now()

	session, err := s.loadSession(ctx, in.SessionID)
	if err != nil {
		return ProcessBatchOutput{}, err
	}
	if err := acceptsBatches(session); err != nil {
		return ProcessBatchOutput{}, err
	}

	rowCount := int64(len(in.Rows))
	switch {
	case rowCount == 0:
		return ProcessBatchOutput{}, ErrEmptyBatch
	case rowCount > int64(s.cfg.MaxBatchSize):
		return ProcessBatchOutput{}, fmt.Errorf("%w: %d rows, max %d", ErrBatchTooLarge, rowCount, s.cfg.MaxBatchSize)
	case in.StartIndex < 0:
		return ProcessBatchOutput{}, ErrInvalidStartIndex
	case in.StartIndex+rowCount > session.TotalRecords:
		return ProcessBatchOutput{}, fmt.Errorf("%w: rows %d-%d of %d", ErrBatchOutOfRange, in.StartIndex+1, in.StartIndex+rowCount, session.TotalRecords)
	}

	prior, err := s.batches.FindBatch(ctx, session.ID, in.StartIndex)
	if err != nil {
		return ProcessBatchOutput{}, s.storeError(ErrProcessBatch, err)
	}
	if prior != nil {
		return s.replay(session, *prior, rowCount)
	}
	// Checked before any record is written; the commit re-checks under lock.
	if session.ProcessedRecords+rowCount > session.TotalRecords {
		return ProcessBatchOutput{}, fmt.Errorf("%w: %d rows already processed, %d more would exceed %d",
			ErrBatchOverlap, session.ProcessedRecords, rowCount, session.TotalRecords)
	}

	if session.Status == domain.StatusPending {
		session, err = s.startProcessing(ctx, session.ID)
		if err != nil {
			return ProcessBatchOutput{}, err
		}
	}

	cfg, ok := domain.ConfigFor(session.ImportType)
	if !ok {
		return ProcessBatchOutput{}, fmt.Errorf("%w: %q", ErrUnsupportedImportType, session.ImportType)
	}

	logger := logging.FromContext(ctx).WithFields(logrus.Fields{
		"session_id":  session.ID,
		"import_type": session.ImportType,
		"start_index": in.StartIndex,
		"rows":        rowCount,
	})

	validation := s.validator.Validate(in.Rows, in.StartIndex, cfg, session.FieldMapping, session.DuplicateField)
	acc := newBatchAccumulator(session.ID, in.StartIndex, rowCount)
	for _, invalid := range validation.InvalidRows {
		acc.validationFailure(invalid)
	}

	existing := map[int64][]domain.ExistingRecord{}
	if session.DuplicateField != "" && len(validation.ValidRows) > 0 {
		matches, err := s.detector.FindDuplicates(ctx, session.ImportType, validation.ValidRows, session.WorkspaceID, session.DuplicateField)
		if err != nil {
			return ProcessBatchOutput{}, s.abortBatch(ctx, session, logger, err)
		}
		for _, m := range matches {
			existing[m.RowNumber] = m.Duplicates
		}
	}

	w := &rowWriter{
		service:        s,
		session:        session,
		cfg:            cfg,
		resolver:       newRelatedResolver(s.records, session.WorkspaceID, session.CreatedBy),
		createdInBatch: map[string]string{},
	}
	for _, row := range validation.ValidRows {
		outcome, message, err := w.apply(ctx, row, existing[row.RowNumber])
		if err != nil {
			if isFatalStoreError(err) {
				return ProcessBatchOutput{}, s.abortBatch(ctx, session, logger, err)
			}
			acc.processingFailure(row, err)
			continue
		}
		switch outcome {
		case outcomeCreated:
			acc.created++
		case outcomeUpdated:
			acc.updated++
		case outcomeDuplicate:
			acc.duplicateFailure(row, session.DuplicateField, message)
		}
	}

	commit := acc.commit()
	updated, err := s.batches.CommitBatch(ctx, commit)
	if errors.Is(err, domain.ErrBatchAlreadyCommitted) {
		stored, findErr := s.batches.FindBatch(ctx, session.ID, in.StartIndex)
		if findErr != nil || stored == nil {
			return ProcessBatchOutput{}, fmt.Errorf("%w: %v", ErrProcessBatch, err)
		}
		current, loadErr := s.loadSession(ctx, session.ID)
		if loadErr != nil {
			return ProcessBatchOutput{}, loadErr
		}
		return s.replay(current, *stored, rowCount)
	}
	if errors.Is(err, domain.ErrSessionStateChanged) {
		current, loadErr := s.loadSession(ctx, session.ID)
		if loadErr != nil {
			return ProcessBatchOutput{}, loadErr
		}
		if stateErr := acceptsBatches(current); stateErr != nil {
			return ProcessBatchOutput{}, stateErr
		}
		return ProcessBatchOutput{}, fmt.Errorf("%w: %v", ErrBatchOverlap, err)
	}
	if err != nil {
		return ProcessBatchOutput{}, s.abortBatch(ctx, session, logger, err)
	}

	acc.observe(session.ImportType)
	importBatchesTotal.WithLabelValues(string(session.ImportType), "committed").Inc()
	importBatchDuration.WithLabelValues(string(session.ImportType)).Observe(time.Since(started).Seconds())
	logger.WithFields(logrus.Fields{
		"successful": commit.Successful,
		"failed":     commit.Failed,
		"processed":  updated.ProcessedRecords,
		"total":      updated.TotalRecords,
	}).Info("import batch committed")

	if updated.Status == domain.StatusCompleted {
		s.onTerminal(ctx, updated)
	}

	return ProcessBatchOutput{
		Successful: commit.Successful,
		Failed:     commit.Failed,
		Created:    acc.created,
		Updated:    acc.updated,
		Errors:     commit.Failures,
		Progress:   toProgressOutput(updated.Progress()),
	}, nil
}

func acceptsBatches(session domain.ImportSession) error {
	switch session.Status {
	case domain.StatusCancelled:
		return ErrSessionCancelled
	case domain.StatusCompleted, domain.StatusFailed:
		return ErrSessionClosed
	}
	return nil
}

func (s *importService) startProcessing(ctx context.Context, sessionID string) (domain.ImportSession, error) {
	session, err := s.sessions.TransitionStatus(ctx, sessionID,
		[]domain.SessionStatus{domain.StatusPending}, domain.StatusProcessing, "")
	if errors.Is(err, domain.ErrSessionStateChanged) {
		current, loadErr := s.loadSession(ctx, sessionID)
		if loadErr != nil {
			return domain.ImportSession{}, loadErr
		}
		if stateErr := acceptsBatches(current); stateErr != nil {
			return domain.ImportSession{}, stateErr
		}
		return current, nil
	}
	if err != nil {
		return domain.ImportSession{}, s.storeError(ErrUpdateSession, err)
	}
	importSessionTransitions.WithLabelValues(string(session.ImportType), string(domain.StatusProcessing)).Inc()
	return session, nil
}

// replay answers a resent batch from its stored outcome.
func (s *importService) replay(session domain.ImportSession, prior domain.CommittedBatch, rowCount int64) (ProcessBatchOutput, error) {
	if prior.RowCount != rowCount {
		return ProcessBatchOutput{}, fmt.Errorf("%w: start index %d was committed with %d rows", ErrBatchConflict, prior.StartIndex, prior.RowCount)
	}
	importBatchesTotal.WithLabelValues(string(session.ImportType), "replayed").Inc()
	return ProcessBatchOutput{
		Successful: prior.Successful,
		Failed:     prior.Failed,
		Errors:     prior.Failures,
		Progress:   toProgressOutput(session.Progress()),
		Replayed:   true,
	}, nil
}

// abortBatch handles errors that stop a batch before its commit. A missing
// backing table fails the session; anything else leaves it untouched so the
// client can resend the batch.
func (s *importService) abortBatch(ctx context.Context, session domain.ImportSession, logger *logrus.Entry, err error) error {
	importBatchesTotal.WithLabelValues(string(session.ImportType), "aborted").Inc()

	if errors.Is(err, domain.ErrStoreMisconfigured) {
		logger.WithError(err).Error("import store misconfigured, failing session")
		failed, transitionErr := s.sessions.TransitionStatus(ctx, session.ID,
			[]domain.SessionStatus{domain.StatusPending, domain.StatusProcessing},
			domain.StatusFailed, truncateReason(err.Error()))
		if transitionErr == nil {
			s.onTerminal(ctx, failed)
		} else {
			logger.WithError(transitionErr).Error("mark import session failed")
		}
		return fmt.Errorf("%w: %v", ErrImportFailed, err)
	}

	logger.WithError(err).Warn("import batch aborted")
	return s.storeError(ErrProcessBatch, err)
}

type rowWriter struct {
	service  *importService
	session  domain.ImportSession
	cfg      domain.ImportConfig
	resolver *relatedResolver
	// createdInBatch maps a normalized duplicate value to the record created for it
	// earlier in this batch.
	createdInBatch map[string]string
}

func (w *rowWriter) apply(ctx context.Context, row MappedRow, matches []domain.ExistingRecord) (rowOutcome, string, error) {
	var dupKey string
	if candidate, ok := w.cfg.DuplicateCandidate(w.session.DuplicateField); ok {
		if value := row.Values[candidate.Field]; value != "" {
			dupKey = normalizeDuplicateValue(value, candidate.CaseInsensitive)
			if len(matches) == 0 {
				if id, seen := w.createdInBatch[dupKey]; seen {
					matches = []domain.ExistingRecord{{ID: id, Value: value}}
				}
			}
		}
	}

	if len(matches) > 0 {
		if w.session.ImportMode == domain.ImportModeCreateOnly {
			return outcomeDuplicate, duplicateMessage(w.session.DuplicateField, row.Values[w.session.DuplicateField], matches), nil
		}
		record, err := w.build(ctx, row)
		if err != nil {
			return 0, "", err
		}
		if err := w.service.records.Update(ctx, w.session.WorkspaceID, matches[0].ID, record); err != nil {
			return 0, "", fmt.Errorf("update %s %s: %w", w.session.ImportType, matches[0].ID, err)
		}
		return outcomeUpdated, "", nil
	}

	record, err := w.build(ctx, row)
	if err != nil {
		return 0, "", err
	}
	id, err := w.service.records.Create(ctx, w.session.WorkspaceID, w.session.CreatedBy, record)
	if err != nil {
		return 0, "", fmt.Errorf("create %s: %w", w.session.ImportType, err)
	}
	if dupKey != "" {
		w.createdInBatch[dupKey] = id
	}
	return outcomeCreated, "", nil
}

func (w *rowWriter) build(ctx context.Context, row MappedRow) (domain.Record, error) {
	related, err := w.resolver.Resolve(ctx, w.cfg, row.Values)
	if err != nil {
		return nil, err
	}
	return domain.NewRecord(w.session.ImportType, row.Values, related)
}

func duplicateMessage(field, value string, matches []domain.ExistingRecord) string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return fmt.Sprintf("Duplicate record: %s %q matches existing record %s", field, value, strings.Join(ids, ", "))
}

type batchAccumulator struct {
	sessionID  string
	startIndex int64
	rowCount   int64
	created    int64
	updated    int64
	validation int64
	duplicate  int64
	processing int64
	errors     []domain.ImportError
	failures   []domain.RowFailure
}

func newBatchAccumulator(sessionID string, startIndex, rowCount int64) *batchAccumulator {
	return &batchAccumulator{sessionID: sessionID, startIndex: startIndex, rowCount: rowCount}
}

func (a *batchAccumulator) validationFailure(invalid InvalidRow) {
	a.validation++
	messages := make([]string, 0, len(invalid.Errors))
	for _, fe := range invalid.Errors {
		a.errors = append(a.errors, domain.ImportError{
			SessionID:    a.sessionID,
			RowNumber:    fe.RowNumber,
			FieldName:    fe.FieldName,
			ErrorType:    domain.ErrorKindValidation,
			ErrorMessage: fe.ErrorMessage,
			RawData:      invalid.Row.Raw,
		})
		messages = append(messages, fe.ErrorMessage)
	}
	a.failures = append(a.failures, domain.RowFailure{
		RowNumber: invalid.Row.RowNumber,
		Error:     strings.Join(messages, "; "),
		Data:      invalid.Row.Raw,
	})
}

func (a *batchAccumulator) duplicateFailure(row MappedRow, field, message string) {
	a.duplicate++
	a.errors = append(a.errors, domain.ImportError{
		SessionID:    a.sessionID,
		RowNumber:    row.RowNumber,
		FieldName:    field,
		ErrorType:    domain.ErrorKindDuplicate,
		ErrorMessage: message,
		RawData:      row.Raw,
	})
	a.failures = append(a.failures, domain.RowFailure{RowNumber: row.RowNumber, Error: message, Data: row.Raw})
}

func (a *batchAccumulator) processingFailure(row MappedRow, err error) {
	a.processing++
	message := truncateReason(err.Error())
	a.errors = append(a.errors, domain.ImportError{
		SessionID:    a.sessionID,
		RowNumber:    row.RowNumber,
		ErrorType:    domain.ErrorKindProcessing,
		ErrorMessage: message,
		RawData:      row.Raw,
	})
	a.failures = append(a.failures, domain.RowFailure{RowNumber: row.RowNumber, Error: message, Data: row.Raw})
}

func (a *batchAccumulator) commit() domain.BatchCommit {
	sort.SliceStable(a.errors, func(i, j int) bool { return a.errors[i].RowNumber < a.errors[j].RowNumber })
	sort.SliceStable(a.failures, func(i, j int) bool { return a.failures[i].RowNumber < a.failures[j].RowNumber })

	failed := a.validation + a.duplicate + a.processing
	return domain.BatchCommit{
		SessionID:  a.sessionID,
		StartIndex: a.startIndex,
		RowCount:   a.rowCount,
		Successful: a.rowCount - failed,
		Failed:     failed,
		Errors:     a.errors,
		Failures:   a.failures,
	}
}

func (a *batchAccumulator) observe(importType domain.ImportType) {
	t := string(importType)
	importRowsTotal.WithLabelValues(t, "created").Add(float64(a.created))
	importRowsTotal.WithLabelValues(t, "updated").Add(float64(a.updated))
	importRowsTotal.WithLabelValues(t, string(domain.ErrorKindValidation)).Add(float64(a.validation))
	importRowsTotal.WithLabelValues(t, string(domain.ErrorKindDuplicate)).Add(float64(a.duplicate))
	importRowsTotal.WithLabelValues(t, string(domain.ErrorKindProcessing)).Add(float64(a.processing))
}

func truncateReason(reason string) string {
	const maxLen = 1000
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxLen {
		return reason
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

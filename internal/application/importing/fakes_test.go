package importing_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/mohammadpnp/crm-import/internal/domain/importing"
)

type batchKey struct {
	sessionID  string
	startIndex int64
}

// fakeImportStore keeps sessions, errors and committed batches in memory and
// implements both session and batch repositories.
type fakeImportStore struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]domain.ImportSession
	errors   []domain.ImportError
	batches  map[batchKey]domain.CommittedBatch

	getErr    error
	commitErr error
	commits   int
}

func newFakeImportStore() *fakeImportStore {
	return &fakeImportStore{
		sessions: map[string]domain.ImportSession{},
		batches:  map[batchKey]domain.CommittedBatch{},
	}
}

func (f *fakeImportStore) Create(ctx context.Context, session domain.ImportSession) (domain.ImportSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	session.ID = fmt.Sprintf("session-%d", f.seq)
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeImportStore) Get(ctx context.Context, sessionID string) (domain.ImportSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.ImportSession{}, f.getErr
	}
	session, ok := f.sessions[sessionID]
	if !ok {
		return domain.ImportSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (f *fakeImportStore) ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]domain.ImportSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ImportSession
	for _, s := range f.sessions {
		if s.WorkspaceID == workspaceID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeImportStore) TransitionStatus(ctx context.Context, sessionID string, from []domain.SessionStatus, to domain.SessionStatus, errorLog string) (domain.ImportSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return domain.ImportSession{}, domain.ErrSessionNotFound
	}
	allowed := false
	for _, status := range from {
		if session.Status == status {
			allowed = true
		}
	}
	if !allowed {
		return domain.ImportSession{}, domain.ErrSessionStateChanged
	}
	session.Status = to
	if errorLog != "" {
		session.ErrorLog = errorLog
	}
	session.UpdatedAt = time.Now()
	f.sessions[sessionID] = session
	return session, nil
}

func (f *fakeImportStore) Delete(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(f.sessions, sessionID)
	kept := f.errors[:0]
	for _, e := range f.errors {
		if e.SessionID != sessionID {
			kept = append(kept, e)
		}
	}
	f.errors = kept
	for key := range f.batches {
		if key.sessionID == sessionID {
			delete(f.batches, key)
		}
	}
	return nil
}

func (f *fakeImportStore) ListErrors(ctx context.Context, sessionID string, limit, offset int) ([]domain.ImportError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ImportError
	for _, e := range f.errors {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeImportStore) CountErrors(ctx context.Context, sessionID string) (domain.ErrorCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var counts domain.ErrorCounts
	for _, e := range f.errors {
		if e.SessionID != sessionID {
			continue
		}
		switch e.ErrorType {
		case domain.ErrorKindValidation:
			counts.Validation++
		case domain.ErrorKindDuplicate:
			counts.Duplicate++
		case domain.ErrorKindProcessing:
			counts.Processing++
		}
	}
	return counts, nil
}

func (f *fakeImportStore) FindBatch(ctx context.Context, sessionID string, startIndex int64) (*domain.CommittedBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch, ok := f.batches[batchKey{sessionID, startIndex}]
	if !ok {
		return nil, nil
	}
	return &batch, nil
}

func (f *fakeImportStore) CommitBatch(ctx context.Context, commit domain.BatchCommit) (domain.ImportSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return domain.ImportSession{}, f.commitErr
	}
	key := batchKey{commit.SessionID, commit.StartIndex}
	if _, exists := f.batches[key]; exists {
		return domain.ImportSession{}, domain.ErrBatchAlreadyCommitted
	}
	session, ok := f.sessions[commit.SessionID]
	if !ok {
		return domain.ImportSession{}, domain.ErrSessionNotFound
	}
	if session.Status.Terminal() || session.ProcessedRecords+commit.RowCount > session.TotalRecords {
		return domain.ImportSession{}, domain.ErrSessionStateChanged
	}

	f.commits++
	session.ProcessedRecords += commit.RowCount
	session.SuccessfulRecords += commit.Successful
	session.FailedRecords += commit.Failed
	if session.ProcessedRecords == session.TotalRecords {
		now := time.Now()
		session.Status = domain.StatusCompleted
		session.CompletedAt = &now
	}
	f.sessions[session.ID] = session

	for _, e := range commit.Errors {
		f.seq++
		e.ID = fmt.Sprintf("error-%d", f.seq)
		f.errors = append(f.errors, e)
	}
	f.batches[key] = domain.CommittedBatch{
		SessionID:  commit.SessionID,
		StartIndex: commit.StartIndex,
		RowCount:   commit.RowCount,
		Successful: commit.Successful,
		Failed:     commit.Failed,
		Failures:   commit.Failures,
	}
	return session, nil
}

func (f *fakeImportStore) session(id string) domain.ImportSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

type fakeRecord struct {
	id          string
	workspaceID string
	importType  domain.ImportType
	columns     map[string]any
}

type fakeRecordStore struct {
	mu      sync.Mutex
	seq     int
	records []*fakeRecord
	updates int

	findErr   error
	createErr func(record domain.Record) error
}

func (f *fakeRecordStore) seed(t domain.ImportType, workspaceID string, columns map[string]any) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("%s-%d", t, f.seq)
	f.records = append(f.records, &fakeRecord{id: id, workspaceID: workspaceID, importType: t, columns: columns})
	return id
}

func (f *fakeRecordStore) count(t domain.ImportType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.records {
		if r.importType == t {
			n++
		}
	}
	return n
}

func (f *fakeRecordStore) get(id string) *fakeRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.id == id {
			return r
		}
	}
	return nil
}

func (f *fakeRecordStore) FindByField(ctx context.Context, t domain.ImportType, workspaceID, column string, caseInsensitive bool, values []string) ([]domain.ExistingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []domain.ExistingRecord
	for _, r := range f.records {
		if r.importType != t || r.workspaceID != workspaceID {
			continue
		}
		var stored string
		if column == "full_name" {
			stored = strings.TrimSpace(fmt.Sprint(r.columns["first_name"]) + " " + fmt.Sprint(r.columns["last_name"]))
		} else {
			v, ok := r.columns[column]
			if !ok {
				continue
			}
			stored = fmt.Sprint(v)
		}
		for _, value := range values {
			if stored == value || (caseInsensitive && strings.EqualFold(stored, value)) {
				out = append(out, domain.ExistingRecord{ID: r.id, Value: stored})
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRecordStore) Create(ctx context.Context, workspaceID, createdBy string, record domain.Record) (string, error) {
	if f.createErr != nil {
		if err := f.createErr(record); err != nil {
			return "", err
		}
	}
	return f.seed(record.Type(), workspaceID, record.Columns()), nil
}

func (f *fakeRecordStore) Update(ctx context.Context, workspaceID, recordID string, record domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.id == recordID && r.workspaceID == workspaceID {
			for k, v := range record.Columns() {
				r.columns[k] = v
			}
			f.updates++
			return nil
		}
	}
	return domain.ErrRecordNotFound
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.ImportEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, event domain.ImportEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

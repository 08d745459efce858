// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// MockIdentityStore is a mock implementation of database.IdentityWriter
type MockIdentityStore struct {
	mu         sync.RWMutex
	identities map[string]*database.Identity

	// Error injection
	GetError    error
	ListError   error
	FindError   error
	CountError  error
	CreateError error
	UpdateError error
}

// NewMockIdentityStore creates a new mock identity store
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{
		identities: make(map[string]*database.Identity),
	}
}

// AddIdentity adds an identity to the mock store
func (m *MockIdentityStore) AddIdentity(identity database.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identity.ID] = &identity
}

// GetIdentity returns an identity by ID
func (m *MockIdentityStore) GetIdentity(ctx context.Context, id string) (*database.Identity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[id]
	if !ok {
		return nil, fmt.Errorf("identity %s: %w", id, database.ErrIdentityNotFound)
	}
	result := *identity
	return &result, nil
}

// ListIdentities returns all identities sorted by name
func (m *MockIdentityStore) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.Identity, 0, len(m.identities))
	for _, identity := range m.identities {
		result = append(result, *identity)
	}
	slices.SortFunc(result, func(a, b database.Identity) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return result, nil
}

// FindIdentitiesByName returns identities whose normalized name matches
func (m *MockIdentityStore) FindIdentitiesByName(ctx context.Context, name string) ([]database.Identity, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	all, err := m.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}
	normalized := facematch.NormalizePersonName(name)
	var result []database.Identity
	for _, identity := range all {
		if facematch.NormalizePersonName(identity.Name) == normalized {
			result = append(result, identity)
		}
	}
	return result, nil
}

// CountIdentities returns the number of identities
func (m *MockIdentityStore) CountIdentities(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// CreateIdentity stores a new identity
func (m *MockIdentityStore) CreateIdentity(ctx context.Context, identity *database.Identity) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	m.AddIdentity(*identity)
	return nil
}

// UpdateIdentity applies a profile update
func (m *MockIdentityStore) UpdateIdentity(ctx context.Context, id string, update database.IdentityUpdate) (*database.Identity, error) {
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[id]
	if !ok {
		return nil, fmt.Errorf("identity %s: %w", id, database.ErrIdentityNotFound)
	}
	update.Apply(identity)
	identity.UpdatedAt = time.Now()
	result := *identity
	return &result, nil
}

// MockFaceSampleStore is a mock implementation of database.FaceSampleWriter.
// Samples keep insertion order, which FetchAll preserves.
type MockFaceSampleStore struct {
	mu      sync.RWMutex
	samples []database.FaceSample
	names   map[string]string
	nextID  int64

	// Error injection
	FetchAllError error
	ListError     error
	CountError    error
	AppendError   error
	DeleteError   error

	// Call tracking
	FetchAllCalls int
	AppendCalls   []AppendCall
}

// AppendCall records the arguments of an Append call
type AppendCall struct {
	IdentityID string
	Embedding  facematch.Embedding
	Model      string
}

// NewMockFaceSampleStore creates a new mock sample store
func NewMockFaceSampleStore() *MockFaceSampleStore {
	return &MockFaceSampleStore{
		names: make(map[string]string),
	}
}

// SetName sets the identity name returned by FetchAll
func (m *MockFaceSampleStore) SetName(identityID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[identityID] = name
}

// AddReference appends a sample and records the identity name in one step
func (m *MockFaceSampleStore) AddReference(identityID, name string, embedding facematch.Embedding) {
	m.SetName(identityID, name)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(identityID, embedding, "test")
}

func (m *MockFaceSampleStore) appendLocked(identityID string, embedding facematch.Embedding, model string) database.FaceSample {
	m.nextID++
	sample := database.FaceSample{
		ID:         m.nextID,
		IdentityID: identityID,
		Embedding:  append(facematch.Embedding(nil), embedding...),
		Model:      model,
		Dim:        len(embedding),
		CreatedAt:  time.Now(),
	}
	m.samples = append(m.samples, sample)
	return sample
}

// FetchAll returns all samples as a reference set
func (m *MockFaceSampleStore) FetchAll(ctx context.Context) (facematch.ReferenceSet, error) {
	m.mu.Lock()
	m.FetchAllCalls++
	m.mu.Unlock()
	if m.FetchAllError != nil {
		return nil, m.FetchAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	refs := make(facematch.ReferenceSet, 0, len(m.samples))
	for _, s := range m.samples {
		refs = append(refs, facematch.Reference{
			IdentityID: s.IdentityID,
			Name:       m.names[s.IdentityID],
			Embedding:  s.Embedding,
		})
	}
	return refs, nil
}

// ListSamples returns the samples of one identity
func (m *MockFaceSampleStore) ListSamples(ctx context.Context, identityID string) ([]database.FaceSample, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.FaceSample
	for _, s := range m.samples {
		if s.IdentityID == identityID {
			result = append(result, s)
		}
	}
	return result, nil
}

// CountSamples returns the number of samples
func (m *MockFaceSampleStore) CountSamples(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.samples), nil
}

// Append stores one more sample
func (m *MockFaceSampleStore) Append(ctx context.Context, identityID string, embedding facematch.Embedding, model string) (*database.FaceSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls = append(m.AppendCalls, AppendCall{IdentityID: identityID, Embedding: embedding, Model: model})
	if m.AppendError != nil {
		return nil, m.AppendError
	}
	sample := m.appendLocked(identityID, embedding, model)
	return &sample, nil
}

// DeleteSamples removes all samples of an identity
func (m *MockFaceSampleStore) DeleteSamples(ctx context.Context, identityID string) (int64, error) {
	if m.DeleteError != nil {
		return 0, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.samples)
	m.samples = slices.DeleteFunc(m.samples, func(s database.FaceSample) bool {
		return s.IdentityID == identityID
	})
	return int64(before - len(m.samples)), nil
}

// MockAttendanceRecorder is a mock implementation of database.AttendanceRecorder
type MockAttendanceRecorder struct {
	mu      sync.RWMutex
	records []database.AttendanceRecord
	names   map[string]string

	// Error injection
	HasRecordError  error
	GetRecordError  error
	InsertError     error
	SetTimeOutError error
	ListError       error
	CountError      error

	// HideExisting makes HasRecord report false even when a record exists,
	// simulating a concurrent insert between the check and the write.
	HideExisting bool

	// Call tracking
	InsertCalls int
}

// NewMockAttendanceRecorder creates a new mock recorder
func NewMockAttendanceRecorder() *MockAttendanceRecorder {
	return &MockAttendanceRecorder{
		names: make(map[string]string),
	}
}

// SetName sets the identity name joined onto records
func (m *MockAttendanceRecorder) SetName(identityID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[identityID] = name
}

// AddRecord adds a record directly
func (m *MockAttendanceRecorder) AddRecord(record database.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	m.records = append(m.records, record)
}

// Records returns a copy of all stored records
func (m *MockAttendanceRecorder) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records)
}

func (m *MockAttendanceRecorder) findLocked(identityID, date string) int {
	return slices.IndexFunc(m.records, func(r database.AttendanceRecord) bool {
		return r.IdentityID == identityID && r.Date == date
	})
}

func (m *MockAttendanceRecorder) withName(r database.AttendanceRecord) database.AttendanceRecord {
	if name, ok := m.names[r.IdentityID]; ok {
		r.IdentityName = name
	}
	return r
}

// HasRecord reports whether a record exists
func (m *MockAttendanceRecorder) HasRecord(ctx context.Context, identityID, date string) (bool, error) {
	if m.HasRecordError != nil {
		return false, m.HasRecordError
	}
	if m.HideExisting {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(identityID, date) >= 0, nil
}

// GetRecord returns the record for identity and date
func (m *MockAttendanceRecorder) GetRecord(ctx context.Context, identityID, date string) (*database.AttendanceRecord, error) {
	if m.GetRecordError != nil {
		return nil, m.GetRecordError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.findLocked(identityID, date)
	if i < 0 {
		return nil, database.ErrNotFound
	}
	record := m.withName(m.records[i])
	return &record, nil
}

// Insert stores a new record, enforcing one record per identity and date
func (m *MockAttendanceRecorder) Insert(ctx context.Context, record *database.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertError != nil {
		return m.InsertError
	}
	if m.findLocked(record.IdentityID, record.Date) >= 0 {
		return database.ErrDuplicateRecord
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now()
	if name, ok := m.names[record.IdentityID]; ok {
		record.IdentityName = name
	}
	m.records = append(m.records, *record)
	return nil
}

// SetTimeOut sets the check-out time of a record
func (m *MockAttendanceRecorder) SetTimeOut(ctx context.Context, recordID string, timeOut time.Time) error {
	if m.SetTimeOutError != nil {
		return m.SetTimeOutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == recordID {
			t := timeOut
			m.records[i].TimeOut = &t
			return nil
		}
	}
	return database.ErrNotFound
}

// List returns records matching the filter, newest first
func (m *MockAttendanceRecorder) List(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.AttendanceRecord
	for _, r := range m.records {
		if filter.From != "" && r.Date < filter.From {
			continue
		}
		if filter.To != "" && r.Date > filter.To {
			continue
		}
		if filter.IdentityID != "" && r.IdentityID != filter.IdentityID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		result = append(result, m.withName(r))
	}
	slices.SortStableFunc(result, func(a, b database.AttendanceRecord) int {
		return cmp.Or(cmp.Compare(b.Date, a.Date), b.TimeIn.Compare(a.TimeIn))
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// CountByStatus returns record counts per status for a date
func (m *MockAttendanceRecorder) CountByStatus(ctx context.Context, date string) (map[database.AttendanceStatus]int, error) {
	if m.CountError != nil {
		return nil, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[database.AttendanceStatus]int)
	for _, r := range m.records {
		if r.Date == date {
			counts[r.Status]++
		}
	}
	return counts, nil
}

// Interface compliance checks
var (
	_ database.IdentityWriter     = (*MockIdentityStore)(nil)
	_ database.FaceSampleWriter   = (*MockFaceSampleStore)(nil)
	_ database.AttendanceRecorder = (*MockAttendanceRecorder)(nil)
)

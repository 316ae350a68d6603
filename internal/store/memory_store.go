package store

import (
	"sync"

	"ainurse/pkg/domain"
)

// MemoryStore keeps all records in-process. It backs the app and server
// tests so they run without Postgres.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	email      map[string]string // email -> user ID
	patients   map[string]domain.Patient
	patientIDs []string
	cases      map[string]domain.Case
	caseIDs    []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		email:    make(map[string]string),
		patients: make(map[string]domain.Patient),
		cases:    make(map[string]domain.Case),
	}
}

// SaveUser stores or replaces a clinician record.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.users[u.ID]; ok && old.Email != u.Email {
		delete(m.email, old.Email)
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a clinician by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByID returns a clinician by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// SavePatient stores or replaces a patient record and tracks insertion order.
func (m *MemoryStore) SavePatient(p domain.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.patients[p.ID]; !exists {
		m.patientIDs = append(m.patientIDs, p.ID)
	}
	m.patients[p.ID] = p
	return nil
}

// GetPatientByID retrieves a patient.
func (m *MemoryStore) GetPatientByID(id string) (domain.Patient, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	return p, ok, nil
}

// FindPatientByIdentity matches by exact (full name, birth date) within the
// owner's records, earliest created first.
func (m *MemoryStore) FindPatientByIdentity(ownerID, fullName, birthDate string) (domain.Patient, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.patientIDs {
		p, ok := m.patients[id]
		if !ok {
			continue
		}
		if p.OwnerID == ownerID && p.FullName == fullName && p.BirthDate == birthDate {
			return p, true, nil
		}
	}
	return domain.Patient{}, false, nil
}

// ListPatientsByOwner returns the owner's patients in insertion order.
func (m *MemoryStore) ListPatientsByOwner(ownerID string) ([]domain.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Patient, 0, len(m.patientIDs))
	for _, id := range m.patientIDs {
		if p, ok := m.patients[id]; ok && p.OwnerID == ownerID {
			res = append(res, p)
		}
	}
	return res, nil
}

// DeletePatient removes the patient and cascades to its cases.
func (m *MemoryStore) DeletePatient(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.patients, id)
	for i, pid := range m.patientIDs {
		if pid == id {
			m.patientIDs = append(m.patientIDs[:i], m.patientIDs[i+1:]...)
			break
		}
	}
	kept := m.caseIDs[:0]
	for _, cid := range m.caseIDs {
		c, ok := m.cases[cid]
		if ok && c.PatientID == id {
			delete(m.cases, cid)
			continue
		}
		kept = append(kept, cid)
	}
	m.caseIDs = kept
	return nil
}

// SaveCase stores a triage case and tracks insertion order.
func (m *MemoryStore) SaveCase(c domain.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.cases[c.ID]; !exists {
		m.caseIDs = append(m.caseIDs, c.ID)
	}
	c.PatientName = "" // joined on read, not stored
	m.cases[c.ID] = c
	return nil
}

// GetCaseByID retrieves a case.
func (m *MemoryStore) GetCaseByID(id string) (domain.Case, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[id]
	return c, ok, nil
}

// ListCasesByOwner returns the owner's cases newest first with patient names
// joined in.
func (m *MemoryStore) ListCasesByOwner(ownerID string) ([]domain.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Case, 0, len(m.caseIDs))
	for i := len(m.caseIDs) - 1; i >= 0; i-- {
		c, ok := m.cases[m.caseIDs[i]]
		if !ok || c.OwnerID != ownerID {
			continue
		}
		if p, ok := m.patients[c.PatientID]; ok {
			c.PatientName = p.FullName
		}
		res = append(res, c)
	}
	return res, nil
}

// DeleteCaseOwned removes a case only when it belongs to the owner.
func (m *MemoryStore) DeleteCaseOwned(id, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok || c.OwnerID != ownerID {
		return false, nil
	}
	delete(m.cases, id)
	for i, cid := range m.caseIDs {
		if cid == id {
			m.caseIDs = append(m.caseIDs[:i], m.caseIDs[i+1:]...)
			break
		}
	}
	return true, nil
}

package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/talent-sourcer/internal/db"
)

// memStore is an in-memory collection.Store for database-less runs. Session
// state does not survive the process; the candidate cache is per run.
type memStore struct {
	mu      sync.Mutex
	session db.SessionRow
}

func newMemStore(sessionID uuid.UUID) *memStore {
	return &memStore{session: db.SessionRow{ID: sessionID, Active: true}}
}

func (m *memStore) GetSession(_ context.Context, id uuid.UUID) (*db.SessionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.ID != id {
		return nil, nil
	}
	copied := m.session
	return &copied, nil
}

func (m *memStore) SaveSessionQuery(_ context.Context, _ uuid.UUID, query any) error {
	return nil
}

func (m *memStore) SetSessionCandidates(_ context.Context, _ uuid.UUID, candidateIDs []string, batchIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.CandidateIDs = candidateIDs
	m.session.BatchIndex = batchIndex
	m.session.CursorOffset = 0
	m.session.FetchedIDs = nil
	return nil
}

func (m *memStore) AdvanceCursor(_ context.Context, _ uuid.UUID, newOffset int, fetchedIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if newOffset < m.session.CursorOffset {
		return fmt.Errorf("cursor for session %s would move backwards to %d", m.session.ID, newOffset)
	}
	m.session.CursorOffset = newOffset
	m.session.FetchedIDs = append(m.session.FetchedIDs, fetchedIDs...)
	return nil
}

func (m *memStore) GetCandidate(_ context.Context, _ string) (*db.CandidateCacheEntry, db.Freshness, error) {
	return nil, db.FreshnessMiss, nil
}

func (m *memStore) PutCandidate(_ context.Context, _ string, _ any) error {
	return nil
}

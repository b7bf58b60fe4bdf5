package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/talent-sourcer/internal/coresignal"
	"github.com/jonathan/talent-sourcer/internal/db"
)

// fakeGateway scripts vendor responses and records issued queries.
type fakeGateway struct {
	mu            sync.Mutex
	searchQueries []map[string]any
	searchIDs     [][]string
	searchErrs    []error
	searchCalls   int
	previews      []coresignal.EmployeePreview
	profiles      map[string]*coresignal.EmployeeProfile
	collectErrs   map[string]error
	collectCalls  int
}

func (f *fakeGateway) SearchEmployees(_ context.Context, query map[string]any) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchQueries = append(f.searchQueries, query)
	i := f.searchCalls
	f.searchCalls++
	if i < len(f.searchErrs) && f.searchErrs[i] != nil {
		return nil, f.searchErrs[i]
	}
	if i < len(f.searchIDs) {
		return f.searchIDs[i], nil
	}
	return nil, nil
}

func (f *fakeGateway) PreviewEmployees(_ context.Context, _ map[string]any) ([]coresignal.EmployeePreview, error) {
	return f.previews, nil
}

func (f *fakeGateway) CollectEmployee(_ context.Context, id string) (*coresignal.EmployeeProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collectCalls++
	if err := f.collectErrs[id]; err != nil {
		return nil, err
	}
	return f.profiles[id], nil
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu         sync.Mutex
	session    *db.SessionRow
	query      any
	candidates map[string]*db.CandidateCacheEntry
	freshness  map[string]db.Freshness
	putErr     error
	advanceErr error
}

func newFakeStore(session *db.SessionRow) *fakeStore {
	return &fakeStore{
		session:    session,
		candidates: make(map[string]*db.CandidateCacheEntry),
		freshness:  make(map[string]db.Freshness),
	}
}

func (f *fakeStore) GetSession(_ context.Context, id uuid.UUID) (*db.SessionRow, error) {
	if f.session == nil || f.session.ID != id {
		return nil, nil
	}
	copied := *f.session
	return &copied, nil
}

func (f *fakeStore) SaveSessionQuery(_ context.Context, _ uuid.UUID, query any) error {
	f.query = query
	return nil
}

func (f *fakeStore) SetSessionCandidates(_ context.Context, _ uuid.UUID, candidateIDs []string, batchIndex int) error {
	f.session.CandidateIDs = candidateIDs
	f.session.BatchIndex = batchIndex
	f.session.CursorOffset = 0
	f.session.FetchedIDs = nil
	return nil
}

func (f *fakeStore) AdvanceCursor(_ context.Context, _ uuid.UUID, newOffset int, fetchedIDs []string) error {
	if f.advanceErr != nil {
		return f.advanceErr
	}
	if newOffset < f.session.CursorOffset {
		return fmt.Errorf("cursor would move backwards")
	}
	f.session.CursorOffset = newOffset
	f.session.FetchedIDs = append(f.session.FetchedIDs, fetchedIDs...)
	return nil
}

func (f *fakeStore) GetCandidate(_ context.Context, vendorID string) (*db.CandidateCacheEntry, db.Freshness, error) {
	entry, ok := f.candidates[vendorID]
	if !ok {
		return nil, db.FreshnessMiss, nil
	}
	return entry, f.freshness[vendorID], nil
}

func (f *fakeStore) PutCandidate(_ context.Context, vendorID string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	raw, _ := json.Marshal(payload)
	f.candidates[vendorID] = &db.CandidateCacheEntry{VendorID: vendorID, Payload: raw, FetchedAt: time.Now()}
	f.freshness[vendorID] = db.FreshnessFresh
	return nil
}

func cachedProfile(id, name string) *db.CandidateCacheEntry {
	raw, _ := json.Marshal(coresignal.EmployeeProfile{ID: id, FullName: name})
	return &db.CandidateCacheEntry{VendorID: id, Payload: raw, FetchedAt: time.Now()}
}

func TestSearch_BatchesAndMerges(t *testing.T) {
	sessionID := uuid.New()
	gateway := &fakeGateway{
		searchIDs: [][]string{
			{"e-1", "e-2", "e-3"},
			{"e-3", "e-4"}, // e-3 overlaps across batches
		},
	}
	store := newFakeStore(&db.SessionRow{ID: sessionID, Active: true})
	stage := NewStage(gateway, store)

	// 7 companies => two batches of 5 and 2
	companies := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7"}
	result, err := stage.Search(context.Background(), sessionID, companies, coresignal.QueryOptions{Keywords: []string{"backend"}})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Batches)
	assert.Equal(t, 0, result.FailedBatches)
	assert.Equal(t, 4, result.TotalCandidates)
	assert.Equal(t, []string{"e-1", "e-2", "e-3", "e-4"}, store.session.CandidateIDs)
	assert.Equal(t, 0, store.session.CursorOffset)
	assert.NotNil(t, store.query)
}

func TestSearch_StoredQueryNamesAllCompanies(t *testing.T) {
	sessionID := uuid.New()
	gateway := &fakeGateway{searchIDs: [][]string{{"e-1"}, {"e-2"}}}
	store := newFakeStore(&db.SessionRow{ID: sessionID, Active: true})
	stage := NewStage(gateway, store)

	companies := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7"}
	_, err := stage.Search(context.Background(), sessionID, companies, coresignal.QueryOptions{Keywords: []string{"backend"}})
	require.NoError(t, err)

	// The saved query is the unbatched form and must name every company
	// searched, not just the last batch.
	raw, err := json.Marshal(store.query)
	require.NoError(t, err)
	for _, id := range companies {
		assert.Contains(t, string(raw), id)
	}
}

func TestSearch_PartialBatchFailure(t *testing.T) {
	sessionID := uuid.New()
	gateway := &fakeGateway{
		searchErrs: []error{errors.New("vendor 500"), nil},
		searchIDs:  [][]string{nil, {"e-9"}},
	}
	store := newFakeStore(&db.SessionRow{ID: sessionID, Active: true})
	stage := NewStage(gateway, store)

	companies := []string{"c1", "c2", "c3", "c4", "c5", "c6"}
	result, err := stage.Search(context.Background(), sessionID, companies, coresignal.QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailedBatches)
	assert.Equal(t, []string{"e-9"}, store.session.CandidateIDs)
}

func TestSearch_AllBatchesFailed(t *testing.T) {
	sessionID := uuid.New()
	gateway := &fakeGateway{searchErrs: []error{errors.New("boom")}}
	store := newFakeStore(&db.SessionRow{ID: sessionID, Active: true})
	stage := NewStage(gateway, store)

	_, err := stage.Search(context.Background(), sessionID, []string{"c1"}, coresignal.QueryOptions{})
	assert.Error(t, err)
}

func TestSearch_NoCompanies(t *testing.T) {
	stage := NewStage(&fakeGateway{}, newFakeStore(nil))
	_, err := stage.Search(context.Background(), uuid.New(), nil, coresignal.QueryOptions{})
	assert.Error(t, err)
}

func TestLoadMore_CacheFirstHydration(t *testing.T) {
	sessionID := uuid.New()
	store := newFakeStore(&db.SessionRow{
		ID:           sessionID,
		CandidateIDs: []string{"e-1", "e-2", "e-3"},
		Active:       true,
	})
	store.candidates["e-1"] = cachedProfile("e-1", "Cached Person")
	store.freshness["e-1"] = db.FreshnessFresh

	gateway := &fakeGateway{
		profiles: map[string]*coresignal.EmployeeProfile{
			"e-2": {ID: "e-2", FullName: "Fetched Person"},
			"e-3": {ID: "e-3", FullName: "Other Person"},
		},
	}
	stage := NewStage(gateway, store)

	result, err := stage.LoadMore(context.Background(), sessionID, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, result.CacheHits)
	assert.Equal(t, 2, result.FreshFetches)
	assert.Len(t, result.Candidates, 3)
	assert.Equal(t, 3, result.NewOffset)
	assert.True(t, result.Exhausted)
	assert.Equal(t, 2, gateway.collectCalls)

	// Fresh fetches land in the cache for next time
	assert.Contains(t, store.candidates, "e-2")
	assert.Contains(t, store.candidates, "e-3")

	// Cursor advanced and fetched ids recorded
	assert.Equal(t, 3, store.session.CursorOffset)
	assert.Len(t, store.session.FetchedIDs, 3)
}

func TestLoadMore_PreservesIDListOrder(t *testing.T) {
	sessionID := uuid.New()
	ids := []string{"e-1", "e-2", "e-3", "e-4", "e-5"}
	store := newFakeStore(&db.SessionRow{
		ID:           sessionID,
		CandidateIDs: ids,
		Active:       true,
	})
	// A cache hit in the middle: hits and fresh fetches must still come
	// back in id-list order, not completion order.
	store.candidates["e-3"] = cachedProfile("e-3", "Cached Person")
	store.freshness["e-3"] = db.FreshnessFresh

	gateway := &fakeGateway{
		profiles: map[string]*coresignal.EmployeeProfile{
			"e-1": {ID: "e-1"},
			"e-2": {ID: "e-2"},
			"e-4": {ID: "e-4"},
			"e-5": {ID: "e-5"},
		},
	}
	stage := NewStage(gateway, store)

	result, err := stage.LoadMore(context.Background(), sessionID, 5)
	require.NoError(t, err)

	require.Len(t, result.Candidates, 5)
	got := make([]string, len(result.Candidates))
	for i, c := range result.Candidates {
		got[i] = c.Profile.ID
	}
	assert.Equal(t, ids, got)
}

func TestLoadMore_RefreshRecommendedServedFromCache(t *testing.T) {
	sessionID := uuid.New()
	store := newFakeStore(&db.SessionRow{
		ID:           sessionID,
		CandidateIDs: []string{"e-1"},
		Active:       true,
	})
	store.candidates["e-1"] = cachedProfile("e-1", "Aging Person")
	store.freshness["e-1"] = db.FreshnessRefreshRecommended

	gateway := &fakeGateway{}
	stage := NewStage(gateway, store)

	result, err := stage.LoadMore(context.Background(), sessionID, 1)
	require.NoError(t, err)

	// Aging entries do not spend credits; they are flagged instead
	assert.Equal(t, 1, result.CacheHits)
	assert.Equal(t, 0, result.FreshFetches)
	assert.Equal(t, 0, gateway.collectCalls)
	require.Len(t, result.Candidates, 1)
	assert.True(t, result.Candidates[0].RefreshRecommended)
}

func TestLoadMore_PartialHydrationFailure(t *testing.T) {
	sessionID := uuid.New()
	store := newFakeStore(&db.SessionRow{
		ID:           sessionID,
		CandidateIDs: []string{"e-1", "e-2"},
		Active:       true,
	})
	gateway := &fakeGateway{
		profiles:    map[string]*coresignal.EmployeeProfile{"e-1": {ID: "e-1", FullName: "OK"}},
		collectErrs: map[string]error{"e-2": errors.New("vendor timeout")},
	}
	stage := NewStage(gateway, store)

	result, err := stage.LoadMore(context.Background(), sessionID, 2)
	require.NoError(t, err)

	assert.Len(t, result.Candidates, 1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "e-2", result.Failed[0].VendorID)
	// The cursor still advances past the failed id
	assert.Equal(t, 2, store.session.CursorOffset)
}

func TestLoadMore_SkipsAlreadyFetched(t *testing.T) {
	sessionID := uuid.New()
	store := newFakeStore(&db.SessionRow{
		ID:           sessionID,
		CandidateIDs: []string{"e-1", "e-2"},
		FetchedIDs:   []string{"e-1"},
		Active:       true,
	})
	gateway := &fakeGateway{
		profiles: map[string]*coresignal.EmployeeProfile{"e-2": {ID: "e-2", FullName: "New"}},
	}
	stage := NewStage(gateway, store)

	result, err := stage.LoadMore(context.Background(), sessionID, 2)
	require.NoError(t, err)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "e-2", result.Candidates[0].Profile.ID)
	assert.Equal(t, 1, gateway.collectCalls)
}

func TestLoadMore_ExhaustedSession(t *testing.T) {
	sessionID := uuid.New()
	store := newFakeStore(&db.SessionRow{
		ID:           sessionID,
		CandidateIDs: []string{"e-1"},
		CursorOffset: 1,
		Active:       true,
	})
	stage := NewStage(&fakeGateway{}, store)

	result, err := stage.LoadMore(context.Background(), sessionID, 5)
	require.NoError(t, err)

	assert.True(t, result.Exhausted)
	assert.Empty(t, result.Candidates)
	assert.Equal(t, 1, result.NewOffset)
}

func TestLoadMore_InactiveSession(t *testing.T) {
	sessionID := uuid.New()
	store := newFakeStore(&db.SessionRow{ID: sessionID, Active: false})
	stage := NewStage(&fakeGateway{}, store)

	_, err := stage.LoadMore(context.Background(), sessionID, 5)
	assert.Error(t, err)
}

func TestLoadMore_UnknownSession(t *testing.T) {
	store := newFakeStore(nil)
	stage := NewStage(&fakeGateway{}, store)

	_, err := stage.LoadMore(context.Background(), uuid.New(), 5)
	assert.Error(t, err)
}

func TestPreview_AppliesLimit(t *testing.T) {
	gateway := &fakeGateway{
		previews: []coresignal.EmployeePreview{{ID: "e-1", FullName: "Preview Person"}},
	}
	stage := NewStage(gateway, newFakeStore(nil))

	previews, err := stage.Preview(context.Background(), []string{"c1"}, coresignal.QueryOptions{}, 10)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.Equal(t, "Preview Person", previews[0].FullName)
}

package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/talent-sourcer/internal/coresignal"
	"github.com/jonathan/talent-sourcer/internal/llm"
	"github.com/jonathan/talent-sourcer/internal/websearch"
)

// fakeVendor satisfies VendorGateway with scripted responses.
type fakeVendor struct {
	companiesByName map[string][]coresignal.Company
	employeeIDs     []string
	profiles        map[string]*coresignal.EmployeeProfile
}

func (f *fakeVendor) SearchCompaniesByName(_ context.Context, name string, _ int) ([]coresignal.Company, error) {
	return f.companiesByName[name], nil
}

func (f *fakeVendor) SearchCompaniesByWebsite(_ context.Context, _ string) ([]coresignal.Company, error) {
	return nil, nil
}

func (f *fakeVendor) SearchEmployees(_ context.Context, _ map[string]any) ([]string, error) {
	return f.employeeIDs, nil
}

func (f *fakeVendor) PreviewEmployees(_ context.Context, _ map[string]any) ([]coresignal.EmployeePreview, error) {
	return nil, nil
}

func (f *fakeVendor) CollectEmployee(_ context.Context, id string) (*coresignal.EmployeeProfile, error) {
	return f.profiles[id], nil
}

// fakeSearcher returns nothing; discovery runs on mentioned companies only.
type fakeSearcher struct{}

func (fakeSearcher) Search(_ context.Context, _ string, _ int) ([]websearch.Result, error) {
	return nil, nil
}

// routingLLM answers by prompt content so one fake serves every stage.
type routingLLM struct{}

func (routingLLM) Complete(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	if strings.Contains(prompt, "classifying a company") {
		return "direct_competitor", nil
	}
	return "", nil
}

func (routingLLM) CompleteJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	switch {
	case strings.Contains(prompt, "evaluating companies"):
		return `[{"score":8,"reasoning":"close domain"}]`, nil
	case strings.Contains(prompt, "evaluating candidate"):
		// Hydration order is not deterministic; align scores with the
		// order the prompt enumerates the candidates in.
		if strings.Index(prompt, "Great Fit") < strings.Index(prompt, "Weak Fit") {
			return `[{"score":9,"reasoning":"great fit"},{"score":4,"reasoning":"weak fit"}]`, nil
		}
		return `[{"score":4,"reasoning":"weak fit"},{"score":9,"reasoning":"great fit"}]`, nil
	default:
		return `[]`, nil
	}
}

func (routingLLM) GetModel(llm.ModelTier) string { return "fake-model" }
func (routingLLM) Close() error                  { return nil }

func TestRun_EndToEnd(t *testing.T) {
	vendor := &fakeVendor{
		companiesByName: map[string][]coresignal.Company{
			"Acme": {{ID: "c-1", Name: "Acme", Industry: "Software"}},
		},
		employeeIDs: []string{"e-1", "e-2"},
		profiles: map[string]*coresignal.EmployeeProfile{
			"e-1": {ID: "e-1", FullName: "Great Fit", Headline: "Staff Engineer"},
			"e-2": {ID: "e-2", FullName: "Weak Fit"},
		},
	}

	result, err := Run(context.Background(), Deps{
		LLM:      routingLLM{},
		Searcher: fakeSearcher{},
		Vendor:   vendor,
	}, RunOptions{
		Domain:               "developer tools",
		MentionedCompanies:   []string{"Acme"},
		DisableSeedExpansion: true,
		CandidateCount:       10,
		ArtifactsDir:         t.TempDir(),
	})
	require.NoError(t, err)

	require.Len(t, result.Companies, 1)
	assert.True(t, result.Companies[0].Searchable)
	assert.Equal(t, 8.0, result.Companies[0].Score)

	// Candidates come back ranked best-first
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "Great Fit", result.Candidates[0].Profile.FullName)
	assert.Equal(t, 9.0, result.Candidates[0].Score)
	assert.Equal(t, 2, result.FreshFetches)
	assert.Equal(t, 0, result.CacheHits)
}

func TestRun_NoSearchableCompanies(t *testing.T) {
	vendor := &fakeVendor{} // nothing resolves

	result, err := Run(context.Background(), Deps{
		LLM:      routingLLM{},
		Searcher: fakeSearcher{},
		Vendor:   vendor,
	}, RunOptions{
		Domain:               "developer tools",
		MentionedCompanies:   []string{"Unresolvable Co"},
		DisableSeedExpansion: true,
		ArtifactsDir:         t.TempDir(),
	})
	require.NoError(t, err)

	// The unresolved company is still reported; no candidates exist
	require.Len(t, result.Companies, 1)
	assert.False(t, result.Companies[0].Searchable)
	assert.Empty(t, result.Candidates)
}

func TestMemStore_CursorIsMonotonic(t *testing.T) {
	id := uuid.New()
	store := newMemStore(id)

	require.NoError(t, store.SetSessionCandidates(context.Background(), id, []string{"a", "b", "c"}, 1))
	require.NoError(t, store.AdvanceCursor(context.Background(), id, 2, []string{"a", "b"}))

	err := store.AdvanceCursor(context.Background(), id, 1, nil)
	assert.Error(t, err)

	session, err := store.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, session.CursorOffset)
	assert.Equal(t, []string{"a", "b"}, session.FetchedIDs)
}

package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/talent-sourcer/internal/coresignal"
	"github.com/jonathan/talent-sourcer/internal/llm"
	"github.com/jonathan/talent-sourcer/internal/websearch"
)

// fakeSearcher returns scripted results per query and records queries seen.
type fakeSearcher struct {
	results map[string][]websearch.Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]websearch.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

// fakeLLM returns a fixed response for every CompleteJSON call.
type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Complete(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) CompleteJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, f.err
}

func (f *fakeLLM) GetModel(llm.ModelTier) string { return "fake-model" }
func (f *fakeLLM) Close() error                  { return nil }

func newTestStage(searcher websearch.Searcher, llmClient llm.Client, resolver Resolver) *Stage {
	s := NewStage(searcher, llmClient, resolver, nil)
	s.pace = func(context.Context) {}
	return s
}

func TestDiscover_MentionedPlusDomainSearch(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[string][]websearch.Result{
			"top fintech companies": {
				{Title: "Top fintech companies 2026", Link: "https://example.com/list", Snippet: "Acme, Widgetco and Foo lead the space."},
			},
		},
	}
	llmClient := &fakeLLM{
		response: `[{"name":"Acme","website":"acme.com","description":"payments"},{"name":"Widgetco","website":"","description":""},{"name":"Foo","website":"","description":""}]`,
	}
	resolver := &fakeResolver{
		byWebsite: map[string][]coresignal.Company{
			"acme.com": {{ID: "c-1", Name: "Acme"}},
		},
		byName: map[string][]coresignal.Company{
			"Widgetco": {{ID: "c-2", Name: "Widgetco"}},
			// Foo gets no vendor match
		},
	}

	stage := newTestStage(searcher, llmClient, resolver)

	got, err := stage.Discover(context.Background(), Request{
		Domain:               "fintech",
		MentionedCompanies:   []string{"Acme"},
		DisableSeedExpansion: true,
	})
	require.NoError(t, err)

	// Deduplicated: mentioned Acme wins over the web-search Acme
	require.Len(t, got, 3)

	byName := make(map[string]Company)
	for _, c := range got {
		byName[c.Name] = c
	}

	acme := byName["Acme"]
	assert.Equal(t, MethodMentioned, acme.Method)
	assert.True(t, acme.Searchable)
	assert.Equal(t, "c-1", acme.VendorID)

	widgetco := byName["Widgetco"]
	assert.Equal(t, MethodWebSearch, widgetco.Method)
	assert.True(t, widgetco.Searchable)
	assert.Equal(t, "c-2", widgetco.VendorID)

	// Foo is retained despite failing every resolution tier
	foo := byName["Foo"]
	assert.Equal(t, "Foo", foo.Name)
	assert.False(t, foo.Searchable)
	assert.Empty(t, foo.VendorID)
}

func TestDiscover_SeedExpansionQueries(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]websearch.Result{}}
	llmClient := &fakeLLM{response: `[]`}
	resolver := &fakeResolver{}

	stage := newTestStage(searcher, llmClient, resolver)

	_, err := stage.Discover(context.Background(), Request{
		Domain:              "fintech",
		SeedCompanies:       []string{"Acme"},
		DisableDomainSearch: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Acme competitors",
		"Acme alternatives",
		"companies like Acme",
	}, searcher.queries)
}

func TestDiscover_SeedCap(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]websearch.Result{}}
	stage := newTestStage(searcher, &fakeLLM{response: `[]`}, &fakeResolver{})

	seeds := []string{"A1", "B2", "C3", "D4", "E5", "F6", "G7"}
	_, err := stage.Discover(context.Background(), Request{
		Domain:              "fintech",
		SeedCompanies:       seeds,
		DisableDomainSearch: true,
	})
	require.NoError(t, err)

	// 5 seeds max, 3 variants each
	assert.Len(t, searcher.queries, MaxSeeds*len(seedQueryVariants))
}

func TestDiscover_ExtractionFailureFallsBackToTitles(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[string][]websearch.Result{
			"top fintech companies": {
				{Title: "Widgetco", Link: "https://widgetco.com", Snippet: "widgets"},
			},
		},
	}
	llmClient := &fakeLLM{err: errors.New("llm down")}
	resolver := &fakeResolver{}

	stage := newTestStage(searcher, llmClient, resolver)

	got, err := stage.Discover(context.Background(), Request{
		Domain:               "fintech",
		DisableSeedExpansion: true,
	})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Widgetco", got[0].Name)
	assert.False(t, got[0].Searchable)
}

func TestDiscover_SearchFailureSkipsQuery(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("quota exceeded")}
	stage := newTestStage(searcher, &fakeLLM{response: `[]`}, &fakeResolver{})

	got, err := stage.Discover(context.Background(), Request{
		Domain:             "fintech",
		MentionedCompanies: []string{"Acme"},
	})
	require.NoError(t, err)

	// Mentioned companies survive even when every search fails
	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Name)
}

func TestDiscover_FiltersNonCompanyTokens(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[string][]websearch.Result{
			"top fintech companies": {{Title: "listicle", Link: "x", Snippet: "y"}},
		},
	}
	llmClient := &fakeLLM{
		response: `[{"name":"Acme","website":"","description":""},{"name":"competitors","website":"","description":""}]`,
	}

	stage := newTestStage(searcher, llmClient, &fakeResolver{})

	got, err := stage.Discover(context.Background(), Request{
		Domain:               "fintech",
		DisableSeedExpansion: true,
	})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Name)
}

func TestDiscover_RequiresInput(t *testing.T) {
	stage := newTestStage(&fakeSearcher{}, &fakeLLM{}, &fakeResolver{})

	_, err := stage.Discover(context.Background(), Request{})
	assert.Error(t, err)
}

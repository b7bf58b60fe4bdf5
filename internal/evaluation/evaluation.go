// Package evaluation assigns relevance scores to discovered companies and
// hydrated candidates against the search context. Records are scored in
// fixed-size batches by an LLM returning a JSON array aligned with the input
// order. A malformed response gets one strict retry; a batch that fails
// twice falls back to neutral defaults rather than aborting the run.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/talent-sourcer/internal/coresignal"
	"github.com/jonathan/talent-sourcer/internal/discovery"
	"github.com/jonathan/talent-sourcer/internal/llm"
	"github.com/jonathan/talent-sourcer/internal/prompts"
)

const (
	// BatchSize is how many records share one scoring prompt.
	BatchSize = 20

	// Neutral defaults applied when a batch fails both scoring attempts.
	NeutralScore    = 5.0
	FailedReasoning = "scoring failed"

	// llmPacing separates consecutive LLM calls within one evaluation run.
	llmPacing = 200 * time.Millisecond
)

// scoreSchema is the required shape of a scoring response.
const scoreSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["score", "reasoning"],
		"properties": {
			"score": {"type": "number", "minimum": 0, "maximum": 10},
			"reasoning": {"type": "string"}
		}
	}
}`

// Score is one record's evaluation.
type Score struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// Candidate pairs a hydrated profile with its evaluation.
type Candidate struct {
	Profile   *coresignal.EmployeeProfile `json:"profile"`
	Score     float64                     `json:"score"`
	Reasoning string                      `json:"reasoning"`
}

// Stage runs LLM evaluation.
type Stage struct {
	llm    llm.Client
	schema *gojsonschema.Schema

	// pace is swapped out in tests to avoid real sleeps.
	pace func(ctx context.Context)
}

// NewStage wires an evaluation stage.
func NewStage(llmClient llm.Client) (*Stage, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(scoreSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile score schema: %w", err)
	}
	return &Stage{
		llm:    llmClient,
		schema: schema,
		pace: func(ctx context.Context) {
			select {
			case <-time.After(llmPacing):
			case <-ctx.Done():
			}
		},
	}, nil
}

// ScoreCompanies scores every company against the search context and returns
// them sorted descending by score. The sort is stable, so equal scores keep
// their discovery order. No company is ever dropped.
func (s *Stage) ScoreCompanies(ctx context.Context, searchContext string, companies []discovery.Company) []discovery.Company {
	scored := make([]discovery.Company, len(companies))
	copy(scored, companies)

	for start := 0; start < len(scored); start += BatchSize {
		end := start + BatchSize
		if end > len(scored) {
			end = len(scored)
		}
		batch := scored[start:end]

		descriptions := make([]string, len(batch))
		for i, c := range batch {
			descriptions[i] = describeCompany(i+1, c)
		}

		scores := s.scoreBatch(ctx, "score-companies", searchContext, descriptions)
		for i := range batch {
			batch[i].Score = scores[i].Score
			batch[i].Reasoning = scores[i].Reasoning
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// ScoreCandidates scores hydrated profiles against the search context and
// returns them sorted descending by score, stable on ties.
func (s *Stage) ScoreCandidates(ctx context.Context, searchContext string, profiles []*coresignal.EmployeeProfile) []Candidate {
	scored := make([]Candidate, len(profiles))
	for i, p := range profiles {
		scored[i] = Candidate{Profile: p}
	}

	for start := 0; start < len(scored); start += BatchSize {
		end := start + BatchSize
		if end > len(scored) {
			end = len(scored)
		}
		batch := scored[start:end]

		descriptions := make([]string, len(batch))
		for i, c := range batch {
			descriptions[i] = describeCandidate(i+1, c.Profile)
		}

		scores := s.scoreBatch(ctx, "score-candidates", searchContext, descriptions)
		for i := range batch {
			batch[i].Score = scores[i].Score
			batch[i].Reasoning = scores[i].Reasoning
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Categorize assigns each company a category relative to the target domain.
// Failures leave the category empty; categorization is advisory and never
// blocks the pipeline.
func (s *Stage) Categorize(ctx context.Context, domain string, companies []discovery.Company) []discovery.Company {
	out := make([]discovery.Company, len(companies))
	copy(out, companies)

	template := prompts.MustGet("discovery.json", "categorize-company")

	for i := range out {
		prompt := prompts.Format(template, map[string]string{
			"Domain":      domain,
			"Name":        out[i].Name,
			"Website":     out[i].Website,
			"Description": out[i].Description,
		})

		s.pace(ctx)
		resp, err := s.llm.Complete(ctx, prompt, llm.TierLite)
		if err != nil {
			log.Printf("[EVALUATION] categorization failed for %s: %v", out[i].Name, err)
			continue
		}

		switch category := discovery.Category(strings.TrimSpace(strings.ToLower(resp))); category {
		case discovery.CategoryDirectCompetitor, discovery.CategoryAdjacent,
			discovery.CategorySameStage, discovery.CategoryTalentPool:
			out[i].Category = category
		default:
			log.Printf("[EVALUATION] unrecognized category %q for %s", resp, out[i].Name)
		}
	}

	return out
}

// scoreBatch sends one scoring prompt for a batch and returns one Score per
// input, in input order. It always returns len(descriptions) scores: if both
// the initial attempt and the strict retry fail, every slot gets the neutral
// default.
func (s *Stage) scoreBatch(ctx context.Context, promptKey, searchContext string, descriptions []string) []Score {
	template := prompts.MustGet("evaluation.json", promptKey)
	prompt := prompts.Format(template, map[string]string{
		"Context": searchContext,
		"Records": strings.Join(descriptions, "\n"),
		"Count":   fmt.Sprintf("%d", len(descriptions)),
	})

	scores, err := s.attemptScoring(ctx, prompt, len(descriptions))
	if err == nil {
		return scores
	}
	log.Printf("[EVALUATION] batch scoring failed, retrying strictly: %v", err)

	suffix := prompts.Format(prompts.MustGet("evaluation.json", "strict-retry-suffix"), map[string]string{
		"Count": fmt.Sprintf("%d", len(descriptions)),
	})
	scores, err = s.attemptScoring(ctx, prompt+suffix, len(descriptions))
	if err == nil {
		return scores
	}
	log.Printf("[EVALUATION] strict retry failed, defaulting batch: %v", err)

	defaults := make([]Score, len(descriptions))
	for i := range defaults {
		defaults[i] = Score{Score: NeutralScore, Reasoning: FailedReasoning}
	}
	return defaults
}

// attemptScoring makes one LLM call and validates the response shape and
// length against the batch.
func (s *Stage) attemptScoring(ctx context.Context, prompt string, want int) ([]Score, error) {
	s.pace(ctx)

	resp, err := s.llm.CompleteJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, err
	}
	resp = llm.CleanJSONBlock(resp)

	result, err := s.schema.Validate(gojsonschema.NewStringLoader(resp))
	if err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("response failed schema validation: %v", result.Errors())
	}

	var scores []Score
	if err := json.Unmarshal([]byte(resp), &scores); err != nil {
		return nil, fmt.Errorf("failed to parse scores: %w", err)
	}
	if len(scores) != want {
		return nil, fmt.Errorf("got %d scores for %d records", len(scores), want)
	}
	return scores, nil
}

func describeCompany(n int, c discovery.Company) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d. %s", n, c.Name)
	if c.Industry != "" {
		fmt.Fprintf(&sb, " | industry: %s", c.Industry)
	}
	if c.SizeRange != "" {
		fmt.Fprintf(&sb, " | size: %s", c.SizeRange)
	}
	if c.Location != "" {
		fmt.Fprintf(&sb, " | location: %s", c.Location)
	}
	if c.FundingStage != "" {
		fmt.Fprintf(&sb, " | funding: %s", c.FundingStage)
	}
	if c.Description != "" {
		fmt.Fprintf(&sb, " | %s", c.Description)
	}
	return sb.String()
}

func describeCandidate(n int, p *coresignal.EmployeeProfile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d. %s", n, p.FullName)
	if p.Headline != "" {
		fmt.Fprintf(&sb, " | %s", p.Headline)
	}
	if p.CurrentCompany != "" {
		fmt.Fprintf(&sb, " | current: %s", p.CurrentCompany)
	}
	if p.Location != "" {
		fmt.Fprintf(&sb, " | location: %s", p.Location)
	}
	if len(p.Experience) > 0 {
		titles := make([]string, 0, len(p.Experience))
		for _, e := range p.Experience {
			if e.Title != "" {
				titles = append(titles, e.Title)
			}
		}
		if len(titles) > 0 {
			fmt.Fprintf(&sb, " | roles: %s", strings.Join(titles, ", "))
		}
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(&sb, " | skills: %s", strings.Join(p.Skills, ", "))
	}
	return sb.String()
}

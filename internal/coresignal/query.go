package coresignal

import "strings"

// QueryOptions configures an employee search query.
type QueryOptions struct {
	// CompanyIDs are vendor company ids matched against the whole
	// work-history, not just the current employer, so alumni are included.
	CompanyIDs []string
	// Keywords are free-text role keywords (titles, skills).
	Keywords []string
	// KeywordOperator joins the keywords. OR is the default: requiring
	// every keyword was observed to return zero results on real data.
	// Left as a tunable rather than a hard invariant.
	KeywordOperator string
	// Location, when set, is a soft "should" booster rather than a hard
	// filter. Domain talent is frequently remote or international; a hard
	// location requirement eliminates most of the true candidate pool.
	Location string
}

// ExperiencePath is the nested document path for work-history clauses.
const ExperiencePath = "experience"

// experienceClause builds the work-history company clause.
// A single id yields a direct nested term match; multiple ids yield a
// should group with minimum_should_match: 1.
func experienceClause(companyIDs []string) map[string]any {
	if len(companyIDs) == 1 {
		return nestedTerm(companyIDs[0])
	}

	should := make([]any, 0, len(companyIDs))
	for _, id := range companyIDs {
		should = append(should, nestedTerm(id))
	}
	return map[string]any{
		"bool": map[string]any{
			"should":               should,
			"minimum_should_match": 1,
		},
	}
}

func nestedTerm(companyID string) map[string]any {
	return map[string]any{
		"nested": map[string]any{
			"path": ExperiencePath,
			"query": map[string]any{
				"term": map[string]any{
					ExperiencePath + ".company_id": companyID,
				},
			},
		},
	}
}

// keywordClause builds the free-text role-keyword clause.
func keywordClause(keywords []string, operator string) map[string]any {
	if operator == "" {
		operator = "OR"
	}
	return map[string]any{
		"query_string": map[string]any{
			"query":            strings.Join(keywords, " "),
			"default_field":    ExperiencePath + ".title",
			"default_operator": operator,
		},
	}
}

// locationClause builds the soft location booster.
func locationClause(location string) map[string]any {
	return map[string]any{
		"match": map[string]any{
			"location": location,
		},
	}
}

// BuildEmployeeQuery constructs the vendor search DSL body for the options.
// With only company ids the experience clause is emitted directly, without
// an enclosing boolean wrapper.
func BuildEmployeeQuery(opts QueryOptions) map[string]any {
	experience := experienceClause(opts.CompanyIDs)

	if len(opts.Keywords) == 0 && opts.Location == "" {
		return map[string]any{"query": experience}
	}

	boolBody := map[string]any{
		"must": []any{experience},
	}
	if len(opts.Keywords) > 0 {
		boolBody["must"] = append(boolBody["must"].([]any), keywordClause(opts.Keywords, opts.KeywordOperator))
	}
	if opts.Location != "" {
		boolBody["should"] = []any{locationClause(opts.Location)}
	}

	return map[string]any{
		"query": map[string]any{"bool": boolBody},
	}
}

// BuildCompanyNameQuery constructs a company search body matching a name.
func BuildCompanyNameQuery(name string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"match": map[string]any{
				"name": name,
			},
		},
	}
}

// BuildCompanyWebsiteQuery constructs a company search body matching an
// exact website.
func BuildCompanyWebsiteQuery(website string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"term": map[string]any{
				"website": website,
			},
		},
	}
}

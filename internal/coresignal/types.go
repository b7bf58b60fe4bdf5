// Package coresignal is a thin gateway to the CoreSignal people-data API.
// It covers the operations the pipeline needs: company search, employee
// search (raw identifiers), preview (abbreviated records), and collect
// (full billed records). No logic lives here beyond request construction
// and response parsing; collect calls are billed per record, so the gateway
// never retries on its own.
package coresignal

import "fmt"

// Company is a vendor company record as returned by company search.
type Company struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Website      string `json:"website,omitempty"`
	Industry     string `json:"industry,omitempty"`
	SizeRange    string `json:"size_range,omitempty"`
	HQLocation   string `json:"headquarters_location,omitempty"`
	FundingStage string `json:"last_funding_round_type,omitempty"`
}

// Experience is one work-history entry on an employee record.
type Experience struct {
	CompanyID   string `json:"company_id,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Title       string `json:"title,omitempty"`
	DateFrom    string `json:"date_from,omitempty"`
	DateTo      string `json:"date_to,omitempty"`
}

// EmployeePreview is the abbreviated record returned by the preview endpoint.
type EmployeePreview struct {
	ID             string `json:"id"`
	FullName       string `json:"full_name"`
	Headline       string `json:"headline,omitempty"`
	CurrentCompany string `json:"current_company_name,omitempty"`
	Location       string `json:"location,omitempty"`
}

// EmployeeProfile is the full billed record returned by collect.
type EmployeeProfile struct {
	ID             string       `json:"id"`
	FullName       string       `json:"full_name"`
	Headline       string       `json:"headline,omitempty"`
	CurrentCompany string       `json:"current_company_name,omitempty"`
	Location       string       `json:"location,omitempty"`
	Experience     []Experience `json:"experience,omitempty"`
	Skills         []string     `json:"inferred_skills,omitempty"`
}

// Error is a typed gateway failure carrying the vendor's status and body so
// callers can log the full context.
type Error struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("coresignal %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// SearchCap is the vendor's documented ceiling on identifiers returned by a
// single search query (100 results across 5 pages per query; the search
// endpoint itself returns at most 1000 raw ids). Exceeding it requires
// issuing multiple queries over company batches.
const (
	SearchCap     = 1000
	PerQueryCap   = 100
	PagesPerQuery = 5
)

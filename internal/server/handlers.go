package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/talent-sourcer/internal/collection"
	"github.com/jonathan/talent-sourcer/internal/coresignal"
	"github.com/jonathan/talent-sourcer/internal/db"
	"github.com/jonathan/talent-sourcer/internal/discovery"
	"github.com/jonathan/talent-sourcer/internal/evaluation"
	"github.com/jonathan/talent-sourcer/internal/observability"
	"github.com/jonathan/talent-sourcer/internal/session"
)

// sessionIDFromPath parses the {id} path value.
func sessionIDFromPath(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "must be a valid UUID"}
	}
	return id, nil
}

// decodeAndValidate decodes the JSON body into req and runs struct
// validation.
func (s *Server) decodeAndValidate(r *http.Request, req any) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := s.validator.Struct(req); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// requireActiveSession loads the session row and converts missing or
// soft-deleted sessions into typed errors.
func (s *Server) requireActiveSession(r *http.Request) (uuid.UUID, error) {
	id, err := sessionIDFromPath(r)
	if err != nil {
		return uuid.Nil, err
	}
	row, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		return uuid.Nil, err
	}
	if row == nil {
		return uuid.Nil, &ErrSessionNotFound{SessionID: id}
	}
	if !row.Active {
		return uuid.Nil, &ErrSessionInactive{SessionID: id}
	}
	return id, nil
}

// -----------------------------------------------------------------------------
// Session CRUD
// -----------------------------------------------------------------------------

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.store.CreateSession(r.Context())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{"session_id": id.String()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDFromPath(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	row, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if row == nil {
		s.errorResponse(w, &ErrSessionNotFound{SessionID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, row)
}

func (s *Server) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDFromPath(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	row, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if row == nil {
		s.errorResponse(w, &ErrSessionNotFound{SessionID: id})
		return
	}

	// Evidence rows only exist when a database is configured.
	records := []db.EvidenceRecord{}
	if s.db != nil {
		records, err = s.db.ListEvidence(r.Context(), id)
		if err != nil {
			s.errorResponse(w, err)
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, records)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDFromPath(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if err := s.store.DeactivateSession(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.errorResponse(w, &ErrSessionNotFound{SessionID: id})
			return
		}
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// -----------------------------------------------------------------------------
// Stage 1: discovery
// -----------------------------------------------------------------------------

type discoverRequest struct {
	Domain               string   `json:"domain" validate:"required_without=MentionedCompanies"`
	MentionedCompanies   []string `json:"mentioned_companies"`
	SeedCompanies        []string `json:"seed_companies"`
	DisableSeedExpansion bool     `json:"disable_seed_expansion"`
	SearchContext        string   `json:"search_context"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	id, err := s.requireActiveSession(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	var req discoverRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}

	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	stage := discovery.NewStage(s.searcher, s.llm, s.vendor, s.db)
	if s.fetcher != nil {
		stage.WithFetcher(s.fetcher)
	}
	companies, err := stage.Discover(r.Context(), discovery.Request{
		Domain:               req.Domain,
		MentionedCompanies:   req.MentionedCompanies,
		SeedCompanies:        req.SeedCompanies,
		DisableSeedExpansion: req.DisableSeedExpansion,
	})
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	companies = stage.EnrichDescriptions(r.Context(), companies)

	evalStage, err := evaluation.NewStage(s.llm)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	companies = evalStage.Categorize(r.Context(), req.Domain, companies)

	searchContext := req.SearchContext
	if searchContext == "" {
		searchContext = req.Domain
	}
	companies = evalStage.ScoreCompanies(r.Context(), searchContext, companies)

	recorder := session.NewRecorder(s.opts.ArtifactsDir, id, s.db)
	recorder.Record(r.Context(), session.StageDiscovery, companies, observability.FormatCompanies(companies))

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"session_id": id.String(),
		"companies":  companies,
	})
}

// -----------------------------------------------------------------------------
// Stage 2a: preview (identifier collection)
// -----------------------------------------------------------------------------

type previewRequest struct {
	CompanyIDs      []string `json:"company_ids" validate:"required,min=1"`
	Keywords        []string `json:"keywords"`
	KeywordOperator string   `json:"keyword_operator" validate:"omitempty,oneof=OR AND"`
	Location        string   `json:"location"`
	PreviewLimit    int      `json:"preview_limit" validate:"gte=0,lte=100"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, err := s.requireActiveSession(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	var req previewRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}

	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	stage := collection.NewStage(s.vendor, s.store)
	queryOpts := coresignal.QueryOptions{
		Keywords:        req.Keywords,
		KeywordOperator: req.KeywordOperator,
		Location:        req.Location,
	}

	searchResult, err := stage.Search(r.Context(), id, req.CompanyIDs, queryOpts)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	var previews []coresignal.EmployeePreview
	if req.PreviewLimit > 0 {
		previews, err = stage.Preview(r.Context(), req.CompanyIDs, queryOpts, req.PreviewLimit)
		if err != nil {
			// Previews are informational; the merged id list is already
			// stored, so report the search result without them.
			previews = nil
		}
	}

	recorder := session.NewRecorder(s.opts.ArtifactsDir, id, s.db)
	recorder.Record(r.Context(), session.StagePreview, searchResult, "")

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"search":   searchResult,
		"previews": previews,
	})
}

// -----------------------------------------------------------------------------
// Stage 2b: collect ("load more" hydration)
// -----------------------------------------------------------------------------

type collectRequest struct {
	Count int `json:"count" validate:"required,gt=0,lte=100"`
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	id, err := s.requireActiveSession(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	var req collectRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}

	// Serialize load-more per session: the cursor is read-then-written.
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	stage := collection.NewStage(s.vendor, s.store)
	result, err := stage.LoadMore(r.Context(), id, req.Count)
	if err != nil {
		if strings.Contains(err.Error(), "move backwards") {
			s.errorResponse(w, &ErrCursorConflict{SessionID: id})
			return
		}
		s.errorResponse(w, err)
		return
	}

	recorder := session.NewRecorder(s.opts.ArtifactsDir, id, s.db)
	recorder.Record(r.Context(), session.StageCollection, result, observability.FormatHydration(result))

	s.jsonResponse(w, http.StatusOK, result)
}

// -----------------------------------------------------------------------------
// Stage 3: evaluate
// -----------------------------------------------------------------------------

type evaluateRequest struct {
	SearchContext string                        `json:"search_context" validate:"required"`
	Candidates    []*coresignal.EmployeeProfile `json:"candidates"`
	Companies     []discovery.Company           `json:"companies"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	id, err := s.requireActiveSession(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	var req evaluateRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	if len(req.Candidates) == 0 && len(req.Companies) == 0 {
		s.errorResponse(w, &ErrValidation{Field: "body", Message: "candidates or companies required"})
		return
	}

	evalStage, err := evaluation.NewStage(s.llm)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	response := map[string]any{"session_id": id.String()}
	recorder := session.NewRecorder(s.opts.ArtifactsDir, id, s.db)

	if len(req.Companies) > 0 {
		scored := evalStage.ScoreCompanies(r.Context(), req.SearchContext, req.Companies)
		response["companies"] = scored
		recorder.Record(r.Context(), session.StageEvaluation, scored, observability.FormatCompanies(scored))
	}

	if len(req.Candidates) > 0 {
		scored := evalStage.ScoreCandidates(r.Context(), req.SearchContext, req.Candidates)
		response["candidates"] = scored
		recorder.Record(r.Context(), session.StageEvaluation, scored, observability.FormatScoredCandidates(scored))
	}

	s.jsonResponse(w, http.StatusOK, response)
}

package daemon

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"inkwell/internal/api"
	"inkwell/internal/dispatch"
	"inkwell/internal/editor"
	"inkwell/internal/intake"
	"inkwell/internal/records"
)

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	results := s.daemon.Preflight(r.Context())
	payload := make([]api.PreflightResult, 0, len(results))
	healthy := true
	for _, result := range results {
		payload = append(payload, api.PreflightResult{
			Name:   result.Name,
			Passed: result.Passed,
			Detail: result.Detail,
		})
		if !result.Passed {
			healthy = false
		}
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, api.HealthReport{Healthy: healthy, Checks: payload})
}

func (s *apiServer) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	var statuses []records.Status
	for _, value := range r.URL.Query()["status"] {
		parsed, ok := records.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(value))
			return
		}
		statuses = append(statuses, parsed)
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	docs, err := s.daemon.docs.List(r.Context(), statuses, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DocumentListResponse{Documents: docs})
}

func (s *apiServer) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.daemon.docs.Describe(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if doc == nil {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.DocumentResponse{Document: *doc})
}

func (s *apiServer) handleIntake(w http.ResponseWriter, r *http.Request) {
	var req api.IntakeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := s.daemon.comps.Router.Route(r.Context(), intake.Request{
		DocumentID:  req.DocumentID,
		Bucket:      req.Bucket,
		Key:         req.Key,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		PageCount:   req.PageCount,
		Metadata:    api.ToMetadata(req.Metadata),
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if !decision.Created {
		status = http.StatusOK
	}
	s.writeJSON(w, status, api.DocumentResponse{Document: api.FromDocument(decision.Document)})
}

func (s *apiServer) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req api.DispatchRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trigger := dispatch.TriggerFromRequest(r.PathValue("id"), req.Bucket, req.Key, req.Tier)
	s.dispatchAndRespond(w, r, trigger)
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.dispatchAndRespond(w, r, dispatch.TriggerForRetry(r.PathValue("id")))
}

func (s *apiServer) dispatchAndRespond(w http.ResponseWriter, r *http.Request, trigger dispatch.Trigger) {
	outcome, err := s.daemon.comps.Dispatcher.Dispatch(r.Context(), trigger)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.DispatchOutcome{
		DocumentID: outcome.Document.DocumentID,
		Status:     string(outcome.Document.Status),
		Token:      outcome.Token,
		ItemID:     outcome.ItemID,
	})
}

func (s *apiServer) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req api.EditRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := s.daemon.comps.Editor.Edit(r.Context(), r.PathValue("id"), editor.Fields{
		RefinedText:   req.RefinedText,
		FormattedText: req.FormattedText,
		Title:         req.Title,
		Author:        req.Author,
		Publication:   req.Publication,
		Year:          req.Year,
		Description:   req.Description,
		Tags:          req.Tags,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DocumentResponse{Document: api.FromDocument(doc)})
}

func (s *apiServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	doc, err := s.daemon.comps.Recycler.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromRecycled(doc))
}

func (s *apiServer) handleRestore(w http.ResponseWriter, r *http.Request) {
	doc, err := s.daemon.comps.Recycler.Restore(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DocumentResponse{Document: api.FromDocument(doc)})
}

func (s *apiServer) handleRecycleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.daemon.docs.Recycled(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RecycleListResponse{Entries: entries})
}

func (s *apiServer) handleRecyclePurge(w http.ResponseWriter, r *http.Request) {
	purged, err := s.daemon.comps.Recycler.PurgeExpired(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.PurgeResponse{Purged: purged})
}

// decodeBody decodes a JSON body rejecting unknown fields so typos in edit
// payloads fail loudly instead of silently editing nothing.
func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

package daemon

import (
	"net/http"
	"strconv"

	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"

	"inkwell/internal/api"
	"inkwell/internal/dispatch"
	"inkwell/internal/logging"
)

func (s *apiServer) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.docs.DeadLetters(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DeadLetterListResponse{Items: items})
}

func (s *apiServer) handleReplayDeadLetter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid work item id")
		return
	}
	item, err := s.daemon.comps.Queue.ReplayDeadLetter(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.FromWorkItem(item))
}

// handleStorageEvent feeds an object-created CloudEvent into the dispatch
// path. Both binary and structured content modes are accepted.
func (s *apiServer) handleStorageEvent(w http.ResponseWriter, r *http.Request) {
	event, err := cehttp.NewEventFromHTTPRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "decode cloudevent: "+err.Error())
		return
	}

	trigger, err := dispatch.TriggerFromStorageEvent(*event)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.log().Debug("storage event received",
		logging.String("event_id", event.ID()),
		logging.String("event_type", event.Type()),
	)
	s.dispatchAndRespond(w, r, trigger)
}

// handleJobEvent reconciles an external compute-job state notification
// against the record's own status.
func (s *apiServer) handleJobEvent(w http.ResponseWriter, r *http.Request) {
	event, err := cehttp.NewEventFromHTTPRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "decode cloudevent: "+err.Error())
		return
	}

	doc, err := s.daemon.comps.Reconciler.HandleJobEvent(r.Context(), *event)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DocumentResponse{Document: api.FromDocument(doc)})
}

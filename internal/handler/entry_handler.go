package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"mubot/internal/models"
	"mubot/internal/service"
)

// EntryHandler handles HTTP requests for outreach entry operations
type EntryHandler struct {
	entryService *service.EntryService
	scheduler    *service.FollowupScheduler
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(entryService *service.EntryService, scheduler *service.FollowupScheduler) *EntryHandler {
	return &EntryHandler{
		entryService: entryService,
		scheduler:    scheduler,
	}
}

// CreateEntryResponse is the response for POST /entries
type CreateEntryResponse struct {
	Entry     *models.OutreachEntry       `json:"entry"`
	Followups []*models.ScheduledFollowup `json:"followups"`
}

// Create handles POST /entries - records a sent outreach and schedules
// its follow-up sequence
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateEntryRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	entry, followups, err := h.entryService.CreateEntry(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, CreateEntryResponse{Entry: entry, Followups: followups})
}

// GetByID handles GET /entries/{id}
func (h *EntryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		WriteValidationError(w, "entry ID is required")
		return
	}

	entry, followups, err := h.entryService.GetEntry(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, CreateEntryResponse{Entry: entry, Followups: followups})
}

// ScheduleFollowups handles POST /entries/{id}/followups - schedules the
// follow-up sequence for an existing entry
func (h *EntryHandler) ScheduleFollowups(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		WriteValidationError(w, "entry ID is required")
		return
	}

	followups, err := h.scheduler.Schedule(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, map[string]interface{}{"followups": followups})
}

// DoNotContact handles POST /entries/{id}/do-not-contact
func (h *EntryHandler) DoNotContact(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		WriteValidationError(w, "entry ID is required")
		return
	}

	cancelled, err := h.entryService.MarkDoNotContact(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, map[string]interface{}{
		"entry_id":            id,
		"followups_cancelled": cancelled,
	})
}

// AttachDraftRequest is the body for PUT /entries/{id}/followups/{index}/draft
type AttachDraftRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// AttachDraft handles PUT /entries/{id}/followups/{index}/draft
func (h *EntryHandler) AttachDraft(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	index, err := strconv.Atoi(vars["index"])
	if err != nil || index < 1 || index > models.MaxFollowups {
		WriteValidationError(w, "follow-up index must be between 1 and 3")
		return
	}

	var req AttachDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	if err := h.entryService.AttachDraft(r.Context(), id, index, req.Subject, req.Body); err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, map[string]interface{}{"entry_id": id, "index": index})
}

// ListPending handles GET /followups/pending - snapshot read of every
// unsent, non-cancelled follow-up
func (h *EntryHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.entryService.ListPendingFollowups(r.Context())
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, map[string]interface{}{
		"followups": pending,
		"count":     len(pending),
	})
}

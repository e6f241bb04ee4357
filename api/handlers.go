/*
handlers.go - HTTP API handlers for the payroll schedule engine

PURPOSE:
  Exposes the schedule engine via REST. Handles HTTP request/response and
  JSON serialization, and delegates all date computation to the schedule
  package.

ENDPOINTS:
  Milestone sets:
    GET    /api/milestone-sets            List sets
    POST   /api/milestone-sets            Create/replace a set
    GET    /api/milestone-sets/{id}       Get a set
    DELETE /api/milestone-sets/{id}       Delete a set

  Custom holidays:
    GET    /api/holidays?org={org}        List an org's custom holidays
    POST   /api/holidays                  Declare a custom holiday
    DELETE /api/holidays/{id}             Remove a custom holiday

  Entity schedule configuration:
    GET    /api/entities/{id}/config      Get stored config
    PUT    /api/entities/{id}/config      Store config

  Generation:
    GET    /api/entities/{id}/schedule/{year}?org={org}
                                          Generate the year's schedule

ERROR HANDLING:
  - 400: malformed input
  - 404: unknown entity / milestone set / holiday
  - 422: configuration errors (empty work-week intersection, ambiguous
         pivot, unknown due rule) - the entity's run fails as a unit
  - 500: storage failures

HOLIDAY CACHE LIFECYCLE:
  A fresh holiday resolver is created per generation request
  (populate-once-per-run): the cache lives exactly as long as the run,
  so an organization's override edits take effect on the next request.

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/holiday"
	"github.com/warp/payroll-engine/schedule"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Provider holiday.Provider
	// Workers bounds concurrent period generation per request.
	Workers int
	Log     logrus.FieldLogger
}

// NewHandler creates a new handler over the given store and provider.
func NewHandler(store *sqlite.Store, provider holiday.Provider) *Handler {
	return &Handler{
		Store:    store,
		Provider: provider,
		Workers:  4,
		Log:      logrus.StandardLogger(),
	}
}

// =============================================================================
// MILESTONE SETS
// =============================================================================

func (h *Handler) ListMilestoneSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.Store.ListMilestoneSets(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}
	if sets == nil {
		sets = []schedule.MilestoneSet{}
	}
	writeJSON(w, http.StatusOK, sets)
}

func (h *Handler) CreateMilestoneSet(w http.ResponseWriter, r *http.Request) {
	var set schedule.MilestoneSet
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		writeError(w, http.StatusBadRequest, "invalid milestone set payload")
		return
	}
	if set.Name == "" {
		writeError(w, http.StatusBadRequest, "milestone set requires a name")
		return
	}
	for _, m := range set.Milestones {
		if m.Interval < 0 {
			writeError(w, http.StatusBadRequest, "milestone intervals must be non-negative")
			return
		}
	}

	saved, err := h.Store.SaveMilestoneSet(r.Context(), set)
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) GetMilestoneSet(w http.ResponseWriter, r *http.Request) {
	set, err := h.Store.GetMilestoneSet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.internalError(w, err)
		return
	}
	if set == nil {
		writeError(w, http.StatusNotFound, "milestone set not found")
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *Handler) DeleteMilestoneSet(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteMilestoneSet(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CUSTOM HOLIDAYS
// =============================================================================

func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("org")
	if org == "" {
		writeError(w, http.StatusBadRequest, "org query parameter is required")
		return
	}
	holidays, err := h.Store.ListCustomHolidays(r.Context(), org)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if holidays == nil {
		holidays = []sqlite.CustomHoliday{}
	}
	writeJSON(w, http.StatusOK, holidays)
}

func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid holiday payload")
		return
	}
	if req.OrgID == "" || req.Country == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "org_id, country and name are required")
		return
	}
	date, err := calendar.Parse(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	saved, err := h.Store.SaveCustomHoliday(r.Context(), sqlite.CustomHoliday{
		OrgID:   req.OrgID,
		Country: req.Country,
		Date:    date,
		Name:    req.Name,
	})
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteCustomHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ENTITY SCHEDULE CONFIG
// =============================================================================

func (h *Handler) GetScheduleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.GetScheduleConfig(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.internalError(w, err)
		return
	}
	if cfg == nil {
		writeError(w, http.StatusNotFound, "no schedule config for entity")
		return
	}
	writeJSON(w, http.StatusOK, configDTO(*cfg))
}

func (h *Handler) PutScheduleConfig(w http.ResponseWriter, r *http.Request) {
	var dto ScheduleConfigDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule config payload")
		return
	}
	dto.EntityID = chi.URLParam(r, "id")
	if len(dto.Countries) == 0 {
		writeError(w, http.StatusBadRequest, "countries must be non-empty")
		return
	}
	if dto.MilestoneSetID == "" {
		writeError(w, http.StatusBadRequest, "milestone_set_id is required")
		return
	}

	set, err := h.Store.GetMilestoneSet(r.Context(), dto.MilestoneSetID)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if set == nil {
		writeError(w, http.StatusNotFound, "milestone set not found")
		return
	}

	if err := h.Store.SaveScheduleConfig(r.Context(), dto.toDomain()); err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// SCHEDULE GENERATION
// =============================================================================

func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "id")
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1900 || year > 2200 {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}

	cfg, err := h.Store.GetScheduleConfig(r.Context(), entityID)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if cfg == nil {
		writeError(w, http.StatusNotFound, "no schedule config for entity")
		return
	}

	set, err := h.Store.GetMilestoneSet(r.Context(), cfg.Milestones.ID)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if set == nil {
		writeError(w, http.StatusUnprocessableEntity, "configured milestone set no longer exists")
		return
	}
	cfg.Milestones = *set

	var overrides holiday.OverrideSource
	if org := r.URL.Query().Get("org"); org != "" {
		overrides = h.Store.Overrides(org)
	}

	// One resolver per run: the holiday cache lives for this request only.
	resolver := holiday.NewResolver(h.Provider, overrides)
	gen := schedule.NewGenerator(resolver)
	gen.Workers = h.Workers
	gen.Log = h.Log

	result, err := gen.Generate(r.Context(), *cfg, year)
	if err != nil {
		if schedule.IsConfigError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.Log.WithError(err).Error("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

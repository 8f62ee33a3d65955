package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"EstateDesk/api/constants"
	"EstateDesk/internal/cms"
	"EstateDesk/internal/models"
)

// handleCheckUnit forwards a unit availability lookup to the CMS.
func (s *GatewayService) handleCheckUnit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	project := strings.TrimSpace(q.Get("project"))
	unit := strings.TrimSpace(q.Get("unitNumber"))
	if project == "" || unit == "" {
		RespondWithError(w, http.StatusBadRequest, constants.ErrMissingUnitQuery)
		return
	}
	body, err := s.deps.Inventory.CheckUnit(r.Context(), project, unit)
	if err != nil {
		s.log.WarnContext(r.Context(), "check-unit failed", "project", project, "unit", unit, "err", err)
		RespondWithError(w, http.StatusInternalServerError, constants.ErrUpstream)
		return
	}
	RespondWithRaw(w, http.StatusOK, body)
}

func (s *GatewayService) handleProperty(w http.ResponseWriter, r *http.Request) {
	docID := strings.TrimSpace(mux.Vars(r)["docId"])
	if docID == "" {
		RespondWithError(w, http.StatusBadRequest, constants.ErrMissingDocID)
		return
	}
	p, err := s.deps.Inventory.GetProperty(r.Context(), docID)
	switch {
	case errors.Is(err, cms.ErrNotFound), errors.Is(err, models.ErrMissingDocID):
		RespondWithError(w, http.StatusNotFound, "property not found")
	case err != nil:
		RespondWithError(w, http.StatusInternalServerError, constants.ErrUpstream)
	default:
		RespondWithPayload(w, p)
	}
}

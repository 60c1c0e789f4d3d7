package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-progression/services"
)

type OverviewHandler struct {
	overviewService services.OverviewService
}

func NewOverviewHandler(s services.OverviewService) *OverviewHandler {
	return &OverviewHandler{overviewService: s}
}

func (h *OverviewHandler) GetContentOverview(w http.ResponseWriter, r *http.Request) {
	contentID, err := getIDFromURL(r, "contentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	overview, err := h.overviewService.GetContentOverview(r.Context(), contentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"overview": overview}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

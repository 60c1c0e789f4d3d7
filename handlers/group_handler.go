package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/tournament-progression/services"
)

type GroupHandler struct {
	groupService services.GroupService
}

func NewGroupHandler(gs services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: gs}
}

// PlanGroups answers GET /groups/plan?total=N.
func (h *GroupHandler) PlanGroups(w http.ResponseWriter, r *http.Request) {
	total, err := strconv.Atoi(r.URL.Query().Get("total"))
	if err != nil {
		badRequestResponse(w, r, errors.New("query parameter total must be an integer"))
		return
	}

	layout, err := h.groupService.PlanGroups(total)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"layout": layout}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GroupHandler) DrawGroups(w http.ResponseWriter, r *http.Request) {
	contentID, err := getIDFromURL(r, "contentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	assignments, err := h.groupService.DrawGroups(r.Context(), contentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"assignments": assignments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RankGroup ranks the group named by the optional group query parameter, or
// every group when it is absent.
func (h *GroupHandler) RankGroup(w http.ResponseWriter, r *http.Request) {
	contentID, err := getIDFromURL(r, "contentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var groupName *string
	if name := r.URL.Query().Get("group"); name != "" {
		groupName = &name
	}

	rankings, err := h.groupService.RankGroup(r.Context(), contentID, groupName)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"groups": rankings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GroupHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	contentID, err := getIDFromURL(r, "contentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rankings, err := h.groupService.GetStandings(r.Context(), contentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"groups": rankings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

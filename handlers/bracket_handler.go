package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-progression/services"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bs services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bs}
}

type advanceWinnerInput struct {
	WinnerEntryID int `json:"winner_entry_id"`
}

func (h *BracketHandler) BuildKnockout(w http.ResponseWriter, r *http.Request) {
	contentID, err := getIDFromURL(r, "contentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.bracketService.BuildKnockout(r.Context(), contentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) BuildKnockoutFromGroups(w http.ResponseWriter, r *http.Request) {
	contentID, err := getIDFromURL(r, "contentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.bracketService.BuildKnockoutFromGroups(r.Context(), contentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	contentID, err := getIDFromURL(r, "contentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.bracketService.GetBracket(r.Context(), contentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdvanceWinner decides a node by hand, e.g. for a walkover.
func (h *BracketHandler) AdvanceWinner(w http.ResponseWriter, r *http.Request) {
	nodeID, err := getIDFromURL(r, "nodeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input advanceWinnerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.bracketService.AdvanceWinner(r.Context(), nodeID, input.WinnerEntryID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"advancement": result.Advancement, "next_match": result.NextMatch}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

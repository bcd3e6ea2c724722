package handlers

import (
	"net/http"

	"github.com/Pandnak/dancers-matcher/middleware"
	"github.com/Pandnak/dancers-matcher/services"
)

type PairHandler struct {
	pairService services.PairService
}

func NewPairHandler(pairService services.PairService) *PairHandler {
	return &PairHandler{pairService: pairService}
}

func (h *PairHandler) List(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.pairService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pairs": pairs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PairHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	pairID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pair, err := h.pairService.GetByID(r.Context(), pairID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pair": pair}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PairHandler) Delete(w http.ResponseWriter, r *http.Request) {
	pairID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.pairService.Delete(r.Context(), caller, pairID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ok": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Pandnak/dancers-matcher/services"
)

type RecommendationHandler struct {
	recommendationService services.RecommendationService
}

func NewRecommendationHandler(recommendationService services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendationService: recommendationService}
}

func (h *RecommendationHandler) Basic(w http.ResponseWriter, r *http.Request) {
	dancerID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	dancers, err := h.recommendationService.Basic(r.Context(), dancerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"recommendations": dancers}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RecommendationHandler) KNN(w http.ResponseWriter, r *http.Request) {
	dancerID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	k := services.KNNDefaultK
	if raw := r.URL.Query().Get("k"); raw != "" {
		k, err = strconv.Atoi(raw)
		if err != nil {
			badRequestResponse(w, r, errors.New("k must be an integer"))
			return
		}
	}

	dancers, err := h.recommendationService.KNN(r.Context(), dancerID, k)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"recommendations": dancers}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

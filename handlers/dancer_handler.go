package handlers

import (
	"errors"
	"net/http"

	"github.com/Pandnak/dancers-matcher/middleware"
	"github.com/Pandnak/dancers-matcher/services"
)

const maxPhotoSize = 5 << 20 // 5MB

type DancerHandler struct {
	dancerService services.DancerService
}

func NewDancerHandler(dancerService services.DancerService) *DancerHandler {
	return &DancerHandler{dancerService: dancerService}
}

func (h *DancerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateDancerInput

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	dancer, err := h.dancerService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"dancer": dancer}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DancerHandler) List(w http.ResponseWriter, r *http.Request) {
	dancers, err := h.dancerService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"dancers": dancers}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DancerHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	dancerID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	dancer, err := h.dancerService.GetByID(r.Context(), dancerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"dancer": dancer}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DancerHandler) Update(w http.ResponseWriter, r *http.Request) {
	dancerID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.UpdateDancerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.Name == nil && input.SecretName == nil && input.Sex == nil &&
		input.Age == nil && input.Height == nil && input.Style == nil && input.Level == nil {
		badRequestResponse(w, r, errors.New("no fields provided for update"))
		return
	}

	dancer, err := h.dancerService.UpdateProfile(r.Context(), caller, dancerID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"dancer": dancer}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DancerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	dancerID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.dancerService.Delete(r.Context(), caller, dancerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ok": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DancerHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	dancerID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		badRequestResponse(w, r, errors.New("failed to parse multipart form"))
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		badRequestResponse(w, r, errors.New("photo file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "image/jpeg" && contentType != "image/png" && contentType != "image/webp" {
		badRequestResponse(w, r, errors.New("photo must be jpeg, png or webp"))
		return
	}

	dancer, err := h.dancerService.UploadPhoto(r.Context(), caller, dancerID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"dancer": dancer}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DancerHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	dancerID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.dancerService.DeletePhoto(r.Context(), caller, dancerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ok": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

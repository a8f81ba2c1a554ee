package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/staysync/staysync/internal/model"
	"github.com/staysync/staysync/internal/property"
)

// PropertiesHandler handles property endpoints.
type PropertiesHandler struct {
	Properties *property.Service
}

type cloneImagesRequest struct {
	TargetID string `json:"targetId"`
}

// List handles GET /api/properties.
func (h *PropertiesHandler) List(w http.ResponseWriter, r *http.Request) {
	props, err := h.Properties.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, props)
}

// Get handles GET /api/properties/{id}.
func (h *PropertiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Properties.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

// Create handles POST /api/properties.
func (h *PropertiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p model.Property
	if err := decodeJSON(r, &p); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Properties.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

// Update handles PUT /api/properties/{id}.
func (h *PropertiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.PropertyPatch
	if err := decodeStrict(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.Properties.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

// Delete handles DELETE /api/properties/{id}.
func (h *PropertiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Properties.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// Upload handles POST /api/properties/{id}/upload, setting the main image.
func (h *PropertiesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, ok := formImage(w, r, "image")
	if !ok {
		return
	}
	defer file.Close()

	p, err := h.Properties.SetMainImage(r.Context(), r.PathValue("id"), file)
	if err != nil {
		h.imageError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"success": true, "path": p.MainImage})
}

// UploadMultiple handles POST /api/properties/{id}/upload-multiple.
func (h *PropertiesHandler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		jsonError(w, http.StatusBadRequest, "images files required")
		return
	}

	uploads := make([]io.Reader, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			jsonError(w, http.StatusBadRequest, "unreadable upload "+fh.Filename)
			return
		}
		defer f.Close()
		uploads = append(uploads, f)
	}

	images, err := h.Properties.AddImages(r.Context(), r.PathValue("id"), uploads)
	if err != nil {
		h.imageError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"success": true, "images": images})
}

// CloneImages handles POST /api/properties/{id}/clone-images.
func (h *PropertiesHandler) CloneImages(w http.ResponseWriter, r *http.Request) {
	var req cloneImagesRequest
	if err := decodeJSON(r, &req); err != nil || req.TargetID == "" {
		jsonError(w, http.StatusBadRequest, "targetId required")
		return
	}

	n, err := h.Properties.CloneImages(r.Context(), r.PathValue("id"), req.TargetID)
	if err != nil {
		h.imageError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"success": true, "filesCount": n})
}

// Clone handles POST /api/properties/{id}/clone, copying inventory and images.
func (h *PropertiesHandler) Clone(w http.ResponseWriter, r *http.Request) {
	var req cloneImagesRequest
	if err := decodeJSON(r, &req); err != nil || req.TargetID == "" {
		jsonError(w, http.StatusBadRequest, "targetId required")
		return
	}

	res, err := h.Properties.CloneProperty(r.Context(), r.PathValue("id"), req.TargetID)
	if err != nil {
		h.imageError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"success":     true,
		"itemsCount":  res.ItemsCount,
		"imagesCount": res.ImagesCount,
	})
}

func (h *PropertiesHandler) imageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, property.ErrNoMedia) {
		jsonError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeError(w, r, err)
}

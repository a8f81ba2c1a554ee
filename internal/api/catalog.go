package api

import (
	"net/http"

	"github.com/staysync/staysync/internal/catalog"
	"github.com/staysync/staysync/internal/model"
)

// CatalogHandler handles catalog endpoints.
type CatalogHandler struct {
	Catalog *catalog.Service
}

// List handles GET /api/inventory/catalog.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.Catalog.List(r.Context(), catalog.Filter{
		Category:   q.Get("category"),
		AreaType:   q.Get("areaType"),
		SearchTerm: q.Get("searchTerm"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// get handles GET /api/inventory/catalog/{id}, dispatched from InventoryHandler.View.
func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	item, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/inventory/catalog.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var item model.CatalogItem
	if err := decodeJSON(r, &item); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Catalog.Create(r.Context(), item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

// Update handles PATCH /api/inventory/catalog/{id}.
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.CatalogPatch
	if err := decodeStrict(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	updated, err := h.Catalog.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/inventory/catalog/{id}.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

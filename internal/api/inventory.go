package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/staysync/staysync/internal/inventory"
	"github.com/staysync/staysync/internal/model"
)

// InventoryHandler handles property inventory endpoints.
type InventoryHandler struct {
	Inventory *inventory.Manager
	Catalog   *CatalogHandler
}

type checkedRequest struct {
	IsChecked *bool `json:"isChecked"`
}

type cloneInventoryRequest struct {
	TargetPropertyID string `json:"targetPropertyId"`
}

type cloneInventoryResponse struct {
	Success          bool   `json:"success"`
	ItemsCount       int    `json:"itemsCount"`
	SourcePropertyID string `json:"sourcePropertyId"`
	TargetPropertyID string `json:"targetPropertyId"`
}

func itemFilter(r *http.Request) inventory.Filter {
	q := r.URL.Query()
	return inventory.Filter{RoomID: q.Get("roomId"), AreaType: q.Get("areaType")}
}

// View handles GET /api/inventory/{propertyId}/{view}. The catalog shares this
// path shape, so GET /api/inventory/catalog/{id} is dispatched from here too.
func (h *InventoryHandler) View(w http.ResponseWriter, r *http.Request) {
	first, second := r.PathValue("propertyId"), r.PathValue("view")
	switch {
	case first == "catalog":
		h.Catalog.get(w, r, second)
	case second == "items":
		h.Items(w, r)
	case second == "groups":
		h.Groups(w, r)
	default:
		jsonError(w, http.StatusNotFound, "not found")
	}
}

// Collection handles GET /api/inventory/{propertyId}?areaType= with the stored,
// unenriched items.
func (h *InventoryHandler) Collection(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.AreaItems(r.Context(), r.PathValue("propertyId"), r.URL.Query().Get("areaType"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Items handles GET /api/inventory/{propertyId}/items.
func (h *InventoryHandler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.EnrichedItems(r.Context(), r.PathValue("propertyId"), itemFilter(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Groups handles GET /api/inventory/{propertyId}/groups?by=category|room.
func (h *InventoryHandler) Groups(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by != "" && by != "category" && by != "room" {
		jsonError(w, http.StatusBadRequest, "by must be category or room")
		return
	}

	items, err := h.Inventory.EnrichedItems(r.Context(), r.PathValue("propertyId"), itemFilter(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if by == "room" {
		jsonResponse(w, http.StatusOK, inventory.GroupByRoom(items))
		return
	}
	jsonResponse(w, http.StatusOK, inventory.GroupByCategory(items, inventory.DefaultCategoryOrder))
}

// GetItem handles GET /api/inventory/{propertyId}/items/{itemId}.
func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Inventory.Item(r.Context(), r.PathValue("propertyId"), r.PathValue("itemId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Children handles GET /api/inventory/{propertyId}/items/{itemId}/children.
func (h *InventoryHandler) Children(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.SubItems(r.Context(), r.PathValue("propertyId"), r.PathValue("itemId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// AddItem handles POST /api/inventory/{propertyId}/items.
func (h *InventoryHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req model.NewInventoryItem
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Inventory.AddItem(r.Context(), r.PathValue("propertyId"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// UpdateItem handles PATCH /api/inventory/{propertyId}/items/{itemId}.
func (h *InventoryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch model.ItemPatch
	if err := decodeStrict(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	item, err := h.Inventory.UpdateItem(r.Context(), r.PathValue("propertyId"), r.PathValue("itemId"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// SetChecked handles PUT /api/inventory/{propertyId}/items/{itemId}/checked.
func (h *InventoryHandler) SetChecked(w http.ResponseWriter, r *http.Request) {
	var req checkedRequest
	if err := decodeStrict(r, &req); err != nil || req.IsChecked == nil {
		jsonError(w, http.StatusBadRequest, "isChecked required")
		return
	}

	item, err := h.Inventory.ToggleChecked(r.Context(), r.PathValue("propertyId"), r.PathValue("itemId"), *req.IsChecked)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/inventory/{propertyId}/items/{itemId}.
func (h *InventoryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	removed, err := h.Inventory.RemoveItem(r.Context(), r.PathValue("propertyId"), r.PathValue("itemId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !removed {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CloneItem handles POST /api/inventory/{propertyId}/items/{itemId}/clone.
// The optional body holds modifications applied to the copy.
func (h *InventoryHandler) CloneItem(w http.ResponseWriter, r *http.Request) {
	var mods model.ItemPatch
	if err := decodeStrict(r, &mods); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	item, err := h.Inventory.CloneItem(r.Context(), r.PathValue("propertyId"), r.PathValue("itemId"), mods)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// AddPhoto handles POST /api/inventory/{propertyId}/items/{itemId}/photos.
func (h *InventoryHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	file, ok := formImage(w, r, "photo")
	if !ok {
		return
	}
	defer file.Close()

	item, err := h.Inventory.AddPhoto(r.Context(), r.PathValue("propertyId"), r.PathValue("itemId"), file)
	if errors.Is(err, inventory.ErrNoMedia) {
		jsonError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// CloneInventory handles POST /api/inventory/{propertyId}/clone.
func (h *InventoryHandler) CloneInventory(w http.ResponseWriter, r *http.Request) {
	var req cloneInventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TargetPropertyID == "" {
		jsonError(w, http.StatusBadRequest, "targetPropertyId required")
		return
	}

	source := r.PathValue("propertyId")
	n, err := h.Inventory.CloneInventory(r.Context(), source, req.TargetPropertyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, cloneInventoryResponse{
		Success:          true,
		ItemsCount:       n,
		SourcePropertyID: source,
		TargetPropertyID: req.TargetPropertyID,
	})
}

// DeleteInventory handles DELETE /api/inventory/{propertyId}.
func (h *InventoryHandler) DeleteInventory(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.DeleteInventory(r.Context(), r.PathValue("propertyId")); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

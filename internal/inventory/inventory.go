// Package inventory manages per-property inventory items: instances of catalog
// templates placed in a property's rooms, with sub-items, cloning and
// inspection state.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/staysync/staysync/internal/metrics"
	"github.com/staysync/staysync/internal/model"
	"github.com/staysync/staysync/internal/validate"
)

// Collection is the document holding every property's inventory, keyed by property id.
const Collection = "propertyInventories"

// Documents is the subset of the document store the manager needs.
type Documents interface {
	Read(ctx context.Context, collection string, v any) error
	Update(ctx context.Context, collection string, v any, fn func() error) error
}

// Catalog is the subset of the catalog service the manager needs.
type Catalog interface {
	Get(ctx context.Context, id string) (model.CatalogItem, error)
	Index(ctx context.Context) (map[string]model.CatalogItem, error)
	FindOrCreate(ctx context.Context, name, category, typ string) (model.CatalogItem, bool, error)
	TrackProperty(ctx context.Context, catalogID, propertyID string) error
	UntrackProperty(ctx context.Context, propertyID string) error
}

// Media stores item photos.
type Media interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	CopyPrefix(ctx context.Context, src, dst string) (int, error)
	DeletePrefix(ctx context.Context, prefix string) error
	URL(key string) string
}

type document map[string]*model.InventoryCollection

// errUnchanged aborts an update that would not modify the document.
var errUnchanged = errors.New("unchanged")

// Filter narrows item listings. Empty fields match everything.
type Filter struct {
	RoomID   string
	AreaType string
}

// Manager implements the inventory operations.
type Manager struct {
	docs     Documents
	catalog  Catalog
	validate *validate.Validator
	media    Media
	now      func() time.Time
}

// NewManager returns a Manager. media may be nil, in which case photo uploads are rejected.
func NewManager(docs Documents, catalog Catalog, v *validate.Validator, media Media) *Manager {
	return &Manager{
		docs:     docs,
		catalog:  catalog,
		validate: v,
		media:    media,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func collectionOf(doc document, propertyID string) (*model.InventoryCollection, error) {
	coll, ok := doc[propertyID]
	if !ok || coll == nil {
		return nil, model.NotFound("property inventory")
	}
	return coll, nil
}

func indexOf(items []model.InventoryItem, id string) int {
	return slices.IndexFunc(items, func(it model.InventoryItem) bool { return it.ID == id })
}

// highestSeq returns the highest sequence issued in coll, counting both the
// recorded high-water mark and the structured ids still present.
func highestSeq(coll *model.InventoryCollection, propertyID string) int {
	highest := coll.LastSeq
	for _, it := range coll.Items {
		if id, ok := model.ParseItemID(it.ID); ok && id.PropertyID == propertyID && id.Seq > highest {
			highest = id.Seq
		}
	}
	return highest
}

// nextSeq issues a new sequence for coll and records it as the high-water mark.
func nextSeq(coll *model.InventoryCollection, propertyID string) int {
	coll.LastSeq = highestSeq(coll, propertyID) + 1
	return coll.LastSeq
}

// Items returns a property's raw items.
func (m *Manager) Items(ctx context.Context, propertyID string, f Filter) ([]model.InventoryItem, error) {
	var doc document
	if err := m.docs.Read(ctx, Collection, &doc); err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}
	coll, err := collectionOf(doc, propertyID)
	if err != nil {
		return nil, err
	}

	items := []model.InventoryItem{}
	for _, it := range coll.Items {
		if f.RoomID != "" && it.RoomID != f.RoomID {
			continue
		}
		if !areaMatches(it.AreaType, f.AreaType) {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// EnrichedItems returns a property's items with name, category, description and
// specifications taken from their catalog templates. Items whose template no
// longer exists are left out and logged. An item without an area type of its own
// is matched against the template's type when filtering by area.
func (m *Manager) EnrichedItems(ctx context.Context, propertyID string, f Filter) ([]model.InventoryItem, error) {
	items, templates, err := m.withTemplates(ctx, propertyID, f)
	if err != nil {
		return nil, err
	}
	for i, tmpl := range templates {
		items[i].Name = tmpl.Name
		items[i].Category = tmpl.Category
		items[i].Description = tmpl.Description
		items[i].Specifications = model.CopySpecifications(tmpl.Specifications)
	}
	return items, nil
}

// AreaItems returns a property's items as stored. Without an area every item is
// returned; with one, items are matched like EnrichedItems does, so items whose
// template no longer exists are left out.
func (m *Manager) AreaItems(ctx context.Context, propertyID, area string) ([]model.InventoryItem, error) {
	if area == "" || strings.EqualFold(area, model.AreaAll) {
		return m.Items(ctx, propertyID, Filter{})
	}
	items, _, err := m.withTemplates(ctx, propertyID, Filter{AreaType: area})
	return items, err
}

// withTemplates returns the items matching f that still have a catalog
// template, together with that template.
func (m *Manager) withTemplates(ctx context.Context, propertyID string, f Filter) ([]model.InventoryItem, []model.CatalogItem, error) {
	items, err := m.Items(ctx, propertyID, Filter{RoomID: f.RoomID})
	if err != nil {
		return nil, nil, err
	}
	index, err := m.catalog.Index(ctx)
	if err != nil {
		return nil, nil, err
	}

	matched := []model.InventoryItem{}
	var templates []model.CatalogItem
	for _, it := range items {
		tmpl, ok := index[it.CatalogItemID]
		if !ok {
			metrics.EnrichmentMisses.Inc()
			slog.Warn("catalog item not found for inventory item",
				"property", propertyID, "item", it.ID, "catalogItemId", it.CatalogItemID)
			continue
		}

		area := it.AreaType
		if area == "" {
			area = tmpl.Type
		}
		if !areaMatches(area, f.AreaType) {
			continue
		}
		matched = append(matched, it)
		templates = append(templates, tmpl)
	}
	return matched, templates, nil
}

// Item returns a single item.
func (m *Manager) Item(ctx context.Context, propertyID, itemID string) (model.InventoryItem, error) {
	items, err := m.Items(ctx, propertyID, Filter{})
	if err != nil {
		return model.InventoryItem{}, err
	}
	i := indexOf(items, itemID)
	if i < 0 {
		return model.InventoryItem{}, model.NotFound("item")
	}
	return items[i], nil
}

// SubItems returns the direct children of an item.
func (m *Manager) SubItems(ctx context.Context, propertyID, parentID string) ([]model.InventoryItem, error) {
	items, err := m.Items(ctx, propertyID, Filter{})
	if err != nil {
		return nil, err
	}
	if indexOf(items, parentID) < 0 {
		return nil, model.NotFound("item")
	}

	children := []model.InventoryItem{}
	for _, it := range items {
		if it.ParentID == parentID {
			children = append(children, it)
		}
	}
	return children, nil
}

// AddItem places a catalog template into a property. Fields missing from in are
// filled from the template; status defaults to ok and quantity to 1. When
// in.CatalogItemID is empty the template is looked up, or created, by name and category.
func (m *Manager) AddItem(ctx context.Context, propertyID string, in model.NewInventoryItem) (model.InventoryItem, error) {
	if strings.TrimSpace(propertyID) == "" {
		return model.InventoryItem{}, model.Invalid("propertyId", "is required")
	}

	tmpl, err := m.template(ctx, in)
	if err != nil {
		return model.InventoryItem{}, err
	}

	item := model.InventoryItem{
		CatalogItemID:  tmpl.ID,
		PropertyID:     propertyID,
		Name:           tmpl.Name,
		Category:       tmpl.Category,
		Type:           tmpl.Type,
		Groups:         model.CopyStrings(tmpl.Groups),
		Description:    tmpl.Description,
		Status:         model.StatusOK,
		Quantity:       1,
		Specifications: model.CopySpecifications(tmpl.Specifications),
		Manufacturer:   tmpl.Manufacturer,
	}
	if tmpl.DefaultValue > 0 {
		v := tmpl.DefaultValue
		item.CurrentValue = &v
	}
	in.ItemPatch.ApplyTo(&item)

	now := m.now()
	item.CreatedAt = now
	item.UpdatedAt = now
	if err := m.validate.Struct(item); err != nil {
		return model.InventoryItem{}, err
	}

	var doc document
	err = m.docs.Update(ctx, Collection, &doc, func() error {
		if doc == nil {
			doc = document{}
		}
		coll, ok := doc[propertyID]
		if !ok || coll == nil {
			coll = &model.InventoryCollection{PropertyID: propertyID}
			doc[propertyID] = coll
		}

		item.ID = model.ItemID{PropertyID: propertyID, Seq: nextSeq(coll, propertyID)}.String()
		coll.Items = append(coll.Items, item)
		return checkHierarchy(coll.Items)
	})
	if err != nil {
		return model.InventoryItem{}, err
	}

	if err := m.catalog.TrackProperty(ctx, tmpl.ID, propertyID); err != nil {
		slog.Warn("tracking property on catalog item failed", "catalogItemId", tmpl.ID, "property", propertyID, "error", err)
	}

	metrics.InventoryOperations.WithLabelValues("add").Inc()
	slog.Info("inventory item added", "property", propertyID, "item", item.ID, "catalogItemId", tmpl.ID)
	return item, nil
}

func (m *Manager) template(ctx context.Context, in model.NewInventoryItem) (model.CatalogItem, error) {
	if in.CatalogItemID != "" {
		return m.catalog.Get(ctx, in.CatalogItemID)
	}
	if in.Name == nil || in.Category == nil {
		return model.CatalogItem{}, model.Invalid("catalogItemId", "is required unless name and category are given")
	}
	typ := ""
	if in.Type != nil {
		typ = *in.Type
	}
	tmpl, _, err := m.catalog.FindOrCreate(ctx, *in.Name, *in.Category, typ)
	return tmpl, err
}

// UpdateItem applies a partial update to an item and refreshes UpdatedAt.
func (m *Manager) UpdateItem(ctx context.Context, propertyID, itemID string, patch model.ItemPatch) (model.InventoryItem, error) {
	item, err := m.mutateItem(ctx, propertyID, itemID, func(it *model.InventoryItem) error {
		patch.ApplyTo(it)
		return nil
	})
	if err != nil {
		return model.InventoryItem{}, err
	}
	metrics.InventoryOperations.WithLabelValues("update").Inc()
	return item, nil
}

// ToggleChecked sets the inspection checkbox of an item.
func (m *Manager) ToggleChecked(ctx context.Context, propertyID, itemID string, checked bool) (model.InventoryItem, error) {
	item, err := m.mutateItem(ctx, propertyID, itemID, func(it *model.InventoryItem) error {
		it.IsChecked = checked
		return nil
	})
	if err != nil {
		return model.InventoryItem{}, err
	}
	metrics.InventoryOperations.WithLabelValues("check").Inc()
	return item, nil
}

// mutateItem runs fn on a copy of the item, validates the result and stores it.
func (m *Manager) mutateItem(ctx context.Context, propertyID, itemID string, fn func(*model.InventoryItem) error) (model.InventoryItem, error) {
	var updated model.InventoryItem
	var doc document
	err := m.docs.Update(ctx, Collection, &doc, func() error {
		coll, err := collectionOf(doc, propertyID)
		if err != nil {
			return err
		}
		i := indexOf(coll.Items, itemID)
		if i < 0 {
			return model.NotFound("item")
		}

		item := coll.Items[i].Clone()
		if err := fn(&item); err != nil {
			return err
		}
		now := m.now()
		if now.Before(item.UpdatedAt) {
			now = item.UpdatedAt
		}
		item.UpdatedAt = now
		if err := m.validate.Struct(item); err != nil {
			return err
		}

		coll.Items[i] = item
		if err := checkHierarchy(coll.Items); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return model.InventoryItem{}, err
	}
	return updated, nil
}

// CloneItem copies an item within its property, applying modifications to the copy.
// Photos stored for the source item are copied into the clone's own folder.
func (m *Manager) CloneItem(ctx context.Context, propertyID, itemID string, mods model.ItemPatch) (model.InventoryItem, error) {
	var clone model.InventoryItem
	var copied []string
	var doc document
	err := m.docs.Update(ctx, Collection, &doc, func() error {
		coll, err := collectionOf(doc, propertyID)
		if err != nil {
			return err
		}
		i := indexOf(coll.Items, itemID)
		if i < 0 {
			return model.NotFound("item")
		}

		clone = coll.Items[i].Clone()
		mods.ApplyTo(&clone)
		clone.ID = model.ItemID{PropertyID: propertyID, Seq: nextSeq(coll, propertyID)}.String()
		clone.PropertyID = propertyID
		now := m.now()
		clone.CreatedAt = now
		clone.UpdatedAt = now
		if err := m.validate.Struct(clone); err != nil {
			return err
		}
		coll.Items = append(coll.Items, clone)
		if err := checkHierarchy(coll.Items); err != nil {
			return err
		}

		photos, owned, err := m.copyPhotos(ctx, clone.Photos, photoPrefix(propertyID, itemID), photoPrefix(propertyID, clone.ID))
		if owned {
			copied = append(copied, photoPrefix(propertyID, clone.ID))
		}
		if err != nil {
			return err
		}
		clone.Photos = photos
		coll.Items[len(coll.Items)-1] = clone
		return nil
	})
	if err != nil {
		for _, prefix := range copied {
			m.deletePhotos(ctx, prefix)
		}
		return model.InventoryItem{}, err
	}

	metrics.InventoryOperations.WithLabelValues("clone_item").Inc()
	slog.Info("inventory item cloned", "property", propertyID, "source", itemID, "item", clone.ID)
	return clone, nil
}

// RemoveItem deletes an item and all of its sub-items. It reports whether
// anything was removed; removing a missing item is not an error.
func (m *Manager) RemoveItem(ctx context.Context, propertyID, itemID string) (bool, error) {
	var removed []string
	var doc document
	err := m.docs.Update(ctx, Collection, &doc, func() error {
		coll, ok := doc[propertyID]
		if !ok || coll == nil || indexOf(coll.Items, itemID) < 0 {
			return errUnchanged
		}

		coll.LastSeq = highestSeq(coll, propertyID)
		drop := descendants(coll.Items, itemID)
		drop[itemID] = true
		coll.Items = slices.DeleteFunc(coll.Items, func(it model.InventoryItem) bool {
			if drop[it.ID] {
				removed = append(removed, it.ID)
				return true
			}
			return false
		})
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, id := range removed {
		m.deletePhotos(ctx, photoPrefix(propertyID, id))
	}
	metrics.InventoryOperations.WithLabelValues("remove").Inc()
	slog.Info("inventory item removed", "property", propertyID, "item", itemID, "removed", len(removed))
	return true, nil
}

// CloneInventory copies every item of source into target and returns the number
// of items copied. Item ids keep their sequence with the property part replaced;
// a sequence already used in target is renumbered past target's highest.
// Sequences target has issued before, including those of removed items, count
// as used. Parent references are rewritten to the new ids and stored photos are
// copied into each clone's folder. Any source item whose id is not of the form
// "{source}_{n}" rejects the whole clone.
func (m *Manager) CloneInventory(ctx context.Context, sourceID, targetID string) (int, error) {
	if sourceID == "" || targetID == "" {
		return 0, model.Invalid("targetPropertyId", "source and target property ids are required")
	}

	var count int
	var copied []string
	var doc document
	err := m.docs.Update(ctx, Collection, &doc, func() error {
		src, err := collectionOf(doc, sourceID)
		if err != nil {
			return err
		}

		seqs := make([]int, len(src.Items))
		for i, it := range src.Items {
			id, ok := model.ParseItemID(it.ID)
			if !ok || id.PropertyID != sourceID {
				return model.Invalid("id", fmt.Sprintf("item %q does not follow the %s_<n> id format", it.ID, sourceID))
			}
			seqs[i] = id.Seq
		}

		dst, ok := doc[targetID]
		if !ok || dst == nil {
			dst = &model.InventoryCollection{PropertyID: targetID}
		}

		retired := dst.LastSeq
		highest := highestSeq(dst, targetID)
		used := map[int]bool{}
		for _, it := range dst.Items {
			if id, ok := model.ParseItemID(it.ID); ok && id.PropertyID == targetID {
				used[id.Seq] = true
			}
		}

		// Snapshot source before appending in case source and target are the same.
		sourceItems := slices.Clone(src.Items)
		idMap := make(map[string]string, len(sourceItems))
		for i, it := range sourceItems {
			seq := seqs[i]
			if used[seq] || seq <= retired {
				seq = highest + 1
			}
			used[seq] = true
			highest = max(highest, seq)
			idMap[it.ID] = model.ItemID{PropertyID: targetID, Seq: seq}.String()
		}

		now := m.now()
		clones := make([]model.InventoryItem, 0, len(sourceItems))
		for _, it := range sourceItems {
			c := it.Clone()
			c.ID = idMap[it.ID]
			c.PropertyID = targetID
			c.CreatedAt = now
			c.UpdatedAt = now
			if c.ParentID != "" {
				c.ParentID = idMap[c.ParentID]
			}
			clones = append(clones, c)
		}

		dst.Items = append(dst.Items, clones...)
		if err := checkHierarchy(dst.Items); err != nil {
			return err
		}

		for i := range clones {
			from, to := photoPrefix(sourceID, sourceItems[i].ID), photoPrefix(targetID, clones[i].ID)
			photos, owned, err := m.copyPhotos(ctx, clones[i].Photos, from, to)
			if owned {
				copied = append(copied, to)
			}
			if err != nil {
				return err
			}
			clones[i].Photos = photos
		}
		copy(dst.Items[len(dst.Items)-len(clones):], clones)
		dst.LastSeq = highest
		doc[targetID] = dst
		count = len(clones)
		return nil
	})
	if err != nil {
		for _, prefix := range copied {
			m.deletePhotos(ctx, prefix)
		}
		return 0, err
	}

	for _, tmpl := range m.templatesOf(ctx, targetID) {
		if err := m.catalog.TrackProperty(ctx, tmpl, targetID); err != nil {
			slog.Warn("tracking property on catalog item failed", "catalogItemId", tmpl, "property", targetID, "error", err)
		}
	}

	metrics.InventoryOperations.WithLabelValues("clone_inventory").Inc()
	slog.Info("inventory cloned", "source", sourceID, "target", targetID, "items", count)
	return count, nil
}

// templatesOf lists the distinct catalog ids used by a property.
func (m *Manager) templatesOf(ctx context.Context, propertyID string) []string {
	items, err := m.Items(ctx, propertyID, Filter{})
	if err != nil {
		return nil
	}
	var ids []string
	for _, it := range items {
		if it.CatalogItemID != "" && !slices.Contains(ids, it.CatalogItemID) {
			ids = append(ids, it.CatalogItemID)
		}
	}
	return ids
}

// DeleteInventory removes a property's whole inventory. Deleting a missing inventory succeeds.
func (m *Manager) DeleteInventory(ctx context.Context, propertyID string) error {
	var doc document
	err := m.docs.Update(ctx, Collection, &doc, func() error {
		if _, ok := doc[propertyID]; !ok {
			return errUnchanged
		}
		delete(doc, propertyID)
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return err
	}

	if err := m.catalog.UntrackProperty(ctx, propertyID); err != nil {
		slog.Warn("untracking property from catalog failed", "property", propertyID, "error", err)
	}
	m.deletePhotos(ctx, propertyID+"/inventory/")

	if err == nil {
		metrics.InventoryOperations.WithLabelValues("delete_inventory").Inc()
		slog.Info("inventory deleted", "property", propertyID)
	}
	return nil
}

// descendants returns the ids of every item below rootID.
func descendants(items []model.InventoryItem, rootID string) map[string]bool {
	children := map[string][]string{}
	for _, it := range items {
		if it.ParentID != "" {
			children[it.ParentID] = append(children[it.ParentID], it.ID)
		}
	}

	found := map[string]bool{}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if !found[child] && child != rootID {
				found[child] = true
				queue = append(queue, child)
			}
		}
	}
	return found
}

// checkHierarchy verifies that ids are unique and that every parentId names
// another item of the same collection without forming a cycle.
func checkHierarchy(items []model.InventoryItem) error {
	parent := make(map[string]string, len(items))
	for _, it := range items {
		if _, dup := parent[it.ID]; dup {
			return model.Invalid("id", fmt.Sprintf("duplicate item id %q", it.ID))
		}
		parent[it.ID] = it.ParentID
	}

	for _, it := range items {
		if it.ParentID == "" {
			continue
		}
		if it.ParentID == it.ID {
			return model.Invalid("parentId", fmt.Sprintf("item %q cannot be its own parent", it.ID))
		}
		if _, ok := parent[it.ParentID]; !ok {
			return model.Invalid("parentId", fmt.Sprintf("parent %q of item %q does not exist in this property", it.ParentID, it.ID))
		}

		seen := map[string]bool{it.ID: true}
		for p := it.ParentID; p != ""; p = parent[p] {
			if seen[p] {
				return model.Invalid("parentId", fmt.Sprintf("item %q is part of a parent cycle", it.ID))
			}
			seen[p] = true
		}
	}
	return nil
}

func areaMatches(area, want string) bool {
	if want == "" || strings.EqualFold(want, model.AreaAll) {
		return true
	}
	return strings.EqualFold(area, want)
}

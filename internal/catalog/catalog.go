// Package catalog manages the global catalog of reusable item templates.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/staysync/staysync/internal/model"
	"github.com/staysync/staysync/internal/validate"
)

// Collection is the document holding the catalog.
const Collection = "catalog"

// Documents is the subset of the document store the catalog needs.
type Documents interface {
	Read(ctx context.Context, collection string, v any) error
	Update(ctx context.Context, collection string, v any, fn func() error) error
}

type document struct {
	Items []model.CatalogItem `json:"items"`
}

func (d *document) find(id string) int {
	return slices.IndexFunc(d.Items, func(it model.CatalogItem) bool { return it.ID == id })
}

// errUnchanged aborts an update that would not modify the document.
var errUnchanged = errors.New("unchanged")

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Category   string
	AreaType   string
	SearchTerm string
}

func (f Filter) match(it model.CatalogItem) bool {
	if f.Category != "" && it.Category != f.Category {
		return false
	}
	if f.AreaType != "" && !strings.EqualFold(f.AreaType, model.AreaAll) && !strings.EqualFold(it.Type, f.AreaType) {
		return false
	}
	if f.SearchTerm != "" && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(f.SearchTerm)) {
		return false
	}
	return true
}

// Service implements catalog CRUD on top of the document store.
type Service struct {
	docs     Documents
	validate *validate.Validator
	now      func() time.Time
}

// NewService returns a catalog service.
func NewService(docs Documents, v *validate.Validator) *Service {
	return &Service{
		docs:     docs,
		validate: v,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns the catalog items matching f, in stored order.
func (s *Service) List(ctx context.Context, f Filter) ([]model.CatalogItem, error) {
	var doc document
	if err := s.docs.Read(ctx, Collection, &doc); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	items := []model.CatalogItem{}
	for _, it := range doc.Items {
		if f.match(it) {
			items = append(items, it)
		}
	}
	return items, nil
}

// Get returns a catalog item by id.
func (s *Service) Get(ctx context.Context, id string) (model.CatalogItem, error) {
	var doc document
	if err := s.docs.Read(ctx, Collection, &doc); err != nil {
		return model.CatalogItem{}, fmt.Errorf("reading catalog: %w", err)
	}
	i := doc.find(id)
	if i < 0 {
		return model.CatalogItem{}, model.NotFound("catalog item")
	}
	return doc.Items[i], nil
}

// Index returns every catalog item keyed by id.
func (s *Service) Index(ctx context.Context) (map[string]model.CatalogItem, error) {
	var doc document
	if err := s.docs.Read(ctx, Collection, &doc); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	index := make(map[string]model.CatalogItem, len(doc.Items))
	for _, it := range doc.Items {
		index[it.ID] = it
	}
	return index, nil
}

// Create stores a new catalog item. An id is generated from the category when none is given.
// Any propertyIds in item are ignored.
func (s *Service) Create(ctx context.Context, item model.CatalogItem) (model.CatalogItem, error) {
	// Property references are only maintained through TrackProperty.
	item.PropertyIDs = nil
	normalize(&item)
	if err := s.validate.Struct(item); err != nil {
		return model.CatalogItem{}, err
	}
	if item.ID != "" {
		if err := s.validate.ID("catalog", item.ID); err != nil {
			return model.CatalogItem{}, err
		}
	}

	var doc document
	err := s.docs.Update(ctx, Collection, &doc, func() error {
		if item.ID == "" {
			item.ID = newID(item.Category, func(id string) bool { return doc.find(id) >= 0 })
		} else if doc.find(item.ID) >= 0 {
			return model.Invalid("id", fmt.Sprintf("catalog item %q already exists", item.ID))
		}

		now := s.now()
		item.CreatedAt = now
		item.UpdatedAt = now
		doc.Items = append(doc.Items, item)
		return nil
	})
	if err != nil {
		return model.CatalogItem{}, err
	}

	slog.Info("catalog item created", "id", item.ID, "category", item.Category)
	return item, nil
}

// Update applies a partial update and refreshes UpdatedAt.
func (s *Service) Update(ctx context.Context, id string, patch model.CatalogPatch) (model.CatalogItem, error) {
	var updated model.CatalogItem
	var doc document
	err := s.docs.Update(ctx, Collection, &doc, func() error {
		i := doc.find(id)
		if i < 0 {
			return model.NotFound("catalog item")
		}

		item := doc.Items[i]
		patch.ApplyTo(&item)
		normalize(&item)
		if err := s.validate.Struct(item); err != nil {
			return err
		}
		item.UpdatedAt = s.now()

		doc.Items[i] = item
		updated = item
		return nil
	})
	if err != nil {
		return model.CatalogItem{}, err
	}
	return updated, nil
}

// Delete removes a catalog item. Inventory items referencing it keep their own copies.
func (s *Service) Delete(ctx context.Context, id string) error {
	var doc document
	err := s.docs.Update(ctx, Collection, &doc, func() error {
		i := doc.find(id)
		if i < 0 {
			return model.NotFound("catalog item")
		}
		doc.Items = slices.Delete(doc.Items, i, i+1)
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("catalog item deleted", "id", id)
	return nil
}

// FindOrCreate returns the template with the given name and category, creating it when missing.
// Names are compared case-insensitively.
func (s *Service) FindOrCreate(ctx context.Context, name, category, typ string) (model.CatalogItem, bool, error) {
	item := model.CatalogItem{Name: strings.TrimSpace(name), Category: category, Type: typ}
	normalize(&item)
	if err := s.validate.Struct(item); err != nil {
		return model.CatalogItem{}, false, err
	}

	created := false
	var doc document
	err := s.docs.Update(ctx, Collection, &doc, func() error {
		for _, it := range doc.Items {
			if it.Category == category && strings.EqualFold(it.Name, item.Name) {
				item = it
				return errUnchanged
			}
		}

		item.ID = newID(category, func(id string) bool { return doc.find(id) >= 0 })
		now := s.now()
		item.CreatedAt = now
		item.UpdatedAt = now
		doc.Items = append(doc.Items, item)
		created = true
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return model.CatalogItem{}, false, err
	}

	if created {
		slog.Info("catalog item created from inventory", "id", item.ID, "name", item.Name)
	}
	return item, created, nil
}

// TrackProperty records that propertyID uses the template. Missing templates are ignored.
func (s *Service) TrackProperty(ctx context.Context, catalogID, propertyID string) error {
	var doc document
	err := s.docs.Update(ctx, Collection, &doc, func() error {
		i := doc.find(catalogID)
		if i < 0 || slices.Contains(doc.Items[i].PropertyIDs, propertyID) {
			return errUnchanged
		}
		doc.Items[i].PropertyIDs = append(doc.Items[i].PropertyIDs, propertyID)
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return err
	}
	return nil
}

// UntrackProperty removes propertyID from every template.
func (s *Service) UntrackProperty(ctx context.Context, propertyID string) error {
	var doc document
	err := s.docs.Update(ctx, Collection, &doc, func() error {
		changed := false
		for i := range doc.Items {
			ids := doc.Items[i].PropertyIDs
			if j := slices.Index(ids, propertyID); j >= 0 {
				doc.Items[i].PropertyIDs = slices.Delete(ids, j, j+1)
				changed = true
			}
		}
		if !changed {
			return errUnchanged
		}
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return err
	}
	return nil
}

func normalize(item *model.CatalogItem) {
	if item.Groups == nil {
		item.Groups = []string{}
	}
	item.Specifications = model.CopySpecifications(item.Specifications)
	if item.PropertyIDs == nil {
		item.PropertyIDs = []string{}
	}
	for i := range item.Specifications {
		if item.Specifications[i].ID == "" {
			item.Specifications[i].ID = "spec-" + uuid.NewString()[:8]
		}
	}
}

// newID builds "{category-slug}-{random}" until taken reports it free.
func newID(category string, taken func(string) bool) string {
	prefix := Slug(category)
	if prefix == "" {
		prefix = "item"
	}
	for {
		id := prefix + "-" + uuid.NewString()[:8]
		if !taken(id) {
			return id
		}
	}
}

// Slug lowercases s and replaces runs of non-alphanumeric characters with a single dash.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

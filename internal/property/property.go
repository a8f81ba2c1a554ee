// Package property manages property records and their image galleries.
package property

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/staysync/staysync/internal/imaging"
	"github.com/staysync/staysync/internal/model"
	"github.com/staysync/staysync/internal/validate"
)

// Collection is the document holding every property.
const Collection = "properties"

// Documents is the subset of the document store the service needs.
type Documents interface {
	Read(ctx context.Context, collection string, v any) error
	Update(ctx context.Context, collection string, v any, fn func() error) error
}

// Inventory is the subset of the inventory manager the service needs.
type Inventory interface {
	CloneInventory(ctx context.Context, sourceID, targetID string) (int, error)
	DeleteInventory(ctx context.Context, propertyID string) error
}

// Media stores gallery images.
type Media interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	CopyPrefix(ctx context.Context, src, dst string) (int, error)
	DeletePrefix(ctx context.Context, prefix string) error
	URL(key string) string
}

type document struct {
	Properties []model.Property `json:"properties"`
}

func (d *document) find(id string) int {
	return slices.IndexFunc(d.Properties, func(p model.Property) bool { return p.ID == id })
}

// Service implements property operations.
type Service struct {
	docs      Documents
	inventory Inventory
	media     Media
	validate  *validate.Validator
	now       func() time.Time
}

// NewService returns a property service. media may be nil, in which case
// uploads are rejected and deletes leave files alone.
func NewService(docs Documents, inv Inventory, v *validate.Validator, media Media) *Service {
	return &Service{
		docs:      docs,
		inventory: inv,
		media:     media,
		validate:  v,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ErrNoMedia is returned by image operations when no media storage is configured.
var ErrNoMedia = errors.New("image storage not configured")

func galleryPrefix(id string) string {
	return id + "/gallery/"
}

// List returns every property in stored order.
func (s *Service) List(ctx context.Context) ([]model.Property, error) {
	var doc document
	if err := s.docs.Read(ctx, Collection, &doc); err != nil {
		return nil, fmt.Errorf("reading properties: %w", err)
	}
	if doc.Properties == nil {
		return []model.Property{}, nil
	}
	return doc.Properties, nil
}

// Get returns a single property.
func (s *Service) Get(ctx context.Context, id string) (model.Property, error) {
	props, err := s.List(ctx)
	if err != nil {
		return model.Property{}, err
	}
	i := slices.IndexFunc(props, func(p model.Property) bool { return p.ID == id })
	if i < 0 {
		return model.Property{}, model.NotFound("property")
	}
	return props[i], nil
}

// Create stores a new property. PropertyID and AddressNumber default to ID
// and must equal it when given.
func (s *Service) Create(ctx context.Context, p model.Property) (model.Property, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.PropertyID == "" {
		p.PropertyID = p.ID
	}
	if p.AddressNumber == "" {
		p.AddressNumber = p.ID
	}
	if err := s.validate.ID("property", p.ID); err != nil {
		return model.Property{}, err
	}
	if p.PropertyID != p.ID || p.AddressNumber != p.ID {
		return model.Property{}, model.Invalid("id", "id, propertyId and addressNumber must be equal")
	}
	if p.Images == nil {
		p.Images = []model.PropertyImage{}
	}
	if err := s.validate.Struct(p); err != nil {
		return model.Property{}, err
	}

	var doc document
	err := s.docs.Update(ctx, Collection, &doc, func() error {
		if doc.find(p.ID) >= 0 {
			return model.Invalid("id", fmt.Sprintf("property %s already exists", p.ID))
		}
		now := s.now()
		p.CreatedAt = now
		p.UpdatedAt = now
		doc.Properties = append(doc.Properties, p)
		return nil
	})
	if err != nil {
		return model.Property{}, err
	}

	slog.Info("property created", "id", p.ID, "name", p.Name)
	return p, nil
}

// Update applies a partial update and refreshes UpdatedAt.
func (s *Service) Update(ctx context.Context, id string, patch model.PropertyPatch) (model.Property, error) {
	return s.mutate(ctx, id, func(p *model.Property) error {
		patch.ApplyTo(p)
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*model.Property) error) (model.Property, error) {
	var updated model.Property
	var doc document
	err := s.docs.Update(ctx, Collection, &doc, func() error {
		i := doc.find(id)
		if i < 0 {
			return model.NotFound("property")
		}
		p := doc.Properties[i]
		p.Images = slices.Clone(p.Images)
		if err := fn(&p); err != nil {
			return err
		}
		if err := s.validate.Struct(p); err != nil {
			return err
		}
		p.UpdatedAt = s.now()
		doc.Properties[i] = p
		updated = p
		return nil
	})
	if err != nil {
		return model.Property{}, err
	}
	return updated, nil
}

// Delete removes a property together with its inventory and stored images.
// Failures removing the inventory or images are logged and do not fail the delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	var doc document
	err := s.docs.Update(ctx, Collection, &doc, func() error {
		i := doc.find(id)
		if i < 0 {
			return model.NotFound("property")
		}
		doc.Properties = slices.Delete(doc.Properties, i, i+1)
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.inventory.DeleteInventory(ctx, id); err != nil {
		slog.Error("deleting inventory of removed property failed", "property", id, "error", err)
	}
	if s.media != nil {
		if err := s.media.DeletePrefix(ctx, id+"/"); err != nil {
			slog.Warn("deleting images of removed property failed", "property", id, "error", err)
		}
	}

	slog.Info("property deleted", "id", id)
	return nil
}

// storeImage processes an upload and stores it in the property's gallery.
func (s *Service) storeImage(ctx context.Context, id string, r io.Reader) (string, string, error) {
	img, err := imaging.Process(r)
	if err != nil {
		return "", "", model.Invalid("image", err.Error())
	}
	name := uuid.NewString()
	key := galleryPrefix(id) + name + ".jpg"
	if err := s.media.Put(ctx, key, img.Data, img.MIME); err != nil {
		return "", "", fmt.Errorf("storing image: %w", err)
	}
	return name, key, nil
}

// SetMainImage stores an upload and makes it the property's main image.
func (s *Service) SetMainImage(ctx context.Context, id string, r io.Reader) (model.Property, error) {
	if s.media == nil {
		return model.Property{}, ErrNoMedia
	}
	if _, err := s.Get(ctx, id); err != nil {
		return model.Property{}, err
	}

	_, key, err := s.storeImage(ctx, id, r)
	if err != nil {
		return model.Property{}, err
	}
	url := s.media.URL(key)
	p, err := s.mutate(ctx, id, func(p *model.Property) error {
		p.MainImage = url
		return nil
	})
	if err != nil {
		return model.Property{}, err
	}

	slog.Info("property main image set", "property", id, "key", key)
	return p, nil
}

// AddImages stores uploads in the gallery and appends them to the property's
// images with the default category. Nothing is recorded if any upload is not an image.
func (s *Service) AddImages(ctx context.Context, id string, uploads []io.Reader) ([]model.PropertyImage, error) {
	if s.media == nil {
		return nil, ErrNoMedia
	}
	if len(uploads) == 0 {
		return nil, model.Invalid("images", "at least one image is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	var keys []string
	cleanup := func() {
		for _, key := range keys {
			if err := s.media.DeletePrefix(ctx, key); err != nil {
				slog.Warn("removing orphaned image failed", "key", key, "error", err)
			}
		}
	}

	added := make([]model.PropertyImage, 0, len(uploads))
	for _, r := range uploads {
		name, key, err := s.storeImage(ctx, id, r)
		if err != nil {
			cleanup()
			return nil, err
		}
		keys = append(keys, key)
		added = append(added, model.PropertyImage{
			ID:       name,
			Path:     s.media.URL(key),
			Category: model.DefaultImageCategory,
		})
	}

	_, err := s.mutate(ctx, id, func(p *model.Property) error {
		for i := range added {
			added[i].Order = len(p.Images) + i + 1
		}
		p.Images = append(p.Images, added...)
		return nil
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	slog.Info("property images added", "property", id, "count", len(added))
	return added, nil
}

// CloneImages copies source's gallery into target and points target's image
// list and main image at the copies. It returns the number of files copied.
func (s *Service) CloneImages(ctx context.Context, sourceID, targetID string) (int, error) {
	if s.media == nil {
		return 0, ErrNoMedia
	}
	if sourceID == "" || targetID == "" {
		return 0, model.Invalid("targetId", "source and target property ids are required")
	}
	if sourceID == targetID {
		return 0, model.Invalid("targetId", "must differ from the source property")
	}
	src, err := s.Get(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	if _, err := s.Get(ctx, targetID); err != nil {
		return 0, err
	}

	n, err := s.media.CopyPrefix(ctx, galleryPrefix(sourceID), galleryPrefix(targetID))
	if err != nil {
		return 0, fmt.Errorf("copying gallery: %w", err)
	}

	oldPrefix := s.media.URL(galleryPrefix(sourceID))
	newPrefix := s.media.URL(galleryPrefix(targetID))
	rewrite := func(path string) string {
		if rest, ok := strings.CutPrefix(path, oldPrefix); ok {
			return newPrefix + rest
		}
		return path
	}

	_, err = s.mutate(ctx, targetID, func(p *model.Property) error {
		if len(src.Images) > 0 {
			images := make([]model.PropertyImage, len(src.Images))
			for i, img := range src.Images {
				img.Path = rewrite(img.Path)
				images[i] = img
			}
			p.Images = images
		}
		if src.MainImage != "" {
			p.MainImage = rewrite(src.MainImage)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("property images cloned", "source", sourceID, "target", targetID, "files", n)
	return n, nil
}

// CloneResult reports what CloneProperty copied.
type CloneResult struct {
	ItemsCount  int `json:"itemsCount"`
	ImagesCount int `json:"imagesCount"`
}

// CloneProperty copies source's inventory and gallery into an existing target property.
// A source without an inventory copies no items.
func (s *Service) CloneProperty(ctx context.Context, sourceID, targetID string) (CloneResult, error) {
	if sourceID == targetID {
		return CloneResult{}, model.Invalid("targetId", "must differ from the source property")
	}
	if _, err := s.Get(ctx, sourceID); err != nil {
		return CloneResult{}, err
	}
	if _, err := s.Get(ctx, targetID); err != nil {
		return CloneResult{}, err
	}

	var res CloneResult
	n, err := s.inventory.CloneInventory(ctx, sourceID, targetID)
	switch {
	case errors.Is(err, model.ErrNotFound):
	case err != nil:
		return CloneResult{}, err
	default:
		res.ItemsCount = n
	}

	if s.media != nil {
		res.ImagesCount, err = s.CloneImages(ctx, sourceID, targetID)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

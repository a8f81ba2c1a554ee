package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/staysync/staysync/internal/imaging"
	"github.com/staysync/staysync/internal/model"
)

// ErrNoMedia is returned by AddPhoto when no media storage is configured.
var ErrNoMedia = errors.New("photo storage not configured")

func photoPrefix(propertyID, itemID string) string {
	return fmt.Sprintf("%s/inventory/%s/", propertyID, itemID)
}

// AddPhoto stores an image for an item and appends its URL to the item's photos.
func (m *Manager) AddPhoto(ctx context.Context, propertyID, itemID string, r io.Reader) (model.InventoryItem, error) {
	if m.media == nil {
		return model.InventoryItem{}, ErrNoMedia
	}
	if _, err := m.Item(ctx, propertyID, itemID); err != nil {
		return model.InventoryItem{}, err
	}

	img, err := imaging.Process(r)
	if err != nil {
		return model.InventoryItem{}, model.Invalid("photo", err.Error())
	}

	key := photoPrefix(propertyID, itemID) + uuid.NewString() + ".jpg"
	if err := m.media.Put(ctx, key, img.Data, img.MIME); err != nil {
		return model.InventoryItem{}, fmt.Errorf("storing photo: %w", err)
	}
	url := m.media.URL(key)

	item, err := m.mutateItem(ctx, propertyID, itemID, func(it *model.InventoryItem) error {
		it.Photos = append(it.Photos, url)
		return nil
	})
	if err != nil {
		// The item went away while the photo was uploading.
		m.deletePhotos(ctx, key)
		return model.InventoryItem{}, err
	}

	slog.Info("inventory photo added", "property", propertyID, "item", itemID, "key", key)
	return item, nil
}

// deletePhotos removes stored photos under prefix. Failures are logged only.
func (m *Manager) deletePhotos(ctx context.Context, prefix string) {
	if m.media == nil {
		return
	}
	if err := m.media.DeletePrefix(ctx, prefix); err != nil {
		slog.Warn("deleting photos failed", "prefix", prefix, "error", err)
	}
}

// copyPhotos copies the files stored under from to to and returns photos with
// the URLs under from rewritten to point at the copies. owned reports whether
// any photo lived under from, in which case files may have been written to to
// even when an error is returned.
func (m *Manager) copyPhotos(ctx context.Context, photos []string, from, to string) (out []string, owned bool, err error) {
	if m.media == nil || len(photos) == 0 {
		return photos, false, nil
	}

	oldURL, newURL := m.media.URL(from), m.media.URL(to)
	out = make([]string, len(photos))
	for i, url := range photos {
		if rest, ok := strings.CutPrefix(url, oldURL); ok {
			out[i] = newURL + rest
			owned = true
			continue
		}
		out[i] = url
	}
	if !owned {
		return out, false, nil
	}

	if _, err := m.media.CopyPrefix(ctx, from, to); err != nil {
		return nil, true, fmt.Errorf("copying photos: %w", err)
	}
	return out, true, nil
}

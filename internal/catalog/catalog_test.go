package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staysync/staysync/internal/docstore"
	"github.com/staysync/staysync/internal/model"
	"github.com/staysync/staysync/internal/validate"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	docs, err := docstore.New(docstore.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	return NewService(docs, validate.New())
}

func sofa() model.CatalogItem {
	return model.CatalogItem{
		ID:           "sofa-001",
		Name:         "Sofa",
		Category:     model.CategoryFurniture,
		Type:         "living",
		DefaultValue: 500,
		Specifications: []model.Specification{
			{ID: "w", Name: "Width", Value: 220.0, Unit: "cm", Type: "number"},
		},
	}
}

func TestCreateAndGet(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sofa())
	require.NoError(t, err)
	assert.Equal(t, "sofa-001", created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))
	assert.NotNil(t, created.Groups)
	assert.NotNil(t, created.PropertyIDs)

	got, err := s.Get(ctx, "sofa-001")
	require.NoError(t, err)
	assert.Equal(t, "Sofa", got.Name)
	assert.Equal(t, 500.0, got.DefaultValue)
	require.Len(t, got.Specifications, 1)
	assert.Equal(t, 220.0, got.Specifications[0].Value)
}

func TestCreateIgnoresPropertyIDs(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	item := sofa()
	item.PropertyIDs = []string{"101", "102"}
	created, err := s.Create(ctx, item)
	require.NoError(t, err)
	assert.Empty(t, created.PropertyIDs)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.PropertyIDs)
	assert.Empty(t, got.PropertyIDs)
}

func TestCreateGeneratesID(t *testing.T) {
	s := newTestService(t)
	item := model.CatalogItem{
		Name:           "Duvet",
		Category:       model.CategoryBedLinen,
		Specifications: []model.Specification{{Name: "Size", Value: "King"}},
	}

	created, err := s.Create(context.Background(), item)
	require.NoError(t, err)
	assert.Regexp(t, `^bed-linen-[0-9a-f]{8}$`, created.ID)
	assert.NotEmpty(t, created.Specifications[0].ID, "specification ids are filled in")
	assert.Empty(t, item.Specifications[0].ID, "caller's slice is not modified")
}

func TestCreateValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, model.CatalogItem{Category: model.CategoryFurniture})
	assert.ErrorIs(t, err, model.ErrValidation, "name is required")

	_, err = s.Create(ctx, model.CatalogItem{Name: "Lamp"})
	assert.ErrorIs(t, err, model.ErrValidation, "category is required")

	_, err = s.Create(ctx, model.CatalogItem{Name: "Lamp", Category: "Toys"})
	assert.ErrorIs(t, err, model.ErrValidation, "category must be known")

	_, err = s.Create(ctx, sofa())
	require.NoError(t, err)
	_, err = s.Create(ctx, sofa())
	assert.ErrorIs(t, err, model.ErrValidation, "duplicate id")

	items, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, items, 1, "failed creates write nothing")
}

func TestGetMissing(t *testing.T) {
	s := newTestService(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestList(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for _, it := range []model.CatalogItem{
		sofa(),
		{ID: "tv-001", Name: "Smart TV", Category: model.CategoryElectronics, Type: "Living"},
		{ID: "lamp-001", Name: "Bedside Lamp", Category: model.CategoryLighting, Type: "bedroom"},
		{ID: "sofa-bed", Name: "Sofa Bed", Category: model.CategoryFurniture, Type: "bedroom"},
	} {
		_, err := s.Create(ctx, it)
		require.NoError(t, err)
	}

	ids := func(items []model.CatalogItem) []string {
		out := []string{}
		for _, it := range items {
			out = append(out, it.ID)
		}
		return out
	}

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"sofa-001", "tv-001", "lamp-001", "sofa-bed"}, ids(all))

	furniture, err := s.List(ctx, Filter{Category: model.CategoryFurniture})
	require.NoError(t, err)
	assert.Equal(t, []string{"sofa-001", "sofa-bed"}, ids(furniture))

	living, err := s.List(ctx, Filter{AreaType: "living"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sofa-001", "tv-001"}, ids(living))

	allAreas, err := s.List(ctx, Filter{AreaType: "all"})
	require.NoError(t, err)
	assert.Len(t, allAreas, 4)

	search, err := s.List(ctx, Filter{SearchTerm: "SOFA"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sofa-001", "sofa-bed"}, ids(search))

	none, err := s.List(ctx, Filter{Category: model.CategoryKitchen})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestUpdate(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sofa())
	require.NoError(t, err)

	later := created.UpdatedAt.Add(time.Minute)
	s.now = func() time.Time { return later }

	name := "Corner Sofa"
	value := 750.0
	updated, err := s.Update(ctx, "sofa-001", model.CatalogPatch{Name: &name, DefaultValue: &value})
	require.NoError(t, err)
	assert.Equal(t, "Corner Sofa", updated.Name)
	assert.Equal(t, 750.0, updated.DefaultValue)
	assert.Equal(t, model.CategoryFurniture, updated.Category, "unset fields are kept")
	assert.True(t, later.Equal(updated.UpdatedAt))
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	got, err := s.Get(ctx, "sofa-001")
	require.NoError(t, err)
	assert.Equal(t, "Corner Sofa", got.Name)
}

func TestUpdateErrors(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	name := "x"
	_, err := s.Update(ctx, "missing", model.CatalogPatch{Name: &name})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.Create(ctx, sofa())
	require.NoError(t, err)

	bad := "Toys"
	_, err = s.Update(ctx, "sofa-001", model.CatalogPatch{Category: &bad})
	assert.ErrorIs(t, err, model.ErrValidation)

	got, err := s.Get(ctx, "sofa-001")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryFurniture, got.Category, "rejected update is not stored")
}

func TestDelete(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, sofa())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "sofa-001"))
	_, err = s.Get(ctx, "sofa-001")
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "sofa-001"), model.ErrNotFound)
}

func TestFindOrCreate(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, sofa())
	require.NoError(t, err)

	found, created, err := s.FindOrCreate(ctx, "sofa", model.CategoryFurniture, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "sofa-001", found.ID)

	made, created, err := s.FindOrCreate(ctx, "Armchair", model.CategoryFurniture, "living")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Regexp(t, `^furniture-`, made.ID)

	again, created, err := s.FindOrCreate(ctx, "Armchair", model.CategoryFurniture, "living")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, made.ID, again.ID)

	_, _, err = s.FindOrCreate(ctx, "", model.CategoryFurniture, "")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestTrackAndUntrackProperty(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, sofa())
	require.NoError(t, err)

	require.NoError(t, s.TrackProperty(ctx, "sofa-001", "p1"))
	require.NoError(t, s.TrackProperty(ctx, "sofa-001", "p1"))
	require.NoError(t, s.TrackProperty(ctx, "sofa-001", "p2"))
	require.NoError(t, s.TrackProperty(ctx, "missing", "p1"))

	got, err := s.Get(ctx, "sofa-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, got.PropertyIDs)

	require.NoError(t, s.UntrackProperty(ctx, "p1"))
	require.NoError(t, s.UntrackProperty(ctx, "p9"))

	got, err = s.Get(ctx, "sofa-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, got.PropertyIDs)
}

func TestConcurrentCreates(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, model.CatalogItem{Name: "Chair", Category: model.CategoryFurniture})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, items, 10)
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Furniture":     "furniture",
		"Bed Linen":     "bed-linen",
		"Floor-Carpet":  "floor-carpet",
		"  Odd  Name! ": "odd-name",
		"":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), "Slug(%q)", in)
	}
}

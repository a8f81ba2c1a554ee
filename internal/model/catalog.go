package model

import "time"

// Item categories, in the order the inventory UI groups them.
const (
	CategoryFurniture   = "Furniture"
	CategoryElectronics = "Electronics"
	CategoryBedLinen    = "Bed Linen"
	CategoryLighting    = "Lighting"
	CategoryFloorCarpet = "Floor-Carpet"
	CategoryWall        = "Wall"
	CategoryBathroom    = "Bathroom"
	CategoryKitchen     = "Kitchen"
)

// Categories lists every valid category in display order.
var Categories = []string{
	CategoryFurniture,
	CategoryElectronics,
	CategoryBedLinen,
	CategoryLighting,
	CategoryFloorCarpet,
	CategoryWall,
	CategoryBathroom,
	CategoryKitchen,
}

// Specification is one named attribute of an item, e.g. width in cm.
// Value holds a string or a number as decoded from JSON.
type Specification struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required"`
	Value any    `json:"value"`
	Unit  string `json:"unit,omitempty"`
	Type  string `json:"type"`
}

// CatalogItem is a reusable item template shared across properties.
type CatalogItem struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" validate:"required"`
	Category       string          `json:"category" validate:"required,category"`
	Type           string          `json:"type"`
	Groups         []string        `json:"groups"`
	Description    string          `json:"description,omitempty"`
	Specifications []Specification `json:"specifications" validate:"dive"`
	DefaultValue   float64         `json:"defaultValue" validate:"gte=0"`
	Manufacturer   string          `json:"manufacturer,omitempty"`
	PropertyIDs    []string        `json:"propertyIds"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// CatalogPatch is a partial update of a catalog item. Nil fields are left untouched.
type CatalogPatch struct {
	Name           *string          `json:"name"`
	Category       *string          `json:"category"`
	Type           *string          `json:"type"`
	Groups         *[]string        `json:"groups"`
	Description    *string          `json:"description"`
	Specifications *[]Specification `json:"specifications"`
	DefaultValue   *float64         `json:"defaultValue"`
	Manufacturer   *string          `json:"manufacturer"`
}

// ApplyTo copies the set fields onto item.
func (p CatalogPatch) ApplyTo(item *CatalogItem) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Type != nil {
		item.Type = *p.Type
	}
	if p.Groups != nil {
		item.Groups = CopyStrings(*p.Groups)
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Specifications != nil {
		item.Specifications = CopySpecifications(*p.Specifications)
	}
	if p.DefaultValue != nil {
		item.DefaultValue = *p.DefaultValue
	}
	if p.Manufacturer != nil {
		item.Manufacturer = *p.Manufacturer
	}
}

// CopySpecifications returns an independent copy of specs. Never returns nil.
func CopySpecifications(specs []Specification) []Specification {
	out := make([]Specification, len(specs))
	copy(out, specs)
	return out
}

// CopyStrings returns an independent copy of s. Never returns nil.
func CopyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

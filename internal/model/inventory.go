package model

import "time"

// Inventory item statuses. Any status may move to any other.
const (
	StatusOK        = "ok"
	StatusAttention = "attention"
	StatusProblem   = "problem"
)

// Problem severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Area types scope an item to a kind of room. AreaAll is only meaningful as a filter.
const (
	AreaBedroom  = "bedroom"
	AreaBathroom = "bathroom"
	AreaKitchen  = "kitchen"
	AreaLiving   = "living"
	AreaGame     = "game"
	AreaAll      = "all"
)

// InventoryItem is one tracked instance of a catalog item inside a property room.
type InventoryItem struct {
	ID             string          `json:"id"`
	CatalogItemID  string          `json:"catalogItemId"`
	PropertyID     string          `json:"propertyId"`
	RoomID         string          `json:"roomId"`
	AreaType       string          `json:"areaType" validate:"omitempty,areatype"`
	Name           string          `json:"name"`
	Category       string          `json:"category" validate:"omitempty,category"`
	Type           string          `json:"type"`
	Groups         []string        `json:"groups,omitempty"`
	Description    string          `json:"description,omitempty"`
	Status         string          `json:"status" validate:"required,itemstatus"`
	Severity       string          `json:"severity,omitempty" validate:"omitempty,severity"`
	Quantity       int             `json:"quantity" validate:"gte=1"`
	CurrentValue   *float64        `json:"currentValue,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Specifications []Specification `json:"specifications" validate:"dive"`
	Manufacturer   string          `json:"manufacturer,omitempty"`
	IsChecked      bool            `json:"isChecked"`
	ParentID       string          `json:"parentId,omitempty"`
	Photos         []string        `json:"photos,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy of the item.
func (it InventoryItem) Clone() InventoryItem {
	c := it
	if it.Groups != nil {
		c.Groups = CopyStrings(it.Groups)
	}
	if it.Photos != nil {
		c.Photos = CopyStrings(it.Photos)
	}
	c.Specifications = CopySpecifications(it.Specifications)
	if it.CurrentValue != nil {
		v := *it.CurrentValue
		c.CurrentValue = &v
	}
	return c
}

// InventoryCollection holds every inventory item of one property. LastSeq is
// the highest item sequence ever issued, so ids of removed items are not reused.
type InventoryCollection struct {
	PropertyID string          `json:"propertyId"`
	LastSeq    int             `json:"lastSeq,omitempty"`
	Items      []InventoryItem `json:"items"`
}

// ItemPatch is a partial update of an inventory item. Nil fields are left untouched.
type ItemPatch struct {
	RoomID         *string          `json:"roomId"`
	AreaType       *string          `json:"areaType"`
	Name           *string          `json:"name"`
	Category       *string          `json:"category"`
	Type           *string          `json:"type"`
	Groups         *[]string        `json:"groups"`
	Description    *string          `json:"description"`
	Status         *string          `json:"status"`
	Severity       *string          `json:"severity"`
	Quantity       *int             `json:"quantity"`
	CurrentValue   *float64         `json:"currentValue"`
	Notes          *string          `json:"notes"`
	Specifications *[]Specification `json:"specifications"`
	Manufacturer   *string          `json:"manufacturer"`
	IsChecked      *bool            `json:"isChecked"`
	ParentID       *string          `json:"parentId"`
	Photos         *[]string        `json:"photos"`
}

// ApplyTo copies the set fields onto item.
func (p ItemPatch) ApplyTo(item *InventoryItem) {
	if p.RoomID != nil {
		item.RoomID = *p.RoomID
	}
	if p.AreaType != nil {
		item.AreaType = *p.AreaType
	}
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
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.Severity != nil {
		item.Severity = *p.Severity
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.CurrentValue != nil {
		v := *p.CurrentValue
		item.CurrentValue = &v
	}
	if p.Notes != nil {
		item.Notes = *p.Notes
	}
	if p.Specifications != nil {
		item.Specifications = CopySpecifications(*p.Specifications)
	}
	if p.Manufacturer != nil {
		item.Manufacturer = *p.Manufacturer
	}
	if p.IsChecked != nil {
		item.IsChecked = *p.IsChecked
	}
	if p.ParentID != nil {
		item.ParentID = *p.ParentID
	}
	if p.Photos != nil {
		item.Photos = CopyStrings(*p.Photos)
	}
}

// NewInventoryItem is the body of an add-to-property request.
// CatalogItemID may be empty when Name and Category identify a template instead.
type NewInventoryItem struct {
	CatalogItemID string `json:"catalogItemId"`
	ItemPatch
}

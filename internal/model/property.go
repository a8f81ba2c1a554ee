package model

import "time"

// Property is a rental property. ID, PropertyID and AddressNumber are always equal.
type Property struct {
	ID            string          `json:"id"`
	PropertyID    string          `json:"propertyId"`
	AddressNumber string          `json:"addressNumber"`
	Name          string          `json:"name" validate:"required"`
	Type          string          `json:"type"`
	Address       string          `json:"address"`
	AddressStreet string          `json:"addressStreet,omitempty"`
	BedroomCount  int             `json:"bedroomCount" validate:"gte=0"`
	BathroomCount int             `json:"bathroomCount" validate:"gte=0"`
	GateCode      string          `json:"gateCode,omitempty"`
	DoorCode      string          `json:"doorCode,omitempty"`
	WifiPassword  string          `json:"wifiPassword,omitempty"`
	Status        string          `json:"status"`
	MainImage     string          `json:"mainImage,omitempty"`
	Images        []PropertyImage `json:"images"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// PropertyImage is a gallery photo.
type PropertyImage struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Category string `json:"category"`
	Order    int    `json:"order"`
}

// DefaultImageCategory is assigned to gallery uploads.
const DefaultImageCategory = "Uncategorized"

// PropertyPatch is a partial update of a property. Identity fields cannot be changed.
type PropertyPatch struct {
	Name          *string          `json:"name"`
	Type          *string          `json:"type"`
	Address       *string          `json:"address"`
	AddressStreet *string          `json:"addressStreet"`
	BedroomCount  *int             `json:"bedroomCount"`
	BathroomCount *int             `json:"bathroomCount"`
	GateCode      *string          `json:"gateCode"`
	DoorCode      *string          `json:"doorCode"`
	WifiPassword  *string          `json:"wifiPassword"`
	Status        *string          `json:"status"`
	MainImage     *string          `json:"mainImage"`
	Images        *[]PropertyImage `json:"images"`
}

// ApplyTo copies the set fields onto p.
func (pp PropertyPatch) ApplyTo(p *Property) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Type != nil {
		p.Type = *pp.Type
	}
	if pp.Address != nil {
		p.Address = *pp.Address
	}
	if pp.AddressStreet != nil {
		p.AddressStreet = *pp.AddressStreet
	}
	if pp.BedroomCount != nil {
		p.BedroomCount = *pp.BedroomCount
	}
	if pp.BathroomCount != nil {
		p.BathroomCount = *pp.BathroomCount
	}
	if pp.GateCode != nil {
		p.GateCode = *pp.GateCode
	}
	if pp.DoorCode != nil {
		p.DoorCode = *pp.DoorCode
	}
	if pp.WifiPassword != nil {
		p.WifiPassword = *pp.WifiPassword
	}
	if pp.Status != nil {
		p.Status = *pp.Status
	}
	if pp.MainImage != nil {
		p.MainImage = *pp.MainImage
	}
	if pp.Images != nil {
		p.Images = append([]PropertyImage{}, *pp.Images...)
	}
}

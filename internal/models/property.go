package models

import (
	"strings"
	"time"
)

// Property is the root row for the properties table. Every other row produced
// by the pipeline references a Property directly or through it.
// All nullable columns use pointers to distinguish between zero values and NULL.
type Property struct {
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Address      string    `json:"address" validate:"required"`
	City         *string   `json:"city,omitempty"`
	State        *string   `json:"state,omitempty" validate:"omitempty,max=2"`
	ZipCode      *string   `json:"zipCode,omitempty"`
	County       *string   `json:"county,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64  `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	PropertyType *string   `json:"propertyType,omitempty"`
	ID           int64     `json:"id"`
}

// AddressKey is the natural key used to deduplicate properties across
// records and across runs. All components are lowercased and trimmed.
type AddressKey struct {
	Address string
	City    string
	State   string
	ZipCode string
}

// NewAddressKey builds a case-normalized address key from its raw components.
func NewAddressKey(address, city, state, zip string) AddressKey {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return AddressKey{
		Address: norm(address),
		City:    norm(city),
		State:   norm(state),
		ZipCode: norm(zip),
	}
}

// Key returns the case-normalized natural key for this property.
func (p *Property) Key() AddressKey {
	return NewAddressKey(p.Address, deref(p.City), deref(p.State), deref(p.ZipCode))
}

// PropertyDetail holds the physical attributes of a property.
// Exactly one row per property (unique foreign key).
type PropertyDetail struct {
	Bedrooms     *int     `json:"bedrooms,omitempty" validate:"omitempty,gte=0,lte=50"`
	Bathrooms    *float64 `json:"bathrooms,omitempty" validate:"omitempty,gte=0,lte=50"`
	SquareFeet   *int     `json:"squareFeet,omitempty" validate:"omitempty,gte=100,lte=50000"`
	LotSize      *float64 `json:"lotSize,omitempty" validate:"omitempty,gte=0"`
	YearBuilt    *int     `json:"yearBuilt,omitempty" validate:"omitempty,gte=1800,lte=2100"`
	GarageSpaces *int     `json:"garageSpaces,omitempty" validate:"omitempty,gte=0"`
	Basement     *bool    `json:"basement,omitempty"`
	Pool         *bool    `json:"pool,omitempty"`
	Fireplace    *bool    `json:"fireplace,omitempty"`
	PropertyID   int64    `json:"propertyId"`
	ID           int64    `json:"id"`
}

// Empty reports whether no detail column is populated. Empty details are
// omitted from the load rather than written as an all-NULL row.
func (d *PropertyDetail) Empty() bool {
	return d.Bedrooms == nil && d.Bathrooms == nil && d.SquareFeet == nil &&
		d.LotSize == nil && d.YearBuilt == nil && d.GarageSpaces == nil &&
		d.Basement == nil && d.Pool == nil && d.Fireplace == nil
}

// HoaAssociation is an open dimension row, created on demand and
// deduplicated by its natural key (name, optionally + management company).
type HoaAssociation struct {
	Name              string  `json:"name" validate:"required"`
	ManagementCompany *string `json:"managementCompany,omitempty"`
	ContactInfo       *string `json:"contactInfo,omitempty"`
	ID                int64   `json:"id"`
}

// PropertyHoaData is a fact row tying a property to its (possibly unknown)
// HOA with the fee snapshot observed in the input.
type PropertyHoaData struct {
	EffectiveDate     *time.Time `json:"effectiveDate,omitempty"`
	MonthlyFee        *float64   `json:"monthlyFee,omitempty" validate:"omitempty,gt=0"`
	SpecialAssessment *float64   `json:"specialAssessment,omitempty" validate:"omitempty,gte=0"`
	Amenities         *string    `json:"amenities,omitempty"`
	Restrictions      *string    `json:"restrictions,omitempty"`
	HoaName           *string    `json:"hoaName,omitempty"`
	ManagementCompany *string    `json:"managementCompany,omitempty"`
	PropertyID        int64      `json:"propertyId"`
	HoaID             *int64     `json:"hoaId,omitempty"`
	ID                int64      `json:"id"`
}

// PropertyValuation is a dated valuation fact bound to one of the five
// canonical valuation types. Multiple rows per property form a time series.
type PropertyValuation struct {
	Date            time.Time `json:"date"`
	TypeName        string    `json:"typeName" validate:"required"`
	Source          *string   `json:"source,omitempty"`
	Amount          float64   `json:"amount" validate:"gt=0"`
	ConfidenceScore *float64  `json:"confidenceScore,omitempty" validate:"omitempty,gte=0,lte=1"`
	PropertyID      int64     `json:"propertyId"`
	ValuationTypeID int64     `json:"valuationTypeId"`
	ID              int64     `json:"id"`
}

// PropertyRehabEstimate is a rehab cost fact bound to one of the ten
// canonical rehab categories.
type PropertyRehabEstimate struct {
	Date          time.Time `json:"date"`
	CategoryName  string    `json:"categoryName" validate:"required"`
	Priority      Priority  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Notes         *string   `json:"notes,omitempty"`
	EstimatedCost float64   `json:"estimatedCost" validate:"gt=0"`
	TimelineDays  *int      `json:"timelineDays,omitempty" validate:"omitempty,gt=0"`
	PropertyID    int64     `json:"propertyId"`
	CategoryID    int64     `json:"categoryId"`
	ID            int64     `json:"id"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

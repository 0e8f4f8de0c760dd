package models

import "strings"

// PropertyType is the closed set of property categories the price model was trained on
type PropertyType string

const (
	PropertyTypeApartment  PropertyType = "Apartment"
	PropertyTypeHouse      PropertyType = "House"
	PropertyTypeDuplex     PropertyType = "Duplex"
	PropertyTypeOffice     PropertyType = "Office"
	PropertyTypeCommercial PropertyType = "Commercial"
	PropertyTypeLand       PropertyType = "Land"
)

// PropertyTypes lists every supported property type in display order
var PropertyTypes = []PropertyType{
	PropertyTypeApartment,
	PropertyTypeHouse,
	PropertyTypeDuplex,
	PropertyTypeOffice,
	PropertyTypeCommercial,
	PropertyTypeLand,
}

// IsKnown reports whether t is one of PropertyTypes
func (t PropertyType) IsKnown() bool {
	for _, known := range PropertyTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParsePropertyType matches a property type name case-insensitively
func ParsePropertyType(s string) (PropertyType, bool) {
	s = strings.TrimSpace(s)
	for _, known := range PropertyTypes {
		if strings.EqualFold(string(known), s) {
			return known, true
		}
	}
	return PropertyType(s), false
}

// PropertyQuery is the input to a single estimation
type PropertyQuery struct {
	PropertyType  PropertyType `json:"property_type"`
	TotalArea     float64      `json:"total_area"`
	RoomCount     int          `json:"rooms"`
	BathroomCount int          `json:"bathrooms"`
	HasParking    bool         `json:"parking"`
	Latitude      float64      `json:"latitude"`
	Longitude     float64      `json:"longitude"`
}

// PriceTier buckets an estimate into a market segment
type PriceTier string

const (
	PriceTierEntry    PriceTier = "entry"
	PriceTierStandard PriceTier = "standard"
	PriceTierPremium  PriceTier = "premium"
)

const (
	premiumThreshold = 200000
	entryThreshold   = 50000
)

// TierFor classifies a point estimate
func TierFor(point float64) PriceTier {
	switch {
	case point > premiumThreshold:
		return PriceTierPremium
	case point < entryThreshold:
		return PriceTierEntry
	default:
		return PriceTierStandard
	}
}

// PriceEstimate is the result of one estimation. Prices are in U$S.
type PriceEstimate struct {
	Point              float64   `json:"point"`
	PerArea            float64   `json:"per_area"`
	LowerBound         float64   `json:"lower_bound"`
	UpperBound         float64   `json:"upper_bound"`
	Zone               int       `json:"zone"`
	Tier               PriceTier `json:"tier"`
	WithinTrainingArea bool      `json:"within_training_area"`
}

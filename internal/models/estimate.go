package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
)

// GeohashPrecision gives cells of roughly 1.2km x 0.6km
const GeohashPrecision = 6

// EstimateRecord is a persisted estimation, kept for history and statistics
type EstimateRecord struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	PropertyType  string    `gorm:"index;size:32" json:"property_type"`
	TotalArea     float64   `json:"total_area"`
	RoomCount     int       `json:"rooms"`
	BathroomCount int       `json:"bathrooms"`
	HasParking    bool      `json:"parking"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Geohash       string    `gorm:"index;size:12" json:"geohash"`
	Zone          int       `gorm:"index" json:"zone"`
	Point         float64   `json:"point"`
	PerArea       float64   `json:"per_area"`
	LowerBound    float64   `json:"lower_bound"`
	UpperBound    float64   `json:"upper_bound"`
	Tier          string    `gorm:"size:16" json:"tier"`
	Source        string    `gorm:"size:16" json:"source"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (EstimateRecord) TableName() string { return "estimates" }

// NewEstimateRecord builds a history row for a finished estimation
func NewEstimateRecord(query PropertyQuery, estimate PriceEstimate, source string) *EstimateRecord {
	return &EstimateRecord{
		ID:            uuid.NewString(),
		PropertyType:  string(query.PropertyType),
		TotalArea:     query.TotalArea,
		RoomCount:     query.RoomCount,
		BathroomCount: query.BathroomCount,
		HasParking:    query.HasParking,
		Latitude:      query.Latitude,
		Longitude:     query.Longitude,
		Geohash:       geohash.EncodeWithPrecision(query.Latitude, query.Longitude, GeohashPrecision),
		Zone:          estimate.Zone,
		Point:         estimate.Point,
		PerArea:       estimate.PerArea,
		LowerBound:    estimate.LowerBound,
		UpperBound:    estimate.UpperBound,
		Tier:          string(estimate.Tier),
		Source:        source,
		CreatedAt:     time.Now().UTC(),
	}
}

type EstimateStats struct {
	TotalEstimates     int64   `json:"total_estimates"`
	AveragePrice       float64 `json:"average_price"`
	AveragePricePerSqm float64 `json:"average_price_per_sqm"`
	PremiumCount       int64   `json:"premium_count"`
	StandardCount      int64   `json:"standard_count"`
	EntryCount         int64   `json:"entry_count"`
}

type ZoneStats struct {
	Zone           int     `json:"zone"`
	EstimateCount  int64   `json:"estimate_count"`
	AveragePrice   float64 `json:"average_price"`
	AvgPricePerSqm float64 `json:"avg_price_per_sqm"`
}

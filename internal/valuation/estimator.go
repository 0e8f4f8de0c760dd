package valuation

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"tasador/server/internal/models"
)

// Bounds are the accepted input ranges, enforced before the model is touched
type Bounds struct {
	MinArea      float64 `json:"min_area"`
	MaxArea      float64 `json:"max_area"`
	MinRooms     int     `json:"min_rooms"`
	MaxRooms     int     `json:"max_rooms"`
	MinBathrooms int     `json:"min_bathrooms"`
	MaxBathrooms int     `json:"max_bathrooms"`
}

func DefaultBounds() Bounds {
	return Bounds{
		MinArea:      15,
		MaxArea:      600,
		MinRooms:     1,
		MaxRooms:     6,
		MinBathrooms: 1,
		MaxBathrooms: 5,
	}
}

// Validate checks the numeric fields of q. The property type is not checked here:
// an unknown type is scored with every type flag at zero.
func (b Bounds) Validate(q models.PropertyQuery) error {
	if math.IsNaN(q.TotalArea) || q.TotalArea <= 0 {
		return &ValidationError{Field: "total_area", Reason: "must be positive"}
	}
	if q.TotalArea < b.MinArea || q.TotalArea > b.MaxArea {
		return &ValidationError{Field: "total_area", Reason: rangeReason(b.MinArea, b.MaxArea)}
	}
	if q.RoomCount < b.MinRooms || q.RoomCount > b.MaxRooms {
		return &ValidationError{Field: "rooms", Reason: rangeReason(float64(b.MinRooms), float64(b.MaxRooms))}
	}
	if q.BathroomCount < b.MinBathrooms || q.BathroomCount > b.MaxBathrooms {
		return &ValidationError{Field: "bathrooms", Reason: rangeReason(float64(b.MinBathrooms), float64(b.MaxBathrooms))}
	}
	if !isFinite(q.Latitude) || q.Latitude < -90 || q.Latitude > 90 {
		return &ValidationError{Field: "latitude", Reason: "must be between -90 and 90"}
	}
	if !isFinite(q.Longitude) || q.Longitude < -180 || q.Longitude > 180 {
		return &ValidationError{Field: "longitude", Reason: "must be between -180 and 180"}
	}
	return nil
}

func rangeReason(min, max float64) string {
	return fmt.Sprintf("must be between %g and %g", min, max)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AreaChecker reports whether coordinates fall inside the region the model was trained on
type AreaChecker interface {
	Contains(lat, lon float64) bool
}

type Options struct {
	// Bounds left zero means DefaultBounds
	Bounds Bounds
	// ErrorMargin is the relative half-width of the price band. Zero means DefaultErrorMargin, so a zero-width band cannot be configured.
	ErrorMargin  float64
	TrainingArea AreaChecker
}

// Estimator turns property queries into price estimates.
// It holds no mutable state and is safe for concurrent use.
type Estimator struct {
	source ModelSource
	opts   Options
	logger *logrus.Logger
}

func NewEstimator(source ModelSource, opts Options, logger *logrus.Logger) *Estimator {
	if opts.ErrorMargin == 0 {
		opts.ErrorMargin = DefaultErrorMargin
	}
	if opts.Bounds == (Bounds{}) {
		opts.Bounds = DefaultBounds()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Estimator{
		source: source,
		opts:   opts,
		logger: logger,
	}
}

func (e *Estimator) Bounds() Bounds {
	return e.opts.Bounds
}

func (e *Estimator) ErrorMargin() float64 {
	return e.opts.ErrorMargin
}

// Model returns the shared model, or the load error that makes estimation impossible
func (e *Estimator) Model() (Model, error) {
	return e.source()
}

// Estimate validates query, assembles its feature vector and scores it
func (e *Estimator) Estimate(query models.PropertyQuery) (models.PriceEstimate, error) {
	if err := e.opts.Bounds.Validate(query); err != nil {
		return models.PriceEstimate{}, err
	}

	model, err := e.source()
	if err != nil {
		return models.PriceEstimate{}, err
	}

	vector, zone, err := Assemble(query, model)
	if err != nil {
		e.logger.WithError(err).Error("Feature assembly failed")
		return models.PriceEstimate{}, err
	}

	estimate, err := Predict(model, vector, query.TotalArea, e.opts.ErrorMargin)
	if err != nil {
		e.logger.WithError(err).Error("Price prediction failed")
		return models.PriceEstimate{}, err
	}

	estimate.Zone = zone
	estimate.WithinTrainingArea = e.opts.TrainingArea == nil || e.opts.TrainingArea.Contains(query.Latitude, query.Longitude)

	e.logger.WithFields(logrus.Fields{
		"property_type": query.PropertyType,
		"total_area":    query.TotalArea,
		"zone":          zone,
		"point":         estimate.Point,
		"tier":          estimate.Tier,
		"in_area":       estimate.WithinTrainingArea,
	}).Debug("Estimated property value")

	return estimate, nil
}

// Explain returns the feature vector Estimate would score, as ordered column/value pairs
func (e *Estimator) Explain(query models.PropertyQuery) ([]models.FeatureValue, int, error) {
	if err := e.opts.Bounds.Validate(query); err != nil {
		return nil, 0, err
	}

	model, err := e.source()
	if err != nil {
		return nil, 0, err
	}

	vector, zone, err := Assemble(query, model)
	if err != nil {
		return nil, 0, err
	}
	return vector.Pairs(), zone, nil
}

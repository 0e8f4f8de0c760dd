package valuation

import "tasador/server/internal/models"

// DefaultErrorMargin is the model's historical mean absolute percentage error,
// calibrated offline. It sets the width of the band around the point estimate.
const DefaultErrorMargin = 0.2165

// Predict scores a completed vector and derives the per-area value and the band
func Predict(model Model, vector models.FeatureVector, totalArea, margin float64) (models.PriceEstimate, error) {
	if !(totalArea > 0) {
		return models.PriceEstimate{}, violation("total area must be positive, got %v", totalArea)
	}
	if vector.Columns == nil || len(vector.Values) != model.Columns().Len() {
		return models.PriceEstimate{}, violation("feature vector has %d values, model has %d columns",
			len(vector.Values), model.Columns().Len())
	}

	point, err := model.PredictPrice(vector)
	if err != nil {
		return models.PriceEstimate{}, &ContractViolation{Detail: "price model rejected the feature vector", Err: err}
	}

	return models.PriceEstimate{
		Point:      point,
		PerArea:    point / totalArea,
		LowerBound: point * (1 - margin),
		UpperBound: point * (1 + margin),
		Tier:       models.TierFor(point),
	}, nil
}

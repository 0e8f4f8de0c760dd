package artifact

import "fmt"

// Linear is an intercept plus one coefficient per column
type Linear struct {
	Intercept    float64
	Coefficients []float64
}

func (l *Linear) validate(numFeatures int) error {
	if len(l.Coefficients) != numFeatures {
		return fmt.Errorf("linear model has %d coefficients, have %d columns", len(l.Coefficients), numFeatures)
	}
	return nil
}

func (l *Linear) PredictPrice(values []float64) float64 {
	price := l.Intercept
	for i, v := range values {
		price += l.Coefficients[i] * v
	}
	return price
}

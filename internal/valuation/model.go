package valuation

import (
	"tasador/server/internal/artifact"
	"tasador/server/internal/models"
)

// Model is the capability set the assembler and predictor need from a model artifact
type Model interface {
	Columns() *models.ColumnSet
	Schema() artifact.Schema
	PredictPrice(models.FeatureVector) (float64, error)
	PredictZone(lat, lon float64) int
}

// ModelSource hands out the shared model, or the reason it is unavailable
type ModelSource func() (Model, error)

// LoaderSource adapts the process-wide artifact loader
func LoaderSource(loader *artifact.Loader) ModelSource {
	return func() (Model, error) {
		a, err := loader.Get()
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}

func StaticSource(m Model) ModelSource {
	return func() (Model, error) {
		return m, nil
	}
}

package artifact

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tasador/server/internal/models"
)

const (
	KindRandomForest = "random_forest"
	KindLinear       = "linear"
	KindKMeans       = "kmeans"
)

//go:embed bundle.schema.json
var bundleSchemaJSON []byte

var bundleSchema = jsonschema.MustCompileString("bundle.schema.json", string(bundleSchemaJSON))

// PriceModel maps a feature vector, in canonical column order, to a price
type PriceModel interface {
	PredictPrice(values []float64) float64
}

// ZoneModel maps coordinates to a discrete zone id
type ZoneModel interface {
	PredictZone(lat, lon float64) int
	ZoneCount() int
}

type Metadata struct {
	Version   string `json:"version"`
	Algorithm string `json:"algorithm"`
	TrainedAt string `json:"trained_at"`
}

type bundle struct {
	Columns    []string `json:"columns"`
	PriceModel struct {
		Kind         string    `json:"kind"`
		Trees        []Tree    `json:"trees"`
		Intercept    float64   `json:"intercept"`
		Coefficients []float64 `json:"coefficients"`
	} `json:"price_model"`
	ZoneModel struct {
		Kind      string      `json:"kind"`
		Centroids [][]float64 `json:"centroids"`
	} `json:"zone_model"`
	Schema   Schema   `json:"schema"`
	Metadata Metadata `json:"metadata"`
}

// Artifact is the loaded model bundle. It is immutable once built.
type Artifact struct {
	columns  *models.ColumnSet
	price    PriceModel
	zones    ZoneModel
	schema   Schema
	metadata Metadata
}

// New assembles an artifact from already-fitted models
func New(columns []string, price PriceModel, zones ZoneModel, schema Schema, metadata Metadata) (*Artifact, error) {
	if len(columns) == 0 {
		return nil, errors.New("canonical column list is empty")
	}
	if price == nil || zones == nil {
		return nil, errors.New("artifact requires a price model and a zone model")
	}
	seen := make(map[string]bool, len(columns))
	for _, name := range columns {
		if seen[name] {
			return nil, fmt.Errorf("column %q appears more than once", name)
		}
		seen[name] = true
	}
	cs := models.NewColumnSet(columns)
	for _, name := range schema.RequiredColumns() {
		if !cs.Has(name) {
			return nil, fmt.Errorf("required column %q is not among the canonical columns", name)
		}
	}

	return &Artifact{
		columns:  cs,
		price:    price,
		zones:    zones,
		schema:   schema,
		metadata: metadata,
	}, nil
}

// Decode reads, validates and builds an artifact from a JSON bundle
func Decode(r io.Reader) (*Artifact, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("bundle is not valid JSON: %w", err)
	}
	if err := bundleSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("bundle does not match schema: %w", err)
	}

	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}

	numFeatures := len(b.Columns)

	var price PriceModel
	switch b.PriceModel.Kind {
	case KindRandomForest:
		forest := &Forest{Trees: b.PriceModel.Trees}
		if err := forest.validate(numFeatures); err != nil {
			return nil, fmt.Errorf("invalid price model: %w", err)
		}
		price = forest
	case KindLinear:
		linear := &Linear{Intercept: b.PriceModel.Intercept, Coefficients: b.PriceModel.Coefficients}
		if err := linear.validate(numFeatures); err != nil {
			return nil, fmt.Errorf("invalid price model: %w", err)
		}
		price = linear
	default:
		return nil, fmt.Errorf("unsupported price model kind %q", b.PriceModel.Kind)
	}

	zones, err := newKMeans(b.ZoneModel.Centroids)
	if err != nil {
		return nil, fmt.Errorf("invalid zone model: %w", err)
	}

	if b.Metadata.Algorithm == "" {
		b.Metadata.Algorithm = b.PriceModel.Kind
	}

	return New(b.Columns, price, zones, b.Schema.WithDefaults(), b.Metadata)
}

func (a *Artifact) Columns() *models.ColumnSet {
	return a.columns
}

func (a *Artifact) Schema() Schema {
	return a.schema
}

func (a *Artifact) Metadata() Metadata {
	return a.metadata
}

// PredictPrice scores a vector built against this artifact's columns
func (a *Artifact) PredictPrice(v models.FeatureVector) (float64, error) {
	if len(v.Values) != a.columns.Len() {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d", len(v.Values), a.columns.Len())
	}
	return a.price.PredictPrice(v.Values), nil
}

func (a *Artifact) PredictZone(lat, lon float64) int {
	return a.zones.PredictZone(lat, lon)
}

// ZoneCount is the number of zones the zone model can assign
func (a *Artifact) ZoneCount() int {
	return a.zones.ZoneCount()
}

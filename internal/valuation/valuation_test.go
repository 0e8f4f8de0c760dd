package valuation

import (
	"errors"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tasador/server/internal/artifact"
	"tasador/server/internal/models"
)

var exampleColumns = []string{
	"totalArea", "lat", "lon", "rooms", "baths", "parking", "clusterZone",
	"type_Apartment", "type_House", "type_Duplex", "type_Office", "type_Commercial", "type_Land",
	"year_built",
}

var exampleSchema = artifact.Schema{
	AreaColumn:      "totalArea",
	LatitudeColumn:  "lat",
	LongitudeColumn: "lon",
	RoomsColumn:     "rooms",
	BathroomsColumn: "baths",
	ParkingColumn:   "parking",
	ZoneColumn:      "clusterZone",
	TypePrefix:      "type_",
	TypeLabels:      map[string]string{},
}

// MockModel is a mock implementation of the Model interface
type MockModel struct {
	mock.Mock
	columns *models.ColumnSet
	schema  artifact.Schema
}

func newMockModel(columns []string) *MockModel {
	return &MockModel{
		columns: models.NewColumnSet(columns),
		schema:  exampleSchema,
	}
}

func (m *MockModel) Columns() *models.ColumnSet {
	return m.columns
}

func (m *MockModel) Schema() artifact.Schema {
	return m.schema
}

func (m *MockModel) PredictPrice(v models.FeatureVector) (float64, error) {
	args := m.Called(v.Values)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockModel) PredictZone(lat, lon float64) int {
	args := m.Called(lat, lon)
	return args.Int(0)
}

type boxArea struct {
	minLat, maxLat, minLon, maxLon float64
}

func (b boxArea) Contains(lat, lon float64) bool {
	return lat >= b.minLat && lat <= b.maxLat && lon >= b.minLon && lon <= b.maxLon
}

var mdpArea = boxArea{minLat: -38.12, maxLat: -37.90, minLon: -57.68, maxLon: -57.50}

func exampleQuery() models.PropertyQuery {
	return models.PropertyQuery{
		PropertyType:  models.PropertyTypeHouse,
		TotalArea:     60,
		RoomCount:     2,
		BathroomCount: 1,
		HasParking:    false,
		Latitude:      -38.0169,
		Longitude:     -57.5309,
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestAssembleExampleQuery(t *testing.T) {
	model := newMockModel(exampleColumns)
	model.On("PredictZone", -38.0169, -57.5309).Return(4)

	vector, zone, err := Assemble(exampleQuery(), model)
	require.NoError(t, err)

	assert.Equal(t, 4, zone)
	assert.Equal(t, exampleColumns, vector.Columns.Names())
	assert.Equal(t, []float64{
		60, -38.0169, -57.5309, 2, 1, 0, 4,
		0, 1, 0, 0, 0, 0,
		0,
	}, vector.Values)

	model.AssertExpectations(t)
}

func TestAssembleProperties(t *testing.T) {
	model := newMockModel(exampleColumns)
	model.On("PredictZone", mock.Anything, mock.Anything).Return(2)

	typeFlags := exampleSchema.TypeFlagColumns(model.Columns())
	require.Len(t, typeFlags, 6)

	types := append([]models.PropertyType{}, models.PropertyTypes...)
	types = append(types, "Castle", "")

	for _, propertyType := range types {
		for _, parking := range []bool{true, false} {
			query := models.PropertyQuery{
				PropertyType:  propertyType,
				TotalArea:     137.5,
				RoomCount:     3,
				BathroomCount: 2,
				HasParking:    parking,
				Latitude:      -38.0055,
				Longitude:     -57.5427,
			}

			t.Run(string(propertyType), func(t *testing.T) {
				vector, _, err := Assemble(query, model)
				require.NoError(t, err)

				assert.Len(t, vector.Values, len(exampleColumns))
				assert.Equal(t, exampleColumns, vector.Columns.Names())

				parkingValue, _ := vector.Get("parking")
				if parking {
					assert.Equal(t, 1.0, parkingValue)
				} else {
					assert.Equal(t, 0.0, parkingValue)
				}

				yearBuilt, _ := vector.Get("year_built")
				assert.Zero(t, yearBuilt, "unwritten slots stay zero")

				set := 0
				for _, flag := range typeFlags {
					value, _ := vector.Get(flag)
					assert.Contains(t, []float64{0, 1}, value)
					if value == 1 {
						set++
						assert.Equal(t, "type_"+string(propertyType), flag)
					}
				}
				if propertyType.IsKnown() {
					assert.Equal(t, 1, set)
				} else {
					assert.Equal(t, 0, set, "unknown type leaves every flag at zero")
				}
			})
		}
	}
}

func TestAssembleWithTrainingLabels(t *testing.T) {
	model := newMockModel([]string{
		"metros", "lat", "lon", "ambientes", "banos", "cochera", "cluster_ubicacion",
		"tipo_Casas", "tipo_Departamentos", "tipo_Ph",
	})
	model.schema = artifact.DefaultSchema()
	model.On("PredictZone", mock.Anything, mock.Anything).Return(1)

	tests := []struct {
		propertyType models.PropertyType
		flag         string
	}{
		{models.PropertyTypeHouse, "tipo_Casas"},
		{models.PropertyTypeApartment, "tipo_Departamentos"},
		{models.PropertyTypeDuplex, "tipo_Ph"},
		// the training set had no office listings, so there is no column to set
		{models.PropertyTypeOffice, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.propertyType), func(t *testing.T) {
			query := exampleQuery()
			query.PropertyType = tt.propertyType
			query.HasParking = true

			vector, _, err := Assemble(query, model)
			require.NoError(t, err)

			cochera, _ := vector.Get("cochera")
			assert.Equal(t, 1.0, cochera)

			for _, flag := range []string{"tipo_Casas", "tipo_Departamentos", "tipo_Ph"} {
				value, _ := vector.Get(flag)
				if flag == tt.flag {
					assert.Equal(t, 1.0, value, flag)
				} else {
					assert.Equal(t, 0.0, value, flag)
				}
			}
		})
	}
}

func TestAssembleContractViolations(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		detail  string
	}{
		{"empty column list", []string{}, "empty"},
		{"missing numeric slot", []string{"totalArea", "lat", "lon", "rooms", "parking", "clusterZone"}, `"baths"`},
		{"missing zone slot", []string{"totalArea", "lat", "lon", "rooms", "baths", "parking"}, `"clusterZone"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := newMockModel(tt.columns)
			model.On("PredictZone", mock.Anything, mock.Anything).Return(0)

			_, _, err := Assemble(exampleQuery(), model)

			var cv *ContractViolation
			require.True(t, errors.As(err, &cv), "got %v", err)
			assert.Contains(t, cv.Detail, tt.detail)
		})
	}
}

func TestAssembleIsDeterministic(t *testing.T) {
	model := newMockModel(exampleColumns)
	model.On("PredictZone", mock.Anything, mock.Anything).Return(7)

	first, _, err := Assemble(exampleQuery(), model)
	require.NoError(t, err)
	second, _, err := Assemble(exampleQuery(), model)
	require.NoError(t, err)

	assert.Equal(t, first.Values, second.Values)
}

func TestPredict(t *testing.T) {
	model := newMockModel(exampleColumns)
	model.On("PredictPrice", mock.Anything).Return(120000.0, nil)

	vector := models.NewFeatureVector(model.Columns())

	tests := []struct {
		name      string
		totalArea float64
	}{
		{"example area", 60},
		{"minimum area", 15},
		{"fractional area", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			estimate, err := Predict(model, vector, tt.totalArea, DefaultErrorMargin)
			require.NoError(t, err)

			assert.Equal(t, 120000.0, estimate.Point)
			assert.InDelta(t, 120000.0/tt.totalArea, estimate.PerArea, 1e-9)
			assert.InDelta(t, 120000*(1-0.2165), estimate.LowerBound, 1e-9)
			assert.InDelta(t, 120000*(1+0.2165), estimate.UpperBound, 1e-9)
			assert.Less(t, estimate.LowerBound, estimate.Point)
			assert.Less(t, estimate.Point, estimate.UpperBound)
			assert.Equal(t, models.PriceTierStandard, estimate.Tier)
		})
	}
}

func TestPredictRejectsContractViolations(t *testing.T) {
	model := newMockModel(exampleColumns)
	vector := models.NewFeatureVector(model.Columns())

	for _, area := range []float64{0, -10} {
		_, err := Predict(model, vector, area, DefaultErrorMargin)
		var cv *ContractViolation
		assert.True(t, errors.As(err, &cv), "area %v", area)
	}

	short := models.NewFeatureVector(models.NewColumnSet([]string{"totalArea"}))
	_, err := Predict(model, short, 60, DefaultErrorMargin)
	var cv *ContractViolation
	assert.True(t, errors.As(err, &cv))

	// the price model is never reached for a rejected call
	model.AssertNotCalled(t, "PredictPrice", mock.Anything)
}

func TestPredictWrapsModelFailure(t *testing.T) {
	model := newMockModel(exampleColumns)
	cause := errors.New("feature vector has 3 values, model expects 14")
	model.On("PredictPrice", mock.Anything).Return(0.0, cause)

	_, err := Predict(model, models.NewFeatureVector(model.Columns()), 60, DefaultErrorMargin)

	var cv *ContractViolation
	require.True(t, errors.As(err, &cv))
	assert.True(t, errors.Is(err, cause))
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, models.PriceTierPremium, models.TierFor(200001))
	assert.Equal(t, models.PriceTierStandard, models.TierFor(200000))
	assert.Equal(t, models.PriceTierStandard, models.TierFor(50000))
	assert.Equal(t, models.PriceTierEntry, models.TierFor(49999))
}

func TestEstimateExampleQuery(t *testing.T) {
	model := newMockModel(exampleColumns)
	model.On("PredictZone", -38.0169, -57.5309).Return(4)
	model.On("PredictPrice", []float64{
		60, -38.0169, -57.5309, 2, 1, 0, 4,
		0, 1, 0, 0, 0, 0,
		0,
	}).Return(95000.0, nil)

	estimator := NewEstimator(StaticSource(model), Options{TrainingArea: mdpArea}, quietLogger())

	estimate, err := estimator.Estimate(exampleQuery())
	require.NoError(t, err)

	assert.Equal(t, 95000.0, estimate.Point)
	assert.InDelta(t, 95000.0/60, estimate.PerArea, 1e-9)
	assert.InDelta(t, 95000*(1-0.2165), estimate.LowerBound, 1e-9)
	assert.InDelta(t, 95000*(1+0.2165), estimate.UpperBound, 1e-9)
	assert.Equal(t, 4, estimate.Zone)
	assert.Equal(t, models.PriceTierStandard, estimate.Tier)
	assert.True(t, estimate.WithinTrainingArea)

	again, err := estimator.Estimate(exampleQuery())
	require.NoError(t, err)
	assert.Equal(t, estimate, again)

	model.AssertExpectations(t)
}

func TestEstimateOutsideTrainingArea(t *testing.T) {
	model := newMockModel(exampleColumns)
	model.On("PredictZone", mock.Anything, mock.Anything).Return(1)
	model.On("PredictPrice", mock.Anything).Return(310000.0, nil)

	estimator := NewEstimator(StaticSource(model), Options{TrainingArea: mdpArea}, quietLogger())

	query := exampleQuery()
	query.Latitude, query.Longitude = -34.6037, -58.3816

	estimate, err := estimator.Estimate(query)
	require.NoError(t, err)
	assert.False(t, estimate.WithinTrainingArea)
	assert.Equal(t, models.PriceTierPremium, estimate.Tier)
}

func TestEstimateUnknownTypeIsNotAnError(t *testing.T) {
	model := newMockModel(exampleColumns)
	model.On("PredictZone", mock.Anything, mock.Anything).Return(0)
	model.On("PredictPrice", mock.Anything).Return(40000.0, nil)

	estimator := NewEstimator(StaticSource(model), Options{}, quietLogger())

	query := exampleQuery()
	query.PropertyType = "Quinta"

	estimate, err := estimator.Estimate(query)
	require.NoError(t, err)
	assert.Equal(t, models.PriceTierEntry, estimate.Tier)
	assert.True(t, estimate.WithinTrainingArea, "no training area configured")
}

func TestEstimateValidation(t *testing.T) {
	model := newMockModel(exampleColumns)
	estimator := NewEstimator(StaticSource(model), Options{}, quietLogger())

	tests := []struct {
		name   string
		mutate func(q *models.PropertyQuery)
		field  string
	}{
		{"zero area", func(q *models.PropertyQuery) { q.TotalArea = 0 }, "total_area"},
		{"area below minimum", func(q *models.PropertyQuery) { q.TotalArea = 14.9 }, "total_area"},
		{"area above maximum", func(q *models.PropertyQuery) { q.TotalArea = 600.5 }, "total_area"},
		{"no rooms", func(q *models.PropertyQuery) { q.RoomCount = 0 }, "rooms"},
		{"too many rooms", func(q *models.PropertyQuery) { q.RoomCount = 7 }, "rooms"},
		{"too many bathrooms", func(q *models.PropertyQuery) { q.BathroomCount = 6 }, "bathrooms"},
		{"latitude out of range", func(q *models.PropertyQuery) { q.Latitude = -91 }, "latitude"},
		{"longitude out of range", func(q *models.PropertyQuery) { q.Longitude = 181 }, "longitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := exampleQuery()
			tt.mutate(&query)

			_, err := estimator.Estimate(query)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	model.AssertNotCalled(t, "PredictZone", mock.Anything, mock.Anything)
	model.AssertNotCalled(t, "PredictPrice", mock.Anything)
}

func TestEstimateMinimumArea(t *testing.T) {
	model := newMockModel(exampleColumns)
	model.On("PredictZone", mock.Anything, mock.Anything).Return(0)
	model.On("PredictPrice", mock.Anything).Return(30000.0, nil)

	estimator := NewEstimator(StaticSource(model), Options{}, quietLogger())

	query := exampleQuery()
	query.TotalArea = estimator.Bounds().MinArea

	estimate, err := estimator.Estimate(query)
	require.NoError(t, err)
	assert.InDelta(t, 2000.0, estimate.PerArea, 1e-9)
}

func TestEstimateArtifactUnavailable(t *testing.T) {
	loadErr := &artifact.LoadError{Path: "model/missing.json", Err: os.ErrNotExist}
	source := func() (Model, error) { return nil, loadErr }

	estimator := NewEstimator(source, Options{}, quietLogger())

	_, err := estimator.Estimate(exampleQuery())

	var le *artifact.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "model/missing.json", le.Path)
}

func TestEstimateWithLoadedArtifact(t *testing.T) {
	const bundle = `{
		"columns": ["totalArea", "lat", "lon", "rooms", "baths", "parking", "clusterZone", "type_House", "type_Apartment"],
		"price_model": {"kind": "linear", "intercept": 0, "coefficients": [1000, 0, 0, 5000, 5000, 10000, 0, 20000, 0]},
		"zone_model": {"kind": "kmeans", "centroids": [[-38.0, -57.55], [-38.02, -57.53]]},
		"schema": {
			"area": "totalArea", "latitude": "lat", "longitude": "lon", "rooms": "rooms", "bathrooms": "baths",
			"parking": "parking", "zone": "clusterZone", "type_prefix": "type_", "type_labels": {}
		}
	}`
	path := t.TempDir() + "/model.json"
	require.NoError(t, os.WriteFile(path, []byte(bundle), 0644))

	loader := artifact.NewLoader(path, quietLogger())
	estimator := NewEstimator(LoaderSource(loader), Options{TrainingArea: mdpArea}, quietLogger())

	estimate, err := estimator.Estimate(exampleQuery())
	require.NoError(t, err)

	// 60*1000 + 2*5000 + 1*5000 + 0 + 20000
	assert.InDelta(t, 95000.0, estimate.Point, 1e-9)
	assert.Equal(t, 1, estimate.Zone)

	pairs, zone, err := estimator.Explain(exampleQuery())
	require.NoError(t, err)
	assert.Equal(t, 1, zone)
	assert.Equal(t, models.FeatureValue{Column: "clusterZone", Value: 1}, pairs[6])
	assert.Equal(t, models.FeatureValue{Column: "type_House", Value: 1}, pairs[7])
	assert.Equal(t, models.FeatureValue{Column: "type_Apartment", Value: 0}, pairs[8])
}

func TestLoaderSourceReportsLoadError(t *testing.T) {
	loader := artifact.NewLoader(t.TempDir()+"/absent.json", quietLogger())

	model, err := LoaderSource(loader)()
	assert.Nil(t, model)

	var le *artifact.LoadError
	assert.True(t, errors.As(err, &le))
}

func TestNewEstimatorDefaults(t *testing.T) {
	model := newMockModel(exampleColumns)
	e := NewEstimator(StaticSource(model), Options{}, quietLogger())
	assert.Equal(t, DefaultErrorMargin, e.ErrorMargin())

	e = NewEstimator(StaticSource(model), Options{ErrorMargin: 0.1}, quietLogger())
	assert.Equal(t, 0.1, e.ErrorMargin())
}

package valuation

import "tasador/server/internal/models"

// Assemble builds the feature vector the price model expects for query.
// It also returns the zone the model assigned to the query's coordinates.
//
// Every slot not written here stays zero. A property type without a matching
// one-hot column leaves all type flags at zero.
func Assemble(query models.PropertyQuery, model Model) (models.FeatureVector, int, error) {
	columns := model.Columns()
	if columns == nil || columns.Len() == 0 {
		return models.FeatureVector{}, 0, violation("canonical column list is empty")
	}
	schema := model.Schema()

	vector := models.NewFeatureVector(columns)

	parking := 0.0
	if query.HasParking {
		parking = 1
	}

	slots := []struct {
		column string
		value  float64
	}{
		{schema.AreaColumn, query.TotalArea},
		{schema.LatitudeColumn, query.Latitude},
		{schema.LongitudeColumn, query.Longitude},
		{schema.RoomsColumn, float64(query.RoomCount)},
		{schema.BathroomsColumn, float64(query.BathroomCount)},
		{schema.ParkingColumn, parking},
	}
	for _, slot := range slots {
		if !vector.Set(slot.column, slot.value) {
			return models.FeatureVector{}, 0, violation("column %q missing from canonical columns", slot.column)
		}
	}

	zone := model.PredictZone(query.Latitude, query.Longitude)
	if !vector.Set(schema.ZoneColumn, float64(zone)) {
		return models.FeatureVector{}, 0, violation("column %q missing from canonical columns", schema.ZoneColumn)
	}

	vector.Set(schema.TypeColumn(query.PropertyType), 1)

	return vector, zone, nil
}

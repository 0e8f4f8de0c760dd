package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"tasador/server/config"
)

// ZoneAssigner maps coordinates to a model cluster id
type ZoneAssigner interface {
	PredictZone(lat, lon float64) int
}

// ZoneFeature builds a point feature for a reference zone. When assigner is
// not nil the model cluster of the zone center is added as "cluster".
func ZoneFeature(zone config.Zone, assigner ZoneAssigner) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{zone.Lon(), zone.Lat()})
	f.Properties["name"] = zone.Name
	f.Properties["slug"] = zone.Slug
	f.Properties["zoom_level"] = zone.ZoomLevel
	if assigner != nil {
		f.Properties["cluster"] = assigner.PredictZone(zone.Lat(), zone.Lon())
	}
	return f
}

// ZonesFeatureCollection renders the reference zones plus, when area is set,
// the training area as a polygon feature with kind "training_area".
func ZonesFeatureCollection(zones []config.Zone, area *TrainingArea, assigner ZoneAssigner) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, zone := range zones {
		fc.Append(ZoneFeature(zone, assigner))
	}
	if area != nil {
		f := geojson.NewFeature(area.bound.ToPolygon())
		f.Properties["kind"] = "training_area"
		fc.Append(f)
	}
	return fc
}

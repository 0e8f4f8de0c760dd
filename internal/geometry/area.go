package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// TrainingArea is the bounding box covering the listings the model was fitted on
type TrainingArea struct {
	bound orb.Bound
}

func NewTrainingArea(minLat, maxLat, minLon, maxLon float64) *TrainingArea {
	return &TrainingArea{
		bound: orb.Bound{
			Min: orb.Point{minLon, minLat},
			Max: orb.Point{maxLon, maxLat},
		},
	}
}

// Contains reports whether the coordinates fall inside the area, edges included
func (a *TrainingArea) Contains(lat, lon float64) bool {
	return a.bound.Contains(orb.Point{lon, lat})
}

func (a *TrainingArea) Bound() orb.Bound {
	return a.bound
}

// Center is returned as (lat, lon)
func (a *TrainingArea) Center() (float64, float64) {
	c := a.bound.Center()
	return c.Lat(), c.Lon()
}

// Location is anything with a named point, such as a reference zone
type Location interface {
	Lat() float64
	Lon() float64
}

// Nearest returns the index of the location closest to (lat, lon) and its
// great-circle distance in meters. It returns -1 for an empty slice.
func Nearest[L Location](locations []L, lat, lon float64) (int, float64) {
	target := orb.Point{lon, lat}
	best, bestDistance := -1, math.Inf(1)
	for i, loc := range locations {
		d := geo.Distance(target, orb.Point{loc.Lon(), loc.Lat()})
		if d < bestDistance {
			best, bestDistance = i, d
		}
	}
	return best, bestDistance
}

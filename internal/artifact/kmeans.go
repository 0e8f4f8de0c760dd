package artifact

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// KMeans assigns coordinates to the nearest fitted centroid.
// Centroids are stored as [lat, lon], the order the model was fitted with.
type KMeans struct {
	Centroids []orb.Point
}

func newKMeans(centroids [][]float64) (*KMeans, error) {
	if len(centroids) == 0 {
		return nil, errors.New("k-means model has no centroids")
	}
	km := &KMeans{Centroids: make([]orb.Point, len(centroids))}
	for i, c := range centroids {
		if len(c) != 2 {
			return nil, fmt.Errorf("centroid %d has %d dimensions, want 2", i, len(c))
		}
		km.Centroids[i] = orb.Point{c[0], c[1]}
	}
	return km, nil
}

// PredictZone returns the index of the closest centroid; ties go to the lowest index
func (k *KMeans) PredictZone(lat, lon float64) int {
	p := orb.Point{lat, lon}
	best := 0
	bestDist := planar.DistanceSquared(p, k.Centroids[0])
	for i := 1; i < len(k.Centroids); i++ {
		if d := planar.DistanceSquared(p, k.Centroids[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (k *KMeans) ZoneCount() int {
	return len(k.Centroids)
}

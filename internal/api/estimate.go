package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tasador/server/internal/geometry"
	"tasador/server/internal/models"
	"tasador/server/internal/queue"
	"tasador/server/internal/valuation"
)

// EstimateRequest locates the property by coordinates, a reference zone slug or
// a street address, in that order of precedence
type EstimateRequest struct {
	PropertyType string   `json:"property_type" binding:"required"`
	TotalArea    float64  `json:"total_area"`
	Rooms        int      `json:"rooms"`
	Bathrooms    int      `json:"bathrooms"`
	Parking      bool     `json:"parking"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Zone         string   `json:"zone"`
	Address      string   `json:"address"`
}

const (
	LocationSourceCoordinates = "coordinates"
	LocationSourceZone        = "zone"
	LocationSourceAddress     = "address"
)

type Location struct {
	Source               string  `json:"source"`
	Latitude             float64 `json:"latitude"`
	Longitude            float64 `json:"longitude"`
	NearestZone          string  `json:"nearest_zone,omitempty"`
	NearestZoneDistanceM float64 `json:"nearest_zone_distance_m,omitempty"`
}

type EstimateResponse struct {
	models.PriceEstimate
	Query    models.PropertyQuery `json:"query"`
	Location Location             `json:"location"`
}

type ExplainResponse struct {
	Zone     int                   `json:"zone"`
	Features []models.FeatureValue `json:"features"`
	Location Location              `json:"location"`
}

// buildQuery validates the request shape and resolves its location
func (h *Handler) buildQuery(c *gin.Context, req EstimateRequest) (models.PropertyQuery, Location, error) {
	propertyType, ok := models.ParsePropertyType(req.PropertyType)
	if !ok {
		return models.PropertyQuery{}, Location{}, &valuation.ValidationError{
			Field:  "property_type",
			Reason: "must be one of " + joinTypes(models.PropertyTypes),
		}
	}

	location, err := h.resolveLocation(c, req)
	if err != nil {
		return models.PropertyQuery{}, Location{}, err
	}

	query := models.PropertyQuery{
		PropertyType:  propertyType,
		TotalArea:     req.TotalArea,
		RoomCount:     req.Rooms,
		BathroomCount: req.Bathrooms,
		HasParking:    req.Parking,
		Latitude:      location.Latitude,
		Longitude:     location.Longitude,
	}
	return query, location, nil
}

func (h *Handler) resolveLocation(c *gin.Context, req EstimateRequest) (Location, error) {
	var location Location

	switch {
	case req.Latitude != nil || req.Longitude != nil:
		if req.Latitude == nil || req.Longitude == nil {
			return Location{}, &valuation.ValidationError{Field: "location", Reason: "latitude and longitude must be given together"}
		}
		location = Location{Source: LocationSourceCoordinates, Latitude: *req.Latitude, Longitude: *req.Longitude}

	case req.Zone != "":
		zone := h.zones.GetZoneBySlug(req.Zone)
		if zone == nil {
			return Location{}, &LocationError{Reason: "unknown zone " + req.Zone}
		}
		location = Location{Source: LocationSourceZone, Latitude: zone.Lat(), Longitude: zone.Lon()}

	case strings.TrimSpace(req.Address) != "":
		if h.geocoder == nil {
			return Location{}, &LocationError{Reason: "address lookup is disabled"}
		}
		coords, err := h.geocoder.GeocodeAddress(c.Request.Context(), req.Address)
		if err != nil {
			return Location{}, &LocationError{Reason: "could not locate address", Err: err}
		}
		location = Location{Source: LocationSourceAddress, Latitude: coords.Latitude, Longitude: coords.Longitude}

	default:
		return Location{}, &valuation.ValidationError{Field: "location", Reason: "give latitude and longitude, a zone or an address"}
	}

	zones := h.zones.Zones()
	if i, distance := geometry.Nearest(zones, location.Latitude, location.Longitude); i >= 0 {
		location.NearestZone = zones[i].Name
		location.NearestZoneDistanceM = distance
	}
	return location, nil
}

func joinTypes(types []models.PropertyType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func (h *Handler) bindEstimateRequest(c *gin.Context) (models.PropertyQuery, Location, bool) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return models.PropertyQuery{}, Location{}, false
	}

	query, location, err := h.buildQuery(c, req)
	if err != nil {
		h.respondError(c, err)
		return models.PropertyQuery{}, Location{}, false
	}
	return query, location, true
}

func (h *Handler) Estimate(c *gin.Context) {
	query, location, ok := h.bindEstimateRequest(c)
	if !ok {
		return
	}

	estimate, err := h.estimator.Estimate(query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.record(query, estimate)

	c.JSON(http.StatusOK, EstimateResponse{
		PriceEstimate: estimate,
		Query:         query,
		Location:      location,
	})
}

func (h *Handler) Explain(c *gin.Context) {
	query, location, ok := h.bindEstimateRequest(c)
	if !ok {
		return
	}

	features, zone, err := h.estimator.Explain(query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ExplainResponse{Zone: zone, Features: features, Location: location})
}

// record hands the estimate to the history pipeline without blocking the response
func (h *Handler) record(query models.PropertyQuery, estimate models.PriceEstimate) {
	if h.recorder == nil {
		return
	}
	err := h.recorder.Push([]*models.EstimateRecord{models.NewEstimateRecord(query, estimate, "api")})
	switch {
	case err == nil:
	case errors.Is(err, queue.ErrQueueFull):
		h.logger.Warn("Estimate history queue is full, dropping record")
	default:
		h.logger.WithError(err).Warn("Failed to record estimate")
	}
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasador/server/config"
	"tasador/server/internal/geometry"
)

// zoneAssigner returns the loaded model as a zone assigner, or nil when it is unavailable
func (h *Handler) zoneAssigner() geometry.ZoneAssigner {
	model, err := h.estimator.Model()
	if err != nil {
		return nil
	}
	return model
}

// ListZones returns the reference zones and the training area as GeoJSON
func (h *Handler) ListZones(c *gin.Context) {
	c.JSON(http.StatusOK, geometry.ZonesFeatureCollection(h.zones.Zones(), h.area, h.zoneAssigner()))
}

type zoneResponse struct {
	config.Zone
	Cluster            *int `json:"cluster,omitempty"`
	WithinTrainingArea bool `json:"within_training_area"`
}

func (h *Handler) GetZone(c *gin.Context) {
	zone := h.zones.GetZoneBySlug(c.Param("slug"))
	if zone == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Zone not found"})
		return
	}

	resp := zoneResponse{
		Zone:               *zone,
		WithinTrainingArea: h.area == nil || h.area.Contains(zone.Lat(), zone.Lon()),
	}
	if assigner := h.zoneAssigner(); assigner != nil {
		cluster := assigner.PredictZone(zone.Lat(), zone.Lon())
		resp.Cluster = &cluster
	}
	c.JSON(http.StatusOK, resp)
}

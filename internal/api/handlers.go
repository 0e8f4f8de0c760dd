package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tasador/server/config"
	"tasador/server/internal/artifact"
	"tasador/server/internal/database"
	"tasador/server/internal/geocoding"
	"tasador/server/internal/geometry"
	"tasador/server/internal/models"
	"tasador/server/internal/valuation"
)

// Geocoder resolves street addresses to coordinates
type Geocoder interface {
	GeocodeAddress(ctx context.Context, address string) (geocoding.Coordinates, error)
}

// HistoryStore answers estimate history queries
type HistoryStore interface {
	RecentEstimates(limit int, filter database.Filter) ([]models.EstimateRecord, error)
	GetEstimateStats(filter database.Filter) (models.EstimateStats, error)
	GetZoneStats(filter database.Filter) ([]models.ZoneStats, error)
	CountByGeohash(prefixLen int, filter database.Filter) (map[string]int64, error)
}

// Recorder accepts finished estimates for persistence
type Recorder interface {
	Push(records []*models.EstimateRecord) error
}

// Dependencies wires the handler. Geocoder, Store and Recorder are optional.
type Dependencies struct {
	Estimator    *valuation.Estimator
	Zones        *config.ZoneTable
	TrainingArea *geometry.TrainingArea
	Geocoder     Geocoder
	Store        HistoryStore
	Recorder     Recorder
	Logger       *logrus.Logger
}

type Handler struct {
	estimator *valuation.Estimator
	zones     *config.ZoneTable
	area      *geometry.TrainingArea
	geocoder  Geocoder
	store     HistoryStore
	recorder  Recorder
	logger    *logrus.Logger
}

func NewHandler(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Handler{
		estimator: deps.Estimator,
		zones:     deps.Zones,
		area:      deps.TrainingArea,
		geocoder:  deps.Geocoder,
		store:     deps.Store,
		recorder:  deps.Recorder,
		logger:    logger,
	}
}

// LocationError means the request location could not be turned into coordinates
type LocationError struct {
	Reason string
	Err    error
}

func (e *LocationError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *LocationError) Unwrap() error {
	return e.Err
}

// respondError maps estimation errors to status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	var validationErr *valuation.ValidationError
	var locationErr *LocationError
	var loadErr *artifact.LoadError
	var violation *valuation.ContractViolation

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": validationErr.Field})
	case errors.As(err, &locationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &loadErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model artifact unavailable"})
	case errors.As(err, &violation):
		h.logger.WithError(err).Error("Estimation contract violated")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal estimation error"})
	default:
		h.logger.WithError(err).Error("Estimation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Estimation failed"})
	}
	c.Error(err)
}

func (h *Handler) Health(c *gin.Context) {
	status := gin.H{"status": "ok", "model": "loaded"}
	if _, err := h.estimator.Model(); err != nil {
		status["model"] = "unavailable"
	}
	status["history"] = h.store != nil
	status["geocoding"] = h.geocoder != nil
	c.JSON(http.StatusOK, status)
}

// zoneCounter is implemented by models that expose their zone count
type zoneCounter interface {
	ZoneCount() int
}

type metadataProvider interface {
	Metadata() artifact.Metadata
}

func (h *Handler) GetModelInfo(c *gin.Context) {
	model, err := h.estimator.Model()
	if err != nil {
		h.respondError(c, err)
		return
	}

	info := gin.H{
		"columns":      model.Columns().Names(),
		"type_columns": model.Schema().TypeFlagColumns(model.Columns()),
		"schema":       model.Schema(),
		"error_margin": h.estimator.ErrorMargin(),
		"bounds":       h.estimator.Bounds(),
	}
	if m, ok := model.(metadataProvider); ok {
		info["metadata"] = m.Metadata()
	}
	if z, ok := model.(zoneCounter); ok {
		info["zone_count"] = z.ZoneCount()
	}
	c.JSON(http.StatusOK, info)
}

type propertyTypeInfo struct {
	Type    models.PropertyType `json:"type"`
	Label   string              `json:"label"`
	Column  string              `json:"column"`
	InModel bool                `json:"in_model"`
}

func (h *Handler) GetPropertyTypes(c *gin.Context) {
	model, err := h.estimator.Model()
	if err != nil {
		h.respondError(c, err)
		return
	}

	schema := model.Schema()
	types := make([]propertyTypeInfo, 0, len(models.PropertyTypes))
	for _, t := range models.PropertyTypes {
		column := schema.TypeColumn(t)
		types = append(types, propertyTypeInfo{
			Type:    t,
			Label:   schema.TypeLabel(t),
			Column:  column,
			InModel: model.Columns().Has(column),
		})
	}
	c.JSON(http.StatusOK, types)
}

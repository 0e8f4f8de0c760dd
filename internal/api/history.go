package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tasador/server/internal/database"
	"tasador/server/internal/models"
)

const defaultHistoryLimit = 10

type HistoryQuery struct {
	PropertyType string `form:"type"`
	Since        string `form:"since"`
}

// historyFilter parses the shared history query parameters. since accepts
// RFC 3339 timestamps or plain dates.
func historyFilter(c *gin.Context) (database.Filter, bool) {
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return database.Filter{}, false
	}

	filter := database.Filter{PropertyType: q.PropertyType}
	if q.PropertyType != "" {
		if t, ok := models.ParsePropertyType(q.PropertyType); ok {
			filter.PropertyType = string(t)
		}
	}
	if q.Since != "" {
		since, err := time.Parse(time.RFC3339, q.Since)
		if err != nil {
			since, err = time.Parse("2006-01-02", q.Since)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC 3339 timestamp or a YYYY-MM-DD date"})
			return database.Filter{}, false
		}
		filter.Since = since
	}
	return filter, true
}

func (h *Handler) historyEnabled(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Estimate history is disabled"})
		return false
	}
	return true
}

func (h *Handler) GetRecentEstimates(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	filter, ok := historyFilter(c)
	if !ok {
		return
	}

	records, err := h.store.RecentEstimates(limit, filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recent estimates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get recent estimates"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) GetEstimateStats(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}
	filter, ok := historyFilter(c)
	if !ok {
		return
	}

	stats, err := h.store.GetEstimateStats(filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get estimate stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get estimate stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetZoneStats(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}
	filter, ok := historyFilter(c)
	if !ok {
		return
	}

	stats, err := h.store.GetZoneStats(filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get zone stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get zone stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetGeohashCells counts estimates per geohash cell; precision defaults to 5
func (h *Handler) GetGeohashCells(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	precision, err := strconv.Atoi(c.DefaultQuery("precision", "5"))
	if err != nil || precision <= 0 || precision > models.GeohashPrecision {
		c.JSON(http.StatusBadRequest, gin.H{"error": "precision must be between 1 and " + strconv.Itoa(models.GeohashPrecision)})
		return
	}
	filter, ok := historyFilter(c)
	if !ok {
		return
	}

	counts, err := h.store.CountByGeohash(precision, filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count estimates by geohash")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count estimates by geohash"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"tasador/server/internal/models"
)

// ErrInvalidLimit is returned for non-positive history limits
var ErrInvalidLimit = errors.New("limit must be positive")

const MaxRecentLimit = 500

type Database struct {
	db *gorm.DB
}

// Open connects to the sqlite file at dbPath, creating its directory if needed
func Open(dbPath string) (*gorm.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// MigrateSchema creates or updates the estimates table
func MigrateSchema(db *gorm.DB) error {
	return db.AutoMigrate(&models.EstimateRecord{})
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := MigrateSchema(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Database{db: db}, nil
}

// GetDB exposes the gorm handle for the batch processor
func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertEstimates writes a batch of records inside tx. Records with an existing id are replaced.
func UpsertEstimates(tx *gorm.DB, batch []*models.EstimateRecord) error {
	if len(batch) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(batch).Error
}

// Filter narrows history queries. Zero values disable a condition.
type Filter struct {
	PropertyType string
	Since        time.Time
}

func (f Filter) apply(q *gorm.DB) *gorm.DB {
	if f.PropertyType != "" {
		q = q.Where("LOWER(property_type) = LOWER(?)", f.PropertyType)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}
	return q
}

// RecentEstimates returns the newest records first
func (d *Database) RecentEstimates(limit int, filter Filter) ([]models.EstimateRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	var records []models.EstimateRecord
	err := filter.apply(d.db.Model(&models.EstimateRecord{})).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent estimates: %w", err)
	}
	return records, nil
}

// GetEstimateStats aggregates price and tier figures over the filtered history
func (d *Database) GetEstimateStats(filter Filter) (models.EstimateStats, error) {
	var stats models.EstimateStats
	err := filter.apply(d.db.Model(&models.EstimateRecord{})).
		Select(`COUNT(*) AS total_estimates,
			COALESCE(AVG(point), 0) AS average_price,
			COALESCE(AVG(per_area), 0) AS average_price_per_sqm,
			COALESCE(SUM(CASE WHEN tier = ? THEN 1 ELSE 0 END), 0) AS premium_count,
			COALESCE(SUM(CASE WHEN tier = ? THEN 1 ELSE 0 END), 0) AS standard_count,
			COALESCE(SUM(CASE WHEN tier = ? THEN 1 ELSE 0 END), 0) AS entry_count`,
			string(models.PriceTierPremium), string(models.PriceTierStandard), string(models.PriceTierEntry)).
		Scan(&stats).Error
	if err != nil {
		return models.EstimateStats{}, fmt.Errorf("failed to query estimate stats: %w", err)
	}
	return stats, nil
}

// GetZoneStats groups the filtered history by model cluster, busiest zones first
func (d *Database) GetZoneStats(filter Filter) ([]models.ZoneStats, error) {
	var stats []models.ZoneStats
	err := filter.apply(d.db.Model(&models.EstimateRecord{})).
		Select(`zone,
			COUNT(*) AS estimate_count,
			AVG(point) AS average_price,
			AVG(per_area) AS avg_price_per_sqm`).
		Group("zone").
		Order("estimate_count DESC, zone ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query zone stats: %w", err)
	}
	return stats, nil
}

// CountByGeohash counts records per geohash cell prefix of the given length
func (d *Database) CountByGeohash(prefixLen int, filter Filter) (map[string]int64, error) {
	if prefixLen <= 0 || prefixLen > models.GeohashPrecision {
		return nil, fmt.Errorf("geohash prefix length must be between 1 and %d", models.GeohashPrecision)
	}

	var rows []struct {
		Cell  string
		Count int64
	}
	err := filter.apply(d.db.Model(&models.EstimateRecord{})).
		Select("SUBSTR(geohash, 1, ?) AS cell, COUNT(*) AS count", prefixLen).
		Group("cell").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count estimates by geohash: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Cell] = row.Count
	}
	return counts, nil
}

// PruneEstimates deletes records created before the cutoff and returns how many were removed
func (d *Database) PruneEstimates(before time.Time) (int64, error) {
	result := d.db.Where("created_at < ?", before.UTC()).Delete(&models.EstimateRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune estimates: %w", result.Error)
	}
	return result.RowsAffected, nil
}

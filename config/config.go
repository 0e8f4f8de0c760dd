package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"tasador/server/internal/valuation"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Server struct {
		Port           string   `env:"SERVER_PORT" envDefault:"5250"`
		GinMode        string   `env:"GIN_MODE" envDefault:"release"`
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	}

	Artifact struct {
		// Path to the JSON model bundle, optionally gzip-compressed
		Path string `env:"ARTIFACT_PATH" envDefault:"model/tasador_model.json"`

		// Relative half-width of the price band around the point estimate
		ErrorMargin float64 `env:"ARTIFACT_ERROR_MARGIN" envDefault:"0.2165"`
	}

	// Input ranges accepted by the estimator
	Bounds struct {
		MinArea      float64 `env:"MIN_TOTAL_AREA" envDefault:"15"`
		MaxArea      float64 `env:"MAX_TOTAL_AREA" envDefault:"600"`
		MinRooms     int     `env:"MIN_ROOMS" envDefault:"1"`
		MaxRooms     int     `env:"MAX_ROOMS" envDefault:"6"`
		MinBathrooms int     `env:"MIN_BATHROOMS" envDefault:"1"`
		MaxBathrooms int     `env:"MAX_BATHROOMS" envDefault:"5"`
	}

	// Bounding box of the listings the model was trained on
	TrainingArea struct {
		MinLat float64 `env:"TRAINING_AREA_MIN_LAT" envDefault:"-38.12"`
		MaxLat float64 `env:"TRAINING_AREA_MAX_LAT" envDefault:"-37.90"`
		MinLon float64 `env:"TRAINING_AREA_MIN_LON" envDefault:"-57.68"`
		MaxLon float64 `env:"TRAINING_AREA_MAX_LON" envDefault:"-57.50"`
	}

	Zones struct {
		// Optional JSON file replacing the built-in reference zones
		Path string `env:"ZONES_PATH"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"database/tasador.db"`
	}

	History struct {
		// How long estimates are kept; zero keeps them forever
		Retention     time.Duration `env:"HISTORY_RETENTION" envDefault:"2160h"`
		PruneInterval time.Duration `env:"HISTORY_PRUNE_INTERVAL" envDefault:"24h"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Maximum number of record batches waiting in the queue
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"100"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}

	Geocoder struct {
		Enabled     bool          `env:"GEOCODER_ENABLED" envDefault:"true"`
		BaseURL     string        `env:"GEOCODER_BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
		UserAgent   string        `env:"GEOCODER_USER_AGENT" envDefault:"Tasador Property Valuation/1.0"`
		CountryCode string        `env:"GEOCODER_COUNTRY_CODE" envDefault:"ar"`
		Locality    string        `env:"GEOCODER_LOCALITY" envDefault:"Mar del Plata, Buenos Aires"`
		CacheTTL    time.Duration `env:"GEOCODER_CACHE_TTL" envDefault:"24h"`
		Timeout     time.Duration `env:"GEOCODER_TIMEOUT" envDefault:"10s"`
	}
}

// LoadConfig reads an optional .env file and then the environment
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	b := c.Bounds
	if b.MinArea <= 0 {
		return fmt.Errorf("MIN_TOTAL_AREA must be positive, got %v", b.MinArea)
	}
	if b.MinArea > b.MaxArea {
		return fmt.Errorf("MIN_TOTAL_AREA (%v) exceeds MAX_TOTAL_AREA (%v)", b.MinArea, b.MaxArea)
	}
	if b.MinRooms > b.MaxRooms || b.MinBathrooms > b.MaxBathrooms {
		return errors.New("room and bathroom minimums must not exceed their maximums")
	}
	if c.Artifact.ErrorMargin <= 0 || c.Artifact.ErrorMargin >= 1 {
		return fmt.Errorf("ARTIFACT_ERROR_MARGIN must be in (0, 1), got %v", c.Artifact.ErrorMargin)
	}
	ta := c.TrainingArea
	if ta.MinLat >= ta.MaxLat || ta.MinLon >= ta.MaxLon {
		return errors.New("training area bounds are inverted")
	}
	if c.BatchProcessing.QueueSize <= 0 {
		return fmt.Errorf("BATCH_QUEUE_SIZE must be positive, got %d", c.BatchProcessing.QueueSize)
	}
	return nil
}

// EstimatorOptions converts the configured bounds and margin for the estimator
func (c *Config) EstimatorOptions(area valuation.AreaChecker) valuation.Options {
	return valuation.Options{
		Bounds: valuation.Bounds{
			MinArea:      c.Bounds.MinArea,
			MaxArea:      c.Bounds.MaxArea,
			MinRooms:     c.Bounds.MinRooms,
			MaxRooms:     c.Bounds.MaxRooms,
			MinBathrooms: c.Bounds.MinBathrooms,
			MaxBathrooms: c.Bounds.MaxBathrooms,
		},
		ErrorMargin:  c.Artifact.ErrorMargin,
		TrainingArea: area,
	}
}

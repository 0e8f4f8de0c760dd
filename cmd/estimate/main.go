// Command estimate prints a one-off price estimate for a property.
//
//	estimate -type Apartment -area 60 -rooms 2 -baths 1 -zone centro-casino
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"

	"tasador/server/config"
	"tasador/server/internal/artifact"
	"tasador/server/internal/database"
	"tasador/server/internal/geocoding"
	"tasador/server/internal/geometry"
	"tasador/server/internal/models"
	"tasador/server/internal/valuation"
)

type options struct {
	propertyType string
	area         float64
	rooms        int
	baths        int
	parking      bool
	lat          float64
	lon          float64
	hasCoords    bool
	zone         string
	address      string
	artifactPath string
	explain      bool
	asJSON       bool
	record       bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.propertyType, "type", string(models.PropertyTypeApartment), "property type: Apartment, House, Duplex, Office, Commercial or Land")
	fs.Float64Var(&opts.area, "area", 60, "total area in m²")
	fs.IntVar(&opts.rooms, "rooms", 2, "number of rooms")
	fs.IntVar(&opts.baths, "baths", 1, "number of bathrooms")
	fs.BoolVar(&opts.parking, "parking", false, "has parking")
	fs.Float64Var(&opts.lat, "lat", 0, "latitude")
	fs.Float64Var(&opts.lon, "lon", 0, "longitude")
	fs.StringVar(&opts.zone, "zone", "", "reference zone slug, used when -lat/-lon are not given")
	fs.StringVar(&opts.address, "address", "", "street address, used when neither coordinates nor zone are given")
	fs.StringVar(&opts.artifactPath, "artifact", "", "model artifact path, overrides ARTIFACT_PATH")
	fs.BoolVar(&opts.explain, "explain", false, "print the feature vector instead of the estimate")
	fs.BoolVar(&opts.asJSON, "json", false, "print JSON")
	fs.BoolVar(&opts.record, "record", false, "store the estimate in the history database")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	seen := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { seen[f.Name] = true })
	if seen["lat"] != seen["lon"] {
		return options{}, errors.New("-lat and -lon must be given together")
	}
	opts.hasCoords = seen["lat"]
	if !opts.hasCoords && opts.zone == "" && opts.address == "" {
		opts.zone = "centro-casino"
	}
	return opts, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "estimate:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if opts.artifactPath != "" {
		cfg.Artifact.Path = opts.artifactPath
	}

	logger, err := config.NewLogger(cfg.LogLevel, stderr)
	if err != nil {
		return err
	}
	if cfg.LogLevel == "info" {
		logger.SetLevel(logrus.WarnLevel)
	}

	propertyType, ok := models.ParsePropertyType(opts.propertyType)
	if !ok {
		return fmt.Errorf("unknown property type %q", opts.propertyType)
	}

	lat, lon, err := locate(cfg, opts, logger)
	if err != nil {
		return err
	}

	query := models.PropertyQuery{
		PropertyType:  propertyType,
		TotalArea:     opts.area,
		RoomCount:     opts.rooms,
		BathroomCount: opts.baths,
		HasParking:    opts.parking,
		Latitude:      lat,
		Longitude:     lon,
	}

	area := geometry.NewTrainingArea(cfg.TrainingArea.MinLat, cfg.TrainingArea.MaxLat, cfg.TrainingArea.MinLon, cfg.TrainingArea.MaxLon)
	loader := artifact.NewLoader(cfg.Artifact.Path, logger)
	estimator := valuation.NewEstimator(valuation.LoaderSource(loader), cfg.EstimatorOptions(area), logger)

	if opts.explain {
		features, zone, err := estimator.Explain(query)
		if err != nil {
			return err
		}
		if opts.asJSON {
			return json.NewEncoder(stdout).Encode(map[string]interface{}{"zone": zone, "features": features})
		}
		for _, f := range features {
			fmt.Fprintf(stdout, "%-24s %g\n", f.Column, f.Value)
		}
		return nil
	}

	estimate, err := estimator.Estimate(query)
	if err != nil {
		return err
	}

	if opts.record {
		if err := record(cfg, query, estimate); err != nil {
			logger.WithError(err).Warn("Failed to record estimate")
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(estimate)
	}
	printEstimate(stdout, query, estimate)
	return nil
}

func locate(cfg *config.Config, opts options, logger *logrus.Logger) (float64, float64, error) {
	if opts.hasCoords {
		return opts.lat, opts.lon, nil
	}

	if opts.zone != "" {
		zones, err := config.LoadZones(cfg.Zones.Path)
		if err != nil {
			return 0, 0, err
		}
		zone := zones.GetZoneBySlug(opts.zone)
		if zone == nil {
			return 0, 0, fmt.Errorf("unknown zone %q", opts.zone)
		}
		return zone.Lat(), zone.Lon(), nil
	}

	if !cfg.Geocoder.Enabled {
		return 0, 0, errors.New("address lookup is disabled")
	}
	geocoder := geocoding.NewGeocoder(logger, geocoding.Options{
		BaseURL:     cfg.Geocoder.BaseURL,
		UserAgent:   cfg.Geocoder.UserAgent,
		CountryCode: cfg.Geocoder.CountryCode,
		Locality:    cfg.Geocoder.Locality,
		CacheTTL:    cfg.Geocoder.CacheTTL,
		Timeout:     cfg.Geocoder.Timeout,
	})
	defer geocoder.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Geocoder.Timeout+time.Second)
	defer cancel()
	coords, err := geocoder.GeocodeAddress(ctx, opts.address)
	if err != nil {
		return 0, 0, err
	}
	return coords.Latitude, coords.Longitude, nil
}

func record(cfg *config.Config, query models.PropertyQuery, estimate models.PriceEstimate) error {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	batch := []*models.EstimateRecord{models.NewEstimateRecord(query, estimate, "cli")}
	return db.GetDB().Transaction(func(tx *gorm.DB) error {
		return database.UpsertEstimates(tx, batch)
	})
}

func printEstimate(w io.Writer, query models.PropertyQuery, estimate models.PriceEstimate) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "%s, %.0f m², %d rooms, %d baths\n", query.PropertyType, query.TotalArea, query.RoomCount, query.BathroomCount)
	p.Fprintf(w, "Estimated price: U$S %.0f\n", estimate.Point)
	p.Fprintf(w, "Price per m²:    U$S %.0f\n", estimate.PerArea)
	p.Fprintf(w, "Range:           U$S %.0f - U$S %.0f\n", estimate.LowerBound, estimate.UpperBound)
	p.Fprintf(w, "Zone cluster:    %d\n", estimate.Zone)
	p.Fprintf(w, "Segment:         %s\n", estimate.Tier)
	if !estimate.WithinTrainingArea {
		fmt.Fprintln(w, "Warning: location is outside the training area, the estimate is extrapolated")
	}
}

package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/sirupsen/logrus"
)

// ErrNoResults means Nominatim found nothing for the address
var ErrNoResults = errors.New("no results found for address")

// Nominatim's usage policy allows one request per second
const defaultRequestInterval = time.Second

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Options struct {
	BaseURL     string
	UserAgent   string
	CountryCode string
	// Locality is appended to every address, e.g. "Mar del Plata, Buenos Aires"
	Locality string
	CacheTTL time.Duration
	Timeout  time.Duration
}

type Geocoder struct {
	logger *logrus.Logger
	opts   Options
	client *http.Client
	cache  *ttlcache.Cache[string, Coordinates]

	throttle    sync.Mutex
	lastRequest time.Time
	interval    time.Duration
}

func NewGeocoder(logger *logrus.Logger, opts Options) *Geocoder {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")

	cache := ttlcache.New[string, Coordinates](
		ttlcache.WithTTL[string, Coordinates](opts.CacheTTL),
		ttlcache.WithDisableTouchOnHit[string, Coordinates](),
	)
	go cache.Start()

	return &Geocoder{
		logger:   logger,
		opts:     opts,
		client:   &http.Client{Timeout: opts.Timeout},
		cache:    cache,
		interval: defaultRequestInterval,
	}
}

// Close stops the cache expiry goroutine
func (g *Geocoder) Close() {
	g.cache.Stop()
}

// CacheLen reports the number of cached addresses
func (g *Geocoder) CacheLen() int {
	return g.cache.Len()
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// GeocodeAddress resolves a street address within the configured locality
func (g *Geocoder) GeocodeAddress(ctx context.Context, address string) (Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Coordinates{}, errors.New("address is empty")
	}

	fullAddress := address
	if g.opts.Locality != "" {
		fullAddress = fmt.Sprintf("%s, %s", address, g.opts.Locality)
	}
	cacheKey := strings.ToLower(fullAddress)

	if item := g.cache.Get(cacheKey); item != nil {
		coords := item.Value()
		g.logger.WithFields(logrus.Fields{
			"address":   fullAddress,
			"latitude":  coords.Latitude,
			"longitude": coords.Longitude,
			"source":    "cache",
		}).Debug("Found coordinates in cache")
		return coords, nil
	}

	if err := g.wait(ctx); err != nil {
		return Coordinates{}, err
	}

	g.logger.WithField("address", fullAddress).Info("Geocoding address with Nominatim")

	params := url.Values{
		"q":      []string{fullAddress},
		"format": []string{"json"},
		"limit":  []string{"1"},
	}
	if g.opts.CountryCode != "" {
		params.Set("countrycodes", g.opts.CountryCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.opts.BaseURL+"/search", nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", g.opts.UserAgent)
	req.Header.Set("Accept-Language", "es-AR,es;q=0.9,en;q=0.7")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("address", fullAddress).Error("Geocoding request failed")
		return Coordinates{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.WithFields(logrus.Fields{
			"address": fullAddress,
			"status":  resp.StatusCode,
		}).Error("Geocoding service returned an error")
		return Coordinates{}, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		g.logger.WithError(err).WithField("address", fullAddress).Error("Failed to parse response")
		return Coordinates{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result) == 0 {
		g.logger.WithField("address", fullAddress).Warn("No results found")
		return Coordinates{}, fmt.Errorf("%w: %s", ErrNoResults, fullAddress)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid latitude %q: %w", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid longitude %q: %w", result[0].Lon, err)
	}
	coords := Coordinates{Latitude: lat, Longitude: lon}

	g.logger.WithFields(logrus.Fields{
		"address":   fullAddress,
		"latitude":  lat,
		"longitude": lon,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	g.cache.Set(cacheKey, coords, ttlcache.DefaultTTL)
	return coords, nil
}

// wait blocks until the next request is allowed by the rate limit
func (g *Geocoder) wait(ctx context.Context) error {
	g.throttle.Lock()
	defer g.throttle.Unlock()

	if delay := g.interval - time.Since(g.lastRequest); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	g.lastRequest = time.Now()
	return nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Zone is a named reference location inside the metropolitan area
type Zone struct {
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Center    []float64 `json:"center"`
	ZoomLevel int       `json:"zoom_level"`
}

func (z Zone) Lat() float64 { return z.Center[0] }
func (z Zone) Lon() float64 { return z.Center[1] }

// DefaultZones are the Mar del Plata neighbourhoods offered as presets
var DefaultZones = []Zone{
	{Name: "Playa Grande (Costa)", Center: []float64{-38.0169, -57.5309}},
	{Name: "Varese (Torreón)", Center: []float64{-38.0120, -57.5350}},
	{Name: "Güemes (Comercial)", Center: []float64{-38.0122, -57.5388}},
	{Name: "Centro (Casino)", Center: []float64{-38.0055, -57.5427}},
	{Name: "La Perla (Plaza España)", Center: []float64{-37.9926, -57.5492}},
	{Name: "Constitución", Center: []float64{-37.9754, -57.5583}},
	{Name: "Puerto", Center: []float64{-38.0357, -57.5392}},
	{Name: "Mogotes (Punta)", Center: []float64{-38.0583, -57.5519}},
}

const defaultZoomLevel = 14

// ZoneTable indexes reference zones by slug
type ZoneTable struct {
	zones  []Zone
	bySlug map[string]int
}

// NewZoneTable fills in missing slugs and zoom levels and indexes the zones
func NewZoneTable(zones []Zone) (*ZoneTable, error) {
	t := &ZoneTable{
		zones:  make([]Zone, len(zones)),
		bySlug: make(map[string]int, len(zones)),
	}
	for i, zone := range zones {
		if zone.Name == "" {
			return nil, fmt.Errorf("zone %d has no name", i)
		}
		if len(zone.Center) != 2 {
			return nil, fmt.Errorf("zone %q center must be [lat, lon]", zone.Name)
		}
		if zone.Slug == "" {
			zone.Slug = NormalizeZone(zone.Name)
		}
		if zone.ZoomLevel == 0 {
			zone.ZoomLevel = defaultZoomLevel
		}
		if _, exists := t.bySlug[zone.Slug]; exists {
			return nil, fmt.Errorf("duplicate zone slug %q", zone.Slug)
		}
		t.zones[i] = zone
		t.bySlug[zone.Slug] = i
	}
	return t, nil
}

// LoadZones reads the zone table from a JSON file, or returns DefaultZones when path is empty
func LoadZones(path string) (*ZoneTable, error) {
	if path == "" {
		return NewZoneTable(DefaultZones)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read zones file: %w", err)
	}

	var file struct {
		Zones []Zone `json:"zones"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse zones file: %w", err)
	}
	return NewZoneTable(file.Zones)
}

// Zones returns the zones in table order. A nil table has no zones.
func (t *ZoneTable) Zones() []Zone {
	if t == nil {
		return nil
	}
	zones := make([]Zone, len(t.zones))
	copy(zones, t.zones)
	return zones
}

// GetZoneBySlug returns a zone by slug, accepting unnormalized names too
func (t *ZoneTable) GetZoneBySlug(slug string) *Zone {
	if t == nil {
		return nil
	}
	i, ok := t.bySlug[slug]
	if !ok {
		i, ok = t.bySlug[NormalizeZone(slug)]
	}
	if !ok {
		return nil
	}
	zone := t.zones[i]
	return &zone
}

// GetZoneNames returns the display names of all zones
func (t *ZoneTable) GetZoneNames() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.zones))
	for i, zone := range t.zones {
		names[i] = zone.Name
	}
	return names
}

// NormalizeZone turns a display name into a URL slug: "Güemes (Comercial)" becomes "guemes-comercial"
func NormalizeZone(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

package artifact

import (
	"strings"

	"tasador/server/internal/models"
)

// Schema names the training-time columns the assembler writes into.
// The defaults match the bundle exported by the Mar del Plata training notebook.
type Schema struct {
	AreaColumn      string            `json:"area"`
	LatitudeColumn  string            `json:"latitude"`
	LongitudeColumn string            `json:"longitude"`
	RoomsColumn     string            `json:"rooms"`
	BathroomsColumn string            `json:"bathrooms"`
	ParkingColumn   string            `json:"parking"`
	ZoneColumn      string            `json:"zone"`
	TypePrefix      string            `json:"type_prefix"`
	TypeLabels      map[string]string `json:"type_labels"`
}

// DefaultSchema returns the column naming of the Mar del Plata training run
func DefaultSchema() Schema {
	return Schema{
		AreaColumn:      "metros",
		LatitudeColumn:  "lat",
		LongitudeColumn: "lon",
		RoomsColumn:     "ambientes",
		BathroomsColumn: "banos",
		ParkingColumn:   "cochera",
		ZoneColumn:      "cluster_ubicacion",
		TypePrefix:      "tipo_",
		TypeLabels: map[string]string{
			string(models.PropertyTypeApartment):  "Departamentos",
			string(models.PropertyTypeHouse):      "Casas",
			string(models.PropertyTypeDuplex):     "Ph",
			string(models.PropertyTypeOffice):     "Oficinas",
			string(models.PropertyTypeCommercial): "Locales",
			string(models.PropertyTypeLand):       "Terrenos",
		},
	}
}

// WithDefaults fills every empty field from DefaultSchema
func (s Schema) WithDefaults() Schema {
	def := DefaultSchema()
	fill := func(field *string, fallback string) {
		if *field == "" {
			*field = fallback
		}
	}
	fill(&s.AreaColumn, def.AreaColumn)
	fill(&s.LatitudeColumn, def.LatitudeColumn)
	fill(&s.LongitudeColumn, def.LongitudeColumn)
	fill(&s.RoomsColumn, def.RoomsColumn)
	fill(&s.BathroomsColumn, def.BathroomsColumn)
	fill(&s.ParkingColumn, def.ParkingColumn)
	fill(&s.ZoneColumn, def.ZoneColumn)
	fill(&s.TypePrefix, def.TypePrefix)
	if s.TypeLabels == nil {
		s.TypeLabels = def.TypeLabels
	}
	return s
}

// RequiredColumns lists the named slots every canonical column list must contain
func (s Schema) RequiredColumns() []string {
	return []string{
		s.AreaColumn,
		s.LatitudeColumn,
		s.LongitudeColumn,
		s.RoomsColumn,
		s.BathroomsColumn,
		s.ParkingColumn,
		s.ZoneColumn,
	}
}

// TypeLabel returns the training label for t, or t itself when unmapped
func (s Schema) TypeLabel(t models.PropertyType) string {
	if label, ok := s.TypeLabels[string(t)]; ok {
		return label
	}
	return string(t)
}

// TypeColumn returns the one-hot column name for t
func (s Schema) TypeColumn(t models.PropertyType) string {
	return s.TypePrefix + s.TypeLabel(t)
}

// TypeFlagColumns returns every column in cs that carries the type prefix
func (s Schema) TypeFlagColumns(cs *models.ColumnSet) []string {
	var flags []string
	for _, name := range cs.Names() {
		if strings.HasPrefix(name, s.TypePrefix) {
			flags = append(flags, name)
		}
	}
	return flags
}

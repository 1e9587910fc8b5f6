// Package zone expands free-text locations into searchable sub-areas and
// tracks how exhausted a (term, area) pair has become.
package zone

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Zone describes one partitionable area: its aliases, the sub-areas a search
// should fan out across, and an optional country for alias-suffix matching.
type Zone struct {
	Key      string   `yaml:"key"`
	Aliases  []string `yaml:"aliases"`
	SubAreas []string `yaml:"sub_areas"`
	Country  string   `yaml:"country,omitempty"`
}

// Table is the immutable zone configuration loaded at startup: the zones
// themselves, the adjacency graph between areas, and a generic fallback list
// suggested when an area has no adjacency entry.
type Table struct {
	Zones     []Zone              `yaml:"zones"`
	Adjacency map[string][]string `yaml:"adjacency"`
	Fallback  []string            `yaml:"fallback"`
}

// LoadTable reads a zone table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zone: read table %s", path)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrapf(err, "zone: parse table %s", path)
	}
	if len(t.Fallback) == 0 {
		t.Fallback = DefaultTable().Fallback
	}
	return &t, nil
}

// DefaultTable returns the built-in zone table for the markets the pipeline
// targets. Sub-areas are "<neighborhood>, <city>" so each one is a precise
// query against the candidate source.
func DefaultTable() *Table {
	return &Table{
		Zones: []Zone{
			{
				Key:     "buenos_aires",
				Aliases: []string{"buenos aires", "capital federal", "caba", "ciudad de buenos aires", "ciudad autonoma de buenos aires"},
				Country: "argentina",
				SubAreas: []string{
					"Palermo, Buenos Aires",
					"Recoleta, Buenos Aires",
					"Belgrano, Buenos Aires",
					"San Telmo, Buenos Aires",
					"Villa Crespo, Buenos Aires",
					"Caballito, Buenos Aires",
					"Almagro, Buenos Aires",
					"Flores, Buenos Aires",
					"Nuñez, Buenos Aires",
					"Colegiales, Buenos Aires",
					"Villa Urquiza, Buenos Aires",
					"Barracas, Buenos Aires",
					"Boedo, Buenos Aires",
					"Retiro, Buenos Aires",
					"Puerto Madero, Buenos Aires",
					"Microcentro, Buenos Aires",
				},
			},
			{
				Key:     "cordoba",
				Aliases: []string{"cordoba", "cordoba capital", "ciudad de cordoba"},
				Country: "argentina",
				SubAreas: []string{
					"Nueva Córdoba, Córdoba",
					"Centro, Córdoba",
					"Güemes, Córdoba",
					"Alberdi, Córdoba",
					"General Paz, Córdoba",
					"Cerro de las Rosas, Córdoba",
					"Alta Córdoba, Córdoba",
				},
			},
			{
				Key:     "rosario",
				Aliases: []string{"rosario"},
				Country: "argentina",
				SubAreas: []string{
					"Centro, Rosario",
					"Pichincha, Rosario",
					"Echesortu, Rosario",
					"Fisherton, Rosario",
					"Abasto, Rosario",
					"Zona Sur, Rosario",
				},
			},
			{
				Key:     "mendoza",
				Aliases: []string{"mendoza", "mendoza capital"},
				Country: "argentina",
				SubAreas: []string{
					"Ciudad, Mendoza",
					"Godoy Cruz, Mendoza",
					"Guaymallén, Mendoza",
					"Las Heras, Mendoza",
					"Maipú, Mendoza",
				},
			},
			{
				Key:     "madrid",
				Aliases: []string{"madrid"},
				Country: "españa",
				SubAreas: []string{
					"Centro, Madrid",
					"Salamanca, Madrid",
					"Chamberí, Madrid",
					"Malasaña, Madrid",
					"La Latina, Madrid",
					"Lavapiés, Madrid",
					"Chueca, Madrid",
					"Retiro, Madrid",
				},
			},
			{
				Key:     "barcelona",
				Aliases: []string{"barcelona"},
				Country: "españa",
				SubAreas: []string{
					"Eixample, Barcelona",
					"Gràcia, Barcelona",
					"El Born, Barcelona",
					"Barrio Gótico, Barcelona",
					"Poblenou, Barcelona",
					"Sants, Barcelona",
					"Sarrià, Barcelona",
				},
			},
			{
				Key:     "cdmx",
				Aliases: []string{"ciudad de mexico", "cdmx", "mexico df", "df"},
				Country: "mexico",
				SubAreas: []string{
					"Roma Norte, Ciudad de México",
					"Condesa, Ciudad de México",
					"Polanco, Ciudad de México",
					"Coyoacán, Ciudad de México",
					"Del Valle, Ciudad de México",
					"Santa Fe, Ciudad de México",
					"Centro Histórico, Ciudad de México",
				},
			},
		},
		Adjacency: map[string][]string{
			"Palermo, Buenos Aires":      {"Villa Crespo, Buenos Aires", "Colegiales, Buenos Aires", "Recoleta, Buenos Aires"},
			"Recoleta, Buenos Aires":     {"Palermo, Buenos Aires", "Retiro, Buenos Aires", "Almagro, Buenos Aires"},
			"Belgrano, Buenos Aires":     {"Nuñez, Buenos Aires", "Colegiales, Buenos Aires", "Villa Urquiza, Buenos Aires"},
			"San Telmo, Buenos Aires":    {"Barracas, Buenos Aires", "Puerto Madero, Buenos Aires", "Microcentro, Buenos Aires"},
			"Villa Crespo, Buenos Aires": {"Palermo, Buenos Aires", "Almagro, Buenos Aires", "Caballito, Buenos Aires"},
			"Caballito, Buenos Aires":    {"Almagro, Buenos Aires", "Flores, Buenos Aires", "Villa Crespo, Buenos Aires"},
			"Nueva Córdoba, Córdoba":     {"Centro, Córdoba", "Güemes, Córdoba"},
			"Centro, Rosario":            {"Pichincha, Rosario", "Abasto, Rosario"},
			"Centro, Madrid":             {"Malasaña, Madrid", "La Latina, Madrid", "Chueca, Madrid"},
			"Eixample, Barcelona":        {"Gràcia, Barcelona", "Sants, Barcelona"},
			"Roma Norte, Ciudad de México": {"Condesa, Ciudad de México", "Del Valle, Ciudad de México"},
		},
		Fallback: []string{
			"zonas comerciales cercanas",
			"barrios residenciales aledaños",
			"localidades vecinas",
		},
	}
}

// normalizeKey lowercases and trims a term or area for use as a map key.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

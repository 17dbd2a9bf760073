// Package location answers which cities are selectable for a country.
package location

import "strings"

// Directory is a static city gazetteer keyed by country name. It implements
// scan.CityDirectory.
type Directory struct {
	cities map[string][]string
}

// NewDirectory builds a directory from a country-to-cities map. Passing nil
// uses the built-in gazetteer.
func NewDirectory(cities map[string][]string) *Directory {
	if cities == nil {
		cities = defaultCities
	}
	normalized := make(map[string][]string, len(cities))
	for country, list := range cities {
		normalized[strings.ToLower(strings.TrimSpace(country))] = list
	}
	return &Directory{cities: normalized}
}

// CitiesForCountry returns the known cities for a country, or nil when the
// country is not in the gazetteer. Lookup is case-insensitive.
func (d *Directory) CitiesForCountry(country string) []string {
	return d.cities[strings.ToLower(strings.TrimSpace(country))]
}

var defaultCities = map[string][]string{
	"Germany":        {"Berlin", "Munich", "Hamburg", "Cologne", "Frankfurt", "Stuttgart", "Dusseldorf", "Leipzig"},
	"United Kingdom": {"London", "Manchester", "Birmingham", "Edinburgh", "Glasgow", "Leeds", "Bristol"},
	"France":         {"Paris", "Lyon", "Marseille", "Toulouse", "Nice", "Bordeaux"},
	"Spain":          {"Madrid", "Barcelona", "Valencia", "Seville", "Malaga", "Bilbao"},
	"Italy":          {"Rome", "Milan", "Naples", "Turin", "Florence", "Bologna"},
	"Netherlands":    {"Amsterdam", "Rotterdam", "The Hague", "Utrecht", "Eindhoven"},
	"Poland":         {"Warsaw", "Krakow", "Wroclaw", "Gdansk", "Poznan"},
	"United States":  {"New York", "Los Angeles", "Chicago", "Houston", "San Francisco", "Seattle", "Boston"},
}

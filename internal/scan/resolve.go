package scan

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// LocationDefaults is the user's configured home country and city, used when
// the scanner reads nothing usable off the receipt.
type LocationDefaults struct {
	Country string
	City    string
}

// Location is a resolved, internally consistent country/city pair.
type Location struct {
	Country string
	City    string
}

// ResolveLocation reconciles the scanned country/city against the user's
// defaults and the city directory.
//
// Empty scanned country: defaults win wholesale. Scanned country equal to
// the default country: an empty or invalid scanned city falls back to the
// default city. Scanned country different from the default: an invalid city
// is cleared, because the default city cannot be assumed valid in another
// country.
func ResolveLocation(scannedCountry, scannedCity string, defaults LocationDefaults, citiesForCountry func(country string) []string) Location {
	country := strings.TrimSpace(scannedCountry)
	city := strings.TrimSpace(scannedCity)

	if country == "" {
		return Location{Country: defaults.Country, City: defaults.City}
	}

	resolved, ok := matchCity(city, citiesForCountry(country))
	if ok {
		return Location{Country: country, City: resolved}
	}

	if strings.EqualFold(country, defaults.Country) {
		return Location{Country: country, City: defaults.City}
	}
	return Location{Country: country, City: ""}
}

// matchCity finds city in the validity list, attempting a case-insensitive
// match and returning the directory's canonical spelling.
func matchCity(city string, valid []string) (string, bool) {
	if city == "" {
		return "", false
	}
	for _, v := range valid {
		if v == city {
			return v, true
		}
	}
	for _, v := range valid {
		if strings.EqualFold(v, city) {
			return v, true
		}
	}
	return "", false
}

const isoDate = "2006-01-02"

// ValidateScanDate returns a safe ISO date for a scanned date string.
// Absent or unparseable input resolves to today (UTC). A year beyond the
// current year is clamped to today, which defends against OCR misreads like
// "2031" for "2021". Past dates pass through unchanged.
func ValidateScanDate(raw string) string {
	return validateScanDateAt(raw, time.Now().UTC())
}

func validateScanDateAt(raw string, now time.Time) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return now.Format(isoDate)
	}

	parsed, err := time.Parse(isoDate, trimmed)
	if err != nil {
		return now.Format(isoDate)
	}
	if parsed.Year() > now.Year() {
		return now.Format(isoDate)
	}
	return trimmed
}

// ParseStrictNumber parses a numeric-looking string, returning 0 for
// anything that does not parse cleanly. No partial parsing and no NaN/Inf
// propagation.
func ParseStrictNumber(raw string) float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

package location

import "testing"

func TestCitiesForCountry(t *testing.T) {
	d := NewDirectory(nil)

	tests := []struct {
		name    string
		country string
		want    bool
	}{
		{"known country", "Germany", true},
		{"case insensitive", "gErMaNy", true},
		{"surrounding whitespace", "  France ", true},
		{"unknown country", "Atlantis", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.CitiesForCountry(tt.country)
			if (len(got) > 0) != tt.want {
				t.Errorf("CitiesForCountry(%q) = %v, want cities: %v", tt.country, got, tt.want)
			}
		})
	}
}

func TestNewDirectoryCustomMap(t *testing.T) {
	d := NewDirectory(map[string][]string{"Freedonia": {"Fredville"}})

	if got := d.CitiesForCountry("freedonia"); len(got) != 1 || got[0] != "Fredville" {
		t.Errorf("CitiesForCountry(freedonia) = %v, want [Fredville]", got)
	}
	if got := d.CitiesForCountry("Germany"); got != nil {
		t.Errorf("custom directory leaked defaults: %v", got)
	}
}

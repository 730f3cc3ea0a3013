// Package locale resolves the listener's zone: the IANA timezone used for
// time-of-day adaptation and the mains frequency whose hum the tips warn about.
package locale

import (
	"strings"
	"time"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// DefaultMainsHz is used when the country cannot be resolved.
const DefaultMainsHz = 50

// Info describes the resolved zone.
type Info struct {
	Zone     string // IANA name, empty if unknown
	Country  string // empty for UTC-like zones or unknown zones
	MainsHz  int
	Location *time.Location
}

// Detect resolves the system timezone. It never fails: an undetectable zone
// falls back to time.Local with 50 Hz mains.
func Detect() Info {
	zone, err := tzlocal.RuntimeTZ()
	if err != nil || zone == "" {
		return Info{MainsHz: DefaultMainsHz, Location: time.Local}
	}
	return ForZone(zone)
}

// ForZone resolves an IANA timezone name. Unknown names keep time.Local as
// the clock location.
func ForZone(zone string) Info {
	info := Info{Zone: zone, MainsHz: DefaultMainsHz, Location: time.Local}
	if loc, err := time.LoadLocation(zone); err == nil {
		info.Location = loc
	}
	info.Country = countryForZone(zone)
	info.MainsHz = frequencyForCountry(info.Country)
	return info
}

// MainsHzForZone returns the mains frequency for an IANA timezone.
func MainsHzForZone(zone string) int {
	return frequencyForCountry(countryForZone(zone))
}

func countryForZone(zone string) string {
	// UTC/GMT have no country association
	if zone == "" || zone == "UTC" || zone == "GMT" || strings.HasPrefix(zone, "Etc/") {
		return ""
	}
	tzMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return ""
	}
	country, err := tzMap.GetCountry(zone)
	if err != nil {
		return ""
	}
	return country
}

// frequencyForCountry returns the mains frequency for a country name.
// Japan is split by region; the Tokyo side runs at 50 Hz.
func frequencyForCountry(country string) int {
	if hz60Countries[country] {
		return 60
	}
	return DefaultMainsHz
}

var hz60Countries = map[string]bool{
	// North America
	"United States": true,
	"Canada":        true,
	"Mexico":        true,

	// Central America
	"Belize":      true,
	"Costa Rica":  true,
	"El Salvador": true,
	"Guatemala":   true,
	"Honduras":    true,
	"Nicaragua":   true,
	"Panama":      true,

	// Caribbean
	"Bahamas":             true,
	"Barbados":            true,
	"Cayman Islands":      true,
	"Cuba":                true,
	"Dominican Republic":  true,
	"Haiti":               true,
	"Jamaica":             true,
	"Puerto Rico":         true,
	"Trinidad and Tobago": true,
	"U.S. Virgin Islands": true,

	// South America (partial, most use 50Hz)
	"Brazil":    true, // Note: Brazil has both 50Hz and 60Hz regions; 60Hz predominant
	"Colombia":  true,
	"Ecuador":   true,
	"Guyana":    true,
	"Peru":      true,
	"Suriname":  true,
	"Venezuela": true,

	// Asia (partial)
	"South Korea":  true,
	"Taiwan":       true,
	"Philippines":  true,
	"Saudi Arabia": true,

	// Pacific
	"Guam":             true,
	"American Samoa":   true,
	"Marshall Islands": true,
	"Micronesia":       true,
	"Palau":            true,
}

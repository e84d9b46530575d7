package coords

import (
	"math"
	"strconv"
	"strings"

	"github.com/dshills/fitscat/internal/fits"
	"github.com/dshills/fitscat/internal/logging"
)

// Resolution is the sky position and altitude derived for one file.
// RA, Dec and Altitude are nil when they could not be derived.
type Resolution struct {
	RA       *float64
	Dec      *float64
	Altitude *float64

	// Site used for the altitude
	Site           Location
	SiteFromHeader bool
}

// Resolver turns raw header coordinates into a Resolution. The default site
// is used whenever a header carries no usable site position.
type Resolver struct {
	defaultSite Location
}

// NewResolver creates a resolver with the given default observing site
func NewResolver(defaultSite Location) *Resolver {
	return &Resolver{defaultSite: defaultSite}
}

// DefaultSite returns the fallback observing site
func (r *Resolver) DefaultSite() Location {
	return r.defaultSite
}

// Equatorial parses a raw RA/DEC pair. Both values are returned or neither;
// a pair that is present but unusable is logged.
func (r *Resolver) Equatorial(raRaw, decRaw *string) (*Equatorial, bool) {
	if raRaw == nil && decRaw == nil {
		return nil, false
	}
	if raRaw == nil || decRaw == nil {
		logging.Warn("Incomplete coordinates: RA=%s DEC=%s", quoteOrMissing(raRaw), quoteOrMissing(decRaw))
		return nil, false
	}

	ra, err := ParseRA(*raRaw)
	if err != nil {
		logging.Warn("Could not parse coordinates RA=%q DEC=%q: %v", *raRaw, *decRaw, err)
		return nil, false
	}
	dec, err := ParseDec(*decRaw)
	if err != nil {
		logging.Warn("Could not parse coordinates RA=%q DEC=%q: %v", *raRaw, *decRaw, err)
		return nil, false
	}
	return &Equatorial{RA: ra, Dec: dec}, true
}

// Site returns the header site when both latitude and longitude parse
func (r *Resolver) Site(latRaw, lonRaw, elevRaw *string) (Location, bool) {
	if latRaw == nil || lonRaw == nil {
		return r.defaultSite, false
	}

	lat, err := ParseAngle(*latRaw)
	if err != nil {
		logging.Warn("Ignoring site latitude %q: %v", *latRaw, err)
		return r.defaultSite, false
	}
	lon, err := ParseAngle(*lonRaw)
	if err != nil {
		logging.Warn("Ignoring site longitude %q: %v", *lonRaw, err)
		return r.defaultSite, false
	}

	site := Location{Latitude: lat, Longitude: lon}
	if err := site.Validate(); err != nil {
		logging.Warn("Ignoring site %q/%q: %v", *latRaw, *lonRaw, err)
		return r.defaultSite, false
	}
	if elevRaw != nil {
		if h, err := strconv.ParseFloat(strings.TrimSpace(*elevRaw), 64); err == nil {
			site.Height = h
		}
	}
	return site, true
}

// Resolve derives RA, DEC and altitude from extracted header fields
func (r *Resolver) Resolve(f fits.Fields) Resolution {
	res := Resolution{Site: r.defaultSite}

	eq, ok := r.Equatorial(f.RA, f.Dec)
	if !ok {
		return res
	}
	res.RA = &eq.RA
	res.Dec = &eq.Dec

	res.Site, res.SiteFromHeader = r.Site(f.SiteLat, f.SiteLon, f.SiteElev)

	if f.DateObs == nil {
		return res
	}
	alt := Altitude(*eq, *f.DateObs, res.Site)
	if math.IsNaN(alt) || math.IsInf(alt, 0) {
		logging.Warn("Altitude transform failed for RA=%v DEC=%v at %s", eq.RA, eq.Dec, f.DateObs)
		return res
	}
	res.Altitude = &alt
	return res
}

func quoteOrMissing(s *string) string {
	if s == nil {
		return "<missing>"
	}
	return `"` + *s + `"`
}

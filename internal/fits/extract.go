package fits

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Unknown is the placeholder for missing object and observatory names
const Unknown = "Unknown"

// ErrBadTimestamp is recorded when DATE-OBS is present but not ISO-8601
var ErrBadTimestamp = errors.New("unparsable DATE-OBS")

// Header keyword fallback chains, first match wins
var (
	ObjectKeys      = []string{"OBJECT"}
	ExposureKeys    = []string{"EXPTIME", "EXPOSURE"}
	ObservatoryKeys = []string{"OBSERVAT", "TELESCOP"}
	DateObsKeys     = []string{"DATE-OBS"}
	RAKeys          = []string{"RA", "OBJCTRA"}
	DecKeys         = []string{"DEC", "OBJCTDEC"}
	SiteLatKeys     = []string{"SITELAT", "LATITUDE"}
	SiteLonKeys     = []string{"SITELONG", "SITELON", "LONGITUD"}
	SiteElevKeys    = []string{"SITEELEV", "ALTITUDE"}
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Fields holds the catalog values derived from a header
type Fields struct {
	ObjectName  string
	ExpTime     float64
	Observatory string
	DateObs     *time.Time // UTC, nil when missing or unparsable

	// Raw text, nil when the header has none of the keywords
	RA       *string
	Dec      *string
	SiteLat  *string
	SiteLon  *string
	SiteElev *string

	// Non-fatal field problems
	Warnings []error
}

// Extract derives catalog fields from a header
func Extract(h *Header) Fields {
	f := Fields{
		ObjectName:  Unknown,
		Observatory: Unknown,
		Warnings:    h.Warnings(),
	}

	if s, ok := h.String(ObjectKeys...); ok {
		f.ObjectName = s
	}
	if s, ok := h.String(ObservatoryKeys...); ok {
		f.Observatory = s
	}
	if v, ok := h.Float(ExposureKeys...); ok {
		f.ExpTime = v
	}

	if raw, ok := h.String(DateObsKeys...); ok {
		t, err := ParseObservationTime(raw)
		if err != nil {
			f.Warnings = append(f.Warnings, err)
		} else {
			f.DateObs = &t
		}
	}

	f.RA = optional(h, RAKeys)
	f.Dec = optional(h, DecKeys)
	f.SiteLat = optional(h, SiteLatKeys)
	f.SiteLon = optional(h, SiteLonKeys)
	f.SiteElev = optional(h, SiteElevKeys)

	return f
}

func optional(h *Header, keys []string) *string {
	if s, ok := h.String(keys...); ok {
		return &s
	}
	return nil
}

// ParseObservationTime parses an ISO-8601 date or date-time. Values without
// a zone are taken as UTC. The result is always in UTC.
func ParseObservationTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, raw)
}

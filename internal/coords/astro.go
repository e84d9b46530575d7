package coords

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/unit"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// North galactic pole and the galactic longitude of the north celestial pole, J2000
const (
	ngpRA  = 192.85948
	ngpDec = 27.12825
	ncpL   = 122.93192
)

// Equatorial is a J2000 mean position in decimal degrees
type Equatorial struct {
	RA  float64
	Dec float64
}

// Location is an observing site. Longitude is east positive, Height is
// metres above sea level.
type Location struct {
	Latitude  float64
	Longitude float64
	Height    float64
}

// FiglObservatory is the Leopold Figl Observatory in the Vienna Woods, the
// usual default site.
func FiglObservatory() Location {
	return Location{Latitude: 48.129, Longitude: 16.024, Height: 940}
}

// Validate checks the site is on the globe
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || math.Abs(l.Latitude) > 90 {
		return fmt.Errorf("%w: latitude %v", ErrOutOfRange, l.Latitude)
	}
	if math.IsNaN(l.Longitude) || math.Abs(l.Longitude) > 360 {
		return fmt.Errorf("%w: longitude %v", ErrOutOfRange, l.Longitude)
	}
	return nil
}

// JulianDate returns the Julian date of t. UTC is used in place of UT1 and TT.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// Precess moves a J2000 mean position to the mean equator and equinox of jd
// using the IAU 1976 precession angles.
func Precess(eq Equatorial, jd float64) Equatorial {
	from := &coord.Equatorial{RA: unit.RAFromDeg(eq.RA), Dec: unit.AngleFromDeg(eq.Dec)}
	to := precess.Position(from, &coord.Equatorial{}, 2000, base.JDEToJulianYear(jd), 0, 0)
	return Equatorial{RA: normalize360(to.RA.Deg()), Dec: to.Dec.Deg()}
}

// GMST returns Greenwich mean sidereal time in degrees (IAU 1982)
func GMST(jd float64) float64 {
	return normalize360(sidereal.Mean(jd).Rad() * rad2deg)
}

// Altitude returns the altitude in degrees of eq above the horizon at loc
// for the instant t. No refraction is applied.
func Altitude(eq Equatorial, t time.Time, loc Location) float64 {
	jd := JulianDate(t)
	date := Precess(eq, jd)
	// longitude is west positive for EqToHz
	_, h := coord.EqToHz(
		unit.RAFromDeg(date.RA),
		unit.AngleFromDeg(date.Dec),
		unit.AngleFromDeg(loc.Latitude),
		unit.AngleFromDeg(-loc.Longitude),
		sidereal.Mean(jd),
	)
	return h.Deg()
}

// Galactic converts a J2000 position to galactic longitude in [0, 360)
// and latitude.
func Galactic(eq Equatorial) (l, b float64) {
	ra := eq.RA * deg2rad
	dec := eq.Dec * deg2rad
	ap := ngpRA * deg2rad
	dp := ngpDec * deg2rad

	sinB := math.Sin(dec)*math.Sin(dp) + math.Cos(dec)*math.Cos(dp)*math.Cos(ra-ap)
	b = math.Asin(clamp(sinB)) * rad2deg

	y := math.Cos(dec) * math.Sin(ra-ap)
	x := math.Sin(dec)*math.Cos(dp) - math.Cos(dec)*math.Sin(dp)*math.Cos(ra-ap)
	l = normalize360(ncpL - math.Atan2(y, x)*rad2deg)
	return l, b
}

func normalize360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func clamp(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}

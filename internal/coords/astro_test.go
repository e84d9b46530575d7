package coords

import (
	"math"
	"testing"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/stretchr/testify/assert"
)

func TestJulianDate(t *testing.T) {
	assert.InDelta(t, 2451545.0, JulianDate(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)), 1e-9)
	assert.InDelta(t, 2446896.30625, JulianDate(time.Date(1987, 4, 10, 19, 21, 0, 0, time.UTC)), 1e-8)
}

func TestGMST(t *testing.T) {
	// 1987 April 10, 0h and 19h21m UT
	assert.InDelta(t, 197.693195, GMST(2446895.5), 1e-5)
	assert.InDelta(t, 128.7378734, GMST(2446896.30625), 1e-5)
}

func TestPrecess(t *testing.T) {
	// theta Persei, J2000 to 2028 Nov 13.19
	got := Precess(Equatorial{RA: 41.054063, Dec: 49.227750}, 2462088.69)
	assert.InDelta(t, 41.547214, got.RA, 2e-4)
	assert.InDelta(t, 49.348483, got.Dec, 2e-4)

	same := Precess(Equatorial{RA: 10, Dec: -20}, base.J2000)
	assert.InDelta(t, 10, same.RA, 1e-12)
	assert.InDelta(t, -20, same.Dec, 1e-12)
}

func TestAltitude_MeridianTransits(t *testing.T) {
	// At J2000 precession is the identity, so RA equal to local sidereal
	// time puts the object on the meridian.
	site := FiglObservatory()
	at := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	lst := GMST(base.J2000) + site.Longitude

	upper := Altitude(Equatorial{RA: normalize360(lst), Dec: 20}, at, site)
	assert.InDelta(t, 90-(site.Latitude-20), upper, 1e-6)

	lower := Altitude(Equatorial{RA: normalize360(lst + 180), Dec: 20}, at, site)
	assert.InDelta(t, site.Latitude+20-90, lower, 1e-6)

	zenith := Altitude(Equatorial{RA: normalize360(lst), Dec: site.Latitude}, at, site)
	assert.InDelta(t, 90, zenith, 1e-6)
}

func TestAltitude_CelestialPoleAtLatitude(t *testing.T) {
	site := Location{Latitude: 48.129, Longitude: 16.024}
	for _, hour := range []int{0, 6, 12, 18} {
		ts := time.Date(2024, 3, 1, hour, 0, 0, 0, time.UTC)
		alt := Altitude(Equatorial{RA: 0, Dec: 90}, ts, site)
		assert.InDelta(t, site.Latitude, alt, 0.5)
	}
}

func TestAltitude_Culmination(t *testing.T) {
	site := FiglObservatory()
	eq := Equatorial{RA: 83.8221, Dec: -5.3911}
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	maxAlt := -90.0
	for m := 0; m < 24*60; m++ {
		maxAlt = math.Max(maxAlt, Altitude(eq, start.Add(time.Duration(m)*time.Minute), site))
	}
	assert.InDelta(t, 90-math.Abs(site.Latitude-eq.Dec), maxAlt, 0.5)
}

func TestAltitude_Deterministic(t *testing.T) {
	eq := Equatorial{RA: 150, Dec: 20}
	ts := time.Date(2023, 5, 1, 21, 0, 0, 0, time.UTC)
	first := Altitude(eq, ts, FiglObservatory())
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Altitude(eq, ts, FiglObservatory()))
	}
	assert.True(t, first >= -90 && first <= 90)
}

func TestGalactic(t *testing.T) {
	l, b := Galactic(Equatorial{RA: 266.40499, Dec: -28.93617})
	assert.Less(t, math.Min(l, 360-l), 0.05)
	assert.InDelta(t, 0, b, 0.05)

	_, b = Galactic(Equatorial{RA: ngpRA, Dec: ngpDec})
	assert.InDelta(t, 90, b, 1e-6)

	// Andromeda galaxy
	l, b = Galactic(Equatorial{RA: 10.6847, Dec: 41.2690})
	assert.InDelta(t, 121.17, l, 0.05)
	assert.InDelta(t, -21.57, b, 0.05)
}

func TestLocation_Validate(t *testing.T) {
	assert.NoError(t, FiglObservatory().Validate())
	assert.ErrorIs(t, Location{Latitude: 91}.Validate(), ErrOutOfRange)
	assert.ErrorIs(t, Location{Longitude: math.NaN()}.Validate(), ErrOutOfRange)
}

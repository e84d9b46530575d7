package coords_test

import (
	"testing"
	"time"

	"github.com/dshills/fitscat/internal/coords"
	"github.com/dshills/fitscat/internal/fits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestResolver_Equatorial(t *testing.T) {
	r := coords.NewResolver(coords.FiglObservatory())

	eq, ok := r.Equatorial(strPtr("10:00:00"), strPtr("+20:00:00"))
	require.True(t, ok)
	assert.InDelta(t, 150.0, eq.RA, 1e-9)
	assert.InDelta(t, 20.0, eq.Dec, 1e-9)

	eq, ok = r.Equatorial(nil, nil)
	assert.False(t, ok)
	assert.Nil(t, eq)

	_, ok = r.Equatorial(strPtr("10:00:00"), nil)
	assert.False(t, ok)

	_, ok = r.Equatorial(strPtr("10:00:00"), strPtr("garbage"))
	assert.False(t, ok)

	_, ok = r.Equatorial(strPtr("25:00:00"), strPtr("+20:00:00"))
	assert.False(t, ok)
}

func TestResolver_ResolveNoCoordinates(t *testing.T) {
	r := coords.NewResolver(coords.FiglObservatory())
	obs := time.Date(2023, 1, 1, 20, 0, 0, 0, time.UTC)

	res := r.Resolve(fits.Fields{DateObs: &obs})
	assert.Nil(t, res.RA)
	assert.Nil(t, res.Dec)
	assert.Nil(t, res.Altitude)
}

func TestResolver_ResolveNoTimestamp(t *testing.T) {
	r := coords.NewResolver(coords.FiglObservatory())

	res := r.Resolve(fits.Fields{RA: strPtr("10:00:00"), Dec: strPtr("+20:00:00")})
	require.NotNil(t, res.RA)
	require.NotNil(t, res.Dec)
	assert.Nil(t, res.Altitude)
}

func TestResolver_ResolveWithDefaultSite(t *testing.T) {
	site := coords.FiglObservatory()
	r := coords.NewResolver(site)
	obs := time.Date(2023, 3, 20, 21, 0, 0, 0, time.UTC)

	res := r.Resolve(fits.Fields{RA: strPtr("10:00:00"), Dec: strPtr("+20:00:00"), DateObs: &obs})
	require.NotNil(t, res.Altitude)
	assert.False(t, res.SiteFromHeader)
	assert.Equal(t, site, res.Site)
	assert.Equal(t, coords.Altitude(coords.Equatorial{RA: 150, Dec: 20}, obs, site), *res.Altitude)
}

func TestResolver_InjectedDefaultSite(t *testing.T) {
	obs := time.Date(2023, 3, 20, 21, 0, 0, 0, time.UTC)
	fields := fits.Fields{RA: strPtr("10:00:00"), Dec: strPtr("+20:00:00"), DateObs: &obs}

	north := coords.NewResolver(coords.Location{Latitude: 60, Longitude: 16})
	south := coords.NewResolver(coords.Location{Latitude: -40, Longitude: 16})

	a := north.Resolve(fields)
	b := south.Resolve(fields)
	require.NotNil(t, a.Altitude)
	require.NotNil(t, b.Altitude)
	assert.NotEqual(t, *a.Altitude, *b.Altitude)
}

func TestResolver_SiteFromHeader(t *testing.T) {
	r := coords.NewResolver(coords.FiglObservatory())
	obs := time.Date(2023, 3, 20, 21, 0, 0, 0, time.UTC)

	res := r.Resolve(fits.Fields{
		RA:       strPtr("10:00:00"),
		Dec:      strPtr("+20:00:00"),
		DateObs:  &obs,
		SiteLat:  strPtr("-30:14:40"),
		SiteLon:  strPtr("-70.7365"),
		SiteElev: strPtr("2200"),
	})
	require.NotNil(t, res.Altitude)
	assert.True(t, res.SiteFromHeader)
	assert.InDelta(t, -(30 + 14.0/60 + 40.0/3600), res.Site.Latitude, 1e-9)
	assert.InDelta(t, -70.7365, res.Site.Longitude, 1e-9)
	assert.Equal(t, 2200.0, res.Site.Height)
}

func TestResolver_BadSiteFallsBack(t *testing.T) {
	site := coords.FiglObservatory()
	r := coords.NewResolver(site)

	got, ok := r.Site(strPtr("48.1"), nil, nil)
	assert.False(t, ok)
	assert.Equal(t, site, got)

	got, ok = r.Site(strPtr("somewhere"), strPtr("16"), nil)
	assert.False(t, ok)
	assert.Equal(t, site, got)

	got, ok = r.Site(strPtr("95"), strPtr("16"), nil)
	assert.False(t, ok)
	assert.Equal(t, site, got)
}

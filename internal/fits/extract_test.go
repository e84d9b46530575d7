package fits_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/dshills/fitscat/internal/fits"
	"github.com/dshills/fitscat/internal/fits/fitstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_FullHeader(t *testing.T) {
	h := decode(t, fitstest.Observation("NGC 7000", "20:58:47", "+44:19:48", "2024-08-12T21:30:00", 300)...)

	f := fits.Extract(h)
	assert.Equal(t, "NGC 7000", f.ObjectName)
	assert.Equal(t, 300.0, f.ExpTime)
	assert.Equal(t, "TestScope", f.Observatory)
	require.NotNil(t, f.DateObs)
	assert.Equal(t, time.Date(2024, 8, 12, 21, 30, 0, 0, time.UTC), *f.DateObs)
	require.NotNil(t, f.RA)
	assert.Equal(t, "20:58:47", *f.RA)
	require.NotNil(t, f.Dec)
	assert.Equal(t, "+44:19:48", *f.Dec)
	assert.Empty(t, f.Warnings)
}

func TestExtract_Defaults(t *testing.T) {
	f := fits.Extract(decode(t))

	assert.Equal(t, fits.Unknown, f.ObjectName)
	assert.Equal(t, fits.Unknown, f.Observatory)
	assert.Equal(t, 0.0, f.ExpTime)
	assert.Nil(t, f.DateObs)
	assert.Nil(t, f.RA)
	assert.Nil(t, f.Dec)
	assert.Nil(t, f.SiteLat)
	assert.Nil(t, f.SiteLon)
	assert.Nil(t, f.SiteElev)
}

func TestExtract_Fallbacks(t *testing.T) {
	h := decode(t,
		fitstest.Card{Key: "OBJECT", Value: "   "},
		fitstest.Card{Key: "EXPOSURE", Value: 45},
		fitstest.Card{Key: "OBSERVAT", Value: "Figl"},
		fitstest.Card{Key: "TELESCOP", Value: "RC 24"},
		fitstest.Card{Key: "OBJCTRA", Value: "05 35 17"},
		fitstest.Card{Key: "OBJCTDEC", Value: "-05 23 28"},
		fitstest.Card{Key: "SITELAT", Value: 48.08},
		fitstest.Card{Key: "LONGITUD", Value: "15.92"},
	)

	f := fits.Extract(h)
	assert.Equal(t, fits.Unknown, f.ObjectName, "blank OBJECT is treated as absent")
	assert.Equal(t, 45.0, f.ExpTime)
	assert.Equal(t, "Figl", f.Observatory, "OBSERVAT preferred over TELESCOP")
	require.NotNil(t, f.RA)
	assert.Equal(t, "05 35 17", *f.RA)
	require.NotNil(t, f.Dec)
	assert.Equal(t, "-05 23 28", *f.Dec)
	require.NotNil(t, f.SiteLat)
	assert.Equal(t, "48.08", *f.SiteLat)
	require.NotNil(t, f.SiteLon)
	assert.Equal(t, "15.92", *f.SiteLon)
}

func TestExtract_ExposureFromNumericString(t *testing.T) {
	h := decode(t,
		fitstest.Card{Key: "EXPTIME", Value: "n/a"},
		fitstest.Card{Key: "EXPOSURE", Value: "12.5"},
	)
	assert.Equal(t, 12.5, fits.Extract(h).ExpTime)
}

func TestExtract_BadDateIsWarning(t *testing.T) {
	h := decode(t, fitstest.Card{Key: "DATE-OBS", Value: "last tuesday"})

	f := fits.Extract(h)
	assert.Nil(t, f.DateObs)
	require.Len(t, f.Warnings, 1)
	assert.ErrorIs(t, f.Warnings[0], fits.ErrBadTimestamp)
}

func TestParseObservationTime(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2023-01-15T22:10:05", time.Date(2023, 1, 15, 22, 10, 5, 0, time.UTC)},
		{"2023-01-15T22:10:05.250", time.Date(2023, 1, 15, 22, 10, 5, 250e6, time.UTC)},
		{"2023-01-15T22:10:05Z", time.Date(2023, 1, 15, 22, 10, 5, 0, time.UTC)},
		{"2023-01-15T23:10:05+01:00", time.Date(2023, 1, 15, 22, 10, 5, 0, time.UTC)},
		{"2023-01-15 22:10:05", time.Date(2023, 1, 15, 22, 10, 5, 0, time.UTC)},
		{"2023-01-15T22:10", time.Date(2023, 1, 15, 22, 10, 0, 0, time.UTC)},
		{"2023-01-15", time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := fits.ParseObservationTime(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := fits.ParseObservationTime("15/01/2023")
	assert.ErrorIs(t, err, fits.ErrBadTimestamp)
}

func TestHeader_JSON(t *testing.T) {
	h := decode(t,
		fitstest.Card{Key: "OBJECT", Value: "M31"},
		fitstest.Card{Key: "EXPTIME", Value: 60.5},
		fitstest.Card{Key: "EMPTY", Value: nil},
		fitstest.Card{Key: "CPLX", Value: fitstest.Raw("(1, 2)")},
		fitstest.Card{Key: "COMMENT", Value: "a"},
		fitstest.Card{Key: "COMMENT", Value: "b"},
	)

	data, err := h.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "M31", decoded["OBJECT"])
	assert.Equal(t, 60.5, decoded["EXPTIME"])
	assert.Equal(t, true, decoded["SIMPLE"])
	assert.Equal(t, 16.0, decoded["BITPIX"])
	assert.Nil(t, decoded["EMPTY"])
	assert.Contains(t, decoded, "EMPTY")
	assert.Equal(t, "(1+2i)", decoded["CPLX"])
	assert.Equal(t, "a\nb", decoded["COMMENT"])

	// Keys come out in header order
	assert.Regexp(t, `^\{"SIMPLE":true,"BITPIX":16,`, string(data))
}

func TestHeader_Accessors(t *testing.T) {
	h := decode(t,
		fitstest.Card{Key: "A", Value: "  "},
		fitstest.Card{Key: "B", Value: 7},
		fitstest.Card{Key: "C", Value: 2.25},
		fitstest.Card{Key: "D", Value: true},
	)

	s, ok := h.String("A", "B")
	assert.True(t, ok)
	assert.Equal(t, "7", s)

	s, ok = h.String("C")
	assert.True(t, ok)
	assert.Equal(t, "2.25", s)

	_, ok = h.String("A", "D", "MISSING")
	assert.False(t, ok)

	f, ok := h.Float("D", "C")
	assert.True(t, ok)
	assert.Equal(t, 2.25, f)

	_, ok = h.Float("A", "D")
	assert.False(t, ok)
	assert.False(t, math.IsNaN(f))
}

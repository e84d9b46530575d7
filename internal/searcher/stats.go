package searcher

import (
	"math"
	"sort"
	"time"

	"github.com/dshills/fitscat/internal/coords"
	"github.com/dshills/fitscat/internal/fits"
	"github.com/dshills/fitscat/internal/storage"
)

// Names left out of object choices and the sky map. "flatwizard" is the
// object name some capture software writes into calibration flats.
var excludedObjects = map[string]bool{
	fits.Unknown: true,
	"flatwizard": true,
}

// Count is a name with its number of files
type Count struct {
	Name  string `json:"name"`
	Files int    `json:"files"`
}

// MonthBucket aggregates one calendar month (UTC)
type MonthBucket struct {
	Month         time.Time `json:"month"`
	Files         int       `json:"files"`
	ExposureHours float64   `json:"exposure_hours"` // Rounded to 0.1 h
}

// Stats summarizes a set of records
type Stats struct {
	Files              int           `json:"files"`
	TotalExposureHours float64       `json:"total_exposure_hours"`
	Nights             int           `json:"nights"`
	Objects            []Count       `json:"objects"`
	Observatories      []Count       `json:"observatories"`
	Months             []MonthBucket `json:"months"`
}

// Summarize computes Stats. Months run from the first to the last month
// with a dated record; months without files are present with zero values.
func Summarize(files []*storage.FitsFile) *Stats {
	st := &Stats{Files: len(files)}

	objects := make(map[string]int)
	observatories := make(map[string]int)
	nights := make(map[string]bool)
	months := make(map[time.Time]*MonthBucket)
	var exposure float64

	for _, f := range files {
		exposure += f.ExpTime
		objects[f.ObjectName]++

		site := f.Observatory
		if site == "" {
			site = fits.Unknown
		}
		observatories[site]++

		if f.DateObs == nil {
			continue
		}
		obs := f.DateObs.UTC()
		nights[obs.Format("2006-01-02")] = true

		month := time.Date(obs.Year(), obs.Month(), 1, 0, 0, 0, 0, time.UTC)
		b, ok := months[month]
		if !ok {
			b = &MonthBucket{Month: month}
			months[month] = b
		}
		b.Files++
		b.ExposureHours += f.ExpTime
	}

	st.TotalExposureHours = exposure / 3600
	st.Nights = len(nights)
	st.Objects = sortedCounts(objects)
	st.Observatories = sortedCounts(observatories)
	st.Months = fillMonths(months)
	return st
}

// fillMonths orders buckets and inserts empty months between them
func fillMonths(months map[time.Time]*MonthBucket) []MonthBucket {
	if len(months) == 0 {
		return []MonthBucket{}
	}
	var first, last time.Time
	for m := range months {
		if first.IsZero() || m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}

	var out []MonthBucket
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		b := MonthBucket{Month: m}
		if got, ok := months[m]; ok {
			b.Files = got.Files
			b.ExposureHours = math.Round(got.ExposureHours/3600*10) / 10
		}
		out = append(out, b)
	}
	return out
}

// sortedCounts orders by file count descending, then name
func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Files: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Files != out[j].Files {
			return out[i].Files > out[j].Files
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SkyPoint is one record placed in galactic coordinates
type SkyPoint struct {
	Path        string     `json:"path"`
	Object      string     `json:"object"`
	Observatory string     `json:"observatory"`
	L           float64    `json:"l"` // Wrapped to [-180, 180)
	B           float64    `json:"b"`
	DateObs     *time.Time `json:"date_obs,omitempty"`
}

// SkyPoints converts records with a sky position into galactic points.
// Records without coordinates and placeholder objects are skipped.
func SkyPoints(files []*storage.FitsFile) []SkyPoint {
	out := make([]SkyPoint, 0, len(files))
	for _, f := range files {
		if f.RADeg == nil || f.DecDeg == nil {
			continue
		}
		if f.ObjectName == "" || excludedObjects[f.ObjectName] {
			continue
		}
		l, b := coords.Galactic(coords.Equatorial{RA: *f.RADeg, Dec: *f.DecDeg})
		out = append(out, SkyPoint{
			Path:        f.FilePath,
			Object:      f.ObjectName,
			Observatory: f.Observatory,
			L:           WrapLongitude(l),
			B:           b,
			DateObs:     f.DateObs,
		})
	}
	return out
}

// WrapLongitude maps an angle in degrees to [-180, 180)
func WrapLongitude(l float64) float64 {
	w := math.Mod(l+180, 360)
	if w < 0 {
		w += 360
	}
	return w - 180
}

// Options are the distinct values a client can filter on
type Options struct {
	ObjectNames   []string           `json:"object_names"`
	Observatories []string           `json:"observatories"`
	ExpTimes      []float64          `json:"exptimes"`
	DateRange     *storage.DateRange `json:"date_range,omitempty"`
}

// FilterOptions collects sorted distinct object names, observatories and
// exposure times, leaving out placeholder names
func FilterOptions(files []*storage.FitsFile) *Options {
	objects := make(map[string]bool)
	sites := make(map[string]bool)
	exps := make(map[float64]bool)
	for _, f := range files {
		if f.ObjectName != "" && !excludedObjects[f.ObjectName] {
			objects[f.ObjectName] = true
		}
		if f.Observatory != "" && f.Observatory != fits.Unknown {
			sites[f.Observatory] = true
		}
		exps[f.ExpTime] = true
	}

	opts := &Options{
		ObjectNames:   make([]string, 0, len(objects)),
		Observatories: make([]string, 0, len(sites)),
		ExpTimes:      make([]float64, 0, len(exps)),
	}
	for name := range objects {
		opts.ObjectNames = append(opts.ObjectNames, name)
	}
	for name := range sites {
		opts.Observatories = append(opts.Observatories, name)
	}
	for v := range exps {
		opts.ExpTimes = append(opts.ExpTimes, v)
	}
	sort.Strings(opts.ObjectNames)
	sort.Strings(opts.Observatories)
	sort.Float64s(opts.ExpTimes)
	return opts
}

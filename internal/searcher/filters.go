package searcher

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dshills/fitscat/internal/storage"
)

// MaxLimit caps a single page of results
const MaxLimit = 10000

// ErrInvalidFilters is returned for contradictory or out of range filters
var ErrInvalidFilters = errors.New("invalid filters")

// Filters selects catalog records. Zero values do not filter. Date bounds
// are calendar days: DateTo includes the whole day it names.
type Filters struct {
	ClientMACs     []string
	ObjectContains string
	ObjectNames    []string
	Observatories  []string
	ExpTimes       []float64
	MinExpTime     *float64
	MinAltitude    *float64
	MaxAltitude    *float64
	DateFrom       *time.Time
	DateTo         *time.Time
	Limit          int
	Offset         int
}

// Validate checks ranges and normalizes the limit
func (f *Filters) Validate() error {
	if f.Limit < 0 || f.Offset < 0 {
		return fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidFilters)
	}
	if f.Limit > MaxLimit {
		return fmt.Errorf("%w: limit cannot exceed %d", ErrInvalidFilters, MaxLimit)
	}
	for _, alt := range []*float64{f.MinAltitude, f.MaxAltitude} {
		if alt != nil && (*alt < -90 || *alt > 90) {
			return fmt.Errorf("%w: altitude %g outside [-90, 90]", ErrInvalidFilters, *alt)
		}
	}
	if f.MinAltitude != nil && f.MaxAltitude != nil && *f.MinAltitude > *f.MaxAltitude {
		return fmt.Errorf("%w: minimum altitude above maximum", ErrInvalidFilters)
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return fmt.Errorf("%w: date range ends before it starts", ErrInvalidFilters)
	}
	return nil
}

// toStorage converts to the store's half-open timestamp range
func (f *Filters) toStorage(withPaging bool) *storage.FileFilters {
	out := &storage.FileFilters{
		ClientMACs:     f.ClientMACs,
		ObjectContains: f.ObjectContains,
		ObjectNames:    f.ObjectNames,
		Observatories:  f.Observatories,
		ExpTimes:       f.ExpTimes,
		MinExpTime:     f.MinExpTime,
		MinAltitude:    f.MinAltitude,
		MaxAltitude:    f.MaxAltitude,
	}
	if f.DateFrom != nil {
		from := startOfDay(*f.DateFrom)
		out.DateFrom = &from
	}
	if f.DateTo != nil {
		to := startOfDay(*f.DateTo).AddDate(0, 0, 1)
		out.DateTo = &to
	}
	if withPaging {
		out.Limit = f.Limit
		out.Offset = f.Offset
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// cacheKey hashes a canonical rendering of the filters. List order does not
// change the key.
func (f *Filters) cacheKey(kind string) [32]byte {
	var b strings.Builder
	b.WriteString(kind)

	writeList := func(name string, values []string) {
		sorted := append([]string(nil), values...)
		sort.Strings(sorted)
		fmt.Fprintf(&b, "|%s=%s", name, strings.Join(sorted, "\x1f"))
	}
	writeList("mac", f.ClientMACs)
	writeList("obj", f.ObjectNames)
	writeList("site", f.Observatories)

	exp := make([]string, len(f.ExpTimes))
	for i, v := range f.ExpTimes {
		exp[i] = fmt.Sprintf("%g", v)
	}
	writeList("exp", exp)

	fmt.Fprintf(&b, "|contains=%s", strings.ToLower(strings.TrimSpace(f.ObjectContains)))
	for _, p := range []struct {
		name string
		v    *float64
	}{{"minexp", f.MinExpTime}, {"minalt", f.MinAltitude}, {"maxalt", f.MaxAltitude}} {
		if p.v != nil {
			fmt.Fprintf(&b, "|%s=%g", p.name, *p.v)
		}
	}
	if f.DateFrom != nil {
		fmt.Fprintf(&b, "|from=%s", startOfDay(*f.DateFrom).Format("2006-01-02"))
	}
	if f.DateTo != nil {
		fmt.Fprintf(&b, "|to=%s", startOfDay(*f.DateTo).Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "|limit=%d|offset=%d", f.Limit, f.Offset)

	return sha256.Sum256([]byte(b.String()))
}

package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/fitscat/internal/searcher"
)

// DefaultLimit is the page size when none is requested
const DefaultLimit = 100

const dateLayout = "2006-01-02"

// parseFilters reads searcher filters from query parameters
func parseFilters(q url.Values, paged bool) (searcher.Filters, error) {
	f := searcher.Filters{
		ClientMACs:     nonEmpty(q["client"]),
		ObjectContains: strings.TrimSpace(q.Get("object")),
		ObjectNames:    nonEmpty(q["name"]),
		Observatories:  nonEmpty(q["observatory"]),
	}

	for _, raw := range nonEmpty(q["exptime"]) {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, fmt.Errorf("exptime %q is not a number", raw)
		}
		f.ExpTimes = append(f.ExpTimes, v)
	}

	var err error
	if f.MinExpTime, err = optionalFloat(q, "min_exptime"); err != nil {
		return f, err
	}
	if f.MinAltitude, err = optionalFloat(q, "min_alt"); err != nil {
		return f, err
	}
	if f.MaxAltitude, err = optionalFloat(q, "max_alt"); err != nil {
		return f, err
	}
	if f.DateFrom, err = optionalDate(q, "from"); err != nil {
		return f, err
	}
	if f.DateTo, err = optionalDate(q, "to"); err != nil {
		return f, err
	}

	if !paged {
		return f, nil
	}
	f.Limit = DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		if f.Limit, err = strconv.Atoi(raw); err != nil {
			return f, fmt.Errorf("limit %q is not an integer", raw)
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if f.Offset, err = strconv.Atoi(raw); err != nil {
			return f, fmt.Errorf("offset %q is not an integer", raw)
		}
	}
	return f, nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func optionalFloat(q url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s %q is not a number", key, raw)
	}
	return &v, nil
}

func optionalDate(q url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%s %q is not a YYYY-MM-DD date", key, raw)
	}
	return &t, nil
}

package storage

import (
	"fmt"
	"strings"
	"time"
)

// placeholderFunc renders the n-th (1-based) bind parameter
type placeholderFunc func(n int) string

func sqlitePlaceholder(int) string { return "?" }

func postgresPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// whereBuilder accumulates conditions and their arguments
type whereBuilder struct {
	ph      placeholderFunc
	conds   []string
	args    []interface{}
	timeArg func(time.Time) interface{}
}

func (w *whereBuilder) next(arg interface{}) string {
	w.args = append(w.args, arg)
	return w.ph(len(w.args))
}

func (w *whereBuilder) in(column string, values []interface{}) {
	if len(values) == 0 {
		return
	}
	marks := make([]string, len(values))
	for i, v := range values {
		marks[i] = w.next(v)
	}
	w.conds = append(w.conds, fmt.Sprintf("%s IN (%s)", column, strings.Join(marks, ", ")))
}

// buildWhere renders filters as a WHERE clause (empty when nothing filters)
// plus its arguments. timeArg converts timestamps to the backend's
// representation.
func buildWhere(f *FileFilters, ph placeholderFunc, timeArg func(time.Time) interface{}) (string, []interface{}) {
	if f == nil {
		return "", nil
	}
	w := &whereBuilder{ph: ph, timeArg: timeArg}

	w.in("client_mac", stringArgs(f.ClientMACs))
	w.in("object_name", stringArgs(f.ObjectNames))
	w.in("observatory", stringArgs(f.Observatories))

	if len(f.ExpTimes) > 0 {
		vals := make([]interface{}, len(f.ExpTimes))
		for i, v := range f.ExpTimes {
			vals[i] = v
		}
		w.in("exptime", vals)
	}

	if s := strings.TrimSpace(f.ObjectContains); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		w.conds = append(w.conds, fmt.Sprintf(`LOWER(object_name) LIKE %s ESCAPE '\'`, w.next(pattern)))
	}
	if f.MinExpTime != nil {
		w.conds = append(w.conds, "exptime >= "+w.next(*f.MinExpTime))
	}
	if f.MinAltitude != nil {
		w.conds = append(w.conds, "altitude >= "+w.next(*f.MinAltitude))
	}
	if f.MaxAltitude != nil {
		w.conds = append(w.conds, "altitude <= "+w.next(*f.MaxAltitude))
	}
	if f.DateFrom != nil {
		w.conds = append(w.conds, "date_obs >= "+w.next(w.timeArg(*f.DateFrom)))
	}
	if f.DateTo != nil {
		w.conds = append(w.conds, "date_obs < "+w.next(w.timeArg(*f.DateTo)))
	}

	if len(w.conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(w.conds, " AND "), w.args
}

// Spellings of an unbounded LIMIT, needed when only an offset is set
const (
	sqliteNoLimit   = "-1"
	postgresNoLimit = "ALL"
)

// pageClause renders LIMIT/OFFSET. Values are validated integers, so they
// are inlined.
func pageClause(f *FileFilters, noLimit string) string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	switch {
	case f.Limit > 0:
		fmt.Fprintf(&b, " LIMIT %d", f.Limit)
	case f.Offset > 0:
		b.WriteString(" LIMIT " + noLimit)
	}
	if f.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", f.Offset)
	}
	return b.String()
}

func stringArgs(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

package snapshot

import (
	"errors"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// ErrNotSnapshot is returned by Stream for Parquet files without catalog columns
var ErrNotSnapshot = errors.New("not a catalog snapshot")

// naiveMicros is a timestamp without a zone, stored as UTC microseconds
func naiveMicros() parquet.Node {
	return parquet.TimestampAdjusted(parquet.Microsecond, false)
}

var rowSchema = parquet.NewSchema("fits_files", parquet.Group{
	"id":              parquet.Int(64),
	"filepath":        parquet.String(),
	"filename":        parquet.String(),
	"object_name":     parquet.String(),
	"date_obs":        parquet.Optional(naiveMicros()),
	"exptime":         parquet.Leaf(parquet.DoubleType),
	"observatory":     parquet.String(),
	"ra_deg":          parquet.Optional(parquet.Leaf(parquet.DoubleType)),
	"dec_deg":         parquet.Optional(parquet.Leaf(parquet.DoubleType)),
	"altitude":        parquet.Optional(parquet.Leaf(parquet.DoubleType)),
	"header_dump":     parquet.String(),
	"scan_root":       parquet.String(),
	"client_hostname": parquet.String(),
	"client_os":       parquet.String(),
	"client_mac":      parquet.String(),
	"created_at":      naiveMicros(),
	"updated_at":      naiveMicros(),
})

// columnIndexes maps top level column names of s to their leaf index
func columnIndexes(s *parquet.Schema) map[string]int {
	cols := s.Columns()
	idx := make(map[string]int, len(cols))
	for i, path := range cols {
		if len(path) == 1 {
			idx[path[0]] = i
		}
	}
	return idx
}

var rowColumns = columnIndexes(rowSchema)

// parquetRow lays r out in rowSchema column order
func (r Row) parquetRow() parquet.Row {
	row := make(parquet.Row, len(rowColumns))
	put := func(name string, v parquet.Value) {
		col := rowColumns[name]
		row[col] = v.Level(0, 0, col)
	}
	putOptional := func(name string, v parquet.Value, present bool) {
		col := rowColumns[name]
		if !present {
			row[col] = parquet.NullValue().Level(0, 0, col)
			return
		}
		row[col] = v.Level(0, 1, col)
	}
	str := func(s string) parquet.Value { return parquet.ByteArrayValue([]byte(s)) }

	put("id", parquet.Int64Value(r.ID))
	put("filepath", str(r.FilePath))
	put("filename", str(r.FileName))
	put("object_name", str(r.ObjectName))
	putOptional("date_obs", int64Or(r.DateObs), r.DateObs != nil)
	put("exptime", parquet.DoubleValue(r.ExpTime))
	put("observatory", str(r.Observatory))
	putOptional("ra_deg", doubleOr(r.RADeg), r.RADeg != nil)
	putOptional("dec_deg", doubleOr(r.DecDeg), r.DecDeg != nil)
	putOptional("altitude", doubleOr(r.Altitude), r.Altitude != nil)
	put("header_dump", str(r.HeaderDump))
	put("scan_root", str(r.ScanRoot))
	put("client_hostname", str(r.ClientHostname))
	put("client_os", str(r.ClientOS))
	put("client_mac", str(r.ClientMAC))
	put("created_at", parquet.Int64Value(r.CreatedAt))
	put("updated_at", parquet.Int64Value(r.UpdatedAt))
	return row
}

func int64Or(v *int64) parquet.Value {
	if v == nil {
		return parquet.NullValue()
	}
	return parquet.Int64Value(*v)
}

func doubleOr(v *float64) parquet.Value {
	if v == nil {
		return parquet.NullValue()
	}
	return parquet.DoubleValue(*v)
}

// rowDecoder turns rows of a snapshot file back into Rows. Columns are
// matched by name, so files written with a different column order still
// decode.
type rowDecoder struct {
	names []string
}

func newRowDecoder(s *parquet.Schema) (*rowDecoder, error) {
	cols := s.Columns()
	d := &rowDecoder{names: make([]string, len(cols))}
	for i, path := range cols {
		if len(path) == 1 {
			d.names[i] = path[0]
		}
	}
	if _, ok := columnIndexes(s)["filepath"]; !ok {
		return nil, fmt.Errorf("%w: no filepath column", ErrNotSnapshot)
	}
	return d, nil
}

func (d *rowDecoder) decode(pr parquet.Row) Row {
	var r Row
	for _, v := range pr {
		col := v.Column()
		if col < 0 || col >= len(d.names) || v.IsNull() {
			continue
		}
		switch d.names[col] {
		case "id":
			r.ID = v.Int64()
		case "filepath":
			r.FilePath = string(v.ByteArray())
		case "filename":
			r.FileName = string(v.ByteArray())
		case "object_name":
			r.ObjectName = string(v.ByteArray())
		case "date_obs":
			us := v.Int64()
			r.DateObs = &us
		case "exptime":
			r.ExpTime = v.Double()
		case "observatory":
			r.Observatory = string(v.ByteArray())
		case "ra_deg":
			f := v.Double()
			r.RADeg = &f
		case "dec_deg":
			f := v.Double()
			r.DecDeg = &f
		case "altitude":
			f := v.Double()
			r.Altitude = &f
		case "header_dump":
			r.HeaderDump = string(v.ByteArray())
		case "scan_root":
			r.ScanRoot = string(v.ByteArray())
		case "client_hostname":
			r.ClientHostname = string(v.ByteArray())
		case "client_os":
			r.ClientOS = string(v.ByteArray())
		case "client_mac":
			r.ClientMAC = string(v.ByteArray())
		case "created_at":
			r.CreatedAt = v.Int64()
		case "updated_at":
			r.UpdatedAt = v.Int64()
		}
	}
	return r
}

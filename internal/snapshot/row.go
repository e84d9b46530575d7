package snapshot

import (
	"encoding/json"
	"time"

	"github.com/dshills/fitscat/internal/storage"
)

// Row is one catalog record as stored in a snapshot. Timestamps are UTC
// microseconds written as zone-less Parquet timestamps; HeaderDump holds the
// header as a JSON string.
type Row struct {
	ID             int64
	FilePath       string
	FileName       string
	ObjectName     string
	DateObs        *int64
	ExpTime        float64
	Observatory    string
	RADeg          *float64
	DecDeg         *float64
	Altitude       *float64
	HeaderDump     string
	ScanRoot       string
	ClientHostname string
	ClientOS       string
	ClientMAC      string
	CreatedAt      int64
	UpdatedAt      int64
}

func fromFile(f *storage.FitsFile) Row {
	row := Row{
		ID:             f.ID,
		FilePath:       f.FilePath,
		FileName:       f.FileName,
		ObjectName:     f.ObjectName,
		ExpTime:        f.ExpTime,
		Observatory:    f.Observatory,
		RADeg:          f.RADeg,
		DecDeg:         f.DecDeg,
		Altitude:       f.Altitude,
		HeaderDump:     f.HeaderDump,
		ScanRoot:       f.ScanRoot,
		ClientHostname: f.ClientHostname,
		ClientOS:       f.ClientOS,
		ClientMAC:      f.ClientMAC,
		CreatedAt:      f.CreatedAt.UTC().UnixMicro(),
		UpdatedAt:      f.UpdatedAt.UTC().UnixMicro(),
	}
	if row.HeaderDump == "" {
		row.HeaderDump = "{}"
	}
	if f.DateObs != nil {
		us := f.DateObs.UTC().UnixMicro()
		row.DateObs = &us
	}
	return row
}

// Record is the JSON line form of a Row
type Record struct {
	ID             int64           `json:"id"`
	FilePath       string          `json:"filepath"`
	FileName       string          `json:"filename"`
	ObjectName     string          `json:"object_name"`
	DateObs        *string         `json:"date_obs"`
	ExpTime        float64         `json:"exptime"`
	Observatory    string          `json:"observatory"`
	RADeg          *float64        `json:"ra_deg"`
	DecDeg         *float64        `json:"dec_deg"`
	Altitude       *float64        `json:"altitude"`
	HeaderDump     json.RawMessage `json:"header_dump"`
	ScanRoot       string          `json:"scan_root"`
	ClientHostname string          `json:"client_hostname"`
	ClientOS       string          `json:"client_os"`
	ClientMAC      string          `json:"client_mac"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

// timeLayout renders snapshot timestamps: naive UTC with microseconds
const timeLayout = "2006-01-02T15:04:05.000000"

func formatMicros(us int64) string {
	return time.UnixMicro(us).UTC().Format(timeLayout)
}

// Record converts a row for JSON output. A header that is not valid JSON
// is emitted as a JSON string.
func (r Row) Record() Record {
	rec := Record{
		ID:             r.ID,
		FilePath:       r.FilePath,
		FileName:       r.FileName,
		ObjectName:     r.ObjectName,
		ExpTime:        r.ExpTime,
		Observatory:    r.Observatory,
		RADeg:          r.RADeg,
		DecDeg:         r.DecDeg,
		Altitude:       r.Altitude,
		HeaderDump:     json.RawMessage(r.HeaderDump),
		ScanRoot:       r.ScanRoot,
		ClientHostname: r.ClientHostname,
		ClientOS:       r.ClientOS,
		ClientMAC:      r.ClientMAC,
		CreatedAt:      formatMicros(r.CreatedAt),
		UpdatedAt:      formatMicros(r.UpdatedAt),
	}
	if !json.Valid(rec.HeaderDump) {
		quoted, _ := json.Marshal(r.HeaderDump)
		rec.HeaderDump = quoted
	}
	if r.DateObs != nil {
		s := formatMicros(*r.DateObs)
		rec.DateObs = &s
	}
	return rec
}

// Package fits reads the primary header of FITS astronomical image files
// and derives the catalog fields from it.
//
// Only header blocks are read: the file is opened read-only, consumed in
// 2880-byte blocks up to the END card and closed. Data units are never read
// or memory mapped, so large images cost the same as small ones.
//
// # Basic Usage
//
//	h, err := fits.ReadHeader(ctx, "/data/m31/light_001.fits")
//	switch {
//	case errors.Is(err, fits.ErrNotFound):
//	    // path vanished since it was enumerated
//	case errors.Is(err, fits.ErrCorrupt):
//	    // not a FITS file, or a truncated header
//	case err != nil:
//	    // permission or I/O failure
//	}
//
//	fields := fits.Extract(h)
//	fmt.Println(fields.ObjectName, fields.ExpTime, fields.Observatory)
//
// # Card Values
//
// Values are decoded into Go types:
//
//	'M 31    '      string "M 31" (trailing blanks dropped)
//	T / F           bool
//	42              int64
//	1.5E+02, 2.0D0  float64
//	(1.0, 2.0)      complex128
//	(empty)         nil
//
// A value that fits none of these keeps its raw text as a string. HIERARCH
// keywords, CONTINUE long strings and the commentary keywords COMMENT and
// HISTORY are supported. Bytes outside printable ASCII are read as '?' and
// reported through Header.Warnings with ErrNonASCII instead of failing the
// file.
//
// # Derived Fields
//
// Extract applies the fallback chains used by the catalog:
//
//	object name   OBJECT, else "Unknown"
//	exposure      EXPTIME, else EXPOSURE, else 0
//	observatory   OBSERVAT, else TELESCOP, else "Unknown"
//	date          DATE-OBS as ISO-8601, else nil
//	RA / DEC      RA or OBJCTRA / DEC or OBJCTDEC, raw text
//	site          SITELAT or LATITUDE / SITELONG, SITELON or LONGITUD
//
// Missing fields are nil pointers rather than errors. A DATE-OBS that is
// present but cannot be parsed is recorded in Fields.Warnings, along with
// any header warnings.
package fits

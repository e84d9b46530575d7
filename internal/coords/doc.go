// Package coords converts header sky positions into decimal degrees and
// computes the topocentric altitude of a target for an observation instant.
//
// Parsing accepts the encodings found in amateur and observatory headers:
// sexagesimal with colons, blanks or unit letters ("10:00:00", "10 00 00",
// "10h00m00s", "+20d30m00s") and plain decimal degrees. Right ascension in
// sexagesimal form is in hours, everything else is in degrees.
//
// Altitude is computed from a J2000 mean position: IAU 1976 precession to the
// mean equator of date, IAU 1982 mean sidereal time, then the standard
// equatorial to horizontal rotation. Nutation, aberration and refraction are
// ignored, which keeps results within about an arcminute of a full
// reduction. All functions are pure.
package coords

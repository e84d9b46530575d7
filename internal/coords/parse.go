package coords

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrEmpty is returned for a blank coordinate string
	ErrEmpty = errors.New("empty coordinate")
	// ErrMalformed is returned when a coordinate string cannot be tokenized
	ErrMalformed = errors.New("malformed coordinate")
	// ErrOutOfRange is returned for values outside their valid range
	ErrOutOfRange = errors.New("coordinate out of range")
)

// separators between sexagesimal components
var sexagesimalReplacer = strings.NewReplacer(
	":", " ",
	"h", " ", "H", " ",
	"d", " ", "D", " ",
	"m", " ", "M", " ",
	"s", " ", "S", " ",
	"°", " ", "'", " ", "\"", " ",
)

// ParseRA parses right ascension. Sexagesimal input is in hours of time and
// is multiplied by 15; a plain number is taken as degrees.
func ParseRA(raw string) (float64, error) {
	neg, parts, sexagesimal, err := split(raw)
	if err != nil {
		return 0, err
	}
	if neg {
		return 0, fmt.Errorf("%w: negative right ascension %q", ErrOutOfRange, raw)
	}

	if !sexagesimal {
		if parts[0] >= 360 {
			return 0, fmt.Errorf("%w: right ascension %q not in [0, 360)", ErrOutOfRange, raw)
		}
		return parts[0], nil
	}

	hours, err := combine(raw, parts)
	if err != nil {
		return 0, err
	}
	if hours >= 24 {
		return 0, fmt.Errorf("%w: right ascension %q not in [0h, 24h)", ErrOutOfRange, raw)
	}
	return hours * 15, nil
}

// ParseDec parses declination in sexagesimal or decimal degrees. The sign is
// taken from the string so "-00:30:00" is negative.
func ParseDec(raw string) (float64, error) {
	deg, err := ParseAngle(raw)
	if err != nil {
		return 0, err
	}
	if math.Abs(deg) > 90 {
		return 0, fmt.Errorf("%w: declination %q beyond +/-90", ErrOutOfRange, raw)
	}
	return deg, nil
}

// ParseAngle parses a signed angle in sexagesimal or decimal degrees
func ParseAngle(raw string) (float64, error) {
	neg, parts, sexagesimal, err := split(raw)
	if err != nil {
		return 0, err
	}

	deg := parts[0]
	if sexagesimal {
		if deg, err = combine(raw, parts); err != nil {
			return 0, err
		}
	}
	if deg > 360 {
		return 0, fmt.Errorf("%w: angle %q beyond 360", ErrOutOfRange, raw)
	}
	if neg {
		deg = -deg
	}
	return deg, nil
}

// split strips the sign and tokenizes raw. Decimal input yields one part.
func split(raw string) (neg bool, parts []float64, sexagesimal bool, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false, nil, false, ErrEmpty
	}

	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	s = strings.TrimSpace(s)
	if s == "" || s[0] == '-' || s[0] == '+' {
		return false, nil, false, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}

	if v, perr := strconv.ParseFloat(s, 64); perr == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false, nil, false, fmt.Errorf("%w: %q", ErrMalformed, raw)
		}
		return neg, []float64{v}, false, nil
	}

	fields := strings.Fields(sexagesimalReplacer.Replace(s))
	if len(fields) == 0 || len(fields) > 3 {
		return false, nil, false, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	for _, f := range fields {
		v, perr := strconv.ParseFloat(f, 64)
		if perr != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false, nil, false, fmt.Errorf("%w: %q", ErrMalformed, raw)
		}
		parts = append(parts, v)
	}
	return neg, parts, true, nil
}

// combine folds [whole, minutes, seconds] into one value. Only the last
// component may carry a fraction.
func combine(raw string, parts []float64) (float64, error) {
	for i, p := range parts {
		if i > 0 && p >= 60 {
			return 0, fmt.Errorf("%w: %q has a component of 60 or more", ErrOutOfRange, raw)
		}
		if i < len(parts)-1 && p != math.Trunc(p) {
			return 0, fmt.Errorf("%w: %q has a fractional leading component", ErrMalformed, raw)
		}
	}

	v := parts[0]
	if len(parts) > 1 {
		v += parts[1] / 60
	}
	if len(parts) > 2 {
		v += parts[2] / 3600
	}
	return v, nil
}

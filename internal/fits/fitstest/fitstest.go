// Package fitstest builds small synthetic FITS files for tests.
package fitstest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const (
	blockSize = 2880
	cardSize  = 80
)

// Card is one header card. Value may be a string, bool, int, int64,
// float64, Raw or nil. Commentary keywords (COMMENT, HISTORY) take a
// string Value as their text.
type Card struct {
	Key     string
	Value   any
	Comment string
}

// Raw is written verbatim into the value field
type Raw string

// Observation returns the cards of a typical light frame
func Observation(object, ra, dec, dateObs string, exptime float64) []Card {
	return []Card{
		{Key: "OBJECT", Value: object},
		{Key: "RA", Value: ra},
		{Key: "DEC", Value: dec},
		{Key: "DATE-OBS", Value: dateObs},
		{Key: "EXPTIME", Value: exptime},
		{Key: "TELESCOP", Value: "TestScope"},
	}
}

// EncodeHeader renders cards as FITS header blocks. A minimal SIMPLE /
// BITPIX / NAXIS preamble is added unless the first card is SIMPLE. The END
// card and block padding are always appended.
func EncodeHeader(cards []Card) []byte {
	var buf bytes.Buffer
	if len(cards) == 0 || cards[0].Key != "SIMPLE" {
		for _, c := range []Card{
			{Key: "SIMPLE", Value: true},
			{Key: "BITPIX", Value: 16},
			{Key: "NAXIS", Value: 2},
			{Key: "NAXIS1", Value: 8},
			{Key: "NAXIS2", Value: 8},
		} {
			buf.WriteString(formatCard(c))
		}
	}
	for _, c := range cards {
		buf.WriteString(formatCard(c))
	}
	buf.WriteString(pad("END", cardSize))
	return padBlock(buf.Bytes(), ' ')
}

// Encode renders a complete file: header blocks followed by one zeroed
// data block for the 8x8 16-bit image declared in the default preamble.
func Encode(cards []Card) []byte {
	out := EncodeHeader(cards)
	return append(out, make([]byte, blockSize)...)
}

// WriteFile writes a synthetic FITS file and returns its path
func WriteFile(t testing.TB, path string, cards ...Card) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, Encode(cards), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteCorrupt writes a file with a FITS extension that is not FITS
func WriteCorrupt(t testing.TB, path string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("this is not a FITS file\x00\x01\x02"), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func formatCard(c Card) string {
	key := strings.ToUpper(c.Key)
	if key == "COMMENT" || key == "HISTORY" {
		text, _ := c.Value.(string)
		return pad(fmt.Sprintf("%-8s%s", key, text), cardSize)
	}
	// HIERARCH and CONTINUE carry no value indicator in columns 9-10
	if raw, ok := c.Value.(Raw); ok && (key == "HIERARCH" || key == "CONTINUE") {
		return pad(fmt.Sprintf("%-8s  %s", key, raw), cardSize)
	}

	var value string
	switch v := c.Value.(type) {
	case nil:
		value = ""
	case string:
		quoted := "'" + strings.ReplaceAll(v, "'", "''")
		if len(v) < 8 {
			quoted += strings.Repeat(" ", 8-len(v))
		}
		value = quoted + "'"
	case bool:
		value = fmt.Sprintf("%20s", map[bool]string{true: "T", false: "F"}[v])
	case int:
		value = fmt.Sprintf("%20d", v)
	case int64:
		value = fmt.Sprintf("%20d", v)
	case float64:
		value = fmt.Sprintf("%20s", strconv.FormatFloat(v, 'G', -1, 64))
	case Raw:
		value = string(v)
	default:
		value = fmt.Sprintf("%20v", v)
	}
	if c.Comment != "" {
		value += " / " + c.Comment
	}
	return pad(fmt.Sprintf("%-8s= %s", key, value), cardSize)
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}

func padBlock(b []byte, fill byte) []byte {
	if rem := len(b) % blockSize; rem != 0 {
		b = append(b, bytes.Repeat([]byte{fill}, blockSize-rem)...)
	}
	return b
}

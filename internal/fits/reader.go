package fits

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

const (
	// BlockSize is the FITS logical record length
	BlockSize = 2880
	// CardSize is the length of one header card
	CardSize = 80

	cardsPerBlock = BlockSize / CardSize

	// Headers longer than this are treated as corrupt rather than read forever
	maxHeaderBlocks = 1024
	maxWarnings     = 16
)

var (
	// ErrNotFound is returned when the file no longer exists
	ErrNotFound = errors.New("file not found")
	// ErrCorrupt is returned when the file is not a well formed FITS file
	ErrCorrupt = errors.New("malformed FITS header")
	// ErrNonASCII is recorded as a header warning for cards holding bytes
	// outside printable ASCII. Such bytes are read as '?'.
	ErrNonASCII = errors.New("non-ASCII byte in header card")
)

var commentaryKeywords = map[string]bool{
	"COMMENT": true,
	"HISTORY": true,
	"":        true,
}

// ReadHeader opens path read-only and decodes its primary header
func ReadHeader(ctx context.Context, path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return Decode(ctx, f)
}

// Decode reads header blocks from r until the END card. Nothing after the
// header block containing END is consumed.
func Decode(ctx context.Context, r io.Reader) (*Header, error) {
	br := bufio.NewReaderSize(r, BlockSize)
	block := make([]byte, BlockSize)
	d := &decoder{header: newHeader()}

	for n := 0; n < maxHeaderBlocks; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := io.ReadFull(br, block); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				if n == 0 {
					return nil, fmt.Errorf("%w: file shorter than one header block", ErrCorrupt)
				}
				return nil, fmt.Errorf("%w: no END card before end of file", ErrCorrupt)
			}
			return nil, fmt.Errorf("read header block %d: %w", n, err)
		}

		for i := 0; i < cardsPerBlock; i++ {
			card := block[i*CardSize : (i+1)*CardSize]
			if n == 0 && i == 0 && !strings.HasPrefix(string(card), "SIMPLE  =") {
				return nil, fmt.Errorf("%w: first card is not SIMPLE", ErrCorrupt)
			}
			if bad, ok := sanitizeCard(card); !ok && len(d.header.warnings) < maxWarnings {
				d.header.warnings = append(d.header.warnings,
					fmt.Errorf("%w: block %d card %d: 0x%02x", ErrNonASCII, n, i+1, bad))
			}
			if d.feed(card) {
				return d.header, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: header exceeds %d blocks", ErrCorrupt, maxHeaderBlocks)
}

// decoder accumulates cards into a Header
type decoder struct {
	header *Header
	// keyword whose string value ended in '&' and may be continued
	longKey string
}

// sanitizeCard replaces bytes outside printable ASCII with '?' in place.
// It reports the first such byte and false when any was replaced.
func sanitizeCard(card []byte) (byte, bool) {
	var first byte
	clean := true
	for i, c := range card {
		if c < 0x20 || c > 0x7e {
			if clean {
				first = c
			}
			clean = false
			card[i] = '?'
		}
	}
	return first, clean
}

func (d *decoder) feed(card []byte) bool {
	text := string(card)
	keyword := strings.TrimRight(text[:8], " ")

	switch {
	case keyword == "END":
		return true

	case keyword == "CONTINUE":
		d.feedContinue(text[8:])
		return false

	case keyword == "HIERARCH":
		rest := text[8:]
		eq := strings.IndexByte(rest, '=')
		if eq < 0 {
			d.longKey = ""
			d.header.appendCommentary(keyword, strings.TrimSpace(rest))
			return false
		}
		key := strings.ToUpper(strings.Join(strings.Fields(rest[:eq]), " "))
		d.setValue(key, parseValue(rest[eq+1:]))
		return false

	case commentaryKeywords[keyword] || text[8:10] != "= ":
		d.longKey = ""
		body := strings.TrimRight(text[8:], " ")
		if keyword == "" && body == "" {
			return false
		}
		d.header.appendCommentary(keyword, strings.TrimLeft(body, " "))
		return false

	default:
		d.setValue(strings.ToUpper(keyword), parseValue(text[10:]))
		return false
	}
}

func (d *decoder) setValue(key string, v any) {
	d.header.set(key, v)
	d.longKey = ""
	if s, ok := v.(string); ok && strings.HasSuffix(s, "&") {
		d.longKey = key
	}
}

// feedContinue appends a CONTINUE card to the pending long string
func (d *decoder) feedContinue(body string) {
	cont, ok := parseValue(body).(string)
	if d.longKey == "" || !ok {
		d.longKey = ""
		d.header.appendCommentary("CONTINUE", strings.TrimSpace(body))
		return
	}
	prev, _ := d.header.values[d.longKey].(string)
	joined := strings.TrimSuffix(prev, "&") + cont
	d.header.values[d.longKey] = joined
	if !strings.HasSuffix(cont, "&") {
		d.longKey = ""
	}
}

// parseValue decodes the value field of a card, dropping any inline comment
func parseValue(field string) any {
	s := strings.TrimLeft(field, " ")
	if s == "" || s[0] == '/' {
		return nil
	}

	if s[0] == '\'' {
		if str, ok := parseQuoted(s); ok {
			return str
		}
		return strings.TrimSpace(s)
	}

	if slash := strings.IndexByte(s, '/'); slash >= 0 {
		s = s[:slash]
	}
	s = strings.TrimSpace(s)

	switch {
	case s == "":
		return nil
	case s == "T":
		return true
	case s == "F":
		return false
	case s[0] == '(':
		if c, ok := parseComplex(s); ok {
			return c
		}
		return s
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(strings.NewReplacer("D", "E", "d", "e").Replace(s), 64); err == nil {
		return f
	}
	return s
}

// parseQuoted decodes a FITS string literal starting at s[0] == '\''
func parseQuoted(s string) (string, bool) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		return strings.TrimRight(b.String(), " "), true
	}
	return "", false
}

func parseComplex(s string) (complex128, bool) {
	if !strings.HasSuffix(s, ")") {
		return 0, false
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 {
		return 0, false
	}
	re, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, false
	}
	im, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, false
	}
	return complex(re, im), true
}

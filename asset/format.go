package asset

import (
	"fmt"
	"strconv"
	"strings"
)

// textScanner is a minimal whitespace-delimited key/value scanner for the
// engine's hand-authored text asset formats (.hamaterial, .hascene,
// .haskybox), mirroring parse_name_value/eat_chars/eat_white_space in
// original_source/Engine/assets/*_importer.cpp. Every field is written as
// "key value" pairs separated by arbitrary whitespace, with one exception
// (a length-prefixed raw string for scene node names) handled by raw.
type textScanner struct {
	s   string
	pos int
}

const textScannerWhitespace = " \n\t\r\v\f"

func newTextScanner(s string) *textScanner {
	return &textScanner{s: s}
}

func (t *textScanner) eatWhitespace() {
	for t.pos < len(t.s) && strings.ContainsRune(textScannerWhitespace, rune(t.s[t.pos])) {
		t.pos++
	}
}

// token returns the next whitespace-delimited token without consuming
// trailing whitespace.
func (t *textScanner) token() (string, error) {
	t.eatWhitespace()
	if t.pos >= len(t.s) {
		return "", fmt.Errorf("asset: unexpected end of input")
	}
	rest := t.s[t.pos:]
	end := strings.IndexAny(rest, textScannerWhitespace)
	if end == -1 {
		end = len(rest)
	}
	tok := rest[:end]
	t.pos += end
	return tok, nil
}

// value requires the next token to equal key and returns the token that
// follows it, mirroring parse_name_value.
func (t *textScanner) value(key string) (string, error) {
	k, err := t.token()
	if err != nil {
		return "", fmt.Errorf("asset: expected key %q: %w", key, err)
	}
	if k != key {
		return "", fmt.Errorf("asset: expected key %q, got %q", key, k)
	}
	return t.token()
}

// raw consumes exactly n bytes verbatim (no whitespace skipping), used for
// scene.hascene's length-prefixed node names which may themselves contain
// whitespace.
func (t *textScanner) raw(n int) (string, error) {
	if t.pos+n > len(t.s) {
		return "", fmt.Errorf("asset: not enough input for %d raw bytes", n)
	}
	out := t.s[t.pos : t.pos+n]
	t.pos += n
	return out, nil
}

func (t *textScanner) u64(key string) (uint64, error) {
	v, err := t.value(key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

func (t *textScanner) u32(key string) (uint32, error) {
	v, err := t.u64(key)
	return uint32(v), err
}

func (t *textScanner) s32(key string) (int32, error) {
	v, err := t.value(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 32)
	return int32(n), err
}

func (t *textScanner) f32(key string) (float32, error) {
	v, err := t.value(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseFloat(v, 32)
	return float32(n), err
}

func (t *textScanner) boolean(key string) (bool, error) {
	v, err := t.value(key)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// vec3 reads three bare float tokens following a key token, e.g.
// "ambient_color 1 0.5 0.2".
func (t *textScanner) vec3(key string) ([3]float32, error) {
	var out [3]float32
	if _, err := t.token(); err != nil {
		return out, err
	}
	for i := range out {
		tok, err := t.token()
		if err != nil {
			return out, err
		}
		n, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return out, err
		}
		out[i] = float32(n)
	}
	return out, nil
}

// floats reads count bare float tokens (no leading key), used for
// property/vector data that follows a data-type token.
func (t *textScanner) floats(count int) ([]float32, error) {
	out := make([]float32, count)
	for i := range out {
		tok, err := t.token()
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(n)
	}
	return out, nil
}

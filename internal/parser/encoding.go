package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncodings is the fixed attempt order. It follows how Korean public
// data exporters write CSV files and never depends on the host locale.
var DefaultEncodings = []string{"utf-8-sig", "cp949", "euc-kr", "utf-8"}

// ErrUnknownEncoding is recorded for encoding names the registry can't resolve.
var ErrUnknownEncoding = errors.New("unknown encoding")

// ErrDecode indicates the bytes are not valid in the attempted encoding.
var ErrDecode = errors.New("decode failed")

// Encoding is a resolved text encoding with strict decoding.
type Encoding struct {
	Name string
	enc  encoding.Encoding
	// utf8 encodings are validated up front; x/text would otherwise
	// replace ill-formed bytes with U+FFFD silently.
	utf8 bool
}

// Lookup resolves an encoding label. Besides the WHATWG labels known to
// htmlindex it accepts utf-8-sig and the cp949/ms949/uhc aliases.
func Lookup(name string) (Encoding, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	switch key {
	case "utf-8-sig", "utf8-sig":
		return Encoding{Name: name, enc: unicode.UTF8BOM, utf8: true}, nil
	case "utf-8", "utf8":
		return Encoding{Name: name, enc: unicode.UTF8, utf8: true}, nil
	case "cp949", "ms949", "uhc", "windows-949", "euc-kr", "euckr":
		// x/text's EUC-KR decoder covers the Unified Hangul Code extension
		return Encoding{Name: name, enc: korean.EUCKR}, nil
	}
	enc, err := htmlindex.Get(key)
	if err != nil {
		return Encoding{}, fmt.Errorf("%w: %s", ErrUnknownEncoding, name)
	}
	if enc == unicode.UTF8 {
		return Encoding{Name: name, enc: enc, utf8: true}, nil
	}
	return Encoding{Name: name, enc: enc}, nil
}

// Decode reads r to the end and returns its text in UTF-8.
func (e Encoding) Decode(r io.Reader) (string, error) {
	if e.utf8 {
		b, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: invalid utf-8 (%s)", ErrDecode, e.Name)
		}
		if e.enc == unicode.UTF8 {
			return string(b), nil
		}
		r = bytes.NewReader(b)
	}
	out, err := io.ReadAll(transform.NewReader(r, e.enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDecode, e.Name, err)
	}
	if !e.utf8 && bytes.ContainsRune(out, utf8.RuneError) {
		return "", fmt.Errorf("%w: byte sequence not representable in %s", ErrDecode, e.Name)
	}
	return string(out), nil
}

// Encode converts UTF-8 text into e. It is used to build fixtures and
// exports in legacy encodings.
func (e Encoding) Encode(s string) ([]byte, error) {
	b, _, err := transform.Bytes(e.enc.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Name, err)
	}
	return b, nil
}

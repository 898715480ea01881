// Package parser turns raw source bytes into a text Table by trying an
// ordered list of candidate encodings until one decodes and parses.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/dashcsv-cli/internal/source"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

// ErrUnparsableSource matches every *UnparsableSourceError.
var ErrUnparsableSource = errors.New("unparsable source")

// ErrEmptyInput indicates the decoded text has no header row.
var ErrEmptyInput = errors.New("no columns to parse")

// Options controls delimited parsing.
type Options struct {
	// Delimiter for fields. If 0, chosen from the source name (',' or '\t').
	Delimiter rune
	Logger    *zap.Logger
}

// DefaultOptions returns comma-or-tab detection and a no-op logger.
func DefaultOptions() Options {
	return Options{}
}

// Attempt records the outcome of one encoding.
type Attempt struct {
	Encoding string
	Err      error
}

// Result describes a successful parse.
type Result struct {
	Encoding string
	Attempts []Attempt
}

// UnparsableSourceError is returned when every encoding failed.
type UnparsableSourceError struct {
	Name     string
	Attempts []Attempt
}

func (e *UnparsableSourceError) Error() string {
	tried := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		tried[i] = a.Encoding
	}
	return fmt.Sprintf("unparsable source %s (tried %s): %v", e.Name, strings.Join(tried, ", "), e.Unwrap())
}

// Unwrap returns the last underlying error.
func (e *UnparsableSourceError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

func (e *UnparsableSourceError) Is(target error) bool { return target == ErrUnparsableSource }

// Parse tries each encoding in order against a fresh reader over raw's
// bytes and returns the first table that decodes and parses. An empty
// encodings list means DefaultEncodings.
func Parse(raw *source.Raw, encodings []string, opt Options) (*table.Table, *Result, error) {
	if raw == nil {
		panic("parser: nil source")
	}
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(raw.Name)
	}
	res := &Result{}
	for _, name := range encodings {
		t, err := attempt(raw, name, delim)
		res.Attempts = append(res.Attempts, Attempt{Encoding: name, Err: err})
		if err != nil {
			log.Debug("encoding attempt failed", zap.String("source", raw.Name), zap.String("encoding", name), zap.Error(err))
			continue
		}
		res.Encoding = name
		log.Debug("parsed source", zap.String("source", raw.Name), zap.String("encoding", name),
			zap.Int("rows", t.Len()), zap.Int("cols", t.Width()))
		return t, res, nil
	}
	return nil, res, &UnparsableSourceError{Name: raw.Name, Attempts: res.Attempts}
}

func attempt(raw *source.Raw, name string, delim rune) (*table.Table, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	text, err := enc.Decode(bytes.NewReader(raw.Bytes))
	if err != nil {
		return nil, err
	}
	return ReadDelimited(strings.NewReader(text), delim)
}

// ReadDelimited parses UTF-8 delimited text whose first row is the header.
// Short rows are padded; rows wider than the header are an error.
func ReadDelimited(r io.Reader, delim rune) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var records [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("read row %d: expected %d fields, saw %d", len(records)+1, len(header), len(rec))
		}
		records = append(records, rec)
	}
	return table.New(header, records), nil
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	return ','
}

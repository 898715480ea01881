// Package source decides where tabular input comes from: an uploaded byte
// stream, the first readable fallback path, or a built-in synthetic sample.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ErrNoDataSource means no upload, no readable fallback path, and the
// synthetic sample was not allowed.
var ErrNoDataSource = errors.New("no data source: upload a CSV, place a file at a fallback path, or enable the sample")

// Origin describes which input produced a Raw.
type Origin int

const (
	OriginUpload Origin = iota
	OriginPath
	OriginSynthetic
)

func (o Origin) String() string {
	switch o {
	case OriginPath:
		return "path"
	case OriginSynthetic:
		return "synthetic"
	default:
		return "upload"
	}
}

// Raw is an opaque byte sequence plus where it came from.
type Raw struct {
	Bytes  []byte
	Name   string
	Origin Origin
	// Path is the absolute path for OriginPath sources.
	Path string

	size    int64
	modTime int64
}

// Identity returns the cache key for the source. Files are keyed by path,
// size and modification time; uploaded and synthetic bytes by content hash.
func (r *Raw) Identity() string {
	if r.Origin == OriginPath {
		return "path:" + r.Path + "@" + strconv.FormatInt(r.size, 10) + ":" + strconv.FormatInt(r.modTime, 10)
	}
	return "bytes:" + strconv.FormatUint(xxhash.Sum64(r.Bytes), 16)
}

// Request lists the candidate inputs in priority order.
type Request struct {
	// Uploaded is used unconditionally when non-nil.
	Uploaded   []byte
	UploadName string
	// FallbackPaths are tried in order; the first readable one wins.
	FallbackPaths  []string
	AllowSynthetic bool
	// Synthetic builds the sample; SyntheticPopulation when nil.
	Synthetic func() []byte
}

// Resolve returns exactly one Raw for the request or ErrNoDataSource.
// It only reads; the filesystem is never modified.
func Resolve(req Request) (*Raw, error) {
	if req.Uploaded != nil {
		name := req.UploadName
		if name == "" {
			name = "upload.csv"
		}
		return &Raw{Bytes: req.Uploaded, Name: name, Origin: OriginUpload}, nil
	}
	for _, p := range req.FallbackPaths {
		if p == "" {
			continue
		}
		raw, err := ReadPath(p)
		if err != nil {
			continue
		}
		return raw, nil
	}
	if req.AllowSynthetic {
		gen := req.Synthetic
		if gen == nil {
			gen = SyntheticPopulation
		}
		return &Raw{Bytes: gen(), Name: "sample.csv", Origin: OriginSynthetic}, nil
	}
	return nil, ErrNoDataSource
}

// ReadPath reads a file into a path-origin Raw.
func ReadPath(p string) (*Raw, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source %s is a directory", abs)
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return &Raw{
		Bytes:   b,
		Name:    filepath.Base(abs),
		Origin:  OriginPath,
		Path:    abs,
		size:    info.Size(),
		modTime: info.ModTime().UnixNano(),
	}, nil
}

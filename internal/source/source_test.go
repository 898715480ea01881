package source

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePriority(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "population.csv")
	require.NoError(t, os.WriteFile(p, []byte("a\n1\n"), 0o644))

	raw, err := Resolve(Request{Uploaded: []byte("b\n2\n"), FallbackPaths: []string{p}, AllowSynthetic: true})
	require.NoError(t, err)
	assert.Equal(t, OriginUpload, raw.Origin)
	assert.Equal(t, "upload.csv", raw.Name)

	raw, err = Resolve(Request{FallbackPaths: []string{filepath.Join(dir, "missing.csv"), p}, AllowSynthetic: true})
	require.NoError(t, err)
	assert.Equal(t, OriginPath, raw.Origin)
	assert.Equal(t, "population.csv", raw.Name)
	assert.Equal(t, "a\n1\n", string(raw.Bytes))

	raw, err = Resolve(Request{FallbackPaths: []string{filepath.Join(dir, "missing.csv")}, AllowSynthetic: true})
	require.NoError(t, err)
	assert.Equal(t, OriginSynthetic, raw.Origin)

	_, err = Resolve(Request{FallbackPaths: []string{dir}})
	assert.True(t, errors.Is(err, ErrNoDataSource))
}

func TestResolveEmptyUploadStillWins(t *testing.T) {
	raw, err := Resolve(Request{Uploaded: []byte{}, AllowSynthetic: true})
	require.NoError(t, err)
	assert.Equal(t, OriginUpload, raw.Origin)
}

func TestIdentity(t *testing.T) {
	a := &Raw{Bytes: []byte("x,y\n"), Origin: OriginUpload}
	b := &Raw{Bytes: []byte("x,y\n"), Origin: OriginUpload}
	c := &Raw{Bytes: []byte("x,z\n"), Origin: OriginUpload}
	assert.Equal(t, a.Identity(), b.Identity())
	assert.NotEqual(t, a.Identity(), c.Identity())

	dir := t.TempDir()
	p := filepath.Join(dir, "d.csv")
	require.NoError(t, os.WriteFile(p, []byte("x\n"), 0o644))
	raw, err := ReadPath(p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw.Identity(), "path:"+raw.Path+"@2:"))
}

func TestSyntheticPopulationIsDeterministic(t *testing.T) {
	a := SyntheticPopulation()
	b := SyntheticPopulation()
	assert.True(t, bytes.Equal(a, b))
	assert.True(t, bytes.HasPrefix(a, []byte("\ufeff행정구역,")))
	assert.Contains(t, string(a), "2025년10월_거주자_100세 이상")
	assert.Contains(t, string(a), "\"9,246,276\"")
}

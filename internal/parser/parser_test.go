package parser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dashcsv-cli/internal/parser"
	"github.com/KaramelBytes/dashcsv-cli/internal/source"
)

const koreanCSV = "행정구역,사용일자,승차총승객수\n" +
	"서울특별시 (1100000000),20251001,\"1,234\"\n" +
	"종로구 (1111000000),20251002,-\n"

func encode(t *testing.T, name, text string) []byte {
	t.Helper()
	enc, err := parser.Lookup(name)
	require.NoError(t, err)
	b, err := enc.Encode(text)
	require.NoError(t, err)
	return b
}

func TestParseSameTableUnderEveryEncoding(t *testing.T) {
	want, _, err := parser.Parse(&source.Raw{Bytes: []byte(koreanCSV), Name: "x.csv"}, nil, parser.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 2, want.Len())

	for _, name := range parser.DefaultEncodings {
		t.Run(name, func(t *testing.T) {
			raw := &source.Raw{Bytes: encode(t, name, koreanCSV), Name: "x.csv"}
			got, res, err := parser.Parse(raw, nil, parser.DefaultOptions())
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "table differs for %s: %v", name, got.Names())
			assert.NotEmpty(t, res.Encoding)
		})
	}
}

func TestParseLegacyBytesFallThroughUTF8(t *testing.T) {
	raw := &source.Raw{Bytes: encode(t, "cp949", koreanCSV), Name: "x.csv"}
	_, res, err := parser.Parse(raw, nil, parser.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "cp949", res.Encoding)
	require.Len(t, res.Attempts, 2)
	assert.True(t, errors.Is(res.Attempts[0].Err, parser.ErrDecode))
	assert.NoError(t, res.Attempts[1].Err)
}

func TestParseBOMIsStripped(t *testing.T) {
	raw := &source.Raw{Bytes: encode(t, "utf-8-sig", "a,b\n1,2\n"), Name: "x.csv"}
	tb, res, err := parser.Parse(raw, nil, parser.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "utf-8-sig", res.Encoding)
	assert.Equal(t, []string{"a", "b"}, tb.Names())
}

func TestParseAllEncodingsFail(t *testing.T) {
	raw := &source.Raw{Bytes: []byte("a,b\n\xff\xff,1\n"), Name: "bad.csv"}
	_, res, err := parser.Parse(raw, nil, parser.DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, parser.ErrUnparsableSource))
	assert.True(t, errors.Is(err, parser.ErrDecode))
	assert.Len(t, res.Attempts, len(parser.DefaultEncodings))

	var ue *parser.UnparsableSourceError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "bad.csv", ue.Name)
	assert.Contains(t, err.Error(), "utf-8-sig, cp949, euc-kr, utf-8")
}

func TestParseWideRowIsParseError(t *testing.T) {
	raw := &source.Raw{Bytes: []byte("a,b\n1,2,3\n"), Name: "wide.csv"}
	_, _, err := parser.Parse(raw, []string{"utf-8"}, parser.DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, parser.ErrUnparsableSource))
	assert.Contains(t, err.Error(), "expected 2 fields, saw 3")
}

func TestParseEmptyInput(t *testing.T) {
	_, _, err := parser.Parse(&source.Raw{Bytes: nil, Name: "empty.csv"}, []string{"utf-8"}, parser.DefaultOptions())
	assert.True(t, errors.Is(err, parser.ErrEmptyInput))
}

func TestParseUnknownEncodingIsAnAttempt(t *testing.T) {
	raw := &source.Raw{Bytes: []byte("a\n1\n"), Name: "x.csv"}
	_, res, err := parser.Parse(raw, []string{"klingon", "utf-8"}, parser.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "utf-8", res.Encoding)
	assert.True(t, errors.Is(res.Attempts[0].Err, parser.ErrUnknownEncoding))
}

func TestParseTSVByName(t *testing.T) {
	raw := &source.Raw{Bytes: []byte("a\tb\n1\t2\n"), Name: "x.tsv"}
	tb, _, err := parser.Parse(raw, nil, parser.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tb.Names())
}

func TestParseShortRowsPadded(t *testing.T) {
	tb, err := parser.ReadDelimited(strings.NewReader("a,b,c\n1\n"), ',')
	require.NoError(t, err)
	c, _ := tb.Column("c")
	assert.Equal(t, "", c.Values[0].String())
}

func TestParseNilSourcePanics(t *testing.T) {
	assert.Panics(t, func() { _, _, _ = parser.Parse(nil, nil, parser.DefaultOptions()) })
}

package export_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dashcsv-cli/internal/export"
	"github.com/KaramelBytes/dashcsv-cli/internal/parser"
	"github.com/KaramelBytes/dashcsv-cli/internal/present"
	"github.com/KaramelBytes/dashcsv-cli/internal/source"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

func TestWriteCSVHasBOMAndQuotes(t *testing.T) {
	tb := table.New([]string{"역명", "비고"}, [][]string{{"강남", "a,b"}, {"잠실", "say \"hi\""}})
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, tb))
	want := "\ufeff역명,비고\n강남,\"a,b\"\n잠실,\"say \"\"hi\"\"\"\n"
	assert.Equal(t, want, buf.String())
}

func TestCSVRoundTripsThroughParser(t *testing.T) {
	tb := table.New([]string{"행정구역", "총인구수"}, [][]string{{"서울특별시", "9,246,276"}, {"중구", "-"}})
	b, err := export.Bytes(tb)
	require.NoError(t, err)
	got, res, err := parser.Parse(&source.Raw{Bytes: b, Name: "out.csv"}, nil, parser.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "utf-8-sig", res.Encoding)
	assert.True(t, tb.Equal(got))
}

func series(t *testing.T) *table.Table {
	t.Helper()
	day := func(d int) table.Value { return table.Date(time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)) }
	tb := table.Empty()
	require.NoError(t, tb.AddColumn(&table.Column{Name: "DATE", Role: table.RoleDate,
		Values: []table.Value{day(3), day(1), table.Null(), day(2), day(5)}}))
	require.NoError(t, tb.AddColumn(&table.Column{Name: "IPN", Role: table.RoleNumeric,
		Values: []table.Value{table.Float(120.5), table.Float(80), table.Float(999), table.Float(60.25), table.Null()}}))
	return tb
}

func TestSummarize(t *testing.T) {
	s, err := export.Summarize(series(t), "DATE", "IPN")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 1, s.StartDate.Day())
	assert.Equal(t, 3, s.EndDate.Day())
	assert.Equal(t, 2, s.Days())
	assert.Equal(t, 60.25, s.Min)
	assert.Equal(t, 120.5, s.Max)
	assert.Equal(t, 120.5, s.Latest)
	assert.Equal(t, 3, s.PeakDate.Day())
	assert.Equal(t, 80.0, s.First)
	pct, ok := s.ChangePct()
	require.True(t, ok)
	assert.InDelta(t, 50.625, pct, 1e-9)
	assert.Equal(t, export.TrendRising, s.Trend())

	_, recs := s.Table().Records()
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"2024-01-01", "2024-01-03", "3", "IPN", "60.25", "120.5", "120.5"}, recs[0])
}

func TestSummarizeEmpty(t *testing.T) {
	tb := table.Empty()
	require.NoError(t, tb.AddColumn(&table.Column{Name: "DATE", Values: []table.Value{table.Null()}}))
	require.NoError(t, tb.AddColumn(&table.Column{Name: "IPN", Values: []table.Value{table.Int(1)}}))
	_, err := export.Summarize(tb, "DATE", "IPN")
	assert.True(t, errors.Is(err, present.ErrEmptyFilterResult))

	_, err = export.Summarize(tb, "nope", "IPN")
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	s, err := export.Summarize(series(t), "DATE", "IPN")
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), "summary.csv")
	require.NoError(t, export.WriteFile(p, s.Table()))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\ufeffstart_date,end_date,rows,value_column,min_value,max_value,latest_value\n")))
}

func TestTrend(t *testing.T) {
	cases := []struct {
		first, latest float64
		want          export.Trend
	}{
		{100, 111, export.TrendRising},
		{100, 105, export.TrendStable},
		{100, 80, export.TrendFalling},
		{0, 50, export.TrendStable},
	}
	for _, c := range cases {
		s := &export.Summary{First: c.first, Latest: c.latest}
		assert.Equal(t, c.want, s.Trend(), "%v -> %v", c.first, c.latest)
	}
}

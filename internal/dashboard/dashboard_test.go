package dashboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dashcsv-cli/internal/export"
	"github.com/KaramelBytes/dashcsv-cli/internal/parser"
	"github.com/KaramelBytes/dashcsv-cli/internal/present"
	"github.com/KaramelBytes/dashcsv-cli/internal/source"
)

func newRunner() *Runner {
	return NewRunner(nil, parser.DefaultEncodings, present.DefaultPalette(), 10)
}

func run(t *testing.T, r *Runner, name string, p Params) (*Output, error) {
	t.Helper()
	def, err := Lookup(name)
	require.NoError(t, err)
	return r.Run(context.Background(), def, Input{Sample: true}, p)
}

func keys(v *present.View) []string {
	out := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		out[i] = r.Key.String()
	}
	return out
}

func TestNames(t *testing.T) {
	want := []string{"attractions", "bakery", "cacao", "mbti", "population", "ridership", "timeseries"}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
	_, err := Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownDashboard)
}

func TestPopulationSample(t *testing.T) {
	out, err := run(t, newRunner(), "population", Params{})
	require.NoError(t, err)

	assert.Equal(t, "서울특별시", out.Params.Region)
	assert.Equal(t, []string{"서울특별시", "서울특별시 종로구", "서울특별시 중구"}, out.Choices["region"])
	assert.Equal(t, source.OriginSynthetic, out.Origin)
	assert.NotEmpty(t, out.RunID)

	require.Equal(t, 102, out.View.Len())
	assert.Equal(t, "0", out.View.Rows[0].Key.String())
	assert.Equal(t, 40000.0, out.View.Rows[0].Measure)
	last := out.View.Rows[len(out.View.Rows)-1]
	assert.Equal(t, "100+", last.Key.String())
	assert.Equal(t, 1343.0, last.Measure)
	assert.Contains(t, out.Notes, "최다 연령: 0세 (40,000명)")

	require.Len(t, out.Extra, 1)
	top := out.Extra[0].Table
	require.Equal(t, 3, top.Len())
	col, ok := top.Column("행정구역명")
	require.True(t, ok)
	assert.Equal(t, "서울특별시", col.Values[0].String())
	assert.Equal(t, "서울특별시 중구", col.Values[2].String())
}

func TestPopulationSmoothingAndRegion(t *testing.T) {
	out, err := run(t, newRunner(), "population", Params{Region: "서울특별시 중구", Smooth: true})
	require.NoError(t, err)
	assert.True(t, out.View.Smoothed)
	_, ok := out.Table.Column("인구수_smoothed")
	assert.True(t, ok)

	_, err = run(t, newRunner(), "population", Params{Region: "부산광역시"})
	assert.ErrorIs(t, err, present.ErrEmptyFilterResult)
}

func TestRidershipTopStations(t *testing.T) {
	out, err := run(t, newRunner(), "ridership", Params{Date: "20251001", Line: "2호선"})
	require.NoError(t, err)

	require.Equal(t, 10, out.View.Len())
	assert.Equal(t, "강남", out.View.Rows[0].Key.String())
	assert.Equal(t, 103983.0, out.View.Rows[0].Measure)
	assert.Equal(t, "홍대입구", out.View.Rows[1].Key.String())
	assert.NotContains(t, keys(out.View), "시청")
	assert.Equal(t, "rgba(255,0,0,1.0)", out.View.Rows[0].Color)
	assert.Equal(t, "20251001 — 2호선 기준 상위 10개 역 (승차+하차 합)", out.Title)

	for i := 2; i < out.View.Len(); i++ {
		assert.LessOrEqual(t, present.Alpha(out.View.Rows[i].Color), present.Alpha(out.View.Rows[i-1].Color))
	}
}

func TestRidershipDefaultsAndDash(t *testing.T) {
	out, err := run(t, newRunner(), "ridership", Params{Date: "2025-10-02"})
	require.NoError(t, err)
	assert.Equal(t, "1호선", out.Params.Line)
	assert.Equal(t, []string{"2025-10-01", "2025-10-02"}, out.Choices["date"])
	assert.Equal(t, []string{"서울역", "종각"}, keys(out.View))
	assert.Equal(t, 22870.0, out.View.Rows[1].Measure)
}

func TestRidershipEmptySelection(t *testing.T) {
	out, err := run(t, newRunner(), "ridership", Params{Date: "20251003", Line: "2호선"})
	require.ErrorIs(t, err, present.ErrEmptyFilterResult)
	require.NotNil(t, out)
	assert.Equal(t, 0, out.View.Len())
	assert.Len(t, out.Choices["line"], 2)
}

func TestTimeseriesSummary(t *testing.T) {
	out, err := run(t, newRunner(), "timeseries", Params{})
	require.NoError(t, err)

	s := out.Summary
	require.NotNil(t, s)
	assert.Equal(t, 20, s.Rows)
	assert.Equal(t, "IPN31152N", s.ValueColumn)
	assert.Equal(t, 104.9887, s.Max)
	assert.Equal(t, 53.7736, s.Min)
	assert.Equal(t, "1973-06-01", s.PeakDate.Format("2006-01-02"))
	assert.Equal(t, 578, s.Days())
	assert.Equal(t, export.TrendRising, s.Trend())
	assert.Equal(t, "IPN31152N over Time", out.Title)

	assert.Equal(t, peakColor, out.View.Rows[17].Color)
	assert.Empty(t, out.View.Rows[16].Color)

	require.Len(t, out.Extra, 2)
	top, bottom := out.Extra[0].Table, out.Extra[1].Table
	tc, _ := top.Column("IPN31152N")
	bc, _ := bottom.Column("IPN31152N")
	assert.Equal(t, "104.9887", tc.Values[0].String())
	assert.Equal(t, "53.7736", bc.Values[0].String())
	assert.Equal(t, "67.0605", bc.Values[4].String())
}

func TestTimeseriesOrdersByDate(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "series.csv")
	require.NoError(t, os.WriteFile(p, []byte("when,v\n2024-03-01,3\n2024-01-01,1\n,9\n2024-02-01,2\n"), 0o644))

	def, err := Lookup("timeseries")
	require.NoError(t, err)
	out, err := newRunner().Run(context.Background(), def, Input{File: p}, Params{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-02-01", "2024-03-01", ""}, keys(out.View))
	assert.Equal(t, 3, out.Summary.Rows)
	assert.Equal(t, source.OriginPath, out.Origin)
}

func TestCacaoByLocation(t *testing.T) {
	out, err := run(t, newRunner(), "cacao", Params{Location: "France"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Canada", "France", "Italy", "U.S.A."}, out.Choices["location"])
	assert.Equal(t, []string{"Agua Grande", "Madagascar", "Atsane", "Kpime"}, keys(out.View))
	require.Equal(t, 4, out.Table.Len())
	company, ok := out.Table.Column("Company")
	require.True(t, ok)
	assert.Equal(t, "Bonnat", company.Values[1].String())
	pct, _ := out.Table.Column("Cocoa_Percent")
	assert.Equal(t, "75", pct.Values[1].String())

	require.Len(t, out.Notes, 2)
	assert.Equal(t, "총 리뷰 수: 12개 | 평균 평점: 3.79점 | 평균 카카오 함량: 69.6%", out.Notes[0])
	assert.Equal(t, "France: 등록된 초콜릿 4개 | 평균 평점 3.25점 | 최고 평점 3.75점", out.Notes[1])
}

func TestBakeryRegions(t *testing.T) {
	out, err := run(t, newRunner(), "bakery", Params{Region: "대정읍"})
	require.NoError(t, err)

	assert.Equal(t, []string{"남원읍", "대정읍", "성산읍", "안덕면", "중앙로"}, out.Choices["region"])
	assert.Equal(t, []string{"대정읍", "성산읍", "중앙로", "안덕면", "남원읍"}, keys(out.View))
	assert.Equal(t, 2.0, out.View.Rows[0].Measure)

	assert.Equal(t, []string{"업소명", "소재지(도로명)"}, out.Table.Names())
	names, _ := out.Table.Column("업소명")
	assert.Equal(t, "제주당", names.Values[0].String())
	assert.Equal(t, "모카다방", names.Values[1].String())
	assert.Contains(t, out.Notes, "데이터 기준일: 2025-04-01")
	assert.Contains(t, out.Notes, "대정읍 지역 제과점 수: 2개")
}

func TestTown(t *testing.T) {
	cases := map[string]string{
		"제주특별자치도 서귀포시 남원읍 태위로 522,2층": "남원읍",
		"제주특별자치도 서귀포시 중앙로 101":       "중앙로",
		"제주특별자치도 서귀포시 대정읍,1층":        "대정읍",
	}
	for in, want := range cases {
		got, ok := Town(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := Town("제주특별자치도 제주시 연동 1")
	assert.False(t, ok)
}

func TestAttractionsZoomPassThrough(t *testing.T) {
	out, err := run(t, newRunner(), "attractions", Params{})
	require.NoError(t, err)
	assert.Equal(t, 10, out.Table.Len())
	assert.Equal(t, DefaultZoom, out.Params.Zoom)

	out, err = run(t, newRunner(), "attractions", Params{Zoom: 14})
	require.NoError(t, err)
	assert.Equal(t, 14, out.Params.Zoom)
	assert.Equal(t, MaxZoom, ClampZoom(20))
	assert.Equal(t, MinZoom, ClampZoom(3))
}

func TestUploadWinsOverFile(t *testing.T) {
	def, err := Lookup("ridership")
	require.NoError(t, err)
	csv := "사용일자,노선명,역명,승차총승객수,하차총승객수\n20251005,9호선,여의도,\"1,000\",500\n"
	in := Input{Upload: []byte(csv), UploadName: "stdin.csv", File: filepath.Join(t.TempDir(), "missing.csv")}

	out, err := newRunner().Run(context.Background(), def, in, Params{})
	require.NoError(t, err)
	assert.Equal(t, source.OriginUpload, out.Origin)
	assert.Equal(t, "stdin.csv", out.Source)
	assert.Equal(t, []string{"여의도"}, keys(out.View))
	assert.Equal(t, 1500.0, out.View.Rows[0].Measure)
}

func TestChartTogglesPassThrough(t *testing.T) {
	for _, name := range []string{"population", "timeseries"} {
		out, err := run(t, newRunner(), name, Params{ShowPoints: true, LogScale: true})
		require.NoError(t, err, name)
		assert.True(t, out.Params.ShowPoints, name)
		assert.True(t, out.Params.LogScale, name)

		out, err = run(t, newRunner(), name, Params{})
		require.NoError(t, err, name)
		assert.False(t, out.Params.ShowPoints, name)
		assert.False(t, out.Params.LogScale, name)
	}
}

func TestBuiltinIgnoresFallbackFiles(t *testing.T) {
	def, err := Lookup("mbti")
	require.NoError(t, err)
	raw, err := newRunner().Resolve(def, Input{FallbackDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, source.OriginSynthetic, raw.Origin)
	assert.Equal(t, "mbti.csv", raw.Name)
}

func TestMBTILookup(t *testing.T) {
	out, err := run(t, newRunner(), "mbti", Params{Type: " intj "})
	require.NoError(t, err)
	assert.Equal(t, "INTJ", out.Params.Type)
	assert.Equal(t, 2, out.Table.Len())
	assert.Equal(t, []string{"rank", "career", "dept", "personality"}, out.Table.Names())
	require.Len(t, out.Choices["type"], 16)
	assert.Equal(t, "ISTJ", out.Choices["type"][0])
	assert.Equal(t, "ENTJ", out.Choices["type"][15])

	_, err = run(t, newRunner(), "mbti", Params{Type: "XXXX"})
	assert.ErrorIs(t, err, present.ErrEmptyFilterResult)
}

func TestRunnerCachesLoads(t *testing.T) {
	r := newRunner()
	_, err := run(t, r, "ridership", Params{})
	require.NoError(t, err)
	_, err = run(t, r, "ridership", Params{Line: "2호선"})
	require.NoError(t, err)

	st := r.Cache.Stats()
	assert.EqualValues(t, 1, st.Misses)
	assert.EqualValues(t, 1, st.Hits)
	assert.Equal(t, 1, r.Cache.Len())
}

func TestRunMissingSource(t *testing.T) {
	if _, err := os.Stat("flavors_of_cacao.csv"); err == nil {
		t.Skip("fallback file present in working directory")
	}
	def, err := Lookup("cacao")
	require.NoError(t, err)
	_, err = newRunner().Run(context.Background(), def, Input{FallbackDir: t.TempDir()}, Params{})
	assert.True(t, errors.Is(err, source.ErrNoDataSource), "err = %v", err)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	def, err := Lookup("mbti")
	require.NoError(t, err)
	_, err = newRunner().Run(ctx, def, Input{}, Params{})
	assert.ErrorIs(t, err, context.Canceled)
}

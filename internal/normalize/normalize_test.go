package normalize

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dashcsv-cli/internal/table"
)

func TestCoerceInt(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1,234", 1234},
		{"-", 0},
		{"", 0},
		{"NaN", 0},
		{"nan", 0},
		{" 9,246,276", 9246276},
		{"1\u200b234", 1234},
		{"12 345", 12345},
		{"abc", 0},
		{"1234", 1234},
		{"-5", -5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CoerceInt(tc.in), "CoerceInt(%q)", tc.in)
	}
}

func TestIntCoercionIsIdempotent(t *testing.T) {
	vals := []table.Value{table.Text("1,234"), table.Text("-"), table.Text("7")}
	once := mapValues(vals, intValue)
	twice := mapValues(once, intValue)
	for i := range once {
		assert.True(t, once[i].Equal(twice[i]))
	}
	assert.Equal(t, int64(1234), once[0].Int())
}

func TestCoercePercentAndDates(t *testing.T) {
	f, ok := CoercePercent("72.5%")
	require.True(t, ok)
	assert.Equal(t, 72.5, f)
	_, ok = CoercePercent("n/a")
	assert.False(t, ok)

	d, ok := ParseYYYYMMDD("20251001")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), d)
	for _, bad := range []string{"2025101", "2025-10-01", "20251341", "", "202510011"} {
		_, ok := ParseYYYYMMDD(bad)
		assert.False(t, ok, bad)
	}

	d, ok = ParseAnyDate("1972-01-01")
	require.True(t, ok)
	assert.Equal(t, 1972, d.Year())
}

func TestExtractAgeColumnsOrdering(t *testing.T) {
	var names []string
	for a := 0; a < 100; a++ {
		names = append(names, fmt.Sprintf("2025년10월_거주자_%d세", a))
	}
	names = append(names, "2025년10월_거주자_100세 이상", "행정구역", "2025년10월_거주자_총인구수")
	r := rand.New(rand.NewSource(7))
	r.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })

	got := ExtractAgeColumns(names, "세", "이상")
	require.Len(t, got, 101)
	for a := 0; a < 100; a++ {
		assert.Equal(t, a, got[a].Age)
		assert.False(t, got[a].OrOlder)
	}
	last := got[100]
	assert.True(t, last.OrOlder)
	assert.Equal(t, 100, last.Age)
	assert.Equal(t, "100+", last.Label())
}

func TestOpenEndedBucketSortsLastEvenWhenSmaller(t *testing.T) {
	got := ExtractAgeColumns([]string{"pop_85세 이상", "pop_90세", "pop_3세"}, "", "")
	require.Len(t, got, 3)
	assert.Equal(t, []int{3, 90, 85}, []int{got[0].Age, got[1].Age, got[2].Age})
	assert.True(t, got[2].OrOlder)
}

func TestSplitComposite(t *testing.T) {
	orig := []string{"서울특별시 (1100000000)", "종로구 (1111000000)", "중구 (1114000000)"}
	vals := make([]table.Value, len(orig))
	for i, s := range orig {
		vals[i] = table.Text(s)
	}
	labels, codes, split := SplitComposite(vals)
	require.True(t, split)
	for i := range orig {
		assert.Equal(t, orig[i], labels[i].String()+" ("+codes[i].String()+")")
	}

	vals = append(vals, table.Text("합계"))
	labels, codes, split = SplitComposite(vals)
	assert.False(t, split)
	for i, v := range vals {
		assert.Equal(t, v.String(), labels[i].String())
		assert.Equal(t, "", codes[i].String())
	}
}

func TestNormalizeEndToEnd(t *testing.T) {
	raw := table.New(
		[]string{" 행정구역 ", "사용일자", "승차총승객수 "},
		[][]string{{"행정구역 (1100000000)", "20251001", "1,234"}},
	)
	opt := DefaultOptions()
	opt.Required = []string{"행정구역"}
	opt.Composite = []CompositeRule{{Column: "행정구역", LabelName: "행정구역명", CodeName: "행정구역코드", KeepOriginalAs: "행정구역_원본"}}
	opt.Numeric = []string{"승차총승객수"}
	opt.Dates = []string{"사용일자"}

	res, err := Normalize(raw, opt)
	require.NoError(t, err)
	tb := res.Table

	label, ok := tb.Column("행정구역명")
	require.True(t, ok)
	assert.Equal(t, "행정구역", label.Values[0].String())
	assert.Equal(t, table.RoleIdentifier, label.Role)

	code, _ := tb.Column("행정구역코드")
	assert.Equal(t, "1100000000", code.Values[0].String())
	assert.Equal(t, table.RoleCode, code.Role)

	date, _ := tb.Column("사용일자")
	assert.Equal(t, table.KindDate, date.Values[0].Kind())
	assert.Equal(t, "2025-10-01", date.Values[0].String())

	m, _ := tb.Column("승차총승객수")
	assert.Equal(t, table.KindInt, m.Values[0].Kind())
	assert.Equal(t, int64(1234), m.Values[0].Int())

	_, ok = tb.Column("행정구역_원본")
	assert.True(t, ok)

	cs, ok := res.Spec("사용일자")
	require.True(t, ok)
	assert.Equal(t, RuleDateYYYYMMDD, cs.Rule)

	// raw untouched
	rawCol := raw.ColumnAt(2)
	assert.Equal(t, "승차총승객수 ", rawCol.Name)
	assert.Equal(t, table.KindText, rawCol.Values[0].Kind())
}

func TestNormalizeMissingRequiredColumn(t *testing.T) {
	raw := table.New([]string{"a"}, [][]string{{"1"}})
	opt := DefaultOptions()
	opt.Required = []string{"행정구역"}
	_, err := Normalize(raw, opt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingRequiredColumn))
	var me *MissingRequiredColumnError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "행정구역", me.Name)
}

func TestNormalizeRequireAgesAndMeasures(t *testing.T) {
	raw := table.New([]string{"name"}, [][]string{{"x"}})
	opt := DefaultOptions()
	opt.RequireAges = true
	res, err := Normalize(raw, opt)
	assert.True(t, errors.Is(err, ErrNoRecognizedAgeColumns))
	require.NotNil(t, res)
	assert.Empty(t, res.Ages)

	opt = DefaultOptions()
	opt.RequireMeasures = true
	_, err = Normalize(raw, opt)
	assert.True(t, errors.Is(err, ErrNoRecognizedMeasureColumns))
}

func TestNormalizeCacaoHeaders(t *testing.T) {
	raw := table.New(
		[]string{"Company \n(Maker-if known)", "Cocoa\nPercent", "Rating", "Review\nDate"},
		[][]string{{"A. Morin", "63%", "3.75", "2016"}, {"Amano", "70%", "4", "2015"}},
	)
	opt := DefaultOptions()
	opt.Rename = map[string]string{"Cocoa Percent": "Cocoa_Percent"}
	opt.Percent = []string{"Cocoa_Percent"}
	res, err := Normalize(raw, opt)
	require.NoError(t, err)

	pct, ok := res.Table.Column("Cocoa_Percent")
	require.True(t, ok)
	assert.Equal(t, table.RolePercent, pct.Role)
	f, _ := pct.Values[0].Float()
	assert.Equal(t, 63.0, f)

	rating, _ := res.Table.Column("Rating")
	assert.Equal(t, table.RoleNumeric, rating.Role)
	f, _ = rating.Values[0].Float()
	assert.Equal(t, 3.75, f)

	rd, _ := res.Table.Column("Review Date")
	assert.Equal(t, table.RoleDate, rd.Role)
}

func TestNormalizeAgeColumnsAreNumeric(t *testing.T) {
	raw := table.New(
		[]string{"행정구역", "x_0세", "x_1세", "x_100세 이상"},
		[][]string{{"종로구 (1111000000)", "1,000", "-", "32"}},
	)
	res, err := Normalize(raw, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Ages, 3)
	c, _ := res.Table.Column("x_1세")
	assert.Equal(t, int64(0), c.Values[0].Int())
	assert.Equal(t, table.RoleNumeric, c.Role)
	assert.Len(t, res.ByRole(table.RoleDate), 0)
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "Company (Maker-if known)", CleanName("Company \n(Maker-if known)"))
	assert.Equal(t, "Cocoa Percent", CleanName("Cocoa\nPercent"))
	assert.Equal(t, "승차총승객수", CleanName(" 승차총승객수 \r\n"))
	assert.Equal(t, "", CleanName("  "))
}

package table

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPadsShortRecordsAndRenamesDuplicates(t *testing.T) {
	tb := New([]string{"a", "b", "a", "a"}, [][]string{
		{"1", "2", "3", "4"},
		{"5"},
	})
	assert.Equal(t, []string{"a", "b", "a.1", "a.2"}, tb.Names())
	assert.Equal(t, 2, tb.Len())

	b, ok := tb.Column("b")
	require.True(t, ok)
	assert.Equal(t, "", b.Values[1].String())
	assert.Equal(t, KindText, b.Values[1].Kind())
}

func TestAddColumnRejectsMismatchedRows(t *testing.T) {
	tb := New([]string{"x"}, [][]string{{"1"}, {"2"}})
	err := tb.AddColumn(&Column{Name: "y", Values: []Value{Int(1)}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRowCount))

	err = tb.AddColumn(&Column{Name: "x", Values: []Value{Int(1), Int(2)}})
	assert.True(t, errors.Is(err, ErrDuplicateColumn))

	require.NoError(t, tb.AddColumn(&Column{Name: "y", Role: RoleNumeric, Values: []Value{Int(1), Int(2)}}))
	assert.Equal(t, 2, tb.Width())
}

func TestEmptyTableTakesRowCountFromFirstColumn(t *testing.T) {
	tb := Empty()
	require.NoError(t, tb.AddColumn(&Column{Name: "k", Values: []Value{Text("a"), Text("b"), Text("c")}}))
	assert.Equal(t, 3, tb.Len())
}

func TestTakeAndCloneDoNotAlias(t *testing.T) {
	tb := New([]string{"k"}, [][]string{{"a"}, {"b"}, {"c"}})
	sub := tb.Take([]int{2, 0})
	assert.Equal(t, []string{"c", "a"}, sub.Distinct("k"))

	cl := tb.Clone()
	c, _ := cl.Column("k")
	c.Values[0] = Text("changed")
	orig, _ := tb.Column("k")
	assert.Equal(t, "a", orig.Values[0].String())
	assert.False(t, tb.Equal(cl))
}

func TestValueString(t *testing.T) {
	d := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		v    Value
		want string
	}{
		{Null(), ""},
		{Text("서울"), "서울"},
		{Int(1234), "1234"},
		{Float(70.5), "70.5"},
		{Date(d), "2025-10-01"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.v.String(), tc.v.Kind().String())
	}
	f, ok := Int(3).Float()
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)
	_, ok = Text("3").Float()
	assert.False(t, ok)
}

func TestRecordsRoundTrip(t *testing.T) {
	tb := New([]string{"a", "b"}, [][]string{{"1", "x"}, {"2", "y"}})
	h, recs := tb.Records()
	assert.Equal(t, []string{"a", "b"}, h)
	assert.Equal(t, [][]string{{"1", "x"}, {"2", "y"}}, recs)
	assert.True(t, New(h, recs).Equal(tb))
}

// Package export writes derived views as UTF-8-with-signature CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/KaramelBytes/dashcsv-cli/internal/present"
	"github.com/KaramelBytes/dashcsv-cli/internal/table"
	"github.com/KaramelBytes/dashcsv-cli/internal/utils"
)

// WriteCSV writes t to w as RFC 4180 CSV prefixed with a UTF-8 BOM.
func WriteCSV(w io.Writer, t *table.Table) error {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(tw)
	header, records := t.Records()
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return tw.Close()
}

// Bytes renders t the way WriteCSV does.
func Bytes(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile atomically writes t as CSV to path.
func WriteFile(path string, t *table.Table) error {
	b, err := Bytes(t)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, b)
}

// Summary describes a time series by its span and extremes.
type Summary struct {
	StartDate   time.Time
	EndDate     time.Time
	Rows        int
	ValueColumn string
	Min         float64
	Max         float64
	Latest      float64
	First       float64
	// PeakDate is the first date holding Max.
	PeakDate time.Time
}

// Trend classifies the change from the first to the latest value.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// trendThreshold is the percent change beyond which a series is not stable.
const trendThreshold = 10.0

type point struct {
	at time.Time
	v  float64
}

// Summarize orders t by dateCol and reports the measureCol series. Rows with
// a null date or a non-numeric measure are dropped.
func Summarize(t *table.Table, dateCol, measureCol string) (*Summary, error) {
	dc, ok := t.Column(dateCol)
	if !ok {
		return nil, fmt.Errorf("summary date column %q not found", dateCol)
	}
	mc, ok := t.Column(measureCol)
	if !ok {
		return nil, fmt.Errorf("summary measure column %q not found", measureCol)
	}
	var pts []point
	for i := range dc.Values {
		if dc.Values[i].Kind() != table.KindDate {
			continue
		}
		v, ok := mc.Values[i].Float()
		if !ok {
			continue
		}
		pts = append(pts, point{at: dc.Values[i].Time(), v: v})
	}
	if len(pts) == 0 {
		return nil, present.ErrEmptyFilterResult
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].at.Before(pts[j].at) })

	s := &Summary{
		StartDate:   pts[0].at,
		EndDate:     pts[len(pts)-1].at,
		Rows:        len(pts),
		ValueColumn: measureCol,
		Min:         pts[0].v,
		Max:         pts[0].v,
		Latest:      pts[len(pts)-1].v,
		First:       pts[0].v,
		PeakDate:    pts[0].at,
	}
	for _, p := range pts[1:] {
		if p.v < s.Min {
			s.Min = p.v
		}
		if p.v > s.Max {
			s.Max = p.v
			s.PeakDate = p.at
		}
	}
	return s, nil
}

// Days is the length of the covered period.
func (s *Summary) Days() int {
	return int(s.EndDate.Sub(s.StartDate).Hours() / 24)
}

// ChangePct is the percent change from the first to the latest value. It
// reports false when the first value is zero.
func (s *Summary) ChangePct() (float64, bool) {
	if s.First == 0 {
		return 0, false
	}
	return (s.Latest/s.First - 1) * 100, true
}

// Trend reports rising or falling beyond a 10% change, stable otherwise.
func (s *Summary) Trend() Trend {
	pct, ok := s.ChangePct()
	switch {
	case !ok:
		return TrendStable
	case pct > trendThreshold:
		return TrendRising
	case pct < -trendThreshold:
		return TrendFalling
	}
	return TrendStable
}

// Table renders the summary as a single-row table.
func (s *Summary) Table() *table.Table {
	t := table.Empty()
	add := func(name string, role table.Role, v table.Value) {
		_ = t.AddColumn(&table.Column{Name: name, Role: role, Values: []table.Value{v}})
	}
	add("start_date", table.RoleDate, table.Date(s.StartDate))
	add("end_date", table.RoleDate, table.Date(s.EndDate))
	add("rows", table.RoleNumeric, table.Int(int64(s.Rows)))
	add("value_column", table.RoleText, table.Text(s.ValueColumn))
	add("min_value", table.RoleNumeric, table.Float(s.Min))
	add("max_value", table.RoleNumeric, table.Float(s.Max))
	add("latest_value", table.RoleNumeric, table.Float(s.Latest))
	return t
}

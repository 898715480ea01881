package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"

	"github.com/KaramelBytes/dashcsv-cli/internal/utils"
)

const samplePrefix = "2025년10월_거주자_"

type sampleRegion struct {
	name  string
	total int
	base  float64
	decay float64
	older int
}

var sampleRegions = []sampleRegion{
	{"서울특별시  (1100000000)", 9246276, 40000, 0.98, 1343},
	{"서울특별시 종로구 (1111000000)", 135791, 400, 0.99, 32},
	{"서울특별시 중구 (1114000000)", 116927, 500, 0.99, 18},
}

// SyntheticPopulation returns a deterministic population-by-age CSV encoded
// as UTF-8 with a byte order mark. Columns: 행정구역, 총인구수, 0세..100세,
// 100세 이상.
func SyntheticPopulation() []byte {
	header := []string{"행정구역", samplePrefix + "총인구수"}
	for a := 0; a <= 100; a++ {
		header = append(header, fmt.Sprintf("%s%d세", samplePrefix, a))
	}
	header = append(header, samplePrefix+"100세 이상")

	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	_ = w.Write(header)
	for _, r := range sampleRegions {
		rec := []string{r.name, utils.Thousands(int64(r.total))}
		for a := 0; a <= 100; a++ {
			n := int(r.base * math.Pow(r.decay, float64(a)/10))
			rec = append(rec, utils.Thousands(int64(n)))
		}
		rec = append(rec, utils.Thousands(int64(r.older)))
		_ = w.Write(rec)
	}
	w.Flush()
	return buf.Bytes()
}

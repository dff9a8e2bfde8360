package models

// Metric field names in the fixed order used by the output document.
const (
	FieldMedianDOM     = "median_dom"
	FieldMedianPPSF    = "median_ppsf"
	FieldSoldAboveList = "sold_above_list"
)

// MetricFields is the positional contract between Document.Fields and every
// array in Document.Data.
var MetricFields = []string{FieldMedianDOM, FieldMedianPPSF, FieldSoldAboveList}

// RegionRecord is the retained state for one ZIP code: the values of the row
// with the latest period_end seen so far. A nil metric means the source value
// did not parse as a number.
type RegionRecord struct {
	Zip           string
	PeriodEnd     string
	MedianDOM     *float64
	MedianPPSF    *float64
	SoldAboveList *float64
}

// Values returns the metrics in MetricFields order.
func (r *RegionRecord) Values() [3]*float64 {
	return [3]*float64{r.MedianDOM, r.MedianPPSF, r.SoldAboveList}
}

// Document is the JSON artifact consumed downstream.
type Document struct {
	Generated string                 `json:"generated"`
	Fields    []string               `json:"fields"`
	Data      map[string][3]*float64 `json:"data"`
}

// Summary holds run-level figures computed over the reduced mapping.
type Summary struct {
	ZipCount     int
	NewestPeriod string
	OldestPeriod string
	// PeriodCounts maps period_end to the number of ZIPs whose latest row has it.
	PeriodCounts map[string]int
	// Coverage counts non-null values per metric, keyed by field name.
	Coverage map[string]int
	Averages map[string]float64
}

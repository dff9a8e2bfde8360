package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Column names looked up in the header row.
const (
	ColRegion        = "region"
	ColRegionType    = "region_type"
	ColPropertyType  = "property_type"
	ColPeriodEnd     = "period_end"
	ColMedianDOM     = "median_dom"
	ColMedianPPSF    = "median_ppsf"
	ColSoldAboveList = "sold_above_list"
)

var requiredColumns = []string{
	ColRegion, ColRegionType, ColPropertyType, ColPeriodEnd,
	ColMedianDOM, ColMedianPPSF, ColSoldAboveList,
}

var (
	// zipRegexp finds the first run of five digits, e.g. "Zip Code: 64119".
	zipRegexp = regexp.MustCompile(`\d{5}`)
	// numberPrefixRegexp accepts the longest leading decimal number, so
	// "12.5%" parses as 12.5 and "abc" does not parse at all.
	numberPrefixRegexp = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
)

const utf8BOM = "\ufeff"

// Columns holds the resolved positional index of every required field.
type Columns struct {
	Region        int
	RegionType    int
	PropertyType  int
	PeriodEnd     int
	MedianDOM     int
	MedianPPSF    int
	SoldAboveList int
}

// StripQuotes removes one enclosing pair of double quotes.
func StripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// SplitFields splits a line on the tab delimiter.
func SplitFields(line string) []string {
	return strings.Split(line, "\t")
}

// field returns the value at idx, or "" when the row is too short.
func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}

// ResolveColumns builds the name to index lookup from a header line. Every
// required column must be present; the returned error wraps ErrSchemaMismatch
// and names each missing column.
func ResolveColumns(header string) (Columns, error) {
	header = strings.TrimPrefix(header, utf8BOM)

	index := make(map[string]int)
	for i, name := range SplitFields(header) {
		name = strings.ToLower(StripQuotes(strings.TrimSpace(name)))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing *multierror.Error
	lookup := func(name string) int {
		idx, ok := index[name]
		if !ok {
			missing = multierror.Append(missing, fmt.Errorf("column %q not found", name))
			return -1
		}
		return idx
	}

	cols := Columns{
		Region:        lookup(ColRegion),
		RegionType:    lookup(ColRegionType),
		PropertyType:  lookup(ColPropertyType),
		PeriodEnd:     lookup(ColPeriodEnd),
		MedianDOM:     lookup(ColMedianDOM),
		MedianPPSF:    lookup(ColMedianPPSF),
		SoldAboveList: lookup(ColSoldAboveList),
	}

	if err := missing.ErrorOrNil(); err != nil {
		return Columns{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return cols, nil
}

// ExtractZip returns the first five-digit run in a region label.
func ExtractZip(region string) (string, bool) {
	zip := zipRegexp.FindString(region)
	return zip, zip != ""
}

// ParseMetric parses a numeric field, returning nil when the value has no
// leading number. Zero is a valid value.
func ParseMetric(raw string) *float64 {
	s := strings.TrimSpace(StripQuotes(strings.TrimSpace(raw)))
	match := numberPrefixRegexp.FindString(s)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &v
}

package services

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zip-market-etl/utils"
)

const testHeader = "region\tregion_type\tproperty_type\tperiod_end\tmedian_dom\tmedian_ppsf\tsold_above_list"

var testColumns = Columns{
	Region: 0, RegionType: 1, PropertyType: 2, PeriodEnd: 3,
	MedianDOM: 4, MedianPPSF: 5, SoldAboveList: 6,
}

func row(region, regionType, propertyType, period, dom, ppsf, above string) string {
	return strings.Join([]string{region, regionType, propertyType, period, dom, ppsf, above}, "\t")
}

func zipRow(zip, period, dom, ppsf, above string) string {
	return row("Zip Code: "+zip, RegionTypeZip, PropertyTypeAll, period, dom, ppsf, above)
}

func reduce(lines ...string) *Reducer {
	r := NewReducer(testColumns, utils.NewDiscardLogger(), 0)
	for _, l := range lines {
		r.ProcessLine(l)
	}
	return r
}

func TestReducerLatestWins(t *testing.T) {
	r := reduce(
		zipRow("64119", "2024-01-31", "30", "200", "0.2"),
		zipRow("64119", "2024-03-31", "10", "", "0.5"),
		zipRow("64119", "2024-02-29", "20", "210", "0.3"),
	)

	rec := r.Records()["64119"]
	require.NotNil(t, rec)
	assert.Equal(t, "2024-03-31", rec.PeriodEnd)
	require.NotNil(t, rec.MedianDOM)
	assert.Equal(t, 10.0, *rec.MedianDOM)
	assert.Nil(t, rec.MedianPPSF, "values must come from the latest row only")
	require.NotNil(t, rec.SoldAboveList)
	assert.Equal(t, 0.5, *rec.SoldAboveList)

	stats := r.Stats()
	assert.Equal(t, int64(1), stats.Inserted)
	assert.Equal(t, int64(1), stats.Replaced)
	assert.Equal(t, int64(1), stats.Stale)
}

func TestReducerTieKeepsFirst(t *testing.T) {
	first := zipRow("10001", "2024-03-31", "11", "900", "0.4")
	second := zipRow("10001", "2024-03-31", "99", "100", "0.9")

	r := reduce(first, second)
	rec := r.Records()["10001"]
	require.NotNil(t, rec)
	assert.Equal(t, 11.0, *rec.MedianDOM)
	assert.Equal(t, int64(1), r.Stats().TiesDiscarded)

	// Unrelated rows in between do not change the outcome.
	r = reduce(first, zipRow("20002", "2024-03-31", "1", "1", "1"), second)
	assert.Equal(t, 11.0, *r.Records()["10001"].MedianDOM)
}

func TestReducerFilters(t *testing.T) {
	r := reduce(
		row("Zip Code: 11111", "county", PropertyTypeAll, "2024-03-31", "1", "1", "1"),
		row("Zip Code: 22222", RegionTypeZip, "Single Family Residential", "2024-03-31", "1", "1", "1"),
		row("Zip Code: 33333", "Zip Code", PropertyTypeAll, "2024-03-31", "1", "1", "1"),
		row("Zip Code: 44444", RegionTypeZip, "all residential", "2024-03-31", "1", "1", "1"),
		zipRow("55555", "2024-03-31", "1", "1", "1"),
	)

	assert.Len(t, r.Records(), 1)
	assert.Contains(t, r.Records(), "55555")
	assert.Equal(t, int64(4), r.Stats().Filtered)
}

func TestReducerQuotedFields(t *testing.T) {
	r := reduce(row(`"Zip Code: 64119"`, `"zip code"`, `"All Residential"`, `"2024-03-31"`, `"10"`, `"250.5"`, `"0"`))

	rec := r.Records()["64119"]
	require.NotNil(t, rec)
	assert.Equal(t, "2024-03-31", rec.PeriodEnd)
	assert.Equal(t, 10.0, *rec.MedianDOM)
	assert.Equal(t, 250.5, *rec.MedianPPSF)
	require.NotNil(t, rec.SoldAboveList)
	assert.Equal(t, 0.0, *rec.SoldAboveList)
}

func TestReducerAllNullDiscarded(t *testing.T) {
	r := reduce(
		zipRow("64119", "2024-03-31", "", "NA", ""),
		zipRow("64120", "2024-03-31", "0", "", ""),
	)

	assert.NotContains(t, r.Records(), "64119")
	require.Contains(t, r.Records(), "64120")
	assert.Equal(t, 0.0, *r.Records()["64120"].MedianDOM, "zero is a value, not null")
	assert.Equal(t, int64(1), r.Stats().AllNull)
}

func TestReducerAllNullDoesNotReplace(t *testing.T) {
	r := reduce(
		zipRow("64119", "2024-02-29", "5", "", ""),
		zipRow("64119", "2024-03-31", "", "", ""),
	)

	assert.Equal(t, "2024-02-29", r.Records()["64119"].PeriodEnd)
}

func TestReducerZipExtraction(t *testing.T) {
	r := reduce(
		row("64119", RegionTypeZip, PropertyTypeAll, "2024-03-31", "1", "", ""),
		row("Zip Code: 641", RegionTypeZip, PropertyTypeAll, "2024-03-31", "1", "", ""),
		row("", RegionTypeZip, PropertyTypeAll, "2024-03-31", "1", "", ""),
	)

	assert.Len(t, r.Records(), 1)
	assert.Equal(t, "64119", r.Records()["64119"].Zip)
	assert.Equal(t, int64(2), r.Stats().NoZip)
}

func TestReducerBlankAndShortLines(t *testing.T) {
	r := reduce(
		"",
		"   ",
		"\t\t",
		"Zip Code: 64119\tzip code",
		"Zip Code: 64119\tzip code\tAll Residential\t2024-03-31\t7",
	)

	assert.Equal(t, int64(3), r.Stats().Blank)
	rec := r.Records()["64119"]
	require.NotNil(t, rec)
	assert.Equal(t, 7.0, *rec.MedianDOM)
	assert.Nil(t, rec.MedianPPSF)
	assert.Nil(t, rec.SoldAboveList)
}

func TestReducerPeriodComparedAsString(t *testing.T) {
	// Fixed-width ISO dates sort chronologically as strings.
	r := reduce(
		zipRow("64119", "2023-12-31", "1", "", ""),
		zipRow("64119", "2024-01-31", "2", "", ""),
	)
	assert.Equal(t, 2.0, *r.Records()["64119"].MedianDOM)
}

// within reports whether s points into the backing bytes of line.
func within(s, line string) bool {
	if s == "" {
		return false
	}
	start := uintptr(unsafe.Pointer(unsafe.StringData(line)))
	p := uintptr(unsafe.Pointer(unsafe.StringData(s)))
	return p >= start && p < start+uintptr(len(line))
}

func TestReducerRecordsDoNotPinLines(t *testing.T) {
	first := zipRow("64119", "2024-01-31", "1", "", "")
	latest := zipRow("64119", "2024-03-31", "2", "", "")
	r := reduce(first, latest)

	rec := r.Records()["64119"]
	require.NotNil(t, rec)
	assert.Equal(t, "64119", rec.Zip)
	assert.Equal(t, "2024-03-31", rec.PeriodEnd)
	assert.False(t, within(rec.Zip, latest), "zip must not share the line's memory")
	assert.False(t, within(rec.PeriodEnd, latest), "period_end must not share the line's memory")

	for key := range r.Records() {
		assert.False(t, within(key, latest), "map key must not share the line's memory")
	}
}

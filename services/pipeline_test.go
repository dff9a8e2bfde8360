package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zip-market-etl/utils"
)

func sampleTSV() string {
	lines := []string{
		"\"period_end\"\t\"region_type\"\t\"region\"\t\"property_type\"\t\"median_ppsf\"\t\"median_dom\"\t\"sold_above_list\"\t\"state_code\"",
		"2024-01-31\tzip code\tZip Code: 64119\tAll Residential\t180.5\t40\t0.1\tMO",
		"2024-03-31\tzip code\tZip Code: 64119\tAll Residential\t\t10\t0.5\tMO",
		"2024-03-31\tzip code\tZip Code: 64119\tSingle Family Residential\t999\t1\t1\tMO",
		"2024-03-31\tcounty\tJackson County, MO\tAll Residential\t150\t20\t0.2\tMO",
		"",
		"2024-02-29\t\"zip code\"\t\"Zip Code: 10001\"\t\"All Residential\"\t\"1200\"\t\"0\"\t\"0.3\"\tNY",
		"2024-02-29\tzip code\tZip Code: 10001\tAll Residential\t1\t1\t1\tNY",
		"2024-03-31\tzip code\tZip Code: 99999\tAll Residential\tNA\t\t\tAK",
		"2024-03-31\tzip code\tUnknown\tAll Residential\t1\t1\t1\tAK",
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

func TestPipelineRunGzip(t *testing.T) {
	p := NewPipeline(utils.NewDiscardLogger(), 2)

	res, err := p.Run(bytes.NewReader(gzipBytes(t, sampleTSV())))
	require.NoError(t, err)

	require.Len(t, res.Records, 2)

	kc := res.Records["64119"]
	require.NotNil(t, kc)
	assert.Equal(t, "2024-03-31", kc.PeriodEnd)
	assert.Equal(t, 10.0, *kc.MedianDOM)
	assert.Nil(t, kc.MedianPPSF)
	assert.Equal(t, 0.5, *kc.SoldAboveList)

	ny := res.Records["10001"]
	require.NotNil(t, ny)
	assert.Equal(t, 0.0, *ny.MedianDOM)
	assert.Equal(t, 1200.0, *ny.MedianPPSF)

	assert.Equal(t, int64(8), res.Stats.Rows)
	assert.Equal(t, int64(1), res.Stats.Blank)
	assert.Equal(t, int64(2), res.Stats.Filtered)
	assert.Equal(t, int64(1), res.Stats.NoZip)
	assert.Equal(t, int64(1), res.Stats.AllNull)
	assert.Equal(t, int64(1), res.Stats.TiesDiscarded)
	assert.Equal(t, int64(len(sampleTSV())), res.DecompressedBytes)
}

func TestPipelineSchemaMismatch(t *testing.T) {
	tsv := "region\tregion_type\tperiod_end\n64119\tzip code\t2024-03-31\n"

	_, err := NewPipeline(utils.NewDiscardLogger(), 0).Run(bytes.NewReader(gzipBytes(t, tsv)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestPipelineEmptyArchive(t *testing.T) {
	_, err := NewPipeline(utils.NewDiscardLogger(), 0).Run(bytes.NewReader(gzipBytes(t, "")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestPipelineCorruptArchive(t *testing.T) {
	data := gzipBytes(t, sampleTSV())

	_, err := NewPipeline(utils.NewDiscardLogger(), 0).Run(bytes.NewReader(data[:len(data)-10]))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecompression))
}

func TestPipelineRunPlain(t *testing.T) {
	res, err := NewPipeline(utils.NewDiscardLogger(), 0).RunPlain(strings.NewReader(sampleTSV()))
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
}

func TestPipelineIdempotentData(t *testing.T) {
	enc := NewEncoder()
	encodeData := func() []byte {
		res, err := NewPipeline(utils.NewDiscardLogger(), 0).Run(bytes.NewReader(gzipBytes(t, sampleTSV())))
		require.NoError(t, err)
		doc := enc.Build(res.Records)
		doc.Generated = ""
		b, err := enc.Encode(doc)
		require.NoError(t, err)
		return b
	}

	assert.Equal(t, string(encodeData()), string(encodeData()))
}

func TestPipelineFilterHoldsForPermutations(t *testing.T) {
	header := testHeader
	rows := []string{
		zipRow("11111", "2024-03-31", "1", "2", "3"),
		row("Zip Code: 22222", "county", PropertyTypeAll, "2024-03-31", "1", "2", "3"),
		row("Zip Code: 33333", RegionTypeZip, "Townhouse", "2024-03-31", "1", "2", "3"),
		zipRow("11111", "2024-04-30", "4", "5", "6"),
	}

	perms := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}
	for _, perm := range perms {
		var b strings.Builder
		b.WriteString(header + "\n")
		for _, i := range perm {
			b.WriteString(rows[i] + "\n")
		}

		res, err := NewPipeline(utils.NewDiscardLogger(), 0).RunPlain(strings.NewReader(b.String()))
		require.NoError(t, err)
		require.Len(t, res.Records, 1, "perm %v", perm)
		assert.Equal(t, "2024-04-30", res.Records["11111"].PeriodEnd, "perm %v", perm)
		assert.Equal(t, 4.0, *res.Records["11111"].MedianDOM, "perm %v", perm)
	}
}

func TestPipelineCarriageReturnLineEndings(t *testing.T) {
	tsv := testHeader + "\r" +
		zipRow("64119", "2024-03-31", "10", "", "0.5") + "\r" +
		zipRow("10001", "2024-02-29", "7", "900", "") + "\r"

	res, err := NewPipeline(utils.NewDiscardLogger(), 0).Run(bytes.NewReader(gzipBytes(t, tsv)))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 10.0, *res.Records["64119"].MedianDOM)
	assert.Equal(t, 900.0, *res.Records["10001"].MedianPPSF)
}

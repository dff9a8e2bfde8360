package storage

import (
	"sort"

	"zip-market-etl/models"
)

// RecordWriter is the interface any optional sink for the reduced mapping
// must satisfy.
type RecordWriter interface {
	Write(records []*models.RegionRecord) error
	Close() error
}

// DocumentWriter persists the encoded output document.
type DocumentWriter interface {
	WriteDocument(data []byte) error
}

// SortedRecords flattens the reduction mapping ordered by ZIP.
func SortedRecords(records map[string]*models.RegionRecord) []*models.RegionRecord {
	out := make([]*models.RegionRecord, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Zip < out[j].Zip })
	return out
}

package services

import (
	"encoding/json"
	"fmt"
	"time"

	"zip-market-etl/models"
)

// GeneratedLayout matches JavaScript's Date.toISOString output.
const GeneratedLayout = "2006-01-02T15:04:05.000Z07:00"

// Encoder projects the reduction mapping into the output document.
type Encoder struct {
	now func() time.Time
}

// NewEncoder creates an Encoder stamping documents with the current time.
func NewEncoder() *Encoder {
	return &Encoder{now: time.Now}
}

// Build creates the document for records. Metric values are copied, so
// later changes to records do not affect it.
func (e *Encoder) Build(records map[string]*models.RegionRecord) *models.Document {
	fields := make([]string, len(models.MetricFields))
	copy(fields, models.MetricFields)

	doc := &models.Document{
		Generated: e.now().UTC().Format(GeneratedLayout),
		Fields:    fields,
		Data:      make(map[string][3]*float64, len(records)),
	}
	for zip, rec := range records {
		var row [3]*float64
		for i, v := range rec.Values() {
			if v != nil {
				c := *v
				row[i] = &c
			}
		}
		doc.Data[zip] = row
	}
	return doc
}

// Encode serialises doc compactly. Map keys come out sorted, so identical
// mappings give identical data sections.
func (e *Encoder) Encode(doc *models.Document) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

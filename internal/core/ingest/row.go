package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row is one raw tabular record as it arrives from a CSV file or an
// already-parsed upload: arbitrary column names, string values. Rows never
// travel past the normalizer; everything downstream works on DeviceRecord.
type Row map[string]string

// CleanValue scrubs the placeholder tokens the Ubicell exports use for
// missing data. It returns "" when the value carries no information.
func CleanValue(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "", "-", "N/A", "n/a", "null", "NULL", "nan":
		return ""
	}
	return v
}

// ReadCSV decodes a delimited-text stream into rows keyed by the header line.
// Records with a column count that differs from the header are tolerated;
// extra columns are dropped and missing ones left absent.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		row := make(Row, len(header))
		for i, h := range header {
			if h == "" || i >= len(rec) {
				continue
			}
			row[h] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

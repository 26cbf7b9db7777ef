// Package ingest turns source files into RawRecord sequences for the
// pipeline: CSV inventory exports and, for discovery, packet captures. It
// is the I/O edge of the system; the pipeline itself never touches files.
package ingest

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// Source is one ingested file: its rows plus the identity and checksum the
// provenance tracker records.
type Source struct {
	SourceID string
	Checksum string
	Rows     []model.RawRecord
}

// ReadCSVFile parses a delimited inventory export. The first row is the
// header; empty rows are skipped. The checksum covers the raw file bytes.
func ReadCSVFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return readCSV(f, filepath.Base(path))
}

func readCSV(r io.Reader, sourceID string) (*Source, error) {
	hasher := sha256.New()
	reader := csv.NewReader(io.TeeReader(r, hasher))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return &Source{SourceID: sourceID, Rows: []model.RawRecord{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", sourceID, err)
	}

	rows := []model.RawRecord{}
	rowIndex := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d of %s: %w", rowIndex+1, sourceID, err)
		}
		fields := make(map[string]string, len(header))
		empty := true
		for i, col := range header {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			fields[col] = value
			if strings.TrimSpace(value) != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, model.RawRecord{
				Fields: fields,
				Source: model.SourceRef{SourceID: sourceID, RowIndex: rowIndex},
			})
		}
		rowIndex++
	}

	return &Source{
		SourceID: sourceID,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
		Rows:     rows,
	}, nil
}

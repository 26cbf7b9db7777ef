package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSVFile(t *testing.T) {
	path := writeTempCSV(t, "inventory.csv",
		"Tag,IP Address,Device Type\n"+
			"FT-101,10.0.0.1,Transmitter\n"+
			"PLC-01,10.0.0.2,PLC\n")

	source, err := ReadCSVFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "inventory.csv", source.SourceID)
	assert.Len(t, source.Checksum, 64)
	assert.Len(t, source.Rows, 2)

	assert.Equal(t, "FT-101", source.Rows[0].Fields["Tag"])
	assert.Equal(t, "10.0.0.1", source.Rows[0].Fields["IP Address"])
	assert.Equal(t, 0, source.Rows[0].Source.RowIndex)
	assert.Equal(t, "inventory.csv", source.Rows[0].Source.SourceID)
	assert.Equal(t, "PLC", source.Rows[1].Fields["Device Type"])
	assert.Equal(t, 1, source.Rows[1].Source.RowIndex)
}

func TestReadCSVFile_SkipsEmptyRows(t *testing.T) {
	path := writeTempCSV(t, "sparse.csv",
		"tag,ip\n"+
			"FT-101,10.0.0.1\n"+
			",\n"+
			"FT-102,10.0.0.2\n")

	source, err := ReadCSVFile(path)
	assert.NoError(t, err)
	assert.Len(t, source.Rows, 2)
	// Row indices count source rows, including the skipped one.
	assert.Equal(t, 0, source.Rows[0].Source.RowIndex)
	assert.Equal(t, 2, source.Rows[1].Source.RowIndex)
}

func TestReadCSVFile_RaggedRows(t *testing.T) {
	path := writeTempCSV(t, "ragged.csv",
		"tag,ip,unit\n"+
			"FT-101,10.0.0.1\n")

	source, err := ReadCSVFile(path)
	assert.NoError(t, err)
	assert.Len(t, source.Rows, 1)
	assert.Equal(t, "", source.Rows[0].Fields["unit"])
}

func TestReadCSVFile_HeaderOnly(t *testing.T) {
	path := writeTempCSV(t, "empty.csv", "tag,ip\n")
	source, err := ReadCSVFile(path)
	assert.NoError(t, err)
	assert.Empty(t, source.Rows)
}

func TestReadCSVFile_ChecksumStable(t *testing.T) {
	content := "tag,ip\nFT-101,10.0.0.1\n"
	a, err := ReadCSVFile(writeTempCSV(t, "a.csv", content))
	assert.NoError(t, err)
	b, err := ReadCSVFile(writeTempCSV(t, "b.csv", content))
	assert.NoError(t, err)
	c, err := ReadCSVFile(writeTempCSV(t, "c.csv", content+"FT-102,10.0.0.2\n"))
	assert.NoError(t, err)

	assert.Equal(t, a.Checksum, b.Checksum)
	assert.NotEqual(t, a.Checksum, c.Checksum)
}

func TestReadCSVFile_Missing(t *testing.T) {
	_, err := ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

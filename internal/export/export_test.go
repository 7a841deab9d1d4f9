package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func sample() []Bookmark {
	return Bookmarks([]Row{{"GitHub", 3}, {"Stack Overflow", 1}}, now)
}

func TestBookmarks(t *testing.T) {
	assert.Equal(t, []Bookmark{
		{Name: "GitHub", VisitCount: 3, ExportDate: "2026-10-15T12:00:00.000Z"},
		{Name: "Stack Overflow", VisitCount: 1, ExportDate: "2026-10-15T12:00:00.000Z"},
	}, sample())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, JSON, sample()))
	assert.Contains(t, buf.String(), "\n  {\n    \"name\": \"GitHub\"")

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "GitHub", got[0]["name"])
	assert.Equal(t, float64(3), got[0]["visitCount"])
	assert.Equal(t, "2026-10-15T12:00:00.000Z", got[0]["exportDate"])

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]", buf.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, CSV, sample()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"name", "visitCount", "exportDate"},
		{"GitHub", "3", "2026-10-15T12:00:00.000Z"},
		{"Stack Overflow", "1", "2026-10-15T12:00:00.000Z"},
	}, records)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, XLSX, sample()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"name", "visitCount", "exportDate"},
		{"GitHub", "3", "2026-10-15T12:00:00.000Z"},
		{"Stack Overflow", "1", "2026-10-15T12:00:00.000Z"},
	}, rows)
}

func TestRowCell(t *testing.T) {
	cell, err := rowCell(0)
	require.NoError(t, err)
	assert.Equal(t, "A2", cell)

	cell, err = rowCell(98)
	require.NoError(t, err)
	assert.Equal(t, "A100", cell)

	_, err = rowCell(-5)
	assert.Error(t, err)
}

func TestFormats(t *testing.T) {
	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, "navigation-bookmarks.json", JSON.Filename())
	assert.Equal(t, CSV, FormatFromPath("out/Bookmarks.CSV"))
	assert.Equal(t, XLSX, FormatFromPath("b.xlsx"))
	assert.Equal(t, JSON, FormatFromPath("b.txt"))
	assert.Contains(t, XLSX.ContentType(), "spreadsheetml")
}

// Package export writes visit-count bookmarks as JSON, CSV or XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type Bookmark struct {
	Name       string `json:"name"`
	VisitCount int    `json:"visitCount"`
	ExportDate string `json:"exportDate"`
}

type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

const baseName = "navigation-bookmarks"

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, CSV, XLSX:
		return f, nil
	case "":
		return JSON, nil
	default:
		return "", fmt.Errorf("export: unknown format %q (want json, csv or xlsx)", s)
	}
}

// FormatFromPath picks the format from a file extension, JSON by default.
func FormatFromPath(path string) Format {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".csv"):
		return CSV
	case strings.HasSuffix(strings.ToLower(path), ".xlsx"):
		return XLSX
	default:
		return JSON
	}
}

func (f Format) Filename() string { return baseName + "." + string(f) }

func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json; charset=utf-8"
	}
}

// Row is one site and its visit count.
type Row struct {
	Site  string
	Count int
}

// Bookmarks stamps rows with the export time.
func Bookmarks(rows []Row, now time.Time) []Bookmark {
	date := now.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	out := make([]Bookmark, 0, len(rows))
	for _, r := range rows {
		out = append(out, Bookmark{Name: r.Site, VisitCount: r.Count, ExportDate: date})
	}
	return out
}

func Write(w io.Writer, f Format, bookmarks []Bookmark) error {
	switch f {
	case JSON:
		return WriteJSON(w, bookmarks)
	case CSV:
		return WriteCSV(w, bookmarks)
	case XLSX:
		return WriteXLSX(w, bookmarks)
	default:
		return fmt.Errorf("export: unknown format %q", f)
	}
}

// WriteJSON writes an indented array; an empty export is "[]".
func WriteJSON(w io.Writer, bookmarks []Bookmark) error {
	if bookmarks == nil {
		bookmarks = []Bookmark{}
	}
	b, err := json.MarshalIndent(bookmarks, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

var header = []string{"name", "visitCount", "exportDate"}

func WriteCSV(w io.Writer, bookmarks []Bookmark) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, b := range bookmarks {
		if err := cw.Write([]string{b.Name, strconv.Itoa(b.VisitCount), b.ExportDate}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheet = "Bookmarks"

// rowCell names the first cell of data row i; row 1 holds the header.
func rowCell(i int) (string, error) {
	return excelize.CoordinatesToCellName(1, i+2)
}

func WriteXLSX(w io.Writer, bookmarks []Bookmark) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", []interface{}{header[0], header[1], header[2]}); err != nil {
		return err
	}
	for i, b := range bookmarks {
		cell, err := rowCell(i)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []interface{}{b.Name, b.VisitCount, b.ExportDate}); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

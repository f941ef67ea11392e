// Package dataset reads telemetry spreadsheets into RawRows and writes the
// annotated export back out in the same tabular shape.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"gridreplay/internal/models"

	"github.com/xuri/excelize/v2"
)

// Format of a spreadsheet file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported dataset format: use .csv or .xlsx")
	ErrNoHeader          = errors.New("dataset has no header row")
)

// requiredColumns must be present in the header. The others default to
// zero values when their column is absent.
var requiredColumns = []string{
	models.FieldIsDaytime,
	models.FieldSolarInputWatts,
	models.FieldGridStatus,
	models.FieldDemandWatts,
	models.FieldBatteryPercent,
}

// ParseFormat accepts "csv", "xlsx" and "excel", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// FormatFromFilename picks the format from the file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// Result is a decoded dataset. Cells that failed to parse are kept in
// RawRow.Malformed and summarized in Issues; they never reject the file.
type Result struct {
	Rows   []models.RawRow
	Issues []string
}

func Decode(r io.Reader, f Format) (*Result, error) {
	var (
		records [][]string
		err     error
	)
	switch f {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return decodeRecords(records)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// normalizeHeader maps titles like "Solar Input Watts" onto field names.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func decodeRecords(records [][]string) (*Result, error) {
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	columns := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		columns[normalizeHeader(h)] = i
	}
	for _, req := range requiredColumns {
		if _, ok := columns[req]; !ok {
			return nil, fmt.Errorf("missing required column: %s", req)
		}
	}

	res := &Result{Rows: make([]models.RawRow, 0, len(records)-1)}
	for line, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := parseRecord(rec, columns)
		row.Index = len(res.Rows)
		for _, f := range models.RawFields {
			if text, bad := row.Malformed[f]; bad {
				// line+2: one for the header, one for 1-based numbering
				res.Issues = append(res.Issues, fmt.Sprintf("line %d: malformed %s value %q", line+2, f, text))
			}
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRecord(rec []string, columns map[string]int) models.RawRow {
	var row models.RawRow

	cell := func(field string) (string, bool) {
		idx, ok := columns[field]
		if !ok {
			return "", false
		}
		if idx >= len(rec) {
			return "", true
		}
		return strings.TrimSpace(rec[idx]), true
	}
	bad := func(field, text string) {
		if row.Malformed == nil {
			row.Malformed = make(map[string]string)
		}
		row.Malformed[field] = text
	}
	num := func(field string, dst *float64) {
		text, ok := cell(field)
		if !ok {
			return
		}
		v, err := parseNumber(text)
		if err != nil {
			bad(field, text)
			return
		}
		*dst = v
	}
	flag := func(field string, dst *bool) {
		text, ok := cell(field)
		if !ok {
			return
		}
		v, err := parseBool(text)
		if err != nil {
			bad(field, text)
			return
		}
		*dst = v
	}

	row.Timestamp, _ = cell(models.FieldTimestamp)
	flag(models.FieldIsDaytime, &row.IsDaytime)
	num(models.FieldSolarInputWatts, &row.SolarInputWatts)
	if text, ok := cell(models.FieldGridStatus); ok {
		row.GridStatus = models.NormalizeGridStatus(text)
	}
	num(models.FieldDemandWatts, &row.DemandWatts)
	flag(models.FieldHeavyApplianceActive, &row.HeavyApplianceActive)
	num(models.FieldAmbientTempC, &row.AmbientTempC)
	row.WeatherCondition, _ = cell(models.FieldWeatherCondition)
	num(models.FieldBatteryPercent, &row.BatteryPercent)
	return row
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1", "1.0":
		return true, nil
	case "false", "f", "no", "n", "0", "0.0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

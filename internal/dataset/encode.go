package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gridreplay/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Sheet1"

var derivedFields = []string{
	models.FieldPowerSource,
	models.FieldBatteryAction,
	models.FieldBatteryEfficiency,
	models.FieldSolarContribution,
	models.FieldGridContribution,
	models.FieldBatteryContribution,
	models.FieldTotalConsumption,
	models.FieldBackupTime,
	models.FieldAlerts,
	models.FieldDischargeCycles,
}

// ExportHeader returns the input columns followed by the derived columns,
// in Title_Snake_Case.
func ExportHeader() []string {
	out := make([]string, 0, len(models.RawFields)+len(derivedFields))
	for _, f := range models.RawFields {
		out = append(out, columnTitle(f))
	}
	for _, f := range derivedFields {
		out = append(out, columnTitle(f))
	}
	return out
}

func columnTitle(field string) string {
	parts := strings.Split(field, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "_")
}

// Encode writes the export rows. Rows without an annotation get empty
// derived cells, as do derived fields that were skipped.
func Encode(w io.Writer, f Format, rows []models.ExportRow) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, rows)
	case FormatXLSX:
		return writeXLSX(w, rows)
	}
	return ErrUnsupportedFormat
}

func writeCSV(w io.Writer, rows []models.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader()); err != nil {
		return err
	}
	for _, r := range rows {
		values := exportValues(r)
		rec := make([]string, len(values))
		for i, v := range values {
			rec[i] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, rows []models.ExportRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header := ExportHeader()
	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &headerCells); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := exportValues(r)
		for j, v := range values {
			if v == nil {
				values[j] = ""
			}
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i, err)
		}
	}
	return f.Write(w)
}

// exportValues returns typed cell values; nil marks an empty cell.
func exportValues(r models.ExportRow) []any {
	raw := r.Raw
	rawCell := func(field string, v any) any {
		if text, bad := raw.Malformed[field]; bad {
			return text
		}
		return v
	}

	out := []any{
		raw.Timestamp,
		rawCell(models.FieldIsDaytime, raw.IsDaytime),
		rawCell(models.FieldSolarInputWatts, raw.SolarInputWatts),
		string(raw.GridStatus),
		rawCell(models.FieldDemandWatts, raw.DemandWatts),
		rawCell(models.FieldHeavyApplianceActive, raw.HeavyApplianceActive),
		rawCell(models.FieldAmbientTempC, raw.AmbientTempC),
		raw.WeatherCondition,
		rawCell(models.FieldBatteryPercent, raw.BatteryPercent),
	}

	a := r.Annotated
	if a == nil {
		return append(out, make([]any, len(derivedFields))...)
	}
	derived := func(field string, v any) any {
		if a.IsSkipped(field) {
			return nil
		}
		return v
	}
	msgs := make([]string, len(a.Alerts))
	for i, al := range a.Alerts {
		msgs[i] = al.Message
	}

	return append(out,
		derived(models.FieldPowerSource, string(a.PowerSource)),
		derived(models.FieldBatteryAction, string(a.BatteryAction)),
		a.BatteryEfficiency,
		derived(models.FieldSolarContribution, a.SolarContribution),
		derived(models.FieldGridContribution, a.GridContribution),
		derived(models.FieldBatteryContribution, a.BatteryContribution),
		derived(models.FieldTotalConsumption, a.TotalConsumptionKWh),
		derived(models.FieldBackupTime, a.EstimatedBackupHours),
		strings.Join(msgs, " | "),
		a.DischargeCycles,
	)
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

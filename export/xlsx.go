package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/warp/caseledger/inventory"
	"github.com/warp/caseledger/report"
	"github.com/xuri/excelize/v2"
)

const (
	ActivitySheet = "Master Activity Log"
	CountSheet    = "Daily Count Sheet"

	// first data row of the activity log
	activityFirstRow = 10
)

var activityColumns = []struct {
	col   string
	title string
	width float64
}{
	{"A", "DATE", 12},
	{"B", "DOCUMENT # / TRANS/REG", 18},
	{"D", "DEPT # & BRIEF ITEM DESCRIPTION", 36},
	{"F", "UPC", 16},
	{"G", "TICKET PRICE", 12},
	{"H", "DIA. TEST", 9},
	{"I", "ITEM CODE", 9},
	{"J", "REASON CODE", 9},
	{"K", "IN", 6},
	{"L", "OUT", 6},
	{"M", "INITIALS", 9},
}

// =============================================================================
// ACTIVITY LOG
// =============================================================================

// ActivityLogWorkbook lays out one case's activity for a day. The caller
// owns the returned file and must Close it.
func ActivityLogWorkbook(log report.ActivityLog) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ActivitySheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeActivityLog(f, log); err != nil {
		f.Close()
		return nil, fmt.Errorf("build activity log: %w", err)
	}
	return f, nil
}

func writeActivityLog(f *excelize.File, log report.ActivityLog) error {
	sh := ActivitySheet
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}

	month := strings.ToUpper(log.Date.Month().String())
	caseTitle := strings.TrimSpace(fmt.Sprintf("CASE #: %s %s", log.Case.Ref.Code, log.Case.Name))
	if err := f.SetCellValue(sh, "A1", "MONTH:  "+month); err != nil {
		return err
	}
	if err := f.SetCellValue(sh, "E1", caseTitle); err != nil {
		return err
	}

	header := activityFirstRow - 1
	for _, c := range activityColumns {
		cell := fmt.Sprintf("%s%d", c.col, header)
		if err := f.SetCellValue(sh, cell, c.title); err != nil {
			return err
		}
		if err := f.SetColWidth(sh, c.col, c.col, c.width); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sh, fmt.Sprintf("A%d", header), fmt.Sprintf("M%d", header), bold); err != nil {
		return err
	}

	for i, l := range log.Lines {
		row := activityFirstRow + i
		for _, m := range [][2]string{{"B", "C"}, {"D", "E"}} {
			if err := f.MergeCell(sh, fmt.Sprintf("%s%d", m[0], row), fmt.Sprintf("%s%d", m[1], row)); err != nil {
				return err
			}
		}
		values := map[string]any{
			"A": l.LocalDate.USString(),
			"B": l.DocNo,
			"D": l.Description,
			"F": string(l.UPC),
			"H": l.DiamondTest,
			"I": l.ItemCode,
			"J": l.ReasonCode,
			"M": l.Initials,
		}
		if l.TicketPrice.Valid {
			values["G"] = l.TicketPrice.Decimal.InexactFloat64()
		}
		if l.In > 0 {
			values["K"] = l.In
		}
		if l.Out > 0 {
			values["L"] = l.Out
		}
		for col, v := range values {
			if err := f.SetCellValue(sh, fmt.Sprintf("%s%d", col, row), v); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(sh, fmt.Sprintf("G%d", row), fmt.Sprintf("G%d", row), money); err != nil {
			return err
		}
	}

	totals := log.Totals()
	row := activityFirstRow + len(log.Lines) + 1
	for col, v := range map[string]any{"J": "TOTAL", "K": totals.In, "L": totals.Out, "M": totals.Net()} {
		if err := f.SetCellValue(sh, fmt.Sprintf("%s%d", col, row), v); err != nil {
			return err
		}
	}
	return f.SetCellStyle(sh, fmt.Sprintf("J%d", row), fmt.Sprintf("M%d", row), bold)
}

// WriteActivityLog renders the activity log workbook to w.
func WriteActivityLog(w io.Writer, log report.ActivityLog) error {
	f, err := ActivityLogWorkbook(log)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// =============================================================================
// COUNT SHEET
// =============================================================================

// Each weekday owns a ten-row block on the weekly count sheet.
var weekdayRows = map[string]int{
	"SUNDAY":    5,
	"MONDAY":    15,
	"TUESDAY":   25,
	"WEDNESDAY": 35,
	"THURSDAY":  45,
	"FRIDAY":    55,
	"SATURDAY":  65,
}

// category rows relative to the block start
var countRowOffsets = map[inventory.Category]int{
	inventory.CategoryNecklace: 3,
	inventory.CategoryEarring:  4,
	inventory.CategoryRing:     5,
	inventory.CategoryBracelet: 6,
	inventory.CategoryOther:    7,
}

// CountSheetRow returns the first row of the weekday block for a date.
func CountSheetRow(d inventory.LocalDate) int {
	return weekdayRows[strings.ToUpper(d.Weekday().String())]
}

// CountSheetWorkbook fills the weekday block of the count sheet for the
// sheet's date. The caller owns the returned file and must Close it.
func CountSheetWorkbook(sheet report.CountSheet) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", CountSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeCountSheet(f, sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("build count sheet: %w", err)
	}
	return f, nil
}

func writeCountSheet(f *excelize.File, s report.CountSheet) error {
	sh := CountSheet
	start := CountSheetRow(s.Date)
	day := strings.ToUpper(s.Date.Weekday().String())
	date := s.Date.USString()

	cells := map[string]any{
		fmt.Sprintf("A%d", start):   fmt.Sprintf("%s - TODAY'S DATE:   %s", day, date),
		fmt.Sprintf("Q%d", start):   fmt.Sprintf("CASE # %s", s.Case.Ref.Code),
		fmt.Sprintf("F%d", start+3): date,
	}
	for cat, off := range countRowOffsets {
		cells[fmt.Sprintf("I%d", start+off)] = strings.ToUpper(cat.Plural())
	}

	if cur := s.Current; cur != nil {
		for cat, off := range countRowOffsets {
			cells[fmt.Sprintf("J%d", start+off)] = s.CaseCounts[cat]
			cells[fmt.Sprintf("K%d", start+off)] = s.ReserveCounts[cat]
			cells[fmt.Sprintf("L%d", start+off)] = s.Combined[cat]
		}
		cells[fmt.Sprintf("F%d", start+5)] = s.DeclaredTotal
		if initials := report.Initials(cur.Actor.Name); initials != "" {
			cells[fmt.Sprintf("F%d", start+7)] = initials
		}
		if notes := strings.TrimSpace(cur.Notes); notes != "" {
			cells[fmt.Sprintf("T%d", start+3)] = notes
		}
	}

	summary := [][2]any{
		{"IN", s.Activity.In},
		{"OUT", s.Activity.Out},
		{"NET", s.Activity.Net()},
	}
	if s.Previous != nil {
		summary = append(summary,
			[2]any{"PREVIOUS DATE", s.PreviousDate.USString()},
			[2]any{"PREVIOUS TOTAL", s.PreviousTotal})
	}
	if s.ExpectedTotal != nil {
		summary = append(summary,
			[2]any{"EXPECTED", *s.ExpectedTotal},
			[2]any{"DISCREPANCY", *s.Discrepancy})
	}
	for i, kv := range summary {
		cells[fmt.Sprintf("V%d", start+3+i)] = kv[0]
		cells[fmt.Sprintf("W%d", start+3+i)] = kv[1]
	}

	for cell, v := range cells {
		if err := f.SetCellValue(sh, cell, v); err != nil {
			return err
		}
	}
	return nil
}

// WriteCountSheet renders the count sheet workbook to w.
func WriteCountSheet(w io.Writer, sheet report.CountSheet) error {
	f, err := CountSheetWorkbook(sheet)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

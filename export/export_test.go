package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/caseledger/export"
	"github.com/warp/caseledger/inventory"
	"github.com/warp/caseledger/report"
	"github.com/xuri/excelize/v2"
)

var c01 = inventory.CaseRef{Location: 1, Code: "01"}

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	recs, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	return recs
}

// =============================================================================
// CSV
// =============================================================================

func TestWriteInventoryCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []inventory.InventoryRow{{
		Key: inventory.RowKey{Case: c01, UPC: "111", Sub: inventory.SubReserve},
		Qty: 3, Category: inventory.CategoryRing, Description: "band, 14k",
	}}

	require.NoError(t, export.WriteInventoryCSV(&buf, export.CaseNames{c01: "Front"}, rows))

	recs := readCSV(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "case_code", recs[0][1])
	assert.Equal(t, []string{"1", "01", "Front", "RESERVE", "111", "Ring", "band, 14k", "3"}, recs[1])
}

func TestWriteHistoryCSV(t *testing.T) {
	clock, err := inventory.NewStoreClock("America/Phoenix")
	require.NoError(t, err)
	var buf bytes.Buffer
	events := []inventory.HistoryEvent{
		{
			ID: 7, TS: time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC), BatchID: uuid.New(),
			Actor: inventory.Actor{ID: "u-1", Name: "Dana"}, Action: inventory.ActionSold,
			UPC: "111", Qty: 1, From: c01, FromSub: inventory.SubCase,
			Sale: &inventory.SaleDetails{TransReg: "T1", DeptNo: "31", BriefDesc: "band",
				TicketPrice: decimal.RequireFromString("249.5"), DiamondTest: inventory.DiamondYes},
		},
		{ID: 8, TS: time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC), Action: inventory.ActionCaseCreate, To: c01},
	}

	require.NoError(t, export.WriteHistoryCSV(&buf, clock, events))

	recs := readCSV(t, &buf)
	require.Len(t, recs, 3)
	sold := recs[1]
	assert.Equal(t, "2025-03-11T03:00:00Z", sold[1])
	assert.Equal(t, "2025-03-10", sold[2], "local date uses the store zone")
	assert.Equal(t, "SOLD", sold[6])
	assert.Equal(t, "249.50", sold[19])
	assert.Equal(t, "Y", sold[20])
	assert.Equal(t, "", recs[2][8], "admin events carry no quantity")
	assert.Equal(t, "", recs[2][9])
}

func TestWriteCountsCSV(t *testing.T) {
	var buf bytes.Buffer
	snap := inventory.CountSnapshot{
		ID: 1, Case: c01, LocalDate: inventory.NewLocalDate(2025, 3, 10),
		RecordedAt:    time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
		Actor:         inventory.Actor{ID: "u-1", Name: "Dana"},
		CaseCounts:    inventory.CategoryCounts{inventory.CategoryRing: 2},
		ReserveCounts: inventory.CategoryCounts{inventory.CategoryRing: 1, inventory.CategoryBracelet: 4},
		DeclaredTotal: 8,
	}

	require.NoError(t, export.WriteCountsCSV(&buf, []inventory.CountSnapshot{snap}))

	recs := readCSV(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"bracelets", "rings", "earrings", "necklaces", "other"}, recs[0][6:11])
	assert.Equal(t, []string{"4", "3", "0", "0", "0", "7", "8", ""}, recs[1][6:])
}

// =============================================================================
// WORKBOOKS
// =============================================================================

func TestActivityLogWorkbook(t *testing.T) {
	log := report.ActivityLog{
		Case: inventory.Case{Ref: c01, Name: "Front"},
		Date: inventory.NewLocalDate(2025, 3, 10),
		Lines: []report.ActivityLine{
			{LocalDate: inventory.NewLocalDate(2025, 3, 10), DocNo: "SYS-2", Description: "FROM NEW-RECEIPTS - band",
				UPC: "111", ItemCode: "R", ReasonCode: "M", In: 1, Initials: "DS"},
			{LocalDate: inventory.NewLocalDate(2025, 3, 10), DocNo: "T1", Description: "31 - band", UPC: "111",
				TicketPrice: decimal.NewNullDecimal(decimal.RequireFromString("249.99")),
				DiamondTest: "Y", ItemCode: "R", ReasonCode: "S", Out: 1, Initials: "DS"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteActivityLog(&buf, log))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	get := func(cell string) string {
		v, err := f.GetCellValue(export.ActivitySheet, cell, excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "MONTH:  MARCH", get("A1"))
	assert.Equal(t, "CASE #: 01 Front", get("E1"))
	assert.Equal(t, "03/10/2025", get("A10"))
	assert.Equal(t, "FROM NEW-RECEIPTS - band", get("D10"))
	assert.Equal(t, "1", get("K10"))
	assert.Equal(t, "", get("L10"))
	assert.Equal(t, "T1", get("B11"))
	assert.Equal(t, "249.99", get("G11"))
	assert.Equal(t, "1", get("L11"))
	assert.Equal(t, "TOTAL", get("J13"))
	assert.Equal(t, "0", get("M13"))
}

func TestCountSheetWorkbook_WeekdayBlock(t *testing.T) {
	monday := inventory.NewLocalDate(2025, 3, 10)
	cur := inventory.CountSnapshot{
		Case: c01, LocalDate: monday, Actor: inventory.Actor{Name: "Dana Smith"},
		CaseCounts: inventory.CategoryCounts{inventory.CategoryRing: 2}, DeclaredTotal: 3, Notes: "ok",
	}
	expected, diff := 3, 0
	sheet := report.CountSheet{
		Case: inventory.Case{Ref: c01}, Date: monday, Current: &cur,
		CaseCounts:    cur.CaseCounts,
		ReserveCounts: inventory.CategoryCounts{inventory.CategoryRing: 1},
		Combined:      inventory.CategoryCounts{inventory.CategoryRing: 3},
		DeclaredTotal: 3,
		Activity:      report.DailyTotals{In: 1},
		ExpectedTotal: &expected, Discrepancy: &diff,
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteCountSheet(&buf, sheet))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	get := func(cell string) string {
		v, err := f.GetCellValue(export.CountSheet, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, 15, export.CountSheetRow(monday))
	assert.Equal(t, "MONDAY - TODAY'S DATE:   03/10/2025", get("A15"))
	assert.Equal(t, "CASE # 01", get("Q15"))
	assert.Equal(t, "RINGS", get("I20"))
	assert.Equal(t, "2", get("J20"))
	assert.Equal(t, "1", get("K20"))
	assert.Equal(t, "3", get("L20"))
	assert.Equal(t, "3", get("F20"))
	assert.Equal(t, "DS", get("F22"))
	assert.Equal(t, "ok", get("T18"))
	assert.Equal(t, "EXPECTED", get("V21"))
	assert.Equal(t, "3", get("W21"))
}

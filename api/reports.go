package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/warp/caseledger/export"
	"github.com/warp/caseledger/inventory"
	"go.uber.org/zap"
)

// =============================================================================
// REPORTS
// =============================================================================
//
//   GET /api/locations/{loc}/cases/{code}/reports/daily?date=        in/out/net + lines
//   GET /api/locations/{loc}/cases/{code}/reports/count-sheet?date=  count reconciliation
//   GET /api/locations/{loc}/cases/{code}/reports/variance?date=     count vs ledger
//
// date is YYYY-MM-DD or MM/DD/YYYY and defaults to today in the store zone.

// DailyReport returns a case's activity totals and lines for a day.
func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	ref, date, ok := h.reportParams(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	log, err := h.Reports.ActivityLines(ctx, ref, date)
	if err != nil {
		h.fail(w, r, "Failed to derive activity", err)
		return
	}
	totals, err := h.Reports.DailyActivityTotals(ctx, ref, date)
	if err != nil {
		h.fail(w, r, "Failed to derive totals", err)
		return
	}
	writeJSON(w, http.StatusOK, toDailyReportDTO(log, totals))
}

// CountSheet returns the count-sheet view of a case for a day.
func (h *Handler) CountSheet(w http.ResponseWriter, r *http.Request) {
	ref, date, ok := h.reportParams(w, r)
	if !ok {
		return
	}
	sheet, err := h.Reports.CountSheetView(r.Context(), ref, date)
	if err != nil {
		h.fail(w, r, "Failed to derive count sheet", err)
		return
	}
	writeJSON(w, http.StatusOK, toCountSheetDTO(sheet))
}

// CountVariance compares the latest count with live ledger totals.
func (h *Handler) CountVariance(w http.ResponseWriter, r *http.Request) {
	ref, date, ok := h.reportParams(w, r)
	if !ok {
		return
	}
	v, found, err := h.Reports.CountVariance(r.Context(), ref, date)
	if err != nil {
		h.fail(w, r, "Failed to derive variance", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "No count recorded on or before "+date.String(), nil)
		return
	}
	writeJSON(w, http.StatusOK, toVarianceDTO(v))
}

func (h *Handler) reportParams(w http.ResponseWriter, r *http.Request) (inventory.CaseRef, inventory.LocalDate, bool) {
	ref, err := caseParam(r)
	if err != nil {
		h.fail(w, r, "Invalid case", err)
		return inventory.CaseRef{}, inventory.LocalDate{}, false
	}
	date, err := h.dateParam(r)
	if err != nil {
		h.fail(w, r, "Invalid date", err)
		return inventory.CaseRef{}, inventory.LocalDate{}, false
	}
	return ref, date, true
}

// =============================================================================
// EXPORTS
// =============================================================================
//
//   GET /api/locations/{loc}/export/inventory.csv
//   GET /api/locations/{loc}/export/counts.csv
//   GET /api/locations/{loc}/cases/{code}/export/inventory.csv
//   GET /api/locations/{loc}/cases/{code}/export/activity.xlsx?date=
//   GET /api/locations/{loc}/cases/{code}/export/count-sheet.xlsx?date=
//   GET /api/export/history.csv        same filters as /api/history

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

// caseNames resolves display names for every case of a location.
func (h *Handler) caseNames(r *http.Request, loc inventory.LocationID) (export.CaseNames, error) {
	cases, err := h.Ledger.ListCases(r.Context(), loc)
	if err != nil {
		return nil, err
	}
	names := make(export.CaseNames, len(cases))
	for _, c := range cases {
		names[c.Ref] = c.Name
	}
	return names, nil
}

// ExportLocationInventory downloads every non-zero row of a location.
func (h *Handler) ExportLocationInventory(w http.ResponseWriter, r *http.Request) {
	loc, err := locationParam(r)
	if err != nil {
		h.fail(w, r, "Invalid location", err)
		return
	}
	if _, err := h.Ledger.Store().GetLocation(r.Context(), loc); err != nil {
		h.fail(w, r, "Failed to load location", err)
		return
	}
	rows, err := h.Ledger.Rows(r.Context(), inventory.RowFilter{Location: loc})
	if err != nil {
		h.fail(w, r, "Failed to load rows", err)
		return
	}
	names, err := h.caseNames(r, loc)
	if err != nil {
		h.fail(w, r, "Failed to load cases", err)
		return
	}
	attachment(w, contentTypeCSV, fmt.Sprintf("inventory_location_%d.csv", loc))
	if err := export.WriteInventoryCSV(w, names, rows); err != nil {
		h.Logger.Warn("inventory export interrupted", zap.Error(err))
	}
}

// ExportCaseInventory downloads the rows of one case.
func (h *Handler) ExportCaseInventory(w http.ResponseWriter, r *http.Request) {
	ref, err := caseParam(r)
	if err != nil {
		h.fail(w, r, "Invalid case", err)
		return
	}
	c, err := h.Ledger.GetCase(r.Context(), ref)
	if err != nil {
		h.fail(w, r, "Failed to load case", err)
		return
	}
	rows, err := h.Ledger.CaseRows(r.Context(), ref, nil)
	if err != nil {
		h.fail(w, r, "Failed to load rows", err)
		return
	}
	attachment(w, contentTypeCSV, fmt.Sprintf("case_%s.csv", fileSafe(string(ref.Code))))
	if err := export.WriteInventoryCSV(w, export.CaseNames{ref: c.Name}, rows); err != nil {
		h.Logger.Warn("case export interrupted", zap.Error(err))
	}
}

// ExportCounts downloads the snapshots of a location, newest first.
func (h *Handler) ExportCounts(w http.ResponseWriter, r *http.Request) {
	loc, err := locationParam(r)
	if err != nil {
		h.fail(w, r, "Invalid location", err)
		return
	}
	counts, err := h.Ledger.ListCounts(r.Context(), inventory.CountFilter{Location: loc, Limit: inventory.MaxHistoryPage})
	if err != nil {
		h.fail(w, r, "Failed to list counts", err)
		return
	}
	attachment(w, contentTypeCSV, fmt.Sprintf("counts_location_%d.csv", loc))
	if err := export.WriteCountsCSV(w, counts); err != nil {
		h.Logger.Warn("counts export interrupted", zap.Error(err))
	}
}

// ExportHistory downloads audit events matching the /api/history filters.
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	f, ok := h.historyFilter(w, r)
	if !ok {
		return
	}
	events, err := h.Ledger.History(r.Context(), f)
	if err != nil {
		h.fail(w, r, "Failed to query history", err)
		return
	}
	attachment(w, contentTypeCSV, "history.csv")
	if err := export.WriteHistoryCSV(w, h.Ledger.Clock(), events); err != nil {
		h.Logger.Warn("history export interrupted", zap.Error(err))
	}
}

// ExportActivityLog downloads the daily activity log workbook of a case.
func (h *Handler) ExportActivityLog(w http.ResponseWriter, r *http.Request) {
	ref, date, ok := h.reportParams(w, r)
	if !ok {
		return
	}
	log, err := h.Reports.ActivityLines(r.Context(), ref, date)
	if err != nil {
		h.fail(w, r, "Failed to derive activity", err)
		return
	}
	f, err := export.ActivityLogWorkbook(log)
	if err != nil {
		h.fail(w, r, "Failed to build workbook", err)
		return
	}
	defer f.Close()
	attachment(w, contentTypeXLSX, fmt.Sprintf("activity_%s_%s.xlsx", fileSafe(string(ref.Code)), date))
	if err := f.Write(w); err != nil {
		h.Logger.Warn("activity workbook write interrupted", zap.Error(err))
	}
}

// ExportCountSheet downloads the daily count sheet workbook of a case.
func (h *Handler) ExportCountSheet(w http.ResponseWriter, r *http.Request) {
	ref, date, ok := h.reportParams(w, r)
	if !ok {
		return
	}
	sheet, err := h.Reports.CountSheetView(r.Context(), ref, date)
	if err != nil {
		h.fail(w, r, "Failed to derive count sheet", err)
		return
	}
	f, err := export.CountSheetWorkbook(sheet)
	if err != nil {
		h.fail(w, r, "Failed to build workbook", err)
		return
	}
	defer f.Close()
	attachment(w, contentTypeXLSX, fmt.Sprintf("count_%s_%s.xlsx", fileSafe(string(ref.Code)), date))
	if err := f.Write(w); err != nil {
		h.Logger.Warn("count workbook write interrupted", zap.Error(err))
	}
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

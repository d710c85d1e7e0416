/*
Package export renders ledger views as CSV files and XLSX workbooks.

PURPOSE:
  Formatting only. Every function takes already-derived data (rows,
  events, counts, report views) and writes it out; nothing here reads the
  store or decides business rules.

FILES:
  csv.go:  inventory, case, history and count CSV exports
  xlsx.go: daily activity log and daily count sheet workbooks (excelize)

SEE ALSO:
  - report/:         Produces ActivityLog and CountSheet
  - api/handlers.go: Serves these as downloads
*/
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/warp/caseledger/inventory"
)

// TimestampLayout is used for UTC timestamps in every export.
const TimestampLayout = "2006-01-02T15:04:05Z"

// CaseNames resolves display names for case references.
type CaseNames map[inventory.CaseRef]string

// =============================================================================
// INVENTORY
// =============================================================================

var inventoryHeader = []string{
	"location_id", "case_code", "case_name", "sub_location", "upc", "item_type", "description", "qty",
}

// WriteInventoryCSV writes one line per non-zero ledger row.
func WriteInventoryCSV(w io.Writer, names CaseNames, rows []inventory.InventoryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(inventoryHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			strconv.FormatInt(int64(r.Key.Case.Location), 10),
			string(r.Key.Case.Code),
			names[r.Key.Case],
			string(r.Key.Sub),
			string(r.Key.UPC),
			string(r.Category),
			r.Description,
			strconv.Itoa(r.Qty),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// =============================================================================
// HISTORY
// =============================================================================

var historyHeader = []string{
	"id", "ts_utc", "local_date", "batch_id", "actor_id", "actor_name", "action", "upc", "qty",
	"from_location_id", "from_case_code", "from_sub", "to_location_id", "to_case_code", "to_sub",
	"notes", "trans_reg", "dept_no", "brief_desc", "ticket_price", "diamond_test",
}

// WriteHistoryCSV writes audit events in the order given.
func WriteHistoryCSV(w io.Writer, clock *inventory.StoreClock, events []inventory.HistoryEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return err
	}
	for _, e := range events {
		rec := []string{
			strconv.FormatInt(e.ID, 10),
			e.TS.UTC().Format(TimestampLayout),
			clock.DateOf(e.TS).String(),
			e.BatchID.String(),
			e.Actor.ID,
			e.Actor.Name,
			string(e.Action),
			string(e.UPC),
			qtyField(e),
			locationField(e.From.Location),
			string(e.From.Code),
			string(e.FromSub),
			locationField(e.To.Location),
			string(e.To.Code),
			string(e.ToSub),
			e.Notes,
		}
		if s := e.Sale; s != nil {
			rec = append(rec, s.TransReg, s.DeptNo, s.BriefDesc, s.TicketPrice.StringFixed(2), string(s.DiamondTest))
		} else {
			rec = append(rec, "", "", "", "", "")
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func qtyField(e inventory.HistoryEvent) string {
	if !e.Action.IsMovement() && e.Qty == 0 {
		return ""
	}
	return strconv.Itoa(e.Qty)
}

func locationField(id inventory.LocationID) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(int64(id), 10)
}

// =============================================================================
// COUNTS
// =============================================================================

// WriteCountsCSV writes one line per snapshot with combined counts per
// category in count-sheet order.
func WriteCountsCSV(w io.Writer, counts []inventory.CountSnapshot) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "recorded_at_utc", "local_date", "location_id", "case_code", "actor_name"}
	for _, c := range inventory.CountOrder {
		header = append(header, c.Plural())
	}
	header = append(header, "counted_total", "declared_total", "notes")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, s := range counts {
		combined := s.Combined()
		rec := []string{
			strconv.FormatInt(s.ID, 10),
			s.RecordedAt.UTC().Format(TimestampLayout),
			s.LocalDate.String(),
			strconv.FormatInt(int64(s.Case.Location), 10),
			string(s.Case.Code),
			s.Actor.Name,
		}
		for _, c := range inventory.CountOrder {
			rec = append(rec, strconv.Itoa(combined[c]))
		}
		rec = append(rec, strconv.Itoa(s.CountedTotal()), strconv.Itoa(s.DeclaredTotal), s.Notes)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

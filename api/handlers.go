/*
handlers.go - HTTP API handlers for the case ledger

PURPOSE:
  Exposes the ledger, registry, counts and reports over JSON. Handlers
  parse the request, resolve the actor from headers, call the inventory
  or report package, and serialize the result. No business rule lives here.

ENDPOINTS:
  Locations:
    GET    /api/locations                                  List locations
    POST   /api/locations                                  Create location (+ virtual cases)
    POST   /api/locations/{loc}/deactivate                 Deactivate an empty location

  Cases:
    GET    /api/locations/{loc}/cases                      Active cases with totals
    POST   /api/locations/{loc}/cases                      Create case
    GET    /api/locations/{loc}/cases/{code}               Case detail, totals, rows
    PUT    /api/locations/{loc}/cases/{code}               Rename
    DELETE /api/locations/{loc}/cases/{code}               Archive (must be empty)

  Movements:
    POST   /api/locations/{loc}/receive                    Into NEW-RECEIPTS
    POST   /api/locations/{loc}/returns                    Into RETURNS
    POST   /api/locations/{loc}/cases/{code}/move          Case to case
    POST   /api/locations/{loc}/cases/{code}/sell          SOLD
    POST   /api/locations/{loc}/cases/{code}/missing       MISSING
    POST   /api/locations/{loc}/cases/{code}/relocate      CASE <-> RESERVE

  History and counts:
    GET    /api/history                                    Filtered audit log
    GET    /api/locations/{loc}/cases/{code}/history       One case's events
    GET    /api/locations/{loc}/cases/{code}/counts        Snapshots, newest first
    POST   /api/locations/{loc}/cases/{code}/counts        Record a count

  See reports.go for report and export endpoints.

ACTOR:
  X-Actor-ID (required on writes) and X-Actor-Name identify the caller.
  Authentication happens upstream; the ledger trusts what it is given.

ERROR HANDLING:
  - 400: Validation errors, invalid input
  - 404: Unknown case or location
  - 409: Insufficient quantity (with itemized shortfalls), duplicate code,
         non-empty case or location
  - 500: Invariant violations and unexpected failures
  - 503: Transient store failures, safe to retry after re-validation

SEE ALSO:
  - dto.go:     Request/response data structures
  - reports.go: Report and export handlers
  - server.go:  Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/caseledger/inventory"
	"github.com/warp/caseledger/report"
	"go.uber.org/zap"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger  *inventory.Ledger
	Reports *report.Deriver
	Logger  *zap.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over a ledger. The deriver reads the same
// store with the ledger's clock.
func NewHandler(ledger *inventory.Ledger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Ledger:  ledger,
		Reports: report.NewDeriver(ledger.Store(), ledger.Clock()),
		Logger:  logger,
	}
}

func actorFrom(r *http.Request) inventory.Actor {
	return inventory.Actor{
		ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
		Name: strings.TrimSpace(r.Header.Get(HeaderActorName)),
	}
}

func locationParam(r *http.Request) (inventory.LocationID, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "loc"), 10, 64)
	if err != nil || id <= 0 {
		return 0, inventory.ErrUnknownLocation
	}
	return inventory.LocationID(id), nil
}

func caseParam(r *http.Request) (inventory.CaseRef, error) {
	loc, err := locationParam(r)
	if err != nil {
		return inventory.CaseRef{}, err
	}
	code, err := inventory.NormalizeCaseCode(chi.URLParam(r, "code"))
	if err != nil {
		return inventory.CaseRef{}, err
	}
	return inventory.CaseRef{Location: loc, Code: code}, nil
}

// dateParam reads ?date=, defaulting to today in the store zone.
func (h *Handler) dateParam(r *http.Request) (inventory.LocalDate, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return h.Ledger.Clock().Today(), nil
	}
	return inventory.ParseLocalDate(raw)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// =============================================================================
// LOCATIONS
// =============================================================================

// ListLocations returns every location.
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.Ledger.Locations(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list locations", err)
		return
	}
	out := make([]LocationDTO, 0, len(locs))
	for _, l := range locs {
		out = append(out, toLocationDTO(l))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateLocation creates a location together with its virtual cases.
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req CreateLocationRequest
	if !decode(w, r, &req) {
		return
	}
	loc, err := h.Ledger.CreateLocation(r.Context(), actorFrom(r), req.Name)
	if err != nil {
		h.fail(w, r, "Failed to create location", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLocationDTO(loc))
}

// DeactivateLocation marks an empty location inactive.
func (h *Handler) DeactivateLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := locationParam(r)
	if err != nil {
		h.fail(w, r, "Invalid location", err)
		return
	}
	if err := h.Ledger.DeactivateLocation(r.Context(), actorFrom(r), loc); err != nil {
		h.fail(w, r, "Failed to deactivate location", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CASES
// =============================================================================

// ListCases returns the active cases of a location with their totals.
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	loc, err := locationParam(r)
	if err != nil {
		h.fail(w, r, "Invalid location", err)
		return
	}
	cases, err := h.Ledger.ListCases(r.Context(), loc)
	if err != nil {
		h.fail(w, r, "Failed to list cases", err)
		return
	}
	out := make([]CaseDTO, 0, len(cases))
	for _, c := range cases {
		dto := toCaseDTO(c.Case)
		dto.Totals = &TotalsDTO{Quantity: c.Quantity, DistinctUPCs: c.DistinctUPCs}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateCase adds a physical case to a location.
func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	loc, err := locationParam(r)
	if err != nil {
		h.fail(w, r, "Invalid location", err)
		return
	}
	var req CreateCaseRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.Ledger.CreateCase(r.Context(), actorFrom(r), loc, req.Code, req.Name)
	if err != nil {
		h.fail(w, r, "Failed to create case", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCaseDTO(c))
}

// GetCase returns a case with combined, CASE and RESERVE totals, category
// totals and its rows.
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	ref, err := caseParam(r)
	if err != nil {
		h.fail(w, r, "Invalid case", err)
		return
	}
	ctx := r.Context()
	c, err := h.Ledger.GetCase(ctx, ref)
	if err != nil {
		h.fail(w, r, "Failed to load case", err)
		return
	}
	rows, err := h.Ledger.CaseRows(ctx, ref, nil)
	if err != nil {
		h.fail(w, r, "Failed to load case rows", err)
		return
	}

	dto := CaseDetailDTO{CaseDTO: toCaseDTO(c), Rows: make([]RowDTO, 0, len(rows))}
	var caseRows, reserveRows []inventory.InventoryRow
	for _, row := range rows {
		dto.Rows = append(dto.Rows, RowDTO{
			UPC: string(row.Key.UPC), Sub: string(row.Key.Sub), Qty: row.Qty,
			Category: string(row.Category), Description: row.Description,
		})
		if row.Key.Sub == inventory.SubReserve {
			reserveRows = append(reserveRows, row)
		} else {
			caseRows = append(caseRows, row)
		}
	}
	dto.Combined = totalsDTO(inventory.SumRows(rows))
	dto.CaseSub = totalsDTO(inventory.SumRows(caseRows))
	dto.Reserve = totalsDTO(inventory.SumRows(reserveRows))
	byCat := inventory.GroupByCategory(rows)
	dto.ByCategory = countsDTO(byCat.ByCategory)
	dto.Unknown = byCat.Unknown
	writeJSON(w, http.StatusOK, dto)
}

func totalsDTO(t inventory.Totals) TotalsDTO {
	return TotalsDTO{Quantity: t.Quantity, DistinctUPCs: t.DistinctUPCs}
}

// RenameCase changes a case's display name.
func (h *Handler) RenameCase(w http.ResponseWriter, r *http.Request) {
	ref, err := caseParam(r)
	if err != nil {
		h.fail(w, r, "Invalid case", err)
		return
	}
	var req RenameCaseRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Ledger.RenameCase(r.Context(), actorFrom(r), ref, req.Name); err != nil {
		h.fail(w, r, "Failed to rename case", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveCase deactivates an empty physical case.
func (h *Handler) ArchiveCase(w http.ResponseWriter, r *http.Request) {
	ref, err := caseParam(r)
	if err != nil {
		h.fail(w, r, "Invalid case", err)
		return
	}
	if err := h.Ledger.ArchiveCase(r.Context(), actorFrom(r), ref); err != nil {
		h.fail(w, r, "Failed to archive case", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// MOVEMENTS
// =============================================================================

// Receive takes stock into the location's NEW-RECEIPTS case.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	loc, err := locationParam(r)
	if err != nil {
		h.fail(w, r, "Invalid location", err)
		return
	}
	var req ReceiveRequest
	if !decode(w, r, &req) {
		return
	}
	cat, err := inventory.ParseCategory(req.Category)
	if err != nil {
		h.fail(w, r, "Invalid category", err)
		return
	}
	receipt, err := h.Ledger.Receive(r.Context(), actorFrom(r), inventory.ReceiveRequest{
		Location: loc, Lines: req.toLines(), Category: cat,
		Description: req.Description, Notes: req.Notes,
	})
	h.respondReceipt(w, r, "Failed to receive", receipt, err)
}

// Return takes customer returns into the location's RETURNS case.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	loc, err := locationParam(r)
	if err != nil {
		h.fail(w, r, "Invalid location", err)
		return
	}
	var req ReturnRequest
	if !decode(w, r, &req) {
		return
	}
	sale, err := inventory.ParseSale(req.Sale.input(), false)
	if err != nil {
		h.fail(w, r, "Invalid sale details", err)
		return
	}
	var cat inventory.Category
	if strings.TrimSpace(req.Category) != "" {
		if cat, err = inventory.ParseCategory(req.Category); err != nil {
			h.fail(w, r, "Invalid category", err)
			return
		}
	}
	receipt, err := h.Ledger.Return(r.Context(), actorFrom(r), inventory.ReturnRequest{
		Location: loc, Lines: req.toLines(), Sale: sale, Category: cat,
		Description: req.Description, Notes: req.Notes,
	})
	h.respondReceipt(w, r, "Failed to record return", receipt, err)
}

// Move transfers stock from the case in the path to another case.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	from, err := caseParam(r)
	if err != nil {
		h.fail(w, r, "Invalid case", err)
		return
	}
	var req MoveRequest
	if !decode(w, r, &req) {
		return
	}
	toCode, err := inventory.NormalizeCaseCode(req.ToCase)
	if err != nil {
		h.fail(w, r, "Invalid destination case", err)
		return
	}
	to := inventory.CaseRef{Location: from.Location, Code: toCode}
	if req.ToLocation != 0 {
		to.Location = inventory.LocationID(req.ToLocation)
	}
	sub, err := inventory.ParseSubLocation(req.Sub)
	if err != nil {
		h.fail(w, r, "Invalid sub-location", err)
		return
	}
	receipt, err := h.Ledger.Move(r.Context(), actorFrom(r), inventory.MoveRequest{
		From: from, To: to, Sub: sub, Lines: req.toLines(),
		Description: req.Description, Notes: req.Notes,
	})
	h.respondReceipt(w, r, "Failed to move", receipt, err)
}

// Sell records a sale out of the case in the path.
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	from, err := caseParam(r)
	if err != nil {
		h.fail(w, r, "Invalid case", err)
		return
	}
	var req SellRequest
	if !decode(w, r, &req) {
		return
	}
	sale, err := inventory.ParseSale(req.Sale.input(), true)
	if err != nil {
		h.fail(w, r, "Invalid sale details", err)
		return
	}
	sub, err := inventory.ParseSubLocation(req.Sub)
	if err != nil {
		h.fail(w, r, "Invalid sub-location", err)
		return
	}
	receipt, err := h.Ledger.Sell(r.Context(), actorFrom(r), inventory.SellRequest{
		From: from, Sub: sub, Lines: req.toLines(), Sale: sale, Notes: req.Notes,
	})
	h.respondReceipt(w, r, "Failed to sell", receipt, err)
}

// MarkMissing records missing stock out of the case in the path.
func (h *Handler) MarkMissing(w http.ResponseWriter, r *http.Request) {
	from, err := caseParam(r)
	if err != nil {
		h.fail(w, r, "Invalid case", err)
		return
	}
	var req MissingRequest
	if !decode(w, r, &req) {
		return
	}
	sub, err := inventory.ParseSubLocation(req.Sub)
	if err != nil {
		h.fail(w, r, "Invalid sub-location", err)
		return
	}
	receipt, err := h.Ledger.MarkMissing(r.Context(), actorFrom(r), inventory.MissingRequest{
		From: from, Sub: sub, Lines: req.toLines(), Notes: req.Notes,
	})
	h.respondReceipt(w, r, "Failed to mark missing", receipt, err)
}

// Relocate moves stock between CASE and RESERVE of the case in the path.
func (h *Handler) Relocate(w http.ResponseWriter, r *http.Request) {
	ref, err := caseParam(r)
	if err != nil {
		h.fail(w, r, "Invalid case", err)
		return
	}
	var req RelocateRequest
	if !decode(w, r, &req) {
		return
	}
	fromSub, err := inventory.ParseSubLocation(req.FromSub)
	if err != nil {
		h.fail(w, r, "Invalid from_sub", err)
		return
	}
	toSub, err := inventory.ParseSubLocation(req.ToSub)
	if err != nil {
		h.fail(w, r, "Invalid to_sub", err)
		return
	}
	receipt, err := h.Ledger.Relocate(r.Context(), actorFrom(r), inventory.RelocateRequest{
		Case: ref, FromSub: fromSub, ToSub: toSub, Lines: req.toLines(), Notes: req.Notes,
	})
	h.respondReceipt(w, r, "Failed to relocate", receipt, err)
}

func (h *Handler) respondReceipt(w http.ResponseWriter, r *http.Request, msg string, receipt inventory.Receipt, err error) {
	if err != nil {
		h.fail(w, r, msg, err)
		return
	}
	clock := h.Ledger.Clock()
	dto := ReceiptDTO{BatchID: receipt.BatchID.String(), Units: receipt.Units(), Events: make([]EventDTO, 0, len(receipt.Events))}
	for _, e := range receipt.Events {
		dto.Events = append(dto.Events, toEventDTO(clock, e))
	}
	writeJSON(w, http.StatusCreated, dto)
}

// =============================================================================
// HISTORY
// =============================================================================

// ListHistory queries the audit log. Query parameters: location, case
// (with location), upc, action (repeatable), from, to (RFC 3339), limit.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	f, ok := h.historyFilter(w, r)
	if !ok {
		return
	}
	h.writeEvents(w, r, f)
}

func (h *Handler) historyFilter(w http.ResponseWriter, r *http.Request) (inventory.HistoryFilter, bool) {
	q := r.URL.Query()
	var f inventory.HistoryFilter

	if s := q.Get("location"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid location", err)
			return f, false
		}
		f.Location = inventory.LocationID(id)
	}
	if s := q.Get("case"); s != "" {
		if f.Location == 0 {
			writeError(w, http.StatusBadRequest, "case requires location", nil)
			return f, false
		}
		code, err := inventory.NormalizeCaseCode(s)
		if err != nil {
			h.fail(w, r, "Invalid case", err)
			return f, false
		}
		f.Case = &inventory.CaseRef{Location: f.Location, Code: code}
	}
	f.UPC = inventory.UPC(strings.TrimSpace(q.Get("upc")))
	for _, a := range q["action"] {
		f.Actions = append(f.Actions, inventory.Action(strings.ToUpper(strings.TrimSpace(a))))
	}
	for key, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		if s := q.Get(key); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid "+key+" (use RFC 3339)", err)
				return f, false
			}
			*dst = t
		}
	}
	n, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return f, false
	}
	f.Limit = n
	return f, true
}

// limitParam reads ?limit=. Absent means 0 (the store default).
func limitParam(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("limit %d is negative", n)
	}
	return n, nil
}

// CaseHistory returns the newest events touching one case.
func (h *Handler) CaseHistory(w http.ResponseWriter, r *http.Request) {
	ref, err := caseParam(r)
	if err != nil {
		h.fail(w, r, "Invalid case", err)
		return
	}
	if _, err := h.Ledger.GetCase(r.Context(), ref); err != nil {
		h.fail(w, r, "Failed to load case", err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	h.writeEvents(w, r, inventory.HistoryFilter{Case: &ref, Limit: limit})
}

func (h *Handler) writeEvents(w http.ResponseWriter, r *http.Request, f inventory.HistoryFilter) {
	events, err := h.Ledger.History(r.Context(), f)
	if err != nil {
		h.fail(w, r, "Failed to query history", err)
		return
	}
	clock := h.Ledger.Clock()
	out := make([]EventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, toEventDTO(clock, e))
	}
	writeJSON(w, http.StatusOK, out)
}

// RecordAdminEvent appends a USER_CREATE or USER_DISABLE event on behalf of
// the external user administration.
func (h *Handler) RecordAdminEvent(w http.ResponseWriter, r *http.Request) {
	var req AdminEventRequest
	if !decode(w, r, &req) {
		return
	}
	action := inventory.Action(strings.ToUpper(strings.TrimSpace(req.Action)))
	e, err := h.Ledger.RecordAdmin(r.Context(), actorFrom(r), action, req.Notes)
	if err != nil {
		h.fail(w, r, "Failed to record event", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(h.Ledger.Clock(), e))
}

// =============================================================================
// COUNTS
// =============================================================================

// RecordCount stores a physical count for the case in the path.
func (h *Handler) RecordCount(w http.ResponseWriter, r *http.Request) {
	ref, err := caseParam(r)
	if err != nil {
		h.fail(w, r, "Invalid case", err)
		return
	}
	var req RecordCountRequest
	if !decode(w, r, &req) {
		return
	}
	date := h.Ledger.Clock().Today()
	if req.Date != "" {
		if date, err = inventory.ParseLocalDate(req.Date); err != nil {
			h.fail(w, r, "Invalid date", err)
			return
		}
	}
	caseCounts, err := parseCounts(req.CaseCounts)
	if err != nil {
		h.fail(w, r, "Invalid case_counts", err)
		return
	}
	reserveCounts, err := parseCounts(req.ReserveCounts)
	if err != nil {
		h.fail(w, r, "Invalid reserve_counts", err)
		return
	}

	snap, err := h.Ledger.RecordCount(r.Context(), actorFrom(r), inventory.CountInput{
		Case: ref, LocalDate: date, CaseCounts: caseCounts, ReserveCounts: reserveCounts,
		DeclaredTotal: req.DeclaredTotal, Notes: req.Notes,
	})
	if err != nil {
		h.fail(w, r, "Failed to record count", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCountDTO(snap))
}

// parseCounts accepts category names, plurals or one-letter codes as keys.
func parseCounts(in map[string]int) (inventory.CategoryCounts, error) {
	out := make(inventory.CategoryCounts, len(in))
	for k, v := range in {
		cat, err := inventory.ParseCategory(k)
		if err != nil {
			return nil, err
		}
		out[cat] += v
	}
	return out, nil
}

// ListCounts returns a case's snapshots newest first.
func (h *Handler) ListCounts(w http.ResponseWriter, r *http.Request) {
	ref, err := caseParam(r)
	if err != nil {
		h.fail(w, r, "Invalid case", err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	counts, err := h.Ledger.ListCounts(r.Context(), inventory.CountFilter{Case: &ref, Limit: limit})
	if err != nil {
		h.fail(w, r, "Failed to list counts", err)
		return
	}
	out := make([]CountDTO, 0, len(counts))
	for _, c := range counts {
		out = append(out, toCountDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// RESPONSES
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps the inventory error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrInvariantViolation):
		return http.StatusInternalServerError
	case inventory.IsRetryable(err):
		return http.StatusServiceUnavailable
	case inventory.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrInsufficientQuantity),
		errors.Is(err, inventory.ErrDuplicateCase),
		errors.Is(err, inventory.ErrCaseNotEmpty),
		errors.Is(err, inventory.ErrLocationNotEmpty):
		return http.StatusConflict
	case inventory.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes the mapped error response. Server-side failures are logged;
// client errors were already logged by the ledger.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err), zap.String("path", r.URL.Path), zap.Int("status", status))
	}

	resp := ErrorResponse{Error: message, Details: err.Error()}
	var batch *inventory.BatchError
	var short *inventory.InsufficientQuantityError
	switch {
	case errors.As(err, &batch):
		for _, s := range batch.Shortfalls {
			resp.Shortfalls = append(resp.Shortfalls, toShortfallDTO(s))
		}
	case errors.As(err, &short):
		resp.Shortfalls = []ShortfallDTO{toShortfallDTO(*short)}
	}
	writeJSON(w, status, resp)
}

func toShortfallDTO(s inventory.InsufficientQuantityError) ShortfallDTO {
	return ShortfallDTO{UPC: string(s.UPC), Sub: string(s.Sub), Have: s.Have, Need: s.Need}
}

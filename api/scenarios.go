/*
scenarios.go - Demo data loaders

PURPOSE:
  Seeds a fresh database with a realistic store so the API and the printed
  sheets can be tried without a scanner. Every scenario goes through the
  ledger operations, so the seeded data carries the same audit trail as
  real traffic. Loading a scenario adds a new location; nothing is reset.

SCENARIOS:
  storefront:            One store, three cases, receipts moved into cases,
                         a sale, a missing item and a reserve relocation
  count-reconciliation:  A case counted on two consecutive days with the
                         day's activity in between

SEE ALSO:
  - handlers.go: Handler struct
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/caseledger/inventory"
	"go.uber.org/zap"
)

var demoActor = inventory.Actor{ID: "demo", Name: "Demo Loader"}

var scenarios = []ScenarioDTO{
	{
		ID:          "storefront",
		Name:        "Storefront",
		Description: "Receipts moved into cases, a sale, a missing item and a reserve relocation",
	},
	{
		ID:          "count-reconciliation",
		Name:        "Count Reconciliation",
		Description: "A case counted yesterday and today with activity in between",
	},
}

// ListScenarios returns available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario seeds a scenario into a new location.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	var (
		loc inventory.Location
		err error
	)
	switch req.ScenarioID {
	case "storefront":
		loc, err = h.loadStorefrontScenario(r.Context())
	case "count-reconciliation":
		loc, err = h.loadCountReconciliationScenario(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}
	if err != nil {
		h.fail(w, r, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()
	h.Logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID), zap.Int64("location_id", int64(loc.ID)))
	writeJSON(w, http.StatusCreated, toLocationDTO(loc))
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadStorefrontScenario(ctx context.Context) (inventory.Location, error) {
	l := h.Ledger
	loc, err := l.CreateLocation(ctx, demoActor, "Demo Storefront")
	if err != nil {
		return loc, err
	}
	for _, c := range []struct{ code, name string }{
		{"01", "Front window"},
		{"02", "Bridal"},
		{"03", "Earrings wall"},
	} {
		if _, err := l.CreateCase(ctx, demoActor, loc.ID, c.code, c.name); err != nil {
			return loc, err
		}
	}

	receipts := []inventory.ReceiveRequest{
		{Location: loc.ID, Category: inventory.CategoryRing, Description: "14k gold band",
			Lines: []inventory.Line{{UPC: "400100000011", Qty: 4}, {UPC: "400100000028", Qty: 2}}},
		{Location: loc.ID, Category: inventory.CategoryEarring, Description: "Sterling hoops",
			Lines: []inventory.Line{{UPC: "400200000017", Qty: 6}}},
		{Location: loc.ID, Category: inventory.CategoryNecklace, Description: "Pearl strand",
			Lines: []inventory.Line{{UPC: "400300000014", Qty: 1}}},
	}
	for _, req := range receipts {
		if _, err := l.Receive(ctx, demoActor, req); err != nil {
			return loc, err
		}
	}

	intake := inventory.NewReceipts(loc.ID)
	c01 := inventory.CaseRef{Location: loc.ID, Code: "01"}
	c02 := inventory.CaseRef{Location: loc.ID, Code: "02"}
	c03 := inventory.CaseRef{Location: loc.ID, Code: "03"}
	moves := []inventory.MoveRequest{
		{From: intake, To: c02, Lines: []inventory.Line{{UPC: "400100000011", Qty: 4}, {UPC: "400100000028", Qty: 2}}},
		{From: intake, To: c03, Lines: []inventory.Line{{UPC: "400200000017", Qty: 6}}},
		{From: intake, To: c01, Lines: []inventory.Line{{UPC: "400300000014", Qty: 1}}},
	}
	for _, req := range moves {
		if _, err := l.Move(ctx, demoActor, req); err != nil {
			return loc, err
		}
	}

	sale, err := inventory.ParseSale(inventory.SaleInput{
		TransReg: "1042/03", DeptNo: "31", BriefDesc: "gold band", TicketPrice: "$249.99", DiamondTest: "N",
	}, true)
	if err != nil {
		return loc, err
	}
	if _, err := l.Sell(ctx, demoActor, inventory.SellRequest{
		From: c02, Lines: []inventory.Line{{UPC: "400100000011", Qty: 1}}, Sale: sale,
	}); err != nil {
		return loc, err
	}
	if _, err := l.MarkMissing(ctx, demoActor, inventory.MissingRequest{
		From: c03, Lines: []inventory.Line{{UPC: "400200000017", Qty: 1}}, Notes: "Back missing at close",
	}); err != nil {
		return loc, err
	}
	_, err = l.Relocate(ctx, demoActor, inventory.RelocateRequest{
		Case: c02, FromSub: inventory.SubCase, ToSub: inventory.SubReserve,
		Lines: []inventory.Line{{UPC: "400100000028", Qty: 2}},
	})
	return loc, err
}

func (h *Handler) loadCountReconciliationScenario(ctx context.Context) (inventory.Location, error) {
	l := h.Ledger
	loc, err := l.CreateLocation(ctx, demoActor, "Demo Count Floor")
	if err != nil {
		return loc, err
	}
	ref := inventory.CaseRef{Location: loc.ID, Code: "10"}
	if _, err := l.CreateCase(ctx, demoActor, loc.ID, "10", "Bracelets"); err != nil {
		return loc, err
	}

	today := l.Clock().Today()
	yesterday := today.AddDays(-1)
	if _, err := l.RecordCount(ctx, demoActor, inventory.CountInput{
		Case: ref, LocalDate: yesterday,
		CaseCounts: inventory.CategoryCounts{},
	}); err != nil {
		return loc, err
	}

	if _, err := l.Receive(ctx, demoActor, inventory.ReceiveRequest{
		Location: loc.ID, Category: inventory.CategoryBracelet, Description: "Tennis bracelet",
		Lines: []inventory.Line{{UPC: "400400000010", Qty: 3}},
	}); err != nil {
		return loc, err
	}
	if _, err := l.Move(ctx, demoActor, inventory.MoveRequest{
		From: inventory.NewReceipts(loc.ID), To: ref,
		Lines: []inventory.Line{{UPC: "400400000010", Qty: 3}},
	}); err != nil {
		return loc, err
	}

	// One bracelet short on the floor: the sheet shows a discrepancy of -1.
	_, err = l.RecordCount(ctx, demoActor, inventory.CountInput{
		Case: ref, LocalDate: today,
		CaseCounts: inventory.CategoryCounts{inventory.CategoryBracelet: 2},
		Notes:      "clasp tray checked",
	})
	return loc, err
}

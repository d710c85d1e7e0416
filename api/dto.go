/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the HTTP surface. The inventory types carry no JSON tags;
  everything crossing the wire is converted here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

LINE INPUT:
  Movement requests accept scanner text in "upcs" (one UPC per line or
  "UPC,qty") and/or explicit "lines". Both are merged, duplicates summed.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/caseledger/inventory"
	"github.com/warp/caseledger/report"
)

const timeLayout = time.RFC3339

// =============================================================================
// REQUESTS
// =============================================================================

type LineDTO struct {
	UPC string `json:"upc"`
	Qty int    `json:"qty"`
}

// LinesInput is embedded by every movement request.
type LinesInput struct {
	UPCs  string    `json:"upcs,omitempty"`
	Lines []LineDTO `json:"lines,omitempty"`
}

func (in LinesInput) toLines() []inventory.Line {
	explicit := make([]inventory.Line, 0, len(in.Lines))
	for _, l := range in.Lines {
		explicit = append(explicit, inventory.Line{UPC: inventory.UPC(l.UPC), Qty: l.Qty})
	}
	return inventory.MergeLines(inventory.ParseUPCLines(in.UPCs), explicit)
}

// SaleDTO holds register fields as typed at the counter.
type SaleDTO struct {
	TransReg    string `json:"trans_reg"`
	DeptNo      string `json:"dept_no"`
	BriefDesc   string `json:"brief_desc"`
	TicketPrice string `json:"ticket_price"`
	DiamondTest string `json:"diamond_test,omitempty"`
}

func (s SaleDTO) input() inventory.SaleInput {
	return inventory.SaleInput{
		TransReg:    s.TransReg,
		DeptNo:      s.DeptNo,
		BriefDesc:   s.BriefDesc,
		TicketPrice: s.TicketPrice,
		DiamondTest: s.DiamondTest,
	}
}

type CreateLocationRequest struct {
	Name string `json:"name"`
}

type CreateCaseRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type RenameCaseRequest struct {
	Name string `json:"name"`
}

type ReceiveRequest struct {
	LinesInput
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type MoveRequest struct {
	LinesInput
	ToLocation  int64  `json:"to_location_id,omitempty"`
	ToCase      string `json:"to_case"`
	Sub         string `json:"sub_location,omitempty"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type SellRequest struct {
	LinesInput
	Sub   string  `json:"sub_location,omitempty"`
	Sale  SaleDTO `json:"sale"`
	Notes string  `json:"notes,omitempty"`
}

type MissingRequest struct {
	LinesInput
	Sub   string `json:"sub_location,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type ReturnRequest struct {
	LinesInput
	Sale        SaleDTO `json:"sale"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

type RelocateRequest struct {
	LinesInput
	FromSub string `json:"from_sub"`
	ToSub   string `json:"to_sub"`
	Notes   string `json:"notes,omitempty"`
}

type RecordCountRequest struct {
	Date          string         `json:"date,omitempty"`
	CaseCounts    map[string]int `json:"case_counts"`
	ReserveCounts map[string]int `json:"reserve_counts"`
	DeclaredTotal *int           `json:"declared_total,omitempty"`
	Notes         string         `json:"notes,omitempty"`
}

type AdminEventRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes,omitempty"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type LocationDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

func toLocationDTO(l inventory.Location) LocationDTO {
	return LocationDTO{ID: int64(l.ID), Name: l.Name, Active: l.Active, CreatedAt: l.CreatedAt.Format(timeLayout)}
}

type TotalsDTO struct {
	Quantity     int `json:"quantity"`
	DistinctUPCs int `json:"distinct_upcs"`
}

type CaseDTO struct {
	LocationID int64      `json:"location_id"`
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Virtual    bool       `json:"virtual"`
	Active     bool       `json:"active"`
	Totals     *TotalsDTO `json:"totals,omitempty"`
}

func toCaseDTO(c inventory.Case) CaseDTO {
	return CaseDTO{
		LocationID: int64(c.Ref.Location),
		Code:       string(c.Ref.Code),
		Name:       c.Name,
		Virtual:    c.Virtual,
		Active:     c.Active,
	}
}

type RowDTO struct {
	UPC         string `json:"upc"`
	Sub         string `json:"sub_location"`
	Qty         int    `json:"qty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// CaseDetailDTO is a case with its totals per view and its rows.
type CaseDetailDTO struct {
	CaseDTO
	Combined   TotalsDTO      `json:"combined"`
	CaseSub    TotalsDTO      `json:"case"`
	Reserve    TotalsDTO      `json:"reserve"`
	ByCategory map[string]int `json:"by_category"`
	Unknown    int            `json:"unknown"`
	Rows       []RowDTO       `json:"rows"`
}

type SaleDetailsDTO struct {
	TransReg    string          `json:"trans_reg"`
	DeptNo      string          `json:"dept_no"`
	BriefDesc   string          `json:"brief_desc"`
	TicketPrice decimal.Decimal `json:"ticket_price"`
	DiamondTest string          `json:"diamond_test,omitempty"`
}

type EventDTO struct {
	ID             int64           `json:"id"`
	TS             string          `json:"ts"`
	LocalDate      string          `json:"local_date"`
	BatchID        string          `json:"batch_id"`
	ActorID        string          `json:"actor_id"`
	ActorName      string          `json:"actor_name,omitempty"`
	Action         string          `json:"action"`
	UPC            string          `json:"upc,omitempty"`
	Qty            int             `json:"qty,omitempty"`
	FromLocationID int64           `json:"from_location_id,omitempty"`
	FromCase       string          `json:"from_case,omitempty"`
	FromSub        string          `json:"from_sub,omitempty"`
	ToLocationID   int64           `json:"to_location_id,omitempty"`
	ToCase         string          `json:"to_case,omitempty"`
	ToSub          string          `json:"to_sub,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Sale           *SaleDetailsDTO `json:"sale,omitempty"`
}

func toEventDTO(clock *inventory.StoreClock, e inventory.HistoryEvent) EventDTO {
	dto := EventDTO{
		ID:             e.ID,
		TS:             e.TS.UTC().Format(timeLayout),
		LocalDate:      clock.DateOf(e.TS).String(),
		BatchID:        e.BatchID.String(),
		ActorID:        e.Actor.ID,
		ActorName:      e.Actor.Name,
		Action:         string(e.Action),
		UPC:            string(e.UPC),
		Qty:            e.Qty,
		FromLocationID: int64(e.From.Location),
		FromCase:       string(e.From.Code),
		FromSub:        string(e.FromSub),
		ToLocationID:   int64(e.To.Location),
		ToCase:         string(e.To.Code),
		ToSub:          string(e.ToSub),
		Notes:          e.Notes,
	}
	if s := e.Sale; s != nil {
		dto.Sale = &SaleDetailsDTO{
			TransReg: s.TransReg, DeptNo: s.DeptNo, BriefDesc: s.BriefDesc,
			TicketPrice: s.TicketPrice, DiamondTest: string(s.DiamondTest),
		}
	}
	return dto
}

// ReceiptDTO is returned by every committed movement.
type ReceiptDTO struct {
	BatchID string     `json:"batch_id"`
	Units   int        `json:"units"`
	Events  []EventDTO `json:"events"`
}

type ShortfallDTO struct {
	UPC  string `json:"upc"`
	Sub  string `json:"sub_location"`
	Have int    `json:"have"`
	Need int    `json:"need"`
}

type CountDTO struct {
	ID            int64          `json:"id"`
	LocationID    int64          `json:"location_id"`
	CaseCode      string         `json:"case_code"`
	Date          string         `json:"date"`
	RecordedAt    string         `json:"recorded_at"`
	ActorID       string         `json:"actor_id"`
	ActorName     string         `json:"actor_name,omitempty"`
	CaseCounts    map[string]int `json:"case_counts"`
	ReserveCounts map[string]int `json:"reserve_counts"`
	CountedTotal  int            `json:"counted_total"`
	DeclaredTotal int            `json:"declared_total"`
	Notes         string         `json:"notes,omitempty"`
}

func toCountDTO(s inventory.CountSnapshot) CountDTO {
	return CountDTO{
		ID:            s.ID,
		LocationID:    int64(s.Case.Location),
		CaseCode:      string(s.Case.Code),
		Date:          s.LocalDate.String(),
		RecordedAt:    s.RecordedAt.UTC().Format(timeLayout),
		ActorID:       s.Actor.ID,
		ActorName:     s.Actor.Name,
		CaseCounts:    countsDTO(s.CaseCounts),
		ReserveCounts: countsDTO(s.ReserveCounts),
		CountedTotal:  s.CountedTotal(),
		DeclaredTotal: s.DeclaredTotal,
		Notes:         s.Notes,
	}
}

// countsDTO keys counts by plural label and always lists every category.
func countsDTO(c inventory.CategoryCounts) map[string]int {
	out := make(map[string]int, len(inventory.Categories))
	for _, cat := range inventory.Categories {
		out[cat.Plural()] = c[cat]
	}
	return out
}

type DailyTotalsDTO struct {
	In  int `json:"in"`
	Out int `json:"out"`
	Net int `json:"net"`
}

func toDailyTotalsDTO(t report.DailyTotals) DailyTotalsDTO {
	return DailyTotalsDTO{In: t.In, Out: t.Out, Net: t.Net()}
}

type ActivityLineDTO struct {
	EventID     int64            `json:"event_id"`
	Date        string           `json:"date"`
	Action      string           `json:"action"`
	DocNo       string           `json:"doc_no,omitempty"`
	Description string           `json:"description"`
	UPC         string           `json:"upc"`
	TicketPrice *decimal.Decimal `json:"ticket_price,omitempty"`
	DiamondTest string           `json:"diamond_test,omitempty"`
	ItemCode    string           `json:"item_code"`
	ReasonCode  string           `json:"reason_code"`
	In          int              `json:"in,omitempty"`
	Out         int              `json:"out,omitempty"`
	Initials    string           `json:"initials"`
}

type DailyReportDTO struct {
	LocationID int64             `json:"location_id"`
	CaseCode   string            `json:"case_code"`
	Date       string            `json:"date"`
	Totals     DailyTotalsDTO    `json:"totals"`
	Lines      []ActivityLineDTO `json:"lines"`
}

func toDailyReportDTO(log report.ActivityLog, totals report.DailyTotals) DailyReportDTO {
	dto := DailyReportDTO{
		LocationID: int64(log.Case.Ref.Location),
		CaseCode:   string(log.Case.Ref.Code),
		Date:       log.Date.String(),
		Totals:     toDailyTotalsDTO(totals),
		Lines:      make([]ActivityLineDTO, 0, len(log.Lines)),
	}
	for _, l := range log.Lines {
		line := ActivityLineDTO{
			EventID: l.EventID, Date: l.LocalDate.String(), Action: string(l.Action),
			DocNo: l.DocNo, Description: l.Description, UPC: string(l.UPC),
			DiamondTest: l.DiamondTest, ItemCode: l.ItemCode, ReasonCode: l.ReasonCode,
			In: l.In, Out: l.Out, Initials: l.Initials,
		}
		if l.TicketPrice.Valid {
			p := l.TicketPrice.Decimal
			line.TicketPrice = &p
		}
		dto.Lines = append(dto.Lines, line)
	}
	return dto
}

type CountSheetDTO struct {
	LocationID    int64          `json:"location_id"`
	CaseCode      string         `json:"case_code"`
	Date          string         `json:"date"`
	HasCount      bool           `json:"has_count"`
	Current       *CountDTO      `json:"current,omitempty"`
	CaseCounts    map[string]int `json:"case_counts"`
	ReserveCounts map[string]int `json:"reserve_counts"`
	Combined      map[string]int `json:"combined"`
	DeclaredTotal int            `json:"declared_total"`
	PreviousDate  string         `json:"previous_date,omitempty"`
	PreviousTotal *int           `json:"previous_total,omitempty"`
	Activity      DailyTotalsDTO `json:"activity"`
	ExpectedTotal *int           `json:"expected_total,omitempty"`
	Discrepancy   *int           `json:"discrepancy,omitempty"`
}

func toCountSheetDTO(s report.CountSheet) CountSheetDTO {
	dto := CountSheetDTO{
		LocationID:    int64(s.Case.Ref.Location),
		CaseCode:      string(s.Case.Ref.Code),
		Date:          s.Date.String(),
		HasCount:      s.HasCount(),
		CaseCounts:    countsDTO(s.CaseCounts),
		ReserveCounts: countsDTO(s.ReserveCounts),
		Combined:      countsDTO(s.Combined),
		DeclaredTotal: s.DeclaredTotal,
		Activity:      toDailyTotalsDTO(s.Activity),
		ExpectedTotal: s.ExpectedTotal,
		Discrepancy:   s.Discrepancy,
	}
	if s.Current != nil {
		c := toCountDTO(*s.Current)
		dto.Current = &c
	}
	if s.Previous != nil {
		total := s.PreviousTotal
		dto.PreviousDate = s.PreviousDate.String()
		dto.PreviousTotal = &total
	}
	return dto
}

type CategoryVarianceDTO struct {
	Category string `json:"category"`
	Counted  int    `json:"counted"`
	System   int    `json:"system"`
	Diff     int    `json:"diff"`
}

type VarianceDTO struct {
	CountID      int64                 `json:"count_id"`
	CountDate    string                `json:"count_date"`
	Categories   []CategoryVarianceDTO `json:"categories"`
	Unknown      int                   `json:"unknown"`
	CountedTotal int                   `json:"counted_total"`
	SystemTotal  int                   `json:"system_total"`
}

func toVarianceDTO(v report.Variance) VarianceDTO {
	dto := VarianceDTO{
		CountID:      v.Count.ID,
		CountDate:    v.Count.LocalDate.String(),
		Unknown:      v.Unknown,
		CountedTotal: v.CountedTotal(),
		SystemTotal:  v.SystemTotal(),
	}
	for _, c := range v.Categories {
		dto.Categories = append(dto.Categories, CategoryVarianceDTO{
			Category: c.Category.Plural(), Counted: c.Counted, System: c.System, Diff: c.Diff(),
		})
	}
	return dto
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error      string         `json:"error"`
	Details    string         `json:"details,omitempty"`
	Shortfalls []ShortfallDTO `json:"shortfalls,omitempty"`
}

package inventory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DiamondTest is the result of the in-store diamond tester.
type DiamondTest string

const (
	DiamondYes     DiamondTest = "Y"
	DiamondNo      DiamondTest = "N"
	DiamondNotRead DiamondTest = "NRT"
)

func (d DiamondTest) Valid() bool {
	return d == DiamondYes || d == DiamondNo || d == DiamondNotRead
}

// SaleDetails are the register fields carried by SOLD and RETURN events.
type SaleDetails struct {
	TransReg    string
	DeptNo      string
	BriefDesc   string
	TicketPrice decimal.Decimal
	DiamondTest DiamondTest
}

// SaleInput is the raw form of SaleDetails as typed at the counter.
type SaleInput struct {
	TransReg    string
	DeptNo      string
	BriefDesc   string
	TicketPrice string
	DiamondTest string
}

// ParseSale validates raw sale fields. The ticket price may contain "$" and
// thousands separators. When requireDiamond is false an empty diamond test
// is accepted.
func ParseSale(in SaleInput, requireDiamond bool) (SaleDetails, error) {
	s := SaleDetails{
		TransReg:    strings.TrimSpace(in.TransReg),
		DeptNo:      strings.TrimSpace(in.DeptNo),
		BriefDesc:   strings.TrimSpace(in.BriefDesc),
		DiamondTest: DiamondTest(strings.ToUpper(strings.TrimSpace(in.DiamondTest))),
	}

	raw := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(in.TicketPrice))
	if raw == "" {
		return SaleDetails{}, fmt.Errorf("%w: ticket price is required", ErrInvalidSale)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return SaleDetails{}, fmt.Errorf("%w: ticket price %q is not a number", ErrInvalidSale, in.TicketPrice)
	}
	s.TicketPrice = price

	return s, s.Validate(requireDiamond)
}

// Validate checks that every required field is present.
func (s SaleDetails) Validate(requireDiamond bool) error {
	var missing []string
	if s.TransReg == "" {
		missing = append(missing, "transaction/register #")
	}
	if s.DeptNo == "" {
		missing = append(missing, "department #")
	}
	if s.BriefDesc == "" {
		missing = append(missing, "brief description")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidSale, strings.Join(missing, ", "))
	}
	if s.TicketPrice.IsNegative() {
		return fmt.Errorf("%w: ticket price cannot be negative", ErrInvalidSale)
	}
	if s.DiamondTest == "" && !requireDiamond {
		return nil
	}
	if !s.DiamondTest.Valid() {
		return fmt.Errorf("%w: diamond test must be Y, N or NRT", ErrInvalidSale)
	}
	return nil
}

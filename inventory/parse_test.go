package inventory_test

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/caseledger/inventory"
)

// =============================================================================
// SCANNER INPUT
// =============================================================================

func TestParseUPCLines(t *testing.T) {
	raw := "111\r\n222,3\n\n111\n333,0\n444,abc\n 555 , 2 \n222,-1\n,4\n"

	got := inventory.ParseUPCLines(raw)

	assert.Equal(t, []inventory.Line{
		{UPC: "111", Qty: 2},
		{UPC: "222", Qty: 3},
		{UPC: "555", Qty: 2},
	}, got)
	assert.Equal(t, 7, inventory.TotalQty(got))
}

func TestParseUPCLines_Empty(t *testing.T) {
	assert.Empty(t, inventory.ParseUPCLines(""))
	assert.Empty(t, inventory.ParseUPCLines("\n \n"))
}

func TestMergeLines(t *testing.T) {
	got := inventory.MergeLines(lines("A", 1, "B", 2), lines("B", 3, "C", 1))
	assert.Equal(t, lines("A", 1, "B", 5, "C", 1), got)
}

func TestParseUPCLines_DuplicateSumSaturates(t *testing.T) {
	raw := "111," + strconv.Itoa(math.MaxInt) + "\n111,5\n"

	got := inventory.ParseUPCLines(raw)

	assert.Equal(t, []inventory.Line{{UPC: "111", Qty: math.MaxInt}}, got)
}

func TestMergeLines_SumSaturates(t *testing.T) {
	got := inventory.MergeLines(lines("A", math.MaxInt), lines("A", 1))
	assert.Equal(t, lines("A", math.MaxInt), got)
}

// =============================================================================
// SALE FIELDS
// =============================================================================

func TestParseSale(t *testing.T) {
	s, err := inventory.ParseSale(inventory.SaleInput{
		TransReg: " 0412-07 ", DeptNo: "31", BriefDesc: "band", TicketPrice: "$1,249.50", DiamondTest: "nrt",
	}, true)

	require.NoError(t, err)
	assert.Equal(t, "0412-07", s.TransReg)
	assert.Equal(t, "1249.5", s.TicketPrice.String())
	assert.Equal(t, inventory.DiamondNotRead, s.DiamondTest)
}

func TestParseSale_Invalid(t *testing.T) {
	base := inventory.SaleInput{TransReg: "1", DeptNo: "2", BriefDesc: "x", TicketPrice: "10", DiamondTest: "Y"}

	tests := []struct {
		name   string
		mutate func(*inventory.SaleInput)
		strict bool
	}{
		{"missing register", func(in *inventory.SaleInput) { in.TransReg = "" }, true},
		{"missing dept", func(in *inventory.SaleInput) { in.DeptNo = " " }, true},
		{"price not a number", func(in *inventory.SaleInput) { in.TicketPrice = "ten" }, true},
		{"price missing", func(in *inventory.SaleInput) { in.TicketPrice = "" }, true},
		{"negative price", func(in *inventory.SaleInput) { in.TicketPrice = "-1" }, true},
		{"bad diamond", func(in *inventory.SaleInput) { in.DiamondTest = "maybe" }, false},
		{"diamond required", func(in *inventory.SaleInput) { in.DiamondTest = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := inventory.ParseSale(in, tt.strict)
			assert.ErrorIs(t, err, inventory.ErrInvalidSale)
		})
	}

	in := base
	in.DiamondTest = ""
	_, err := inventory.ParseSale(in, false)
	assert.NoError(t, err, "diamond test optional for returns")
}

// =============================================================================
// CATEGORIES
// =============================================================================

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]inventory.Category{
		"ring":      inventory.CategoryRing,
		"Earrings":  inventory.CategoryEarring,
		"n":         inventory.CategoryNecklace,
		" BRACELET": inventory.CategoryBracelet,
		"other":     inventory.CategoryOther,
	} {
		got, err := inventory.ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := inventory.ParseCategory("watch")
	assert.ErrorIs(t, err, inventory.ErrInvalidCategory)
}

func TestCategory_CodeAndPlural(t *testing.T) {
	assert.Equal(t, "B", inventory.CategoryBracelet.Code())
	assert.Equal(t, "O", inventory.Category("").Code())
	assert.Equal(t, "earrings", inventory.CategoryEarring.Plural())
	assert.Equal(t, "other", inventory.CategoryOther.Plural())
}

func TestCategoryCounts_Add(t *testing.T) {
	a := inventory.CategoryCounts{inventory.CategoryRing: 2}
	b := inventory.CategoryCounts{inventory.CategoryRing: 1, inventory.CategoryOther: 4}

	sum := a.Add(b)

	assert.Equal(t, inventory.CategoryCounts{inventory.CategoryRing: 3, inventory.CategoryOther: 4}, sum)
	assert.Equal(t, 7, sum.Sum())
}

// =============================================================================
// CATALOG MERGE
// =============================================================================

func TestProductMerge_FirstWriteWins(t *testing.T) {
	p := inventory.Product{UPC: "A"}

	p, changed := p.Merge(inventory.Product{Description: "gold hoop", Category: "Watch"})
	assert.True(t, changed)
	assert.Equal(t, "gold hoop", p.Description)
	assert.Equal(t, inventory.Category(""), p.Category, "invalid category ignored")

	p, changed = p.Merge(inventory.Product{Description: "silver hoop", Category: inventory.CategoryEarring})
	assert.True(t, changed)
	assert.Equal(t, "gold hoop", p.Description)
	assert.Equal(t, inventory.CategoryEarring, p.Category)

	_, changed = p.Merge(inventory.Product{Description: "x", Category: inventory.CategoryRing})
	assert.False(t, changed)
}

func TestReceive_CatalogFirstWriteWins(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Receive(f.ctx, clerk, inventory.ReceiveRequest{
		Location: f.loc.ID, Lines: lines("A", 1), Category: inventory.CategoryRing, Description: "first",
	})
	require.NoError(t, err)
	_, err = f.ledger.Receive(f.ctx, clerk, inventory.ReceiveRequest{
		Location: f.loc.ID, Lines: lines("A", 1), Category: inventory.CategoryEarring, Description: "second",
	})
	require.NoError(t, err)

	p, ok, err := f.ledger.Product(f.ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", p.Description)
	assert.Equal(t, inventory.CategoryRing, p.Category)
}

// =============================================================================
// STORE-LOCAL DATES
// =============================================================================

func TestStoreClock_DateOf_UsesZoneNotUTC(t *testing.T) {
	clock, err := inventory.NewStoreClock("America/Phoenix")
	require.NoError(t, err)

	// 03:00 UTC on March 11 is 20:00 on March 10 in Phoenix (UTC-7)
	d := clock.DateOf(time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC))

	assert.Equal(t, "2025-03-10", d.String())
}

func TestStoreClock_DayBounds(t *testing.T) {
	clock, err := inventory.NewStoreClock("America/Phoenix")
	require.NoError(t, err)

	start, end := clock.DayBounds(inventory.NewLocalDate(2025, 3, 10))

	assert.Equal(t, time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 11, 7, 0, 0, 0, time.UTC), end)
}

func TestParseLocalDate(t *testing.T) {
	a, err := inventory.ParseLocalDate("2025-03-10")
	require.NoError(t, err)
	b, err := inventory.ParseLocalDate("03/10/2025")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.Equal(t, "03/10/2025", a.USString())

	_, err = inventory.ParseLocalDate("10.03.2025")
	assert.ErrorIs(t, err, inventory.ErrInvalidDate)
}

func TestNewStoreClock_UnknownZone(t *testing.T) {
	_, err := inventory.NewStoreClock("Mars/Olympus")
	assert.Error(t, err)
}

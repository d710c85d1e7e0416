package inventory

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Line is one UPC and the quantity requested for it.
type Line struct {
	UPC UPC
	Qty int
}

// ParseUPCLines reads scanner input: one UPC per line, or "UPC,qty".
// Duplicate UPCs are summed. Blank lines and lines whose quantity is
// unparsable or not positive are dropped without error. The result keeps
// the order in which each UPC was first seen.
func ParseUPCLines(raw string) []Line {
	var lines []Line
	index := make(map[UPC]int)
	for _, text := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		code, qty := text, 1
		if left, right, ok := strings.Cut(text, ","); ok {
			code = left
			n, err := strconv.Atoi(strings.TrimSpace(right))
			if err != nil {
				n = 0
			}
			qty = n
		}

		upc, err := NormalizeUPC(code)
		if err != nil || qty <= 0 {
			continue
		}
		if i, ok := index[upc]; ok {
			lines[i].Qty = addQty(lines[i].Qty, qty)
			continue
		}
		index[upc] = len(lines)
		lines = append(lines, Line{UPC: upc, Qty: qty})
	}
	return lines
}

// MergeLines combines two line lists, summing shared UPCs. Sums saturate
// at math.MaxInt.
func MergeLines(a, b []Line) []Line {
	out := make([]Line, 0, len(a)+len(b))
	index := make(map[UPC]int)
	for _, l := range append(append([]Line{}, a...), b...) {
		if i, ok := index[l.UPC]; ok {
			out[i].Qty = addQty(out[i].Qty, l.Qty)
			continue
		}
		index[l.UPC] = len(out)
		out = append(out, l)
	}
	return out
}

// TotalQty sums the quantities of all lines.
func TotalQty(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Qty
	}
	return n
}

// validateLines rejects empty batches, blank UPCs and non-positive quantities.
// Duplicates are folded so that sufficiency is checked on the summed need.
func validateLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyBatch
	}
	need := make(map[UPC]int, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(string(l.UPC)) == "" {
			return nil, ErrInvalidUPC
		}
		if l.Qty <= 0 {
			return nil, ErrInvalidQuantity
		}
		if need[l.UPC] > math.MaxInt-l.Qty {
			return nil, fmt.Errorf("%w: %s", ErrQuantityOverflow, l.UPC)
		}
		need[l.UPC] += l.Qty
	}
	return MergeLines(nil, lines), nil
}

// addQty sums two quantities, saturating at math.MaxInt.
func addQty(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

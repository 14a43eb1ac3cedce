package services

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Summary holds per-category subtotals and their grand total.
type Summary struct {
	Subtotals  map[Category]float64
	GrandTotal float64
}

// Subtotal returns the subtotal for c, zero when absent.
func (s Summary) Subtotal(c Category) float64 {
	return s.Subtotals[c]
}

// MarshalJSON writes categories alongside grand_total in a flat object.
func (s Summary) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, len(categoryOrder)+1)
	for _, c := range categoryOrder {
		out[string(c)] = s.Subtotals[c]
	}
	out["grand_total"] = s.GrandTotal
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat object written by MarshalJSON.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var in map[string]float64
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode summary: %w", err)
	}
	s.Subtotals = make(map[Category]float64, len(categoryOrder))
	for _, c := range categoryOrder {
		s.Subtotals[c] = in[string(c)]
	}
	s.GrandTotal = in["grand_total"]
	return nil
}

// BuildSummary sums non-nil, finite amounts per category. Every category is present
// in the result and GrandTotal always equals the sum of the subtotals.
func BuildSummary(lines []BudgetLine) Summary {
	amounts := make(map[Category][]float64, len(categoryOrder))
	for _, l := range lines {
		if l.Amount == nil {
			continue
		}
		cat := l.Category
		if !cat.Valid() {
			cat = CategoryExpense
		}
		amounts[cat] = append(amounts[cat], *l.Amount)
	}

	s := Summary{Subtotals: make(map[Category]float64, len(categoryOrder))}
	grand := decimal.Zero
	for _, c := range categoryOrder {
		sub := SumAmounts(amounts[c])
		s.Subtotals[c] = sub.InexactFloat64()
		grand = grand.Add(sub)
	}
	s.GrandTotal = grand.InexactFloat64()
	return s
}

// ImportStats describes how complete an import was so a reviewer can judge
// it before committing.
type ImportStats struct {
	TotalRows    int                      `json:"total_rows"`
	EmptyRows    int                      `json:"empty_rows"`
	DerivedRows  int                      `json:"derived_rows"`
	MismatchRows int                      `json:"mismatch_rows"`
	MissingRate  map[DerivedField]float64 `json:"missing_rate"`
}

// BuildImportStats counts empty, derived and mismatched lines and the share
// of lines still missing each numeric field after reconciliation.
func BuildImportStats(lines []BudgetLine) ImportStats {
	st := ImportStats{
		TotalRows: len(lines),
		MissingRate: map[DerivedField]float64{
			DerivedQuantity:  0,
			DerivedUnitPrice: 0,
			DerivedAmount:    0,
		},
	}
	var missQty, missPrice, missAmount int
	for _, l := range lines {
		if l.IsEmpty() {
			st.EmptyRows++
		}
		if len(l.Derived) > 0 {
			st.DerivedRows++
		}
		if l.AmountMismatch {
			st.MismatchRows++
		}
		if l.Quantity == nil {
			missQty++
		}
		if l.UnitPrice == nil {
			missPrice++
		}
		if l.Amount == nil {
			missAmount++
		}
	}
	if st.TotalRows > 0 {
		n := decimal.NewFromInt(int64(st.TotalRows))
		rate := func(k int) float64 {
			return decimal.NewFromInt(int64(k)).Div(n).Round(4).InexactFloat64()
		}
		st.MissingRate[DerivedQuantity] = rate(missQty)
		st.MissingRate[DerivedUnitPrice] = rate(missPrice)
		st.MissingRate[DerivedAmount] = rate(missAmount)
	}
	return st
}

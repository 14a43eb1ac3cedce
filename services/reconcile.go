package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// RawRow is one spreadsheet line as extracted from an estimate workbook.
// Absent numbers are nil.
type RawRow struct {
	SheetName string   `json:"sheet_name"`
	RowNo     int      `json:"row_no"`
	Name      string   `json:"name"`
	Breakdown string   `json:"breakdown"`
	Quantity  *float64 `json:"quantity"`
	Unit      string   `json:"unit"`
	UnitPrice *float64 `json:"unit_price"`
	Amount    *float64 `json:"amount"`
	Note      string   `json:"note"`
}

// IsEmpty reports whether none of quantity, unit price and amount are set.
func (r RawRow) IsEmpty() bool {
	return r.Quantity == nil && r.UnitPrice == nil && r.Amount == nil
}

// DerivedField names a numeric field computed during reconciliation.
type DerivedField string

const (
	DerivedQuantity  DerivedField = "quantity"
	DerivedUnitPrice DerivedField = "unit_price"
	DerivedAmount    DerivedField = "amount"
)

// BudgetLine is the reconciled form of a RawRow.
type BudgetLine struct {
	RawRow
	Category       Category       `json:"category"`
	Derived        []DerivedField `json:"derived_flags"`
	AmountMismatch bool           `json:"amount_mismatch"`
}

// IsDerived reports whether field f was computed rather than supplied.
func (l BudgetLine) IsDerived(f DerivedField) bool {
	for _, d := range l.Derived {
		if d == f {
			return true
		}
	}
	return false
}

// Sheet groups the rows read from one worksheet.
type Sheet struct {
	Name string   `json:"name"`
	Rows []RawRow `json:"rows"`
}

// InvalidInputError reports a structurally invalid import. Per-row numeric
// problems never produce it.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

func invalidInput(format string, args ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// NumberResult is the outcome of reconciling the numeric triangle of a row.
type NumberResult struct {
	Quantity       *float64
	UnitPrice      *float64
	Amount         *float64
	Derived        []DerivedField
	AmountMismatch bool
}

// ReconcileOptions tunes numeric reconciliation.
type ReconcileOptions struct {
	// Tolerance is the allowed difference, in whole currency units, between a
	// supplied amount and round(quantity × unit price).
	Tolerance float64
	// QuantityPlaces is the rounding precision of derived quantities.
	QuantityPlaces int32
}

// DefaultReconcileOptions returns zero tolerance and three quantity places.
func DefaultReconcileOptions() ReconcileOptions {
	return ReconcileOptions{Tolerance: 0, QuantityPlaces: DefaultQuantityPlaces}
}

// ReconcileNumbers fills one missing member of the quantity / unit price /
// amount triangle from the other two. Zero operands never derive, and a
// supplied amount that disagrees with quantity × unit price is kept and
// flagged as a mismatch. NaN or infinite inputs are treated as absent, and a
// derived value that would overflow is left nil.
func ReconcileNumbers(row RawRow, opts ReconcileOptions) NumberResult {
	res := NumberResult{
		Quantity:  finiteCopy(row.Quantity),
		UnitPrice: finiteCopy(row.UnitPrice),
		Amount:    finiteCopy(row.Amount),
	}
	q, p, a := res.Quantity, res.UnitPrice, res.Amount

	switch {
	case q != nil && p != nil && a != nil:
		res.AmountMismatch = !AmountsAgree(*q, *p, *a, opts.Tolerance)
	case q != nil && p != nil:
		if *q != 0 && *p != 0 {
			if v := CalcAmount(*q, *p); isFinite(v) {
				res.Amount = &v
				res.Derived = append(res.Derived, DerivedAmount)
			}
		}
	case q != nil && a != nil:
		if *q != 0 {
			if v, ok := CalcUnitPrice(*a, *q); ok && isFinite(v) {
				res.UnitPrice = &v
				res.Derived = append(res.Derived, DerivedUnitPrice)
			}
		}
	case p != nil && a != nil:
		if *p != 0 {
			if v, ok := CalcQuantity(*a, *p, opts.QuantityPlaces); ok && isFinite(v) {
				res.Quantity = &v
				res.Derived = append(res.Derived, DerivedQuantity)
			}
		}
	}
	return res
}

// Reconciler turns raw estimate rows into categorised, totalled budget lines.
// It holds no per-call state and is safe for concurrent use.
type Reconciler struct {
	classifier *Classifier
	opts       ReconcileOptions
}

// NewReconciler builds a reconciler. A nil classifier uses the default rules.
func NewReconciler(classifier *Classifier, opts ReconcileOptions) *Reconciler {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	if opts.QuantityPlaces <= 0 {
		opts.QuantityPlaces = DefaultQuantityPlaces
	}
	if opts.Tolerance < 0 {
		opts.Tolerance = 0
	}
	return &Reconciler{classifier: classifier, opts: opts}
}

// Classify assigns the row's cost category.
func (r *Reconciler) Classify(row RawRow) Category {
	return r.classifier.Classify(row)
}

// ReconcileRow classifies and fills one row.
func (r *Reconciler) ReconcileRow(row RawRow) BudgetLine {
	nums := ReconcileNumbers(row, r.opts)
	line := BudgetLine{
		RawRow:         row,
		Category:       r.Classify(row),
		Derived:        nums.Derived,
		AmountMismatch: nums.AmountMismatch,
	}
	line.Quantity = nums.Quantity
	line.UnitPrice = nums.UnitPrice
	line.Amount = nums.Amount
	if line.Derived == nil {
		line.Derived = []DerivedField{}
	}
	return line
}

// Result is the output of one import reconciliation.
type Result struct {
	Sheets  []string     `json:"sheets"`
	Rows    []BudgetLine `json:"rows"`
	Summary Summary      `json:"summary"`
	Stats   ImportStats  `json:"stats"`
}

// Reconcile validates the sheet structure, reconciles every row in order
// and totals the result. Only structural problems return an error: a row
// without a usable row number gets its 1-based position in the sheet, and
// every row takes the name of the sheet that encloses it.
func (r *Reconciler) Reconcile(sheets []Sheet) (Result, error) {
	if sheets == nil {
		return Result{}, invalidInput("no sheets supplied")
	}
	if err := validateSheets(sheets); err != nil {
		return Result{}, err
	}

	res := Result{
		Sheets: make([]string, 0, len(sheets)),
		Rows:   []BudgetLine{},
	}
	for _, s := range sheets {
		res.Sheets = append(res.Sheets, s.Name)
		for j, row := range s.Rows {
			row.SheetName = s.Name
			if row.RowNo < 1 {
				row.RowNo = j + 1
			}
			res.Rows = append(res.Rows, r.ReconcileRow(row))
		}
	}
	res.Summary = BuildSummary(res.Rows)
	res.Stats = BuildImportStats(res.Rows)
	return res, nil
}

func validateSheets(sheets []Sheet) error {
	for i, s := range sheets {
		if strings.TrimSpace(s.Name) == "" {
			return invalidInput("sheet %d has no name", i+1)
		}
	}
	return nil
}

// fallbackSheetName groups bare rows that carry no sheet name.
const fallbackSheetName = "Sheet1"

// DecodeSheets reads a JSON import body. Both {"sheets": [...]} and a bare
// array of rows are accepted; bare rows are grouped by sheet_name in the
// order each name first appears.
func DecodeSheets(r io.Reader) ([]Sheet, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, invalidInput("empty request body")
	}

	if body[0] != '[' {
		var payload struct {
			Sheets []Sheet `json:"sheets"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, invalidInput("decode sheets: %v", err)
		}
		return payload.Sheets, nil
	}

	var rows []RawRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, invalidInput("decode rows: %v", err)
	}
	sheets := []Sheet{}
	index := make(map[string]int)
	for _, row := range rows {
		name := row.SheetName
		if name == "" {
			name = fallbackSheetName
		}
		i, ok := index[name]
		if !ok {
			i = len(sheets)
			index[name] = i
			sheets = append(sheets, Sheet{Name: name})
		}
		sheets[i].Rows = append(sheets[i].Rows, row)
	}
	return sheets, nil
}

// ToRawRow strips reconciliation output so a line can be reconciled again.
func (l BudgetLine) ToRawRow() RawRow {
	row := l.RawRow
	row.Quantity = copyFloat(l.Quantity)
	row.UnitPrice = copyFloat(l.UnitPrice)
	row.Amount = copyFloat(l.Amount)
	return row
}

// finiteCopy copies v, dropping NaN and infinite values.
func finiteCopy(v *float64) *float64 {
	if v == nil || !isFinite(*v) {
		return nil
	}
	return copyFloat(v)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

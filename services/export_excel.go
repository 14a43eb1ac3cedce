package services

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// budgetSheetName is the worksheet written by GenerateExcel.
const budgetSheetName = "実行予算"

// GenerateExcel creates the budget workbook for the given ExportData and
// returns the file contents. Derived numbers are shaded and amounts that
// disagree with quantity × unit price are shown in red.
func GenerateExcel(data ExportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := budgetSheetName
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	columns := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	lastCol := columns[len(columns)-1]

	widths := []float64{6, 14, 32, 24, 10, 8, 14, 16, 10, 20}
	for i, col := range columns {
		if err := f.SetColWidth(sheetName, col, col, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	// ── Styles ──────────────────────────────────────────────────────────

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}

	subtitleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 11},
	})
	if err != nil {
		return nil, fmt.Errorf("create subtitle style: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	textStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create text style: %w", err)
	}

	// NumFmt 3 is the built-in "#,##0".
	numberStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
		NumFmt: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("create number style: %w", err)
	}

	quantityFmt := "#,##0.###"
	quantityStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &quantityFmt,
	})
	if err != nil {
		return nil, fmt.Errorf("create quantity style: %w", err)
	}

	derivedStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10, Italic: true},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"#FFF4CC"}, Pattern: 1},
		Border:       thinBorders(),
		CustomNumFmt: &quantityFmt,
	})
	if err != nil {
		return nil, fmt.Errorf("create derived style: %w", err)
	}

	mismatchStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10, Bold: true, Color: "#DC2626"},
		Border: thinBorders(),
		NumFmt: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("create mismatch style: %w", err)
	}

	summaryLabelStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return nil, fmt.Errorf("create summary label style: %w", err)
	}

	summaryValueStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		NumFmt: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("create summary value style: %w", err)
	}

	// ── Header Rows (1-3) ───────────────────────────────────────────────

	title := data.Title
	if title == "" {
		title = "実行予算書"
	}
	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheetName, "A1", sanitizeExcelCell(title))
	f.SetCellStyle(sheetName, "A1", lastCol+"1", titleStyle)

	if data.ProjectName != "" {
		if err := f.MergeCell(sheetName, "A2", lastCol+"2"); err != nil {
			return nil, fmt.Errorf("merge project: %w", err)
		}
		line := "工事名: " + data.ProjectName
		if data.ClientName != "" {
			line += "　発注者: " + data.ClientName
		}
		f.SetCellValue(sheetName, "A2", sanitizeExcelCell(line))
		f.SetCellStyle(sheetName, "A2", lastCol+"2", subtitleStyle)
	}

	if err := f.MergeCell(sheetName, "A3", lastCol+"3"); err != nil {
		return nil, fmt.Errorf("merge date: %w", err)
	}
	f.SetCellValue(sheetName, "A3", "作成日: "+data.CreatedDate)
	f.SetCellStyle(sheetName, "A3", lastCol+"3", subtitleStyle)

	// ── Row 5: Column Headers ───────────────────────────────────────────

	headers := []string{"No", "シート", "名称", "内訳", "数量", "単位", "単価", "金額", "区分", "備考"}
	for i, h := range headers {
		f.SetCellValue(sheetName, columns[i]+"5", h)
	}
	f.SetCellStyle(sheetName, "A5", lastCol+"5", headerStyle)

	// ── Data Rows (starting row 6) ──────────────────────────────────────

	row := 6
	for _, r := range data.Rows {
		rowStr := fmt.Sprintf("%d", row)

		f.SetCellValue(sheetName, "A"+rowStr, r.Index)
		f.SetCellValue(sheetName, "B"+rowStr, sanitizeExcelCell(r.SheetName))
		f.SetCellValue(sheetName, "C"+rowStr, sanitizeExcelCell(r.Name))
		f.SetCellValue(sheetName, "D"+rowStr, sanitizeExcelCell(r.Breakdown))
		f.SetCellValue(sheetName, "F"+rowStr, sanitizeExcelCell(r.Unit))
		f.SetCellValue(sheetName, "I"+rowStr, r.Category.Label())
		f.SetCellValue(sheetName, "J"+rowStr, sanitizeExcelCell(r.Note))
		f.SetCellStyle(sheetName, "A"+rowStr, lastCol+rowStr, textStyle)

		numbers := []struct {
			col   string
			value *float64
			field DerivedField
			style int
		}{
			{"E", r.Quantity, DerivedQuantity, quantityStyle},
			{"G", r.UnitPrice, DerivedUnitPrice, numberStyle},
			{"H", r.Amount, DerivedAmount, numberStyle},
		}
		for _, n := range numbers {
			cell := n.col + rowStr
			if n.value != nil {
				f.SetCellValue(sheetName, cell, *n.value)
			}
			style := n.style
			switch {
			case r.isDerived(n.field):
				style = derivedStyle
			case n.field == DerivedAmount && r.AmountMismatch:
				style = mismatchStyle
			}
			f.SetCellStyle(sheetName, cell, cell, style)
		}

		row++
	}

	// ── Summary Rows ────────────────────────────────────────────────────

	row++
	for _, c := range Categories() {
		summaryRow := fmt.Sprintf("%d", row)
		f.SetCellValue(sheetName, "G"+summaryRow, c.Label())
		f.SetCellStyle(sheetName, "G"+summaryRow, "G"+summaryRow, summaryLabelStyle)
		f.SetCellValue(sheetName, "H"+summaryRow, data.Summary.Subtotal(c))
		f.SetCellStyle(sheetName, "H"+summaryRow, "H"+summaryRow, summaryValueStyle)
		row++
	}

	summaryRow := fmt.Sprintf("%d", row)
	f.SetCellValue(sheetName, "G"+summaryRow, "合計")
	f.SetCellStyle(sheetName, "G"+summaryRow, "G"+summaryRow, summaryLabelStyle)
	f.SetCellValue(sheetName, "H"+summaryRow, data.Summary.GrandTotal)
	f.SetCellStyle(sheetName, "H"+summaryRow, "H"+summaryRow, summaryValueStyle)

	// ── Write to buffer ─────────────────────────────────────────────────

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}

	return buf.Bytes(), nil
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Excel interprets cells starting with =, +, -,
// @, \t or \r as formulas, which can be abused for code execution or data theft.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1, // thin
		}
	}
	return borders
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

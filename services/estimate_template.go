package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// templateSheetName is the data sheet of the estimate template.
const templateSheetName = "内訳明細書"

// templateColumn describes one column of the estimate template.
type templateColumn struct {
	Header      string
	Width       float64
	Description string
	Example     string
}

var templateColumns = []templateColumn{
	{"名称", 32, "工種・品名。分類はこの列と内訳から判定されます", "生コンクリート"},
	{"内訳", 24, "仕様・規格", "18-8-20 BB"},
	{"数量", 10, "数値。空欄の場合は 金額 ÷ 単価 で補完", "42.5"},
	{"単位", 8, "一覧から選択", "m3"},
	{"単価", 14, "円。空欄の場合は 金額 ÷ 数量 で補完", "16800"},
	{"金額", 16, "円。空欄の場合は 数量 × 単価 で補完。値引は △ を付ける", "714000"},
	{"備考", 20, "任意", ""},
}

// GenerateEstimateTemplate creates a downloadable .xlsx estimate template
// whose header row is recognised by ParseEstimateFile.
func GenerateEstimateTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := templateSheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1D4ED8"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, c := range templateColumns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		cell := col + "1"
		f.SetCellValue(sheetName, cell, c.Header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		f.SetColWidth(sheetName, col, col, c.Width)

		if c.Header == "単位" {
			dv := excelize.NewDataValidation(true)
			dv.Sqref = fmt.Sprintf("%s2:%s1048576", col, col)
			if err := dv.SetDropList(UnitOptions); err != nil {
				return nil, fmt.Errorf("unit drop list: %w", err)
			}
			f.AddDataValidation(sheetName, dv)
		}
	}

	// Freeze header row
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	if err := addTemplateInstructions(f); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel template: %w", err)
	}
	return buf.Bytes(), nil
}

// addTemplateInstructions adds the 記入方法 sheet. Its name contains a skip
// token so the parser ignores it when the template is uploaded back.
func addTemplateInstructions(f *excelize.File) error {
	instSheet := "記入方法（備考）"
	if _, err := f.NewSheet(instSheet); err != nil {
		return fmt.Errorf("create instructions sheet: %w", err)
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E5E7EB"}, Pattern: 1},
	})

	f.SetCellValue(instSheet, "A1", "見積明細 取込テンプレート 記入方法")
	f.SetCellStyle(instSheet, "A1", "A1", titleStyle)

	for i, h := range []string{"列", "説明", "記入例"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		f.SetCellValue(instSheet, cell, h)
		f.SetCellStyle(instSheet, cell, cell, headerStyle)
	}
	for i, c := range templateColumns {
		row := i + 4
		f.SetCellValue(instSheet, fmt.Sprintf("A%d", row), c.Header)
		f.SetCellValue(instSheet, fmt.Sprintf("B%d", row), c.Description)
		f.SetCellValue(instSheet, fmt.Sprintf("C%d", row), c.Example)
	}
	f.SetColWidth(instSheet, "A", "A", 10)
	f.SetColWidth(instSheet, "B", "B", 60)
	f.SetColWidth(instSheet, "C", "C", 20)
	return nil
}

package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Column keys recognised in an estimate header row.
const (
	colName      = "name"
	colBreakdown = "breakdown"
	colQuantity  = "quantity"
	colUnit      = "unit"
	colUnitPrice = "unit_price"
	colAmount    = "amount"
	colNote      = "note"
)

// headerSynonyms lists, per column key, the header captions seen in estimate
// workbooks. Keys are checked in this order.
var headerSynonyms = []struct {
	key      string
	captions []string
}{
	{colUnitPrice, []string{"単価", "unit price", "unitprice", "unit_price", "rate", "price"}},
	{colQuantity, []string{"数量", "qty", "quantity"}},
	{colUnit, []string{"単位", "unit", "uom"}},
	{colAmount, []string{"金額", "amount", "total"}},
	{colBreakdown, []string{"内訳", "仕様", "規格", "摘要", "形状寸法", "breakdown", "spec", "specification"}},
	{colName, []string{"名称", "品名", "項目", "工種", "品目", "name", "item", "description"}},
	{colNote, []string{"備考", "note", "notes", "remarks"}},
}

// coreColumns must be mapped at least twice for a row to count as a header.
var coreColumns = []string{colName, colQuantity, colUnitPrice, colAmount}

// subtotalMarkers are row names that repeat totals already in the sheet.
var subtotalMarkers = map[string]bool{
	"小計": true, "中計": true, "合計": true, "計": true, "総計": true, "総合計": true,
	"subtotal": true, "total": true,
}

// DefaultSkipSheets are sheet name fragments for cover and conditions sheets.
var DefaultSkipSheets = []string{"条件", "表紙", "備考"}

// DefaultHeaderScanRows is how far down a sheet the header row is searched.
const DefaultHeaderScanRows = 30

// ParseOptions tunes workbook parsing.
type ParseOptions struct {
	HeaderScanRows int
	SkipSheets     []string
}

// DefaultParseOptions returns the built-in parse settings.
func DefaultParseOptions() ParseOptions {
	skip := make([]string, len(DefaultSkipSheets))
	copy(skip, DefaultSkipSheets)
	return ParseOptions{HeaderScanRows: DefaultHeaderScanRows, SkipSheets: skip}
}

// ParseEstimateFile reads an uploaded .xlsx or .csv estimate into sheets of
// raw rows. Unreadable files and files without any recognisable header row
// return an *InvalidInputError.
func ParseEstimateFile(r io.Reader, fileName string, opts ParseOptions) ([]Sheet, error) {
	if opts.HeaderScanRows <= 0 {
		opts.HeaderScanRows = DefaultHeaderScanRows
	}

	var sheets []Sheet
	var err error
	lowerName := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lowerName, ".xlsx"), strings.HasSuffix(lowerName, ".xlsm"):
		sheets, err = parseEstimateExcel(r, opts)
	case strings.HasSuffix(lowerName, ".csv"):
		sheetName := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
		if sheetName == "" {
			sheetName = "CSV"
		}
		sheets, err = parseEstimateCSV(r, sheetName, opts)
	default:
		return nil, invalidInput("unsupported file format %q: must be .xlsx or .csv", filepath.Ext(fileName))
	}
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, invalidInput("no sheet with a recognisable header row (名称/数量/単価/金額)")
	}
	return sheets, nil
}

// parseEstimateExcel reads every non-skipped worksheet of an xlsx file.
func parseEstimateExcel(r io.Reader, opts ParseOptions) ([]Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, invalidInput("failed to open Excel file: %v", err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		if skipSheet(name, opts.SkipSheets) {
			continue
		}
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, invalidInput("failed to read sheet %q: %v", name, err)
		}
		if sheet, ok := sheetFromGrid(name, rows, opts); ok {
			sheets = append(sheets, sheet)
		}
	}
	return sheets, nil
}

// parseEstimateCSV reads a CSV export as a single sheet. Shift_JIS input,
// common for spreadsheets saved on Japanese Windows, is decoded to UTF-8.
func parseEstimateCSV(r io.Reader, sheetName string, opts ParseOptions) ([]Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
		if err != nil {
			return nil, invalidInput("csv is neither UTF-8 nor Shift_JIS: %v", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	grid, err := reader.ReadAll()
	if err != nil {
		return nil, invalidInput("failed to parse CSV: %v", err)
	}
	if sheet, ok := sheetFromGrid(sheetName, grid, opts); ok {
		return []Sheet{sheet}, nil
	}
	return nil, nil
}

// sheetFromGrid locates the header row and converts the rows below it.
// ok is false when the sheet has no header row.
func sheetFromGrid(name string, grid [][]string, opts ParseOptions) (Sheet, bool) {
	headerIdx, columns := detectHeader(grid, opts.HeaderScanRows)
	if headerIdx < 0 {
		return Sheet{}, false
	}

	sheet := Sheet{Name: name, Rows: []RawRow{}}
	for i := headerIdx + 1; i < len(grid); i++ {
		row, ok := rawRowFromCells(grid[i], columns)
		if !ok {
			continue
		}
		row.SheetName = name
		row.RowNo = i + 1
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, true
}

// detectHeader returns the index of the first row mapping at least two core
// columns, with that row's column-key mapping, or -1.
func detectHeader(grid [][]string, scanRows int) (int, []string) {
	limit := min(scanRows, len(grid))
	for i := 0; i < limit; i++ {
		columns := mapHeaderColumns(grid[i])
		found := 0
		for _, key := range coreColumns {
			for _, c := range columns {
				if c == key {
					found++
					break
				}
			}
		}
		if found >= 2 {
			return i, columns
		}
	}
	return -1, nil
}

// mapHeaderColumns maps header captions to column keys, one column per key.
// Unrecognised columns map to "".
func mapHeaderColumns(headers []string) []string {
	mapped := make([]string, len(headers))
	used := make(map[string]bool)
	for i, h := range headers {
		caption := normalizeHeader(h)
		if caption == "" {
			continue
		}
		if key := matchHeader(caption); key != "" && !used[key] {
			mapped[i] = key
			used[key] = true
		}
	}
	return mapped
}

func matchHeader(header string) string {
	for _, s := range headerSynonyms {
		for _, caption := range s.captions {
			if header == strings.ReplaceAll(caption, " ", "") {
				return s.key
			}
		}
	}
	// Japanese captions often carry decoration such as "金額(円)" or "設計数量".
	for _, s := range headerSynonyms {
		for _, caption := range s.captions {
			if isASCII(caption) {
				continue
			}
			if strings.Contains(header, caption) {
				return s.key
			}
		}
	}
	return ""
}

// normalizeHeader applies NFKC, removes spaces and required-field markers,
// and lower-cases.
func normalizeHeader(h string) string {
	h = norm.NFKC.String(h)
	h = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '*' {
			return -1
		}
		return r
	}, h)
	return strings.ToLower(h)
}

// rawRowFromCells converts one data row. ok is false for blank rows and
// rows that repeat sheet totals or carry annotations.
func rawRowFromCells(cells []string, columns []string) (RawRow, bool) {
	var row RawRow
	blank := true
	for i, key := range columns {
		if key == "" || i >= len(cells) {
			continue
		}
		v := strings.TrimSpace(cells[i])
		if v == "" {
			continue
		}
		blank = false
		switch key {
		case colName:
			row.Name = v
		case colBreakdown:
			row.Breakdown = v
		case colQuantity:
			row.Quantity = ParseNumber(v)
		case colUnit:
			row.Unit = v
		case colUnitPrice:
			row.UnitPrice = ParseNumber(v)
		case colAmount:
			row.Amount = ParseNumber(v)
		case colNote:
			row.Note = v
		}
	}
	if blank {
		return RawRow{}, false
	}
	marker := normalizeHeader(row.Name)
	if subtotalMarkers[marker] || strings.HasPrefix(marker, "※") {
		return RawRow{}, false
	}
	return row, true
}

// ParseNumber reads a spreadsheet number such as "1,200", "¥50,000",
// "３０００円" or "△500" (negative). It returns nil when s is not a finite
// number, so cells reading NaN or inf count as absent.
func ParseNumber(s string) *float64 {
	s = strings.TrimSpace(norm.NFKC.String(s))
	if s == "" {
		return nil
	}
	negative := false
	for _, p := range []string{"△", "▲"} {
		if strings.HasPrefix(s, p) {
			negative = true
			s = strings.TrimPrefix(s, p)
			break
		}
	}
	s = strings.NewReplacer(",", "", "¥", "", "\\", "", "円", "", " ", "").Replace(s)
	if s == "" || s == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return nil
	}
	if negative {
		v = -v
	}
	return &v
}

func skipSheet(name string, skip []string) bool {
	for _, s := range skip {
		if s != "" && strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

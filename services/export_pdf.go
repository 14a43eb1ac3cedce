package services

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"
)

// pdfFontFamily is the family name a configured TrueType font is registered under.
const pdfFontFamily = "budget-cjk"

// PDFOptions configures the budget PDF.
type PDFOptions struct {
	// FontPath points at a TrueType font with Japanese glyphs. When empty the
	// built-in Latin font is used and category captions are printed in English.
	FontPath string
}

// categoryTitles are the Latin captions used without a CJK font.
var categoryTitles = map[Category]string{
	CategoryLabor:       "Labor",
	CategorySubcontract: "Subcontract",
	CategoryMaterial:    "Material",
	CategoryMachine:     "Machine",
	CategoryExpense:     "Expense",
}

// GeneratePDF creates the budget summary PDF: a per-category breakdown with
// line counts, the grand total and page numbers.
func GeneratePDF(data ExportData, opts PDFOptions) ([]byte, error) {
	builder := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		})

	unicode := opts.FontPath != ""
	if unicode {
		fonts, err := repository.New().
			AddUTF8Font(pdfFontFamily, fontstyle.Normal, opts.FontPath).
			AddUTF8Font(pdfFontFamily, fontstyle.Bold, opts.FontPath).
			Load()
		if err != nil {
			return nil, fmt.Errorf("load pdf font: %w", err)
		}
		builder = builder.WithCustomFonts(fonts).WithDefaultFont(&props.Font{Family: pdfFontFamily})
	}

	m := maroto.New(builder.Build())

	addHeader(m, data, unicode)
	addCategoryTable(m, data, unicode)
	addFooter(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return doc.GetBytes(), nil
}

func categoryCaption(c Category, unicode bool) string {
	if unicode {
		return c.Label()
	}
	return categoryTitles[c]
}

// addHeader adds the title, project and client lines.
func addHeader(m core.Maroto, data ExportData, unicode bool) {
	title := data.Title
	if title == "" || !unicode {
		title = "Execution Budget"
	}
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(title, props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
	)

	grey := &props.Color{Red: 80, Green: 80, Blue: 80}
	m.AddRows(
		row.New(8).Add(
			col.New(8).Add(
				text.New(truncateRunes(data.ProjectName, 60), props.Text{
					Size:  10,
					Align: align.Left,
					Color: grey,
				}),
			),
			col.New(4).Add(
				text.New(fmt.Sprintf("Date: %s", data.CreatedDate), props.Text{
					Size:  9,
					Align: align.Right,
					Color: grey,
				}),
			),
		),
	)
	if data.ClientName != "" {
		m.AddRows(
			row.New(6).Add(
				col.New(12).Add(
					text.New(truncateRunes(data.ClientName, 60), props.Text{
						Size:  9,
						Align: align.Left,
						Color: grey,
					}),
				),
			),
		)
	}

	m.AddRows(row.New(6))
}

// addCategoryTable adds one row per category plus the grand total.
func addCategoryTable(m core.Maroto, data ExportData, unicode bool) {
	headerBg := &props.Color{Red: 33, Green: 37, Blue: 41}
	headerText := props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headerCell := props.Cell{BackgroundColor: headerBg}

	m.AddRows(
		row.New(9).Add(
			col.New(5).Add(text.New("Category", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Lines", headerText)).WithStyle(&headerCell),
			col.New(3).Add(text.New("Amount", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Share", headerText)).WithStyle(&headerCell),
		),
	)

	counts := make(map[Category]int)
	for _, r := range data.Rows {
		counts[r.Category]++
	}

	body := props.Text{Size: 9, Align: align.Left}
	right := props.Text{Size: 9, Align: align.Right}
	for i, c := range Categories() {
		subtotal := data.Summary.Subtotal(c)
		share := "-"
		if data.Summary.GrandTotal != 0 {
			share = fmt.Sprintf("%.1f%%", subtotal/data.Summary.GrandTotal*100)
		}

		cells := []core.Col{
			col.New(5).Add(text.New(categoryCaption(c, unicode), body)),
			col.New(2).Add(text.New(fmt.Sprintf("%d", counts[c]), right)),
			col.New(3).Add(text.New(FormatJPY(subtotal), right)),
			col.New(2).Add(text.New(share, right)),
		}
		if i%2 == 1 {
			stripe := &props.Cell{BackgroundColor: &props.Color{Red: 245, Green: 245, Blue: 245}}
			for j := range cells {
				cells[j] = cells[j].WithStyle(stripe)
			}
		}
		m.AddRows(row.New(8).Add(cells...))
	}

	summaryCell := &props.Cell{BackgroundColor: &props.Color{Red: 240, Green: 240, Blue: 240}}
	bold := props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}
	m.AddRows(
		row.New(10).Add(
			col.New(7).Add(text.New("Grand Total", bold)).WithStyle(summaryCell),
			col.New(3).Add(text.New(FormatJPY(data.Summary.GrandTotal), bold)).WithStyle(summaryCell),
			col.New(2).WithStyle(summaryCell),
		),
	)
}

// addFooter adds the line count and generated-date line at the bottom.
func addFooter(m core.Maroto, data ExportData) {
	m.AddRows(row.New(6))
	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(
				text.New(
					fmt.Sprintf("%d lines. Generated on %s", len(data.Rows), data.CreatedDate),
					props.Text{
						Size:  7,
						Align: align.Left,
						Color: &props.Color{Red: 140, Green: 140, Blue: 140},
					},
				),
			),
		),
	)
}

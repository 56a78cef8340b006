package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// PDFColor represents an RGB color
type PDFColor struct {
	R, G, B int
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize       string
	Orientation    string
	FontFamily     string
	FontSize       float64
	TitleFontSize  float64
	HeaderColor    PDFColor
	AlternateColor PDFColor
	Margin         float64
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:       "A4",
		Orientation:    "P",
		FontFamily:     "Arial",
		FontSize:       10,
		TitleFontSize:  16,
		HeaderColor:    PDFColor{R: 46, G: 125, B: 50},
		AlternateColor: PDFColor{R: 242, G: 242, B: 242},
		Margin:         15,
	}
}

// WritePDF renders the document title followed by each section as a table.
func WritePDF(w io.Writer, doc Document, options PDFOptions) error {
	pdf := gofpdf.New(options.Orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margin, options.Margin, options.Margin)
	pdf.SetAutoPageBreak(true, options.Margin)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(options.FontFamily, "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(options.FontFamily, "B", options.TitleFontSize)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont(options.FontFamily, "", options.FontSize+1)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, doc.Subtitle, "", 1, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}

	pageWidth, pageHeight := pdf.GetPageSize()
	available := pageWidth - 2*options.Margin

	for _, section := range doc.Sections {
		pdf.Ln(6)
		pdf.SetFont(options.FontFamily, "B", options.FontSize+2)
		pdf.CellFormat(0, 8, section.Title, "", 1, "L", false, 0, "")

		if len(section.Columns) == 0 {
			continue
		}
		width := available / float64(len(section.Columns))

		header := func() {
			pdf.SetFont(options.FontFamily, "B", options.FontSize)
			pdf.SetFillColor(options.HeaderColor.R, options.HeaderColor.G, options.HeaderColor.B)
			pdf.SetTextColor(255, 255, 255)
			for _, col := range section.Columns {
				pdf.CellFormat(width, 8, col, "1", 0, "C", true, 0, "")
			}
			pdf.Ln(-1)
			pdf.SetFont(options.FontFamily, "", options.FontSize)
			pdf.SetTextColor(0, 0, 0)
		}
		header()

		for i, row := range section.Rows {
			if pdf.GetY()+7 > pageHeight-options.Margin {
				pdf.AddPage()
				header()
			}
			if i%2 == 1 {
				pdf.SetFillColor(options.AlternateColor.R, options.AlternateColor.G, options.AlternateColor.B)
			} else {
				pdf.SetFillColor(255, 255, 255)
			}
			for col := range section.Columns {
				v := ""
				if col < len(row) {
					v = truncate(pdf, row[col], width-2)
				}
				pdf.CellFormat(width, 7, v, "1", 0, "L", true, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

package export

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	FreezeHeader bool
	AutoFilter   bool
	HeaderFill   string
	HeaderFont   string
	MinWidth     float64
	MaxWidth     float64
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		FreezeHeader: true,
		AutoFilter:   true,
		HeaderFill:   "2E7D32",
		HeaderFont:   "FFFFFF",
		MinWidth:     10,
		MaxWidth:     50,
	}
}

// WriteExcel writes one sheet per section.
func WriteExcel(w io.Writer, doc Document, options ExcelOptions) error {
	file := excelize.NewFile()
	defer file.Close()

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: options.HeaderFont},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{options.HeaderFill}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, section := range doc.Sections {
		sheet := sheetName(section.Title, i)
		if i == 0 {
			if err := file.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := file.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", sheet, err)
		}

		if err := writeSheet(file, sheet, section, headerStyle, options); err != nil {
			return err
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(file *excelize.File, sheet string, section Section, headerStyle int, options ExcelOptions) error {
	widths := make([]float64, len(section.Columns))
	track := func(col int, v string) {
		if n := float64(utf8.RuneCountInString(v)) + 2; n > widths[col] {
			widths[col] = n
		}
	}

	for col, name := range section.Columns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("failed to set header: %w", err)
		}
		track(col, name)
	}
	if len(section.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(section.Columns), 1)
		if err := file.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
		if options.AutoFilter && len(section.Rows) > 0 {
			if err := file.AutoFilter(sheet, "A1:"+last, nil); err != nil {
				return fmt.Errorf("failed to add auto filter: %w", err)
			}
		}
	}

	for r, row := range section.Rows {
		for col, v := range row {
			if col >= len(widths) {
				break
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := file.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
			track(col, v)
		}
	}

	if options.FreezeHeader {
		if err := file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
	}

	for col, width := range widths {
		if width < options.MinWidth {
			width = options.MinWidth
		}
		if width > options.MaxWidth {
			width = options.MaxWidth
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := file.SetColWidth(sheet, name, name, width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", name, err)
		}
	}
	return nil
}

// sheetName trims a title to Excel's 31 character limit.
func sheetName(title string, index int) string {
	if title == "" {
		return fmt.Sprintf("Sheet%d", index+1)
	}
	if utf8.RuneCountInString(title) > 31 {
		return string([]rune(title)[:31])
	}
	return title
}

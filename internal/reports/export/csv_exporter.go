package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter rune
	UseCRLF   bool
}

// DefaultCSVOptions returns default CSV export options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ','}
}

// WriteCSV writes every section as a title row, a header row and its data,
// with an empty record between sections.
func WriteCSV(w io.Writer, doc Document, options CSVOptions) error {
	writer := csv.NewWriter(w)
	writer.Comma = options.Delimiter
	writer.UseCRLF = options.UseCRLF

	for i, section := range doc.Sections {
		if i > 0 {
			if err := writer.Write([]string{""}); err != nil {
				return fmt.Errorf("failed to write separator: %w", err)
			}
		}
		if err := writer.Write([]string{section.Title}); err != nil {
			return fmt.Errorf("failed to write section title: %w", err)
		}
		if err := writer.Write(section.Columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		for _, row := range section.Rows {
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

package export

// Section is one titled table of a document.
type Section struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Document is an ordered set of sections rendered into one file.
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
}

// Format is an output encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
	FormatPDF   Format = "pdf"
)

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat accepts the supported format names; empty means CSV.
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, true
	case FormatExcel, "excel":
		return FormatExcel, true
	case FormatPDF:
		return FormatPDF, true
	default:
		return "", false
	}
}

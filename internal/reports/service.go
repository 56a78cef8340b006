package reports

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/compliance"
	"carbon-connect/portal-backend/internal/reports/export"
)

// File is a rendered report ready to serve.
type File struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Service renders account statements for download.
type Service interface {
	Statement(ctx context.Context, actor auth.Principal, accountID string, format export.Format) (*File, error)
}

type service struct {
	ledger compliance.Ledger
	logger *zap.Logger
}

func NewService(ledger compliance.Ledger, logger *zap.Logger) Service {
	return &service{ledger: ledger, logger: logger}
}

func (s *service) Statement(ctx context.Context, actor auth.Principal, accountID string, format export.Format) (*File, error) {
	statement, err := s.ledger.Statement(ctx, actor, accountID)
	if err != nil {
		return nil, err
	}

	doc := StatementDocument(statement)
	var buf bytes.Buffer
	switch format {
	case export.FormatCSV:
		err = export.WriteCSV(&buf, doc, export.DefaultCSVOptions())
	case export.FormatExcel:
		err = export.WriteExcel(&buf, doc, export.DefaultExcelOptions())
	case export.FormatPDF:
		err = export.WritePDF(&buf, doc, export.DefaultPDFOptions())
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s statement: %w", format, err)
	}

	s.logger.Info("Statement exported",
		zap.String("account_id", accountID),
		zap.String("format", string(format)),
		zap.String("requested_by", actor.UserID),
		zap.Int("bytes", buf.Len()))

	return &File{
		Filename:    fmt.Sprintf("statement-%s-%s.%s", sanitize(accountID), statement.GeneratedAt.Format("20060102"), format),
		ContentType: format.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}

var hundred = decimal.NewFromInt(100)

// StatementDocument lays a statement out as balance, logs and purchases.
func StatementDocument(s *compliance.Statement) export.Document {
	b := s.Balance
	title := b.Name
	if title == "" {
		title = b.AccountID
	}

	balance := export.Section{
		Title:   "Balance",
		Columns: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Account", b.AccountID},
			{"Credits Owned", b.CreditsOwned.String()},
			{"Total Emissions", b.TotalEmissions.String()},
			{"Remaining", b.Remaining.String()},
			{"Status", string(b.Status)},
			{"Quota Used", b.ProgressRatio.Mul(hundred).StringFixed(1) + "%"},
		},
	}

	logs := export.Section{Title: "Emission Logs", Columns: []string{"Date", "Amount (tCO2e)", "Above Average", "Logged By"}}
	for _, l := range s.Logs {
		above := "No"
		if l.AboveAverage {
			above = "Yes"
		}
		logs.Rows = append(logs.Rows, []string{l.Date, l.Amount.String(), above, l.LoggedBy})
	}

	purchases := export.Section{Title: "Purchases", Columns: []string{"Reference", "Package", "Credits", "Price", "Confirmed"}}
	for _, p := range s.Purchases {
		purchases.Rows = append(purchases.Rows, []string{
			p.Reference,
			p.PackageID,
			p.Amount.String(),
			p.Price.StringFixed(2) + " " + p.Currency,
			p.ConfirmedAt.Format(compliance.DateLayout),
		})
	}

	return export.Document{
		Title:    "Compliance Statement",
		Subtitle: fmt.Sprintf("%s, generated %s", title, s.GeneratedAt.Format("2006-01-02 15:04 MST")),
		Sections: []export.Section{balance, logs, purchases},
	}
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

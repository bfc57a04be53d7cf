// Package pdf renders printable documents. Currently only the rent receipt.
package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ReceiptData is everything the receipt template prints.
type ReceiptData struct {
	ReceiptNumber string
	OrgName       string
	OrgAddress    string
	OrgEmail      string
	TenantName    string
	TenantEmail   string
	PaymentType   string
	Amount        float64
	Method        string
	Reference     string
	PaidDate      string
	PeriodStart   string
	PeriodEnd     string
}

type Provider struct{}

func New() *Provider {
	return &Provider{}
}

// RentReceipt renders a single-page payment receipt.
func (p *Provider) RentReceipt(_ context.Context, data ReceiptData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Payment Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.OrgName, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(16,
		col.New(6).Add(
			text.New("Receipt number: "+data.ReceiptNumber, props.Text{Top: 0}),
			text.New("Date paid: "+data.PaidDate, props.Text{Top: 5}),
			text.New("Method: "+orDash(data.Method), props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Reference: "+orDash(data.Reference), props.Text{Top: 0}),
			text.New("Period: "+periodLabel(data.PeriodStart, data.PeriodEnd), props.Text{Top: 5}),
		),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("From", props.Text{Style: fontstyle.Bold}),
			text.New(data.OrgName, props.Text{Top: 5}),
			text.New(data.OrgAddress, props.Text{Top: 10}),
			text.New(data.OrgEmail, props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("Received from", props.Text{Style: fontstyle.Bold}),
			text.New(data.TenantName, props.Text{Top: 5}),
			text.New(data.TenantEmail, props.Text{Top: 10}),
		),
	)

	m.AddRows(row.New(2).Add(col.New(12).Add(line.New())))

	m.AddRow(14,
		text.NewCol(8, paymentTypeLabel(data.PaymentType), props.Text{
			Size: 11,
		}),
		text.NewCol(4, fmt.Sprintf("%.2f", data.Amount), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return doc.GetBytes(), nil
}

func periodLabel(start, end string) string {
	if start == "" {
		return "-"
	}
	if end == "" {
		return start
	}
	return start + " to " + end
}

func paymentTypeLabel(paymentType string) string {
	switch paymentType {
	case "RENT":
		return "Monthly rent"
	case "DEPOSIT":
		return "Security deposit"
	case "LATE_FEE":
		return "Late fee"
	case "UTILITY":
		return "Utilities"
	case "MAINTENANCE":
		return "Maintenance charge"
	default:
		return "Payment"
	}
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

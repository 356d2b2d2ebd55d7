package payments

import (
	"context"
	"fmt"

	"github.com/mmynk/payfees/internal/calculator"
	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/validation"
)

// ReceiptIssuer mints a token that grants access to one payment's receipt.
type ReceiptIssuer interface {
	Issue(rec *models.PaymentRecord) (string, error)
}

// Limits bounds what a single checkout may charge.
type Limits struct {
	ServiceFeePercent float64
	MinAmount         float64
	MaxAmount         float64
	Currency          string
}

// Processor turns a checkout into a recorded payment.
type Processor struct {
	payments *Service
	receipts ReceiptIssuer
	limits   Limits
}

// NewProcessor creates a Processor. receipts may be nil, in which case no
// receipt token is issued.
func NewProcessor(payments *Service, receipts ReceiptIssuer, limits Limits) *Processor {
	return &Processor{payments: payments, receipts: receipts, limits: limits}
}

// Quote computes what a cart would cost without recording anything.
func (p *Processor) Quote(lines []models.CheckoutService) (models.Totals, error) {
	totals, err := calculator.ComputeTotals(lines, p.limits.ServiceFeePercent, p.limits.Currency)
	if err != nil {
		return models.Totals{}, &ValidationError{Message: err.Error()}
	}
	return totals, nil
}

// Process validates the payer and card, prices the cart and records the
// payment.
func (p *Processor) Process(ctx context.Context, req models.ProcessRequest) (*models.Transaction, error) {
	if msg := validation.First(
		validation.Phone(req.UserPhone),
		validation.CardNumber(req.Card.Number),
		validation.CardHolder(req.Card.Holder),
		validation.ExpiryDate(req.Card.ExpiryDate, p.payments.now()),
		validation.CVV(req.Card.CVV),
	); msg != "" {
		return nil, &ValidationError{Message: msg}
	}

	totals, err := p.Quote(req.Services)
	if err != nil {
		return nil, err
	}
	if msg := validation.Amount(totals.Final, p.limits.MinAmount, p.limits.MaxAmount); msg != "" {
		return nil, &ValidationError{Message: msg}
	}

	phone := validation.NormalizePhone(req.UserPhone)
	first := req.Services[0]
	studentID, studentName := first.StudentID, first.StudentName
	for _, l := range req.Services[1:] {
		if l.StudentID != studentID {
			// Multi-student carts are recorded without a single student.
			studentID, studentName = "", "Multiple students"
			break
		}
	}

	rec, err := p.payments.Submit(ctx, models.PaymentRequest{
		UserPhone:   phone,
		UserName:    req.UserName,
		StudentID:   studentID,
		StudentName: studentName,
		Services:    req.Services,
		TotalAmount: &totals.Subtotal,
		ServiceFee:  &totals.ServiceFee,
		FinalAmount: &totals.Final,
		SchoolName:  req.SchoolName,
		Timestamp:   p.payments.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		TransactionID: rec.ID,
		Status:        rec.Status,
		Amount:        rec.FinalAmount,
		ServiceFee:    rec.ServiceFee,
		Subtotal:      rec.TotalAmount,
		Currency:      totals.Currency,
		CreatedAt:     rec.CreatedAt,
	}
	if p.receipts != nil {
		token, err := p.receipts.Issue(rec)
		if err != nil {
			// The payment is recorded; it is returned without a receipt token.
			p.payments.logger.Warn("Failed to issue receipt token", "payment_id", rec.ID, "error", err)
		} else {
			txn.ReceiptToken = token
		}
	}
	return txn, nil
}

// String renders limits for logs.
func (l Limits) String() string {
	return fmt.Sprintf("fee=%.2f%% min=%v max=%v currency=%s", l.ServiceFeePercent, l.MinAmount, l.MaxAmount, l.Currency)
}

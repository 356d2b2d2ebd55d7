package payments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mmynk/payfees/internal/models"
)

type stubIssuer struct {
	err error
}

func (s stubIssuer) Issue(rec *models.PaymentRecord) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-for-" + rec.ID, nil
}

var testLimits = Limits{ServiceFeePercent: 2.5, MinAmount: 1000, MaxAmount: 1000000, Currency: "UGX"}

func validCard() models.Card {
	return models.Card{Number: "4242 4242 4242 4242", Holder: "Jane Doe", ExpiryDate: "12/30", CVV: "123"}
}

func processRequest() models.ProcessRequest {
	return models.ProcessRequest{
		UserPhone:  "+256 700 123 456",
		UserName:   "Jane Doe",
		SchoolName: "Kampala Primary",
		Services: []models.CheckoutService{
			{ID: "tuition-STU001", Description: "Tuition Fee", Amount: 150000, StudentID: "STU001", StudentName: "Sarah Namutebi"},
			{ID: "meals-STU001", Description: "Meals", Amount: 50000, StudentID: "STU001", StudentName: "Sarah Namutebi"},
		},
		Card: validCard(),
	}
}

func TestProcess(t *testing.T) {
	svc, _ := setupService(t)
	p := NewProcessor(svc, stubIssuer{}, testLimits)
	ctx := context.Background()

	txn, err := p.Process(ctx, processRequest())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if !strings.HasPrefix(txn.TransactionID, "payment_256700123456_") {
		t.Errorf("TransactionID = %s, want normalized phone", txn.TransactionID)
	}
	if txn.Subtotal != 200000 || txn.ServiceFee != 5000 || txn.Amount != 205000 {
		t.Errorf("totals = %v/%v/%v", txn.Subtotal, txn.ServiceFee, txn.Amount)
	}
	if txn.ReceiptToken != "token-for-"+txn.TransactionID {
		t.Errorf("ReceiptToken = %q", txn.ReceiptToken)
	}

	rec, err := svc.Get(ctx, txn.TransactionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.StudentID != "STU001" || rec.StudentName != "Sarah Namutebi" {
		t.Errorf("student = %s/%s", rec.StudentID, rec.StudentName)
	}
}

func TestProcess_MultipleStudents(t *testing.T) {
	svc, _ := setupService(t)
	p := NewProcessor(svc, nil, testLimits)

	req := processRequest()
	req.Services[1].StudentID = "STU002"
	req.Services[1].StudentName = "David Okello"

	txn, err := p.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if txn.ReceiptToken != "" {
		t.Errorf("expected no receipt token without issuer")
	}
	rec, _ := svc.Get(context.Background(), txn.TransactionID)
	if rec.StudentID != Unknown || rec.StudentName != "Multiple students" {
		t.Errorf("student = %s/%s", rec.StudentID, rec.StudentName)
	}
}

func TestProcess_Rejections(t *testing.T) {
	svc, _ := setupService(t)
	p := NewProcessor(svc, stubIssuer{}, testLimits)

	tests := []struct {
		name   string
		mutate func(*models.ProcessRequest)
		want   string
	}{
		{"bad phone", func(r *models.ProcessRequest) { r.UserPhone = "123" }, "Phone number must be at least"},
		{"bad card", func(r *models.ProcessRequest) { r.Card.Number = "4242424242424241" }, "Invalid card number"},
		{"expired card", func(r *models.ProcessRequest) { r.Card.ExpiryDate = "01/20" }, "Card has expired"},
		{"bad cvv", func(r *models.ProcessRequest) { r.Card.CVV = "1" }, "CVV"},
		{"empty cart", func(r *models.ProcessRequest) { r.Services = nil }, "at least one service"},
		{"over limit", func(r *models.ProcessRequest) { r.Services[0].Amount = 5000000 }, "must not exceed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := processRequest()
			tt.mutate(&req)

			_, err := p.Process(context.Background(), req)
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestProcess_ReceiptFailureStillRecords(t *testing.T) {
	svc, _ := setupService(t)
	p := NewProcessor(svc, stubIssuer{err: errors.New("signing key missing")}, testLimits)

	txn, err := p.Process(context.Background(), processRequest())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if txn.ReceiptToken != "" {
		t.Errorf("expected empty receipt token")
	}
	if _, err := svc.Get(context.Background(), txn.TransactionID); err != nil {
		t.Errorf("payment should be recorded: %v", err)
	}
}

func TestQuote(t *testing.T) {
	svc, _ := setupService(t)
	p := NewProcessor(svc, nil, testLimits)

	totals, err := p.Quote(processRequest().Services)
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if totals.Final != 205000 || totals.Currency != "UGX" {
		t.Errorf("Quote = %+v", totals)
	}
}

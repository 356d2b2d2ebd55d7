// Package payments records completed payments in the key-value store and
// reads them back per payer.
//
// Keys:
//
//	payment:<id>            the PaymentRecord JSON
//	user_payments:<phone>   JSON array of payment IDs, most recent first
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/storage"
)

// Unknown fills optional text fields the client left out.
const Unknown = "Unknown"

var (
	// ErrNotFound is returned when a payment ID has no record.
	ErrNotFound = errors.New("payment not found")
)

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Service persists and lists payment records.
type Service struct {
	store  storage.Store
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for IDs and CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new payment Service with the given storage backend.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func recordKey(id string) string { return "payment:" + id }
func indexKey(phone string) string { return "user_payments:" + phone }
func paymentID(phone string, t time.Time) string {
	return fmt.Sprintf("payment_%s_%d", phone, t.UnixMilli())
}

// validate checks the required fields of a submission.
func validate(req *models.PaymentRequest) error {
	var missing []string
	if strings.TrimSpace(req.UserPhone) == "" {
		missing = append(missing, "userPhone")
	}
	// An empty array counts as present; only an absent field is missing.
	if req.Services == nil {
		missing = append(missing, "services")
	}
	if req.TotalAmount == nil {
		missing = append(missing, "totalAmount")
	}
	if strings.TrimSpace(req.Timestamp) == "" {
		missing = append(missing, "timestamp")
	}
	if len(missing) > 0 {
		return &ValidationError{Message: "Missing required fields: " + strings.Join(missing, ", ")}
	}
	return nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}

// Submit validates req and writes it as a completed payment.
//
// Optional text fields default to "Unknown"; a missing service fee is 0 and
// a missing final amount is total plus fee. The record and the payer's index
// entry are written in one transaction.
func (s *Service) Submit(ctx context.Context, req models.PaymentRequest) (*models.PaymentRecord, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	now := s.now()
	fee := 0.0
	if req.ServiceFee != nil {
		fee = *req.ServiceFee
	}
	final := *req.TotalAmount + fee
	if req.FinalAmount != nil {
		final = *req.FinalAmount
	}

	rec := &models.PaymentRecord{
		ID:          paymentID(req.UserPhone, now),
		UserPhone:   req.UserPhone,
		UserName:    orUnknown(req.UserName),
		StudentID:   orUnknown(req.StudentID),
		StudentName: orUnknown(req.StudentName),
		Services:    req.Services,
		TotalAmount: *req.TotalAmount,
		ServiceFee:  fee,
		FinalAmount: final,
		SchoolName:  orUnknown(req.SchoolName),
		Timestamp:   req.Timestamp,
		CreatedAt:   now.UTC().Format(time.RFC3339),
		Status:      models.PaymentStatusCompleted,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment: %w", err)
	}

	err = s.store.Update(ctx, func(tx storage.KV) error {
		if err := tx.Set(ctx, recordKey(rec.ID), data); err != nil {
			return err
		}
		ids, err := readIndex(ctx, tx, rec.UserPhone)
		if err != nil {
			return err
		}
		// Same phone, same millisecond: the record was overwritten and is
		// already at the head of the index.
		if len(ids) > 0 && ids[0] == rec.ID {
			return nil
		}
		ids = append([]string{rec.ID}, ids...)
		idx, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("failed to encode payment index: %w", err)
		}
		return tx.Set(ctx, indexKey(rec.UserPhone), idx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	s.logger.Info("Payment recorded",
		"payment_id", rec.ID,
		"services", len(rec.Services),
		"final_amount", rec.FinalAmount,
	)
	return rec, nil
}

// readIndex returns the payment IDs stored for phone; none is not an error.
func readIndex(ctx context.Context, kv storage.KV, phone string) ([]string, error) {
	raw, err := kv.Get(ctx, indexKey(phone))
	if errors.Is(err, storage.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode payment index for %s: %w", phone, err)
	}
	return ids, nil
}

// Get returns one payment record.
func (s *Service) Get(ctx context.Context, id string) (*models.PaymentRecord, error) {
	raw, err := s.store.Get(ctx, recordKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	rec := &models.PaymentRecord{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("failed to decode payment %s: %w", id, err)
	}
	return rec, nil
}

// ListByPhone returns phone's payments, most recent first. IDs in the index
// without a record are skipped.
func (s *Service) ListByPhone(ctx context.Context, phone string) ([]models.PaymentRecord, error) {
	ids, err := readIndex(ctx, s.store, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	records := make([]models.PaymentRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("Skipping indexed payment without record", "payment_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Verify reports the status of a recorded payment.
func (s *Service) Verify(ctx context.Context, id string) (*models.Verification, error) {
	rec, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return &models.Verification{TransactionID: id, Status: "not_found"}, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.Verification{
		TransactionID: id,
		Status:        rec.Status,
		Verified:      rec.Status == models.PaymentStatusCompleted,
	}, nil
}

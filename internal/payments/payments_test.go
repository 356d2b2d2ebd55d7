package payments

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/storage"
	"github.com/mmynk/payfees/internal/storage/sqlite"
	"github.com/mmynk/payfees/pkg/logging"
)

// stepClock returns a clock that advances by one second on every call.
func stepClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(time.Second)
		return now
	}
}

func setupService(t *testing.T) (*Service, *sqlite.SQLiteStore) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "payfees-payments-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := NewService(store,
		WithClock(stepClock(time.Date(2026, time.February, 2, 9, 0, 0, 0, time.UTC))),
		WithLogger(logging.Discard()),
	)
	return svc, store
}

func f(v float64) *float64 { return &v }

func validRequest(phone string) models.PaymentRequest {
	return models.PaymentRequest{
		UserPhone: phone,
		UserName:  "Jane Doe",
		Services: []models.CheckoutService{
			{ID: "tuition-STU001", Description: "Tuition Fee", Amount: 150000, StudentID: "STU001", StudentName: "Sarah Namutebi"},
		},
		TotalAmount: f(150000),
		ServiceFee:  f(3750),
		FinalAmount: f(153750),
		SchoolName:  "Kampala Primary",
		Timestamp:   "2026-02-02T09:00:00.000Z",
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*models.PaymentRequest)
		missing string
	}{
		{"missing phone", func(r *models.PaymentRequest) { r.UserPhone = "" }, "userPhone"},
		{"missing services", func(r *models.PaymentRequest) { r.Services = nil }, "services"},
		{"missing total", func(r *models.PaymentRequest) { r.TotalAmount = nil }, "totalAmount"},
		{"missing timestamp", func(r *models.PaymentRequest) { r.Timestamp = "" }, "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest("256700123456")
			tt.mutate(&req)

			_, err := svc.Submit(ctx, req)
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("error %q does not mention %s", err, tt.missing)
			}
		})
	}
}

func TestSubmit_AssignsIDAndPersists(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	rec, err := svc.Submit(ctx, validRequest("256700123456"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	wantID := "payment_256700123456_1770022800000"
	if rec.ID != wantID {
		t.Errorf("ID = %s, want %s", rec.ID, wantID)
	}
	if rec.Status != models.PaymentStatusCompleted {
		t.Errorf("Status = %s, want completed", rec.Status)
	}

	got, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.FinalAmount != 153750 || got.SchoolName != "Kampala Primary" {
		t.Errorf("Get returned %+v", got)
	}
	if len(got.Services) != 1 || got.Services[0].StudentName != "Sarah Namutebi" {
		t.Errorf("Services not persisted: %+v", got.Services)
	}
}

func TestSubmit_LenientFill(t *testing.T) {
	svc, _ := setupService(t)

	rec, err := svc.Submit(context.Background(), models.PaymentRequest{
		UserPhone:   "256700123456",
		Services:    []models.CheckoutService{{ID: "a", Amount: 100}},
		TotalAmount: f(100),
		ServiceFee:  f(2.5),
		Timestamp:   "2026-02-02T09:00:00Z",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	for field, v := range map[string]string{
		"UserName":    rec.UserName,
		"StudentID":   rec.StudentID,
		"StudentName": rec.StudentName,
		"SchoolName":  rec.SchoolName,
	} {
		if v != Unknown {
			t.Errorf("%s = %q, want %q", field, v, Unknown)
		}
	}
	if rec.FinalAmount != 102.5 {
		t.Errorf("FinalAmount = %v, want total + fee", rec.FinalAmount)
	}
}

func TestListByPhone_MostRecentFirst(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	first, _ := svc.Submit(ctx, validRequest("256700123456"))
	_, _ = svc.Submit(ctx, validRequest("256711000000"))
	second, _ := svc.Submit(ctx, validRequest("256700123456"))

	list, err := svc.ListByPhone(ctx, "256700123456")
	if err != nil {
		t.Fatalf("ListByPhone failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("order = [%s %s], want [%s %s]", list[0].ID, list[1].ID, second.ID, first.ID)
	}
}

func TestSubmit_EmptyServicesAccepted(t *testing.T) {
	svc, _ := setupService(t)

	req := validRequest("256700123456")
	req.Services = []models.CheckoutService{}

	rec, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if rec.Services == nil || len(rec.Services) != 0 {
		t.Errorf("Services = %#v, want empty", rec.Services)
	}
}

func TestListByPhone_SameInstantNotDuplicated(t *testing.T) {
	svc, _ := setupService(t)
	fixed := time.Date(2026, time.February, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	first, err := svc.Submit(ctx, validRequest("256700123456"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	second, err := svc.Submit(ctx, validRequest("256700123456"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected colliding IDs, got %s and %s", first.ID, second.ID)
	}

	list, err := svc.ListByPhone(ctx, "256700123456")
	if err != nil {
		t.Fatalf("ListByPhone failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 payment, got %d", len(list))
	}
}

func TestListByPhone_UnknownPhoneIsEmpty(t *testing.T) {
	svc, _ := setupService(t)

	list, err := svc.ListByPhone(context.Background(), "256799999999")
	if err != nil {
		t.Fatalf("ListByPhone failed: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty list, got %#v", list)
	}
}

func TestListByPhone_SkipsMissingRecords(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	kept, _ := svc.Submit(ctx, validRequest("256700123456"))
	lost, _ := svc.Submit(ctx, validRequest("256700123456"))
	if err := store.Delete(ctx, recordKey(lost.ID)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	list, err := svc.ListByPhone(ctx, "256700123456")
	if err != nil {
		t.Fatalf("ListByPhone failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != kept.ID {
		t.Errorf("expected only %s, got %+v", kept.ID, list)
	}
}

// failingStore fails every transaction.
type failingStore struct {
	*sqlite.SQLiteStore
}

func (failingStore) Update(context.Context, func(storage.KV) error) error {
	return errors.New("disk full")
}

func TestSubmit_StorageError(t *testing.T) {
	_, store := setupService(t)
	svc := NewService(failingStore{store}, WithLogger(logging.Discard()))

	_, err := svc.Submit(context.Background(), validRequest("256700123456"))
	if err == nil || IsValidation(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error %q should carry the cause", err)
	}
}

func TestGetAndVerify(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "payment_0_0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	v, err := svc.Verify(ctx, "payment_0_0")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if v.Verified || v.Status != "not_found" {
		t.Errorf("Verify(missing) = %+v", v)
	}

	rec, _ := svc.Submit(ctx, validRequest("256700123456"))
	v, err = svc.Verify(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !v.Verified || v.Status != models.PaymentStatusCompleted {
		t.Errorf("Verify(recorded) = %+v", v)
	}
}

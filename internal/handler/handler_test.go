package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/payfees/internal/catalog"
	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/payments"
	"github.com/mmynk/payfees/internal/storage/sqlite"
	"github.com/mmynk/payfees/pkg/logging"
)

const prefix = "/.netlify/functions/api"

// setupTestServer mounts every handler on a mux backed by a temp database.
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "handler-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if _, err := catalog.SeedDemo(context.Background(), store.Catalog()); err != nil {
		t.Fatalf("SeedDemo failed: %v", err)
	}

	clock := time.Date(2026, time.February, 2, 9, 0, 0, 0, time.UTC)
	paySvc := payments.NewService(store,
		payments.WithClock(func() time.Time { clock = clock.Add(time.Second); return clock }),
		payments.WithLogger(logging.Discard()),
	)
	proc := payments.NewProcessor(paySvc, nil, payments.Limits{
		ServiceFeePercent: 2.5, MinAmount: 1, MaxAmount: 1000000, Currency: "UGX",
	})

	mux := http.NewServeMux()
	NewFunctions(paySvc).Register(mux, prefix)
	NewREST(catalog.NewService(store.Catalog()), paySvc, proc).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func paymentBody(total float64) map[string]any {
	return map[string]any{
		"userPhone":   "256700123456",
		"userName":    "Jane Doe",
		"services":    []models.CheckoutService{{ID: "tuition-STU001", Description: "Tuition", Amount: total}},
		"totalAmount": total,
		"timestamp":   "2026-02-02T09:00:00.000Z",
	}
}

func TestFunctionHealth(t *testing.T) {
	server := setupTestServer(t)

	var got map[string]string
	status := doJSON(t, http.MethodGet, server.URL+prefix+"/health", nil, &got)
	if status != http.StatusOK || got["status"] != "ok" {
		t.Errorf("health = %d %v", status, got)
	}
}

func TestSubmitPayment_Validation(t *testing.T) {
	server := setupTestServer(t)

	tests := []struct {
		name    string
		body    any
		wantErr string
	}{
		{
			name: "missing totalAmount",
			body: func() map[string]any {
				b := paymentBody(1000)
				delete(b, "totalAmount")
				return b
			}(),
			wantErr: "totalAmount",
		},
		{
			name: "missing services",
			body: func() map[string]any {
				b := paymentBody(1000)
				delete(b, "services")
				return b
			}(),
			wantErr: "services",
		},
		{
			name:    "malformed json",
			body:    "{not json",
			wantErr: "Invalid JSON body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got submitResponse
			status := doJSON(t, http.MethodPost, server.URL+prefix+"/payments", tt.body, &got)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
			if got.Success {
				t.Error("expected success=false")
			}
			if !strings.Contains(got.Error, tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", got.Error, tt.wantErr)
			}
		})
	}
}

func TestSubmitPayment_EmptyServicesAccepted(t *testing.T) {
	server := setupTestServer(t)

	body := paymentBody(1000)
	body["services"] = []models.CheckoutService{}

	var got submitResponse
	status := doJSON(t, http.MethodPost, server.URL+prefix+"/payments", body, &got)
	if status != http.StatusOK {
		t.Fatalf("status = %d (%s), want 200", status, got.Error)
	}
	if !got.Success || got.PaymentID == "" {
		t.Errorf("unexpected submit response: %+v", got)
	}
}

func TestSubmitThenList(t *testing.T) {
	server := setupTestServer(t)

	var first, second submitResponse
	if status := doJSON(t, http.MethodPost, server.URL+prefix+"/payments", paymentBody(1000), &first); status != http.StatusOK {
		t.Fatalf("first submit status = %d (%s)", status, first.Error)
	}
	if status := doJSON(t, http.MethodPost, server.URL+prefix+"/payments", paymentBody(2000), &second); status != http.StatusOK {
		t.Fatalf("second submit status = %d (%s)", status, second.Error)
	}
	if !first.Success || first.PaymentID == "" || first.Message == "" {
		t.Errorf("unexpected submit response: %+v", first)
	}

	var list listResponse
	if status := doJSON(t, http.MethodGet, server.URL+prefix+"/payments/256700123456", nil, &list); status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if list.Count != 2 || len(list.Payments) != 2 {
		t.Fatalf("count = %d, payments = %d, want 2", list.Count, len(list.Payments))
	}
	if list.Payments[0].ID != second.PaymentID {
		t.Errorf("newest payment should be first, got %s", list.Payments[0].ID)
	}
	if list.Payments[1].StudentName != payments.Unknown {
		t.Errorf("StudentName = %q, want lenient fill", list.Payments[1].StudentName)
	}

	var empty listResponse
	doJSON(t, http.MethodGet, server.URL+prefix+"/payments/256799999999", nil, &empty)
	if !empty.Success || empty.Count != 0 || empty.Payments == nil {
		t.Errorf("unknown phone should list nothing: %+v", empty)
	}
}

type restResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func TestRESTCatalog(t *testing.T) {
	server := setupTestServer(t)

	t.Run("search", func(t *testing.T) {
		var got restResponse[[]models.Student]
		status := doJSON(t, http.MethodGet, server.URL+"/api/students/search?query=okello", nil, &got)
		if status != http.StatusOK || len(got.Data) != 1 || got.Data[0].ID != "STU002" {
			t.Errorf("search = %d %+v", status, got)
		}
	})

	t.Run("student not found", func(t *testing.T) {
		var got restResponse[any]
		status := doJSON(t, http.MethodGet, server.URL+"/api/students/STU999", nil, &got)
		if status != http.StatusNotFound || got.Success || got.Code != CodeNotFound {
			t.Errorf("missing student = %d %+v", status, got)
		}
	})

	t.Run("students by phone", func(t *testing.T) {
		var got restResponse[[]models.Student]
		doJSON(t, http.MethodGet, server.URL+"/api/students/phone/256700123456", nil, &got)
		if len(got.Data) != 2 {
			t.Errorf("got %d students, want 2", len(got.Data))
		}
	})

	t.Run("services by category", func(t *testing.T) {
		var got restResponse[[]models.Service]
		doJSON(t, http.MethodGet, server.URL+"/api/services/category/tuition", nil, &got)
		if len(got.Data) != 2 {
			t.Errorf("got %d tuition services, want 2", len(got.Data))
		}
	})

	t.Run("service", func(t *testing.T) {
		var got restResponse[models.Service]
		doJSON(t, http.MethodGet, server.URL+"/api/services/uniform", nil, &got)
		if got.Data.Amount != 120000 {
			t.Errorf("uniform = %+v", got.Data)
		}
	})
}

func TestRESTPayments(t *testing.T) {
	server := setupTestServer(t)

	req := models.ProcessRequest{
		UserPhone: "256700123456",
		UserName:  "Jane Doe",
		Services: []models.CheckoutService{
			{ID: "tuition-STU001", ServiceID: "tuition", Description: "Tuition", Amount: 850000, StudentID: "STU001", StudentName: "Aisha Nakato"},
		},
		Card: models.Card{Number: "4111 1111 1111 1111", Holder: "Jane Doe", ExpiryDate: "12/30", CVV: "123"},
	}

	var quote restResponse[models.Totals]
	doJSON(t, http.MethodPost, server.URL+"/api/payments/quote", req.Services, &quote)
	if quote.Data.Final != 871250 {
		t.Errorf("quote final = %v, want 871250", quote.Data.Final)
	}

	var txn restResponse[models.Transaction]
	if status := doJSON(t, http.MethodPost, server.URL+"/api/payments/process", req, &txn); status != http.StatusOK {
		t.Fatalf("process status = %d (%s)", status, txn.Error)
	}
	if txn.Data.Amount != 871250 || txn.Data.Status != models.PaymentStatusCompleted {
		t.Errorf("transaction = %+v", txn.Data)
	}
	id := txn.Data.TransactionID

	var rec restResponse[models.PaymentRecord]
	doJSON(t, http.MethodGet, server.URL+"/api/payments/"+id, nil, &rec)
	if rec.Data.StudentName != "Aisha Nakato" {
		t.Errorf("record = %+v", rec.Data)
	}

	var history restResponse[[]models.PaymentRecord]
	doJSON(t, http.MethodGet, server.URL+"/api/payments/history/256700123456", nil, &history)
	if len(history.Data) != 1 {
		t.Errorf("history has %d entries, want 1", len(history.Data))
	}

	var v restResponse[models.Verification]
	doJSON(t, http.MethodGet, server.URL+"/api/payments/verify/"+id, nil, &v)
	if !v.Data.Verified {
		t.Errorf("verification = %+v", v.Data)
	}

	t.Run("unknown transaction", func(t *testing.T) {
		var got restResponse[any]
		if status := doJSON(t, http.MethodGet, server.URL+"/api/payments/payment_nope", nil, &got); status != http.StatusNotFound {
			t.Errorf("status = %d, want 404", status)
		}
	})

	t.Run("bad card", func(t *testing.T) {
		bad := req
		bad.Card.Number = "4111 1111 1111 1112"
		var got restResponse[any]
		status := doJSON(t, http.MethodPost, server.URL+"/api/payments/process", bad, &got)
		if status != http.StatusBadRequest || got.Code != CodeValidation || got.Error != "Invalid card number" {
			t.Errorf("bad card = %d %+v", status, got)
		}
	})

	t.Run("over the limit", func(t *testing.T) {
		big := req
		big.Services = []models.CheckoutService{{ID: "x", Amount: 2000000, StudentID: "STU001"}}
		var got restResponse[any]
		if status := doJSON(t, http.MethodPost, server.URL+"/api/payments/process", big, &got); status != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})
}

package handler

import (
	"errors"
	"net/http"

	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/payments"
)

// Functions serves the payment function endpoints. Their bodies are flat
// rather than wrapped in the REST envelope.
type Functions struct {
	payments *payments.Service
}

// NewFunctions creates the function handlers.
func NewFunctions(p *payments.Service) *Functions {
	return &Functions{payments: p}
}

// Register mounts the function endpoints under prefix.
func (f *Functions) Register(mux *http.ServeMux, prefix string) {
	mux.HandleFunc("GET "+prefix+"/health", f.Health)
	mux.HandleFunc("POST "+prefix+"/payments", f.SubmitPayment)
	mux.HandleFunc("GET "+prefix+"/payments/{phone}", f.ListPayments)
}

// Health reports liveness.
func (f *Functions) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitResponse struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"paymentId,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SubmitPayment records a completed payment.
func (f *Functions) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: "Invalid JSON body"})
		return
	}

	rec, err := f.payments.Submit(r.Context(), req)
	if payments.IsValidation(err) {
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: err.Error()})
		return
	}
	if err != nil {
		cause := err
		if inner := errors.Unwrap(err); inner != nil {
			cause = inner
		}
		writeJSON(w, http.StatusInternalServerError, submitResponse{Error: "Failed to save payment: " + cause.Error()})
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{
		Success:   true,
		PaymentID: rec.ID,
		Message:   "Payment saved successfully",
	})
}

type listResponse struct {
	Success  bool                   `json:"success"`
	Payments []models.PaymentRecord `json:"payments"`
	Count    int                    `json:"count"`
	Error    string                 `json:"error,omitempty"`
}

// ListPayments returns the payer's records, most recent first.
func (f *Functions) ListPayments(w http.ResponseWriter, r *http.Request) {
	recs, err := f.payments.ListByPhone(r.Context(), r.PathValue("phone"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, listResponse{
			Payments: []models.PaymentRecord{},
			Error:    "Failed to fetch payments: " + err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Payments: recs, Count: len(recs)})
}

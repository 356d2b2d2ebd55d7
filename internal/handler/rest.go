package handler

import (
	"net/http"

	"github.com/mmynk/payfees/internal/catalog"
	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/payments"
)

// REST serves the /api endpoints.
type REST struct {
	catalog   *catalog.Service
	payments  *payments.Service
	processor *payments.Processor
}

// NewREST creates the REST handlers.
func NewREST(c *catalog.Service, p *payments.Service, proc *payments.Processor) *REST {
	return &REST{catalog: c, payments: p, processor: proc}
}

// Register mounts the REST endpoints.
func (h *REST) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.Health)

	mux.HandleFunc("GET /api/students/search", h.SearchStudents)
	mux.HandleFunc("GET /api/students/phone/{phone}", h.StudentsByPhone)
	mux.HandleFunc("GET /api/students/{id}", h.GetStudent)

	mux.HandleFunc("GET /api/services", h.ListServices)
	mux.HandleFunc("GET /api/services/category/{category}", h.ServicesByCategory)
	mux.HandleFunc("GET /api/services/{id}", h.GetService)

	mux.HandleFunc("POST /api/payments/quote", h.Quote)
	mux.HandleFunc("POST /api/payments/process", h.ProcessPayment)
	mux.HandleFunc("GET /api/payments/history/{phone}", h.PaymentHistory)
	mux.HandleFunc("GET /api/payments/verify/{transactionId}", h.VerifyPayment)
	mux.HandleFunc("GET /api/payments/{transactionId}", h.GetPayment)
}

func (h *REST) Health(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]string{"status": "ok"})
}

func (h *REST) SearchStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	students, err := h.catalog.Search(r.Context(), q.Get("query"), q.Get("phone"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, students)
}

func (h *REST) GetStudent(w http.ResponseWriter, r *http.Request) {
	st, err := h.catalog.Student(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, st)
}

func (h *REST) StudentsByPhone(w http.ResponseWriter, r *http.Request) {
	students, err := h.catalog.StudentsByPhone(r.Context(), r.PathValue("phone"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, students)
}

func (h *REST) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.Services(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, services)
}

func (h *REST) ServicesByCategory(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.ServicesByCategory(r.Context(), r.PathValue("category"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, services)
}

func (h *REST) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.catalog.Service(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, svc)
}

// Quote prices a cart without charging it.
func (h *REST) Quote(w http.ResponseWriter, r *http.Request) {
	var lines []models.CheckoutService
	if err := decodeBody(w, r, &lines); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid JSON body")
		return
	}
	totals, err := h.processor.Quote(lines)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, totals)
}

func (h *REST) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req models.ProcessRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid JSON body")
		return
	}
	txn, err := h.processor.Process(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, txn)
}

func (h *REST) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := h.payments.ListByPhone(r.Context(), r.PathValue("phone"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, recs)
}

func (h *REST) GetPayment(w http.ResponseWriter, r *http.Request) {
	rec, err := h.payments.Get(r.Context(), r.PathValue("transactionId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, rec)
}

func (h *REST) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	v, err := h.payments.Verify(r.Context(), r.PathValue("transactionId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeData(w, v)
}

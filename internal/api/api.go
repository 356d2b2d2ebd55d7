// Package api is the typed façade over the payfees REST API. Each method maps
// to exactly one apiclient call and passes the client's error through.
package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/mmynk/payfees/internal/apiclient"
	"github.com/mmynk/payfees/internal/models"
)

// Default budgets for the non-retried endpoints.
const (
	DefaultPaymentTimeout = 60 * time.Second
	DefaultHealthTimeout  = 5 * time.Second
)

// envelope is the {success, data} wrapper every REST response uses.
type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func get[T any](ctx context.Context, c *apiclient.Client, endpoint string, cfg apiclient.RequestConfig) (T, *apiclient.Error) {
	cfg.Method = http.MethodGet
	env, err := apiclient.Decode[envelope[T]](c.Request(ctx, endpoint, cfg))
	return env.Data, err
}

// API bundles the resource façades.
type API struct {
	Students *Students
	Services *Services
	Payments *Payments
	Health   *Health
}

// Options tunes the endpoints that do not use client defaults.
type Options struct {
	PaymentTimeout time.Duration
	HealthTimeout  time.Duration
}

// New builds every façade on top of c.
func New(c *apiclient.Client, opts Options) *API {
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = DefaultPaymentTimeout
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DefaultHealthTimeout
	}
	return &API{
		Students: &Students{c: c},
		Services: &Services{c: c},
		Payments: &Payments{c: c, timeout: opts.PaymentTimeout},
		Health:   &Health{c: c, timeout: opts.HealthTimeout},
	}
}

// Students reads student reference data.
type Students struct {
	c *apiclient.Client
}

// Search finds students matching query, optionally scoped to a parent phone.
func (s *Students) Search(ctx context.Context, query, phone string) ([]models.Student, *apiclient.Error) {
	q := url.Values{}
	q.Set("query", query)
	if phone != "" {
		q.Set("phone", phone)
	}
	return get[[]models.Student](ctx, s.c, "/api/students/search?"+q.Encode(), apiclient.RequestConfig{})
}

// Get fetches one student.
func (s *Students) Get(ctx context.Context, id string) (models.Student, *apiclient.Error) {
	return get[models.Student](ctx, s.c, "/api/students/"+url.PathEscape(id), apiclient.RequestConfig{})
}

// ByPhone lists students registered under a parent phone.
func (s *Students) ByPhone(ctx context.Context, phone string) ([]models.Student, *apiclient.Error) {
	return get[[]models.Student](ctx, s.c, "/api/students/phone/"+url.PathEscape(phone), apiclient.RequestConfig{})
}

// Services reads billable services.
type Services struct {
	c *apiclient.Client
}

// List returns all services.
func (s *Services) List(ctx context.Context) ([]models.Service, *apiclient.Error) {
	return get[[]models.Service](ctx, s.c, "/api/services", apiclient.RequestConfig{})
}

// ByCategory returns services in one category.
func (s *Services) ByCategory(ctx context.Context, category string) ([]models.Service, *apiclient.Error) {
	return get[[]models.Service](ctx, s.c, "/api/services/category/"+url.PathEscape(category), apiclient.RequestConfig{})
}

// Get fetches one service.
func (s *Services) Get(ctx context.Context, id string) (models.Service, *apiclient.Error) {
	return get[models.Service](ctx, s.c, "/api/services/"+url.PathEscape(id), apiclient.RequestConfig{})
}

// Payments submits and queries payments.
type Payments struct {
	c       *apiclient.Client
	timeout time.Duration
}

// Process submits a payment. It is never retried: a payment that timed out
// may still have been recorded.
func (p *Payments) Process(ctx context.Context, req models.ProcessRequest) (models.Transaction, *apiclient.Error) {
	env, err := apiclient.Decode[envelope[models.Transaction]](p.c.Request(ctx, "/api/payments/process", apiclient.RequestConfig{
		Method:  http.MethodPost,
		Body:    req,
		Timeout: p.timeout,
		Retry:   apiclient.Bool(false),
	}))
	return env.Data, err
}

// History lists the payments made from phone, most recent first.
func (p *Payments) History(ctx context.Context, phone string) ([]models.PaymentRecord, *apiclient.Error) {
	return get[[]models.PaymentRecord](ctx, p.c, "/api/payments/history/"+url.PathEscape(phone), apiclient.RequestConfig{})
}

// Get fetches one payment record.
func (p *Payments) Get(ctx context.Context, transactionID string) (models.PaymentRecord, *apiclient.Error) {
	return get[models.PaymentRecord](ctx, p.c, "/api/payments/"+url.PathEscape(transactionID), apiclient.RequestConfig{})
}

// Verify reports whether a transaction was recorded.
func (p *Payments) Verify(ctx context.Context, transactionID string) (models.Verification, *apiclient.Error) {
	return get[models.Verification](ctx, p.c, "/api/payments/verify/"+url.PathEscape(transactionID), apiclient.RequestConfig{})
}

// Health probes backend liveness.
type Health struct {
	c       *apiclient.Client
	timeout time.Duration
}

// Status is the health payload.
type Status struct {
	Status string `json:"status"`
}

// Check calls the health endpoint once with a short timeout.
func (h *Health) Check(ctx context.Context) (Status, *apiclient.Error) {
	return get[Status](ctx, h.c, "/api/health", apiclient.RequestConfig{
		Timeout: h.timeout,
		Retry:   apiclient.Bool(false),
	})
}

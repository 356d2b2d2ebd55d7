// Package flow drives a payer through the checkout: identify, pick students
// and fee items, pay, and fetch the receipt. It glues the state store to the
// REST API and keeps navigation in step with each outcome.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/payfees/internal/api"
	"github.com/mmynk/payfees/internal/calculator"
	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/rpc"
	"github.com/mmynk/payfees/internal/state"
	"github.com/mmynk/payfees/internal/validation"
)

var (
	// ErrNotIdentified is returned by operations that need a payer phone.
	ErrNotIdentified = errors.New("payer has not been identified")
	// ErrEmptyCart is returned when checking out with nothing selected.
	ErrEmptyCart = errors.New("no services selected")
	// ErrNoReceipt is returned when no completed payment has a receipt token.
	ErrNoReceipt = errors.New("no receipt available")
)

// ValidationError carries a field message for the payer.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ReceiptFetcher downloads a receipt with the token issued at payment time.
// *rpc.ReceiptClient satisfies it.
type ReceiptFetcher interface {
	GetReceipt(ctx context.Context, token, paymentID string) (*rpc.GetReceiptResponse, error)
}

// Options configures a Flow.
type Options struct {
	ServiceFeePercent float64
	Currency          string

	// Receipts may be nil; DownloadReceipt then fails with ErrNoReceipt.
	Receipts ReceiptFetcher
	// Now defaults to time.Now.
	Now func() time.Time
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Flow is one payer session.
type Flow struct {
	store    *state.Store
	api      *api.API
	receipts ReceiptFetcher
	fee      float64
	currency string
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.RWMutex
	services []models.Service
	last     *models.Transaction
}

// New creates a Flow over store and a.
func New(store *state.Store, a *api.API, opts Options) *Flow {
	f := &Flow{
		store:    store,
		api:      a,
		receipts: opts.Receipts,
		fee:      opts.ServiceFeePercent,
		currency: opts.Currency,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// State returns a snapshot of the session state.
func (f *Flow) State() state.State {
	return f.store.Snapshot()
}

// Identify records who is paying. The phone is stored normalized.
func (f *Flow) Identify(phone, name string) error {
	if msg := validation.Phone(phone); msg != "" {
		return &ValidationError{Message: msg}
	}
	if strings.TrimSpace(name) != "" {
		if msg := validation.Name(name); msg != "" {
			return &ValidationError{Message: msg}
		}
	}
	f.store.Dispatch(state.SetUser{Phone: validation.NormalizePhone(phone), Name: strings.TrimSpace(name)})
	return nil
}

func (f *Flow) phone() (string, error) {
	u := f.store.Snapshot().User
	if u.Phone == "" {
		return "", ErrNotIdentified
	}
	return u.Phone, nil
}

// FindStudents searches the school register.
func (f *Flow) FindStudents(ctx context.Context, query string) ([]models.Student, error) {
	students, apiErr := f.api.Students.Search(ctx, query, "")
	if apiErr != nil {
		return nil, apiErr
	}
	// Repeat searches stay on the page instead of stacking it in history.
	if f.store.Snapshot().Navigation.Page != state.PageSearch {
		f.store.Dispatch(state.NavigateToPage{Page: state.PageSearch})
	}
	return students, nil
}

// SelectStudent adds a student to the cart and opens their details.
func (f *Flow) SelectStudent(st models.Student) {
	f.store.Dispatch(
		state.AddSelectedStudent{ID: st.ID},
		state.NavigateToPage{Page: state.PageDetails},
	)
}

// invoiceNumber returns INV-<yyyymmdd>-<8 hex>.
func (f *Flow) invoiceNumber() string {
	return fmt.Sprintf("INV-%s-%s", f.now().Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// AddService binds svc to st and puts the line in the cart. Adding the same
// service for the same student twice keeps the first line.
func (f *Flow) AddService(st models.Student, svc models.Service) models.CheckoutService {
	line := models.CheckoutService{
		ID:            models.LineID(svc.ID, st.ID),
		ServiceID:     svc.ID,
		Description:   svc.Description,
		Amount:        svc.Amount,
		InvoiceNumber: f.invoiceNumber(),
		StudentID:     st.ID,
		StudentName:   st.Name,
	}
	next := f.store.Dispatch(
		state.AddSelectedStudent{ID: st.ID},
		state.AddCheckoutService{Service: line},
	)
	if existing, ok := next.Checkout.Line(line.ID); ok {
		return existing
	}
	return line
}

// RemoveService drops a cart line.
func (f *Flow) RemoveService(lineID string) {
	f.store.Dispatch(state.RemoveCheckoutService{ID: lineID})
}

// Checkout prices the cart and opens the checkout page. The fee-inclusive
// total becomes the payment amount.
func (f *Flow) Checkout() (models.Totals, error) {
	cart := f.store.Snapshot().Checkout
	if len(cart.Services) == 0 {
		return models.Totals{}, ErrEmptyCart
	}
	totals, err := calculator.ComputeTotals(cart.Services, f.fee, f.currency)
	if err != nil {
		return models.Totals{}, &ValidationError{Message: err.Error()}
	}
	f.store.Dispatch(
		state.SetPaymentAmount{Amount: totals.Final},
		state.NavigateToPage{Page: state.PageCheckout},
	)
	return totals, nil
}

// Pay submits the cart with card. Card fields are checked locally first and
// nothing is sent when they fail. On success the cart is emptied; on failure
// it is kept so the payer can retry.
func (f *Flow) Pay(ctx context.Context, card models.Card, schoolName string) (*models.Transaction, error) {
	snap := f.store.Snapshot()
	if snap.User.Phone == "" {
		return nil, ErrNotIdentified
	}
	if len(snap.Checkout.Services) == 0 {
		return nil, ErrEmptyCart
	}
	if msg := validation.First(
		validation.CardNumber(card.Number),
		validation.CardHolder(card.Holder),
		validation.ExpiryDate(card.ExpiryDate, f.now()),
		validation.CVV(card.CVV),
	); msg != "" {
		return nil, &ValidationError{Message: msg}
	}

	f.store.Dispatch(
		state.NavigateToPage{Page: state.PagePayment},
		state.NavigateToPage{Page: state.PageProcessing},
	)

	txn, apiErr := f.api.Payments.Process(ctx, models.ProcessRequest{
		UserPhone:  snap.User.Phone,
		UserName:   snap.User.Name,
		SchoolName: schoolName,
		Services:   snap.Checkout.Services,
		Card:       card,
	})
	if apiErr != nil {
		f.logger.Warn("Payment failed", "code", apiErr.Code, "status", apiErr.Status, "error", apiErr.Message)
		f.store.Dispatch(state.NavigateToPage{Page: state.PageFailed})
		return nil, apiErr
	}

	f.mu.Lock()
	f.last = &txn
	f.mu.Unlock()

	f.store.Dispatch(
		state.ResetCheckoutFlow{},
		state.NavigateToPage{Page: state.PageSuccess},
	)
	f.logger.Info("Payment completed", "transaction_id", txn.TransactionID, "amount", txn.Amount)
	return &txn, nil
}

// LastTransaction returns the most recent successful payment, if any.
func (f *Flow) LastTransaction() (models.Transaction, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.last == nil {
		return models.Transaction{}, false
	}
	return *f.last, true
}

// History lists the payer's past payments.
func (f *Flow) History(ctx context.Context) ([]models.PaymentRecord, error) {
	phone, err := f.phone()
	if err != nil {
		return nil, err
	}
	recs, apiErr := f.api.Payments.History(ctx, phone)
	if apiErr != nil {
		return nil, apiErr
	}
	f.store.Dispatch(state.NavigateToPage{Page: state.PageHistory})
	return recs, nil
}

// DownloadReceipt fetches the receipt for the last successful payment.
func (f *Flow) DownloadReceipt(ctx context.Context) (*rpc.GetReceiptResponse, error) {
	txn, ok := f.LastTransaction()
	if !ok || txn.ReceiptToken == "" || f.receipts == nil {
		return nil, ErrNoReceipt
	}
	receipt, err := f.receipts.GetReceipt(ctx, txn.ReceiptToken, txn.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to download receipt: %w", err)
	}
	f.store.Dispatch(state.NavigateToPage{Page: state.PageDownloadReceipt})
	return receipt, nil
}

// PreloadServices warms the service list in the background. Failures are
// logged and otherwise ignored; Services falls back to a live fetch.
func (f *Flow) PreloadServices(ctx context.Context) {
	go func() {
		services, apiErr := f.api.Services.List(ctx)
		if apiErr != nil {
			f.logger.Warn("Failed to preload services", "error", apiErr)
			return
		}
		f.mu.Lock()
		f.services = services
		f.mu.Unlock()
		f.logger.Debug("Preloaded services", "count", len(services))
	}()
}

// Services returns the preloaded service list, fetching it when the preload
// has not finished or failed.
func (f *Flow) Services(ctx context.Context) ([]models.Service, error) {
	f.mu.RLock()
	cached := f.services
	f.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	services, apiErr := f.api.Services.List(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	f.mu.Lock()
	f.services = services
	f.mu.Unlock()
	return services, nil
}

// Back returns to the previous page.
func (f *Flow) Back() state.Page {
	return f.store.Dispatch(state.GoBack{}).Navigation.Page
}

// StartOver empties the cart and returns to search, keeping the payer.
func (f *Flow) StartOver() {
	f.store.Dispatch(state.ResetCheckoutFlow{}, state.ClearHistory{})
}

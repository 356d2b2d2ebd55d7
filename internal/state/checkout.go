package state

import (
	"slices"

	"github.com/mmynk/payfees/internal/calculator"
	"github.com/mmynk/payfees/internal/models"
)

// Checkout is the cart for one transaction.
//
// PaymentAmount always equals the sum of Services amounts, except right
// after SetPaymentAmount, which overrides it until the next cart mutation.
type Checkout struct {
	SelectedStudentIDs []string
	Services           []models.CheckoutService
	PaymentAmount      float64
}

// Phase is the derived stage of a checkout.
type Phase string

const (
	PhaseEmpty    Phase = "empty"
	PhaseBuilding Phase = "building"
	PhaseReady    Phase = "ready"
)

// Phase derives the checkout stage from the cart contents. Submitting and
// its outcome are tracked by navigation, not by the cart.
func (c Checkout) Phase() Phase {
	switch {
	case c.PaymentAmount > 0:
		return PhaseReady
	case len(c.SelectedStudentIDs) > 0 || len(c.Services) > 0:
		return PhaseBuilding
	default:
		return PhaseEmpty
	}
}

// IsSelected reports whether a student is in the cart.
func (c Checkout) IsSelected(studentID string) bool {
	return slices.Contains(c.SelectedStudentIDs, studentID)
}

// Line returns the cart line with id.
func (c Checkout) Line(id string) (models.CheckoutService, bool) {
	i := slices.IndexFunc(c.Services, func(l models.CheckoutService) bool { return l.ID == id })
	if i < 0 {
		return models.CheckoutService{}, false
	}
	return c.Services[i], true
}

type cartLines = []models.CheckoutService

func emptyCheckout() Checkout {
	return Checkout{
		SelectedStudentIDs: []string{},
		Services:           []models.CheckoutService{},
	}
}

// withLines installs lines and recomputes the total. The total is the exact
// sum; rounding to cents happens when the cart is priced for payment.
func withLines(s State, lines cartLines) State {
	s.Checkout.Services = lines
	s.Checkout.PaymentAmount = calculator.Sum(lines)
	return s
}

// AddSelectedStudent selects a student. Selecting twice is a no-op.
type AddSelectedStudent struct{ ID string }

func (a AddSelectedStudent) Apply(s State) State {
	if s.Checkout.IsSelected(a.ID) {
		return s
	}
	ids := make([]string, len(s.Checkout.SelectedStudentIDs), len(s.Checkout.SelectedStudentIDs)+1)
	copy(ids, s.Checkout.SelectedStudentIDs)
	s.Checkout.SelectedStudentIDs = append(ids, a.ID)
	return s
}

// RemoveSelectedStudent deselects a student. Unknown IDs are ignored.
type RemoveSelectedStudent struct{ ID string }

func (a RemoveSelectedStudent) Apply(s State) State {
	if !s.Checkout.IsSelected(a.ID) {
		return s
	}
	s.Checkout.SelectedStudentIDs = slices.DeleteFunc(slices.Clone(s.Checkout.SelectedStudentIDs),
		func(id string) bool { return id == a.ID })
	return s
}

// SetSelectedStudents replaces the selection, dropping duplicates.
type SetSelectedStudents struct{ IDs []string }

func (a SetSelectedStudents) Apply(s State) State {
	ids := make([]string, 0, len(a.IDs))
	for _, id := range a.IDs {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	s.Checkout.SelectedStudentIDs = ids
	return s
}

// AddCheckoutService appends a line. A line whose ID is already in the cart
// is ignored so IDs stay unique.
type AddCheckoutService struct{ Service models.CheckoutService }

func (a AddCheckoutService) Apply(s State) State {
	if _, ok := s.Checkout.Line(a.Service.ID); ok {
		return s
	}
	lines := make(cartLines, len(s.Checkout.Services), len(s.Checkout.Services)+1)
	copy(lines, s.Checkout.Services)
	return withLines(s, append(lines, a.Service))
}

// RemoveCheckoutService drops the line with ID. Unknown IDs are ignored.
type RemoveCheckoutService struct{ ID string }

func (a RemoveCheckoutService) Apply(s State) State {
	if _, ok := s.Checkout.Line(a.ID); !ok {
		return s
	}
	lines := slices.DeleteFunc(slices.Clone(s.Checkout.Services),
		func(l models.CheckoutService) bool { return l.ID == a.ID })
	return withLines(s, lines)
}

// CheckoutServicePatch lists the fields to change on a line; nil fields are
// left alone.
type CheckoutServicePatch struct {
	Description   *string
	Amount        *float64
	InvoiceNumber *string
	StudentID     *string
	StudentName   *string
}

func (p CheckoutServicePatch) merge(l models.CheckoutService) models.CheckoutService {
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Amount != nil {
		l.Amount = *p.Amount
	}
	if p.InvoiceNumber != nil {
		l.InvoiceNumber = *p.InvoiceNumber
	}
	if p.StudentID != nil {
		l.StudentID = *p.StudentID
	}
	if p.StudentName != nil {
		l.StudentName = *p.StudentName
	}
	return l
}

// UpdateCheckoutService merges Patch into the line with ID. Other lines are
// untouched. The total is recomputed even when no line matched.
type UpdateCheckoutService struct {
	ID    string
	Patch CheckoutServicePatch
}

func (a UpdateCheckoutService) Apply(s State) State {
	lines := slices.Clone(s.Checkout.Services)
	for i := range lines {
		if lines[i].ID == a.ID {
			lines[i] = a.Patch.merge(lines[i])
		}
	}
	if lines == nil {
		lines = cartLines{}
	}
	return withLines(s, lines)
}

// SetCheckoutServices replaces all lines.
type SetCheckoutServices struct{ Services []models.CheckoutService }

func (a SetCheckoutServices) Apply(s State) State {
	lines := slices.Clone(a.Services)
	if lines == nil {
		lines = cartLines{}
	}
	return withLines(s, lines)
}

// SetPaymentAmount overrides the derived total, e.g. with a server-computed
// amount that includes fees. The next cart mutation recomputes it.
type SetPaymentAmount struct{ Amount float64 }

func (a SetPaymentAmount) Apply(s State) State {
	s.Checkout.PaymentAmount = a.Amount
	return s
}

// ResetCheckoutFlow empties the cart in one transition.
type ResetCheckoutFlow struct{}

func (ResetCheckoutFlow) Apply(s State) State {
	s.Checkout = emptyCheckout()
	return s
}

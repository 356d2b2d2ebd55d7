package models

// Student represents a pupil that fees can be paid for.
type Student struct {
	// ID is the school-issued identifier (e.g. "STU001").
	ID string `json:"id"`

	// Name is the student's full name.
	Name string `json:"name"`

	// Grade is the class or year (e.g. "P.5", "S.2").
	Grade string `json:"grade"`

	// SchoolName is the school the student is enrolled at.
	SchoolName string `json:"schoolName"`

	// ParentPhone is the contact number on file, if any.
	ParentPhone string `json:"parentPhone,omitempty"`
}

// Service is a billable fee item offered by a school.
type Service struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category,omitempty"`

	// Recurring marks fees charged every term.
	Recurring bool `json:"recurring,omitempty"`
}

// CheckoutService is a Service bound to a specific student for one transaction.
// It lives in the client's cart until it is removed or the checkout completes.
type CheckoutService struct {
	// ID is unique within a cart. See LineID.
	ID            string  `json:"id"`
	ServiceID     string  `json:"serviceId,omitempty"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	InvoiceNumber string  `json:"invoiceNumber"`
	StudentID     string  `json:"studentId"`
	StudentName   string  `json:"studentName"`
}

// LineID derives the cart line ID for a service bound to a student.
func LineID(serviceID, studentID string) string {
	return serviceID + "-" + studentID
}

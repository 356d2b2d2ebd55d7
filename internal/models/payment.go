package models

// PaymentStatusCompleted is the only status written by the payment endpoint.
const PaymentStatusCompleted = "completed"

// PaymentRequest is the body of a payment submission.
// Pointer fields distinguish "absent" from a zero value.
type PaymentRequest struct {
	UserPhone   string            `json:"userPhone"`
	UserName    string            `json:"userName,omitempty"`
	StudentID   string            `json:"studentId,omitempty"`
	StudentName string            `json:"studentName,omitempty"`
	Services    []CheckoutService `json:"services"`
	TotalAmount *float64          `json:"totalAmount"`
	ServiceFee  *float64          `json:"serviceFee,omitempty"`
	FinalAmount *float64          `json:"finalAmount,omitempty"`
	SchoolName  string            `json:"schoolName,omitempty"`
	Timestamp   string            `json:"timestamp"`
}

// PaymentRecord is the durable representation of one payment submission.
// Records are written once and never mutated.
type PaymentRecord struct {
	// ID is derived from the phone and submission time: payment_<phone>_<millis>.
	ID          string            `json:"id"`
	UserPhone   string            `json:"userPhone"`
	UserName    string            `json:"userName"`
	StudentID   string            `json:"studentId"`
	StudentName string            `json:"studentName"`
	Services    []CheckoutService `json:"services"`

	// TotalAmount is the subtotal of all service lines.
	TotalAmount float64 `json:"totalAmount"`
	ServiceFee  float64 `json:"serviceFee"`
	FinalAmount float64 `json:"finalAmount"`

	SchoolName string `json:"schoolName"`

	// Timestamp is what the client sent; CreatedAt is server time (RFC 3339).
	Timestamp string `json:"timestamp"`
	CreatedAt string `json:"createdAt"`
	Status    string `json:"status"`
}

// Totals is a computed breakdown of what a payer owes.
type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	ServiceFee float64 `json:"serviceFee"`
	Final      float64 `json:"final"`
	Currency   string  `json:"currency"`
}

// Card holds the card fields collected on the payment page.
type Card struct {
	Number     string `json:"number"`
	Holder     string `json:"holder"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

// ProcessRequest is the body of POST /api/payments/process.
type ProcessRequest struct {
	UserPhone  string            `json:"userPhone"`
	UserName   string            `json:"userName"`
	SchoolName string            `json:"schoolName"`
	Services   []CheckoutService `json:"services"`
	Card       Card              `json:"card"`
}

// Transaction is returned after a payment is processed.
type Transaction struct {
	TransactionID string  `json:"transactionId"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	ServiceFee    float64 `json:"serviceFee"`
	Subtotal      float64 `json:"subtotal"`
	Currency      string  `json:"currency"`
	ReceiptToken  string  `json:"receiptToken,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

// Verification reports the status of a recorded transaction.
type Verification struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Verified      bool   `json:"verified"`
}
